package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAigenExtractUnwrapsArrayData(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-aigen-key")
		w.Write([]byte(`{"status":"success","data":[{"passport_number":"X1234567","first_name":"JANE","confidence":0.88}]}`))
	}))
	defer srv.Close()

	ocr := NewAigenOCR(srv.URL, "test-key", 0)
	res, err := ocr.Extract(context.Background(), tinyImage)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if gotKey != "test-key" {
		t.Fatalf("x-aigen-key header = %q", gotKey)
	}
	if res.Fields["passport_number"] != "X1234567" {
		t.Fatalf("fields not unwrapped from array: %+v", res.Fields)
	}
	if res.Confidence != 0.88 {
		t.Fatalf("confidence = %v, want 0.88", res.Confidence)
	}
	if len(res.Raw) == 0 {
		t.Fatalf("raw response body not retained")
	}
}

func TestAigenExtractUnwrapsObjectData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","data":{"passport_number":"Y7654321"}}`))
	}))
	defer srv.Close()

	ocr := NewAigenOCR(srv.URL, "k", 0)
	res, err := ocr.Extract(context.Background(), tinyImage)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Fields["passport_number"] != "Y7654321" {
		t.Fatalf("fields not unwrapped from object: %+v", res.Fields)
	}
}

func TestAigenExtractReportsAPIStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error","message":"quota exceeded"}`))
	}))
	defer srv.Close()

	ocr := NewAigenOCR(srv.URL, "k", 0)
	_, err := ocr.Extract(context.Background(), tinyImage)
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("provider message lost: %v", err)
	}
}

func TestAigenExtractRejectsInvalidBase64BeforeCalling(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	ocr := NewAigenOCR(srv.URL, "k", 0)
	if _, err := ocr.Extract(context.Background(), "not base64 at all!!"); err == nil {
		t.Fatalf("expected base64 validation error")
	}
	if called {
		t.Fatalf("invalid input must not reach the provider")
	}
}
