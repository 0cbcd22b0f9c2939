package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OCRResult is the structured outcome of one passport extraction call.
type OCRResult struct {
	Fields     map[string]interface{}
	Confidence float64
	Raw        json.RawMessage
}

// PassportOCR wraps the third-party extraction service. Implementations must
// bound their own timeouts; a timed-out call is an ordinary error.
type PassportOCR interface {
	Extract(ctx context.Context, imageBase64 string) (OCRResult, error)
}

// AigenResponse is the provider's envelope.
type AigenResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// AigenOCR calls the AIGEN passport-ocr endpoint.
type AigenOCR struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

func NewAigenOCR(endpoint, apiKey string, timeout time.Duration) *AigenOCR {
	return &AigenOCR{
		Endpoint: endpoint,
		APIKey:   apiKey,
		Client:   &http.Client{Timeout: timeout},
	}
}

func (o *AigenOCR) Extract(ctx context.Context, imageBase64 string) (OCRResult, error) {
	if _, err := base64.StdEncoding.DecodeString(imageBase64); err != nil {
		return OCRResult{}, fmt.Errorf("base64 invalid: %w", err)
	}

	payload := map[string]interface{}{
		"image": imageBase64,
		"model": "passport-ocr-v2",
	}
	b, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.Endpoint, bytes.NewReader(b))
	if err != nil {
		return OCRResult{}, fmt.Errorf("cannot build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-aigen-key", o.APIKey)

	resp, err := o.Client.Do(req)
	if err != nil {
		return OCRResult{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return OCRResult{}, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var ar AigenResponse
	if err := json.Unmarshal(bodyBytes, &ar); err != nil {
		return OCRResult{}, fmt.Errorf("JSON parse error: %w", err)
	}
	if ar.Status != "success" {
		return OCRResult{}, fmt.Errorf("API status error: %s - %s", ar.Status, ar.Message)
	}

	fields, err := unwrapAigenData(ar.Data)
	if err != nil {
		return OCRResult{}, err
	}

	return OCRResult{
		Fields:     fields,
		Confidence: confidenceFrom(fields),
		Raw:        bodyBytes,
	}, nil
}

// unwrapAigenData tolerates both the array and object shapes the API returns.
func unwrapAigenData(data json.RawMessage) (map[string]interface{}, error) {
	var arr []map[string]interface{}
	if err := json.Unmarshal(data, &arr); err == nil && len(arr) > 0 {
		return arr[0], nil
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(data, &obj); err == nil && len(obj) > 0 {
		return obj, nil
	}
	return nil, fmt.Errorf("no data returned from Passport OCR: %s", string(data))
}

func confidenceFrom(fields map[string]interface{}) float64 {
	for _, k := range []string{"confidence", "score"} {
		if v, ok := fields[k]; ok {
			if f, ok2 := v.(float64); ok2 {
				return f
			}
		}
	}
	return 0
}
