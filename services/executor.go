package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"rental-backend/tm30"
)

// ErrManualMode signals that no remote executor is configured and the caller
// must file the returned payload by hand.
var ErrManualMode = errors.New("manual_mode")

// AutomationExecutor triggers the remote TM30 filing workflow. It either
// accepts the job asynchronously (returning a submission reference) or errors.
// The dispatcher is written against this interface only.
type AutomationExecutor interface {
	Trigger(ctx context.Context, payload tm30.SubmissionPayload) (string, error)
}

// WebhookExecutor POSTs the filing batch to the remote automation trigger.
type WebhookExecutor struct {
	URL    string
	Token  string
	Client *http.Client
}

func NewWebhookExecutor(url, token string, timeout time.Duration) *WebhookExecutor {
	return &WebhookExecutor{URL: url, Token: token, Client: &http.Client{Timeout: timeout}}
}

type webhookAck struct {
	Triggered bool   `json:"triggered"`
	RunID     string `json:"runId"`
	Message   string `json:"message"`
}

func (e *WebhookExecutor) Trigger(ctx context.Context, payload tm30.SubmissionPayload) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("cannot build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.Token != "" {
		req.Header.Set("Authorization", "Bearer "+e.Token)
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("trigger request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("executor rejected: HTTP %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var ack webhookAck
	if err := json.Unmarshal(bodyBytes, &ack); err != nil {
		// Some workflow runners ack with an empty body; treat 2xx as accepted.
		log.Printf("⚠️ executor ack not parseable, assuming accepted: %v", err)
		return "", nil
	}
	if !ack.Triggered && ack.Message != "" {
		return "", fmt.Errorf("executor rejected: %s", ack.Message)
	}
	return ack.RunID, nil
}

// ManualExecutor is the fallback when no webhook is configured: every trigger
// reports manual mode so the dispatcher hands the payload back to the caller.
type ManualExecutor struct{}

func (ManualExecutor) Trigger(ctx context.Context, payload tm30.SubmissionPayload) (string, error) {
	return "", ErrManualMode
}
