// Package ocr provides the HTTP client for the external OCR service. Results
// arrive asynchronously via webhook; the client only submits processing tasks
// and reports structured, tagged failures.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"syscall"
)

// System submits documents to the OCR service for asynchronous processing.
type System interface {
	// Submit sends a processing request. The returned task id correlates the
	// eventual webhook callback with the submitted document.
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error)
}

// SubmitRequest carries what the OCR service needs to process one document.
type SubmitRequest struct {
	FileURL     string `json:"file_url"`
	Language    string `json:"language"`
	DocumentID  string `json:"document_id"`
	CallbackURL string `json:"callback_url,omitempty"`
}

// SubmitResponse is the OCR service's acknowledgement of a submitted task.
type SubmitResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

type client struct {
	http    *http.Client
	baseURL string
	logger  *slog.Logger
}

// New creates an OCR client from the given configuration.
func New(cfg *Config, logger *slog.Logger) System {
	return &client{
		http: &http.Client{
			Timeout: cfg.RequestTimeoutDuration(),
		},
		baseURL: cfg.BaseURL,
		logger:  logger.With("system", "ocr"),
	}
}

func (c *client) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Op: "submit", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/v1/process",
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Op: "submit", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &Error{Kind: classifyTransport(err), Op: "submit", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &Error{
			Kind:   classifyStatus(resp.StatusCode),
			Status: resp.StatusCode,
			Op:     "submit",
			Err:    fmt.Errorf("%s", bytes.TrimSpace(data)),
		}
	}

	var result SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &Error{Kind: KindUnknown, Op: "submit", Err: fmt.Errorf("decode response: %w", err)}
	}

	if result.TaskID == "" {
		return nil, &Error{Kind: KindUnknown, Op: "submit", Err: errors.New("response missing task_id")}
	}

	c.logger.Info(
		"ocr task submitted",
		"document_id", req.DocumentID,
		"task_id", result.TaskID,
		"status", result.Status,
	)

	return &result, nil
}

func classifyTransport(err error) Kind {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return KindConnectionRefused
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return KindConnectionRefused
	}
	return KindUnknown
}

func classifyStatus(status int) Kind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500:
		return KindServerError
	case status >= 400:
		return KindClientError
	default:
		return KindUnknown
	}
}
