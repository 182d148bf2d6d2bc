package records

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wavemo/wavemo/internal/errors"
	"github.com/wavemo/wavemo/internal/explore"
)

// maxErrorBody bounds how much of an error response we read back.
const maxErrorBody = 64 << 10

// Client submits records to a remote wavemo server over its HTTP API.
// It satisfies explore.Recorder, so the guided flow works identically
// whether records land in the local database or on a server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the given base URL. The timeout bounds
// the whole request, on top of whatever context the caller passes.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// errorEnvelope mirrors the server's JSON error shape.
type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details,omitempty"`
	} `json:"error"`
}

// CreateRecord posts a submission to the server. Server-side rejections
// carrying a structured error pass through with their original code, so
// the caller sees the same errors a local store would return; transport
// failures become SUBMIT_FAILED, which is always retryable.
func (c *Client) CreateRecord(ctx context.Context, sub *explore.Submission) error {
	body, err := json.Marshal(sub)
	if err != nil {
		return errors.NewInternal(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/records", bytes.NewReader(body))
	if err != nil {
		return errors.NewInternal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.NewSubmitFailed(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK {
		return nil
	}

	var env errorEnvelope
	if decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&env); decodeErr == nil && env.Error.Code != "" {
		return &errors.WavemoError{
			Code:    errors.ErrorCode(env.Error.Code),
			Status:  resp.StatusCode,
			Message: env.Error.Message,
			Details: env.Error.Details,
		}
	}
	return errors.NewSubmitFailed(fmt.Errorf("server returned %s", resp.Status))
}
