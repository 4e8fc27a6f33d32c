package leadform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/exchange-leads/internal/leads"
)

// Submitter delivers a frozen submission to the lead endpoint.
type Submitter interface {
	Submit(ctx context.Context, sub leads.Submission) error
}

// EndpointError is returned for a non-2xx endpoint response.
type EndpointError struct {
	StatusCode int
	Code       string
	Fields     leads.FieldErrors
}

func (e *EndpointError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("leadform: endpoint returned %d (%s)", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("leadform: endpoint returned %d", e.StatusCode)
}

// HTTPSubmitter posts JSON to <BaseURL>/api/lead.
type HTTPSubmitter struct {
	endpoint string
	client   *http.Client
}

// NewHTTPSubmitter builds a submitter for the site at baseURL.
func NewHTTPSubmitter(baseURL string, client *http.Client) (*HTTPSubmitter, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("leadform: base url required")
	}
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HTTPSubmitter{endpoint: baseURL + "/api/lead", client: client}, nil
}

// Submit posts the submission. Any non-2xx answer is an *EndpointError.
func (s *HTTPSubmitter) Submit(ctx context.Context, sub leads.Submission) error {
	body, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("leadform: encode submission: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("leadform: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("leadform: post lead: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	endpointErr := &EndpointError{StatusCode: resp.StatusCode}
	var payload struct {
		Error  string            `json:"error"`
		Fields leads.FieldErrors `json:"fields"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload); err == nil {
		endpointErr.Code = payload.Error
		endpointErr.Fields = payload.Fields
	}
	return endpointErr
}
