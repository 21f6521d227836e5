// Package predict is the HTTP client for the external ML prediction service.
package predict

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

	"github.com/threatlens/threatlens-stack/respond/internal/models"
)

// DefaultTimeout bounds a prediction call when none is configured.
const DefaultTimeout = 5 * time.Second

// ErrUnknownKind is returned for a source kind the service has no endpoint for.
var ErrUnknownKind = errors.New("no prediction endpoint for source kind")

// Result is the service's verdict. AnomalyScore and Confidence are nil when
// the service omitted them.
type Result struct {
	IsAnomaly    bool     `json:"is_anomaly"`
	AnomalyScore *float64 `json:"anomaly_score"`
	Confidence   *float64 `json:"confidence"`
	ThreatClass  *string  `json:"threat_class"`
	Details      string   `json:"details"`
}

// StatusError reports a non-2xx answer from the service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("prediction service returned %d: %s", e.StatusCode, e.Body)
}

// Predictor returns a verdict for a feature record.
type Predictor interface {
	Predict(ctx context.Context, kind models.AlertType, features interface{}) (*Result, error)
	Health(ctx context.Context) (string, error)
}

// Client calls the prediction service over HTTP. Any transport error,
// timeout, non-2xx status or undecodable body is returned as an error; the
// client never guesses "not anomalous".
type Client struct {
	baseURL string
	http    *http.Client
}

var _ Predictor = (*Client)(nil)

// NewClient creates a prediction client. timeout <= 0 uses DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

var endpoints = map[models.AlertType]string{
	models.AlertTypeNetwork: "/predict/network",
	models.AlertTypeEmail:   "/predict/email",
}

// Predict posts features to the endpoint for kind.
func (c *Client) Predict(ctx context.Context, kind models.AlertType, features interface{}) (*Result, error) {
	path, ok := endpoints[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	body, err := json.Marshal(features)
	if err != nil {
		return nil, fmt.Errorf("failed to encode features: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prediction request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode prediction: %w", err)
	}
	return &result, nil
}

// Health queries GET /health and returns the reported status string.
func (c *Client) Health(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("health request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{StatusCode: resp.StatusCode}
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode health response: %w", err)
	}
	return body.Status, nil
}
