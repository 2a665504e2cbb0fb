package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cast"

	"signbridge/internal/services"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	maxResponseBytes   = 1 << 20
)

// Config captures the runtime settings required to reach the classification endpoint.
type Config struct {
	URL            string
	TimeoutSeconds int
}

// Client posts encoded frames to the remote classifier. It keeps no state
// between calls and never retries; the capture loop owns retry policy.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a classification client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			URL:            strings.TrimSpace(cfg.URL),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Detection is one classification outcome. Success=false is a well-formed
// "no detection" answer (Message explains why), not an error.
type Detection struct {
	Success    bool
	Label      string
	Confidence *float64
	Message    string
}

type predictRequest struct {
	Image string `json:"image"`
}

type predictResponse struct {
	Success    bool            `json:"success"`
	Label      string          `json:"label"`
	Confidence json.RawMessage `json:"confidence"`
	Message    string          `json:"message"`
}

// Classify submits one encoded frame (a JPEG data URI). Network failures,
// non-2xx statuses, and undecodable bodies are returned as errors marked
// services.ErrTransport.
func (c *Client) Classify(ctx context.Context, image string) (Detection, error) {
	var empty Detection
	if strings.TrimSpace(image) == "" {
		return empty, services.Wrap(services.ErrValidation, "classifier", "classify", "image payload required", nil)
	}
	encoded, err := json.Marshal(predictRequest{Image: image})
	if err != nil {
		return empty, fmt.Errorf("classify: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(encoded))
	if err != nil {
		return empty, services.Wrap(services.ErrConfiguration, "classifier", "classify", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		req.Header.Set("X-Request-ID", rid)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return empty, services.Wrap(services.ErrTransport, "classifier", "classify", fmt.Sprintf("http error (timeout=%s)", c.httpClient.Timeout), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return empty, services.Wrap(services.ErrTransport, "classifier", "classify", "read body", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return empty, services.Wrap(services.ErrTransport, "classifier", "classify", "", &services.HTTPStatusError{
			Op:         "classify",
			StatusCode: resp.StatusCode,
			Body:       string(body),
		})
	}

	var parsed predictResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return empty, services.Wrap(services.ErrTransport, "classifier", "classify", "decode response", err)
	}

	detection := Detection{
		Success: parsed.Success,
		Label:   strings.TrimSpace(parsed.Label),
		Message: strings.TrimSpace(parsed.Message),
	}
	if parsed.Success {
		detection.Confidence = decodeConfidence(parsed.Confidence)
	}
	return detection, nil
}

// decodeConfidence tolerates numbers, numeric strings, and null. Anything
// unparseable is treated as absent.
func decodeConfidence(raw json.RawMessage) *float64 {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	var value any
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return nil
	}
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return nil
	}
	f, err := cast.ToFloat64E(value)
	if err != nil {
		return nil
	}
	// NaN compares false against everything; pin it to 0 so the
	// low-confidence gate still rejects it.
	if math.IsNaN(f) || f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return &f
}
