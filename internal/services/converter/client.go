package converter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"signbridge/internal/services"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	maxResponseBytes   = 4 << 20
)

// Config captures the runtime settings required to reach the conversion endpoint.
type Config struct {
	URL            string
	TimeoutSeconds int
}

// Client requests clip sequences for free text.
type Client struct {
	cfg        Config
	base       *url.URL
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

// NewClient constructs a conversion client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	trimmed := strings.TrimSpace(cfg.URL)
	client := &Client{
		cfg:        Config{URL: trimmed, TimeoutSeconds: cfg.TimeoutSeconds},
		httpClient: &http.Client{Timeout: timeout},
	}
	if parsed, err := url.Parse(trimmed); err == nil && parsed.Scheme != "" {
		client.base = parsed
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Clip is one entry of a conversion result.
type Clip struct {
	Word string `json:"word,omitempty"`
	Path string `json:"path"`
}

// ClipSequence is the ordered, immutable result of one conversion.
type ClipSequence []Clip

// Paths returns the clip URIs in order.
func (s ClipSequence) Paths() []string {
	paths := make([]string, 0, len(s))
	for _, clip := range s {
		paths = append(paths, clip.Path)
	}
	return paths
}

type convertRequest struct {
	Text string `json:"text"`
}

type convertResponse struct {
	Results []Clip `json:"results"`
}

// Convert requests the clip sequence for text. Blank text returns an empty
// sequence without issuing a request. An empty or absent results array is a
// valid "no matching clips" answer.
func (c *Client) Convert(ctx context.Context, text string) (ClipSequence, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	encoded, err := json.Marshal(convertRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("convert: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(encoded))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "converter", "convert", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		req.Header.Set("X-Request-ID", rid)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "converter", "convert", fmt.Sprintf("http error (timeout=%s)", c.httpClient.Timeout), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "converter", "convert", "read body", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, services.Wrap(services.ErrTransport, "converter", "convert", "", &services.HTTPStatusError{
			Op:         "convert",
			StatusCode: resp.StatusCode,
			Body:       string(body),
		})
	}

	var parsed convertResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, services.Wrap(services.ErrTransport, "converter", "convert", "decode response", err)
	}

	seq := make(ClipSequence, 0, len(parsed.Results))
	for _, clip := range parsed.Results {
		path := strings.TrimSpace(clip.Path)
		if path == "" {
			continue
		}
		seq = append(seq, Clip{Word: strings.TrimSpace(clip.Word), Path: c.Resolve(path)})
	}
	return seq, nil
}

// Resolve turns a server-relative clip path into an absolute URI using the
// endpoint's origin. Absolute URIs and unparsable inputs are returned as-is.
func (c *Client) Resolve(path string) string {
	if c.base == nil {
		return path
	}
	ref, err := url.Parse(path)
	if err != nil || ref.IsAbs() {
		return path
	}
	return c.base.ResolveReference(ref).String()
}
