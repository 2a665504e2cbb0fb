package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"signbridge/internal/logging"
	"signbridge/internal/services"
)

const (
	// DefaultBaseURL is the Identity Toolkit REST endpoint.
	DefaultBaseURL     = "https://identitytoolkit.googleapis.com/v1"
	defaultHTTPTimeout = 15 * time.Second
	maxResponseBytes   = 1 << 20
)

// Config captures the runtime settings required to reach the identity provider.
type Config struct {
	APIKey         string
	BaseURL        string
	TimeoutSeconds int
}

// ProviderError is an error code reported by the identity provider, such
// as EMAIL_EXISTS or INVALID_PASSWORD.
type ProviderError struct {
	Op         string
	StatusCode int
	Code       string
	Detail     string
}

func (e *ProviderError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Op, e.Code, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Code)
}

// Code extracts the provider error code from err, or "".
func Code(err error) string {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Code
	}
	return ""
}

// User is the signed-in account.
type User struct {
	UID          string
	Email        string
	DisplayName  string
	IDToken      string
	RefreshToken string
	ExpiresAt    time.Time
}

// Client talks to the identity provider and tracks the signed-in user for
// this process.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger

	mu        sync.Mutex
	current   *User
	listeners map[int]func(*User)
	nextID    int
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

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient constructs an identity client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        base,
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewNop(),
		listeners:  make(map[int]func(*User)),
	}
	for _, opt := range opts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, "identity")
	return client
}

type credentialRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	DisplayName       string `json:"displayName,omitempty"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type credentialResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SignUp creates an account. The new account is not signed in.
func (c *Client) SignUp(ctx context.Context, displayName, email, password string) (*User, error) {
	return c.credentials(ctx, "accounts:signUp", credentialRequest{
		Email:             email,
		Password:          password,
		DisplayName:       displayName,
		ReturnSecureToken: true,
	}, false)
}

// SignIn authenticates with email and password and becomes the current user.
func (c *Client) SignIn(ctx context.Context, email, password string) (*User, error) {
	return c.credentials(ctx, "accounts:signInWithPassword", credentialRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}, true)
}

// SignOut forgets the current user.
func (c *Client) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.setCurrent(nil)
	return nil
}

// CurrentUser returns the signed-in user, or nil.
func (c *Client) CurrentUser() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// OnAuthStateChanged registers fn for sign-in and sign-out notifications
// (nil means signed out) and returns a function that removes it.
func (c *Client) OnAuthStateChanged(fn func(*User)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Client) setCurrent(user *User) {
	c.mu.Lock()
	c.current = user
	listeners := make([]func(*User), 0, len(c.listeners))
	for i := 0; i < c.nextID; i++ {
		if fn, ok := c.listeners[i]; ok {
			listeners = append(listeners, fn)
		}
	}
	c.mu.Unlock()

	if user != nil {
		c.logger.Info("signed in", logging.String("email", user.Email))
	} else {
		c.logger.Info("signed out")
	}
	for _, fn := range listeners {
		fn(user)
	}
}

func (c *Client) credentials(ctx context.Context, method string, body credentialRequest, signIn bool) (*User, error) {
	if c.cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "identity", method, "api key not configured", nil)
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: encode body: %w", method, err)
	}
	endpoint := fmt.Sprintf("%s/%s?key=%s", c.cfg.BaseURL, method, url.QueryEscape(c.cfg.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "identity", method, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "identity", method, "http error", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "identity", method, "read body", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, c.providerError(method, resp.StatusCode, raw)
	}

	var parsed credentialResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, services.Wrap(services.ErrTransport, "identity", method, "decode response", err)
	}
	user := c.userFrom(parsed)
	if signIn {
		c.setCurrent(user)
	}
	return user, nil
}

func (c *Client) providerError(method string, status int, raw []byte) error {
	var envelope errorEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Error.Message == "" {
		return services.Wrap(services.ErrTransport, "identity", method, "", &services.HTTPStatusError{
			Op:         method,
			StatusCode: status,
			Body:       string(raw),
		})
	}
	code, detail, _ := strings.Cut(envelope.Error.Message, ":")
	perr := &ProviderError{
		Op:         method,
		StatusCode: status,
		Code:       strings.TrimSpace(code),
		Detail:     strings.TrimSpace(detail),
	}
	if status >= http.StatusInternalServerError {
		return services.Wrap(services.ErrTransport, "identity", method, "", perr)
	}
	return services.Wrap(services.ErrAuth, "identity", method, "", perr)
}

func (c *Client) userFrom(parsed credentialResponse) *User {
	user := &User{
		UID:          parsed.LocalID,
		Email:        parsed.Email,
		DisplayName:  parsed.DisplayName,
		IDToken:      parsed.IDToken,
		RefreshToken: parsed.RefreshToken,
	}
	if claims, err := ParseIDToken(parsed.IDToken); err == nil {
		if user.UID == "" {
			user.UID = claims.UID()
		}
		if user.Email == "" {
			user.Email = claims.Email
		}
		if claims.ExpiresAt != nil {
			user.ExpiresAt = claims.ExpiresAt.Time
		}
	}
	return user
}
