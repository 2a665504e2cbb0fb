package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrTransport     = errors.New("transport failure")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrCapability    = errors.New("capability unavailable")
	ErrAuth          = errors.New("authentication error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Category groups failures the way they are surfaced to the user.
type Category string

const (
	CategoryInput      Category = "input"
	CategoryAuth       Category = "auth"
	CategoryTransport  Category = "transport"
	CategoryNoResult   Category = "no_result"
	CategoryCapability Category = "capability"
	CategoryInternal   Category = "internal"
)

// HTTPStatusError reports a non-2xx response from a remote endpoint.
type HTTPStatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("%s: http %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s: http %d: %s", e.Op, e.StatusCode, body)
}

// Wrap builds an error message that includes component context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error onto the user-facing failure category.
func Classify(err error) Category {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return CategoryInput
	case errors.Is(err, ErrAuth):
		return CategoryAuth
	case errors.Is(err, ErrTransport), errors.Is(err, ErrTimeout):
		return CategoryTransport
	case errors.Is(err, ErrNotFound):
		return CategoryNoResult
	case errors.Is(err, ErrCapability):
		return CategoryCapability
	default:
		return CategoryInternal
	}
}

// StatusCode extracts the HTTP status from a wrapped HTTPStatusError.
func StatusCode(err error) (int, bool) {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode, true
	}
	return 0, false
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
