package dictation

import (
	"context"
	"fmt"

	"signbridge/internal/services"
)

// ErrUnsupported reports that no speech recognition facility is available.
var ErrUnsupported = fmt.Errorf("%w: speech recognition not supported", services.ErrCapability)

// EventKind distinguishes recognizer callbacks.
type EventKind int

const (
	// EventResult carries the current hypothesis text.
	EventResult EventKind = iota
	// EventError reports a recognizer failure.
	EventError
	// EventEnd fires when the recognizer session ends for any reason.
	EventEnd
)

func (k EventKind) String() string {
	switch k {
	case EventResult:
		return "result"
	case EventError:
		return "error"
	case EventEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Event is one callback from the recognition facility. For results, Text is
// the concatenation of the session's pending segments.
type Event struct {
	Kind  EventKind
	Text  string
	Final bool
	Err   error
}

// Options configures a recognition session.
type Options struct {
	Language   string
	Continuous bool
	Interim    bool
}

// Recognizer is a continuous speech recognition facility. Events returns the
// channel for the most recent Start; it is closed after the EventEnd.
type Recognizer interface {
	Start(ctx context.Context, opts Options) error
	Stop() error
	Events() <-chan Event
}
