package dictation

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"signbridge/internal/logging"
	"signbridge/internal/services"
)

const (
	msgUnsupported = "Speech recognition not supported."
	msgListening   = "Listening..."
	msgStopped     = "Stopped listening."
	msgError       = "Speech recognition error."
)

// DefaultLanguage is the recognition language when none is configured.
const DefaultLanguage = "en-US"

// State is the adapter's listening state.
type State int

const (
	Idle State = iota
	Listening
)

func (s State) String() string {
	if s == Listening {
		return "listening"
	}
	return "idle"
}

// Reporter receives user-facing status text.
type Reporter interface {
	Info(text string)
	Error(text string)
}

// SubmitFunc receives finalized dictation text.
type SubmitFunc func(ctx context.Context, text string)

// Adapter turns a continuous recognizer into a start/stop toggle that
// produces finalized text. It is the only owner of its recognizer.
type Adapter struct {
	recognizer Recognizer
	submit     SubmitFunc
	reporter   Reporter
	language   string
	logger     *slog.Logger
	onBuffer   func(text string)

	mu     sync.Mutex
	state  State
	buffer string
	epoch  uint64
}

// Option customizes an Adapter.
type Option func(*Adapter)

// WithLanguage sets the recognition language tag.
func WithLanguage(tag string) Option {
	return func(a *Adapter) {
		if tag = strings.TrimSpace(tag); tag != "" {
			a.language = tag
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithBufferSink is called whenever the live text buffer changes.
func WithBufferSink(fn func(text string)) Option {
	return func(a *Adapter) {
		a.onBuffer = fn
	}
}

// NewAdapter builds an adapter. A nil recognizer is allowed and makes every
// start attempt report ErrUnsupported.
func NewAdapter(recognizer Recognizer, submit SubmitFunc, reporter Reporter, opts ...Option) *Adapter {
	a := &Adapter{
		recognizer: recognizer,
		submit:     submit,
		reporter:   reporter,
		language:   DefaultLanguage,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.NewComponentLogger(a.logger, "dictation")
	return a
}

// State reports Idle or Listening.
func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Buffer returns the live text buffer.
func (a *Adapter) Buffer() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buffer
}

// Toggle starts listening when idle and stops when listening.
func (a *Adapter) Toggle(ctx context.Context) error {
	if a.State() == Listening {
		a.Stop()
		return nil
	}
	return a.Start(ctx)
}

// Start begins a recognition session. Starting while listening does nothing.
func (a *Adapter) Start(ctx context.Context) error {
	if a.recognizer == nil {
		a.fail(msgUnsupported)
		return ErrUnsupported
	}

	a.mu.Lock()
	if a.state == Listening {
		a.mu.Unlock()
		return nil
	}
	a.state = Listening
	a.buffer = ""
	a.epoch++
	epoch := a.epoch
	a.mu.Unlock()

	err := a.recognizer.Start(ctx, Options{Language: a.language, Continuous: true, Interim: true})
	if err != nil {
		a.mu.Lock()
		if a.epoch == epoch {
			a.state = Idle
		}
		a.mu.Unlock()
		logging.WarnWithContext(a.logger, "speech recognizer failed to start", "dictation_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the dictation command configuration"),
			logging.String(logging.FieldImpact, "dictation unavailable"),
		)
		a.fail(msgError)
		return services.Wrap(services.ErrCapability, "dictation", "start", "recognizer start", err)
	}

	a.info(msgListening)
	a.publishBuffer("")
	go a.pump(ctx, a.recognizer.Events(), epoch)
	return nil
}

// Stop ends listening on user request. The recognizer's own end event that
// follows does not trigger a submit.
func (a *Adapter) Stop() {
	a.mu.Lock()
	if a.state != Listening {
		a.mu.Unlock()
		return
	}
	a.state = Idle
	a.mu.Unlock()

	a.stopRecognizer()
	a.info(msgStopped)
}

// HandleEvent applies one recognizer callback to the current session.
func (a *Adapter) HandleEvent(ctx context.Context, ev Event) {
	a.mu.Lock()
	epoch := a.epoch
	a.mu.Unlock()
	a.handle(ctx, ev, epoch)
}

// handle applies ev if it belongs to session epoch; events from an earlier
// session are dropped.
func (a *Adapter) handle(ctx context.Context, ev Event, epoch uint64) {
	switch ev.Kind {
	case EventResult:
		a.handleResult(ctx, ev, epoch)
	case EventError:
		logging.WarnWithContext(a.logger, "speech recognition error", "dictation_error",
			logging.Error(ev.Err),
			logging.String(logging.FieldErrorHint, "check the recognizer output"),
			logging.String(logging.FieldImpact, "dictated text may be incomplete"),
		)
		a.fail(msgError)
	case EventEnd:
		a.handleEnd(ctx, epoch)
	}
}

func (a *Adapter) handleResult(ctx context.Context, ev Event, epoch uint64) {
	a.mu.Lock()
	if a.state != Listening || a.epoch != epoch {
		a.mu.Unlock()
		return
	}
	a.buffer = ev.Text
	if !ev.Final {
		a.mu.Unlock()
		a.publishBuffer(ev.Text)
		return
	}
	a.state = Idle
	text := strings.TrimSpace(a.buffer)
	a.mu.Unlock()

	a.publishBuffer(ev.Text)
	a.stopRecognizer()
	a.deliver(ctx, text)
}

// handleEnd submits whatever is buffered when the facility ends on its own
// while the adapter still believes it is listening.
func (a *Adapter) handleEnd(ctx context.Context, epoch uint64) {
	a.mu.Lock()
	if a.state != Listening || a.epoch != epoch {
		a.mu.Unlock()
		return
	}
	a.state = Idle
	text := strings.TrimSpace(a.buffer)
	a.mu.Unlock()

	a.logger.Info("recognizer ended while listening; submitting buffered text",
		logging.String(logging.FieldEventType, "dictation_auto_submit"),
		logging.Int("chars", len(text)),
	)
	a.deliver(ctx, text)
}

func (a *Adapter) pump(ctx context.Context, events <-chan Event, epoch uint64) {
	if events == nil {
		return
	}
	for ev := range events {
		a.handle(ctx, ev, epoch)
	}
}

func (a *Adapter) deliver(ctx context.Context, text string) {
	if text == "" || a.submit == nil {
		return
	}
	a.submit(ctx, text)
}

func (a *Adapter) stopRecognizer() {
	if err := a.recognizer.Stop(); err != nil {
		a.logger.Debug("recognizer stop failed", logging.Error(err))
	}
}

func (a *Adapter) publishBuffer(text string) {
	if a.onBuffer != nil {
		a.onBuffer(text)
	}
}

func (a *Adapter) info(text string) {
	if a.reporter != nil {
		a.reporter.Info(text)
	}
}

func (a *Adapter) fail(text string) {
	if a.reporter != nil {
		a.reporter.Error(text)
	}
}
