package status

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"signbridge/internal/clock"
	"signbridge/internal/logging"
)

// DefaultTTL is how long a message stays visible when no TTL is configured.
const DefaultTTL = 4 * time.Second

// Kind classifies a status message for rendering.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Message is one user-visible status line. A zero Message (empty Text) means
// nothing is shown.
type Message struct {
	Seq   uint64    `json:"seq"`
	Kind  Kind      `json:"kind,omitempty"`
	Text  string    `json:"text"`
	SetAt time.Time `json:"set_at"`
}

// Visible reports whether the message has text to show.
func (m Message) Visible() bool {
	return m.Text != ""
}

// Sink receives status changes, including clears, in Seq order. A change
// overtaken by a newer one before delivery is skipped. Sinks must not call
// back into the Board.
type Sink func(Message)

// Board holds the single current status message. Each message expires after
// the TTL unless it is replaced or dismissed first; an older message's expiry
// never clears a newer one.
type Board struct {
	mu      sync.Mutex
	clock   clock.Clock
	ttl     time.Duration
	logger  *slog.Logger
	seq     uint64
	current Message
	timer   clock.Timer
	sinks   map[int]Sink
	nextID  int

	notifyMu  sync.Mutex
	delivered uint64
}

// Option customizes a Board.
type Option func(*Board)

// WithClock injects the time source used for expiry.
func WithClock(c clock.Clock) Option {
	return func(b *Board) {
		if c != nil {
			b.clock = c
		}
	}
}

// WithTTL sets the message lifetime. Zero or negative disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(b *Board) {
		b.ttl = ttl
	}
}

// WithLogger attaches a logger; status changes are logged at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Board) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBoard constructs an empty status board.
func NewBoard(opts ...Option) *Board {
	b := &Board{
		clock:  clock.Real(),
		ttl:    DefaultTTL,
		logger: logging.NewNop(),
		sinks:  make(map[int]Sink),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logging.NewComponentLogger(b.logger, "status")
	return b
}

// Subscribe registers a sink and returns a function that removes it.
func (b *Board) Subscribe(sink Sink) func() {
	if sink == nil {
		return func() {}
	}
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.sinks[id] = sink
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.sinks, id)
		b.mu.Unlock()
	}
}

// Set replaces the current message. Blank text behaves like Dismiss.
func (b *Board) Set(kind Kind, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		b.Dismiss()
		return
	}
	if kind == "" {
		kind = KindInfo
	}

	b.mu.Lock()
	b.seq++
	seq := b.seq
	b.current = Message{Seq: seq, Kind: kind, Text: text, SetAt: b.clock.Now()}
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if b.ttl > 0 {
		b.timer = b.clock.AfterFunc(b.ttl, func() { b.expire(seq) })
	}
	msg := b.current
	sinks := b.snapshotSinks()
	b.mu.Unlock()

	b.logger.Debug("status updated",
		logging.String("status_kind", string(kind)),
		logging.String("status_text", text),
	)
	b.deliver(sinks, msg)
}

// Info sets an informational message.
func (b *Board) Info(text string) { b.Set(KindInfo, text) }

// Success sets a success message.
func (b *Board) Success(text string) { b.Set(KindSuccess, text) }

// Error sets an error message.
func (b *Board) Error(text string) { b.Set(KindError, text) }

// Dismiss clears the current message immediately.
func (b *Board) Dismiss() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if !b.current.Visible() {
		b.mu.Unlock()
		return
	}
	b.seq++
	b.current = Message{Seq: b.seq, SetAt: b.clock.Now()}
	msg := b.current
	sinks := b.snapshotSinks()
	b.mu.Unlock()
	b.deliver(sinks, msg)
}

// Current returns the visible message, if any.
func (b *Board) Current() (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current, b.current.Visible()
}

func (b *Board) expire(seq uint64) {
	b.mu.Lock()
	if b.current.Seq != seq {
		b.mu.Unlock()
		return
	}
	b.timer = nil
	b.seq++
	b.current = Message{Seq: b.seq, SetAt: b.clock.Now()}
	msg := b.current
	sinks := b.snapshotSinks()
	b.mu.Unlock()
	b.deliver(sinks, msg)
}

func (b *Board) snapshotSinks() []Sink {
	out := make([]Sink, 0, len(b.sinks))
	for i := 0; i < b.nextID; i++ {
		if sink, ok := b.sinks[i]; ok {
			out = append(out, sink)
		}
	}
	return out
}

// deliver hands msg to sinks unless a newer message already went out.
func (b *Board) deliver(sinks []Sink, msg Message) {
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()
	if msg.Seq <= b.delivered {
		return
	}
	b.delivered = msg.Seq
	for _, sink := range sinks {
		sink(msg)
	}
}
