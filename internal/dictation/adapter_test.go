package dictation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"signbridge/internal/services"
)

type fakeRecognizer struct {
	mu       sync.Mutex
	starts   int
	stops    int
	startErr error
	opts     Options
}

func (f *fakeRecognizer) Start(_ context.Context, opts Options) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	f.opts = opts
	return f.startErr
}

func (f *fakeRecognizer) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

// Events returns nil so tests drive HandleEvent directly.
func (f *fakeRecognizer) Events() <-chan Event { return nil }

type recordingReporter struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingReporter) Info(text string)  { r.add(text) }
func (r *recordingReporter) Error(text string) { r.add(text) }

func (r *recordingReporter) add(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, text)
}

func (r *recordingReporter) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return ""
	}
	return r.messages[len(r.messages)-1]
}

type submissions struct {
	mu    sync.Mutex
	texts []string
}

func (s *submissions) submit(_ context.Context, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
}

func newTestAdapter(t *testing.T) (*Adapter, *fakeRecognizer, *recordingReporter, *submissions) {
	t.Helper()
	rec := &fakeRecognizer{}
	rep := &recordingReporter{}
	subs := &submissions{}
	return NewAdapter(rec, subs.submit, rep, WithLanguage("en-GB")), rec, rep, subs
}

func TestToggleStartsAndStops(t *testing.T) {
	adapter, rec, rep, subs := newTestAdapter(t)
	ctx := context.Background()

	if err := adapter.Toggle(ctx); err != nil {
		t.Fatalf("Toggle start: %v", err)
	}
	if adapter.State() != Listening || rep.last() != "Listening..." {
		t.Fatalf("unexpected state %s / %q", adapter.State(), rep.last())
	}
	if !rec.opts.Continuous || !rec.opts.Interim || rec.opts.Language != "en-GB" {
		t.Fatalf("unexpected recognizer options %+v", rec.opts)
	}

	adapter.HandleEvent(ctx, Event{Kind: EventResult, Text: "hel"})
	if adapter.Buffer() != "hel" {
		t.Fatalf("unexpected buffer %q", adapter.Buffer())
	}

	if err := adapter.Toggle(ctx); err != nil {
		t.Fatalf("Toggle stop: %v", err)
	}
	if adapter.State() != Idle || rep.last() != "Stopped listening." || rec.stops != 1 {
		t.Fatalf("unexpected stop state %s / %q / %d", adapter.State(), rep.last(), rec.stops)
	}

	// End after a user stop must not submit.
	adapter.HandleEvent(ctx, Event{Kind: EventEnd})
	if len(subs.texts) != 0 {
		t.Fatalf("user stop submitted %v", subs.texts)
	}
}

func TestFinalResultSubmitsOnce(t *testing.T) {
	adapter, rec, _, subs := newTestAdapter(t)
	ctx := context.Background()
	_ = adapter.Start(ctx)

	adapter.HandleEvent(ctx, Event{Kind: EventResult, Text: "hello"})
	adapter.HandleEvent(ctx, Event{Kind: EventResult, Text: " hello world ", Final: true})
	adapter.HandleEvent(ctx, Event{Kind: EventEnd})

	if adapter.State() != Idle {
		t.Fatalf("expected idle after final result, got %s", adapter.State())
	}
	if rec.stops != 1 {
		t.Fatalf("expected recognizer stopped once, got %d", rec.stops)
	}
	if len(subs.texts) != 1 || subs.texts[0] != "hello world" {
		t.Fatalf("unexpected submissions %v", subs.texts)
	}
}

func TestUnexpectedEndAutoSubmitsBufferExactlyOnce(t *testing.T) {
	adapter, _, _, subs := newTestAdapter(t)
	ctx := context.Background()
	_ = adapter.Start(ctx)

	adapter.HandleEvent(ctx, Event{Kind: EventResult, Text: "good morning"})
	adapter.HandleEvent(ctx, Event{Kind: EventEnd})
	adapter.HandleEvent(ctx, Event{Kind: EventEnd})

	if len(subs.texts) != 1 || subs.texts[0] != "good morning" {
		t.Fatalf("expected a single auto-submit, got %v", subs.texts)
	}
	if adapter.State() != Idle {
		t.Fatalf("expected idle, got %s", adapter.State())
	}
}

func TestErrorKeepsStateAndBuffer(t *testing.T) {
	adapter, _, rep, _ := newTestAdapter(t)
	ctx := context.Background()
	_ = adapter.Start(ctx)
	adapter.HandleEvent(ctx, Event{Kind: EventResult, Text: "partial"})

	adapter.HandleEvent(ctx, Event{Kind: EventError, Err: errors.New("no-speech")})

	if rep.last() != "Speech recognition error." {
		t.Fatalf("unexpected status %q", rep.last())
	}
	if adapter.State() != Listening || adapter.Buffer() != "partial" {
		t.Fatalf("error changed state: %s / %q", adapter.State(), adapter.Buffer())
	}
}

func TestMissingRecognizerIsUnsupported(t *testing.T) {
	rep := &recordingReporter{}
	adapter := NewAdapter(nil, nil, rep)

	err := adapter.Toggle(context.Background())
	if !errors.Is(err, ErrUnsupported) || !errors.Is(err, services.ErrCapability) {
		t.Fatalf("expected unsupported capability error, got %v", err)
	}
	if adapter.State() != Idle || rep.last() != "Speech recognition not supported." {
		t.Fatalf("unexpected state %s / %q", adapter.State(), rep.last())
	}
}

func TestRecognizerStartFailureReturnsToIdle(t *testing.T) {
	adapter, rec, rep, _ := newTestAdapter(t)
	rec.startErr = errors.New("device busy")

	if err := adapter.Start(context.Background()); !errors.Is(err, services.ErrCapability) {
		t.Fatalf("expected capability error, got %v", err)
	}
	if adapter.State() != Idle || rep.last() != "Speech recognition error." {
		t.Fatalf("unexpected state %s / %q", adapter.State(), rep.last())
	}
}

func TestEventsFromPreviousSessionAreIgnored(t *testing.T) {
	adapter, _, _, subs := newTestAdapter(t)
	ctx := context.Background()
	_ = adapter.Start(ctx)
	adapter.mu.Lock()
	oldEpoch := adapter.epoch
	adapter.mu.Unlock()
	adapter.Stop()
	_ = adapter.Start(ctx)

	adapter.handle(ctx, Event{Kind: EventResult, Text: "stale", Final: true}, oldEpoch)
	adapter.handle(ctx, Event{Kind: EventEnd}, oldEpoch)

	if len(subs.texts) != 0 || adapter.State() != Listening {
		t.Fatalf("stale events leaked into new session: %v / %s", subs.texts, adapter.State())
	}
}
