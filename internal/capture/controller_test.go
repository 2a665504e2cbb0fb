package capture

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"signbridge/internal/clock"
	"signbridge/internal/services"
	"signbridge/internal/services/classifier"
	"signbridge/internal/transcript"
)

type fakeMedia struct {
	ready  atomic.Bool
	closed atomic.Bool
	ended  chan struct{}
}

func newFakeMedia() *fakeMedia {
	m := &fakeMedia{ended: make(chan struct{})}
	m.ready.Store(true)
	return m
}

func (m *fakeMedia) Ready() bool { return m.ready.Load() }

func (m *fakeMedia) Snapshot() (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil
}

func (m *fakeMedia) Ended() <-chan struct{} { return m.ended }

func (m *fakeMedia) Close() error {
	m.closed.Store(true)
	return nil
}

type fakeCamera struct {
	opens atomic.Int32
	media *fakeMedia
	err   error
}

func (c *fakeCamera) Open(context.Context, Resolution) (Media, error) {
	c.opens.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.media, nil
}

type fakeClassifier struct {
	calls atomic.Int32
	fn    func(ctx context.Context) (classifier.Detection, error)
}

func (f *fakeClassifier) Classify(ctx context.Context, image string) (classifier.Detection, error) {
	f.calls.Add(1)
	if image == "" {
		return classifier.Detection{}, errors.New("empty payload")
	}
	return f.fn(ctx)
}

type recordingReporter struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingReporter) Info(text string)    { r.add(text) }
func (r *recordingReporter) Success(text string) { r.add(text) }
func (r *recordingReporter) Error(text string)   { r.add(text) }

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

type fakeLock struct {
	busy     bool
	locked   atomic.Bool
	unlocked atomic.Int32
}

func (l *fakeLock) TryLock() (bool, error) {
	if l.busy {
		return false, nil
	}
	l.locked.Store(true)
	return true, nil
}

func (l *fakeLock) Unlock() error {
	l.locked.Store(false)
	l.unlocked.Add(1)
	return nil
}

type harness struct {
	ctrl     *Controller
	clock    *clock.Fake
	camera   *fakeCamera
	client   *fakeClassifier
	reporter *recordingReporter
	lock     *fakeLock
}

func newHarness(t *testing.T, fn func(ctx context.Context) (classifier.Detection, error)) *harness {
	t.Helper()
	h := &harness{
		clock:    clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		camera:   &fakeCamera{media: newFakeMedia()},
		client:   &fakeClassifier{fn: fn},
		reporter: &recordingReporter{},
		lock:     &fakeLock{},
	}
	h.ctrl = NewController(Config{
		Device:         "/dev/video0",
		Resolution:     Resolution{Width: 640, Height: 480},
		SteadyInterval: DefaultSteadyInterval,
		RetryInterval:  DefaultRetryInterval,
	}, h.camera, h.client, transcript.New(transcript.DefaultThreshold), h.reporter,
		WithClock(h.clock),
		WithLock(h.lock),
	)
	t.Cleanup(func() {
		h.ctrl.Stop()
		h.ctrl.Wait()
	})
	return h
}

func detect(label string, confidence float64) func(context.Context) (classifier.Detection, error) {
	return func(context.Context) (classifier.Detection, error) {
		return classifier.Detection{Success: true, Label: label, Confidence: &confidence}, nil
	}
}

func TestStartRunsFirstCycleAndSchedulesSteadyDelay(t *testing.T) {
	h := newHarness(t, detect("hello", 0.9))
	if err := h.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.clock.BlockUntil(1)

	if got := h.client.calls.Load(); got != 1 {
		t.Fatalf("expected 1 call, got %d", got)
	}
	if got := h.ctrl.Transcript().Text(); got != "hello" {
		t.Fatalf("unexpected transcript %q", got)
	}
	if got := h.reporter.last(); got != "Detected: hello (0.9)" {
		t.Fatalf("unexpected status %q", got)
	}
	if got := h.ctrl.Session().LastLabel(); got != "hello" {
		t.Fatalf("unexpected session label %q", got)
	}

	h.clock.Advance(449 * time.Millisecond)
	if got := h.client.calls.Load(); got != 1 {
		t.Fatalf("cycle ran before steady delay, calls=%d", got)
	}
	h.clock.Advance(time.Millisecond)
	h.clock.BlockUntil(1)
	if got := h.client.calls.Load(); got != 2 {
		t.Fatalf("expected second call after steady delay, got %d", got)
	}
	if got := h.reporter.last(); got != "Detected (repeat or blank): hello" {
		t.Fatalf("unexpected status %q", got)
	}
}

func TestServerErrorRetriesAfterFailureDelay(t *testing.T) {
	h := newHarness(t, func(context.Context) (classifier.Detection, error) {
		return classifier.Detection{}, services.Wrap(services.ErrTransport, "classifier", "classify", "",
			&services.HTTPStatusError{Op: "classify", StatusCode: 500})
	})
	if err := h.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.clock.BlockUntil(1)

	if got := h.reporter.last(); got != "Server error: 500" {
		t.Fatalf("unexpected status %q", got)
	}
	h.clock.Advance(450 * time.Millisecond)
	if got := h.client.calls.Load(); got != 1 {
		t.Fatalf("retry ran at steady delay, calls=%d", got)
	}
	h.clock.Advance(50 * time.Millisecond)
	h.clock.BlockUntil(1)
	if got := h.client.calls.Load(); got != 2 {
		t.Fatalf("expected retry after failure delay, got %d", got)
	}
	if !h.ctrl.Active() {
		t.Fatal("transport errors must not end the session")
	}
}

func TestNetworkErrorStatus(t *testing.T) {
	h := newHarness(t, func(context.Context) (classifier.Detection, error) {
		return classifier.Detection{}, services.Wrap(services.ErrTransport, "classifier", "classify", "", errors.New("connection refused"))
	})
	if err := h.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.clock.BlockUntil(1)
	if got := h.reporter.last(); got != "Network/Prediction error." {
		t.Fatalf("unexpected status %q", got)
	}
}

func TestNoDetectionStatus(t *testing.T) {
	h := newHarness(t, func(context.Context) (classifier.Detection, error) {
		return classifier.Detection{Success: false}, nil
	})
	if err := h.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.clock.BlockUntil(1)
	if got := h.reporter.last(); got != "No detection: unknown" {
		t.Fatalf("unexpected status %q", got)
	}
	if h.ctrl.Transcript().Len() != 0 {
		t.Fatal("no-detection must not touch the transcript")
	}
}

func TestStartWhileActiveIsNoop(t *testing.T) {
	h := newHarness(t, detect("a", 0.9))
	if err := h.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	first := h.ctrl.Session()
	if err := h.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if h.camera.opens.Load() != 1 {
		t.Fatalf("expected camera opened once, got %d", h.camera.opens.Load())
	}
	if h.ctrl.Session() != first {
		t.Fatal("second Start replaced the session")
	}
}

func TestCameraFailureIsCapabilityError(t *testing.T) {
	h := newHarness(t, detect("a", 0.9))
	h.camera.err = errors.New("permission denied")

	err := h.ctrl.Start(context.Background())
	if !errors.Is(err, services.ErrCapability) {
		t.Fatalf("expected capability error, got %v", err)
	}
	if h.ctrl.Session() != nil {
		t.Fatal("failed start must not create a session")
	}
	if got := h.reporter.last(); got != "Camera access denied or unavailable." {
		t.Fatalf("unexpected status %q", got)
	}
	if h.lock.locked.Load() {
		t.Fatal("device lock leaked after failed start")
	}
}

func TestBusyDeviceLockPreventsStart(t *testing.T) {
	h := newHarness(t, detect("a", 0.9))
	h.lock.busy = true

	if err := h.ctrl.Start(context.Background()); !errors.Is(err, services.ErrCapability) {
		t.Fatalf("expected capability error, got %v", err)
	}
	if h.camera.opens.Load() != 0 {
		t.Fatal("camera opened despite busy lock")
	}
}

func TestStaleResponseAfterStopIsDiscarded(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	h := newHarness(t, func(context.Context) (classifier.Detection, error) {
		close(entered)
		<-release
		c := 0.99
		return classifier.Detection{Success: true, Label: "late", Confidence: &c}, nil
	})
	if err := h.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-entered
	h.ctrl.Stop()
	if !h.camera.media.closed.Load() {
		t.Fatal("Stop must release media immediately")
	}
	close(release)
	h.ctrl.Wait()

	if h.ctrl.Transcript().Len() != 0 {
		t.Fatalf("stale response mutated transcript: %q", h.ctrl.Transcript().Text())
	}
	if got := h.reporter.last(); got != "Stopped." {
		t.Fatalf("stale response overwrote status: %q", got)
	}
	if h.clock.Pending() != 0 {
		t.Fatalf("stopped session scheduled another cycle")
	}
}

func TestMediaNotReadySkipsClassification(t *testing.T) {
	h := newHarness(t, detect("a", 0.9))
	h.camera.media.ready.Store(false)
	if err := h.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.clock.BlockUntil(1)
	h.clock.Advance(DefaultSteadyInterval)
	h.clock.BlockUntil(1)
	if got := h.client.calls.Load(); got != 0 {
		t.Fatalf("classified a frame from an unready stream, calls=%d", got)
	}
}

func TestMediaEndedStopsSession(t *testing.T) {
	h := newHarness(t, detect("a", 0.9))
	if err := h.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.clock.BlockUntil(1)
	close(h.camera.media.ended)
	h.ctrl.Wait()

	if h.ctrl.Active() {
		t.Fatal("expected session to end with the media")
	}
	if got := h.reporter.last(); got != "Camera disconnected." {
		t.Fatalf("unexpected status %q", got)
	}
	if !h.camera.media.closed.Load() || h.lock.locked.Load() {
		t.Fatal("expected media and lock released")
	}
}

func TestClearAndRestartResetTranscript(t *testing.T) {
	h := newHarness(t, detect("hello", 0.9))
	if err := h.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.clock.BlockUntil(1)
	h.ctrl.Clear()
	if h.ctrl.Transcript().Len() != 0 || h.reporter.last() != "Cleared." {
		t.Fatalf("unexpected state after clear: %q / %q", h.ctrl.Transcript().Text(), h.reporter.last())
	}

	h.ctrl.Stop()
	h.ctrl.Wait()
	h.ctrl.Transcript().Accept("leftover", nil)
	h.camera.media = newFakeMedia()
	h.camera.media.ready.Store(false)
	if err := h.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if h.ctrl.Transcript().Len() != 0 {
		t.Fatal("restart must clear the transcript")
	}
	if got := h.lock.unlocked.Load(); got != 1 {
		t.Fatalf("expected one unlock from the first session, got %d", got)
	}
}
