package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"signbridge/internal/clock"
	"signbridge/internal/logging"
	"signbridge/internal/services"
	"signbridge/internal/services/classifier"
	"signbridge/internal/transcript"
)

const (
	// DefaultSteadyInterval spaces cycles after a completed classification.
	DefaultSteadyInterval = 450 * time.Millisecond
	// DefaultRetryInterval spaces cycles after a transport failure.
	DefaultRetryInterval = 500 * time.Millisecond
)

const (
	msgStarted      = "Camera started."
	msgUnavailable  = "Camera access denied or unavailable."
	msgStopped      = "Stopped."
	msgCleared      = "Cleared."
	msgDisconnected = "Camera disconnected."
	msgNetwork      = "Network/Prediction error."
)

// Classifier is the remote detection call made once per cycle.
type Classifier interface {
	Classify(ctx context.Context, image string) (classifier.Detection, error)
}

// Reporter receives user-facing status text.
type Reporter interface {
	Info(text string)
	Success(text string)
	Error(text string)
}

// Config holds the loop timing and frame settings.
type Config struct {
	Device          string
	Resolution      Resolution
	JPEGQuality     int
	SteadyInterval  time.Duration
	RetryInterval   time.Duration
	PreviewInterval time.Duration
}

// Controller owns the camera, the sampling loop, and the transcript for the
// sign-to-text pipeline. At most one Session is live at a time.
type Controller struct {
	cfg        Config
	camera     Camera
	classifier Classifier
	transcript *transcript.Accumulator
	reporter   Reporter
	lock       Locker
	clock      clock.Clock
	logger     *slog.Logger

	onTranscript func(words []string)
	onPreview    func(dataURI string)

	lifecycle sync.Mutex
	mu        sync.Mutex
	session   *Session
	loops     sync.WaitGroup
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock injects the scheduling time source.
func WithClock(c clock.Clock) Option {
	return func(ctrl *Controller) {
		if c != nil {
			ctrl.clock = c
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(ctrl *Controller) {
		if logger != nil {
			ctrl.logger = logger
		}
	}
}

// WithLock guards the device with an inter-process lock.
func WithLock(lock Locker) Option {
	return func(ctrl *Controller) {
		ctrl.lock = lock
	}
}

// WithTranscriptSink is called with the full word list after every change.
func WithTranscriptSink(fn func(words []string)) Option {
	return func(ctrl *Controller) {
		ctrl.onTranscript = fn
	}
}

// WithPreview receives throttled preview frames while a session is live.
func WithPreview(fn func(dataURI string)) Option {
	return func(ctrl *Controller) {
		ctrl.onPreview = fn
	}
}

// NewController wires a capture controller.
func NewController(cfg Config, camera Camera, client Classifier, acc *transcript.Accumulator, reporter Reporter, opts ...Option) *Controller {
	if cfg.SteadyInterval <= 0 {
		cfg.SteadyInterval = DefaultSteadyInterval
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = DefaultJPEGQuality
	}
	if acc == nil {
		acc = transcript.New(transcript.DefaultThreshold)
	}
	ctrl := &Controller{
		cfg:        cfg,
		camera:     camera,
		classifier: client,
		transcript: acc,
		reporter:   reporter,
		clock:      clock.Real(),
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(ctrl)
	}
	ctrl.logger = logging.NewComponentLogger(ctrl.logger, "capture")
	return ctrl
}

// Transcript exposes the accumulator for read-only rendering.
func (c *Controller) Transcript() *transcript.Accumulator {
	return c.transcript
}

// Session returns the live session, or nil.
func (c *Controller) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Active reports whether a session is live.
func (c *Controller) Active() bool {
	return c.Session().Active()
}

// Start acquires the camera and begins sampling. Calling Start while a
// session is live does nothing. Camera failures are capability errors: the
// status is updated and no session is created.
func (c *Controller) Start(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.Active() {
		return nil
	}

	if c.lock != nil {
		ok, err := c.lock.TryLock()
		if err != nil || !ok {
			if err == nil {
				err = fmt.Errorf("device %s is in use by another process", c.cfg.Device)
			}
			return c.startFailed(err)
		}
	}

	media, err := c.camera.Open(ctx, c.cfg.Resolution)
	if err != nil {
		c.releaseLock()
		return c.startFailed(err)
	}

	session := newSession(uuid.NewString(), c.cfg.Device, media, c.clock.Now())
	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	c.transcript.Clear()
	c.publishTranscript()
	c.info(msgStarted)

	sessionCtx := services.WithPipeline(services.WithSessionID(ctx, session.ID), "sign2text")
	logging.WithContext(sessionCtx, c.logger).Info("capture session started",
		logging.String(logging.FieldEventType, "capture_started"),
		logging.String("device", c.cfg.Device),
		logging.String("resolution", c.cfg.Resolution.String()),
	)

	c.loops.Add(2)
	go c.run(sessionCtx, session)
	go c.watchMedia(session)
	if c.onPreview != nil && c.cfg.PreviewInterval > 0 {
		c.loops.Add(1)
		go c.pumpPreview(session)
	}
	return nil
}

// Wait blocks until the goroutines of every stopped session have returned,
// including any classification call that was in flight at Stop.
func (c *Controller) Wait() {
	c.loops.Wait()
}

// Stop releases the camera immediately and halts scheduling. An in-flight
// classification still completes but its result is discarded.
func (c *Controller) Stop() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if session := c.detach(nil); session != nil {
		c.teardown(session)
		c.logger.Info("capture session stopped",
			logging.String(logging.FieldEventType, "capture_stopped"),
			logging.String(logging.FieldSessionID, session.ID),
		)
	}
	c.info(msgStopped)
}

// Clear empties the transcript without touching the camera.
func (c *Controller) Clear() {
	c.transcript.Clear()
	c.publishTranscript()
	c.info(msgCleared)
}

// MediaEnded handles an end-of-track event for the live session, such as a
// hotplug removal. It is a no-op when nothing is live.
func (c *Controller) MediaEnded() {
	c.endSession(nil)
}

func (c *Controller) endSession(expected *Session) {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	session := c.detach(expected)
	if session == nil {
		return
	}
	c.teardown(session)
	logging.WarnWithContext(c.logger, "camera stream ended", "capture_media_ended",
		logging.String(logging.FieldSessionID, session.ID),
		logging.String("device", session.Device),
		logging.String(logging.FieldErrorHint, "check the camera connection and restart capture"),
		logging.String(logging.FieldImpact, "sign-to-text capture stopped"),
	)
	c.fail(msgDisconnected)
}

// detach removes the live session when it matches expected (or any session
// when expected is nil) and marks it inactive.
func (c *Controller) detach(expected *Session) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	session := c.session
	if session == nil || (expected != nil && session != expected) {
		return nil
	}
	c.session = nil
	session.deactivate()
	return session
}

func (c *Controller) teardown(session *Session) {
	if err := session.media.Close(); err != nil {
		c.logger.Debug("media close failed", logging.Error(err))
	}
	c.releaseLock()
}

func (c *Controller) releaseLock() {
	if c.lock == nil {
		return
	}
	if err := c.lock.Unlock(); err != nil {
		c.logger.Debug("device unlock failed", logging.Error(err))
	}
}

func (c *Controller) startFailed(err error) error {
	logging.WarnWithContext(c.logger, "camera unavailable", "capture_start_failed",
		logging.Error(err),
		logging.String("device", c.cfg.Device),
		logging.String(logging.FieldErrorHint, "check camera permissions and that no other process holds it"),
		logging.String(logging.FieldImpact, "sign-to-text capture not started"),
	)
	c.fail(msgUnavailable)
	return services.Wrap(services.ErrCapability, "capture", "start", "camera unavailable", err)
}

func (c *Controller) run(ctx context.Context, session *Session) {
	defer c.loops.Done()
	delay, again := c.cycle(ctx, session)
	for again {
		select {
		case <-session.done:
			return
		case <-ctx.Done():
			c.endSessionQuietly(session)
			return
		case <-c.clock.After(delay):
		}
		delay, again = c.cycle(ctx, session)
	}
}

// cycle runs one sample-classify-apply step and reports when the next one
// should run. It returns false once the session is no longer live.
func (c *Controller) cycle(ctx context.Context, session *Session) (time.Duration, bool) {
	if !session.Active() {
		return 0, false
	}
	if !session.media.Ready() {
		return c.cfg.SteadyInterval, true
	}

	img, err := session.media.Snapshot()
	if err != nil {
		c.logger.Debug("frame unavailable", logging.Error(err))
		return c.cfg.SteadyInterval, true
	}
	payload, err := EncodeDataURI(img, c.cfg.JPEGQuality)
	if err != nil {
		c.logger.Debug("frame encode failed", logging.Error(err))
		return c.cfg.SteadyInterval, true
	}

	detection, err := c.classifier.Classify(ctx, payload)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != session || !session.Active() {
		c.logger.Debug("discarding response for stopped session",
			logging.String(logging.FieldSessionID, session.ID),
		)
		return 0, false
	}

	if err != nil {
		message := msgNetwork
		if code, ok := services.StatusCode(err); ok {
			message = fmt.Sprintf("Server error: %d", code)
		}
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "classification failed", "classify_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the classification endpoint is reachable"),
			logging.String(logging.FieldImpact, "retrying after a short delay"),
		)
		c.fail(message)
		return c.cfg.RetryInterval, true
	}

	if !detection.Success {
		reason := detection.Message
		if reason == "" {
			reason = "unknown"
		}
		c.info("No detection: " + reason)
		return c.cfg.SteadyInterval, true
	}

	decision := c.transcript.Accept(detection.Label, detection.Confidence)
	if decision.Outcome == transcript.Accepted {
		session.setLastLabel(decision.Label)
		c.publishTranscript()
		c.success(decision.Status)
	} else {
		c.info(decision.Status)
	}
	return c.cfg.SteadyInterval, true
}

func (c *Controller) endSessionQuietly(session *Session) {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	if detached := c.detach(session); detached != nil {
		c.teardown(detached)
	}
}

func (c *Controller) watchMedia(session *Session) {
	defer c.loops.Done()
	select {
	case <-session.done:
	case <-session.media.Ended():
		c.endSession(session)
	}
}

func (c *Controller) pumpPreview(session *Session) {
	defer c.loops.Done()
	for {
		select {
		case <-session.done:
			return
		case <-c.clock.After(c.cfg.PreviewInterval):
		}
		if !session.Active() || !session.media.Ready() {
			continue
		}
		img, err := session.media.Snapshot()
		if err != nil {
			continue
		}
		frame, err := EncodeDataURI(img, c.cfg.JPEGQuality)
		if err != nil {
			continue
		}
		c.onPreview(frame)
	}
}

func (c *Controller) publishTranscript() {
	if c.onTranscript != nil {
		c.onTranscript(c.transcript.Words())
	}
}

func (c *Controller) info(text string) {
	if c.reporter != nil {
		c.reporter.Info(text)
	}
}

func (c *Controller) success(text string) {
	if c.reporter != nil {
		c.reporter.Success(text)
	}
}

func (c *Controller) fail(text string) {
	if c.reporter != nil {
		c.reporter.Error(text)
	}
}
