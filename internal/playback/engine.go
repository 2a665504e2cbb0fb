package playback

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"signbridge/internal/logging"
)

const (
	msgNoClips  = "No matching sign videos found."
	msgComplete = "All signs played."
	msgPlayFail = "Could not play sign video."
)

var (
	// ErrReplayUnavailable is returned by Replay outside the Complete state.
	ErrReplayUnavailable = errors.New("replay is only available after the sequence completes")
	// ErrNothingLoaded is returned by Advance when no playable sequence is loaded.
	ErrNothingLoaded = errors.New("no clip sequence loaded")
)

// State is the engine's playback state.
type State int

const (
	// Idle means no sequence has been loaded.
	Idle State = iota
	// Empty is the terminal state for a load with no clips; replay is never offered.
	Empty
	// Playing means 0 <= cursor < length, or the last clip is still running.
	Playing
	// Complete means every clip has played and replay is available.
	Complete
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Empty:
		return "empty"
	case Playing:
		return "playing"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

// Player plays one clip at a time. The returned channel is closed when the
// clip finishes; Stop interrupts the current clip.
type Player interface {
	Play(ctx context.Context, uri string) (<-chan struct{}, error)
	Stop() error
}

// Reporter receives user-facing status text.
type Reporter interface {
	Info(text string)
	Success(text string)
	Error(text string)
	Dismiss()
}

// Snapshot is a read-only view for renderers.
type Snapshot struct {
	State           string `json:"state"`
	Cursor          int    `json:"cursor"`
	Length          int    `json:"length"`
	Current         string `json:"current,omitempty"`
	ReplayAvailable bool   `json:"replay_available"`
}

// Engine owns one clip sequence and its cursor. The next clip starts only on
// the previous clip's end event.
type Engine struct {
	player   Player
	reporter Reporter
	logger   *slog.Logger
	onChange func(Snapshot)

	// playMu orders player calls: a Play for a superseded sequence always
	// finishes before Load or Reset stops it. Taken before mu.
	playMu sync.Mutex

	mu       sync.Mutex
	sequence []string
	cursor   int
	state    State
	current  string
	gen      uint64
	ended    <-chan struct{}
	changed  chan struct{}
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithChangeSink is called after every state change.
func WithChangeSink(fn func(Snapshot)) Option {
	return func(e *Engine) {
		e.onChange = fn
	}
}

// NewEngine builds an idle engine.
func NewEngine(player Player, reporter Reporter, opts ...Option) *Engine {
	e := &Engine{
		player:   player,
		reporter: reporter,
		logger:   logging.NewNop(),
		changed:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.NewComponentLogger(e.logger, "playback")
	return e
}

// Load replaces the sequence wholesale and resets the cursor. An empty
// sequence enters Empty and never binds the player.
func (e *Engine) Load(uris []string) {
	seq := append([]string(nil), uris...)

	e.playMu.Lock()
	e.mu.Lock()
	hadClip := e.current != ""
	e.sequence = seq
	e.cursor = 0
	e.current = ""
	if len(seq) == 0 {
		e.state = Empty
	} else {
		e.state = Playing
	}
	e.rebindLocked(nil)
	snap := e.snapshotLocked()
	e.mu.Unlock()

	if hadClip {
		e.stopPlayer()
	}
	e.playMu.Unlock()
	if len(seq) == 0 {
		e.info(msgNoClips)
	} else {
		e.dismiss()
	}
	e.logger.Debug("sequence loaded", logging.Int("clips", len(seq)))
	e.publish(snap)
}

// Start loads uris and plays the first clip.
func (e *Engine) Start(ctx context.Context, uris []string) error {
	e.Load(uris)
	if len(uris) == 0 {
		return nil
	}
	return e.Advance(ctx)
}

// Advance binds the clip at the cursor and plays it, or enters Complete when
// the cursor has reached the end.
func (e *Engine) Advance(ctx context.Context) error {
	e.playMu.Lock()
	defer e.playMu.Unlock()

	e.mu.Lock()
	switch e.state {
	case Idle, Empty:
		e.mu.Unlock()
		return ErrNothingLoaded
	case Complete:
		e.mu.Unlock()
		return nil
	}

	if e.cursor >= len(e.sequence) {
		e.state = Complete
		e.current = ""
		e.rebindLocked(nil)
		snap := e.snapshotLocked()
		e.mu.Unlock()
		e.success(msgComplete)
		e.publish(snap)
		return nil
	}

	uri := e.sequence[e.cursor]
	e.cursor++
	e.current = uri
	gen := e.rebindLocked(nil)
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap)

	done, err := e.player.Play(ctx, uri)
	if err != nil {
		logging.WarnWithContext(e.logger, "clip playback failed", "playback_failed",
			logging.Error(err),
			logging.String("uri", uri),
			logging.String(logging.FieldErrorHint, "check the player command and clip URL"),
			logging.String(logging.FieldImpact, "clip skipped"),
		)
		e.fail(msgPlayFail)
		closed := make(chan struct{})
		close(closed)
		done = closed
	}

	e.mu.Lock()
	stale := e.gen != gen
	if !stale {
		e.ended = done
		e.wakeLocked()
	}
	e.mu.Unlock()
	if stale && err == nil {
		e.stopPlayer()
	}
	return err
}

// Replay restarts a completed sequence from the first clip.
func (e *Engine) Replay(ctx context.Context) error {
	e.mu.Lock()
	if e.state != Complete {
		e.mu.Unlock()
		return ErrReplayUnavailable
	}
	e.cursor = 0
	e.state = Playing
	e.rebindLocked(nil)
	e.mu.Unlock()

	e.dismiss()
	return e.Advance(ctx)
}

// Reset returns to Idle, dropping the sequence and any replay affordance.
func (e *Engine) Reset() {
	e.playMu.Lock()
	e.mu.Lock()
	hadClip := e.current != ""
	e.sequence = nil
	e.cursor = 0
	e.current = ""
	e.state = Idle
	e.rebindLocked(nil)
	snap := e.snapshotLocked()
	e.mu.Unlock()

	if hadClip {
		e.stopPlayer()
	}
	e.playMu.Unlock()
	e.publish(snap)
}

// Run advances on every end-of-clip event until ctx is cancelled. End events
// from clips superseded by Load, Replay, or Reset are ignored.
func (e *Engine) Run(ctx context.Context) error {
	for {
		e.mu.Lock()
		done, gen, changed := e.ended, e.gen, e.changed
		e.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		case <-done:
			e.clipEnded(ctx, gen)
		}
	}
}

func (e *Engine) clipEnded(ctx context.Context, gen uint64) {
	e.mu.Lock()
	if e.gen != gen || e.state != Playing {
		e.mu.Unlock()
		return
	}
	e.ended = nil
	e.mu.Unlock()

	if err := e.Advance(ctx); err != nil && !errors.Is(err, ErrNothingLoaded) {
		e.logger.Debug("advance after clip end failed", logging.Error(err))
	}
}

// rebindLocked invalidates the current end-of-clip wait and returns the new generation.
func (e *Engine) rebindLocked(done <-chan struct{}) uint64 {
	e.gen++
	e.ended = done
	e.wakeLocked()
	return e.gen
}

// wakeLocked makes Run re-read the binding.
func (e *Engine) wakeLocked() {
	close(e.changed)
	e.changed = make(chan struct{})
}

// State reports the playback state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Cursor reports the index of the next clip to bind.
func (e *Engine) Cursor() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

// Len reports the sequence length.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sequence)
}

// ReplayAvailable reports whether the replay control should be shown.
func (e *Engine) ReplayAvailable() bool {
	return e.State() == Complete
}

// Snapshot returns the current view.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	return Snapshot{
		State:           e.state.String(),
		Cursor:          e.cursor,
		Length:          len(e.sequence),
		Current:         e.current,
		ReplayAvailable: e.state == Complete,
	}
}

func (e *Engine) stopPlayer() {
	if err := e.player.Stop(); err != nil {
		e.logger.Debug("player stop failed", logging.Error(err))
	}
}

func (e *Engine) publish(snap Snapshot) {
	if e.onChange != nil {
		e.onChange(snap)
	}
}

func (e *Engine) info(text string) {
	if e.reporter != nil {
		e.reporter.Info(text)
	}
}

func (e *Engine) success(text string) {
	if e.reporter != nil {
		e.reporter.Success(text)
	}
}

func (e *Engine) fail(text string) {
	if e.reporter != nil {
		e.reporter.Error(text)
	}
}

func (e *Engine) dismiss() {
	if e.reporter != nil {
		e.reporter.Dismiss()
	}
}
