package capture

import (
	"sync"
	"sync/atomic"
	"time"
)

// Session is one live camera acquisition. It is created by Controller.Start
// and torn down by Stop or by the media ending; a stopped session never
// becomes active again.
type Session struct {
	ID        string
	Device    string
	StartedAt time.Time

	media  Media
	active atomic.Bool
	done   chan struct{}
	once   sync.Once

	mu        sync.Mutex
	lastLabel string
}

func newSession(id, device string, media Media, startedAt time.Time) *Session {
	s := &Session{
		ID:        id,
		Device:    device,
		StartedAt: startedAt,
		media:     media,
		done:      make(chan struct{}),
	}
	s.active.Store(true)
	return s
}

// Active reports whether the session is still live.
func (s *Session) Active() bool {
	return s != nil && s.active.Load()
}

// LastLabel returns the most recently accepted label.
func (s *Session) LastLabel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastLabel
}

func (s *Session) setLastLabel(label string) {
	s.mu.Lock()
	s.lastLabel = label
	s.mu.Unlock()
}

// deactivate flips the session inactive and wakes its waiters. Safe to call twice.
func (s *Session) deactivate() {
	s.once.Do(func() {
		s.active.Store(false)
		close(s.done)
	})
}
