package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a manually advanced Clock. Callbacks registered with AfterFunc run
// synchronously inside Advance; channels returned by After receive the fake
// time when their deadline passes.
type Fake struct {
	mu      sync.Mutex
	cond    *sync.Cond
	now     time.Time
	waiters []*waiter
}

type waiter struct {
	at      time.Time
	ch      chan time.Time
	fn      func()
	stopped bool
}

// NewFake returns a fake clock starting at start.
func NewFake(start time.Time) *Fake {
	f := &Fake{now: start}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Now reports the fake time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// After registers a one-shot channel that fires once the fake time passes d.
func (f *Fake) After(d time.Duration) <-chan time.Time {
	w := &waiter{ch: make(chan time.Time, 1)}
	f.add(w, d)
	return w.ch
}

// AfterFunc registers fn to run once the fake time passes d.
func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	w := &waiter{fn: fn}
	f.add(w, d)
	return &fakeTimer{clock: f, w: w}
}

func (f *Fake) add(w *waiter, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.at = f.now.Add(d)
	f.waiters = append(f.waiters, w)
	f.cond.Broadcast()
}

// Advance moves the fake time forward and fires every waiter whose deadline
// has been reached, in deadline order.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	now := f.now
	var due, pending []*waiter
	for _, w := range f.waiters {
		if !w.at.After(now) {
			due = append(due, w)
		} else {
			pending = append(pending, w)
		}
	}
	f.waiters = pending
	f.cond.Broadcast()
	f.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, w := range due {
		if w.stopped {
			continue
		}
		if w.fn != nil {
			w.fn()
			continue
		}
		w.ch <- now
	}
}

// Pending reports the number of registered waiters that have not fired.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, w := range f.waiters {
		if !w.stopped {
			count++
		}
	}
	return count
}

// BlockUntil waits until at least n waiters are pending.
func (f *Fake) BlockUntil(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for {
		count := 0
		for _, w := range f.waiters {
			if !w.stopped {
				count++
			}
		}
		if count >= n {
			return
		}
		f.cond.Wait()
	}
}

type fakeTimer struct {
	clock *Fake
	w     *waiter
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	for i, w := range t.clock.waiters {
		if w == t.w {
			w.stopped = true
			t.clock.waiters = append(t.clock.waiters[:i], t.clock.waiters[i+1:]...)
			t.clock.cond.Broadcast()
			return true
		}
	}
	return false
}
