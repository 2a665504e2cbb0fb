package status

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"signbridge/internal/clock"
)

func newTestBoard(t *testing.T) (*Board, *clock.Fake) {
	t.Helper()
	fake := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	return NewBoard(WithClock(fake), WithTTL(4*time.Second)), fake
}

func TestBoardExpiresAfterTTL(t *testing.T) {
	board, fake := newTestBoard(t)
	board.Info("Camera started.")

	if msg, ok := board.Current(); !ok || msg.Text != "Camera started." {
		t.Fatalf("unexpected current %+v", msg)
	}
	fake.Advance(3999 * time.Millisecond)
	if _, ok := board.Current(); !ok {
		t.Fatal("message expired early")
	}
	fake.Advance(time.Millisecond)
	if _, ok := board.Current(); ok {
		t.Fatal("expected message to expire")
	}
}

func TestBoardOlderExpiryDoesNotClearNewerMessage(t *testing.T) {
	board, fake := newTestBoard(t)
	board.Info("first")
	fake.Advance(3 * time.Second)
	board.Error("second")
	fake.Advance(time.Second)

	msg, ok := board.Current()
	if !ok || msg.Text != "second" || msg.Kind != KindError {
		t.Fatalf("expected newer message to survive, got %+v", msg)
	}
	fake.Advance(3 * time.Second)
	if _, ok := board.Current(); ok {
		t.Fatal("expected newer message to expire on its own schedule")
	}
}

func TestBoardDismissNotifiesSinks(t *testing.T) {
	board, _ := newTestBoard(t)
	var seen []Message
	unsubscribe := board.Subscribe(func(m Message) { seen = append(seen, m) })

	board.Success("Login successful! Redirecting...")
	board.Dismiss()
	board.Dismiss()

	if len(seen) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(seen))
	}
	if seen[1].Visible() {
		t.Fatalf("expected clear notification, got %+v", seen[1])
	}

	unsubscribe()
	board.Info("after")
	if len(seen) != 2 {
		t.Fatal("unsubscribed sink was notified")
	}
}

func TestBoardBlankTextDismisses(t *testing.T) {
	board, _ := newTestBoard(t)
	board.Info("something")
	board.Set(KindInfo, "   ")
	if _, ok := board.Current(); ok {
		t.Fatal("blank text should clear the board")
	}
}

func TestBoardZeroTTLNeverExpires(t *testing.T) {
	fake := clock.NewFake(time.Unix(0, 0))
	board := NewBoard(WithClock(fake), WithTTL(0))
	board.Info("sticky")
	fake.Advance(time.Hour)
	if _, ok := board.Current(); !ok {
		t.Fatal("expected message to persist without TTL")
	}
}

func TestBoardSkipsOvertakenDelivery(t *testing.T) {
	board, _ := newTestBoard(t)
	var got []Message
	board.Subscribe(func(m Message) { got = append(got, m) })

	board.Info("first")
	first := got[0]
	board.Info("second")

	board.mu.Lock()
	sinks := board.snapshotSinks()
	board.mu.Unlock()
	board.deliver(sinks, first)

	if len(got) != 2 || got[1].Text != "second" {
		t.Fatalf("stale message reached sinks: %+v", got)
	}
}

func TestBoardSinksEndOnCurrentUnderConcurrentSets(t *testing.T) {
	board, _ := newTestBoard(t)
	var (
		mu   sync.Mutex
		last Message
	)
	board.Subscribe(func(m Message) {
		mu.Lock()
		defer mu.Unlock()
		if m.Seq < last.Seq {
			t.Errorf("sink saw seq %d after %d", m.Seq, last.Seq)
		}
		last = m
	})

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			board.Info(fmt.Sprintf("cycle %d", i))
		}()
	}
	wg.Wait()

	current, _ := board.Current()
	mu.Lock()
	defer mu.Unlock()
	if last.Seq != current.Seq || last.Text != current.Text {
		t.Fatalf("sinks ended on %+v, board shows %+v", last, current)
	}
}
