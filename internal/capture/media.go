package capture

import (
	"context"
	"fmt"
	"image"
)

// Resolution is the target capture size requested from a camera.
type Resolution struct {
	Width  int
	Height int
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// Camera acquires a live media stream.
type Camera interface {
	Open(ctx context.Context, res Resolution) (Media, error)
}

// Media is an acquired live stream. Ended is closed when the stream stops on
// its own (device removed, capture process exited); Close releases it.
type Media interface {
	Ready() bool
	Snapshot() (image.Image, error)
	Ended() <-chan struct{}
	Close() error
}

// Locker guards exclusive use of a capture device across processes.
type Locker interface {
	TryLock() (bool, error)
	Unlock() error
}
