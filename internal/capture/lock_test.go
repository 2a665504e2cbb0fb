package capture

import (
	"path/filepath"
	"testing"
)

func TestDeviceLockIsExclusive(t *testing.T) {
	dir := t.TempDir()
	first := NewDeviceLock(dir, "/dev/video0")
	if got := filepath.Base(first.Path()); got != "camera-dev_video0.lock" {
		t.Fatalf("unexpected lock file %q", got)
	}
	ok, err := first.TryLock()
	if err != nil || !ok {
		t.Fatalf("first TryLock: %v %v", ok, err)
	}
	defer first.Unlock()

	second := NewDeviceLock(dir, "/dev/video0")
	ok, err = second.TryLock()
	if err != nil {
		t.Fatalf("second TryLock: %v", err)
	}
	if ok {
		t.Fatal("second lock acquired while first is held")
	}
}
