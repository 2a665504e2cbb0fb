package capture

import (
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// NewDeviceLock returns a file lock guarding device under lockDir. Two
// processes never stream from the same camera at once.
func NewDeviceLock(lockDir, device string) *flock.Flock {
	name := strings.Trim(strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(filepath.Clean(device)), "_")
	if name == "" || name == "." {
		name = "default"
	}
	return flock.New(filepath.Join(lockDir, "camera-"+name+".lock"))
}
