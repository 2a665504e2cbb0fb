package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// clipHeader is the leading ftyp box of an ISO BMFF file. Players and the
// catalog scanner only see the extension, but a recognizable header keeps
// fixtures honest when inspected by hand.
var clipHeader = []byte{
	0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p',
	'i', 's', 'o', 'm', 0x00, 0x00, 0x02, 0x00,
	'i', 's', 'o', 'm', 'm', 'p', '4', '1',
}

// WriteClip creates dir/name (adding .mp4 when name has no extension) and
// returns the full path.
func WriteClip(t testing.TB, dir, name string) string {
	t.Helper()

	if filepath.Ext(name) == "" {
		name += ".mp4"
	}
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, clipHeader, 0o644); err != nil {
		t.Fatalf("write clip %s: %v", path, err)
	}
	return path
}
