package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"signbridge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Network binds use an ephemeral port and preview is disabled.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.LockDir = filepath.Join(base, "locks")
	cfgVal.Catalog.ClipsDir = filepath.Join(base, "videos")
	cfgVal.Catalog.APIBind = "127.0.0.1:0"
	cfgVal.Capture.PreviewIntervalMS = 0
	cfgVal.Capture.Hotplug = false
	cfgVal.Identity.APIKey = "test"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithClips creates the clips directory holding one .mp4 fixture per name.
func WithClips(names ...string) ConfigOption {
	return func(b *configBuilder) {
		dir := b.cfg.Catalog.ClipsDir
		if err := os.MkdirAll(dir, 0o755); err != nil {
			b.t.Fatalf("mkdir clips dir: %v", err)
		}
		for _, name := range names {
			WriteClip(b.t, dir, name)
		}
	}
}

// WithEndpoints points the classifier and converter clients at baseURL.
func WithEndpoints(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Classifier.URL = baseURL + "/predict"
		b.cfg.Converter.URL = baseURL + "/convert"
	}
}

// WithRateLimit overrides the /convert token bucket.
func WithRateLimit(perSecond float64, burst int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Catalog.RateLimitPerSec = perSecond
		b.cfg.Catalog.RateLimitBurst = burst
	}
}

// WithRescanSchedule sets the cron spec for catalog rescans. Empty disables them.
func WithRescanSchedule(spec string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Catalog.RescanSchedule = spec
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default external binaries
// are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", b.cfg.Playback.PlayerCommand}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
