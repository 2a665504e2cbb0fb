package preflight

import (
	"context"
	"strings"

	"signbridge/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// Failed reports whether a required check did not pass.
func (r Result) Failed() bool {
	return !r.Passed && !r.Optional
}

// RunAll executes every check relevant to the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Lock directory", cfg.Paths.LockDir),
		CheckDeviceAccess("Camera", cfg.Capture.Device),
		CheckBinary("FFmpeg", cfg.FFmpegBinary(), false),
		CheckBinary("Clip player", cfg.Playback.PlayerCommand, false),
	}

	if strings.TrimSpace(cfg.Dictation.Command) != "" {
		results = append(results, CheckBinary("Speech recognizer", cfg.Dictation.Command, true))
	} else {
		results = append(results, Result{Name: "Speech recognizer", Optional: true, Detail: "not configured (dictation disabled)"})
	}

	results = append(results,
		CheckEndpoint(ctx, "Classifier", cfg.Classifier.URL),
		CheckEndpoint(ctx, "Converter", cfg.Converter.URL),
	)

	if strings.TrimSpace(cfg.Identity.APIKey) == "" {
		results = append(results, Result{Name: "Identity provider", Optional: true, Detail: "API key missing (auth commands disabled)"})
	} else {
		results = append(results, Result{Name: "Identity provider", Passed: true, Detail: "API key configured"})
	}

	return results
}

// AnyFailed reports whether any required check failed.
func AnyFailed(results []Result) bool {
	for _, r := range results {
		if r.Failed() {
			return true
		}
	}
	return false
}
