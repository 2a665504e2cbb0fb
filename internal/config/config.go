package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	LockDir  string `toml:"lock_dir"`
}

// Classifier contains configuration for the remote gesture-classification endpoint.
type Classifier struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Converter contains configuration for the remote text-to-clip endpoint.
type Converter struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Capture contains camera and sampling loop settings.
type Capture struct {
	Device              string  `toml:"device"`
	Width               int     `toml:"width"`
	Height              int     `toml:"height"`
	JPEGQuality         int     `toml:"jpeg_quality"`
	SteadyIntervalMS    int     `toml:"steady_interval_ms"`
	RetryIntervalMS     int     `toml:"retry_interval_ms"`
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
	// PreviewIntervalMS throttles frames pushed to the overlay preview. Zero disables preview.
	PreviewIntervalMS int  `toml:"preview_interval_ms"`
	Hotplug           bool `toml:"hotplug"`
}

// Dictation contains settings for the external streaming speech recognizer.
type Dictation struct {
	Command  string   `toml:"command"`
	Args     []string `toml:"args"`
	Language string   `toml:"language"`
}

// Playback contains settings for the external clip player.
type Playback struct {
	PlayerCommand string   `toml:"player_command"`
	PlayerArgs    []string `toml:"player_args"`
}

// Identity contains identity provider settings.
type Identity struct {
	APIKey            string `toml:"api_key"`
	BaseURL           string `toml:"base_url"`
	MinPasswordLength int    `toml:"min_password_length"`
	LoginRedirect     string `toml:"login_redirect"`
	SignupRedirect    string `toml:"signup_redirect"`
	LogoutRedirect    string `toml:"logout_redirect"`
	LoginDelayMS      int    `toml:"login_delay_ms"`
	SignupDelayMS     int    `toml:"signup_delay_ms"`
	LogoutDelayMS     int    `toml:"logout_delay_ms"`
}

// Status contains settings for user-facing status messages.
type Status struct {
	TTLSeconds int `toml:"ttl_seconds"`
}

// Overlay contains settings for the websocket render feed.
type Overlay struct {
	Bind string `toml:"bind"`
}

// Catalog contains settings for the clip catalog server.
type Catalog struct {
	ClipsDir        string  `toml:"clips_dir"`
	URLPrefix       string  `toml:"url_prefix"`
	APIBind         string  `toml:"api_bind"`
	RescanSchedule  string  `toml:"rescan_schedule"`
	RateLimitPerSec float64 `toml:"rate_limit_per_sec"`
	RateLimitBurst  int     `toml:"rate_limit_burst"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for signbridge.
//
// Configuration sections by subsystem:
//   - Paths: state, log, and lock directories
//   - Classifier: sign-to-text classification endpoint
//   - Converter: text-to-sign conversion endpoint
//   - Capture: camera device, resolution, sampling cadence, confidence threshold
//   - Dictation: streaming speech recognizer command
//   - Playback: clip player command
//   - Identity: identity provider and post-auth navigation
//   - Status: status message lifetime
//   - Overlay: websocket render feed
//   - Catalog: clip catalog server
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Classifier Classifier `toml:"classifier"`
	Converter  Converter  `toml:"converter"`
	Capture    Capture    `toml:"capture"`
	Dictation  Dictation  `toml:"dictation"`
	Playback   Playback   `toml:"playback"`
	Identity   Identity   `toml:"identity"`
	Status     Status     `toml:"status"`
	Overlay    Overlay    `toml:"overlay"`
	Catalog    Catalog    `toml:"catalog"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("signbridge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state, log, and lock directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir, c.Paths.LockDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for camera capture.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// SteadyInterval is the delay between capture cycles after a completed classification.
func (c *Config) SteadyInterval() time.Duration {
	return time.Duration(c.Capture.SteadyIntervalMS) * time.Millisecond
}

// RetryInterval is the delay before retrying after a transport failure.
func (c *Config) RetryInterval() time.Duration {
	return time.Duration(c.Capture.RetryIntervalMS) * time.Millisecond
}

// PreviewInterval is the minimum spacing between preview frames.
func (c *Config) PreviewInterval() time.Duration {
	return time.Duration(c.Capture.PreviewIntervalMS) * time.Millisecond
}

// StatusTTL is how long a status message stays visible before it expires.
func (c *Config) StatusTTL() time.Duration {
	return time.Duration(c.Status.TTLSeconds) * time.Second
}

// CatalogDBPath returns the location of the clip index database.
func (c *Config) CatalogDBPath() string {
	return filepath.Join(c.Paths.StateDir, "catalog.db")
}

// LogPath returns the location of the persistent log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "signbridge.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
