package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEndpoints()
	c.normalizeCapture()
	c.normalizeDictation()
	c.normalizePlayback()
	c.normalizeIdentity()
	if err := c.normalizeCatalog(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LockDir) == "" {
		c.Paths.LockDir = defaultLockDir
	}
	if c.Paths.LockDir, err = expandPath(c.Paths.LockDir); err != nil {
		return fmt.Errorf("paths.lock_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEndpoints() {
	c.Classifier.URL = strings.TrimSpace(c.Classifier.URL)
	if c.Classifier.URL == "" {
		c.Classifier.URL = defaultClassifierURL
	}
	if c.Classifier.TimeoutSeconds <= 0 {
		c.Classifier.TimeoutSeconds = defaultClientTimeoutSeconds
	}
	c.Converter.URL = strings.TrimSpace(c.Converter.URL)
	if c.Converter.URL == "" {
		c.Converter.URL = defaultConverterURL
	}
	if c.Converter.TimeoutSeconds <= 0 {
		c.Converter.TimeoutSeconds = defaultClientTimeoutSeconds
	}
}

func (c *Config) normalizeCapture() {
	c.Capture.Device = strings.TrimSpace(c.Capture.Device)
	if c.Capture.Device == "" {
		c.Capture.Device = defaultCaptureDevice
	}
	if c.Capture.Width <= 0 {
		c.Capture.Width = defaultCaptureWidth
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = defaultCaptureHeight
	}
	if c.Capture.JPEGQuality == 0 {
		c.Capture.JPEGQuality = defaultJPEGQuality
	}
	if c.Capture.PreviewIntervalMS < 0 {
		c.Capture.PreviewIntervalMS = 0
	}
}

func (c *Config) normalizeDictation() {
	c.Dictation.Command = strings.TrimSpace(c.Dictation.Command)
	c.Dictation.Language = strings.TrimSpace(c.Dictation.Language)
	if c.Dictation.Language == "" {
		c.Dictation.Language = defaultDictationLanguage
	}
}

func (c *Config) normalizePlayback() {
	c.Playback.PlayerCommand = strings.TrimSpace(c.Playback.PlayerCommand)
	if c.Playback.PlayerCommand == "" {
		c.Playback.PlayerCommand = defaultPlayerCommand
		if len(c.Playback.PlayerArgs) == 0 {
			c.Playback.PlayerArgs = append([]string(nil), defaultPlayerArgs...)
		}
	}
}

func (c *Config) normalizeIdentity() {
	c.Identity.APIKey = strings.TrimSpace(c.Identity.APIKey)
	if c.Identity.APIKey == "" {
		if value, ok := os.LookupEnv("SIGNBRIDGE_IDENTITY_API_KEY"); ok {
			c.Identity.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("FIREBASE_API_KEY"); ok {
			c.Identity.APIKey = strings.TrimSpace(value)
		}
	}
	c.Identity.BaseURL = strings.TrimRight(strings.TrimSpace(c.Identity.BaseURL), "/")
	if c.Identity.BaseURL == "" {
		c.Identity.BaseURL = defaultIdentityBaseURL
	}
	if c.Identity.MinPasswordLength <= 0 {
		c.Identity.MinPasswordLength = defaultMinPasswordLength
	}
	if strings.TrimSpace(c.Identity.LoginRedirect) == "" {
		c.Identity.LoginRedirect = defaultLoginRedirect
	}
	if strings.TrimSpace(c.Identity.SignupRedirect) == "" {
		c.Identity.SignupRedirect = defaultSignupRedirect
	}
	if strings.TrimSpace(c.Identity.LogoutRedirect) == "" {
		c.Identity.LogoutRedirect = defaultLogoutRedirect
	}
	if c.Status.TTLSeconds <= 0 {
		c.Status.TTLSeconds = defaultStatusTTLSeconds
	}
}

func (c *Config) normalizeCatalog() error {
	var err error
	if strings.TrimSpace(c.Catalog.ClipsDir) == "" {
		c.Catalog.ClipsDir = defaultCatalogClipsDir
	}
	if c.Catalog.ClipsDir, err = expandPath(c.Catalog.ClipsDir); err != nil {
		return fmt.Errorf("catalog.clips_dir: %w", err)
	}
	c.Catalog.URLPrefix = strings.TrimRight(strings.TrimSpace(c.Catalog.URLPrefix), "/")
	c.Catalog.APIBind = strings.TrimSpace(c.Catalog.APIBind)
	if c.Catalog.APIBind == "" {
		c.Catalog.APIBind = defaultCatalogAPIBind
	}
	c.Catalog.RescanSchedule = strings.TrimSpace(c.Catalog.RescanSchedule)
	if c.Catalog.RateLimitBurst <= 0 {
		c.Catalog.RateLimitBurst = defaultCatalogRateLimitBurst
	}
	c.Overlay.Bind = strings.TrimSpace(c.Overlay.Bind)
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
