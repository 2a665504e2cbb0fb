package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
	"golang.org/x/text/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEndpoints(); err != nil {
		return err
	}
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateDictation(); err != nil {
		return err
	}
	if err := c.validateIdentity(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateEndpoints() error {
	if err := validateHTTPURL("classifier.url", c.Classifier.URL); err != nil {
		return err
	}
	if err := validateHTTPURL("converter.url", c.Converter.URL); err != nil {
		return err
	}
	if c.Classifier.TimeoutSeconds <= 0 {
		return errors.New("classifier.timeout_seconds must be positive")
	}
	if c.Converter.TimeoutSeconds <= 0 {
		return errors.New("converter.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateCapture() error {
	if c.Capture.SteadyIntervalMS <= 0 {
		return errors.New("capture.steady_interval_ms must be positive")
	}
	if c.Capture.RetryIntervalMS <= 0 {
		return errors.New("capture.retry_interval_ms must be positive")
	}
	if c.Capture.ConfidenceThreshold < 0 || c.Capture.ConfidenceThreshold > 1 {
		return fmt.Errorf("capture.confidence_threshold must be within [0,1], got %v", c.Capture.ConfidenceThreshold)
	}
	if c.Capture.JPEGQuality < 1 || c.Capture.JPEGQuality > 100 {
		return fmt.Errorf("capture.jpeg_quality must be within 1-100, got %d", c.Capture.JPEGQuality)
	}
	return nil
}

func (c *Config) validateDictation() error {
	if _, err := language.Parse(c.Dictation.Language); err != nil {
		return fmt.Errorf("dictation.language: invalid language tag %q: %w", c.Dictation.Language, err)
	}
	return nil
}

func (c *Config) validateIdentity() error {
	if err := validateHTTPURL("identity.base_url", c.Identity.BaseURL); err != nil {
		return err
	}
	for name, value := range map[string]int{
		"identity.login_delay_ms":  c.Identity.LoginDelayMS,
		"identity.signup_delay_ms": c.Identity.SignupDelayMS,
		"identity.logout_delay_ms": c.Identity.LogoutDelayMS,
	} {
		if value < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}

func (c *Config) validateCatalog() error {
	if c.Catalog.RateLimitPerSec < 0 {
		return errors.New("catalog.rate_limit_per_sec must not be negative")
	}
	if c.Catalog.RescanSchedule != "" {
		if _, err := cron.ParseStandard(c.Catalog.RescanSchedule); err != nil {
			return fmt.Errorf("catalog.rescan_schedule: %w", err)
		}
	}
	return nil
}

func validateHTTPURL(field, value string) error {
	parsed, err := url.Parse(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s: scheme must be http or https, got %q", field, parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s: host required", field)
	}
	return nil
}
