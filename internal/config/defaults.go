package config

const (
	defaultConfigPath             = "~/.config/signbridge/config.toml"
	defaultStateDir               = "~/.local/share/signbridge"
	defaultLogDir                 = "~/.local/share/signbridge/logs"
	defaultLockDir                = "~/.local/share/signbridge/locks"
	defaultClassifierURL          = "http://127.0.0.1:5000/predict"
	defaultConverterURL           = "http://127.0.0.1:5000/convert"
	defaultClientTimeoutSeconds   = 10
	defaultCaptureDevice          = "/dev/video0"
	defaultCaptureWidth           = 640
	defaultCaptureHeight          = 480
	defaultJPEGQuality            = 80
	defaultSteadyIntervalMS       = 450
	defaultRetryIntervalMS        = 500
	defaultConfidenceThreshold    = 0.25
	defaultPreviewIntervalMS      = 1000
	defaultDictationLanguage      = "en-US"
	defaultPlayerCommand          = "mpv"
	defaultIdentityBaseURL        = "https://identitytoolkit.googleapis.com/v1"
	defaultMinPasswordLength      = 8
	defaultLoginRedirect          = "/mode"
	defaultSignupRedirect         = "/login"
	defaultLogoutRedirect         = "/login"
	defaultLoginDelayMS           = 1500
	defaultSignupDelayMS          = 2000
	defaultLogoutDelayMS          = 1000
	defaultStatusTTLSeconds       = 4
	defaultCatalogClipsDir        = "~/.local/share/signbridge/videos"
	defaultCatalogURLPrefix       = "/static/videos"
	defaultCatalogAPIBind         = "127.0.0.1:5000"
	defaultCatalogRescanSchedule  = "@every 10m"
	defaultCatalogRateLimitPerSec = 5
	defaultCatalogRateLimitBurst  = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

var defaultPlayerArgs = []string{"--really-quiet", "--no-terminal", "--keep-open=no"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			LockDir:  defaultLockDir,
		},
		Classifier: Classifier{
			URL:            defaultClassifierURL,
			TimeoutSeconds: defaultClientTimeoutSeconds,
		},
		Converter: Converter{
			URL:            defaultConverterURL,
			TimeoutSeconds: defaultClientTimeoutSeconds,
		},
		Capture: Capture{
			Device:              defaultCaptureDevice,
			Width:               defaultCaptureWidth,
			Height:              defaultCaptureHeight,
			JPEGQuality:         defaultJPEGQuality,
			SteadyIntervalMS:    defaultSteadyIntervalMS,
			RetryIntervalMS:     defaultRetryIntervalMS,
			ConfidenceThreshold: defaultConfidenceThreshold,
			PreviewIntervalMS:   defaultPreviewIntervalMS,
			Hotplug:             true,
		},
		Dictation: Dictation{
			Language: defaultDictationLanguage,
		},
		Playback: Playback{
			PlayerCommand: defaultPlayerCommand,
			PlayerArgs:    append([]string(nil), defaultPlayerArgs...),
		},
		Identity: Identity{
			BaseURL:           defaultIdentityBaseURL,
			MinPasswordLength: defaultMinPasswordLength,
			LoginRedirect:     defaultLoginRedirect,
			SignupRedirect:    defaultSignupRedirect,
			LogoutRedirect:    defaultLogoutRedirect,
			LoginDelayMS:      defaultLoginDelayMS,
			SignupDelayMS:     defaultSignupDelayMS,
			LogoutDelayMS:     defaultLogoutDelayMS,
		},
		Status: Status{
			TTLSeconds: defaultStatusTTLSeconds,
		},
		Catalog: Catalog{
			ClipsDir:        defaultCatalogClipsDir,
			URLPrefix:       defaultCatalogURLPrefix,
			APIBind:         defaultCatalogAPIBind,
			RescanSchedule:  defaultCatalogRescanSchedule,
			RateLimitPerSec: defaultCatalogRateLimitPerSec,
			RateLimitBurst:  defaultCatalogRateLimitBurst,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
