package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"signbridge/internal/clock"
	"signbridge/internal/logging"
	"signbridge/internal/services/identity"
)

// Provider is the identity backend.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*identity.User, error)
	SignUp(ctx context.Context, displayName, email, password string) (*identity.User, error)
	SignOut(ctx context.Context) error
}

// Reporter receives user-facing status text.
type Reporter interface {
	Success(text string)
	Error(text string)
}

// Navigator moves the user to an application route.
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(route string)

// Navigate calls f.
func (f NavigatorFunc) Navigate(route string) { f(route) }

// Redirect is a route reached after a fixed delay.
type Redirect struct {
	Route string
	Delay time.Duration
}

// Settings configures validation and post-action navigation.
type Settings struct {
	MinPasswordLength int
	Login             Redirect
	Signup            Redirect
	Logout            Redirect
}

// DefaultSettings matches the application routes.
func DefaultSettings() Settings {
	return Settings{
		MinPasswordLength: DefaultMinPasswordLength,
		Login:             Redirect{Route: "/mode", Delay: 1500 * time.Millisecond},
		Signup:            Redirect{Route: "/login", Delay: 2 * time.Second},
		Logout:            Redirect{Route: "/login", Delay: time.Second},
	}
}

// Service runs the login, signup, and logout flows: local validation,
// provider call, message mapping, then delayed navigation so the
// confirmation stays visible first.
type Service struct {
	provider  Provider
	reporter  Reporter
	navigator Navigator
	settings  Settings
	clock     clock.Clock
	logger    *slog.Logger

	mu      sync.Mutex
	pending clock.Timer
}

// Option customizes a Service.
type Option func(*Service)

// WithClock injects the time source for navigation delays.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService wires the auth flows.
func NewService(provider Provider, reporter Reporter, navigator Navigator, settings Settings, opts ...Option) *Service {
	s := &Service{
		provider:  provider,
		reporter:  reporter,
		navigator: navigator,
		settings:  settings,
		clock:     clock.Real(),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "auth")
	return s
}

// Login validates the form, signs in, and schedules navigation.
func (s *Service) Login(ctx context.Context, form LoginForm) (*identity.User, error) {
	if err := ValidateLogin(form); err != nil {
		s.fail(err.Error())
		return nil, err
	}
	form = form.Normalize()
	user, err := s.provider.SignIn(ctx, form.Email, form.Password)
	if err != nil {
		s.logFailure("login", err)
		s.fail(LoginMessage(err))
		return nil, err
	}
	s.succeed(msgLoginSuccess, s.settings.Login)
	return user, nil
}

// Signup validates the form, creates the account, and schedules navigation.
func (s *Service) Signup(ctx context.Context, form SignupForm) (*identity.User, error) {
	if err := ValidateSignup(form, s.settings.MinPasswordLength); err != nil {
		s.fail(err.Error())
		return nil, err
	}
	form = form.Normalize()
	user, err := s.provider.SignUp(ctx, form.Name, form.Email, form.Password)
	if err != nil {
		s.logFailure("signup", err)
		s.fail(SignupMessage(err))
		return nil, err
	}
	s.succeed(msgSignupSuccess, s.settings.Signup)
	return user, nil
}

// Logout signs out and schedules navigation.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.provider.SignOut(ctx); err != nil {
		s.logFailure("logout", err)
		s.fail(msgLogoutFailed)
		return err
	}
	s.succeed(msgLogoutSuccess, s.settings.Logout)
	return nil
}

// CancelNavigation drops a scheduled redirect. It reports whether one was pending.
func (s *Service) CancelNavigation() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return false
	}
	stopped := s.pending.Stop()
	s.pending = nil
	return stopped
}

func (s *Service) succeed(message string, redirect Redirect) {
	if s.reporter != nil {
		s.reporter.Success(message)
	}
	if s.navigator == nil || redirect.Route == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		s.pending.Stop()
	}
	var timer clock.Timer
	timer = s.clock.AfterFunc(redirect.Delay, func() {
		s.mu.Lock()
		if s.pending == timer {
			s.pending = nil
		}
		s.mu.Unlock()
		s.navigator.Navigate(redirect.Route)
	})
	s.pending = timer
}

func (s *Service) fail(message string) {
	if s.reporter != nil {
		s.reporter.Error(message)
	}
}

func (s *Service) logFailure(action string, err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return
	}
	logging.WarnWithContext(s.logger, action+" failed", "auth_"+action+"_failed",
		logging.Error(err),
		logging.String("provider_code", identity.Code(err)),
		logging.String(logging.FieldErrorHint, "check credentials and the identity api key"),
		logging.String(logging.FieldImpact, "user stays on the current page"),
	)
}
