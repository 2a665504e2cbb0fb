package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"signbridge/internal/clock"
	"signbridge/internal/services"
	"signbridge/internal/services/identity"
)

type fakeProvider struct {
	signInErr  error
	signUpErr  error
	signOutErr error
	calls      int
}

func (p *fakeProvider) SignIn(_ context.Context, email, _ string) (*identity.User, error) {
	p.calls++
	if p.signInErr != nil {
		return nil, p.signInErr
	}
	return &identity.User{UID: "u1", Email: email}, nil
}

func (p *fakeProvider) SignUp(_ context.Context, _, email, _ string) (*identity.User, error) {
	p.calls++
	if p.signUpErr != nil {
		return nil, p.signUpErr
	}
	return &identity.User{UID: "u2", Email: email}, nil
}

func (p *fakeProvider) SignOut(context.Context) error {
	p.calls++
	return p.signOutErr
}

type recordingReporter struct {
	kinds    []string
	messages []string
}

func (r *recordingReporter) Success(text string) { r.record("success", text) }
func (r *recordingReporter) Error(text string)   { r.record("error", text) }

func (r *recordingReporter) record(kind, text string) {
	r.kinds = append(r.kinds, kind)
	r.messages = append(r.messages, text)
}

func (r *recordingReporter) last() string {
	if len(r.messages) == 0 {
		return ""
	}
	return r.messages[len(r.messages)-1]
}

func providerErr(code string) error {
	return services.Wrap(services.ErrAuth, "identity", "test", "", &identity.ProviderError{Op: "test", Code: code})
}

func newService(t *testing.T, provider *fakeProvider) (*Service, *recordingReporter, *clock.Fake, *[]string) {
	t.Helper()
	reporter := &recordingReporter{}
	fake := clock.NewFake(time.Unix(0, 0))
	routes := &[]string{}
	nav := NavigatorFunc(func(route string) { *routes = append(*routes, route) })
	return NewService(provider, reporter, nav, DefaultSettings(), WithClock(fake)), reporter, fake, routes
}

func TestValidateSignup(t *testing.T) {
	tests := []struct {
		name string
		form SignupForm
		want string
	}{
		{"missing name", SignupForm{Email: "a@b.c", Password: "password1", Confirm: "password1"}, "Please fill in all fields"},
		{"whitespace only", SignupForm{Name: " ", Email: "a@b.c", Password: "password1", Confirm: "password1"}, "Please fill in all fields"},
		{"short password", SignupForm{Name: "A", Email: "a@b.c", Password: "short", Confirm: "short"}, "Password must be at least 8 characters long"},
		{"mismatch", SignupForm{Name: "A", Email: "a@b.c", Password: "password1", Confirm: "password2"}, "Passwords do not match"},
		{"ok", SignupForm{Name: "A", Email: "a@b.c", Password: " password1 ", Confirm: "password1"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSignup(tt.form, 8)
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.want {
				t.Fatalf("got %v, want %q", err, tt.want)
			}
			if !errors.Is(err, services.ErrValidation) {
				t.Fatal("validation errors must be input errors")
			}
		})
	}
}

func TestLoginValidationNeverReachesProvider(t *testing.T) {
	provider := &fakeProvider{}
	svc, reporter, _, _ := newService(t, provider)
	if _, err := svc.Login(context.Background(), LoginForm{Email: "a@b.c"}); err == nil {
		t.Fatal("expected validation error")
	}
	if provider.calls != 0 {
		t.Fatal("provider called despite invalid form")
	}
	if reporter.last() != "Please fill in all fields" {
		t.Fatalf("unexpected status %q", reporter.last())
	}
}

func TestLoginErrorMapping(t *testing.T) {
	tests := map[string]string{
		"INVALID_EMAIL":             "Invalid email format.",
		"EMAIL_NOT_FOUND":           "User not found.",
		"INVALID_PASSWORD":          "Incorrect password.",
		"auth/wrong-password":       "Incorrect password.",
		"INVALID_LOGIN_CREDENTIALS": "Login failed. Please try again.",
	}
	for code, want := range tests {
		provider := &fakeProvider{signInErr: providerErr(code)}
		svc, reporter, fake, routes := newService(t, provider)
		if _, err := svc.Login(context.Background(), LoginForm{Email: "a@b.c", Password: "password1"}); err == nil {
			t.Fatalf("%s: expected error", code)
		}
		if reporter.last() != want {
			t.Fatalf("%s: got %q, want %q", code, reporter.last(), want)
		}
		fake.Advance(time.Minute)
		if len(*routes) != 0 {
			t.Fatalf("%s: failed login navigated", code)
		}
	}
}

func TestSignupErrorMapping(t *testing.T) {
	tests := map[string]string{
		"EMAIL_EXISTS":  "Email already in use.",
		"INVALID_EMAIL": "Invalid email address.",
		"WEAK_PASSWORD": "Signup failed. Please try again.",
	}
	form := SignupForm{Name: "A", Email: "a@b.c", Password: "password1", Confirm: "password1"}
	for code, want := range tests {
		svc, reporter, _, _ := newService(t, &fakeProvider{signUpErr: providerErr(code)})
		if _, err := svc.Signup(context.Background(), form); err == nil {
			t.Fatalf("%s: expected error", code)
		}
		if reporter.last() != want {
			t.Fatalf("%s: got %q, want %q", code, reporter.last(), want)
		}
	}
	svc, reporter, _, _ := newService(t, &fakeProvider{signUpErr: errors.New("network down")})
	_, _ = svc.Signup(context.Background(), form)
	if reporter.last() != "Signup failed. Please try again." {
		t.Fatalf("unexpected fallback %q", reporter.last())
	}
}

func TestSuccessfulLoginNavigatesAfterDelay(t *testing.T) {
	svc, reporter, fake, routes := newService(t, &fakeProvider{})
	user, err := svc.Login(context.Background(), LoginForm{Email: " a@b.c ", Password: "password1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.Email != "a@b.c" {
		t.Fatalf("email not trimmed: %q", user.Email)
	}
	if reporter.last() != "Login successful! Redirecting..." {
		t.Fatalf("unexpected status %q", reporter.last())
	}
	fake.Advance(1499 * time.Millisecond)
	if len(*routes) != 0 {
		t.Fatal("navigated before the delay")
	}
	fake.Advance(time.Millisecond)
	if len(*routes) != 1 || (*routes)[0] != "/mode" {
		t.Fatalf("unexpected routes %v", *routes)
	}
}

func TestSignupAndLogoutRedirects(t *testing.T) {
	svc, _, fake, routes := newService(t, &fakeProvider{})
	if _, err := svc.Signup(context.Background(), SignupForm{Name: "A", Email: "a@b.c", Password: "password1", Confirm: "password1"}); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	fake.Advance(2 * time.Second)
	if err := svc.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	fake.Advance(time.Second)
	if len(*routes) != 2 || (*routes)[0] != "/login" || (*routes)[1] != "/login" {
		t.Fatalf("unexpected routes %v", *routes)
	}
}

func TestLogoutFailureMessage(t *testing.T) {
	svc, reporter, _, _ := newService(t, &fakeProvider{signOutErr: errors.New("boom")})
	if err := svc.Logout(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if reporter.last() != "Error logging out. Please try again." {
		t.Fatalf("unexpected status %q", reporter.last())
	}
}

func TestCancelNavigation(t *testing.T) {
	svc, _, fake, routes := newService(t, &fakeProvider{})
	_, _ = svc.Login(context.Background(), LoginForm{Email: "a@b.c", Password: "password1"})
	if !svc.CancelNavigation() {
		t.Fatal("expected a pending navigation")
	}
	fake.Advance(time.Minute)
	if len(*routes) != 0 {
		t.Fatalf("cancelled navigation fired: %v", *routes)
	}
}
