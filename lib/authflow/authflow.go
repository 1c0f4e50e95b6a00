// Package authflow drives a headless browser through a credentials + TOTP
// login sequence and hands back an authenticated Session for downstream
// content extraction.
package authflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"siteharvest/lib/totp"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("siteharvest.lib.authflow")

// Driver is the surface of a live browser page the login flow needs.
// *browser.Page implements it.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	// Fill types value into the first input matching one of the candidate
	// selectors and reports the selector that matched.
	Fill(ctx context.Context, selectors []string, value string) (string, error)
	// Submit clicks the first button matching one of the candidate selectors.
	Submit(ctx context.Context, selectors []string) (string, error)
	CurrentURL(ctx context.Context) (string, error)
	Close() error
}

// Credentials are loaded once at startup, live in memory only and are never
// logged. The slog.LogValuer implementation keeps the secrets out of any
// log line that formats the struct.
type Credentials struct {
	Username string
	Password string
	TotpSeed string
}

func (c Credentials) Validate() error {
	if c.Username == "" {
		return fmt.Errorf("%w: username is empty", ErrEnvironment)
	}
	if c.Password == "" {
		return fmt.Errorf("%w: password is empty", ErrEnvironment)
	}
	if err := totp.ValidateSeed(c.TotpSeed); err != nil {
		return fmt.Errorf("%w: %v", ErrEnvironment, err)
	}
	return nil
}

func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", c.Username),
		slog.String("password", "<redacted>"),
		slog.String("totp_seed", "<redacted>"),
	)
}

type Options struct {
	LoginUrl string
	// candidate selector lists, first match wins; zero values take the
	// defaults in selectors.go
	UsernameSelectors []string
	PasswordSelectors []string
	TotpSelectors     []string
	SubmitSelectors   []string
	// how long to wait for a post-login indicator before giving up
	ConfirmTimeout time.Duration
}

const defaultConfirmTimeout = 25 * time.Second

// Acquirer produces authenticated Sessions. Launch is called once per
// Acquire and the returned driver is owned by the flow: it is released on
// every failure path, on success ownership moves to the Session.
type Acquirer struct {
	Launch  func(ctx context.Context) (Driver, error)
	Options Options

	// test hooks
	Now          func() time.Time
	PollInterval time.Duration
}

func NewAcquirer(launch func(ctx context.Context) (Driver, error), opts Options) *Acquirer {
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = defaultConfirmTimeout
	}
	if len(opts.UsernameSelectors) == 0 {
		opts.UsernameSelectors = DefaultUsernameSelectors
	}
	if len(opts.PasswordSelectors) == 0 {
		opts.PasswordSelectors = DefaultPasswordSelectors
	}
	if len(opts.TotpSelectors) == 0 {
		opts.TotpSelectors = DefaultTotpSelectors
	}
	if len(opts.SubmitSelectors) == 0 {
		opts.SubmitSelectors = DefaultSubmitSelectors
	}
	return &Acquirer{
		Launch:       launch,
		Options:      opts,
		Now:          time.Now,
		PollInterval: 500 * time.Millisecond,
	}
}

// Session is an opaque handle to an authenticated browser context. It owns
// the underlying browser until Close, which releases it exactly once.
type Session struct {
	driver     Driver
	acquiredAt time.Time

	closeOnce sync.Once
	closeErr  error
}

func (s *Session) Driver() Driver        { return s.driver }
func (s *Session) AcquiredAt() time.Time { return s.acquiredAt }

func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.driver.Close()
	})
	return s.closeErr
}

func (a *Acquirer) transition(ctx context.Context, span trace.Span, s State) {
	span.AddEvent(s.String())
	slog.DebugContext(ctx, "login flow state", "state", s.String())
}

// Acquire runs the login flow against a fresh browser. Failures carry one of
// the package sentinels: ErrEnvironment is an environment defect worth
// alerting on, ErrLoginRejected means the credentials themselves were
// refused, ErrTotpWindowMissed means the second factor expired even after a
// retry, ErrTimeout means the flow never confirmed and the whole job can
// simply be retried later.
func (a *Acquirer) Acquire(ctx context.Context, creds Credentials) (session *Session, err error) {
	ctx, span := tracer.Start(ctx, "authflow:Acquire")
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to acquire session")
		}
	}()

	if err := creds.Validate(); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("username", creds.Username))

	a.transition(ctx, span, StateLaunching)
	driver, err := a.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnvironment, err)
	}
	// guaranteed release on every failure path, success hands the driver
	// to the session below
	defer func() {
		if err != nil {
			if closeErr := driver.Close(); closeErr != nil {
				slog.ErrorContext(ctx, "failed to release browser", "err", closeErr)
			}
		}
	}()

	a.transition(ctx, span, StateSubmittingCredentials)
	if err := driver.Navigate(ctx, a.Options.LoginUrl); err != nil {
		return nil, fmt.Errorf("%w: failed to reach login page: %v", ErrTimeout, err)
	}
	if _, err := driver.Fill(ctx, a.Options.UsernameSelectors, creds.Username); err != nil {
		return nil, fmt.Errorf("%w: could not find username field: %v", ErrTimeout, err)
	}
	if _, err := driver.Fill(ctx, a.Options.PasswordSelectors, creds.Password); err != nil {
		return nil, fmt.Errorf("%w: could not find password field: %v", ErrTimeout, err)
	}

	a.transition(ctx, span, StateSubmittingTotp)
	code, err := a.submitTotp(ctx, span, driver, creds)
	if err != nil {
		return nil, err
	}
	if _, err := driver.Submit(ctx, a.Options.SubmitSelectors); err != nil {
		return nil, fmt.Errorf("%w: could not find submit button: %v", ErrTimeout, err)
	}

	a.transition(ctx, span, StateAwaitingConfirmation)
	if err := a.awaitConfirmation(ctx, span, driver, creds, code); err != nil {
		return nil, err
	}

	a.transition(ctx, span, StateAuthenticated)
	slog.InfoContext(ctx, "session acquired", "credentials", creds)
	return &Session{driver: driver, acquiredAt: a.Now()}, nil
}

// submitTotp fills the second factor prompt, handling sites that ask for the
// code on the login form itself as well as sites that only reveal the prompt
// after the credentials are submitted. Codes are generated right before they
// are typed, never earlier.
func (a *Acquirer) submitTotp(ctx context.Context, span trace.Span, driver Driver, creds Credentials) (totp.Code, error) {
	code, err := totp.Generate(creds.TotpSeed, a.Now())
	if err != nil {
		return totp.Code{}, fmt.Errorf("%w: %v", ErrEnvironment, err)
	}
	if _, fillErr := driver.Fill(ctx, a.Options.TotpSelectors, code.Value); fillErr == nil {
		span.AddEvent("totp prompt on login form")
		return code, nil
	}

	// the prompt might only appear after the credentials go through
	if _, err := driver.Submit(ctx, a.Options.SubmitSelectors); err != nil {
		return totp.Code{}, fmt.Errorf("%w: could not find submit button: %v", ErrTimeout, err)
	}

	// regenerate, the page transition may have eaten into the window
	code, err = totp.Generate(creds.TotpSeed, a.Now())
	if err != nil {
		return totp.Code{}, fmt.Errorf("%w: %v", ErrEnvironment, err)
	}
	if _, fillErr := driver.Fill(ctx, a.Options.TotpSelectors, code.Value); fillErr != nil {
		// no second factor prompt after submitting credentials means the
		// service refused them, a retry will not change that
		return totp.Code{}, fmt.Errorf("%w: no second factor prompt after submitting credentials", ErrLoginRejected)
	}
	span.AddEvent("totp prompt after credential submit")
	return code, nil
}

// awaitConfirmation polls for a post-login indicator. It owns the single
// permitted TOTP retry: if the submitted code's validity window lapses while
// the flow is still unconfirmed, one fresh code is generated and submitted,
// a second lapse is a timing failure.
func (a *Acquirer) awaitConfirmation(ctx context.Context, span trace.Span, driver Driver, creds Credentials, code totp.Code) error {
	deadline := a.Now().Add(a.Options.ConfirmTimeout)
	retried := false

	for {
		currentUrl, err := driver.CurrentURL(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrEnvironment, err)
		}
		if loginConfirmed(currentUrl, a.Options.LoginUrl) {
			span.SetAttributes(attribute.String("confirmed_url", currentUrl))
			return nil
		}

		now := a.Now()
		if code.Expired(now) {
			if retried {
				return fmt.Errorf("%w: retry code expired before the service confirmed it", ErrTotpWindowMissed)
			}
			retried = true
			span.AddEvent("totp window missed, retrying with a fresh code")
			slog.WarnContext(ctx, "totp window missed, submitting a fresh code")

			code, err = totp.Generate(creds.TotpSeed, now)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrEnvironment, err)
			}
			if _, fillErr := driver.Fill(ctx, a.Options.TotpSelectors, code.Value); fillErr == nil {
				if _, err := driver.Submit(ctx, a.Options.SubmitSelectors); err != nil {
					return fmt.Errorf("%w: could not find submit button: %v", ErrTimeout, err)
				}
				continue
			}
			// prompt gone but no confirmation yet, a redirect may still be
			// in flight, keep polling
		}

		if now.After(deadline) {
			return fmt.Errorf("%w: no post-login indicator after %s, last url %s",
				ErrTimeout, a.Options.ConfirmTimeout, currentUrl)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("login confirmation: %w", ctx.Err())
		case <-time.After(a.PollInterval):
		}
	}
}
