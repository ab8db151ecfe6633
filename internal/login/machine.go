package login

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nao1215/adslwatch/internal/captcha"
	"github.com/nao1215/adslwatch/internal/model"
	"github.com/nao1215/adslwatch/internal/portal"
	"github.com/nao1215/adslwatch/internal/session"
)

// Defaults applied by NewMachine.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	DefaultFactor      = 1.5
)

// Sessions hands out the portal session for a login key.
type Sessions interface {
	Acquire(key string) *session.Handle
}

// Recorder receives one entry per finished run.
type Recorder interface {
	RecordLog(ctx context.Context, cred model.Credential, result, details string) error
}

// Result is the outcome of a Run.
type Result struct {
	// Snapshot is set when Outcome succeeded.
	Snapshot model.AccountSnapshot

	// Outcome is the kind of the last attempt.
	Outcome model.OutcomeKind

	// Reason is the terminal reason written to the recorder.
	Reason string

	// Attempts counts started attempts.
	Attempts int

	// Backoffs counts the waits between attempts.
	Backoffs int

	// CaptchaCalls counts solver invocations.
	CaptchaCalls int

	// LastCause is the error of the last failed attempt, if any.
	LastCause error
}

// Succeeded reports whether the run produced a snapshot.
func (r Result) Succeeded() bool {
	return r.Outcome.Succeeded()
}

// Machine drives logins. It holds no per-run state and is safe for
// concurrent use.
type Machine struct {
	sessions Sessions
	adapter  portal.Adapter
	solver   captcha.Solver
	loginURL string

	maxAttempts int
	baseDelay   time.Duration
	factor      float64
	sleep       func(ctx context.Context, d time.Duration) error

	recorder Recorder
	logger   *slog.Logger
}

// Option configures a Machine.
type Option func(*Machine)

// WithMaxAttempts sets how many attempts one run makes.
func WithMaxAttempts(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

// WithBackoff sets the first delay and its growth factor.
func WithBackoff(base time.Duration, factor float64) Option {
	return func(m *Machine) {
		if base >= 0 {
			m.baseDelay = base
		}
		if factor >= 1 {
			m.factor = factor
		}
	}
}

// WithSleep replaces the backoff wait.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(m *Machine) {
		if sleep != nil {
			m.sleep = sleep
		}
	}
}

// WithRecorder sets where terminal results are written.
func WithRecorder(r Recorder) Option {
	return func(m *Machine) {
		m.recorder = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// NewMachine creates a machine for the portal at loginURL.
func NewMachine(sessions Sessions, adapter portal.Adapter, solver captcha.Solver, loginURL string, opts ...Option) (*Machine, error) {
	if loginURL == "" {
		return nil, ErrNoLoginURL
	}
	m := &Machine{
		sessions:    sessions,
		adapter:     adapter,
		solver:      solver,
		loginURL:    loginURL,
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		factor:      DefaultFactor,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m, nil
}

// Run logs cred in and returns the account snapshot on success.
// ctx is checked between round trips; when it ends, the run stops with
// the context error as reason.
func (m *Machine) Run(ctx context.Context, cred model.Credential) Result {
	logger := m.logger.With("login", cred.LoginName)
	handle := m.sessions.Acquire(cred.LoginName)

	var res Result
	delay := m.baseDelay

	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return m.finish(ctx, cred, res, err.Error())
		}

		res.Attempts = attempt
		out := m.attempt(ctx, handle, cred, &res)
		res.Outcome = out.Kind

		switch out.Kind {
		case model.OutcomeSuccess, model.OutcomeAlreadyAuthenticated:
			res.Snapshot = out.Snapshot
			res.LastCause = nil
			logger.Debug("login succeeded", "attempt", attempt, "outcome", out.Kind.String())
			return m.finish(ctx, cred, res, model.ReasonSuccess)
		case model.OutcomeLayoutMismatch:
			res.LastCause = out.Cause
			logger.Warn("login form not recognized", "error", out.Cause)
			return m.finish(ctx, cred, res, model.ReasonLoginFieldsNotFound)
		}

		res.LastCause = out.Cause
		logger.Debug("login attempt failed",
			"attempt", attempt,
			"outcome", out.Kind.String(),
			"error", out.Cause,
		)

		if attempt == m.maxAttempts {
			break
		}
		if err := m.sleep(ctx, delay); err != nil {
			return m.finish(ctx, cred, res, err.Error())
		}
		res.Backoffs++
		delay = time.Duration(float64(delay) * m.factor)
	}

	if err := ctx.Err(); err != nil {
		return m.finish(ctx, cred, res, err.Error())
	}
	return m.finish(ctx, cred, res, model.ReasonMaxAttempts)
}

// attempt performs one pass of the state machine.
func (m *Machine) attempt(ctx context.Context, h *session.Handle, cred model.Credential, res *Result) model.AttemptOutcome {
	page, err := h.Get(ctx, m.loginURL)
	if err != nil {
		return transient(err)
	}
	if snap, ok := m.adapter.ParseSnapshot(page.Body); ok {
		return model.AttemptOutcome{Kind: model.OutcomeAlreadyAuthenticated, Snapshot: snap}
	}

	form, err := m.adapter.ExtractLoginForm(page.Body)
	if err != nil {
		if errors.Is(err, portal.ErrLoginFieldsNotFound) {
			return model.AttemptOutcome{Kind: model.OutcomeLayoutMismatch, Cause: err}
		}
		return transient(err)
	}
	if err := ctx.Err(); err != nil {
		return transient(err)
	}

	page, err = h.PostForm(ctx, m.loginURL, form.WithCredentials(cred.LoginName, cred.Secret))
	if err != nil {
		return transient(err)
	}
	if snap, ok := m.adapter.ParseSnapshot(page.Body); ok {
		return model.AttemptOutcome{Kind: model.OutcomeSuccess, Snapshot: snap}
	}

	challenge, ok := m.adapter.DetectCaptcha(page.Body)
	if !ok {
		return transient(ErrNoSnapshot)
	}
	return m.answerCaptcha(ctx, h, cred, page, challenge, res)
}

// answerCaptcha downloads, solves, and posts one CAPTCHA challenge.
func (m *Machine) answerCaptcha(ctx context.Context, h *session.Handle, cred model.Credential, page *session.Page, challenge *portal.Challenge, res *Result) model.AttemptOutcome {
	image, err := m.fetchImage(ctx, h, page.URL, challenge)
	if err != nil {
		return captchaRequired(err)
	}

	res.CaptchaCalls++
	answer, err := m.solver.Solve(ctx, image)
	if err != nil {
		return captchaRequired(fmt.Errorf("solve captcha: %w", err))
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return captchaRequired(ErrEmptyCaptcha)
	}
	if err := ctx.Err(); err != nil {
		return transient(err)
	}

	values := m.adapter.CaptchaSubmission(page.Body, cred, answer)
	next, err := h.PostForm(ctx, m.loginURL, values)
	if err != nil {
		return transient(err)
	}
	if snap, ok := m.adapter.ParseSnapshot(next.Body); ok {
		return model.AttemptOutcome{Kind: model.OutcomeSuccess, Snapshot: snap}
	}
	return captchaRequired(ErrCaptchaRejected)
}

func (m *Machine) fetchImage(ctx context.Context, h *session.Handle, pageURL string, challenge *portal.Challenge) ([]byte, error) {
	if challenge.IsInline() {
		return challenge.InlineImage()
	}
	imageURL, err := challenge.ImageURL(pageURL)
	if err != nil {
		return nil, err
	}
	img, err := h.Get(ctx, imageURL)
	if err != nil {
		return nil, fmt.Errorf("download captcha: %w", err)
	}
	return img.Body, nil
}

// finish records the terminal reason and returns res.
func (m *Machine) finish(ctx context.Context, cred model.Credential, res Result, reason string) Result {
	res.Reason = reason
	if m.recorder == nil {
		return res
	}

	details := fmt.Sprintf("attempts=%d captcha_calls=%d", res.Attempts, res.CaptchaCalls)
	if res.LastCause != nil {
		details += " last_error=" + res.LastCause.Error()
	}

	// The run's context may already be done; the log entry is still written.
	if err := m.recorder.RecordLog(context.WithoutCancel(ctx), cred, reason, details); err != nil {
		m.logger.Warn("failed to record login result", "login", cred.LoginName, "error", err)
	}
	return res
}

func transient(err error) model.AttemptOutcome {
	return model.AttemptOutcome{Kind: model.OutcomeTransientFailure, Cause: err}
}

func captchaRequired(err error) model.AttemptOutcome {
	return model.AttemptOutcome{Kind: model.OutcomeCaptchaRequired, Cause: err}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
