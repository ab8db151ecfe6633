package bulk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/adslwatch/internal/database"
	"github.com/nao1215/adslwatch/internal/model"
	"github.com/nao1215/adslwatch/internal/resolver"
	"github.com/nao1215/adslwatch/internal/textnorm"
)

const (
	// DefaultWorkers is the worker pool size when a job passes no limit.
	DefaultWorkers = 6

	// MaxRefreshWorkers caps RefreshAll.
	MaxRefreshWorkers = 64
)

// Store is the persistence the orchestrator needs.
// InsertCredential must return an error matching database.ErrDuplicate for a
// login that is already registered.
type Store interface {
	InsertCredential(ctx context.Context, loginName, secret, networkID, lineNumber string) (int64, error)
	SaveSnapshot(ctx context.Context, credentialID int64, snap model.AccountSnapshot) error
	ExistingLines(ctx context.Context, lines []string) (map[string]bool, error)
	CredentialByLogin(ctx context.Context, loginName string) (model.Credential, error)
	ListCredentials(ctx context.Context) ([]model.Credential, error)
}

// LineResolver finds the login name of a line.
type LineResolver interface {
	Resolve(ctx context.Context, rawLine, secret string) (*resolver.Resolution, error)
}

// SecretPolicy returns the portal secret to try for a line.
type SecretPolicy func(line string) string

// LineAsSecret is the portal's factory default: the secret equals the line.
func LineAsSecret(line string) string {
	return line
}

// Orchestrator runs bulk jobs.
type Orchestrator struct {
	store    Store
	resolver LineResolver
	runner   resolver.LoginRunner

	workers      int
	secret       SecretPolicy
	requiredPlan string
	itemTimeout  time.Duration
	logger       *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithWorkers sets the default worker pool size.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithSecretPolicy sets how the secret of a new line is chosen.
func WithSecretPolicy(p SecretPolicy) Option {
	return func(o *Orchestrator) {
		if p != nil {
			o.secret = p
		}
	}
}

// WithRequiredPlan rejects accounts whose plan text does not contain plan.
// Matching uses textnorm.Label on both sides.
func WithRequiredPlan(plan string) Option {
	return func(o *Orchestrator) {
		o.requiredPlan = plan
	}
}

// WithItemTimeout bounds the wall-clock time spent on one line.
func WithItemTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.itemTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New creates an Orchestrator.
func New(store Store, lines LineResolver, runner resolver.LoginRunner, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:    store,
		resolver: lines,
		runner:   runner,
		workers:  DefaultWorkers,
		secret:   LineAsSecret,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// item is the outcome of one line.
type item struct {
	ok        bool
	id        int64
	loginName string
	attempts  int
	reason    string
}

func failed(reason string) item {
	return item{reason: reason}
}

// ProcessLines registers lines whose login name is unknown. Each line is
// resolved, registered under networkID, and its first snapshot stored.
// The error is non-nil only when the registered-lines pre-check fails.
func (o *Orchestrator) ProcessLines(ctx context.Context, lines []string, networkID string, concurrency int) (*model.BulkJobResult, error) {
	keys := dedupe(lines)
	result, todo, err := o.prefilter(ctx, keys)
	if err != nil {
		return nil, err
	}

	o.logger.Info("starting registration",
		"lines", len(keys),
		"to_process", len(todo),
		"already_registered", len(keys)-len(todo),
	)

	o.run(ctx, todo, concurrency, result, func(ctx context.Context, line string) item {
		secret := o.secret(line)
		res, err := o.resolver.Resolve(ctx, line, secret)
		if err != nil {
			if errors.Is(err, resolver.ErrNotResolved) {
				return failed(model.ReasonNotResolved)
			}
			return failed(err.Error())
		}
		return o.register(ctx, line, res.LoginName, secret, networkID, res.Snapshot, res.Attempts)
	})

	result.Sort()
	return result, nil
}

// ProcessLinesWithUsernames registers lines whose login name is known.
// logins maps each line to its login name.
func (o *Orchestrator) ProcessLinesWithUsernames(ctx context.Context, logins map[string]string, networkID string, concurrency int) (*model.BulkJobResult, error) {
	byLine := make(map[string]string, len(logins))
	rawLines := make([]string, 0, len(logins))
	for line, loginName := range logins {
		key := resolver.NormalizeLine(line)
		if key == "" {
			continue
		}
		if _, seen := byLine[key]; !seen {
			rawLines = append(rawLines, key)
		}
		byLine[key] = strings.TrimSpace(textnorm.Digits(loginName))
	}

	result, todo, err := o.prefilter(ctx, dedupe(rawLines))
	if err != nil {
		return nil, err
	}

	o.logger.Info("starting registration with known logins",
		"lines", len(byLine),
		"to_process", len(todo),
	)

	o.run(ctx, todo, concurrency, result, func(ctx context.Context, line string) item {
		loginName := byLine[line]
		secret := o.secret(line)
		res := o.runner.Run(ctx, model.Credential{
			LoginName:  loginName,
			Secret:     secret,
			NetworkID:  networkID,
			LineNumber: line,
		})
		if !res.Succeeded() {
			it := failed(res.Reason)
			it.loginName = loginName
			it.attempts = res.Attempts
			return it
		}
		return o.register(ctx, line, loginName, secret, networkID, res.Snapshot, res.Attempts)
	})

	result.Sort()
	return result, nil
}

// RefreshAccount logs in as a registered account and stores a new snapshot.
// It returns false when the login failed.
func (o *Orchestrator) RefreshAccount(ctx context.Context, loginName string) (bool, error) {
	cred, err := o.store.CredentialByLogin(ctx, loginName)
	if err != nil {
		return false, err
	}
	return o.refresh(ctx, cred)
}

// RefreshAll refreshes every registered account and reports per login
// whether the refresh succeeded.
func (o *Orchestrator) RefreshAll(ctx context.Context, concurrency int) (map[string]bool, error) {
	creds, err := o.store.ListCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}

	if concurrency <= 0 {
		concurrency = o.workers
	}
	concurrency = min(concurrency, MaxRefreshWorkers)

	var (
		mu      sync.Mutex
		results = make(map[string]bool, len(creds))
		g       errgroup.Group
	)
	g.SetLimit(concurrency)

	for _, cred := range creds {
		g.Go(func() error {
			ok := false
			defer func() {
				if r := recover(); r != nil {
					o.logger.Error("refresh panicked", "login", cred.LoginName, "panic", r)
				}
				mu.Lock()
				results[cred.LoginName] = ok
				mu.Unlock()
			}()

			itemCtx, cancel := o.itemContext(ctx)
			defer cancel()

			var err error
			ok, err = o.refresh(itemCtx, cred)
			if err != nil {
				o.logger.Warn("refresh failed", "login", cred.LoginName, "error", err)
			}
			return nil
		})
	}
	// Goroutines never return errors.
	_ = g.Wait() //nolint:errcheck

	return results, nil
}

func (o *Orchestrator) refresh(ctx context.Context, cred model.Credential) (bool, error) {
	res := o.runner.Run(ctx, cred)
	if !res.Succeeded() {
		return false, nil
	}
	if err := o.store.SaveSnapshot(ctx, cred.ID, res.Snapshot); err != nil {
		return true, fmt.Errorf("save snapshot: %w", err)
	}
	return true, nil
}

// register applies the plan filter, stores the credential and its first
// snapshot.
func (o *Orchestrator) register(ctx context.Context, line, loginName, secret, networkID string, snap model.AccountSnapshot, attempts int) item {
	it := item{loginName: loginName, attempts: attempts}

	if !o.planAccepted(snap.PlanText) {
		it.reason = model.ReasonPlanMismatch
		return it
	}

	id, err := o.store.InsertCredential(ctx, loginName, secret, networkID, line)
	if err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			it.reason = model.ReasonDuplicate
		} else {
			it.reason = err.Error()
		}
		return it
	}

	if err := o.store.SaveSnapshot(ctx, id, snap); err != nil {
		o.logger.Warn("failed to save initial snapshot", "login", loginName, "error", err)
	}

	it.ok = true
	it.id = id
	it.reason = model.ReasonSuccess
	return it
}

func (o *Orchestrator) planAccepted(plan string) bool {
	if o.requiredPlan == "" {
		return true
	}
	return strings.Contains(textnorm.Label(plan), textnorm.Label(o.requiredPlan))
}

// prefilter marks already registered lines as failed and returns the rest.
func (o *Orchestrator) prefilter(ctx context.Context, keys []string) (*model.BulkJobResult, []string, error) {
	existing, err := o.store.ExistingLines(ctx, keys)
	if err != nil {
		return nil, nil, fmt.Errorf("check registered lines: %w", err)
	}

	result := model.NewBulkJobResult()
	todo := make([]string, 0, len(keys))
	for _, key := range keys {
		if existing[key] {
			result.AddFailure(key, model.ReasonAlreadyExists, model.AttemptRecord{})
			continue
		}
		todo = append(todo, key)
	}
	return result, todo, nil
}

// run processes keys on a bounded pool and records every outcome.
func (o *Orchestrator) run(ctx context.Context, keys []string, concurrency int, result *model.BulkJobResult, work func(context.Context, string) item) {
	if concurrency <= 0 {
		concurrency = o.workers
	}

	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, key := range keys {
		g.Go(func() error {
			o.logger.Debug("processing line", "line", key, "index", i+1, "total", len(keys))
			o.runItem(ctx, key, result, work)
			return nil
		})
	}
	// Goroutines never return errors; failures are recorded per line.
	_ = g.Wait() //nolint:errcheck
}

func (o *Orchestrator) runItem(ctx context.Context, key string, result *model.BulkJobResult, work func(context.Context, string) item) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("line panicked", "line", key, "panic", r)
			result.AddFailure(key, fmt.Sprintf("panic: %v", r), model.AttemptRecord{Duration: time.Since(start)})
		}
	}()

	itemCtx, cancel := o.itemContext(ctx)
	defer cancel()

	it := work(itemCtx, key)
	rec := model.AttemptRecord{
		LoginName: it.loginName,
		Attempts:  it.attempts,
		Duration:  time.Since(start),
	}
	if it.ok {
		result.AddSuccess(key, it.id, rec)
		return
	}
	o.logger.Debug("line failed", "line", key, "reason", it.reason)
	result.AddFailure(key, it.reason, rec)
}

func (o *Orchestrator) itemContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.itemTimeout > 0 {
		return context.WithTimeout(ctx, o.itemTimeout)
	}
	return context.WithCancel(ctx)
}

// dedupe normalizes lines and drops empties and repeats, keeping order.
func dedupe(lines []string) []string {
	seen := make(map[string]bool, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		key := resolver.NormalizeLine(line)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}
