package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/net/proxy"
	"golang.org/x/time/rate"

	"github.com/nao1215/adslwatch/internal/bulk"
	"github.com/nao1215/adslwatch/internal/captcha"
	"github.com/nao1215/adslwatch/internal/config"
	"github.com/nao1215/adslwatch/internal/database"
	"github.com/nao1215/adslwatch/internal/login"
	"github.com/nao1215/adslwatch/internal/portal"
	"github.com/nao1215/adslwatch/internal/resolver"
	"github.com/nao1215/adslwatch/internal/session"
	"github.com/nao1215/adslwatch/internal/tor"
)

// probeTimeout bounds the CAPTCHA service health check run by Start.
const probeTimeout = 5 * time.Second

// Store is the persistence the engine needs: the orchestrator's store plus
// the machine's login log.
type Store interface {
	bulk.Store
	login.Recorder
}

// Engine is the assembled account-resolution engine.
type Engine struct {
	cfg    *config.Config
	logger *slog.Logger

	store   Store
	db      *database.AccountDB
	egress  *tor.Egress
	pool    *session.Pool
	captcha *captcha.Client
	adapter *portal.HTMLAdapter
	machine *login.Machine
	names   *resolver.Resolver
	bulk    *bulk.Orchestrator

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

// Option configures New.
type Option func(*options)

type options struct {
	logger *slog.Logger
	store  Store
	solver captcha.Solver
	dialer proxy.Dialer
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStore uses store instead of opening the SQLite database in
// cfg.DBDir. The engine does not close a store it did not open.
func WithStore(store Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithSolver replaces the HTTP CAPTCHA client. The solver is still
// serialized.
func WithSolver(solver captcha.Solver) Option {
	return func(o *options) {
		o.solver = solver
	}
}

// WithDialer routes portal traffic through d instead of the egress chosen
// by the config.
func WithDialer(d proxy.Dialer) Option {
	return func(o *options) {
		o.dialer = d
	}
}

// New validates cfg and builds an Engine. ctx bounds the setup only: the
// egress check and, when enabled, the embedded Tor bootstrap.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.RequirePortal(); err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	e := &Engine{cfg: cfg, logger: o.logger}
	ok := false
	defer func() {
		if !ok {
			_ = e.Close() //nolint:errcheck // Best effort cleanup
		}
	}()

	if err := e.initStore(o.store); err != nil {
		return nil, err
	}
	dialer, err := e.initEgress(ctx, o.dialer)
	if err != nil {
		return nil, err
	}

	e.pool = session.NewPool(e.poolOptions(dialer)...)

	solver := o.solver
	if solver == nil {
		client, err := captcha.NewClient(cfg.CaptchaURL,
			captcha.WithTimeout(cfg.CaptchaTimeout),
			captcha.WithLogger(o.logger),
		)
		if err != nil {
			return nil, err
		}
		e.captcha = client
		solver = client
	}

	e.adapter, err = portal.NewHTMLAdapter(cfg.Layout)
	if err != nil {
		return nil, fmt.Errorf("portal layout: %w", err)
	}

	e.machine, err = login.NewMachine(e.pool, e.adapter, captcha.NewSerialized(solver), cfg.PortalURL,
		login.WithMaxAttempts(cfg.MaxAttempts),
		login.WithBackoff(cfg.BaseDelay, cfg.BackoffFactor),
		login.WithRecorder(e.store),
		login.WithLogger(o.logger),
	)
	if err != nil {
		return nil, err
	}

	e.names = resolver.New(e.machine,
		resolver.WithConcurrency(cfg.ResolverConcurrency),
		resolver.WithLogger(o.logger),
	)

	e.bulk = bulk.New(e.store, e.names, e.machine, e.bulkOptions()...)

	ok = true
	return e, nil
}

func (e *Engine) initStore(store Store) error {
	if store != nil {
		e.store = store
		return nil
	}
	db, err := database.Open(e.cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	e.db = db
	e.store = db
	return nil
}

func (e *Engine) initEgress(ctx context.Context, dialer proxy.Dialer) (proxy.Dialer, error) {
	if dialer != nil {
		return dialer, nil
	}
	egress, err := tor.OpenEgress(ctx, tor.EgressConfig{
		ProxyAddress:   e.cfg.ProxyAddress,
		Embedded:       e.cfg.UseEmbeddedTor,
		StartupTimeout: e.cfg.TorStartupTimeout,
	}, e.logger)
	if err != nil {
		return nil, fmt.Errorf("egress: %w", err)
	}
	e.egress = egress
	return egress.Dialer(), nil
}

func (e *Engine) poolOptions(dialer proxy.Dialer) []session.Option {
	opts := []session.Option{
		session.WithTTL(e.cfg.SessionTTL),
		session.WithTimeout(e.cfg.Timeout),
		session.WithMaxBodySize(e.cfg.MaxBodySize),
		session.WithUserAgent(e.cfg.UserAgent),
		session.WithRetry(e.cfg.HTTPRetries, 0),
		session.WithLogger(e.logger),
	}
	if dialer != nil {
		opts = append(opts, session.WithDialer(dialer))
	}
	if e.cfg.RateLimit > 0 {
		opts = append(opts, session.WithRateLimit(rate.Limit(e.cfg.RateLimit), 1))
	}
	return opts
}

func (e *Engine) bulkOptions() []bulk.Option {
	opts := []bulk.Option{
		bulk.WithWorkers(e.cfg.Workers),
		bulk.WithRequiredPlan(e.cfg.RequiredPlan),
		bulk.WithItemTimeout(e.cfg.ItemTimeout),
		bulk.WithLogger(e.logger),
	}
	if secret := e.cfg.DefaultSecret; secret != "" {
		opts = append(opts, bulk.WithSecretPolicy(func(string) string { return secret }))
	}
	return opts
}

// Start launches the session sweeper and a CAPTCHA service health check.
// A failing health check is logged and otherwise ignored. Calling Start
// twice is a no-op.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if e.cancel != nil {
		return nil
	}

	ctx, e.cancel = context.WithCancel(ctx)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.pool.Run(ctx, e.cfg.SweepInterval)
	}()

	if e.captcha != nil {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
			defer cancel()
			if err := e.captcha.Probe(probeCtx); err != nil {
				e.logger.Warn("captcha service is not healthy", "url", e.cfg.CaptchaURL, "error", err)
			}
		}()
	}
	return nil
}

// Close stops background work and releases sessions, the egress, and the
// database if the engine opened it. It is safe to call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	if e.cancel != nil {
		e.cancel()
	}
	e.mu.Unlock()

	e.wg.Wait()

	var errs []error
	if e.pool != nil {
		e.pool.Close()
	}
	if e.egress != nil {
		if err := e.egress.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close egress: %w", err))
		}
	}
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Orchestrator returns the bulk job API.
func (e *Engine) Orchestrator() *bulk.Orchestrator {
	return e.bulk
}

// Resolver returns the username resolver.
func (e *Engine) Resolver() *resolver.Resolver {
	return e.names
}

// Machine returns the per-account login machine.
func (e *Engine) Machine() *login.Machine {
	return e.machine
}

// Sessions returns the session pool.
func (e *Engine) Sessions() *session.Pool {
	return e.pool
}

// Store returns the persistence collaborator.
func (e *Engine) Store() Store {
	return e.store
}
