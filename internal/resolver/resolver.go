package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/adslwatch/internal/login"
	"github.com/nao1215/adslwatch/internal/model"
)

// DefaultConcurrency is the number of candidates tried at once.
const DefaultConcurrency = 4

// LoginRunner runs one login. *login.Machine implements it.
type LoginRunner interface {
	Run(ctx context.Context, cred model.Credential) login.Result
}

// Resolution is a resolved line.
type Resolution struct {
	// LoginName is the candidate that logged in.
	LoginName string

	// LineNumber is the normalized line.
	LineNumber string

	// Snapshot is the account state seen by the winning login.
	Snapshot model.AccountSnapshot

	// Candidates lists every candidate that was generated.
	Candidates []string

	// Attempts is the winning run's attempt count.
	Attempts int
}

// Resolver races logins for all candidates of a line.
type Resolver struct {
	runner      LoginRunner
	concurrency int
	logger      *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithConcurrency sets how many candidates run at once.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// New creates a Resolver.
func New(runner LoginRunner, opts ...Option) *Resolver {
	r := &Resolver{
		runner:      runner,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Resolve logs in with every candidate of rawLine using secret and returns
// the first that succeeds. Once a winner is known the remaining runs are
// cancelled and candidates not yet started are skipped.
// It returns ErrNotResolved when every candidate failed.
func (r *Resolver) Resolve(ctx context.Context, rawLine, secret string) (*Resolution, error) {
	line := NormalizeLine(rawLine)
	candidates := GenerateCandidates(rawLine)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: line %q", ErrNoCandidates, rawLine)
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		once   sync.Once
		winner *Resolution
		g      errgroup.Group
	)
	g.SetLimit(r.concurrency)

	for _, candidate := range candidates {
		if raceCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if raceCtx.Err() != nil {
				return nil
			}
			res := r.runner.Run(raceCtx, model.Credential{
				LoginName:  candidate,
				Secret:     secret,
				LineNumber: line,
			})
			if !res.Succeeded() {
				r.logger.Debug("candidate rejected",
					"line", line,
					"candidate", candidate,
					"reason", res.Reason,
				)
				return nil
			}
			once.Do(func() {
				winner = &Resolution{
					LoginName:  candidate,
					LineNumber: line,
					Snapshot:   res.Snapshot,
					Candidates: candidates,
					Attempts:   res.Attempts,
				}
				cancel()
			})
			return nil
		})
	}
	// Goroutines never return errors; failures are per candidate.
	_ = g.Wait() //nolint:errcheck

	if winner != nil {
		r.logger.Debug("line resolved", "line", line, "login", winner.LoginName)
		return winner, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: line %q, %d candidates", ErrNotResolved, line, len(candidates))
}
