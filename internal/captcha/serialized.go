package captcha

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Serialized lets one inference call run at a time across all callers.
// The model server is single-threaded and queues badly under load.
type Serialized struct {
	solver Solver
	slot   *semaphore.Weighted
}

var _ Solver = (*Serialized)(nil)

// NewSerialized wraps solver.
func NewSerialized(solver Solver) *Serialized {
	return &Serialized{solver: solver, slot: semaphore.NewWeighted(1)}
}

// Solve waits for the slot, honouring ctx, then delegates.
func (s *Serialized) Solve(ctx context.Context, image []byte) (string, error) {
	if err := s.slot.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer s.slot.Release(1)
	return s.solver.Solve(ctx, image)
}
