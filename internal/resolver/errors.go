package resolver

import (
	"errors"
	"fmt"

	"github.com/nao1215/adslwatch/internal/model"
)

var (
	// ErrNotResolved is returned when no candidate login succeeded.
	ErrNotResolved = errors.New(model.ReasonNotResolved)

	// ErrNoCandidates is returned when the line yields no valid candidate.
	// It wraps ErrNotResolved.
	ErrNoCandidates = fmt.Errorf("%w: no valid candidates", ErrNotResolved)
)
