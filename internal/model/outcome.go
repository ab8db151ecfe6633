package model

// OutcomeKind classifies the result of one login attempt.
type OutcomeKind int

const (
	// OutcomeTransientFailure indicates a retryable failure: a network error,
	// or a response that neither showed the account nor asked for a CAPTCHA.
	OutcomeTransientFailure OutcomeKind = iota

	// OutcomeAlreadyAuthenticated indicates the login page already showed the
	// account table, so no credentials were posted.
	OutcomeAlreadyAuthenticated

	// OutcomeSuccess indicates the account table was extracted after posting
	// credentials (and possibly a CAPTCHA answer).
	OutcomeSuccess

	// OutcomeCaptchaRequired indicates a CAPTCHA challenge could not be
	// answered in this attempt. It is retryable.
	OutcomeCaptchaRequired

	// OutcomeLayoutMismatch indicates the login form could not be understood.
	// It is not retryable.
	OutcomeLayoutMismatch
)

// String returns a short name for the outcome kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeTransientFailure:
		return "transient_failure"
	case OutcomeAlreadyAuthenticated:
		return "already_authenticated"
	case OutcomeSuccess:
		return "success"
	case OutcomeCaptchaRequired:
		return "captcha_required"
	case OutcomeLayoutMismatch:
		return "layout_mismatch"
	default:
		return "unknown"
	}
}

// Succeeded reports whether the kind carries a usable snapshot.
func (k OutcomeKind) Succeeded() bool {
	return k == OutcomeSuccess || k == OutcomeAlreadyAuthenticated
}

// Retryable reports whether another attempt may change the result.
func (k OutcomeKind) Retryable() bool {
	return k == OutcomeTransientFailure || k == OutcomeCaptchaRequired
}

// AttemptOutcome is the transient result of a single login attempt.
type AttemptOutcome struct {
	// Kind classifies the outcome.
	Kind OutcomeKind

	// Snapshot is set when Kind.Succeeded() is true.
	Snapshot AccountSnapshot

	// Cause describes why the attempt did not succeed. Nil on success.
	Cause error
}
