package model

import (
	"sort"
	"sync"
	"time"
)

// Reason strings recorded in login logs and bulk job results.
// Callers at the presentation layer map these to localized messages.
const (
	ReasonSuccess             = "success"
	ReasonLoginFieldsNotFound = "login_fields_not_found"
	ReasonEmptyCaptcha        = "empty captcha"
	ReasonMaxAttempts         = "max attempts reached"
	ReasonAlreadyExists       = "already exists"
	ReasonDuplicate           = "duplicate"
	ReasonNotResolved         = "username not resolved"
	ReasonPlanMismatch        = "plan mismatch"
)

// SucceededItem identifies one successfully processed bulk job input.
type SucceededItem struct {
	// Key is the input key (the line number).
	Key string `json:"key"`

	// ID is the persistence identifier of the stored credential.
	ID int64 `json:"id"`
}

// AttemptRecord describes how one bulk job item was processed.
type AttemptRecord struct {
	// Key is the input key (the line number).
	Key string `json:"key"`

	// LoginName is the login name that was used or resolved.
	// Empty when resolution failed.
	LoginName string `json:"login_name,omitempty"`

	// Success reports whether the item ended in Succeeded.
	Success bool `json:"success"`

	// Reason is ReasonSuccess or the failure reason.
	Reason string `json:"reason"`

	// Attempts is the number of login attempts made for the winning
	// credential, or for the last failing one.
	Attempts int `json:"attempts,omitempty"`

	// Duration is the wall-clock time spent on the item.
	Duration time.Duration `json:"duration"`
}

// BulkJobResult aggregates the outcome of a bulk job.
// Succeeded and Failed partition the job input: a key appears in exactly
// one of them. It is safe for concurrent use while the job runs.
type BulkJobResult struct {
	// Succeeded lists the keys that were registered or refreshed.
	Succeeded []SucceededItem `json:"succeeded"`

	// Failed lists the keys that did not succeed.
	Failed []string `json:"failed"`

	// FailureReasons maps each failed key to its reason.
	FailureReasons map[string]string `json:"failure_reasons"`

	// PerItem contains one record per processed input.
	PerItem []AttemptRecord `json:"per_item"`

	mu sync.Mutex
}

// NewBulkJobResult creates an empty result.
func NewBulkJobResult() *BulkJobResult {
	return &BulkJobResult{
		Succeeded:      make([]SucceededItem, 0),
		Failed:         make([]string, 0),
		FailureReasons: make(map[string]string),
		PerItem:        make([]AttemptRecord, 0),
	}
}

// AddSuccess records a succeeded key.
func (r *BulkJobResult) AddSuccess(key string, id int64, rec AttemptRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec.Key = key
	rec.Success = true
	rec.Reason = ReasonSuccess
	r.Succeeded = append(r.Succeeded, SucceededItem{Key: key, ID: id})
	r.PerItem = append(r.PerItem, rec)
}

// AddFailure records a failed key with its reason.
func (r *BulkJobResult) AddFailure(key, reason string, rec AttemptRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec.Key = key
	rec.Success = false
	rec.Reason = reason
	r.Failed = append(r.Failed, key)
	r.FailureReasons[key] = reason
	r.PerItem = append(r.PerItem, rec)
}

// Total returns the number of keys recorded so far.
func (r *BulkJobResult) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Succeeded) + len(r.Failed)
}

// ReasonCounts returns how many failed keys share each reason.
func (r *BulkJobResult) ReasonCounts() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[string]int, len(r.FailureReasons))
	for _, reason := range r.FailureReasons {
		counts[reason]++
	}
	return counts
}

// Sort orders all slices by key so that output is stable.
// Workers finish in arbitrary order.
func (r *BulkJobResult) Sort() {
	r.mu.Lock()
	defer r.mu.Unlock()

	sort.Slice(r.Succeeded, func(i, j int) bool { return r.Succeeded[i].Key < r.Succeeded[j].Key })
	sort.Strings(r.Failed)
	sort.Slice(r.PerItem, func(i, j int) bool { return r.PerItem[i].Key < r.PerItem[j].Key })
}
