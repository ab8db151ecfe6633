package report

import (
	"io"
	"sort"
	"time"

	"github.com/nao1215/adslwatch/internal/model"
)

// Writer renders reports.
type Writer interface {
	// WriteJob outputs the result of a registration job.
	WriteJob(report *JobReport) (int, error)

	// WriteRefresh outputs the result of a refresh run.
	WriteRefresh(report *RefreshReport) (int, error)
}

// Format selects a Writer.
type Format int

const (
	// FormatText is human-readable text.
	FormatText Format = iota
	// FormatJSON is indented JSON.
	FormatJSON
	// FormatMarkdown is GitHub-flavored Markdown.
	FormatMarkdown
)

// New returns the Writer for format. version is embedded in JSON output.
func New(output io.Writer, format Format, version string) Writer {
	switch format {
	case FormatJSON:
		return NewJSONWriter(output, version, WithPrettyPrint())
	case FormatMarkdown:
		return NewMarkdownWriter(output)
	default:
		return NewSimpleWriter(output)
	}
}

// JobReport wraps a bulk job result with run metadata.
type JobReport struct {
	// Operation names the job, e.g. "register" or "register-known".
	Operation string `json:"operation"`

	// NetworkID is the network the lines were registered under.
	NetworkID string `json:"network_id,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Result *model.BulkJobResult `json:"result"`
}

// Duration returns the wall-clock time of the job.
func (r *JobReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// ReasonCount is one row of the failure breakdown.
type ReasonCount struct {
	Reason string
	Count  int
}

// Reasons returns the failure reasons ordered by count, then by name.
func (r *JobReport) Reasons() []ReasonCount {
	counts := r.Result.ReasonCounts()
	out := make([]ReasonCount, 0, len(counts))
	for reason, n := range counts {
		out = append(out, ReasonCount{Reason: reason, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}

// RefreshReport is the result of refreshing registered accounts.
type RefreshReport struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Results maps each login to whether its refresh succeeded.
	Results map[string]bool `json:"results"`
}

// Split returns the refreshed and failed logins, each sorted.
func (r *RefreshReport) Split() (ok, failed []string) {
	for login, success := range r.Results {
		if success {
			ok = append(ok, login)
		} else {
			failed = append(failed, login)
		}
	}
	sort.Strings(ok)
	sort.Strings(failed)
	return ok, failed
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

const timeLayout = "2006-01-02 15:04:05 MST"
