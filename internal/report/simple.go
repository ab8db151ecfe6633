package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/adslwatch/internal/model"
)

// SimpleWriter outputs human-readable text reports.
type SimpleWriter struct {
	baseWriter

	// showItems lists every processed line, not only the summary.
	showItems bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithItems lists every processed line with its reason and attempt count.
func WithItems(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showItems = show
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output), showItems: true}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteJob outputs a job report.
func (w *SimpleWriter) WriteJob(report *JobReport) (int, error) {
	var sb strings.Builder
	res := report.Result

	writeRule(&sb, "=")
	fmt.Fprintf(&sb, "ADSLWATCH %s REPORT\n", strings.ToUpper(report.Operation))
	writeRule(&sb, "=")
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "Started:    %s\n", report.StartedAt.Format(timeLayout))
	fmt.Fprintf(&sb, "Duration:   %s\n", report.Duration().Round(time.Millisecond))
	if report.NetworkID != "" {
		fmt.Fprintf(&sb, "Network:    %s\n", report.NetworkID)
	}
	fmt.Fprintf(&sb, "Lines:      %d\n", res.Total())
	fmt.Fprintf(&sb, "Succeeded:  %d\n", len(res.Succeeded))
	fmt.Fprintf(&sb, "Failed:     %d\n", len(res.Failed))
	sb.WriteString("\n")

	if reasons := report.Reasons(); len(reasons) > 0 {
		writeSection(&sb, "FAILURE REASONS")
		for _, rc := range reasons {
			fmt.Fprintf(&sb, "  %-28s %d\n", rc.Reason, rc.Count)
		}
		sb.WriteString("\n")
	}

	if w.showItems && len(res.PerItem) > 0 {
		writeSection(&sb, "LINES")
		for _, rec := range res.PerItem {
			writeItem(&sb, rec)
		}
		sb.WriteString("\n")
	}

	return io.WriteString(w.output, sb.String())
}

// WriteRefresh outputs a refresh report.
func (w *SimpleWriter) WriteRefresh(report *RefreshReport) (int, error) {
	var sb strings.Builder
	ok, failed := report.Split()

	writeRule(&sb, "=")
	sb.WriteString("ADSLWATCH REFRESH REPORT\n")
	writeRule(&sb, "=")
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "Started:    %s\n", report.StartedAt.Format(timeLayout))
	fmt.Fprintf(&sb, "Accounts:   %d\n", len(report.Results))
	fmt.Fprintf(&sb, "Refreshed:  %d\n", len(ok))
	fmt.Fprintf(&sb, "Failed:     %d\n", len(failed))
	sb.WriteString("\n")

	if w.showItems && len(failed) > 0 {
		writeSection(&sb, "FAILED LOGINS")
		for _, login := range failed {
			fmt.Fprintf(&sb, "  [x] %s\n", login)
		}
		sb.WriteString("\n")
	}

	return io.WriteString(w.output, sb.String())
}

func writeItem(sb *strings.Builder, rec model.AttemptRecord) {
	mark := "x"
	if rec.Success {
		mark = "+"
	}
	fmt.Fprintf(sb, "  [%s] %-12s", mark, rec.Key)
	if rec.LoginName != "" {
		fmt.Fprintf(sb, " login=%s", rec.LoginName)
	}
	if rec.Attempts > 0 {
		fmt.Fprintf(sb, " attempts=%d", rec.Attempts)
	}
	fmt.Fprintf(sb, " %s\n", rec.Reason)
}

func writeRule(sb *strings.Builder, ch string) {
	sb.WriteString(strings.Repeat(ch, 70))
	sb.WriteString("\n")
}

func writeSection(sb *strings.Builder, title string) {
	writeRule(sb, "-")
	sb.WriteString(title)
	sb.WriteString("\n")
	writeRule(sb, "-")
}
