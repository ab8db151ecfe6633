package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs reports as GitHub-flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// WriteJob outputs a job report.
func (w *MarkdownWriter) WriteJob(report *JobReport) (int, error) {
	md := markdown.NewMarkdown(w.output)
	res := report.Result

	md.H1("adslwatch " + report.Operation + " report")
	md.PlainText("")

	rows := [][]string{
		{"Started", report.StartedAt.Format(timeLayout)},
		{"Duration", report.Duration().Round(time.Millisecond).String()},
	}
	if report.NetworkID != "" {
		rows = append(rows, []string{"Network", "`" + report.NetworkID + "`"})
	}
	rows = append(rows,
		[]string{"Lines", strconv.Itoa(res.Total())},
		[]string{"Succeeded", strconv.Itoa(len(res.Succeeded))},
		[]string{"Failed", strconv.Itoa(len(res.Failed))},
	)
	md.Table(markdown.TableSet{Header: []string{"Property", "Value"}, Rows: rows})
	md.PlainText("")

	reasons := report.Reasons()
	w.writeAlert(md, res.Total(), len(res.Failed))

	if len(reasons) > 0 {
		md.H2("Failure Reasons")
		md.PlainText("")

		reasonRows := make([][]string, len(reasons))
		for i, rc := range reasons {
			reasonRows[i] = []string{rc.Reason, strconv.Itoa(rc.Count)}
		}
		md.Table(markdown.TableSet{Header: []string{"Reason", "Lines"}, Rows: reasonRows})
		md.PlainText("")

		w.writePieChart(md, len(res.Succeeded), reasons)
	}

	if len(res.PerItem) > 0 {
		md.H2("Lines")
		md.PlainText("")

		itemRows := make([][]string, len(res.PerItem))
		for i, rec := range res.PerItem {
			status := "❌"
			if rec.Success {
				status = "✅"
			}
			login := rec.LoginName
			if login == "" {
				login = "-"
			}
			itemRows[i] = []string{
				"`" + rec.Key + "`",
				login,
				status,
				rec.Reason,
				strconv.Itoa(rec.Attempts),
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Line", "Login", "Status", "Reason", "Attempts"},
			Rows:   itemRows,
		})
		md.PlainText("")
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// WriteRefresh outputs a refresh report.
func (w *MarkdownWriter) WriteRefresh(report *RefreshReport) (int, error) {
	md := markdown.NewMarkdown(w.output)
	ok, failed := report.Split()

	md.H1("adslwatch refresh report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Started", report.StartedAt.Format(timeLayout)},
			{"Accounts", strconv.Itoa(len(report.Results))},
			{"Refreshed", strconv.Itoa(len(ok))},
			{"Failed", strconv.Itoa(len(failed))},
		},
	})
	md.PlainText("")

	w.writeAlert(md, len(report.Results), len(failed))

	if len(failed) > 0 {
		md.H2("Failed Logins")
		md.PlainText("")
		md.BulletList(failed...)
		md.PlainText("")
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, succeeded int, reasons []ReasonCount) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Outcome Distribution"),
		piechart.WithShowData(true),
	)
	if succeeded > 0 {
		chart.LabelAndIntValue("success", uint64(succeeded))
	}
	for _, rc := range reasons {
		chart.LabelAndIntValue(rc.Reason, uint64(rc.Count))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, total, failed int) {
	switch {
	case total == 0:
		md.Note("Nothing to process.")
	case failed == 0:
		md.Tip("Every line succeeded.")
	case failed == total:
		md.Cautionf("All %d line(s) failed.", total)
	default:
		md.Warningf("%d of %d line(s) failed.", failed, total)
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by adslwatch*")
}
