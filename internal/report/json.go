package report

import (
	"encoding/json"
	"io"
)

// JSONWriter outputs reports in JSON format for tool integration.
type JSONWriter struct {
	baseWriter

	version string

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter. version is recorded in every document.
func NewJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
		version:    version,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONDocument is the top-level object written by JSONWriter.
// Exactly one of Job and Refresh is set.
type JSONDocument struct {
	Version string         `json:"version"`
	Job     *JobReport     `json:"job,omitempty"`
	Refresh *RefreshReport `json:"refresh,omitempty"`
}

// WriteJob outputs a job report.
func (w *JSONWriter) WriteJob(report *JobReport) (int, error) {
	return w.writeJSON(JSONDocument{Version: w.version, Job: report})
}

// WriteRefresh outputs a refresh report.
func (w *JSONWriter) WriteRefresh(report *RefreshReport) (int, error) {
	return w.writeJSON(JSONDocument{Version: w.version, Refresh: report})
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
