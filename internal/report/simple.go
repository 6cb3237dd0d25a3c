package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/changemon/internal/model"
)

// SimpleWriter outputs a plain text summary for terminal display.
type SimpleWriter struct {
	baseWriter

	// quiet hides UNCHANGED targets.
	quiet bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithQuiet hides targets that did not change.
func WithQuiet(quiet bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.quiet = quiet
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary.
func (w *SimpleWriter) Write(summary *model.RunSummary) (int, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s run: %d target(s) in %s\n",
		summary.Kind, len(summary.Results), summary.FinishedAt.Sub(summary.StartedAt).Round(1e6))

	for _, r := range summary.Results {
		if w.quiet && r.Outcome == model.OutcomeUnchanged {
			continue
		}
		marker := " "
		if r.Notified {
			marker = "*"
		}
		fmt.Fprintf(&sb, "%s %-9s %s", marker, r.Outcome, r.Target)
		if d := detail(summary.Kind, r); d != "" {
			fmt.Fprintf(&sb, "  %s", d)
		}
		sb.WriteString("\n")
	}

	counts := make([]string, 0, len(outcomeOrder))
	for _, o := range outcomeOrder {
		if n := summary.Count(o); n > 0 {
			counts = append(counts, fmt.Sprintf("%d %s", n, strings.ToLower(string(o))))
		}
	}
	if len(counts) == 0 {
		counts = append(counts, "no targets")
	}
	fmt.Fprintf(&sb, "summary: %s; %d notification(s) sent\n", strings.Join(counts, ", "), summary.NotifiedCount())

	return io.WriteString(w.output, sb.String())
}
