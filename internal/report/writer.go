package report

import (
	"fmt"
	"io"

	"github.com/nao1215/changemon/internal/model"
)

// Supported summary formats.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Writer writes a run summary.
type Writer interface {
	// Write outputs the summary and returns the number of bytes written.
	Write(summary *model.RunSummary) (int, error)
}

// NewWriter returns the Writer for format.
func NewWriter(format string, output io.Writer) (Writer, error) {
	switch format {
	case FormatText, "":
		return NewSimpleWriter(output), nil
	case FormatMarkdown, "md":
		return NewMarkdownWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	default:
		return nil, fmt.Errorf("unknown summary format %q", format)
	}
}

// MultiWriter writes to multiple Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the summary to all Writers, stopping at the first error.
func (m *MultiWriter) Write(summary *model.RunSummary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for summary writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// outcomeOrder is the display order of outcome counts.
var outcomeOrder = []model.Outcome{
	model.OutcomeChanged,
	model.OutcomeEnrolled,
	model.OutcomeUnchanged,
	model.OutcomeFailed,
	model.OutcomeInvalid,
}

// detail returns the short per-target detail column.
func detail(kind model.Kind, r model.TargetResult) string {
	switch r.Outcome {
	case model.OutcomeFailed, model.OutcomeInvalid:
		return r.Error
	case model.OutcomeChanged, model.OutcomeEnrolled:
		var s string
		if kind == model.KindSet {
			s = fmt.Sprintf("+%d -%d (total %d)", r.Added, r.Removed, r.Size)
		} else {
			s = fmt.Sprintf("%s, +%d -%d lines, %d bytes", r.Identity, r.Added, r.Removed, r.Size)
			if r.Outcome == model.OutcomeEnrolled {
				s = fmt.Sprintf("%s, %d bytes", r.Identity, r.Size)
			}
		}
		if r.NotifyError != "" {
			s += "; notify failed: " + r.NotifyError
		}
		return s
	default:
		if kind == model.KindSet {
			return fmt.Sprintf("total %d", r.Size)
		}
		return r.Identity
	}
}
