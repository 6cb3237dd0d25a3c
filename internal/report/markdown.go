package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/changemon/internal/model"
)

// MarkdownWriter outputs the summary as Markdown, suitable for pasting into
// issues or CI job summaries.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(summary *model.RunSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1(fmt.Sprintf("changemon %s run", summary.Kind))
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Started", summary.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", summary.FinishedAt.Sub(summary.StartedAt).Round(1e6).String()},
			{"Targets", strconv.Itoa(len(summary.Results))},
			{"Notifications", strconv.Itoa(summary.NotifiedCount())},
		},
	})
	md.PlainText("")

	w.writeAlert(md, summary)
	w.writeResults(md, summary)
	w.writePieChart(md, summary)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary *model.RunSummary) {
	failed := summary.Count(model.OutcomeFailed)
	changed := summary.Count(model.OutcomeChanged)
	switch {
	case failed > 0:
		md.Warningf("%d target(s) could not be processed this run.", failed)
	case changed > 0:
		md.Note(fmt.Sprintf("%d target(s) changed.", changed))
	default:
		return
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeResults(md *markdown.Markdown, summary *model.RunSummary) {
	if len(summary.Results) == 0 {
		md.PlainText("No targets.")
		return
	}

	md.H2("Results")
	md.PlainText("")
	rows := make([][]string, 0, len(summary.Results))
	for _, r := range summary.Results {
		notified := ""
		if r.Notified {
			notified = "yes"
		}
		rows = append(rows, []string{
			"`" + r.Target.String() + "`",
			string(r.Outcome),
			escapeCell(detail(summary.Kind, r)),
			notified,
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Target", "Outcome", "Detail", "Notified"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of the outcome distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary *model.RunSummary) {
	if len(summary.Results) == 0 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Outcomes"),
		piechart.WithShowData(true),
	)
	for _, o := range outcomeOrder {
		if n := summary.Count(o); n > 0 {
			chart.LabelAndIntValue(string(o), uint64(n)) //nolint:gosec // count is non-negative
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// escapeCell keeps table cells on one row.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
