// Package report renders the human-facing outputs of a monitor run.
//
// Summary writers print the per-target outcome of a run:
//   - SimpleWriter: plain text table for terminals
//   - MarkdownWriter: Markdown with a summary table and an outcome chart
//   - JSONWriter: structured JSON for tool integration
//
// Writers implement the Writer interface and can be combined with
// MultiWriter.
//
// HTMLRenderer produces the standalone set-kind report attached to
// subdomain notifications and writes it to a dated file.
package report
