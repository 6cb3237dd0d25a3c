package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/changemon/internal/config"
	"github.com/nao1215/changemon/internal/database"
	"github.com/nao1215/changemon/internal/model"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the latest journaled outcome of each target",
		Long: `Status reads the run journal and prints the latest outcome of every
target. With --limit the journal entries are listed newest first instead.

Examples:
  # Latest outcome of every target of both kinds
  changemon status

  # Only subdomain targets, as a Markdown table
  changemon status --kind subs --markdown

  # The last 20 outcomes of one URL
  changemon status --target https://example.com/app.js --limit 20`,
		Args: cobra.NoArgs,
		RunE: runStatusCmd,
	}

	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	cmd.Flags().String("state-dir", config.XDGDataDir(), "Directory holding the journal")
	cmd.Flags().StringP("kind", "k", "", "Only show this kind (bytes or subs)")
	cmd.Flags().String("target", "", "Only show this target")
	cmd.Flags().IntP("limit", "n", 0, "List the last N entries instead of the latest per target")
	cmd.Flags().Bool("markdown", false, "Print a Markdown table")

	return cmd
}

// runStatusCmd executes the status command.
func runStatusCmd(cmd *cobra.Command, _ []string) error {
	kindName, err := cmd.Flags().GetString("kind")
	if err != nil {
		return err
	}
	var kind model.Kind
	if kindName != "" {
		if kind, err = model.ParseKind(kindName); err != nil {
			return err
		}
	}

	stateDir, err := resolveStateDir(cmd, kind)
	if err != nil {
		return err
	}

	target, err := cmd.Flags().GetString("target")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	asMarkdown, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	journal, err := database.Open(stateDir, opts)
	if err != nil {
		return err
	}
	defer journal.Close()

	var entries []database.Entry
	if limit > 0 {
		entries, err = journal.History(cmd.Context(), kind, target, limit)
	} else {
		entries, err = journal.Latest(cmd.Context(), kind, target)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No journaled observations.")
		return nil
	}
	if asMarkdown {
		return writeStatusMarkdown(out, entries)
	}
	return writeStatusTable(out, entries)
}

// resolveStateDir returns the state directory from the flag, or from the
// configuration file when the flag is not set.
func resolveStateDir(cmd *cobra.Command, kind model.Kind) (string, error) {
	if cmd.Flags().Changed("state-dir") {
		return cmd.Flags().GetString("state-dir")
	}
	if kind == "" {
		kind = model.KindBytes
	}
	cfg, err := loadConfig(cmd, kind, func(string) (string, bool) { return "", false })
	if err != nil {
		return "", err
	}
	return cfg.StateDir, nil
}

var statusHeader = []string{"Kind", "Target", "Outcome", "Identity", "Changes", "Notified", "Finished", "Error"}

func statusRow(e database.Entry) []string {
	changes := ""
	if e.Added > 0 || e.Removed > 0 {
		changes = fmt.Sprintf("+%d -%d", e.Added, e.Removed)
	}
	errText := e.Error
	if errText == "" {
		errText = e.NotifyError
	}
	return []string{
		e.Kind.String(),
		e.Target,
		string(e.Outcome),
		e.Identity,
		changes,
		strconv.FormatBool(e.Notified),
		e.FinishedAt.Local().Format(time.DateTime),
		errText,
	}
}

func writeStatusTable(out io.Writer, entries []database.Entry) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for i, col := range statusHeader {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, col)
	}
	fmt.Fprintln(tw)
	for _, e := range entries {
		row := statusRow(e)
		for i, col := range row {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, col)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func writeStatusMarkdown(out io.Writer, entries []database.Entry) error {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, statusRow(e))
	}
	return markdown.NewMarkdown(out).
		Table(markdown.TableSet{Header: statusHeader, Rows: rows}).
		Build()
}
