package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/changemon/internal/diff"
	"github.com/nao1215/changemon/internal/history"
	"github.com/nao1215/changemon/internal/model"
	"github.com/nao1215/changemon/internal/targets"
)

// errNoHistory is returned when the store has never seen the target.
var errNoHistory = errors.New("no history for target")

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <url>",
		Short: "List the stored fingerprints of a URL",
		Long: `History lists every fingerprint stored for a URL of the bytes monitor,
oldest first, with the size of the stored body.

--diff compares two stored bodies. Each side is a fingerprint or its
position in the list (1 is the oldest, -1 the latest). An empty right
side means the latest body.

Examples:
  # List the fingerprints
  changemon history https://example.com/app.js

  # Unified diff between the previous and the latest body
  changemon history https://example.com/app.js --diff -2..-1

  # Side-by-side HTML diff written to a file
  changemon history https://example.com/app.js --diff 1.. --html diff.html`,
		Args: cobra.ExactArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	cmd.Flags().String("state-dir", "", "Directory holding the history stores")
	cmd.Flags().StringP("diff", "d", "", "Compare two bodies (a..b)")
	cmd.Flags().Int("context", 3, "Lines of context in the unified diff")
	cmd.Flags().String("html", "", "Write the diff as HTML to this file")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	target, err := targets.ValidateURL(args[0])
	if err != nil {
		return err
	}

	stateDir, err := resolveStateDir(cmd, model.KindBytes)
	if err != nil {
		return err
	}

	store, err := history.OpenByteStore(stateDir)
	if err != nil {
		return err
	}

	fps := store.History(target)
	if len(fps) == 0 {
		return fmt.Errorf("%w: %s", errNoHistory, target)
	}

	rangeArg, err := cmd.Flags().GetString("diff")
	if err != nil {
		return err
	}
	if rangeArg == "" {
		writeHistory(cmd.OutOrStdout(), store, target, fps)
		return nil
	}

	from, to, err := parseDiffRange(rangeArg, fps)
	if err != nil {
		return err
	}
	contextLines, err := cmd.Flags().GetInt("context")
	if err != nil {
		return err
	}
	htmlPath, err := cmd.Flags().GetString("html")
	if err != nil {
		return err
	}
	return writeDiff(cmd.OutOrStdout(), store, from, to, contextLines, htmlPath)
}

func writeHistory(out io.Writer, store *history.ByteStore, target model.Target, fps []model.Fingerprint) {
	fmt.Fprintf(out, "%s (%d fingerprint(s))\n", target, len(fps))
	for i, fp := range fps {
		marker := " "
		if i == len(fps)-1 {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %3d  %s  %d bytes\n", marker, i+1, fp, store.PayloadSize(fp))
	}
}

// parseDiffRange resolves "a..b" against fps.
func parseDiffRange(rangeArg string, fps []model.Fingerprint) (from, to model.Fingerprint, err error) {
	left, right, ok := strings.Cut(rangeArg, "..")
	if !ok || left == "" {
		return "", "", fmt.Errorf("invalid diff range %q (want a..b)", rangeArg)
	}
	if right == "" {
		right = "-1"
	}
	if from, err = resolveFingerprint(left, fps); err != nil {
		return "", "", err
	}
	if to, err = resolveFingerprint(right, fps); err != nil {
		return "", "", err
	}
	return from, to, nil
}

// resolveFingerprint accepts a stored fingerprint, a 1-based position or
// a negative position counted from the end.
func resolveFingerprint(ref string, fps []model.Fingerprint) (model.Fingerprint, error) {
	for _, fp := range fps {
		if string(fp) == ref {
			return fp, nil
		}
	}

	pos, err := strconv.Atoi(ref)
	if err != nil {
		return "", fmt.Errorf("fingerprint %q is not in the history", ref)
	}
	if pos < 0 {
		pos = len(fps) + pos + 1
	}
	if pos < 1 || pos > len(fps) {
		return "", fmt.Errorf("position %s out of range (1-%d)", ref, len(fps))
	}
	return fps[pos-1], nil
}

func writeDiff(out io.Writer, store *history.ByteStore, from, to model.Fingerprint, contextLines int, htmlPath string) error {
	oldBody, err := store.Payload(from)
	if err != nil {
		return err
	}
	newBody, err := store.Payload(to)
	if err != nil {
		return err
	}

	d := diff.Bytes(oldBody, newBody)
	if htmlPath != "" {
		page, err := diff.RenderHTML(d, from.String(), to.String())
		if err != nil {
			return err
		}
		if dir := filepath.Dir(htmlPath); dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
		}
		if err := os.WriteFile(htmlPath, page, 0600); err != nil {
			return fmt.Errorf("failed to write diff: %w", err)
		}
		fmt.Fprintf(out, "Wrote %s\n", htmlPath)
		return nil
	}

	if !d.Changed() {
		fmt.Fprintln(out, "No differences.")
		return nil
	}
	text, err := diff.Unified(d, from.String(), to.String(), contextLines)
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, text)
	return err
}
