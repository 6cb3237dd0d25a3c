package main

import (
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/nao1215/changemon/internal/config"
	"github.com/nao1215/changemon/internal/database"
	"github.com/nao1215/changemon/internal/fingerprint"
	"github.com/nao1215/changemon/internal/history"
)

// Version information set at build time via ldflags.
var (
	version = ""
	commit  = ""
	date    = ""
)

// getVersion returns version string.
// Priority: ldflags > debug.ReadBuildInfo > "(devel)"
func getVersion() string {
	if version != "" {
		return version
	}
	if buildInfo, ok := debug.ReadBuildInfo(); ok && buildInfo.Main.Version != "" {
		return buildInfo.Main.Version
	}
	return "(devel)"
}

// vcsSetting returns the build setting key, or "unknown".
func vcsSetting(key string) string {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, setting := range buildInfo.Settings {
		if setting.Key == key && setting.Value != "" {
			return setting.Value
		}
	}
	return "unknown"
}

// getCommit returns the short commit hash.
func getCommit() string {
	if commit != "" {
		return commit
	}
	rev := vcsSetting("vcs.revision")
	if len(rev) > 7 && rev != "unknown" {
		return rev[:7]
	}
	return rev
}

// getDate returns build date.
func getDate() string {
	if date != "" {
		return date
	}
	return vcsSetting("vcs.time")
}

// writeStateLayout prints where each monitor keeps its state by default
// and how byte snapshots are fingerprinted.
func writeStateLayout(out io.Writer, stateDir string) {
	fmt.Fprintf(out, "  state:  %s\n", stateDir)
	fmt.Fprintf(out, "    bytes   %s, %s/\n", history.ByteIndexFile, history.PayloadDir)
	fmt.Fprintf(out, "    subs    %s\n", history.SetIndexFile)
	fmt.Fprintf(out, "    journal %s\n", filepath.Join(stateDir, database.JournalFile))
	fmt.Fprintf(out, "  fingerprint: %s, %d hex chars (also reads %s)\n",
		fingerprint.Default, fingerprint.Length, fingerprint.MD5)
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print the version, commit hash and build date of changemon, followed by
the default state directory layout and the fingerprint algorithm.`,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "changemon version %s\n", getVersion())
			fmt.Fprintf(out, "  commit: %s\n", getCommit())
			fmt.Fprintf(out, "  built:  %s\n", getDate())
			fmt.Fprintf(out, "  go:     %s\n", runtime.Version())
			writeStateLayout(out, config.XDGDataDir())
		},
	}
}
