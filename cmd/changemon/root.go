package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for changemon.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "changemon",
		Short: "Watch web endpoints and domains for changes",
		Long: `changemon captures the current state of a list of targets, compares it
with the last known state and sends a webhook notification once per change.

Two monitors are available:
  bytes  watches the bytes served at URLs (JavaScript files, endpoints)
  subs   watches the set of subdomains discovered for domains

State is kept under the XDG data directory unless --state-dir is given.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewBytesCmd())
	cmd.AddCommand(NewSubsCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
