// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the nebula command tree.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}
	var tui tuiOptions

	root := &cobra.Command{
		Use:   "nebula",
		Short: "Streaming research assistant for the terminal",
		Long: `Nebula asks a research service to investigate a question and streams its
plan, searches and sources while it works, then shows the cited answer.

Run without a command to open the full-screen client.`,
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(flags, tui)
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "config file (default $NEBULA_HOME/config.toml)")
	pf.StringVar(&flags.baseURL, "base-url", "", "research service base URL")
	pf.StringVar(&flags.storage, "storage", "", "session storage backend: file, sqlite or memory")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging, echoed to stderr by line-oriented commands")

	root.Flags().StringVarP(&tui.mode, "mode", "m", "", "initial research depth: fast or thorough")
	root.Flags().BoolVar(&tui.details, "details", false, "start with the research trace visible")

	root.AddCommand(
		newAskCmd(flags),
		newChatCmd(flags),
		newSessionsCmd(flags),
		newConfigCmd(flags),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, ErrStopped) {
			return 130
		}
		return 1
	}
	return 0
}
