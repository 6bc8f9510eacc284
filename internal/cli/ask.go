// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/nebula-tui/internal/model"
	"github.com/jeranaias/nebula-tui/internal/session"
)

func newAskCmd(flags *globalFlags) *cobra.Command {
	var (
		mode          string
		sessionRef    string
		noAutocorrect bool
		exact         bool
		showTrace     bool
		quiet         bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: "Research one question and print the answer",
		Long: `Research one question and print the answer.

The answer goes to stdout as rendered markdown when stdout is a terminal and
as plain markdown otherwise. Progress goes to stderr. Ctrl+C stops the run.

By default each question starts a new session; --session continues one.`,
		Example: `  nebula ask "what is retrieval augmented generation"
  nebula ask --mode thorough --trace "compare raft and paxos"
  nebula ask --session 3f2a "and what about multi-paxos?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			runMode := a.defaultMode()
			if mode != "" {
				if runMode, err = model.ParseMode(mode); err != nil {
					return err
				}
			}

			if sessionRef != "" {
				s, err := session.Resolve(a.store.List(), sessionRef)
				if err != nil {
					return err
				}
				if err := a.store.Select(s.ID); err != nil {
					return err
				}
			} else {
				a.store.Deselect()
			}

			out := cmd.OutOrStdout()
			configureColor(cmd.ErrOrStderr())
			progress := cmd.ErrOrStderr()
			if quiet {
				progress = nil
			}

			question := strings.Join(args, " ")
			res, err := a.askQuestion(question, questionOptions{
				Mode:        runMode,
				Autocorrect: !noAutocorrect,
				Exact:       exact,
				Trace:       showTrace,
			}, progress)
			if err != nil {
				if errors.Is(err, ErrStopped) && res.Start.SessionID != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "Stopped. Session %s kept.\n", session.ShortID(res.Start.SessionID))
				}
				return err
			}
			if res.Answer == nil {
				return fmt.Errorf("no answer recorded for session %s", session.ShortID(res.Start.SessionID))
			}
			printAnswer(out, answerRenderer(a.cfg, out), res.Answer)
			return nil
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "", "research depth: fast or thorough (default from config)")
	cmd.Flags().StringVarP(&sessionRef, "session", "s", "", "continue the session with this id or short id")
	cmd.Flags().BoolVar(&noAutocorrect, "no-autocorrect", false, "do not ask for a spelling suggestion first")
	cmd.Flags().BoolVar(&exact, "exact", false, "submit the question verbatim")
	cmd.Flags().BoolVar(&showTrace, "trace", false, "print every research event")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the answer")
	return cmd
}
