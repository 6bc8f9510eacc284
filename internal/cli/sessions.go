// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/nebula-tui/internal/model"
	"github.com/jeranaias/nebula-tui/internal/session"
	"github.com/jeranaias/nebula-tui/internal/ui/components"
	"github.com/jeranaias/nebula-tui/internal/util"
)

// sessionSummary is the JSON shape of `sessions list --json`.
type sessionSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Mode      string `json:"mode"`
	Messages  int    `json:"messages"`
	Preview   string `json:"preview"`
	CreatedAt string `json:"created_at"`
	Current   bool   `json:"current"`
}

// previewRunes bounds the last-message preview in list output.
const previewRunes = 80

func newSessionsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session", "s"},
		Short:   "Manage saved research sessions",
		Long: `Manage saved research sessions.

Sessions are addressed by full id or by the short id shown in the list.`,
	}
	cmd.AddCommand(
		newSessionsListCmd(flags),
		newSessionsShowCmd(flags),
		newSessionsRenameCmd(flags),
		newSessionsDeleteCmd(flags),
		newSessionsExportCmd(flags),
	)
	return cmd
}

// withStore opens the app for a session subcommand.
func withStore(flags *globalFlags, cmd *cobra.Command, fn func(a *app) error) error {
	a, err := newApp(flags, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func newSessionsListCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List sessions, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(flags, cmd, func(a *app) error {
				sessions := a.store.List()
				current := a.store.CurrentID()
				out := cmd.OutOrStdout()

				if asJSON {
					list := make([]sessionSummary, 0, len(sessions))
					for _, s := range sessions {
						list = append(list, sessionSummary{
							ID:        s.ID,
							Title:     s.Title,
							Mode:      string(s.Mode),
							Messages:  len(s.Messages),
							Preview:   s.Preview(previewRunes),
							CreatedAt: s.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
							Current:   s.ID == current,
						})
					}
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(list)
				}

				if len(sessions) == 0 {
					fmt.Fprintln(out, "No sessions found.")
					return nil
				}
				fmt.Fprint(out, session.FormatList(sessions, current))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func newSessionsShowCmd(flags *globalFlags) *cobra.Command {
	var showTrace bool
	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Print a session as markdown (default: the current session)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(flags, cmd, func(a *app) error {
				s, err := resolveOrCurrent(a, args)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprint(out, session.ExportMarkdown(s))
				if showTrace && len(s.Trace) > 0 {
					fmt.Fprintln(out)
					fmt.Fprintln(out, "## Trace")
					fmt.Fprintln(out)
					for _, ev := range s.Trace {
						fmt.Fprintf(out, "- %s %s: %s\n", ev.At.Local().Format("15:04:05"), ev.Type,
							util.TruncateRunes(components.SummarizeTrace(ev), 160))
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&showTrace, "trace", false, "include the last run's trace")
	return cmd
}

func newSessionsRenameCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <title...>",
		Short: "Rename a session",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(flags, cmd, func(a *app) error {
				s, err := session.Resolve(a.store.List(), args[0])
				if err != nil {
					return err
				}
				if err := a.store.Rename(s.ID, strings.Join(args[1:], " ")); err != nil {
					return err
				}
				renamed, _ := a.store.Get(s.ID)
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q\n", session.ShortID(s.ID), renamed.Title)
				return nil
			})
		},
	}
}

func newSessionsDeleteCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete sessions",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(flags, cmd, func(a *app) error {
				// Resolve everything first so a typo deletes nothing.
				var ids []string
				for _, ref := range args {
					s, err := session.Resolve(a.store.List(), ref)
					if err != nil {
						return fmt.Errorf("%s: %w", ref, err)
					}
					ids = append(ids, s.ID)
				}
				for _, id := range ids {
					if err := a.store.Delete(id); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", session.ShortID(id))
				}
				return nil
			})
		},
	}
}

func newSessionsExportCmd(flags *globalFlags) *cobra.Command {
	var (
		format string
		output string
		theme  string
	)
	cmd := &cobra.Command{
		Use:   "export [id]",
		Short: "Export a session as markdown, JSON or HTML (default: the current session)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(flags, cmd, func(a *app) error {
				s, err := resolveOrCurrent(a, args)
				if err != nil {
					return err
				}

				var data []byte
				switch strings.ToLower(format) {
				case "md", "markdown":
					data = []byte(session.ExportMarkdown(s))
				case "json":
					if data, err = session.ExportJSON(s); err != nil {
						return err
					}
				case "html":
					data = session.ExportHTML(s, theme)
				default:
					return fmt.Errorf("unknown export format %q (want md, json or html)", format)
				}

				if output == "" || output == "-" {
					_, err := cmd.OutOrStdout().Write(data)
					return err
				}
				if err := util.AtomicWriteFile(output, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", output, err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %s to %s\n", session.ShortID(s.ID), output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "md", "export format: md, json or html")
	cmd.Flags().StringVar(&theme, "theme", "dark", "HTML theme: dark or light")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

// resolveOrCurrent resolves args[0] or falls back to the current session.
func resolveOrCurrent(a *app, args []string) (model.Session, error) {
	if len(args) > 0 {
		return session.Resolve(a.store.List(), args[0])
	}
	s, ok := a.store.Current()
	if !ok {
		return model.Session{}, fmt.Errorf("no current session; pass a session id")
	}
	return s, nil
}
