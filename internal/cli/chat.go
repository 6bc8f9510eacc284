// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/nebula-tui/internal/config"
	"github.com/jeranaias/nebula-tui/internal/model"
	"github.com/jeranaias/nebula-tui/internal/run"
	"github.com/jeranaias/nebula-tui/internal/session"
	"github.com/jeranaias/nebula-tui/internal/ui/components"
	"github.com/jeranaias/nebula-tui/internal/ui/styles"
)

// historyFile is the REPL history file inside the config directory.
const historyFile = "chat_history"

// slashCommands are completed at the prompt.
var slashCommands = []string{
	"/new", "/sessions", "/switch", "/mode", "/rename", "/delete", "/trace", "/original", "/help", "/quit",
}

// repl is the line-oriented chat loop. Questions run through the same
// headless runner as ask.
type repl struct {
	app       *app
	out       io.Writer
	errOut    io.Writer
	md        components.MarkdownRenderer
	mode      model.Mode
	trace     bool
	autofix   bool
	lastQuery string
}

func newChatCmd(flags *globalFlags) *cobra.Command {
	var (
		mode          string
		noAutocorrect bool
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Line-oriented research chat",
		Long: `Line-oriented research chat over the saved sessions.

Type a question to research it in the current session. Lines starting with a
slash are commands; /help lists them. Ctrl+C stops a running question, Ctrl+D
exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			r := &repl{
				app:     a,
				out:     cmd.OutOrStdout(),
				errOut:  cmd.ErrOrStderr(),
				mode:    a.defaultMode(),
				autofix: !noAutocorrect,
			}
			if mode != "" {
				if r.mode, err = model.ParseMode(mode); err != nil {
					return err
				}
			}
			configureColor(r.out)
			r.md = answerRenderer(a.cfg, r.out)
			return r.loop()
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "research depth: fast or thorough (default from config)")
	cmd.Flags().BoolVar(&noAutocorrect, "no-autocorrect", false, "do not ask for spelling suggestions")
	return cmd
}

// loop reads lines until EOF or /quit.
func (r *repl) loop() error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(in string) []string {
		if !strings.HasPrefix(in, "/") {
			return nil
		}
		var out []string
		for _, c := range slashCommands {
			if strings.HasPrefix(c, in) {
				out = append(out, c)
			}
		}
		return out
	})

	histPath := r.historyPath()
	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			_, _ = line.ReadHistory(f)
			f.Close()
		}
		defer r.saveHistory(line, histPath)
	}

	r.banner()
	for {
		input, err := line.Prompt(r.prompt())
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.app.logger.Warn("prompt failed", zap.Error(err))
			}
			fmt.Fprintln(r.out)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if quit := r.command(input); quit {
				return nil
			}
			continue
		}
		r.ask(input, false)
	}
}

func (r *repl) banner() {
	fmt.Fprintln(r.out, styles.RenderInfo("Nebula research chat. /help for commands, Ctrl+D to exit."))
	if s, ok := r.app.store.Current(); ok {
		fmt.Fprintf(r.out, "Continuing %q (%s)\n", s.Title, session.ShortID(s.ID))
	}
}

func (r *repl) prompt() string {
	return fmt.Sprintf("[%s] > ", r.mode)
}

// ask runs one question and prints its answer or failure.
func (r *repl) ask(question string, exact bool) {
	r.lastQuery = question
	res, err := r.app.askQuestion(question, questionOptions{
		Mode:        r.mode,
		Autocorrect: r.autofix,
		Exact:       exact,
		Trace:       r.trace,
	}, r.errOut)
	switch {
	case errors.Is(err, ErrStopped):
		fmt.Fprintln(r.errOut, styles.RenderWarning(run.StoppedByUser))
		return
	case err != nil:
		fmt.Fprintln(r.errOut, styles.RenderError(err.Error()))
		return
	}
	if res.Start.Correction != nil {
		r.lastQuery = res.Start.Correction.Original
	}
	if res.Answer != nil {
		fmt.Fprintln(r.out)
		printAnswer(r.out, r.md, res.Answer)
		fmt.Fprintln(r.out)
	}
}

// command runs a slash command and reports whether the loop should end.
func (r *repl) command(input string) bool {
	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)
	store := r.app.store

	switch name {
	case "/quit", "/exit", "/q":
		return true

	case "/help", "/?":
		r.help()

	case "/new":
		store.Deselect()
		fmt.Fprintln(r.out, "Next question starts a new session.")

	case "/sessions", "/ls":
		sessions := store.List()
		if len(sessions) == 0 {
			fmt.Fprintln(r.out, "No sessions yet.")
			break
		}
		fmt.Fprint(r.out, session.FormatList(sessions, store.CurrentID()))

	case "/switch":
		s, err := session.Resolve(store.List(), arg)
		if err != nil {
			fmt.Fprintln(r.errOut, styles.RenderError(err.Error()))
			break
		}
		_ = store.Select(s.ID)
		fmt.Fprintf(r.out, "Switched to %q (%s)\n", s.Title, session.ShortID(s.ID))

	case "/mode":
		if arg == "" {
			r.mode = r.mode.Toggle()
		} else {
			m, err := model.ParseMode(arg)
			if err != nil {
				fmt.Fprintln(r.errOut, styles.RenderError(err.Error()))
				break
			}
			r.mode = m
		}
		fmt.Fprintf(r.out, "Mode: %s\n", r.mode)

	case "/rename":
		id := store.CurrentID()
		if id == "" {
			fmt.Fprintln(r.errOut, styles.RenderError("no current session"))
			break
		}
		if err := store.Rename(id, arg); err != nil {
			fmt.Fprintln(r.errOut, styles.RenderError(err.Error()))
			break
		}
		s, _ := store.Get(id)
		fmt.Fprintf(r.out, "Renamed to %q\n", s.Title)

	case "/delete":
		id := store.CurrentID()
		if arg != "" {
			s, err := session.Resolve(store.List(), arg)
			if err != nil {
				fmt.Fprintln(r.errOut, styles.RenderError(err.Error()))
				break
			}
			id = s.ID
		}
		if id == "" {
			fmt.Fprintln(r.errOut, styles.RenderError("no current session"))
			break
		}
		if err := store.Delete(id); err != nil {
			fmt.Fprintln(r.errOut, styles.RenderError(err.Error()))
			break
		}
		fmt.Fprintf(r.out, "Deleted %s\n", session.ShortID(id))

	case "/trace":
		r.trace = !r.trace
		fmt.Fprintf(r.out, "Trace output: %t\n", r.trace)

	case "/original":
		if r.lastQuery == "" {
			fmt.Fprintln(r.errOut, styles.RenderError("nothing to re-run"))
			break
		}
		r.ask(r.lastQuery, true)

	default:
		fmt.Fprintf(r.errOut, "Unknown command %s. /help lists commands.\n", name)
	}
	return false
}

func (r *repl) help() {
	fmt.Fprint(r.out, `Commands:
  /new              start a new session with the next question
  /sessions         list sessions
  /switch <id>      continue another session
  /mode [fast|thorough]
                    set or toggle research depth
  /rename <title>   rename the current session
  /delete [id]      delete the current (or named) session
  /trace            toggle printing every research event
  /original         re-run the last question exactly as typed
  /quit             exit
`)
}

func (r *repl) historyPath() string {
	dir, err := config.ConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, historyFile)
}

func (r *repl) saveHistory(line *liner.State, path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		r.app.logger.Debug("history not saved", zap.Error(err))
		return
	}
	defer f.Close()
	_, _ = line.WriteHistory(f)
}
