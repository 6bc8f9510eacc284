// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/nebula-tui/internal/autocorrect"
	"github.com/jeranaias/nebula-tui/internal/model"
	"github.com/jeranaias/nebula-tui/internal/run"
	"github.com/jeranaias/nebula-tui/internal/trace"
	"github.com/jeranaias/nebula-tui/internal/ui/components"
	"github.com/jeranaias/nebula-tui/internal/ui/styles"
)

// ErrStopped is returned when the user interrupts a question.
var ErrStopped = errors.New(run.StoppedByUser)

// questionOptions configures a headless run.
type questionOptions struct {
	Mode model.Mode
	// Autocorrect asks for a suggestion before submitting.
	Autocorrect bool
	// Exact submits the text verbatim.
	Exact bool
	// Trace prints every research event instead of status lines.
	Trace bool
}

// questionResult is the outcome of a headless run.
type questionResult struct {
	Start  run.StartResult
	State  model.RunState
	Answer *model.Message
}

// startMsg submits the question once autocorrect has settled.
type startMsg struct{}

// headless drives the run controller without a renderer. It shares the
// controller's message flow with the full-screen client, so stale-run
// filtering and teardown behave identically.
type headless struct {
	ctrl     *run.Controller
	coord    *autocorrect.Coordinator
	trace    *trace.Log
	question string
	opts     questionOptions
	out      io.Writer

	started    bool
	result     run.StartResult
	seen       int
	lastStatus string
}

func (h *headless) Init() tea.Cmd {
	if h.coord != nil {
		if cmd := h.coord.OnTextChanged(h.question); cmd != nil {
			return cmd
		}
	}
	return func() tea.Msg { return startMsg{} }
}

func (h *headless) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if !h.started {
		switch msg := msg.(type) {
		case startMsg:
			return h.start()
		case autocorrect.SuggestionMsg:
			if msg.Gen != h.coord.Generation() {
				return h, nil
			}
			h.coord.Update(msg)
			return h.start()
		case run.StopMsg:
			return h, tea.Quit
		}
		if h.coord != nil {
			return h, h.coord.Update(msg)
		}
		return h, nil
	}

	cmd := h.ctrl.Update(msg)
	h.report()
	if h.ctrl.State().Status.Terminal() {
		return h, tea.Quit
	}
	return h, cmd
}

func (h *headless) View() string { return "" }

func (h *headless) start() (tea.Model, tea.Cmd) {
	h.started = true
	var cmd tea.Cmd
	if h.opts.Exact {
		h.result, cmd = h.ctrl.StartExact(h.question, h.opts.Mode)
	} else {
		h.result, cmd = h.ctrl.Start(h.question, h.opts.Mode)
	}
	if c := h.result.Correction; c != nil {
		h.printf("%s\n", styles.RenderWarning(fmt.Sprintf("Searched for %q instead of %q", c.Corrected, c.Original)))
	}
	h.report()
	if !h.result.Started || h.ctrl.State().Status.Terminal() {
		return h, tea.Quit
	}
	return h, cmd
}

// report prints what changed since the last message.
func (h *headless) report() {
	if h.opts.Trace {
		events := h.trace.Events(h.result.SessionID)
		if h.seen > len(events) {
			h.seen = 0
		}
		for _, ev := range events[h.seen:] {
			h.printf("  %-10s %s\n", ev.Type, components.SummarizeTrace(ev))
		}
		h.seen = len(events)
		return
	}

	st := h.ctrl.State()
	if st.StatusLine != "" && st.StatusLine != h.lastStatus {
		h.lastStatus = st.StatusLine
		h.printf("%s %s\n", styles.RenderProgressBar(20, st.Progress), styles.RenderInfo(st.StatusLine))
	}
}

func (h *headless) printf(format string, args ...any) {
	if h.out != nil {
		fmt.Fprintf(h.out, format, args...)
	}
}

// askQuestion runs one question to completion, printing progress to
// progress (which may be nil). SIGINT stops the run.
func (a *app) askQuestion(question string, opts questionOptions, progress io.Writer) (questionResult, error) {
	var coord *autocorrect.Coordinator
	if opts.Autocorrect && !opts.Exact && a.cfg.Autocorrect.Enabled {
		coord = a.coordinator(true, 0)
	}
	ctrl := a.controller(coord)
	defer ctrl.Close()

	h := &headless{
		ctrl:     ctrl,
		coord:    coord,
		trace:    a.trace,
		question: question,
		opts:     opts,
		out:      progress,
	}
	p := tea.NewProgram(h,
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
		tea.WithoutRenderer(),
		tea.WithoutSignalHandler(),
	)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sigs:
			p.Send(run.StopMsg{})
		case <-done:
		}
	}()

	if _, err := p.Run(); err != nil {
		return questionResult{}, fmt.Errorf("run question: %w", err)
	}

	res := questionResult{Start: h.result, State: ctrl.State()}
	if !h.result.Started {
		if h.started {
			return res, errors.New("question is empty")
		}
		return res, ErrStopped
	}
	switch res.State.Status {
	case model.RunDone:
		if s, ok := a.store.Get(h.result.SessionID); ok {
			if last, ok := s.LastMessage(); ok && last.Role == model.RoleAssistant {
				res.Answer = &last
			}
		}
		return res, nil
	case model.RunStopped:
		return res, ErrStopped
	case model.RunError:
		a.logger.Debug("question failed",
			zap.Uint64("run", ctrl.RunID()),
			zap.String("session", h.result.SessionID),
			zap.String("error", res.State.Error))
		return res, fmt.Errorf("research failed: %s", res.State.Error)
	}
	return res, fmt.Errorf("run ended in state %s", res.State.Status)
}

// printAnswer writes an answer with numbered sources.
func printAnswer(w io.Writer, md components.MarkdownRenderer, msg *model.Message) {
	body, err := md.Render(msg.Content)
	if err != nil {
		body = msg.Content
	}
	fmt.Fprintln(w, body)
	if len(msg.Citations) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Sources:")
	for i, c := range msg.Citations {
		fmt.Fprintf(w, "  %d. %s\n", i+1, styles.RenderLink(c))
	}
}
