// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package run

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/nebula-tui/internal/model"
	"github.com/jeranaias/nebula-tui/internal/stream"
	"github.com/jeranaias/nebula-tui/internal/trace"
)

// StoppedByUser is the status recorded when a run is cancelled.
const StoppedByUser = "Stopped by user"

// SupersededMessage is the status recorded when a new question replaces a
// run that was still thinking.
const SupersededMessage = "Superseded by a new question"

// ClosedEarlyMessage is recorded when the stream ends without an answer.
const ClosedEarlyMessage = "The research stream ended before an answer arrived."

// =============================================================================
// PORTS
// =============================================================================

// Stream is an open event stream.
type Stream interface {
	Events() <-chan stream.Event
	// Close aborts the stream and returns once its producer has stopped.
	Close()
}

// Opener starts streams.
type Opener interface {
	Open(ctx context.Context, query string, mode model.Mode) (Stream, error)
}

// ClientOpener adapts a stream.Client to Opener.
type ClientOpener struct {
	Client *stream.Client
}

func (o ClientOpener) Open(ctx context.Context, query string, mode model.Mode) (Stream, error) {
	conn, err := o.Client.Open(ctx, query, mode)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Corrector supplies autocorrect suggestions at submit time.
type Corrector interface {
	SuggestionFor(text string) (string, bool)
	Clear()
}

// Sessions is the part of session.Store a run writes to.
type Sessions interface {
	CurrentID() string
	Create(hint string) model.Session
	Select(id string) error
	SetMode(id string, mode model.Mode) error
	AppendMessage(id string, m model.Message) error
	ClearTrace(id string) error
}

// AfterFunc schedules fn after d. tea.Tick is the production implementation.
type AfterFunc func(d time.Duration, fn func(time.Time) tea.Msg) tea.Cmd

// =============================================================================
// CONTROLLER
// =============================================================================

// Options configures a Controller.
type Options struct {
	// TickInterval paces the elapsed timer (default 100ms).
	TickInterval time.Duration
	// ProgressReset is how long a finished run shows 100% (default 800ms).
	ProgressReset time.Duration
	// Corrector is optional.
	Corrector Corrector
	After     AfterFunc
	Now       func() time.Time
	Logger    *zap.Logger
}

// StartResult describes a started run.
type StartResult struct {
	Started   bool
	SessionID string
	// Query is the text actually sent, after any correction.
	Query      string
	Correction *model.Correction
}

// activeRun is everything owned by the run in flight, released as a unit.
type activeRun struct {
	id        uint64
	sessionID string
	stream    Stream
	started   time.Time
}

// Controller owns the single active run.
type Controller struct {
	opener     Opener
	sessions   Sessions
	trace      *trace.Log
	dispatcher *Dispatcher
	corrector  Corrector

	tickEvery  time.Duration
	resetAfter time.Duration
	after      AfterFunc
	now        func() time.Time
	logger     *zap.Logger

	state  model.RunState
	active *activeRun
	lastID uint64
}

// NewController wires a controller to its collaborators.
func NewController(opener Opener, sessions Sessions, log *trace.Log, opts Options) *Controller {
	if opts.TickInterval <= 0 {
		opts.TickInterval = 100 * time.Millisecond
	}
	if opts.ProgressReset <= 0 {
		opts.ProgressReset = 800 * time.Millisecond
	}
	if opts.After == nil {
		opts.After = tea.Tick
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Controller{
		opener:     opener,
		sessions:   sessions,
		trace:      log,
		dispatcher: NewDispatcher(log, opts.Logger),
		corrector:  opts.Corrector,
		tickEvery:  opts.TickInterval,
		resetAfter: opts.ProgressReset,
		after:      opts.After,
		now:        opts.Now,
		logger:     opts.Logger,
		state:      model.RunState{Status: model.RunIdle, Plan: model.Plan{Steps: []string{}}},
	}
}

// State returns a copy of the run state.
func (c *Controller) State() model.RunState {
	return c.state.Clone()
}

// Thinking reports whether a run is in flight.
func (c *Controller) Thinking() bool {
	return c.active != nil && c.state.Status == model.RunThinking
}

// RunID returns the id of the most recently started run.
func (c *Controller) RunID() uint64 {
	return c.lastID
}

// ActiveSessionID returns the session the active run writes to, or "".
func (c *Controller) ActiveSessionID() string {
	if c.active == nil {
		return ""
	}
	return c.active.sessionID
}

// Start submits raw in the current session (creating one if none is
// selected). A live autocorrect suggestion for the exact text replaces it.
func (c *Controller) Start(raw string, mode model.Mode) (StartResult, tea.Cmd) {
	query := strings.TrimSpace(raw)
	if query == "" {
		return StartResult{}, nil
	}
	c.supersede()

	res := StartResult{Started: true}
	if c.corrector != nil {
		if s, ok := c.corrector.SuggestionFor(query); ok {
			res.Correction = &model.Correction{Original: query, Corrected: s}
			query = s
		}
		c.corrector.Clear()
	}
	return c.begin(query, mode, res)
}

// StartExact submits raw verbatim, ignoring any suggestion. It is used to
// re-run the original text after a correction was applied.
func (c *Controller) StartExact(raw string, mode model.Mode) (StartResult, tea.Cmd) {
	query := strings.TrimSpace(raw)
	if query == "" {
		return StartResult{}, nil
	}
	c.supersede()
	if c.corrector != nil {
		c.corrector.Clear()
	}
	return c.begin(query, mode, StartResult{Started: true})
}

func (c *Controller) begin(query string, mode model.Mode, res StartResult) (StartResult, tea.Cmd) {
	sessionID := c.sessions.CurrentID()
	if sessionID == "" {
		sessionID = c.sessions.Create(query).ID
		if err := c.sessions.Select(sessionID); err != nil {
			c.logger.Warn("new session not selected", zap.String("session", sessionID), zap.Error(err))
		}
	}
	if err := c.sessions.SetMode(sessionID, mode); err != nil {
		c.logger.Warn("session mode not saved", zap.String("session", sessionID), zap.Error(err))
	}
	if err := c.sessions.AppendMessage(sessionID, model.NewUserMessage(query)); err != nil {
		c.logger.Warn("question dropped", zap.String("session", sessionID), zap.Error(err))
	}
	if err := c.sessions.ClearTrace(sessionID); err != nil {
		c.logger.Warn("trace not cleared", zap.String("session", sessionID), zap.Error(err))
	}

	c.lastID++
	run := &activeRun{id: c.lastID, sessionID: sessionID, started: c.now()}
	c.active = run
	c.state = model.RunState{Status: model.RunThinking, Plan: model.Plan{Steps: []string{}}}

	res.SessionID = sessionID
	res.Query = query

	c.logger.Info("run started",
		zap.Uint64("run", run.id),
		zap.String("session", sessionID),
		zap.String("mode", string(mode)),
		zap.Bool("corrected", res.Correction != nil),
	)

	s, err := c.opener.Open(context.Background(), query, mode)
	if err != nil {
		c.fail(run, err.Error())
		return res, nil
	}
	run.stream = s
	return res, tea.Batch(c.tick(run.id), waitForEvent(run.id, s))
}

// Stop cancels the active run. It does nothing when no run is thinking.
func (c *Controller) Stop() {
	if !c.Thinking() {
		return
	}
	run := c.active
	c.teardown()
	c.state.Status = model.RunStopped
	c.state.Elapsed = c.now().Sub(run.started)
	if err := c.trace.Record(run.sessionID, model.TraceStatus, stream.Status{State: StoppedByUser}); err != nil {
		c.logger.Debug("stop not traced", zap.Error(err))
	}
	c.logger.Info("run stopped", zap.Uint64("run", run.id), zap.Duration("elapsed", c.state.Elapsed))
}

// Close releases the active run without changing state, for program exit.
func (c *Controller) Close() {
	c.teardown()
}

// Update handles run messages and ignores everything else.
func (c *Controller) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case EventMsg:
		if !c.isCurrent(msg.RunID) {
			return nil
		}
		run := c.active
		out := c.dispatcher.Apply(&c.state, run.sessionID, msg.Event)
		switch out.Kind {
		case Finished:
			return c.finish(run, out.Final)
		case Failed:
			c.fail(run, out.Message)
			return nil
		}
		return waitForEvent(run.id, run.stream)

	case StreamClosedMsg:
		if !c.isCurrent(msg.RunID) {
			return nil
		}
		c.fail(c.active, ClosedEarlyMessage)

	case TickMsg:
		if !c.isCurrent(msg.RunID) || c.state.Status != model.RunThinking {
			return nil
		}
		c.state.Elapsed = c.now().Sub(c.active.started)
		return c.tick(msg.RunID)

	case progressResetMsg:
		if msg.runID == c.lastID && c.state.Status == model.RunDone {
			c.state.Progress = 0
		}

	case StopMsg:
		c.Stop()
	}
	return nil
}

// =============================================================================
// INTERNALS
// =============================================================================

func (c *Controller) isCurrent(runID uint64) bool {
	return c.active != nil && c.active.id == runID
}

func (c *Controller) tick(runID uint64) tea.Cmd {
	return c.after(c.tickEvery, func(t time.Time) tea.Msg {
		return TickMsg{RunID: runID, At: t}
	})
}

// supersede ends a thinking run on behalf of a new question, leaving a status
// entry in its session, then tears it down.
func (c *Controller) supersede() {
	if c.Thinking() {
		run := c.active
		if err := c.trace.Record(run.sessionID, model.TraceStatus, stream.Status{State: SupersededMessage}); err != nil {
			c.logger.Debug("supersede not traced", zap.Error(err))
		}
		c.logger.Info("run superseded", zap.Uint64("run", run.id))
	}
	c.teardown()
}

// teardown closes the active stream and forgets the run. The ticker stops
// itself because its next message no longer matches an active run.
func (c *Controller) teardown() {
	if c.active == nil {
		return
	}
	if c.active.stream != nil {
		c.active.stream.Close()
	}
	c.active = nil
}

func (c *Controller) finish(run *activeRun, f stream.Final) tea.Cmd {
	if err := c.sessions.AppendMessage(run.sessionID, model.NewAssistantMessage(f.Answer, f.Citations)); err != nil {
		c.logger.Warn("answer dropped", zap.String("session", run.sessionID), zap.Error(err))
	}
	c.teardown()
	c.state.Status = model.RunDone
	c.state.Progress = 100
	c.state.Elapsed = c.now().Sub(run.started)
	c.logger.Info("run finished",
		zap.Uint64("run", run.id),
		zap.Duration("elapsed", c.state.Elapsed),
		zap.Int("citations", len(f.Citations)),
	)

	id := run.id
	return c.after(c.resetAfter, func(time.Time) tea.Msg {
		return progressResetMsg{runID: id}
	})
}

func (c *Controller) fail(run *activeRun, message string) {
	if err := c.trace.Record(run.sessionID, model.TraceError, stream.Error{Message: message}); err != nil {
		c.logger.Debug("error not traced", zap.Error(err))
	}
	c.teardown()
	c.state.Status = model.RunError
	c.state.Error = message
	c.state.Elapsed = c.now().Sub(run.started)
	c.logger.Warn("run failed", zap.Uint64("run", run.id), zap.String("message", message))
}
