// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package run

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jeranaias/nebula-tui/internal/autocorrect"
	"github.com/jeranaias/nebula-tui/internal/model"
	"github.com/jeranaias/nebula-tui/internal/session"
	"github.com/jeranaias/nebula-tui/internal/storage"
	"github.com/jeranaias/nebula-tui/internal/stream"
	"github.com/jeranaias/nebula-tui/internal/trace"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeStream struct {
	ch     chan stream.Event
	once   sync.Once
	closes int
}

func newFakeStream(events ...stream.Event) *fakeStream {
	s := &fakeStream{ch: make(chan stream.Event, 64)}
	for _, e := range events {
		s.ch <- e
	}
	return s
}

func (s *fakeStream) Events() <-chan stream.Event { return s.ch }

func (s *fakeStream) Close() {
	s.closes++
	s.end()
}

// end closes the channel as the producer would at EOF.
func (s *fakeStream) end() {
	s.once.Do(func() { close(s.ch) })
}

type openCall struct {
	query string
	mode  model.Mode
}

type fakeOpener struct {
	streams []*fakeStream
	err     error
	calls   []openCall
}

func (o *fakeOpener) Open(_ context.Context, query string, mode model.Mode) (Stream, error) {
	o.calls = append(o.calls, openCall{query, mode})
	if o.err != nil {
		return nil, o.err
	}
	if len(o.streams) == 0 {
		return newFakeStream(), nil
	}
	s := o.streams[0]
	o.streams = o.streams[1:]
	return s, nil
}

// lossyStore refuses every message append.
type lossyStore struct {
	*session.Store
}

func (lossyStore) AppendMessage(string, model.Message) error {
	return session.ErrSessionNotFound
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

type harness struct {
	ctrl     *Controller
	store    *session.Store
	opener   *fakeOpener
	clock    *fakeClock
	deferred []tea.Msg
}

func newHarness(t *testing.T, corrector Corrector, streams ...*fakeStream) *harness {
	t.Helper()
	h := &harness{
		store:  session.NewStore(storage.NewMemoryBackend(), session.Options{}),
		opener: &fakeOpener{streams: streams},
		clock:  &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	h.ctrl = NewController(h.opener, h.store, trace.New(h.store), Options{
		Corrector: corrector,
		Now:       h.clock.now,
		After: func(_ time.Duration, fn func(time.Time) tea.Msg) tea.Cmd {
			return func() tea.Msg { return fn(h.clock.t) }
		},
	})
	return h
}

// pump feeds every message produced by cmd back into the controller until
// nothing is left. Progress resets are parked in h.deferred.
func (h *harness) pump(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 1000 {
			t.Fatal("run did not settle")
		}
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		switch msg := next().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case progressResetMsg:
			h.deferred = append(h.deferred, msg)
		default:
			queue = append(queue, h.ctrl.Update(msg))
		}
	}
}

func (h *harness) current(t *testing.T) model.Session {
	t.Helper()
	s, ok := h.store.Current()
	require.True(t, ok, "no current session")
	return s
}

func kinds(tr []model.TraceEvent) []model.TraceKind {
	out := make([]model.TraceKind, len(tr))
	for i, e := range tr {
		out[i] = e.Type
	}
	return out
}

// =============================================================================
// START
// =============================================================================

func TestStart_EmptyInputIsNoop(t *testing.T) {
	h := newHarness(t, nil)
	for _, in := range []string{"", "   ", "\n\t"} {
		res, cmd := h.ctrl.Start(in, model.ModeFast)
		assert.False(t, res.Started)
		assert.Nil(t, cmd)
	}
	assert.Empty(t, h.opener.calls)
	assert.Zero(t, h.store.Len())
	assert.Equal(t, model.RunIdle, h.ctrl.State().Status)
}

func TestStart_CreatesAndSelectsSession(t *testing.T) {
	h := newHarness(t, nil)
	res, cmd := h.ctrl.Start("  how do tides work  ", model.ModeThorough)
	require.True(t, res.Started)
	require.NotNil(t, cmd)

	s := h.current(t)
	assert.Equal(t, res.SessionID, s.ID)
	assert.Equal(t, "how do tides work", s.Title)
	assert.Equal(t, model.ModeThorough, s.Mode)
	require.Len(t, s.Messages, 1)
	assert.Equal(t, model.RoleUser, s.Messages[0].Role)
	assert.Equal(t, "how do tides work", s.Messages[0].Content)

	assert.Equal(t, []openCall{{"how do tides work", model.ModeThorough}}, h.opener.calls)
	assert.True(t, h.ctrl.Thinking())
	assert.Equal(t, s.ID, h.ctrl.ActiveSessionID())
	assert.Equal(t, uint64(1), h.ctrl.RunID())
}

func TestStart_LostQuestionIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	store := session.NewStore(storage.NewMemoryBackend(), session.Options{})
	ctrl := NewController(&fakeOpener{}, lossyStore{store}, trace.New(store), Options{
		Logger: zap.New(core),
		After: func(time.Duration, func(time.Time) tea.Msg) tea.Cmd {
			return nil
		},
	})

	res, _ := ctrl.Start("vanishing question", model.ModeFast)
	require.True(t, res.Started)

	dropped := logs.FilterMessage("question dropped").All()
	require.Len(t, dropped, 1)
	assert.Equal(t, res.SessionID, dropped[0].ContextMap()["session"])
	assert.True(t, ctrl.Thinking(), "the run still starts")
}

func TestStart_ReusesCurrentSessionAndClearsTrace(t *testing.T) {
	first := newFakeStream(ev(stream.EventStatus, `{"state":"one"}`), ev(stream.EventFinal, `{"answer":"A1"}`))
	h := newHarness(t, nil, first)
	_, cmd := h.ctrl.Start("first question", model.ModeFast)
	h.pump(t, cmd)
	require.Len(t, h.current(t).Trace, 1)

	res, _ := h.ctrl.Start("second question", model.ModeFast)
	s := h.current(t)
	assert.Equal(t, s.ID, res.SessionID)
	assert.Equal(t, 1, h.store.Len())
	require.Len(t, s.Messages, 3)
	assert.Equal(t, "second question", s.Messages[2].Content)
	assert.Empty(t, s.Trace, "a new run starts with an empty trace")
}

// =============================================================================
// END TO END
// =============================================================================

func TestRun_ThoroughEndToEnd(t *testing.T) {
	s := newFakeStream(
		ev(stream.EventPlan, `{"intent":"explain","steps":["a","b","c"]}`),
		ev(stream.EventStatus, `{"state":"Searching"}`),
		ev(stream.EventProgress, `{"pct":40}`),
		ev(stream.EventQueries, `{"items":["q"]}`),
		ev(stream.EventProgress, `{"pct":100}`),
		ev(stream.EventFinal, `{"answer":"X","citations":["https://a"]}`),
	)
	s.end()
	h := newHarness(t, nil, s)

	_, cmd := h.ctrl.Start("explain tides", model.ModeThorough)
	h.pump(t, cmd)

	st := h.ctrl.State()
	assert.Equal(t, model.RunDone, st.Status)
	assert.Equal(t, 100.0, st.Progress)
	assert.Equal(t, []string{"a", "b", "c"}, st.Plan.Steps)
	assert.Equal(t, "Searching", st.StatusLine)
	assert.Empty(t, st.Error)
	assert.False(t, h.ctrl.Thinking())
	assert.Equal(t, 1, s.closes, "finished run releases its stream")

	sess := h.current(t)
	require.Len(t, sess.Messages, 2)
	answer := sess.Messages[1]
	assert.Equal(t, model.RoleAssistant, answer.Role)
	assert.Equal(t, "X", answer.Content)
	assert.Equal(t, []string{"https://a"}, answer.Citations)
	assert.Equal(t, []model.TraceKind{model.TracePlan, model.TraceStatus, model.TraceQueries}, kinds(sess.Trace))

	require.Len(t, h.deferred, 1)
	h.ctrl.Update(h.deferred[0])
	assert.Equal(t, 0.0, h.ctrl.State().Progress, "bar resets after a finished run")
	assert.Equal(t, model.RunDone, h.ctrl.State().Status)
}

func TestRun_ProgressResetIgnoredAfterNewRun(t *testing.T) {
	first := newFakeStream(ev(stream.EventFinal, `{"answer":"A"}`))
	h := newHarness(t, nil, first)
	_, cmd := h.ctrl.Start("one", model.ModeFast)
	h.pump(t, cmd)
	require.Len(t, h.deferred, 1)

	h.ctrl.Start("two", model.ModeFast)
	h.ctrl.Update(EventMsg{RunID: 2, Event: ev(stream.EventProgress, `{"pct":30}`)})
	h.ctrl.Update(h.deferred[0])
	assert.Equal(t, 30.0, h.ctrl.State().Progress)
}

// =============================================================================
// FAILURE
// =============================================================================

func TestRun_ErrorEvent(t *testing.T) {
	s := newFakeStream(ev(stream.EventError, `{"message":"upstream down"}`))
	h := newHarness(t, nil, s)
	_, cmd := h.ctrl.Start("q", model.ModeFast)
	h.pump(t, cmd)

	st := h.ctrl.State()
	assert.Equal(t, model.RunError, st.Status)
	assert.Equal(t, "upstream down", st.Error)
	assert.Equal(t, 1, s.closes)

	sess := h.current(t)
	require.Len(t, sess.Messages, 1, "no answer on error")
	require.Len(t, sess.Trace, 1)
	assert.Equal(t, model.TraceError, sess.Trace[0].Type)
	assert.JSONEq(t, `{"message":"upstream down"}`, string(sess.Trace[0].Data))
	assert.Empty(t, h.deferred)
}

func TestRun_BareErrorEvent(t *testing.T) {
	s := newFakeStream(stream.Event{Name: stream.EventError})
	h := newHarness(t, nil, s)
	_, cmd := h.ctrl.Start("q", model.ModeFast)
	h.pump(t, cmd)

	st := h.ctrl.State()
	assert.Equal(t, model.RunError, st.Status)
	assert.Equal(t, DefaultErrorMessage, st.Error)
	assert.Equal(t, 1, s.closes)
	assert.Equal(t, []model.TraceKind{model.TraceError}, kinds(h.current(t).Trace))
}

func TestRun_ClosedBeforeFinal(t *testing.T) {
	s := newFakeStream(ev(stream.EventStatus, `{"state":"working"}`))
	s.end()
	h := newHarness(t, nil, s)
	_, cmd := h.ctrl.Start("q", model.ModeFast)
	h.pump(t, cmd)

	st := h.ctrl.State()
	assert.Equal(t, model.RunError, st.Status)
	assert.Equal(t, ClosedEarlyMessage, st.Error)
	assert.Equal(t, []model.TraceKind{model.TraceStatus, model.TraceError}, kinds(h.current(t).Trace))
}

func TestRun_OpenFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.opener.err = errors.New("connection refused")

	res, cmd := h.ctrl.Start("q", model.ModeFast)
	assert.True(t, res.Started)
	assert.Nil(t, cmd)

	st := h.ctrl.State()
	assert.Equal(t, model.RunError, st.Status)
	assert.Equal(t, "connection refused", st.Error)
	assert.False(t, h.ctrl.Thinking())

	sess := h.current(t)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, []model.TraceKind{model.TraceError}, kinds(sess.Trace))
}

// =============================================================================
// STALE MESSAGES
// =============================================================================

func TestRun_RestartIgnoresStaleEvents(t *testing.T) {
	first := newFakeStream()
	second := newFakeStream()
	h := newHarness(t, nil, first, second)

	h.ctrl.Start("first", model.ModeFast)
	h.ctrl.Start("second", model.ModeFast)
	assert.Equal(t, 1, first.closes, "restart closes the previous stream")
	assert.Equal(t, 0, second.closes)
	assert.Equal(t, uint64(2), h.ctrl.RunID())

	assert.Nil(t, h.ctrl.Update(EventMsg{RunID: 1, Event: ev(stream.EventFinal, `{"answer":"stale"}`)}))
	assert.Nil(t, h.ctrl.Update(EventMsg{RunID: 1, Event: ev(stream.EventPlan, `{"steps":["old"]}`)}))
	assert.Nil(t, h.ctrl.Update(StreamClosedMsg{RunID: 1}))
	assert.Nil(t, h.ctrl.Update(TickMsg{RunID: 1}))

	st := h.ctrl.State()
	assert.Equal(t, model.RunThinking, st.Status)
	assert.Empty(t, st.Plan.Steps)

	sess := h.current(t)
	require.Len(t, sess.Messages, 2)
	for _, m := range sess.Messages {
		assert.Equal(t, model.RoleUser, m.Role)
	}
	assert.Empty(t, sess.Trace)
}

func TestRun_SwitchingSessionsMidRunWritesToOwner(t *testing.T) {
	s := newFakeStream()
	h := newHarness(t, nil, s)
	res, cmd := h.ctrl.Start("owner question", model.ModeFast)
	owner := res.SessionID

	other := h.store.Create("elsewhere")
	require.NoError(t, h.store.Select(other.ID))

	s.ch <- ev(stream.EventStatus, `{"state":"Reading"}`)
	s.ch <- ev(stream.EventFinal, `{"answer":"A"}`)
	h.pump(t, cmd)
	assert.Equal(t, model.RunDone, h.ctrl.State().Status)

	got, ok := h.store.Get(owner)
	require.True(t, ok)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "A", got.Messages[1].Content)
	assert.Equal(t, []model.TraceKind{model.TraceStatus}, kinds(got.Trace))

	sel := h.current(t)
	assert.Equal(t, other.ID, sel.ID, "selection is left alone")
	assert.Empty(t, sel.Messages)
	assert.Empty(t, sel.Trace)
}

func TestStart_SupersededRunLeavesStatus(t *testing.T) {
	h := newHarness(t, nil, newFakeStream(), newFakeStream())
	first, _ := h.ctrl.Start("first", model.ModeFast)

	h.store.Deselect()
	second, _ := h.ctrl.Start("second", model.ModeFast)
	require.NotEqual(t, first.SessionID, second.SessionID)

	old, ok := h.store.Get(first.SessionID)
	require.True(t, ok)
	require.Len(t, old.Trace, 1)
	assert.Equal(t, model.TraceStatus, old.Trace[0].Type)
	assert.JSONEq(t, `{"state":"`+SupersededMessage+`"}`, string(old.Trace[0].Data))

	fresh, _ := h.store.Get(second.SessionID)
	assert.Empty(t, fresh.Trace)
	assert.True(t, h.ctrl.Thinking())
}

func TestStart_FinishedRunIsNotSuperseded(t *testing.T) {
	h := newHarness(t, nil, newFakeStream(ev(stream.EventFinal, `{"answer":"A"}`)))
	first, cmd := h.ctrl.Start("first", model.ModeFast)
	h.pump(t, cmd)

	h.store.Deselect()
	h.ctrl.Start("second", model.ModeFast)

	old, _ := h.store.Get(first.SessionID)
	assert.Empty(t, old.Trace)
}

func TestRun_TickUpdatesElapsed(t *testing.T) {
	h := newHarness(t, nil)
	h.ctrl.Start("q", model.ModeFast)

	h.clock.t = h.clock.t.Add(1500 * time.Millisecond)
	next := h.ctrl.Update(TickMsg{RunID: 1})
	require.NotNil(t, next, "ticker re-arms while thinking")
	assert.Equal(t, 1500*time.Millisecond, h.ctrl.State().Elapsed)

	h.ctrl.Stop()
	assert.Nil(t, h.ctrl.Update(TickMsg{RunID: 1}), "ticker stops with the run")
}

// =============================================================================
// STOP
// =============================================================================

func TestStop_IsIdempotent(t *testing.T) {
	s := newFakeStream()
	h := newHarness(t, nil, s)
	h.ctrl.Start("q", model.ModeFast)
	h.ctrl.Update(EventMsg{RunID: 1, Event: ev(stream.EventStatus, `{"state":"reading"}`)})

	h.clock.t = h.clock.t.Add(2 * time.Second)
	h.ctrl.Stop()
	h.ctrl.Stop()
	h.ctrl.Update(StopMsg{})

	st := h.ctrl.State()
	assert.Equal(t, model.RunStopped, st.Status)
	assert.Equal(t, 2*time.Second, st.Elapsed)
	assert.Equal(t, 1, s.closes)

	h.ctrl.Update(EventMsg{RunID: 1, Event: ev(stream.EventFinal, `{"answer":"late"}`)})
	h.ctrl.Update(StreamClosedMsg{RunID: 1})

	sess := h.current(t)
	require.Len(t, sess.Messages, 1)
	require.Len(t, sess.Trace, 2, "exactly one stop entry and nothing after it")
	last := sess.Trace[1]
	assert.Equal(t, model.TraceStatus, last.Type)
	var payload stream.Status
	require.NoError(t, json.Unmarshal(last.Data, &payload))
	assert.Equal(t, StoppedByUser, payload.State)
	assert.Equal(t, model.RunStopped, h.ctrl.State().Status)
}

func TestStop_WithoutRunDoesNothing(t *testing.T) {
	h := newHarness(t, nil)
	h.ctrl.Stop()
	assert.Equal(t, model.RunIdle, h.ctrl.State().Status)
	assert.Zero(t, h.store.Len())
}

func TestClose_ReleasesStream(t *testing.T) {
	s := newFakeStream()
	h := newHarness(t, nil, s)
	h.ctrl.Start("q", model.ModeFast)
	h.ctrl.Close()
	assert.Equal(t, 1, s.closes)
	assert.Empty(t, h.ctrl.ActiveSessionID())
	assert.Empty(t, h.current(t).Trace, "close is not a user stop")
}

// =============================================================================
// AUTOCORRECT ON SUBMIT
// =============================================================================

type suggestFunc func(ctx context.Context, text string) (string, error)

func (f suggestFunc) Suggest(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

func newSettledCoordinator(t *testing.T, typed, suggestion string) *autocorrect.Coordinator {
	t.Helper()
	c := autocorrect.NewCoordinator(
		suggestFunc(func(context.Context, string) (string, error) { return suggestion, nil }),
		autocorrect.Options{
			Enabled:  true,
			MinChars: 3,
			After: func(_ time.Duration, fn func(time.Time) tea.Msg) tea.Cmd {
				return func() tea.Msg { return fn(time.Now()) }
			},
		},
	)
	debounce := c.OnTextChanged(typed)
	require.NotNil(t, debounce)
	fetch := c.Update(debounce())
	require.NotNil(t, fetch)
	c.Update(fetch())
	_, ok := c.Suggestion()
	require.True(t, ok)
	return c
}

func TestStart_AppliesSuggestion(t *testing.T) {
	c := newSettledCoordinator(t, "waht is ai", "what is ai")
	h := newHarness(t, c)

	res, _ := h.ctrl.Start("waht is ai", model.ModeFast)
	require.NotNil(t, res.Correction)
	assert.Equal(t, model.Correction{Original: "waht is ai", Corrected: "what is ai"}, *res.Correction)
	assert.Equal(t, "what is ai", res.Query)
	assert.Equal(t, "what is ai", h.opener.calls[0].query)
	assert.Equal(t, "what is ai", h.current(t).Messages[0].Content)

	_, ok := c.Suggestion()
	assert.False(t, ok, "suggestion is consumed by submit")
}

func TestStart_SuggestionForOtherTextIgnored(t *testing.T) {
	c := newSettledCoordinator(t, "waht is ai", "what is ai")
	h := newHarness(t, c)

	res, _ := h.ctrl.Start("waht is ml", model.ModeFast)
	assert.Nil(t, res.Correction)
	assert.Equal(t, "waht is ml", h.opener.calls[0].query)
}

func TestStartExact_SkipsSuggestion(t *testing.T) {
	c := newSettledCoordinator(t, "waht is ai", "what is ai")
	h := newHarness(t, c)

	res, _ := h.ctrl.StartExact("waht is ai", model.ModeFast)
	assert.Nil(t, res.Correction)
	assert.Equal(t, "waht is ai", h.opener.calls[0].query)
	_, ok := c.Suggestion()
	assert.False(t, ok)
}
