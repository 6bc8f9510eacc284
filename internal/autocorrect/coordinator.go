// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package autocorrect

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/nebula-tui/internal/model"
)

// =============================================================================
// MESSAGES
// =============================================================================

// debounceMsg fires when the quiet period for generation gen has elapsed.
type debounceMsg struct {
	gen  uint64
	text string
}

// SuggestionMsg carries the outcome of a suggestion request. Hosts may watch
// for it to learn that a request has settled.
type SuggestionMsg struct {
	Gen        uint64
	Text       string
	Suggestion string
	Err        error
}

// AfterFunc schedules fn after d. tea.Tick is the production implementation.
type AfterFunc func(d time.Duration, fn func(time.Time) tea.Msg) tea.Cmd

// =============================================================================
// COORDINATOR
// =============================================================================

// Options configures a Coordinator.
type Options struct {
	Enabled  bool
	Debounce time.Duration
	MinChars int
	// Timeout bounds a single request.
	Timeout time.Duration
	After   AfterFunc
	Logger  *zap.Logger
}

// Coordinator owns the suggestion state for the composer. All methods must be
// called from the Bubble Tea update loop.
type Coordinator struct {
	suggester Suggester
	enabled   bool
	debounce  time.Duration
	minChars  int
	timeout   time.Duration
	after     AfterFunc
	logger    *zap.Logger

	gen        uint64
	loading    bool
	cancel     context.CancelFunc
	suggestion *model.AutocorrectSuggestion
}

// NewCoordinator returns a Coordinator backed by suggester.
func NewCoordinator(suggester Suggester, opts Options) *Coordinator {
	if opts.MinChars < 1 {
		opts.MinChars = 3
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 4 * time.Second
	}
	if opts.After == nil {
		opts.After = tea.Tick
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Coordinator{
		suggester: suggester,
		enabled:   opts.Enabled,
		debounce:  opts.Debounce,
		minChars:  opts.MinChars,
		timeout:   opts.Timeout,
		after:     opts.After,
		logger:    opts.Logger,
	}
}

// OnTextChanged supersedes any pending request and, when the text is long
// enough, schedules a new one after the debounce period.
func (c *Coordinator) OnTextChanged(text string) tea.Cmd {
	c.invalidate()

	trimmed := strings.TrimSpace(text)
	if !c.enabled || utf8.RuneCountInString(trimmed) < c.minChars {
		return nil
	}

	gen := c.gen
	return c.after(c.debounce, func(time.Time) tea.Msg {
		return debounceMsg{gen: gen, text: trimmed}
	})
}

// Update handles the coordinator's own messages and ignores everything else.
func (c *Coordinator) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case debounceMsg:
		if msg.gen != c.gen || !c.enabled {
			return nil
		}
		return c.fetch(msg.gen, msg.text)

	case SuggestionMsg:
		if msg.Gen != c.gen {
			return nil
		}
		c.loading = false
		if c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
		if msg.Err != nil {
			c.logger.Debug("autocorrect request failed", zap.Error(msg.Err))
			return nil
		}
		if s, ok := usable(msg.Text, msg.Suggestion); ok {
			c.suggestion = &model.AutocorrectSuggestion{QueriedText: msg.Text, SuggestedText: s}
		}
	}
	return nil
}

func (c *Coordinator) fetch(gen uint64, text string) tea.Cmd {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	c.cancel = cancel
	c.loading = true
	suggester := c.suggester

	return func() tea.Msg {
		s, err := suggester.Suggest(ctx, text)
		return SuggestionMsg{Gen: gen, Text: text, Suggestion: s, Err: err}
	}
}

// invalidate starts a new generation, abandoning any request in flight.
func (c *Coordinator) invalidate() {
	c.gen++
	c.loading = false
	c.suggestion = nil
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// usable reports whether suggestion differs meaningfully from text.
func usable(text, suggestion string) (string, bool) {
	s := strings.TrimSpace(suggestion)
	if s == "" {
		return "", false
	}
	if norm.NFC.String(s) == norm.NFC.String(strings.TrimSpace(text)) {
		return "", false
	}
	return s, true
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Suggestion returns the live suggestion, if any.
func (c *Coordinator) Suggestion() (model.AutocorrectSuggestion, bool) {
	if c.suggestion == nil {
		return model.AutocorrectSuggestion{}, false
	}
	return *c.suggestion, true
}

// SuggestionFor returns the live suggestion only if it was computed for text.
func (c *Coordinator) SuggestionFor(text string) (string, bool) {
	if !c.enabled || c.suggestion == nil {
		return "", false
	}
	if c.suggestion.QueriedText != strings.TrimSpace(text) {
		return "", false
	}
	return c.suggestion.SuggestedText, true
}

// Clear drops the suggestion and any pending request.
func (c *Coordinator) Clear() {
	c.invalidate()
}

// Loading reports whether the current generation's request is in flight.
func (c *Coordinator) Loading() bool {
	return c.loading
}

// Enabled reports whether suggestions are requested at all.
func (c *Coordinator) Enabled() bool {
	return c.enabled
}

// SetEnabled toggles suggestions; disabling clears any pending state.
func (c *Coordinator) SetEnabled(enabled bool) {
	c.enabled = enabled
	if !enabled {
		c.invalidate()
	}
}

// Generation returns the current request generation.
func (c *Coordinator) Generation() uint64 {
	return c.gen
}
