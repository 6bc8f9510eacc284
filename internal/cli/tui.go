// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/nebula-tui/internal/model"
	"github.com/jeranaias/nebula-tui/internal/storage"
	"github.com/jeranaias/nebula-tui/internal/ui/chat"
	"github.com/jeranaias/nebula-tui/internal/ui/components"
	"github.com/jeranaias/nebula-tui/internal/ui/styles"
)

// watchDebounce coalesces bursts of writes to the session file.
const watchDebounce = 150 * time.Millisecond

// errNoTerminal is returned when the full-screen client has no terminal.
var errNoTerminal = errors.New("nebula needs an interactive terminal; use 'nebula ask' or 'nebula chat' instead")

// tuiOptions are root-command flags that only affect the full-screen client.
type tuiOptions struct {
	mode    string
	details bool
}

// runTUI opens the full-screen research client.
func runTUI(flags *globalFlags, opts tuiOptions) error {
	if !IsStdinTTY() || !isTerminal(os.Stdout) {
		return errNoTerminal
	}

	// The terminal belongs to the UI; logs only go to the file.
	a, err := newApp(flags, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	mode := a.defaultMode()
	if opts.mode != "" {
		if mode, err = model.ParseMode(opts.mode); err != nil {
			return err
		}
	}

	theme := styles.NewTheme()
	style := a.cfg.UI.MarkdownStyle
	if style == "" || style == "auto" {
		style = theme.MarkdownStyle()
	}
	var renderer components.MarkdownRenderer
	if r, err := components.NewGlamourRenderer(style, a.cfg.UI.WordWrap); err == nil {
		renderer = r
	} else {
		a.logger.Warn("markdown renderer unavailable, using plain text", zap.Error(err))
		renderer = components.PlainRenderer{Width: a.cfg.UI.WordWrap}
	}

	coord := a.coordinator(a.cfg.Autocorrect.Enabled, a.cfg.DebounceDelay())
	ctrl := a.controller(coord)
	defer ctrl.Close()

	deps := chat.Deps{
		Store:       a.store,
		Controller:  ctrl,
		Autocorrect: coord,
		Renderer:    renderer,
		Theme:       theme,
		Logger:      a.logger.Named("ui"),
		Mode:        mode,
		ShowDetails: opts.details || a.cfg.UI.ShowTrace,
	}

	if a.cfg.Storage.Watch {
		if w, ok := a.backend.(storage.Watchable); ok {
			watcher, err := storage.NewWatcher(w.WatchPaths(), watchDebounce, a.logger.Named("watch"))
			if err != nil {
				a.logger.Warn("session watcher disabled", zap.Error(err))
			} else {
				defer watcher.Close()
				deps.Changes = watcher.Changes()
			}
		}
	}

	a.logger.Info("tui starting", zap.String("mode", string(mode)), zap.Int("sessions", a.store.Len()))
	p := tea.NewProgram(chat.New(deps), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
