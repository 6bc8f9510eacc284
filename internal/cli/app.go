// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/nebula-tui/internal/autocorrect"
	"github.com/jeranaias/nebula-tui/internal/config"
	"github.com/jeranaias/nebula-tui/internal/logging"
	"github.com/jeranaias/nebula-tui/internal/model"
	"github.com/jeranaias/nebula-tui/internal/run"
	"github.com/jeranaias/nebula-tui/internal/session"
	"github.com/jeranaias/nebula-tui/internal/storage"
	"github.com/jeranaias/nebula-tui/internal/stream"
	"github.com/jeranaias/nebula-tui/internal/trace"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	baseURL    string
	storage    string
	verbose    bool
}

// app holds the collaborators built from configuration.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	flush   func()
	backend storage.Backend
	store   *session.Store
	trace   *trace.Log
	streams *stream.Client
	suggest *autocorrect.Client
}

// loadConfig reads the config file named by the flags (or the default one)
// and applies flag overrides on top of file and environment values.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.configPath != "" {
		cfg, err = config.LoadFromPath(flags.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if flags.baseURL != "" {
		cfg.Server.BaseURL = flags.baseURL
	}
	if flags.storage != "" {
		cfg.Storage.Backend = strings.ToLower(flags.storage)
	}
	if flags.baseURL != "" || flags.storage != "" {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
	}
	config.SetGlobal(cfg)
	return cfg, nil
}

// newApp builds the app. console receives log output in addition to the log
// file; pass nil for full-screen use where the terminal belongs to the UI.
func newApp(flags *globalFlags, console io.Writer) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	if !flags.verbose {
		console = nil
	}

	logOpts, err := logging.FromConfig(cfg, console)
	if err != nil {
		return nil, err
	}
	if flags.verbose {
		logOpts.Level = "debug"
	}
	logger, flush := logging.New(logOpts)

	dir, err := cfg.DataDir()
	if err != nil {
		flush()
		return nil, err
	}
	backend, err := storage.Open(cfg.Storage.Backend, dir)
	if err != nil {
		flush()
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
	}

	a := &app{cfg: cfg, logger: logger, flush: flush, backend: backend}
	store := session.NewStore(backend, session.Options{
		Key:         cfg.Storage.Key,
		DefaultMode: a.defaultMode(),
		Logger:      logger.Named("session"),
	})

	logger.Debug("app ready",
		zap.String("backend", cfg.Storage.Backend),
		zap.String("data_dir", dir),
		zap.String("base_url", cfg.Server.BaseURL),
		zap.Int("sessions", store.Len()),
	)

	a.store = store
	a.trace = trace.New(store)
	a.streams = stream.NewClient(stream.Options{
		StreamURL:      cfg.StreamURL(),
		ConnectTimeout: cfg.ConnectTimeout(),
		Logger:         logger.Named("stream"),
	})
	a.suggest = autocorrect.NewClient(autocorrect.ClientOptions{
		URL:        cfg.AutocorrectURL(),
		RatePerSec: cfg.Autocorrect.RatePerSec,
		Burst:      cfg.Autocorrect.Burst,
		CacheTTL:   cfg.SuggestionTTL(),
		Logger:     logger.Named("autocorrect"),
	})
	return a, nil
}

// defaultMode is the configured mode for new runs.
func (a *app) defaultMode() model.Mode {
	mode, err := model.ParseMode(a.cfg.Run.DefaultMode)
	if err != nil {
		return model.ModeFast
	}
	return mode
}

// coordinator returns an autocorrect coordinator. The composer uses the
// configured debounce; one-shot questions pass zero.
func (a *app) coordinator(enabled bool, debounce time.Duration) *autocorrect.Coordinator {
	return autocorrect.NewCoordinator(a.suggest, autocorrect.Options{
		Enabled:  enabled,
		Debounce: debounce,
		MinChars: a.cfg.Autocorrect.MinChars,
		Timeout:  a.cfg.AutocorrectTimeout(),
		Logger:   a.logger.Named("autocorrect"),
	})
}

// controller returns a run controller that consults coord at submit time.
// coord may be nil.
func (a *app) controller(coord *autocorrect.Coordinator) *run.Controller {
	opts := run.Options{
		TickInterval:  a.cfg.TickInterval(),
		ProgressReset: a.cfg.ProgressResetDelay(),
		Logger:        a.logger.Named("run"),
	}
	if coord != nil {
		opts.Corrector = coord
	}
	return run.NewController(run.ClientOpener{Client: a.streams}, a.store, a.trace, opts)
}

// Close releases storage and flushes the logger.
func (a *app) Close() {
	if err := a.backend.Close(); err != nil {
		a.logger.Warn("closing storage", zap.Error(err))
	}
	a.flush()
}
