package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/five82/lokctl/internal/config"
	"github.com/five82/lokctl/internal/dispatch"
	"github.com/five82/lokctl/internal/format"
	"github.com/five82/lokctl/internal/logging"
	"github.com/five82/lokctl/internal/loki"
	"github.com/five82/lokctl/internal/prefs"
	"github.com/five82/lokctl/internal/state"
	"github.com/five82/lokctl/internal/ui"
)

// Options configure the lokctl application.
type Options struct {
	ConfigPath string        // empty uses ~/.config/lokctl/config.toml
	PrefsPath  string        // empty uses ~/.config/lokctl/prefs.toml
	Flags      *pflag.FlagSet // explicitly set flags override config; may be nil
	// Location renders timestamps; nil means local time.
	Location *time.Location
}

// Session holds the wired components behind one TUI run.
type Session struct {
	Config config.Config
	Client *loki.Client
	UI     ui.Options
	Log    *logrus.Logger

	logCloser io.Closer
}

// NewSession loads configuration and preferences and wires the backend
// client, dispatcher and UI options. The caller must Close the session.
func NewSession(ctx context.Context, opts Options) (*Session, error) {
	cfg, err := config.Load(opts.ConfigPath, opts.Flags)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, closer, err := logging.Setup(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	userPrefs, err := prefs.Load(prefsPath)
	if err != nil {
		logger.WithError(err).Warn("using default preferences")
	}

	client, err := loki.NewClient(cfg.URL,
		loki.WithLimit(cfg.Limit),
		loki.WithContextRadius(cfg.ContextRadius),
	)
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("init loki client: %w", err)
	}

	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	// The UI installs its themed styler before the first render.
	formatter := format.Formatter{Layout: userPrefs.TimeLayout, Location: loc}
	d := dispatch.New(ctx, client, formatter, dispatch.Config{
		DefaultQuery: cfg.DefaultQuery,
		ExportDir:    cfg.ExportDir,
		TailLookback: time.Duration(cfg.RangeMinutes) * time.Minute,
	}, dispatch.WithTailer(client), dispatch.WithLogger(logger))

	logger.WithFields(logrus.Fields{
		"url":    client.BaseURL(),
		"query":  cfg.DefaultQuery,
		"config": cfg.Path,
	}).Info("lokctl starting")

	return &Session{
		Config: cfg,
		Client: client,
		Log:    logger,
		UI: ui.Options{
			Dispatcher:    d,
			State:         state.New(cfg.DefaultQuery),
			BaseURL:       client.BaseURL(),
			ContextRadius: client.ContextRadius(),
			ThemeName:     userPrefs.Theme,
			TimeLayout:    userPrefs.TimeLayout,
			Location:      loc,
			PrefsPath:     prefsPath,
			Logger:        logger,
		},
		logCloser: closer,
	}, nil
}

// Close stops any live tail and flushes the log file.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	s.UI.Dispatcher.Close()
	s.Log.Info("lokctl stopped")
	return s.logCloser.Close()
}

// Run boots the lokctl TUI until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) (err error) {
	session, err := NewSession(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, session.Close())
	}()

	if err := ui.Run(session.UI); err != nil {
		session.Log.WithError(err).Error("ui exited")
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}
