// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fact-project/la-palma-overview/internal/api"
	"github.com/fact-project/la-palma-overview/internal/archive"
	archivegcs "github.com/fact-project/la-palma-overview/internal/archive/gcs"
	archivelocal "github.com/fact-project/la-palma-overview/internal/archive/local"
	archivememory "github.com/fact-project/la-palma-overview/internal/archive/memory"
	"github.com/fact-project/la-palma-overview/internal/clock/system"
	"github.com/fact-project/la-palma-overview/internal/config"
	"github.com/fact-project/la-palma-overview/internal/encoder"
	"github.com/fact-project/la-palma-overview/internal/logging"
	"github.com/fact-project/la-palma-overview/internal/metrics"
	"github.com/fact-project/la-palma-overview/internal/night"
	"github.com/fact-project/la-palma-overview/internal/overview"
	"github.com/fact-project/la-palma-overview/internal/publisher"
	publishermemory "github.com/fact-project/la-palma-overview/internal/publisher/memory"
	publisherpubsub "github.com/fact-project/la-palma-overview/internal/publisher/pubsub"
)

// App holds the shared, long-lived services for the application.
type App struct {
	Logger  *zap.Logger
	Archive archive.Store
	Events  publisher.Publisher

	closers []func() error
}

// New creates an App from the validated configuration. It fails fast if any
// configured service cannot be initialized.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	metrics.Init()

	a := &App{Logger: logger}

	switch cfg.Archive.Provider {
	case "none":
	case "memory":
		a.Archive = archivememory.New()
	case "local":
		store, err := archivelocal.New(cfg.Archive.BaseDir)
		if err != nil {
			return nil, fmt.Errorf("init local archive: %w", err)
		}
		a.Archive = store
		logger.Info("using local archive", zap.String("base_dir", cfg.Archive.BaseDir))
	case "gcs":
		store, err := archivegcs.New(ctx, cfg.Archive.Bucket)
		if err != nil {
			return nil, fmt.Errorf("init gcs archive: %w", err)
		}
		a.Archive = store
		a.closers = append(a.closers, store.Close)
		logger.Info("using gcs archive", zap.String("bucket", cfg.Archive.Bucket))
	default:
		return nil, fmt.Errorf("unknown archive provider: %s", cfg.Archive.Provider)
	}

	switch cfg.Events.Provider {
	case "none":
	case "memory":
		a.Events = publishermemory.New()
	case "pubsub":
		pub, err := publisherpubsub.New(ctx, cfg.Events.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("init pubsub publisher: %w", err)
		}
		a.Events = pub
		a.closers = append(a.closers, pub.Close)
		logger.Info("using pubsub events", zap.String("topic", cfg.Events.Topic))
	default:
		return nil, fmt.Errorf("unknown events provider: %s", cfg.Events.Provider)
	}

	return a, nil
}

// Close shuts down the services in reverse initialization order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("service close failed", zap.Error(err))
		}
	}
	_ = a.Logger.Sync()
}

// NewBuilder wires the overview builder from the configuration.
func NewBuilder(cfg config.Config, logger *zap.Logger) *overview.Builder {
	fetcher := overview.NewHTTPFetcher(overview.FetcherConfig{
		Timeout:   cfg.Timeout(),
		UserAgent: cfg.HTTP.UserAgent,
	}, logger)
	status := overview.NewHTTPStatus(overview.StatusConfig{
		URL:       cfg.Status.URL,
		Timeout:   cfg.Timeout(),
		UserAgent: cfg.HTTP.UserAgent,
	}, logger)
	return overview.NewBuilder(fetcher, status, system.New(), overview.BuilderConfig{
		URLs: cfg.ImageURLs,
		Grid: overview.Grid{
			CellRows: cfg.Img.Rows,
			CellCols: cfg.Img.Cols,
			Rows:     cfg.StackedImage.Rows,
			Cols:     cfg.StackedImage.Cols,
		},
		OutputDir:   cfg.Output.Dir,
		JPEGQuality: cfg.Output.JPEGQuality,
	}, logger)
}

// RunVideo runs the nightly capture loop, with the monitor server alongside
// when enabled, until the context finishes.
func RunVideo(ctx context.Context, cfg config.Config, a *App) error {
	builder := NewBuilder(cfg, a.Logger)
	enc := encoder.New(encoder.Config{
		Binary:    cfg.Video.Encoder,
		FrameRate: cfg.Video.FrameRate,
		Size:      cfg.Video.Size,
		CRF:       cfg.Video.CRF,
		CRFMax:    cfg.Video.CRFMax,
	}, a.Logger)
	latest := &overview.LatestFrame{}

	loop := night.NewLoop(night.Deps{
		Builder: builder,
		Encoder: enc,
		Clock:   system.New(),
		Window: night.FixedHours{
			StartHour:          cfg.Window.StartHour,
			EndHour:            cfg.Window.EndHour,
			FinalizeBeforeHour: cfg.Window.FinalizeBeforeHour,
		},
		Archive: a.Archive,
		Events:  a.Events,
		Latest:  latest,
	}, night.Config{
		WorkingDir:    cfg.Video.WorkingDir,
		OutputDir:     cfg.Video.OutputDir,
		Interval:      cfg.Interval(),
		Rollover:      cfg.Rollover(),
		JPEGQuality:   cfg.Output.JPEGQuality,
		KeepFrames:    cfg.Video.KeepFrames,
		EventTopic:    cfg.Events.Topic,
		ArchivePrefix: cfg.Archive.Prefix,
	}, a.Logger)

	if cfg.Server.Enabled {
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           api.NewServer(latest, a.Logger).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		go func() {
			a.Logger.Info("monitor server listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.Logger.Error("monitor server failed", zap.Error(err))
			}
		}()
	}

	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run capture loop: %w", err)
	}
	return nil
}
