package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/movement-studio/internal/config"
	"github.com/kirillkom/movement-studio/internal/core/color"
	"github.com/kirillkom/movement-studio/internal/core/ports"
	"github.com/kirillkom/movement-studio/internal/core/usecase"
	"github.com/kirillkom/movement-studio/internal/infrastructure/caption/ollama"
	"github.com/kirillkom/movement-studio/internal/infrastructure/caption/openai"
	"github.com/kirillkom/movement-studio/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/movement-studio/internal/infrastructure/queue/nats"
	"github.com/kirillkom/movement-studio/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/movement-studio/internal/infrastructure/resilience"
	"github.com/kirillkom/movement-studio/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Events    ports.MovementEvents
	Analyzer  ports.ColorAnalyzer
	Movements ports.MovementService
	Surveys   ports.SurveyService
	Palette   ports.PaletteStatsService

	captionExec *resilience.Executor
	queueExec   *resilience.Executor
	closeFn     func()
}

type Options struct {
	// Name identifies the process to NATS.
	Name string
	// BreakerObserver is told about every circuit breaker transition.
	BreakerObserver resilience.StateObserver
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	execOpts := []resilience.Option{resilience.WithLogger(logger)}
	if opts.BreakerObserver != nil {
		execOpts = append(execOpts, resilience.WithStateObserver(opts.BreakerObserver))
	}
	tuning := resilience.Tuning{
		OpenTimeout:  time.Duration(cfg.BreakerOpenTimeoutSeconds) * time.Second,
		FailureRatio: cfg.BreakerFailureRatio,
	}
	queueExec := resilience.NewExecutor(resilience.PublishPolicy(tuning), execOpts...)
	captionExec := resilience.NewExecutor(resilience.CaptionPolicy(tuning), execOpts...)

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		Name:               opts.Name,
		ResilienceExecutor: queueExec,
		Logger:             logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	captioner, err := newCaptioner(cfg, captionExec, logger)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, err
	}

	analyzer := color.NewAnalyzer(color.ExtractOptions{
		MaxDimension:   cfg.ExtractMaxDimension,
		AlphaThreshold: cfg.ExtractAlphaThreshold,
		MinBrightness:  cfg.ExtractMinBrightness,
		MaxBrightness:  cfg.ExtractMaxBrightness,
		MaxPixels:      cfg.ExtractMaxPixels,
	})

	exportLoc, err := time.LoadLocation(cfg.ExportTimezone)
	if err != nil {
		logger.Warn("export_timezone_invalid", "timezone", cfg.ExportTimezone, "error", err)
		exportLoc = time.UTC
	}

	sessions := postgres.NewSessionRepository(db)
	surveys := postgres.NewSurveyRepository(db)
	paletteStats := postgres.NewPaletteStatsRepository(db)

	movementUC := usecase.NewMovementUseCase(sessions, storage, analyzer, captioner, queue, usecase.MovementOptions{
		MaxImageBytes: cfg.MaxImageBytes,
		Logger:        logger,
	})
	surveyUC := usecase.NewSurveyUseCase(surveys, xlsx.NewSurveyExporter(exportLoc))
	paletteUC := usecase.NewPaletteStatsUseCase(paletteStats)

	return &App{
		Config: cfg,
		Logger: logger,

		Events:    queue,
		Analyzer:  analyzer,
		Movements: movementUC,
		Surveys:   surveyUC,
		Palette:   paletteUC,

		captionExec: captionExec,
		queueExec:   queueExec,
		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func newCaptioner(cfg config.Config, exec *resilience.Executor, logger *slog.Logger) (ports.Captioner, error) {
	timeout := time.Duration(cfg.CaptionTimeoutSeconds) * time.Second
	switch cfg.CaptionProvider {
	case "", "openai":
		if cfg.CaptionAPIKey == "" {
			logger.Warn("caption_disabled", "reason", "no api key configured")
		}
		return openai.New(openai.Config{
			BaseURL: cfg.CaptionBaseURL,
			APIKey:  cfg.CaptionAPIKey,
			Model:   cfg.CaptionModel,
			Timeout: timeout,
		}, exec), nil
	case "ollama":
		return ollama.New(cfg.OllamaURL, cfg.OllamaModel, timeout, exec), nil
	default:
		return nil, fmt.Errorf("unknown caption provider %q", cfg.CaptionProvider)
	}
}

// BreakerStates merges the breaker states of every outbound dependency.
func (a *App) BreakerStates() map[string]string {
	out := make(map[string]string)
	for _, exec := range []*resilience.Executor{a.captionExec, a.queueExec} {
		if exec == nil {
			continue
		}
		for name, state := range exec.BreakerStates() {
			out[name] = state
		}
	}
	return out
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
