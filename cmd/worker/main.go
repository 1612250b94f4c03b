package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/movement-studio/internal/bootstrap"
	"github.com/kirillkom/movement-studio/internal/config"
	"github.com/kirillkom/movement-studio/internal/core/domain"
	"github.com/kirillkom/movement-studio/internal/observability/logging"
	"github.com/kirillkom/movement-studio/internal/observability/metrics"
)

const serviceName = "movement-worker"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger, logCloser := logging.NewJSONLoggerWithFile(serviceName, cfg.LogLevel, logging.DefaultFileOptions(cfg.LogFile))
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{Name: serviceName})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("worker_metrics_listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Events.SubscribeMovementCreated(ctx, func(handlerCtx context.Context, event domain.MovementCreated) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Second)
		defer cancel()

		workerMetrics.StartEvent()
		started := time.Now()
		if !event.CreatedAt.IsZero() {
			workerMetrics.ObserveEventLag(serviceName, started.Sub(event.CreatedAt))
		}
		err := app.Palette.Record(processCtx, event)
		workerMetrics.FinishEvent(serviceName, time.Since(started), err)
		return err
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
