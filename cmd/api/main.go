package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/net/netutil"

	httpadapter "github.com/kirillkom/movement-studio/internal/adapters/http"
	"github.com/kirillkom/movement-studio/internal/bootstrap"
	"github.com/kirillkom/movement-studio/internal/config"
	"github.com/kirillkom/movement-studio/internal/observability/logging"
	"github.com/kirillkom/movement-studio/internal/observability/metrics"
)

const serviceName = "movement-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := cfg.ValidateAPI(); err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger, logCloser := logging.NewJSONLoggerWithFile(serviceName, cfg.LogLevel, logging.DefaultFileOptions(cfg.LogFile))
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{
		Name: serviceName,
		BreakerObserver: func(operation string, _, to gobreaker.State) {
			httpMetrics.SetBreakerState(serviceName, operation, float64(to))
		},
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	router := httpadapter.NewRouter(cfg, app.Movements, app.Analyzer, app.Surveys, app.Palette,
		httpadapter.WithLogger(logger),
		httpadapter.WithMetrics(httpMetrics),
		httpadapter.WithBreakerStates(app.BreakerStates),
	)
	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		logger.Error("api_listen_failed", "addr", server.Addr, "error", err)
		os.Exit(1)
	}
	if cfg.APIMaxConnections > 0 {
		ln = netutil.LimitListener(ln, cfg.APIMaxConnections)
	}

	go func() {
		logger.Info("api_listening", "addr", server.Addr, "max_connections", cfg.APIMaxConnections)
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", "error", err)
	}
}
