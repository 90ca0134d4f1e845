package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IgorGrieder/shorty/internal/bootstrap"
	"github.com/IgorGrieder/shorty/internal/config"
	"github.com/IgorGrieder/shorty/internal/infrastructure/logger"
	"github.com/IgorGrieder/shorty/internal/infrastructure/telemetry"
	"github.com/IgorGrieder/shorty/internal/processing/links"
	httpTransport "github.com/IgorGrieder/shorty/internal/transport/http"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Options{
		Env:        cfg.App.Env,
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("name", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("env", cfg.App.Env),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var shutdownTracer func(context.Context) error
	if cfg.OTel.Enabled {
		shutdownTracer, err = telemetry.InitTracer(ctx, telemetry.Options{
			Endpoint:       cfg.OTel.Endpoint,
			ServiceName:    cfg.App.Name,
			ServiceVersion: cfg.App.Version,
			Environment:    cfg.App.Env,
		})
		if err != nil {
			logger.Warn("Failed to initialize tracer, continuing without tracing", zap.Error(err))
		} else {
			logger.Info("OpenTelemetry tracer initialized", zap.String("endpoint", cfg.OTel.Endpoint))
		}
	}

	store, releaseStore, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer releaseStore()

	clicks, releaseClicks := bootstrap.ClickRecorder(cfg)
	defer releaseClicks()

	linkSvc := links.NewService(store, links.NewCryptoCodeGenerator(), links.Options{
		CodeLength:  cfg.Shortener.CodeLength,
		MaxAttempts: cfg.Shortener.MaxAttempts,
		Clicks:      clicks,
	})

	router := httpTransport.NewRouter(cfg, linkSvc)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting",
			zap.String("port", cfg.Server.Port),
			zap.String("base_url", cfg.Shortener.BaseURL),
			zap.String("storage", cfg.Storage.Backend),
			zap.String("click_sink", cfg.Clicks.Sink),
		)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("Shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	if err := router.Links.WaitForClicks(shutdownCtx); err != nil {
		logger.Warn("Pending clicks dropped at shutdown", zap.Error(err))
	}
	if shutdownTracer != nil {
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Warn("Failed to shutdown tracer", zap.Error(err))
		}
	}

	logger.Info("Server stopped gracefully")
}
