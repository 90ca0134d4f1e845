package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/IgorGrieder/shorty/internal/bootstrap"
	"github.com/IgorGrieder/shorty/internal/config"
	"github.com/IgorGrieder/shorty/internal/infrastructure/logger"
	"github.com/IgorGrieder/shorty/internal/infrastructure/telemetry"
	"github.com/IgorGrieder/shorty/internal/messaging"
	"github.com/IgorGrieder/shorty/internal/processing/links"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if len(cfg.Kafka.Brokers) == 0 {
		fmt.Fprintln(os.Stderr, "KAFKA_BROKERS must contain at least one broker")
		os.Exit(1)
	}

	if err := logger.Init(logger.Options{
		Env:   cfg.App.Env,
		Level: cfg.Log.Level,
		File:  cfg.Log.File,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serviceName := fmt.Sprintf("%s-click-consumer", cfg.App.Name)
	if cfg.OTel.Enabled {
		shutdownTracer, err := telemetry.InitTracer(ctx, telemetry.Options{
			Endpoint:       cfg.OTel.Endpoint,
			ServiceName:    serviceName,
			ServiceVersion: cfg.App.Version,
			Environment:    cfg.App.Env,
		})
		if err != nil {
			logger.Warn("failed to initialize tracer, continuing without tracing", zap.Error(err))
		} else {
			defer func() {
				if err := shutdownTracer(context.Background()); err != nil {
					logger.Warn("failed to shutdown tracer", zap.Error(err))
				}
			}()
		}
	}

	store, releaseStore, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize storage", zap.Error(err))
	}
	defer releaseStore()

	// The consumer only applies clicks, so code generation settings are unused.
	linkSvc := links.NewService(store, links.NewCryptoCodeGenerator(), links.Options{})

	consumer := messaging.NewClickConsumer(cfg.Kafka, linkSvc)
	defer func() {
		if err := consumer.Close(); err != nil {
			logger.Warn("failed to close kafka reader", zap.Error(err))
		}
	}()

	logger.Info("click consumer started",
		zap.String("service", serviceName),
		zap.Strings("kafka_brokers", cfg.Kafka.Brokers),
		zap.String("kafka_topic", cfg.Kafka.Topic),
		zap.String("kafka_group", cfg.Kafka.GroupID),
	)

	if err := consumer.Run(ctx); err != nil {
		logger.Error("click consumer stopped with error", zap.Error(err))
		return
	}
	logger.Info("click consumer stopping")
}
