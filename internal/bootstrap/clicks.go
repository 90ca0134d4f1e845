package bootstrap

import (
	"github.com/IgorGrieder/shorty/internal/config"
	"github.com/IgorGrieder/shorty/internal/infrastructure/logger"
	"github.com/IgorGrieder/shorty/internal/messaging"
	"github.com/IgorGrieder/shorty/internal/processing/links"
	"go.uber.org/zap"
)

// ClickRecorder returns where redirects are recorded. A nil recorder means
// the service writes clicks straight to its store.
func ClickRecorder(cfg *config.Config) (links.ClickRecorder, func()) {
	if cfg.Clicks.Sink != config.ClickSinkKafka {
		logger.Info("Click sink selected", zap.String("sink", config.ClickSinkDirect))
		return nil, func() {}
	}

	publisher := messaging.NewClickPublisher(cfg.Kafka)
	logger.Info("Click sink selected",
		zap.String("sink", config.ClickSinkKafka),
		zap.Strings("kafka_brokers", cfg.Kafka.Brokers),
		zap.String("kafka_topic", cfg.Kafka.Topic),
	)
	return publisher, func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("failed to close kafka writer", zap.Error(err))
		}
	}
}
