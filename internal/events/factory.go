package events

import (
	"log/slog"

	"github.com/Iv91/kidslearning/internal/config"
)

// NewFromConfig creates the publisher selected by configuration
func NewFromConfig(cfg config.EventsConfig, logger *slog.Logger) (Publisher, error) {
	if !cfg.Enabled {
		logger.Info("event publishing disabled, using log publisher")
		return NewLogPublisher(logger), nil
	}

	switch cfg.Publisher {
	case "kafka":
		logger.Info("creating Kafka event publisher",
			"brokers", cfg.KafkaBrokers,
			"topic", cfg.AttemptsTopic,
		)
		return NewKafkaPublisher(KafkaConfig{
			Brokers: cfg.Brokers(),
			Topic:   cfg.AttemptsTopic,
			Logger:  logger,
		})
	case "log":
		return NewLogPublisher(logger), nil
	default:
		logger.Warn("unknown event publisher type, falling back to log", "publisher", cfg.Publisher)
		return NewLogPublisher(logger), nil
	}
}
