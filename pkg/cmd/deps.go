// Package cmd provides common initialization for the command-line binaries.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/redis/go-redis/v9"

	"github.com/storeflow/storeflow/pkg/channels/gochannel"
	"github.com/storeflow/storeflow/pkg/channels/kafka"
	"github.com/storeflow/storeflow/pkg/config"
	"github.com/storeflow/storeflow/pkg/eventbus"
	"github.com/storeflow/storeflow/pkg/mailer"
	"github.com/storeflow/storeflow/pkg/notifier"
	"github.com/storeflow/storeflow/pkg/persistence"
	"github.com/storeflow/storeflow/pkg/persistence/file"
	"github.com/storeflow/storeflow/pkg/persistence/postgres"
)

// NewEventBus builds the event bus for the given provider. Kafka is the
// production transport; gochannel serves single-process setups. Brokers are
// only read for kafka.
func NewEventBus(provider string, brokers []string, logger *slog.Logger) eventbus.EventBus {
	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), brokers, "storeflow")
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	case "gochannel":
		pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			panic(fmt.Errorf("failed to create gochannel pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	default:
		panic("Unsupported event bus provider: " + provider)
	}
}

// NewPersistence selects the backend from the database URL scheme: postgres
// URLs get the SQL store, anything else is treated as a file root.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		p, err := postgres.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to initialize postgres persistence: %w", err))
		}

		return p
	}

	return file.NewPersistence(strings.TrimPrefix(databaseURL, "file://"))
}

// NewNotifier connects the broadcast channel. An empty URL means no channel;
// notification actions then succeed without emitting.
func NewNotifier(redisURL string) notifier.Notifier {
	if redisURL == "" {
		return nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		panic(fmt.Errorf("invalid redis URL: %w", err))
	}

	return notifier.NewRedisNotifier(redis.NewClient(opts))
}

// NewMailer builds the SMTP transport. An unset host disables email actions.
func NewMailer(cfg config.Mail) mailer.Mailer {
	if !cfg.Enabled() {
		return nil
	}

	return mailer.NewSMTPMailer(cfg)
}
