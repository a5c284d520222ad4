package main

import (
	"context"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"

	"github.com/storeflow/storeflow/pkg/cmd"
	"github.com/storeflow/storeflow/pkg/config"
	"github.com/storeflow/storeflow/pkg/engine"
	"github.com/storeflow/storeflow/pkg/entities"
	"github.com/storeflow/storeflow/pkg/eventbus"
	"github.com/storeflow/storeflow/pkg/log"
	"github.com/storeflow/storeflow/pkg/web"
	"github.com/storeflow/storeflow/pkg/webhook"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "storeflow-api",
		Usage:                 "Create and manage workflow definitions",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus for execution lifecycle events (kafka, gochannel, none)",
				Value:   "none",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated kafka broker addresses",
				Value:   "localhost:9092",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the notification broadcast channel",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: runAPI,
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		log.WithModule("api").Error("API terminated", "error", err)
		os.Exit(1)
	}
}

func runAPI(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("api")

	logger.InfoContext(ctx, "Initializing Storeflow API")

	store := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	defer func() {
		if err := store.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	// Manual runs execute in-process, so the API carries a small execution
	// pool of its own.
	var publisher eventbus.EventPublisher

	if provider := command.String("event-bus"); provider != "none" {
		eventBus := cmd.NewEventBus(provider, strings.Split(command.String("kafka-brokers"), ","), logger)
		defer func() {
			if err := eventBus.Close(); err != nil {
				logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
			}
		}()

		publisher = eventBus
	}

	repo := engine.NewRepository(store, nil)

	interpreter := engine.NewInterpreter(logger, engine.InterpreterOptions{
		Webhooks: webhook.NewCaller(config.DefaultWebhookTimeout),
		Notifier: cmd.NewNotifier(command.String("redis-url")),
		Entities: entities.NewMemoryStore(),
	})

	pool := engine.NewPool(logger, config.DefaultWorkerCount)
	pool.Start(ctx)

	defer func() {
		if err := pool.Stop(context.Background()); err != nil {
			logger.Error("Failed to stop execution pool", "error", err)
		}
	}()

	dispatcher := engine.NewDispatcher(logger, repo, interpreter, pool, engine.DispatcherOptions{
		Publisher: publisher,
	})

	api := web.NewAPI(repo, dispatcher)

	if err := api.Start(command.Int("port")); err != nil {
		logger.ErrorContext(ctx, "Failed to start API server", "error", err)
	}

	return nil
}
