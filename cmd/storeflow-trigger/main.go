// storeflow-trigger publishes a domain event onto the bus, mainly for
// exercising workflows from the command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"

	"github.com/storeflow/storeflow/pkg/cmd"
	"github.com/storeflow/storeflow/pkg/events"
	"github.com/storeflow/storeflow/pkg/log"
	"github.com/storeflow/storeflow/pkg/models"
)

func main() {
	command := &cli.Command{
		Name:                  "storeflow-trigger",
		Usage:                 "Publish a domain event to trigger workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "type",
				Aliases:  []string{"t"},
				Usage:    "Event type, e.g. sale.created",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "store-id",
				Aliases:  []string{"s"},
				Usage:    "Store (tenant) the event belongs to",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "payload",
				Usage:   "Event payload as a JSON object",
				Value:   "{}",
				Sources: cli.EnvVars("EVENT_PAYLOAD"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated kafka broker addresses",
				Value:   "localhost:9092",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: publishEvent,
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		log.WithModule("trigger").Error("Failed to publish event", "error", err)
		os.Exit(1)
	}
}

func publishEvent(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("trigger")

	eventType := models.EventType(command.String("type"))
	if !eventType.Valid() {
		return fmt.Errorf("unknown event type %q", command.String("type"))
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(command.String("payload")), &payload); err != nil {
		return fmt.Errorf("payload must be a JSON object: %w", err)
	}

	eventBus := cmd.NewEventBus(command.String("event-bus"), strings.Split(command.String("kafka-brokers"), ","), logger)
	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	event := events.NewDomainEvent(eventType, command.String("store-id"), payload)

	if err := eventBus.Publish(ctx, event.StoreID, event); err != nil {
		return err
	}

	logger.InfoContext(ctx, "Event published",
		"event_id", event.ID,
		"event_type", event.Type,
		"store_id", event.StoreID)

	return nil
}
