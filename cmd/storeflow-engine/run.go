package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/trace"

	cli "github.com/urfave/cli/v3"

	"github.com/storeflow/storeflow/pkg/cmd"
	"github.com/storeflow/storeflow/pkg/config"
	"github.com/storeflow/storeflow/pkg/engine"
	"github.com/storeflow/storeflow/pkg/entities"
	"github.com/storeflow/storeflow/pkg/eventbus"
	"github.com/storeflow/storeflow/pkg/events"
	"github.com/storeflow/storeflow/pkg/log"
	"github.com/storeflow/storeflow/pkg/otelhelper"
	"github.com/storeflow/storeflow/pkg/scheduler"
	"github.com/storeflow/storeflow/pkg/webhook"
)

const shutdownTimeout = 30 * time.Second

func NewRunCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Start the dispatcher, scheduler and execution workers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
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
				Name:    "redis-url",
				Usage:   "Redis URL for the notification broadcast channel",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.IntFlag{
				Name:    "workers",
				Usage:   "Number of execution workers",
				Value:   config.DefaultWorkerCount,
				Sources: cli.EnvVars("WORKERS"),
			},
			&cli.DurationFlag{
				Name:    "scheduler-tick",
				Usage:   "Interval between scheduler sweeps (max 60s)",
				Value:   config.DefaultSchedulerTick,
				Sources: cli.EnvVars("SCHEDULER_TICK"),
			},
			&cli.DurationFlag{
				Name:    "webhook-timeout",
				Usage:   "Timeout for outbound webhook calls",
				Value:   config.DefaultWebhookTimeout,
				Sources: cli.EnvVars("WEBHOOK_TIMEOUT"),
			},
			&cli.StringFlag{
				Name:    "mail-host",
				Usage:   "SMTP host (empty disables email actions)",
				Sources: cli.EnvVars("MAIL_HOST"),
			},
			&cli.IntFlag{
				Name:    "mail-port",
				Usage:   "SMTP port",
				Value:   587,
				Sources: cli.EnvVars("MAIL_PORT"),
			},
			&cli.StringFlag{
				Name:    "mail-user",
				Usage:   "SMTP user",
				Sources: cli.EnvVars("MAIL_USER"),
			},
			&cli.StringFlag{
				Name:    "mail-pass",
				Usage:   "SMTP password",
				Sources: cli.EnvVars("MAIL_PASS"),
			},
			&cli.StringFlag{
				Name:    "mail-from",
				Usage:   "Envelope sender for workflow email",
				Sources: cli.EnvVars("MAIL_FROM"),
			},
			&cli.BoolFlag{
				Name:    "mail-secure",
				Usage:   "Use implicit TLS for SMTP",
				Sources: cli.EnvVars("MAIL_SECURE"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export OpenTelemetry traces",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: runEngine,
	}
}

func runEngine(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("engine")

	logger.InfoContext(ctx, "Initializing Storeflow engine")

	cfg := config.Config{
		AppName: "storeflow-engine",
		Mail: config.Mail{
			From:   command.String("mail-from"),
			Host:   command.String("mail-host"),
			Port:   command.Int("mail-port"),
			User:   command.String("mail-user"),
			Pass:   command.String("mail-pass"),
			Secure: command.Bool("mail-secure"),
		},
		WebhookTimeout: command.Duration("webhook-timeout"),
		SchedulerTick:  command.Duration("scheduler-tick"),
		Workers:        command.Int("workers"),
	}
	if err := cfg.Normalize(); err != nil {
		return err
	}

	var tracer trace.Tracer

	if command.Bool("tracing") {
		var err error

		tracer, err = otelhelper.NewTracer(ctx, cfg.AppName)
		if err != nil {
			return err
		}
	}

	store := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	defer func() {
		if err := store.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eventBus := cmd.NewEventBus(command.String("event-bus"), strings.Split(command.String("kafka-brokers"), ","), logger)
	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo := engine.NewRepository(store, nil)

	interpreter := engine.NewInterpreter(logger, engine.InterpreterOptions{
		Mailer:   cmd.NewMailer(cfg.Mail),
		Sender:   cfg.Mail.Sender(),
		Webhooks: webhook.NewCaller(cfg.WebhookTimeout),
		Notifier: cmd.NewNotifier(command.String("redis-url")),
		Entities: entities.NewMemoryStore(),
	})

	pool := engine.NewPool(logger, cfg.Workers)
	pool.Start(runCtx)

	dispatcher := engine.NewDispatcher(logger, repo, interpreter, pool, engine.DispatcherOptions{
		Publisher: eventBus,
		Tracer:    tracer,
	})

	sched := scheduler.New(logger, repo, dispatcher, nil, cfg.SchedulerTick)
	sched.Start(runCtx)

	if err := subscribeDispatcher(runCtx, eventBus, dispatcher); err != nil {
		return err
	}

	logger.InfoContext(runCtx, "Storeflow engine started", "workers", cfg.Workers)

	<-runCtx.Done()

	logger.Info("Shutting down")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := pool.Stop(shutdownCtx); err != nil {
		logger.Error("Executions cancelled during shutdown", "error", err)
	}

	return nil
}

func subscribeDispatcher(ctx context.Context, eventBus eventbus.EventBus, dispatcher *engine.Dispatcher) error {
	err := eventBus.Handle(events.DomainEventType, func(ctx context.Context, event any) error {
		domainEvent, ok := event.(*events.DomainEvent)
		if !ok {
			return nil
		}

		return dispatcher.Dispatch(ctx, *domainEvent)
	})
	if err != nil {
		return err
	}

	return eventBus.Subscribe(ctx)
}
