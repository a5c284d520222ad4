// Package eventbus carries domain events into the engine and execution
// lifecycle events out of it.
package eventbus

import (
	"context"

	"github.com/storeflow/storeflow/pkg/events"
)

type EventPublisher interface {
	Publish(ctx context.Context, key string, event events.Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
