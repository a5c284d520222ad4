// Package events defines the wire types that travel over the event bus.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/storeflow/storeflow/pkg/models"
)

// Kafka topics.
const Topic = "storeflow.events"              // domain events published by the POS
const ExecutionTopic = "storeflow.executions" // execution lifecycle events published by the engine
const EventMetadataKey = "key"                // partition key metadata
const EventTypeMetadataKey = "event_type"     // event type metadata for dispatch without decoding

// EventType tags engine lifecycle events on the execution topic.
type EventType string

const (
	DomainEventType        EventType = "domain.event"
	ExecutionCompletedType EventType = "workflow.execution.completed"
	ExecutionFailedType    EventType = "workflow.execution.failed"
)

// Event is anything publishable on the bus.
type Event interface {
	GetType() EventType
}

// DomainEvent is a fire-and-forget business fact published by POS domain
// code: a sale closed, stock ran low, a customer was promoted. Payload is
// producer-defined JSON; the engine never assumes its shape.
type DomainEvent struct {
	ID             string           `json:"id"`
	Type           models.EventType `json:"type"`
	StoreID        string           `json:"store_id"`
	OrganizationID string           `json:"organization_id,omitempty"`
	UserID         string           `json:"user_id,omitempty"`
	Payload        map[string]any   `json:"payload,omitempty"`
	OccurredAt     time.Time        `json:"occurred_at"`
}

func (e DomainEvent) GetType() EventType {
	return DomainEventType
}

// NewDomainEvent stamps id and occurrence time.
func NewDomainEvent(eventType models.EventType, storeID string, payload map[string]any) DomainEvent {
	return DomainEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		StoreID:    storeID,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
}

// ExecutionCompleted reports a successful workflow run to observers.
type ExecutionCompleted struct {
	ID          string    `json:"id"`
	WorkflowID  string    `json:"workflow_id"`
	StoreID     string    `json:"store_id"`
	TriggeredBy string    `json:"triggered_by"`
	DurationMS  int64     `json:"duration_ms"`
	FinishedAt  time.Time `json:"finished_at"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedType
}

// ExecutionFailed reports a failed workflow run, carrying the aborting error.
type ExecutionFailed struct {
	ID          string    `json:"id"`
	WorkflowID  string    `json:"workflow_id"`
	StoreID     string    `json:"store_id"`
	TriggeredBy string    `json:"triggered_by"`
	Error       string    `json:"error"`
	DurationMS  int64     `json:"duration_ms"`
	FinishedAt  time.Time `json:"finished_at"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedType
}
