package engine

import (
	"time"

	"github.com/storeflow/storeflow/pkg/events"
	"github.com/storeflow/storeflow/pkg/models"
	"github.com/storeflow/storeflow/pkg/template"
)

// TriggerContext carries the provenance of one workflow execution: what
// fired, where, by whom, and with what payload. It is immutable for the
// duration of the run.
type TriggerContext struct {
	EventID        string
	Type           models.EventType
	StoreID        string
	OrganizationID string
	UserID         string
	Payload        map[string]any
	OccurredAt     time.Time
}

// FromDomainEvent builds the trigger context for an event-driven execution.
func FromDomainEvent(event events.DomainEvent) TriggerContext {
	return TriggerContext{
		EventID:        event.ID,
		Type:           event.Type,
		StoreID:        event.StoreID,
		OrganizationID: event.OrganizationID,
		UserID:         event.UserID,
		Payload:        event.Payload,
		OccurredAt:     event.OccurredAt,
	}
}

// ManualTrigger builds the trigger context for an operator-initiated run.
func ManualTrigger(workflow *models.Workflow, userID string, payload map[string]any) TriggerContext {
	return TriggerContext{
		Type:           models.TriggerManual,
		StoreID:        workflow.StoreID,
		OrganizationID: workflow.OrganizationID,
		UserID:         userID,
		Payload:        payload,
		OccurredAt:     time.Now().UTC(),
	}
}

// ScheduleTrigger builds the trigger context for a scheduler-initiated run.
func ScheduleTrigger(workflow *models.Workflow, at time.Time) TriggerContext {
	return TriggerContext{
		Type:           models.TriggerSchedule,
		StoreID:        workflow.StoreID,
		OrganizationID: workflow.OrganizationID,
		OccurredAt:     at,
	}
}

// TriggeredBy names the origin of the run for lifecycle events.
func (t TriggerContext) TriggeredBy() string {
	return string(t.Type)
}

// Bindings exposes the trigger to action templates: the event payload under
// "data" and the execution provenance under "context".
func (t TriggerContext) Bindings() template.Bindings {
	return template.Bindings{
		Data: t.Payload,
		Context: map[string]any{
			"event_id":        t.EventID,
			"trigger_type":    string(t.Type),
			"store_id":        t.StoreID,
			"organization_id": t.OrganizationID,
			"user_id":         t.UserID,
			"timestamp":       t.OccurredAt.Format(time.RFC3339),
		},
	}
}
