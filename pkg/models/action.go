package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ActionType tags the Action variant. The interpreter is a total match over
// this enumeration; adding a kind means adding a config struct and a case.
type ActionType string

const (
	ActionEmail        ActionType = "email"
	ActionNotification ActionType = "notification"
	ActionWebhook      ActionType = "webhook"
	ActionUpdate       ActionType = "update"
	ActionCreate       ActionType = "create"
	ActionApproval     ActionType = "approval"
	ActionDelay        ActionType = "delay"
	ActionCondition    ActionType = "condition"
)

var (
	ErrUnknownActionType = errors.New("unknown action type")
	ErrMissingConfig     = errors.New("action config is required")
)

// Action is one node of the execution program: a side effect or a control
// flow construct. Exactly one of the config pointers is set, matching Type.
type Action struct {
	Type            ActionType `json:"type"`
	Order           int        `json:"order"`
	ContinueOnError bool       `json:"continue_on_error,omitempty"`

	Email        *EmailConfig        `json:"-"`
	Notification *NotificationConfig `json:"-"`
	Webhook      *WebhookConfig      `json:"-"`
	Update       *UpdateConfig       `json:"-"`
	Create       *CreateConfig       `json:"-"`
	Approval     *ApprovalConfig     `json:"-"`
	Delay        *DelayConfig        `json:"-"`
	Condition    *ConditionConfig    `json:"-"`
}

// EmailConfig renders its template strings and submits through the mailer.
type EmailConfig struct {
	To      StringList `json:"to"`
	Subject string     `json:"subject"`
	Body    string     `json:"body"`
}

// NotificationConfig emits a notification record on the broadcast channel
// addressed to the rendered user. Priority defaults to "normal".
type NotificationConfig struct {
	UserID   string `json:"user_id"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Priority string `json:"priority,omitempty"`
}

// WebhookConfig sends an HTTP request. Method defaults to POST and the body,
// if structured, is stringified before template substitution.
type WebhookConfig struct {
	URL     string            `json:"url"`
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    any               `json:"body,omitempty"`
}

// UpdateConfig loads an entity by id, shallow-merges Updates and persists.
type UpdateConfig struct {
	Entity   string         `json:"entity"`
	EntityID string         `json:"entity_id"`
	Updates  map[string]any `json:"updates"`
}

// CreateConfig persists a new entity with the store id injected from context.
type CreateConfig struct {
	EntityType string         `json:"entity_type"`
	Data       map[string]any `json:"data"`
}

// ApprovalConfig is a reserved action kind; definitions carrying it are
// rejected at save time.
type ApprovalConfig struct {
	Approvers         StringList `json:"approvers"`
	RequiredApprovals int        `json:"required_approvals"`
	TimeoutMinutes    int        `json:"timeout"`
}

// DelayConfig suspends the interpreter for Duration milliseconds.
type DelayConfig struct {
	DurationMS int64 `json:"duration"`
}

// ConditionConfig evaluates the condition against the trigger payload and
// recurses into the chosen branch.
type ConditionConfig struct {
	Condition   Condition `json:"condition"`
	ThenActions []*Action `json:"then_actions,omitempty"`
	ElseActions []*Action `json:"else_actions,omitempty"`
}

// actionEnvelope is the wire shape: the config payload is keyed by type.
type actionEnvelope struct {
	Type            ActionType      `json:"type"`
	Order           int             `json:"order"`
	ContinueOnError bool            `json:"continue_on_error,omitempty"`
	Config          json.RawMessage `json:"config"`
}

func (a *Action) UnmarshalJSON(data []byte) error {
	var envelope actionEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}

	a.Type = envelope.Type
	a.Order = envelope.Order
	a.ContinueOnError = envelope.ContinueOnError

	if len(envelope.Config) == 0 {
		envelope.Config = json.RawMessage("{}")
	}

	var target any

	switch envelope.Type {
	case ActionEmail:
		a.Email = &EmailConfig{}
		target = a.Email
	case ActionNotification:
		a.Notification = &NotificationConfig{}
		target = a.Notification
	case ActionWebhook:
		a.Webhook = &WebhookConfig{}
		target = a.Webhook
	case ActionUpdate:
		a.Update = &UpdateConfig{}
		target = a.Update
	case ActionCreate:
		a.Create = &CreateConfig{}
		target = a.Create
	case ActionApproval:
		a.Approval = &ApprovalConfig{}
		target = a.Approval
	case ActionDelay:
		a.Delay = &DelayConfig{}
		target = a.Delay
	case ActionCondition:
		a.Condition = &ConditionConfig{}
		target = a.Condition
	default:
		return fmt.Errorf("%w: %q", ErrUnknownActionType, envelope.Type)
	}

	if err := json.Unmarshal(envelope.Config, target); err != nil {
		return fmt.Errorf("failed to decode %s config: %w", envelope.Type, err)
	}

	return nil
}

func (a Action) MarshalJSON() ([]byte, error) {
	config, err := json.Marshal(a.config())
	if err != nil {
		return nil, err
	}

	return json.Marshal(actionEnvelope{
		Type:            a.Type,
		Order:           a.Order,
		ContinueOnError: a.ContinueOnError,
		Config:          config,
	})
}

func (a *Action) config() any {
	switch a.Type {
	case ActionEmail:
		return a.Email
	case ActionNotification:
		return a.Notification
	case ActionWebhook:
		return a.Webhook
	case ActionUpdate:
		return a.Update
	case ActionCreate:
		return a.Create
	case ActionApproval:
		return a.Approval
	case ActionDelay:
		return a.Delay
	case ActionCondition:
		return a.Condition
	default:
		return nil
	}
}

// Validate checks that the config matching Type is present and well formed.
// Approval actions are rejected here rather than silently succeeding at
// runtime.
func (a *Action) Validate() error {
	switch a.Type {
	case ActionEmail:
		if a.Email == nil || len(a.Email.To) == 0 {
			return fmt.Errorf("%w: email requires recipients", ErrMissingConfig)
		}
	case ActionNotification:
		if a.Notification == nil || a.Notification.UserID == "" {
			return fmt.Errorf("%w: notification requires user_id", ErrMissingConfig)
		}
	case ActionWebhook:
		if a.Webhook == nil || a.Webhook.URL == "" {
			return fmt.Errorf("%w: webhook requires url", ErrMissingConfig)
		}
	case ActionUpdate:
		if a.Update == nil || a.Update.Entity == "" || a.Update.EntityID == "" {
			return fmt.Errorf("%w: update requires entity and entity_id", ErrMissingConfig)
		}
	case ActionCreate:
		if a.Create == nil || a.Create.EntityType == "" {
			return fmt.Errorf("%w: create requires entity_type", ErrMissingConfig)
		}
	case ActionApproval:
		return ErrApprovalNotSupported
	case ActionDelay:
		if a.Delay == nil || a.Delay.DurationMS < 0 {
			return fmt.Errorf("%w: delay requires a non-negative duration", ErrMissingConfig)
		}
	case ActionCondition:
		if a.Condition == nil {
			return fmt.Errorf("%w: condition requires a condition object", ErrMissingConfig)
		}

		if err := a.Condition.Condition.Validate(); err != nil {
			return err
		}

		for _, nested := range a.Condition.ThenActions {
			if err := nested.Validate(); err != nil {
				return err
			}
		}

		for _, nested := range a.Condition.ElseActions {
			if err := nested.Validate(); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownActionType, a.Type)
	}

	return nil
}

// StringList decodes either a single JSON string or an array of strings.
// Workflow authors historically wrote "to": "ops@x.io" for single recipients.
type StringList []string

func (s *StringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = StringList{single}

		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}

	*s = many

	return nil
}
