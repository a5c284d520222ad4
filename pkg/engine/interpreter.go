package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/storeflow/storeflow/pkg/conditions"
	"github.com/storeflow/storeflow/pkg/entities"
	"github.com/storeflow/storeflow/pkg/mailer"
	"github.com/storeflow/storeflow/pkg/models"
	"github.com/storeflow/storeflow/pkg/notifier"
	"github.com/storeflow/storeflow/pkg/template"
	"github.com/storeflow/storeflow/pkg/webhook"
)

// maxConditionDepth bounds nested condition actions. Definitions deeper than
// this fail with a definition error instead of overflowing the stack.
const maxConditionDepth = 32

const defaultNotificationPriority = "normal"

var (
	ErrConditionTooDeep = errors.New("condition nesting exceeds the recursion limit")
	ErrDelayCancelled   = errors.New("delay interrupted by cancellation")
)

// WebhookCaller issues the outbound HTTP call for webhook actions.
type WebhookCaller interface {
	Call(ctx context.Context, method, url string, headers map[string]string, body string) error
}

// Interpreter executes an action program against one trigger context. It is
// stateless between runs and safe for concurrent use.
type Interpreter struct {
	logger   *slog.Logger
	clock    clockwork.Clock
	mailer   mailer.Mailer
	sender   string
	webhooks WebhookCaller
	notifier notifier.Notifier
	entities entities.Store
}

// InterpreterOptions bundles the side-effect ports. Nil Mailer and Entities
// fail their actions with ConfigMissing; a nil Notifier makes notification
// actions a no-op.
type InterpreterOptions struct {
	Clock    clockwork.Clock
	Mailer   mailer.Mailer
	Sender   string
	Webhooks WebhookCaller
	Notifier notifier.Notifier
	Entities entities.Store
}

func NewInterpreter(logger *slog.Logger, opts InterpreterOptions) *Interpreter {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	if opts.Webhooks == nil {
		opts.Webhooks = webhook.NewCaller(0)
	}

	return &Interpreter{
		logger:   logger,
		clock:    opts.Clock,
		mailer:   opts.Mailer,
		sender:   opts.Sender,
		webhooks: opts.Webhooks,
		notifier: opts.Notifier,
		entities: opts.Entities,
	}
}

// Run executes the actions in order. A failing action aborts the run unless
// it is marked continue_on_error, in which case the failure is logged and the
// run proceeds. An empty program succeeds trivially.
func (i *Interpreter) Run(ctx context.Context, actions []*models.Action, trigger TriggerContext) error {
	return i.runSequence(ctx, actions, trigger, 0)
}

func (i *Interpreter) runSequence(ctx context.Context, actions []*models.Action, trigger TriggerContext, depth int) error {
	for _, action := range models.SortActions(actions) {
		if err := i.execute(ctx, action, trigger, depth); err != nil {
			if action.ContinueOnError {
				i.logger.WarnContext(ctx, "Action failed, continuing",
					"action_type", action.Type,
					"store_id", trigger.StoreID,
					"error", err)

				continue
			}

			return err
		}
	}

	return nil
}

// execute runs one action. A panic inside an action is converted into an
// Internal failure so a broken definition can never take down the worker
// that runs it.
func (i *Interpreter) execute(ctx context.Context, action *models.Action, trigger TriggerContext, depth int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.ErrorContext(ctx, "Action panicked",
				"action_type", action.Type,
				"store_id", trigger.StoreID,
				"panic", r)

			err = newExecError(KindInternal, action.Type, fmt.Errorf("action panicked: %v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return newExecError(KindCancelled, action.Type, err)
	}

	switch action.Type {
	case models.ActionEmail:
		return i.runEmail(ctx, action, trigger)
	case models.ActionNotification:
		return i.runNotification(ctx, action, trigger)
	case models.ActionWebhook:
		return i.runWebhook(ctx, action, trigger)
	case models.ActionUpdate:
		return i.runUpdate(ctx, action, trigger)
	case models.ActionCreate:
		return i.runCreate(ctx, action, trigger)
	case models.ActionDelay:
		return i.runDelay(ctx, action)
	case models.ActionCondition:
		return i.runCondition(ctx, action, trigger, depth)
	case models.ActionApproval:
		return newExecError(KindDefinition, action.Type, models.ErrApprovalNotSupported)
	default:
		return newExecError(KindDefinition, action.Type, models.ErrUnknownActionType)
	}
}

func (i *Interpreter) runEmail(ctx context.Context, action *models.Action, trigger TriggerContext) error {
	cfg := action.Email
	if cfg == nil {
		return newExecError(KindDefinition, action.Type, models.ErrMissingConfig)
	}

	if i.mailer == nil {
		return newExecError(KindConfigMissing, action.Type, mailer.ErrNoTransport)
	}

	bindings := trigger.Bindings()

	recipients := make([]string, 0, len(cfg.To))
	for _, to := range cfg.To {
		recipients = append(recipients, template.Resolve(to, bindings))
	}

	msg := mailer.Message{
		From:    i.sender,
		To:      recipients,
		Subject: template.Resolve(cfg.Subject, bindings),
		HTML:    template.Resolve(cfg.Body, bindings),
	}

	if err := i.mailer.Send(ctx, msg); err != nil {
		return newExecError(KindTransient, action.Type, err)
	}

	return nil
}

func (i *Interpreter) runNotification(ctx context.Context, action *models.Action, trigger TriggerContext) error {
	cfg := action.Notification
	if cfg == nil {
		return newExecError(KindDefinition, action.Type, models.ErrMissingConfig)
	}

	// No broadcast channel means nobody is listening; the action succeeds
	// without emitting.
	if i.notifier == nil {
		i.logger.DebugContext(ctx, "Notification skipped, no broadcast channel",
			"store_id", trigger.StoreID)

		return nil
	}

	bindings := trigger.Bindings()

	priority := cfg.Priority
	if priority == "" {
		priority = defaultNotificationPriority
	}

	userID := template.Resolve(cfg.UserID, bindings)

	record := notifier.Notification{
		Title:     template.Resolve(cfg.Title, bindings),
		Message:   template.Resolve(cfg.Message, bindings),
		Priority:  priority,
		Timestamp: i.clock.Now().UTC(),
		Source:    "workflow",
	}

	if err := i.notifier.Emit(ctx, notifier.UserRoom(userID), "notification", record); err != nil {
		return newExecError(KindTransient, action.Type, err)
	}

	return nil
}

func (i *Interpreter) runWebhook(ctx context.Context, action *models.Action, trigger TriggerContext) error {
	cfg := action.Webhook
	if cfg == nil {
		return newExecError(KindDefinition, action.Type, models.ErrMissingConfig)
	}

	bindings := trigger.Bindings()

	method := strings.ToUpper(cfg.Method)
	if method == "" {
		method = http.MethodPost
	}

	url := template.Resolve(cfg.URL, bindings)

	headers := make(map[string]string, len(cfg.Headers))
	for key, value := range cfg.Headers {
		headers[key] = template.Resolve(value, bindings)
	}

	body, err := renderWebhookBody(cfg.Body, bindings)
	if err != nil {
		return newExecError(KindDefinition, action.Type, err)
	}

	if err := i.webhooks.Call(ctx, method, url, headers, body); err != nil {
		return newExecError(KindTransient, action.Type, err)
	}

	return nil
}

// renderWebhookBody resolves templates inside the body and serializes it.
// String bodies pass through as-is after substitution; structured bodies are
// re-encoded as JSON.
func renderWebhookBody(body any, bindings template.Bindings) (string, error) {
	switch v := body.(type) {
	case nil:
		return "", nil
	case string:
		return template.Resolve(v, bindings), nil
	default:
		resolved := template.ResolveValue(v, bindings)

		encoded, err := json.Marshal(resolved)
		if err != nil {
			return "", fmt.Errorf("failed to encode webhook body: %w", err)
		}

		return string(encoded), nil
	}
}

func (i *Interpreter) runUpdate(ctx context.Context, action *models.Action, trigger TriggerContext) error {
	cfg := action.Update
	if cfg == nil {
		return newExecError(KindDefinition, action.Type, models.ErrMissingConfig)
	}

	if i.entities == nil {
		return newExecError(KindConfigMissing, action.Type, errors.New("no entity store configured"))
	}

	kind, err := entities.ParseKind(cfg.Entity)
	if err != nil {
		return newExecError(KindInvalidTarget, action.Type, err)
	}

	bindings := trigger.Bindings()

	entityID := template.Resolve(cfg.EntityID, bindings)

	patch, ok := template.ResolveValue(cfg.Updates, bindings).(map[string]any)
	if !ok {
		patch = map[string]any{}
	}

	if _, err := i.entities.Update(ctx, kind, entityID, patch); err != nil {
		if errors.Is(err, entities.ErrNotFound) {
			return newExecError(KindInvalidTarget, action.Type, err)
		}

		return newExecError(KindTransient, action.Type, err)
	}

	return nil
}

func (i *Interpreter) runCreate(ctx context.Context, action *models.Action, trigger TriggerContext) error {
	cfg := action.Create
	if cfg == nil {
		return newExecError(KindDefinition, action.Type, models.ErrMissingConfig)
	}

	if i.entities == nil {
		return newExecError(KindConfigMissing, action.Type, errors.New("no entity store configured"))
	}

	kind, err := entities.ParseKind(cfg.EntityType)
	if err != nil {
		return newExecError(KindInvalidTarget, action.Type, err)
	}

	data, ok := template.ResolveValue(cfg.Data, trigger.Bindings()).(map[string]any)
	if !ok {
		data = map[string]any{}
	}

	// The new record always belongs to the triggering store.
	data["store_id"] = trigger.StoreID

	if _, err := i.entities.Create(ctx, kind, data); err != nil {
		return newExecError(KindTransient, action.Type, err)
	}

	return nil
}

func (i *Interpreter) runDelay(ctx context.Context, action *models.Action) error {
	cfg := action.Delay
	if cfg == nil {
		return newExecError(KindDefinition, action.Type, models.ErrMissingConfig)
	}

	duration := time.Duration(cfg.DurationMS) * time.Millisecond
	if duration <= 0 {
		return nil
	}

	select {
	case <-i.clock.After(duration):
		return nil
	case <-ctx.Done():
		return newExecError(KindCancelled, action.Type, ErrDelayCancelled)
	}
}

func (i *Interpreter) runCondition(ctx context.Context, action *models.Action, trigger TriggerContext, depth int) error {
	cfg := action.Condition
	if cfg == nil {
		return newExecError(KindDefinition, action.Type, models.ErrMissingConfig)
	}

	if depth >= maxConditionDepth {
		return newExecError(KindDefinition, action.Type, ErrConditionTooDeep)
	}

	branch := cfg.ElseActions
	if conditions.Matches([]models.Condition{cfg.Condition}, trigger.Payload) {
		branch = cfg.ThenActions
	}

	return i.runSequence(ctx, branch, trigger, depth+1)
}
