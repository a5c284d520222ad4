package engine

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storeflow/storeflow/pkg/entities"
	"github.com/storeflow/storeflow/pkg/mailer"
	"github.com/storeflow/storeflow/pkg/models"
	"github.com/storeflow/storeflow/pkg/notifier"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func saleTrigger(payload map[string]any) TriggerContext {
	return TriggerContext{
		EventID:    "evt-1",
		Type:       models.TriggerSaleCreated,
		StoreID:    "store-1",
		UserID:     "user-1",
		Payload:    payload,
		OccurredAt: time.Date(2026, time.March, 11, 10, 0, 0, 0, time.UTC),
	}
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (m *fakeMailer) Send(ctx context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sent = append(m.sent, msg)

	return nil
}

func TestRun_EmptyProgramSucceeds(t *testing.T) {
	interp := NewInterpreter(testLogger(), InterpreterOptions{})

	assert.NoError(t, interp.Run(context.Background(), nil, saleTrigger(nil)))
}

func TestRun_WebhookAction(t *testing.T) {
	var (
		mu       sync.Mutex
		method   string
		path     string
		body     string
		header   string
		numCalls int
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()

		raw, _ := io.ReadAll(r.Body)
		method, path, body = r.Method, r.URL.Path, string(raw)
		header = r.Header.Get("X-Store")
		numCalls++
	}))
	defer server.Close()

	interp := NewInterpreter(testLogger(), InterpreterOptions{})

	actions := []*models.Action{
		{
			Type:  models.ActionWebhook,
			Order: 1,
			Webhook: &models.WebhookConfig{
				URL:     server.URL + "/hooks/{{data.sale_id}}",
				Headers: map[string]string{"X-Store": "{{context.store_id}}"},
				Body:    map[string]any{"total": "{{data.total}}"},
			},
		},
	}

	trigger := saleTrigger(map[string]any{"sale_id": "s-42", "total": 150.5})

	require.NoError(t, interp.Run(context.Background(), actions, trigger))

	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "/hooks/s-42", path)
	assert.JSONEq(t, `{"total":"150.5"}`, body)
	assert.Equal(t, "store-1", header)
	assert.Equal(t, 1, numCalls)
}

func TestRun_WebhookNon2xxFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	interp := NewInterpreter(testLogger(), InterpreterOptions{})

	actions := []*models.Action{
		{Type: models.ActionWebhook, Order: 1, Webhook: &models.WebhookConfig{URL: server.URL}},
	}

	err := interp.Run(context.Background(), actions, saleTrigger(nil))

	require.Error(t, err)
	assert.Equal(t, KindTransient, KindOf(err))
}

func TestRun_EmailAction(t *testing.T) {
	sender := &fakeMailer{}
	interp := NewInterpreter(testLogger(), InterpreterOptions{Mailer: sender, Sender: "noreply@store.io"})

	actions := []*models.Action{
		{
			Type:  models.ActionEmail,
			Order: 1,
			Email: &models.EmailConfig{
				To:      models.StringList{"{{data.customer.email}}"},
				Subject: "Order {{data.sale_id}}",
				Body:    "<p>Total: {{data.total}}</p>",
			},
		},
	}

	trigger := saleTrigger(map[string]any{
		"sale_id": "s-1",
		"total":   float64(99),
		"customer": map[string]any{
			"email": "alice@example.com",
		},
	})

	require.NoError(t, interp.Run(context.Background(), actions, trigger))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "noreply@store.io", sender.sent[0].From)
	assert.Equal(t, []string{"alice@example.com"}, sender.sent[0].To)
	assert.Equal(t, "Order s-1", sender.sent[0].Subject)
	assert.Equal(t, "<p>Total: 99</p>", sender.sent[0].HTML)
}

func TestRun_EmailWithoutTransportFailsConfigMissing(t *testing.T) {
	interp := NewInterpreter(testLogger(), InterpreterOptions{})

	actions := []*models.Action{
		{Type: models.ActionEmail, Order: 1, Email: &models.EmailConfig{To: models.StringList{"a@x.io"}}},
	}

	err := interp.Run(context.Background(), actions, saleTrigger(nil))

	require.Error(t, err)
	assert.Equal(t, KindConfigMissing, KindOf(err))
	assert.ErrorIs(t, err, mailer.ErrNoTransport)
}

func TestRun_NotificationAction(t *testing.T) {
	channel := notifier.NewMemoryNotifier()
	interp := NewInterpreter(testLogger(), InterpreterOptions{Notifier: channel})

	actions := []*models.Action{
		{
			Type:  models.ActionNotification,
			Order: 1,
			Notification: &models.NotificationConfig{
				UserID:  "{{context.user_id}}",
				Title:   "Low stock",
				Message: "{{data.product}} is low",
			},
		},
	}

	trigger := saleTrigger(map[string]any{"product": "Coffee"})

	require.NoError(t, interp.Run(context.Background(), actions, trigger))

	emits := channel.Emits()
	require.Len(t, emits, 1)
	assert.Equal(t, "user:user-1", emits[0].Room)
	assert.Equal(t, "notification", emits[0].Event)

	record, ok := emits[0].Payload.(notifier.Notification)
	require.True(t, ok)
	assert.Equal(t, "Low stock", record.Title)
	assert.Equal(t, "Coffee is low", record.Message)
	assert.Equal(t, "normal", record.Priority)
	assert.Equal(t, "workflow", record.Source)
}

func TestRun_NotificationWithoutChannelIsNoOp(t *testing.T) {
	interp := NewInterpreter(testLogger(), InterpreterOptions{})

	actions := []*models.Action{
		{
			Type:         models.ActionNotification,
			Order:        1,
			Notification: &models.NotificationConfig{UserID: "u-1", Title: "t", Message: "m"},
		},
	}

	assert.NoError(t, interp.Run(context.Background(), actions, saleTrigger(nil)))
}

func TestRun_UpdateAction(t *testing.T) {
	store := entities.NewMemoryStore()
	store.Seed(entities.KindProduct, "p-1", map[string]any{"name": "Coffee", "reorder": false})

	interp := NewInterpreter(testLogger(), InterpreterOptions{Entities: store})

	actions := []*models.Action{
		{
			Type:  models.ActionUpdate,
			Order: 1,
			Update: &models.UpdateConfig{
				Entity:   "product",
				EntityID: "{{data.product_id}}",
				Updates:  map[string]any{"reorder": true},
			},
		},
	}

	trigger := saleTrigger(map[string]any{"product_id": "p-1"})

	require.NoError(t, interp.Run(context.Background(), actions, trigger))

	entity, err := store.Find(context.Background(), entities.KindProduct, "p-1")
	require.NoError(t, err)
	assert.Equal(t, true, entity["reorder"])
	assert.Equal(t, "Coffee", entity["name"])
}

func TestRun_UpdateMissingEntityFailsInvalidTarget(t *testing.T) {
	interp := NewInterpreter(testLogger(), InterpreterOptions{Entities: entities.NewMemoryStore()})

	actions := []*models.Action{
		{
			Type:   models.ActionUpdate,
			Order:  1,
			Update: &models.UpdateConfig{Entity: "product", EntityID: "ghost", Updates: map[string]any{}},
		},
	}

	err := interp.Run(context.Background(), actions, saleTrigger(nil))

	require.Error(t, err)
	assert.Equal(t, KindInvalidTarget, KindOf(err))
}

func TestRun_CreateActionInjectsStoreID(t *testing.T) {
	store := entities.NewMemoryStore()
	interp := NewInterpreter(testLogger(), InterpreterOptions{Entities: store})

	actions := []*models.Action{
		{
			Type:  models.ActionCreate,
			Order: 1,
			Create: &models.CreateConfig{
				EntityType: "customer",
				Data:       map[string]any{"id": "c-1", "name": "{{data.name}}"},
			},
		},
	}

	trigger := saleTrigger(map[string]any{"name": "Alice"})

	require.NoError(t, interp.Run(context.Background(), actions, trigger))

	entity, err := store.Find(context.Background(), entities.KindCustomer, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", entity["name"])
	assert.Equal(t, "store-1", entity["store_id"])
}

func TestRun_UnknownEntityKindFailsInvalidTarget(t *testing.T) {
	interp := NewInterpreter(testLogger(), InterpreterOptions{Entities: entities.NewMemoryStore()})

	actions := []*models.Action{
		{
			Type:   models.ActionCreate,
			Order:  1,
			Create: &models.CreateConfig{EntityType: "spaceship", Data: map[string]any{}},
		},
	}

	err := interp.Run(context.Background(), actions, saleTrigger(nil))

	require.Error(t, err)
	assert.Equal(t, KindInvalidTarget, KindOf(err))
	assert.ErrorIs(t, err, entities.ErrUnknownKind)
}

func TestRun_CreateActionNonStringID(t *testing.T) {
	store := entities.NewMemoryStore()
	interp := NewInterpreter(testLogger(), InterpreterOptions{Entities: store})

	// Producer payloads may carry a numeric "id"; the record gets a
	// generated one instead.
	actions := []*models.Action{
		{
			Type:  models.ActionCreate,
			Order: 1,
			Create: &models.CreateConfig{
				EntityType: "customer",
				Data:       map[string]any{"id": float64(123), "name": "Alice"},
			},
		},
	}

	require.NoError(t, interp.Run(context.Background(), actions, saleTrigger(nil)))
}

type panickyStore struct {
	entities.Store
}

func (panickyStore) Create(ctx context.Context, kind entities.Kind, data map[string]any) (entities.Entity, error) {
	panic("store gone")
}

func TestRun_ActionPanicFailsInternal(t *testing.T) {
	interp := NewInterpreter(testLogger(), InterpreterOptions{Entities: panickyStore{}})

	actions := []*models.Action{
		{
			Type:   models.ActionCreate,
			Order:  1,
			Create: &models.CreateConfig{EntityType: "customer", Data: map[string]any{}},
		},
	}

	err := interp.Run(context.Background(), actions, saleTrigger(nil))

	require.Error(t, err)
	assert.Equal(t, KindInternal, KindOf(err))
}

func TestRun_DelayAction(t *testing.T) {
	interp := NewInterpreter(testLogger(), InterpreterOptions{})

	actions := []*models.Action{
		{Type: models.ActionDelay, Order: 1, Delay: &models.DelayConfig{DurationMS: 10}},
	}

	start := time.Now()
	require.NoError(t, interp.Run(context.Background(), actions, saleTrigger(nil)))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestRun_DelayCancelled(t *testing.T) {
	interp := NewInterpreter(testLogger(), InterpreterOptions{})

	actions := []*models.Action{
		{Type: models.ActionDelay, Order: 1, Delay: &models.DelayConfig{DurationMS: 60_000}},
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := interp.Run(ctx, actions, saleTrigger(nil))

	require.Error(t, err)
	assert.Equal(t, KindCancelled, KindOf(err))
}

func TestRun_ApprovalFailsDefinition(t *testing.T) {
	interp := NewInterpreter(testLogger(), InterpreterOptions{})

	actions := []*models.Action{
		{Type: models.ActionApproval, Order: 1, Approval: &models.ApprovalConfig{}},
	}

	err := interp.Run(context.Background(), actions, saleTrigger(nil))

	require.Error(t, err)
	assert.Equal(t, KindDefinition, KindOf(err))
	assert.ErrorIs(t, err, models.ErrApprovalNotSupported)
}

func TestRun_ConditionBranches(t *testing.T) {
	channel := notifier.NewMemoryNotifier()
	interp := NewInterpreter(testLogger(), InterpreterOptions{Notifier: channel})

	conditionAction := func(threshold float64) *models.Action {
		return &models.Action{
			Type:  models.ActionCondition,
			Order: 1,
			Condition: &models.ConditionConfig{
				Condition: models.Condition{Field: "total", Operator: models.OpGreaterThan, Value: threshold},
				ThenActions: []*models.Action{
					{
						Type:         models.ActionNotification,
						Order:        1,
						Notification: &models.NotificationConfig{UserID: "u", Title: "then", Message: "m"},
					},
				},
				ElseActions: []*models.Action{
					{
						Type:         models.ActionNotification,
						Order:        1,
						Notification: &models.NotificationConfig{UserID: "u", Title: "else", Message: "m"},
					},
				},
			},
		}
	}

	trigger := saleTrigger(map[string]any{"total": float64(150)})

	require.NoError(t, interp.Run(context.Background(), []*models.Action{conditionAction(100)}, trigger))
	require.NoError(t, interp.Run(context.Background(), []*models.Action{conditionAction(200)}, trigger))

	emits := channel.Emits()
	require.Len(t, emits, 2)
	assert.Equal(t, "then", emits[0].Payload.(notifier.Notification).Title)
	assert.Equal(t, "else", emits[1].Payload.(notifier.Notification).Title)
}

func TestRun_ConditionRecursionLimit(t *testing.T) {
	interp := NewInterpreter(testLogger(), InterpreterOptions{})

	// Build a chain nested one level past the limit.
	innermost := &models.Action{
		Type:  models.ActionCondition,
		Order: 1,
		Condition: &models.ConditionConfig{
			Condition: models.Condition{Field: "x", Operator: models.OpEquals, Value: "y"},
		},
	}

	action := innermost
	for range maxConditionDepth {
		action = &models.Action{
			Type:  models.ActionCondition,
			Order: 1,
			Condition: &models.ConditionConfig{
				Condition:   models.Condition{Field: "x", Operator: models.OpEquals, Value: "x"},
				ThenActions: []*models.Action{action},
			},
		}
	}

	err := interp.Run(context.Background(), []*models.Action{action}, saleTrigger(map[string]any{"x": "x"}))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConditionTooDeep)
}

func TestRun_ContinueOnErrorProceeds(t *testing.T) {
	channel := notifier.NewMemoryNotifier()
	interp := NewInterpreter(testLogger(), InterpreterOptions{Notifier: channel})

	actions := []*models.Action{
		{
			Type:            models.ActionEmail,
			Order:           1,
			ContinueOnError: true,
			Email:           &models.EmailConfig{To: models.StringList{"a@x.io"}},
		},
		{
			Type:         models.ActionNotification,
			Order:        2,
			Notification: &models.NotificationConfig{UserID: "u", Title: "survived", Message: "m"},
		},
	}

	require.NoError(t, interp.Run(context.Background(), actions, saleTrigger(nil)))

	require.Len(t, channel.Emits(), 1)
}

func TestRun_AbortStopsRemainingActions(t *testing.T) {
	channel := notifier.NewMemoryNotifier()
	interp := NewInterpreter(testLogger(), InterpreterOptions{Notifier: channel})

	actions := []*models.Action{
		{Type: models.ActionEmail, Order: 1, Email: &models.EmailConfig{To: models.StringList{"a@x.io"}}},
		{
			Type:         models.ActionNotification,
			Order:        2,
			Notification: &models.NotificationConfig{UserID: "u", Title: "never", Message: "m"},
		},
	}

	err := interp.Run(context.Background(), actions, saleTrigger(nil))

	require.Error(t, err)
	assert.Empty(t, channel.Emits())
}

func TestRun_ActionsExecuteInOrder(t *testing.T) {
	channel := notifier.NewMemoryNotifier()
	interp := NewInterpreter(testLogger(), InterpreterOptions{Notifier: channel})

	notification := func(order int, title string) *models.Action {
		return &models.Action{
			Type:         models.ActionNotification,
			Order:        order,
			Notification: &models.NotificationConfig{UserID: "u", Title: title, Message: "m"},
		}
	}

	actions := []*models.Action{
		notification(3, "third"),
		notification(1, "first"),
		notification(2, "second"),
	}

	require.NoError(t, interp.Run(context.Background(), actions, saleTrigger(nil)))

	emits := channel.Emits()
	require.Len(t, emits, 3)
	assert.Equal(t, "first", emits[0].Payload.(notifier.Notification).Title)
	assert.Equal(t, "second", emits[1].Payload.(notifier.Notification).Title)
	assert.Equal(t, "third", emits[2].Payload.(notifier.Notification).Title)
}
