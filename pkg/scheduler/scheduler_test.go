package scheduler

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storeflow/storeflow/pkg/engine"
	"github.com/storeflow/storeflow/pkg/models"
	"github.com/storeflow/storeflow/pkg/notifier"
	"github.com/storeflow/storeflow/pkg/persistence/file"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

type harness struct {
	store     *file.Persistence
	repo      *engine.Repository
	scheduler *Scheduler
	clock     *clockwork.FakeClock
	notifier  *notifier.MemoryNotifier
}

func newHarness(t *testing.T, at time.Time) *harness {
	t.Helper()

	clock := clockwork.NewFakeClockAt(at)
	store := file.NewPersistence(t.TempDir())
	repo := engine.NewRepository(store, clock)
	channel := notifier.NewMemoryNotifier()

	interpreter := engine.NewInterpreter(testLogger(), engine.InterpreterOptions{Notifier: channel})

	pool := engine.NewPool(testLogger(), 2)
	pool.Start(context.Background())

	t.Cleanup(func() {
		_ = pool.Stop(context.Background())
	})

	dispatcher := engine.NewDispatcher(testLogger(), repo, interpreter, pool, engine.DispatcherOptions{})

	return &harness{
		store:     store,
		repo:      repo,
		scheduler: New(testLogger(), repo, dispatcher, clock, time.Minute),
		clock:     clock,
		notifier:  channel,
	}
}

func scheduledWorkflow(id string, nextRun time.Time) *models.Workflow {
	return &models.Workflow{
		ID:      id,
		StoreID: "store-1",
		Name:    "Daily digest " + id,
		Version: 1,
		Trigger: models.Trigger{
			Type: models.TriggerSchedule,
			Schedule: &models.Schedule{
				Type:    models.ScheduleDaily,
				Time:    "09:00",
				NextRun: &nextRun,
			},
		},
		Actions: []*models.Action{
			{
				Type:         models.ActionNotification,
				Order:        1,
				Notification: &models.NotificationConfig{UserID: "u-1", Title: id, Message: "digest"},
			},
		},
		IsActive: true,
	}
}

func TestSweep_RunsDueWorkflowAndReschedules(t *testing.T) {
	now := time.Date(2026, time.March, 11, 10, 0, 0, 0, time.UTC)
	h := newHarness(t, now)
	ctx := context.Background()

	workflow := scheduledWorkflow("wf-due", now.Add(-time.Minute))
	require.NoError(t, h.store.SaveWorkflow(ctx, workflow))

	h.scheduler.Sweep(ctx)

	// The slot is advanced before the run is enqueued.
	loaded, err := h.repo.Get(ctx, "wf-due")
	require.NoError(t, err)
	require.NotNil(t, loaded.Trigger.Schedule.NextRun)
	assert.Equal(t, time.Date(2026, time.March, 12, 9, 0, 0, 0, time.UTC), *loaded.Trigger.Schedule.NextRun)

	require.Eventually(t, func() bool {
		return len(h.notifier.Emits()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// A second sweep at the same instant finds nothing due.
	h.scheduler.Sweep(ctx)

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, h.notifier.Emits(), 1)
}

func TestSweep_SkipsFutureAndInactive(t *testing.T) {
	now := time.Date(2026, time.March, 11, 10, 0, 0, 0, time.UTC)
	h := newHarness(t, now)
	ctx := context.Background()

	future := scheduledWorkflow("wf-future", now.Add(time.Hour))
	inactive := scheduledWorkflow("wf-inactive", now.Add(-time.Minute))
	inactive.IsActive = false

	require.NoError(t, h.store.SaveWorkflow(ctx, future))
	require.NoError(t, h.store.SaveWorkflow(ctx, inactive))

	h.scheduler.Sweep(ctx)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, h.notifier.Emits())
}

func TestScheduler_TickDrivesSweep(t *testing.T) {
	now := time.Date(2026, time.March, 11, 10, 0, 0, 0, time.UTC)
	h := newHarness(t, now)
	ctx := context.Background()

	workflow := scheduledWorkflow("wf-due", now.Add(-time.Minute))
	require.NoError(t, h.store.SaveWorkflow(ctx, workflow))

	h.scheduler.Start(ctx)
	defer h.scheduler.Stop()

	h.clock.BlockUntil(1)
	h.clock.Advance(time.Minute)

	require.Eventually(t, func() bool {
		return len(h.notifier.Emits()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
