package engine

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storeflow/storeflow/pkg/models"
	"github.com/storeflow/storeflow/pkg/persistence/file"
)

func scheduleWorkflow(id string, active bool) *models.Workflow {
	return &models.Workflow{
		ID:      id,
		StoreID: "store-1",
		Name:    "Daily digest",
		Version: 1,
		Trigger: models.Trigger{
			Type:     models.TriggerSchedule,
			Schedule: &models.Schedule{Type: models.ScheduleDaily, Time: "09:00"},
		},
		Actions: []*models.Action{
			{
				Type:         models.ActionNotification,
				Order:        1,
				Notification: &models.NotificationConfig{UserID: "u-1", Title: "t", Message: "m"},
			},
		},
		IsActive: active,
	}
}

func TestSave_ComputesNextRunForActiveSchedule(t *testing.T) {
	now := time.Date(2026, time.March, 11, 10, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(now)
	repo := NewRepository(file.NewPersistence(t.TempDir()), clock)
	ctx := context.Background()

	workflow := scheduleWorkflow("wf-active", true)
	require.NoError(t, repo.Save(ctx, workflow))

	require.NotNil(t, workflow.Trigger.Schedule.NextRun)
	assert.Equal(t, time.Date(2026, time.March, 12, 9, 0, 0, 0, time.UTC), *workflow.Trigger.Schedule.NextRun)
	assert.Equal(t, now, workflow.UpdatedAt)
	assert.Equal(t, now, workflow.CreatedAt)
}

func TestSave_LeavesNextRunAloneWhenInactive(t *testing.T) {
	now := time.Date(2026, time.March, 11, 10, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(now)
	repo := NewRepository(file.NewPersistence(t.TempDir()), clock)
	ctx := context.Background()

	workflow := scheduleWorkflow("wf-inactive", false)
	require.NoError(t, repo.Save(ctx, workflow))
	assert.Nil(t, workflow.Trigger.Schedule.NextRun)

	stale := now.Add(-time.Hour)
	workflow.Trigger.Schedule.NextRun = &stale
	require.NoError(t, repo.Save(ctx, workflow))
	assert.Equal(t, stale, *workflow.Trigger.Schedule.NextRun)
}

func TestSave_RejectsInvalidDefinition(t *testing.T) {
	repo := NewRepository(file.NewPersistence(t.TempDir()), nil)

	workflow := scheduleWorkflow("wf-bad", true)
	workflow.Trigger.Schedule = nil

	err := repo.Save(context.Background(), workflow)

	assert.ErrorIs(t, err, models.ErrScheduleRequired)
}
