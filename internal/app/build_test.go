package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ent0n29/taskdesk/internal/config"
	"github.com/ent0n29/taskdesk/internal/dialog"
	"github.com/ent0n29/taskdesk/internal/logging"
	"github.com/ent0n29/taskdesk/internal/notify"
	"github.com/ent0n29/taskdesk/internal/tasks"
)

func testConfig() config.Config {
	return config.Config{
		MetricsNamespace:        fmt.Sprintf("test_app_%d", time.Now().UnixNano()),
		NotificationTTL:         time.Minute,
		DialogInactivityTimeout: time.Minute,
		DialogRetention:         time.Minute,
		DialogJanitorInterval:   time.Hour,
	}
}

func TestBuildPublishesNotificationPerMutation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	built, err := Build(ctx, testConfig(), logging.Discard())
	require.NoError(t, err)
	defer func() { require.NoError(t, built.Cleanup()) }()

	fields := tasks.Fields{Title: "Pay rent", Description: "before the 5th", Priority: tasks.PriorityHigh}
	task, result := built.Store.Commit("", fields)
	require.True(t, result.Valid)

	fields.Description = "before the 3rd"
	_, result = built.Store.Commit(task.ID, fields)
	require.True(t, result.Valid)

	// Completion toggles are silent.
	_, ok := built.Store.SetCompletion(task.ID, true)
	require.True(t, ok)

	require.True(t, built.Store.Delete(task.ID))

	active := built.Notifications.Active()
	require.Len(t, active, 3)
	assert.Equal(t, "Task added successfully", active[0].Message)
	assert.Equal(t, notify.KindTaskUpdated, active[1].Kind)
	assert.Equal(t, "Task deleted successfully", active[2].Message)
	for _, n := range active {
		assert.Equal(t, task.ID, n.TaskID)
	}

	assert.Equal(t, float64(1), testutil.ToFloat64(built.Metrics.TaskMutations.WithLabelValues(string(tasks.MutationAdded))))
	assert.Equal(t, float64(1), testutil.ToFloat64(built.Metrics.TaskMutations.WithLabelValues(string(tasks.MutationDeleted))))
	assert.Equal(t, float64(3), testutil.ToFloat64(built.Metrics.NotificationEvents.WithLabelValues("shown")))
	assert.Equal(t, float64(0), testutil.ToFloat64(built.Metrics.Tasks))

	require.True(t, built.Notifications.Dismiss(active[0].ID))
	assert.Equal(t, float64(1), testutil.ToFloat64(built.Metrics.NotificationEvents.WithLabelValues(string(notify.ReasonDismissed))))
}

func TestBuildDeleteClosesEditDialogs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	built, err := Build(ctx, testConfig(), nil)
	require.NoError(t, err)
	defer func() { _ = built.Cleanup() }()

	task, result := built.Store.Commit("", tasks.Fields{Title: "Sweep", Description: "kitchen"})
	require.True(t, result.Valid)

	d, err := built.Dialogs.OpenForEdit(task.ID)
	require.NoError(t, err)
	require.Equal(t, 1, built.Dialogs.OpenCount())

	require.True(t, built.Store.Delete(task.ID))

	got, err := built.Dialogs.Get(d.ID)
	require.NoError(t, err)
	assert.Equal(t, dialog.StateClosed, got.State)
	assert.Equal(t, dialog.OutcomeTaskRemoved, got.Outcome)
	assert.Equal(t, 0, built.Dialogs.OpenCount())
}
