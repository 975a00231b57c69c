package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ent0n29/taskdesk/internal/tasks"
)

func nextEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case evt, ok := <-ch:
		require.True(t, ok, "subscription closed")
		return evt
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event")
		return Event{}
	}
}

func TestPublishAutoDismisses(t *testing.T) {
	h := NewHub(30 * time.Millisecond)
	defer h.Close()
	events, cancel := h.Subscribe()
	defer cancel()

	n := h.Publish(KindTaskAdded, "Task added successfully", "t1")
	assert.Equal(t, n.CreatedAt.Add(30*time.Millisecond), n.ExpiresAt)
	assert.Len(t, h.Active(), 1)

	shown := nextEvent(t, events)
	assert.Equal(t, EventShown, shown.Type)
	assert.Equal(t, n.ID, shown.Notification.ID)

	gone := nextEvent(t, events)
	assert.Equal(t, EventDismissed, gone.Type)
	assert.Equal(t, ReasonExpired, gone.Reason)
	assert.Empty(t, h.Active())
}

func TestDismissEarly(t *testing.T) {
	h := NewHub(time.Hour)
	defer h.Close()
	var reasons []DismissReason
	h.SetDismissHook(func(_ Notification, r DismissReason) { reasons = append(reasons, r) })

	n := h.Publish(KindTaskUpdated, "Task updated successfully", "t1")
	assert.True(t, h.Dismiss(n.ID))
	assert.False(t, h.Dismiss(n.ID))
	assert.False(t, h.Dismiss("unknown"))
	assert.Empty(t, h.Active())
	assert.Equal(t, []DismissReason{ReasonDismissed}, reasons)
}

func TestActiveKeepsPublishOrder(t *testing.T) {
	h := NewHub(time.Hour)
	defer h.Close()
	a := h.Publish(KindTaskAdded, "a", "")
	b := h.Publish(KindTaskAdded, "b", "")
	c := h.Publish(KindTaskAdded, "c", "")
	h.Dismiss(b.ID)

	active := h.Active()
	require.Len(t, active, 2)
	assert.Equal(t, a.ID, active[0].ID)
	assert.Equal(t, c.ID, active[1].ID)
}

func TestCloseStopsTimersAndSubscribers(t *testing.T) {
	h := NewHub(20 * time.Millisecond)
	events, _ := h.Subscribe()
	h.Publish(KindTaskDeleted, "Task deleted successfully", "t1")
	h.Close()

	// Drain the shown event; the channel must then be closed.
	for range events {
	}
	assert.Empty(t, h.Active())

	late, cancel := h.Subscribe()
	cancel()
	_, ok := <-late
	assert.False(t, ok)
}

func TestMessageFor(t *testing.T) {
	kind, msg := MessageFor(tasks.MutationAdded)
	assert.Equal(t, KindTaskAdded, kind)
	assert.Equal(t, "Task added successfully", msg)

	kind, msg = MessageFor(tasks.MutationUpdated)
	assert.Equal(t, KindTaskUpdated, kind)
	assert.Equal(t, "Task updated successfully", msg)

	kind, msg = MessageFor(tasks.MutationDeleted)
	assert.Equal(t, KindTaskDeleted, kind)
	assert.Equal(t, "Task deleted successfully", msg)
}

func TestSubscribeWithSnapshotDoesNotRepeatSnapshot(t *testing.T) {
	h := NewHub(time.Minute)
	defer h.Close()

	a := h.Publish(KindTaskAdded, "Task added successfully", "t1")
	snapshot, events, cancel := h.SubscribeWithSnapshot()
	defer cancel()

	require.Len(t, snapshot, 1)
	assert.Equal(t, a.ID, snapshot[0].ID)
	select {
	case evt := <-events:
		t.Fatalf("unexpected buffered event for snapshot entry: %+v", evt)
	default:
	}

	b := h.Publish(KindTaskUpdated, "Task updated successfully", "t1")
	shown := nextEvent(t, events)
	assert.Equal(t, EventShown, shown.Type)
	assert.Equal(t, b.ID, shown.Notification.ID)
}
