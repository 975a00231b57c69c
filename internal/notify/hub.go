// Package notify publishes one-shot completion notifications that dismiss
// themselves after a TTL unless a client dismisses them first.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ent0n29/taskdesk/internal/tasks"
)

const DefaultTTL = 3 * time.Second

type Kind string

const (
	KindTaskAdded   Kind = "task_added"
	KindTaskUpdated Kind = "task_updated"
	KindTaskDeleted Kind = "task_deleted"
)

type Notification struct {
	ID        string    `json:"notification_id"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	TaskID    string    `json:"task_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type EventType string

const (
	EventShown     EventType = "shown"
	EventDismissed EventType = "dismissed"
)

type DismissReason string

const (
	ReasonExpired   DismissReason = "expired"
	ReasonDismissed DismissReason = "dismissed"
)

type Event struct {
	Type         EventType
	Notification Notification
	Reason       DismissReason
}

type entry struct {
	n     Notification
	timer *time.Timer
}

type Hub struct {
	mu     sync.Mutex
	ttl    time.Duration
	active map[string]*entry
	order  []string
	closed bool

	subscribers map[int]chan Event
	nextSubID   int

	onDismiss func(Notification, DismissReason)
}

func NewHub(ttl time.Duration) *Hub {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Hub{
		ttl:         ttl,
		active:      make(map[string]*entry),
		subscribers: make(map[int]chan Event),
	}
}

// SetDismissHook registers a callback fired whenever a notification leaves
// the active set.
func (h *Hub) SetDismissHook(hook func(Notification, DismissReason)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDismiss = hook
}

// MessageFor returns the notification kind and text for a store mutation.
func MessageFor(kind tasks.MutationKind) (Kind, string) {
	switch kind {
	case tasks.MutationUpdated:
		return KindTaskUpdated, "Task updated successfully"
	case tasks.MutationDeleted:
		return KindTaskDeleted, "Task deleted successfully"
	default:
		return KindTaskAdded, "Task added successfully"
	}
}

func (h *Hub) Publish(kind Kind, message, taskID string) Notification {
	now := time.Now().UTC()
	n := Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Message:   message,
		TaskID:    taskID,
		CreatedAt: now,
		ExpiresAt: now.Add(h.ttl),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return n
	}
	id := n.ID
	h.active[id] = &entry{
		n:     n,
		timer: time.AfterFunc(h.ttl, func() { h.remove(id, ReasonExpired) }),
	}
	h.order = append(h.order, id)
	h.publishLocked(Event{Type: EventShown, Notification: n})
	return n
}

// Dismiss removes a notification before its TTL elapses. It reports false
// when the notification is unknown or already gone.
func (h *Hub) Dismiss(id string) bool {
	return h.remove(id, ReasonDismissed)
}

// Active returns the notifications still on screen, oldest first.
func (h *Hub) Active() []Notification {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.activeLocked()
}

func (h *Hub) activeLocked() []Notification {
	out := make([]Notification, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, h.active[id].n)
	}
	return out
}

func (h *Hub) Subscribe() (<-chan Event, func()) {
	_, ch, cancel := h.SubscribeWithSnapshot()
	return ch, cancel
}

// SubscribeWithSnapshot returns the active notifications together with a
// subscription that starts exactly after them, so no notification is both
// in the snapshot and delivered as a shown event.
func (h *Hub) SubscribeWithSnapshot() ([]Notification, <-chan Event, func()) {
	ch := make(chan Event, 64)
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return nil, ch, func() {}
	}
	snapshot := h.activeLocked()
	h.nextSubID++
	id := h.nextSubID
	h.subscribers[id] = ch
	h.mu.Unlock()

	return snapshot, ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subscribers[id]; ok {
			delete(h.subscribers, id)
			close(c)
		}
	}
}

// Close stops pending timers and closes every subscriber channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, e := range h.active {
		e.timer.Stop()
	}
	h.active = make(map[string]*entry)
	h.order = nil
	for id, ch := range h.subscribers {
		delete(h.subscribers, id)
		close(ch)
	}
}

func (h *Hub) remove(id string, reason DismissReason) bool {
	h.mu.Lock()
	e, ok := h.active[id]
	if !ok {
		h.mu.Unlock()
		return false
	}
	e.timer.Stop()
	delete(h.active, id)
	for i, oid := range h.order {
		if oid == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	h.publishLocked(Event{Type: EventDismissed, Notification: e.n, Reason: reason})
	hook := h.onDismiss
	h.mu.Unlock()

	if hook != nil {
		hook(e.n, reason)
	}
	return true
}

func (h *Hub) publishLocked(evt Event) {
	for _, ch := range h.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
}
