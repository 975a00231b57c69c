// Package dialog models the add/edit task dialog as a server-side state
// machine: closed, open for add, or open for edit of one task.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ent0n29/taskdesk/internal/tasks"
)

var (
	ErrNotFound          = errors.New("dialog not found")
	ErrDialogClosed      = errors.New("dialog is closed")
	ErrInvalidTransition = errors.New("transition not allowed from current dialog state")
	ErrTaskNotFound      = errors.New("task not found")
	ErrTaskCompleted     = errors.New("completed tasks cannot be edited")
	ErrValidation        = errors.New("task fields failed validation")
	ErrSaveInProgress    = fmt.Errorf("%w: save in progress", ErrInvalidTransition)
)

type Manager struct {
	mu                sync.RWMutex
	store             TaskStore
	dialogs           map[string]*Dialog
	inactivityTimeout time.Duration
	closedRetention   time.Duration
	onExpire          func(*Dialog)
}

func NewManager(store TaskStore, inactivityTimeout time.Duration) *Manager {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 30 * time.Minute
	}
	return &Manager{
		store:             store,
		dialogs:           make(map[string]*Dialog),
		inactivityTimeout: inactivityTimeout,
		closedRetention:   time.Minute,
	}
}

// SetClosedRetention controls how long closed dialogs stay readable before
// the janitor forgets them.
func (m *Manager) SetClosedRetention(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d < 0 {
		d = 0
	}
	m.closedRetention = d
}

func (m *Manager) SetExpireHook(hook func(*Dialog)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

func (m *Manager) OpenForAdd() *Dialog {
	now := time.Now().UTC()
	d := &Dialog{
		ID:             uuid.NewString(),
		State:          StateOpenForAdd,
		Fields:         tasks.Fields{Deadline: tasks.Day(now)},
		Errors:         map[string]string{},
		OpenedAt:       now,
		LastActivityAt: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.dialogs[d.ID] = d
	return clone(d)
}

func (m *Manager) OpenForEdit(taskID string) (*Dialog, error) {
	task, ok := m.store.Get(taskID)
	if !ok {
		return nil, ErrTaskNotFound
	}
	if task.IsComplete {
		return nil, ErrTaskCompleted
	}

	now := time.Now().UTC()
	d := &Dialog{
		ID:             uuid.NewString(),
		State:          StateOpenForEdit,
		TaskID:         task.ID,
		Fields:         task.Fields(),
		Errors:         map[string]string{},
		OpenedAt:       now,
		LastActivityAt: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.dialogs[d.ID] = d
	return clone(d), nil
}

func (m *Manager) Get(dialogID string) (*Dialog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.dialogs[dialogID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(d), nil
}

// SetFields replaces the in-progress values without validating them.
func (m *Manager) SetFields(dialogID string, fields tasks.Fields) (*Dialog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.openLocked(dialogID)
	if err != nil {
		return nil, err
	}
	d.Fields = fields
	d.LastActivityAt = time.Now().UTC()
	return clone(d), nil
}

// Save validates the dialog fields against the store and commits them.
// Invalid fields leave the dialog open with Errors populated and return
// ErrValidation. While the commit runs the dialog refuses every other
// transition with ErrSaveInProgress.
func (m *Manager) Save(dialogID string) (*Dialog, tasks.Task, error) {
	m.mu.Lock()
	d, err := m.openLocked(dialogID)
	if err != nil {
		m.mu.Unlock()
		return nil, tasks.Task{}, err
	}
	d.saving = true
	editingID := d.TaskID
	fields := d.Fields
	m.mu.Unlock()

	var (
		task   tasks.Task
		result = tasks.Validation{Valid: true}
	)
	if editingID != "" {
		current, ok := m.store.Get(editingID)
		if ok {
			fields.IsComplete = current.IsComplete
			task, result = m.store.Commit(editingID, fields)
		}
	} else {
		task, result = m.store.Commit("", fields)
	}

	now := time.Now().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.dialogs[dialogID]
	if !ok {
		return nil, tasks.Task{}, ErrNotFound
	}
	d.saving = false
	if !d.Open() {
		// Closed underneath the commit, only possible via CloseForTask.
		if d.Outcome == OutcomeTaskRemoved {
			return clone(d), tasks.Task{}, ErrTaskNotFound
		}
		return clone(d), tasks.Task{}, ErrDialogClosed
	}
	if !result.Valid {
		d.Errors = result.Errors
		d.LastActivityAt = now
		return clone(d), tasks.Task{}, ErrValidation
	}
	if task.ID == "" {
		closeLocked(d, OutcomeTaskRemoved, now)
		return clone(d), tasks.Task{}, ErrTaskNotFound
	}
	closeLocked(d, OutcomeSaved, now)
	return clone(d), task, nil
}

func (m *Manager) Cancel(dialogID string) (*Dialog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.openLocked(dialogID)
	if err != nil {
		return nil, err
	}
	closeLocked(d, OutcomeCancelled, time.Now().UTC())
	return clone(d), nil
}

// Delete removes the task being edited. Only valid for edit dialogs.
func (m *Manager) Delete(dialogID string) (*Dialog, error) {
	m.mu.Lock()
	d, err := m.openLocked(dialogID)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if d.State != StateOpenForEdit {
		m.mu.Unlock()
		return nil, ErrInvalidTransition
	}
	taskID := d.TaskID
	closeLocked(d, OutcomeDeleted, time.Now().UTC())
	out := clone(d)
	m.mu.Unlock()

	// The store's mutation hook may call back into CloseForTask, so the
	// dialog lock must not be held here.
	if !m.store.Delete(taskID) {
		return out, ErrTaskNotFound
	}
	return out, nil
}

// CloseForTask closes every open edit dialog for taskID. It returns the
// number of dialogs closed.
func (m *Manager) CloseForTask(taskID string) int {
	if taskID == "" {
		return 0
	}
	now := time.Now().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, d := range m.dialogs {
		if d.State == StateOpenForEdit && d.TaskID == taskID {
			closeLocked(d, OutcomeTaskRemoved, now)
			n++
		}
	}
	return n
}

func (m *Manager) OpenCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, d := range m.dialogs {
		if d.Open() {
			count++
		}
	}
	return count
}

func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireInactive()
			}
		}
	}()
}

func (m *Manager) expireInactive() {
	now := time.Now().UTC()
	var expired []*Dialog

	m.mu.Lock()
	for id, d := range m.dialogs {
		if !d.Open() {
			if d.ClosedAt != nil && now.Sub(*d.ClosedAt) >= m.closedRetention {
				delete(m.dialogs, id)
			}
			continue
		}
		if d.saving || now.Sub(d.LastActivityAt) < m.inactivityTimeout {
			continue
		}
		closeLocked(d, OutcomeExpired, now)
		expired = append(expired, clone(d))
	}
	hook := m.onExpire
	m.mu.Unlock()

	if hook != nil {
		for _, d := range expired {
			hook(d)
		}
	}
}

func (m *Manager) openLocked(dialogID string) (*Dialog, error) {
	d, ok := m.dialogs[dialogID]
	if !ok {
		return nil, ErrNotFound
	}
	if !d.Open() {
		return nil, ErrDialogClosed
	}
	if d.saving {
		return nil, ErrSaveInProgress
	}
	return d, nil
}

func closeLocked(d *Dialog, outcome Outcome, now time.Time) {
	d.State = StateClosed
	d.Outcome = outcome
	d.Errors = map[string]string{}
	d.LastActivityAt = now
	closed := now
	d.ClosedAt = &closed
}

func clone(d *Dialog) *Dialog {
	c := *d
	c.Errors = make(map[string]string, len(d.Errors))
	for k, v := range d.Errors {
		c.Errors[k] = v
	}
	if d.ClosedAt != nil {
		t := *d.ClosedAt
		c.ClosedAt = &t
	}
	return &c
}
