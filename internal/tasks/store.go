package tasks

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the authoritative in-memory task collection. Every operation runs
// to completion under the store lock before the next one starts.
type Store struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	order []string

	now      func() time.Time
	newID    func() string
	onMutate func(Mutation)
}

func NewStore() *Store {
	return &Store{
		tasks: make(map[string]*Task),
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// SetMutationHook registers a callback fired after every committed add,
// update or delete. It runs outside the store lock.
func (s *Store) SetMutationHook(hook func(Mutation)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onMutate = hook
}

// SetClock overrides the time source used for timestamps and deadline defaults.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now != nil {
		s.now = now
	}
}

// Add appends a new task. Validation is the caller's responsibility.
func (s *Store) Add(fields Fields) Task {
	s.mu.Lock()
	task := s.addLocked(fields)
	hook := s.onMutate
	s.mu.Unlock()

	s.fire(hook, MutationAdded, task)
	return task
}

// Update replaces the mutable fields of the task with the given id.
// It reports false and changes nothing when the id is unknown.
func (s *Store) Update(id string, fields Fields) (Task, bool) {
	s.mu.Lock()
	task, ok := s.updateLocked(id, fields)
	hook := s.onMutate
	s.mu.Unlock()

	if ok {
		s.fire(hook, MutationUpdated, task)
	}
	return task, ok
}

func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if ok {
		delete(s.tasks, id)
		for i, tid := range s.order {
			if tid == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	var removed Task
	if ok {
		removed = *t
	}
	hook := s.onMutate
	s.mu.Unlock()

	if ok {
		s.fire(hook, MutationDeleted, removed)
	}
	return ok
}

// SetCompletion flips only the completion flag. It bypasses validation and
// the mutation hook.
func (s *Store) SetCompletion(id string, complete bool) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return Task{}, false
	}
	if t.IsComplete != complete {
		t.IsComplete = complete
		t.UpdatedAt = s.now()
	}
	return *t, true
}

func (s *Store) Get(id string) (Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// List returns a copy of all tasks in insertion order.
func (s *Store) List() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Validate checks fields against the store's current contents.
func (s *Store) Validate(fields Fields, excludeID string) Validation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Validate(fields, s.listLocked(), excludeID)
}

// Commit validates fields and, when valid, adds a task (editingID == "") or
// updates the task with editingID, all under one lock acquisition.
// An unknown editingID yields a valid result with a zero Task and no change.
func (s *Store) Commit(editingID string, fields Fields) (Task, Validation) {
	editingID = strings.TrimSpace(editingID)

	s.mu.Lock()
	result := Validate(fields, s.listLocked(), editingID)
	if !result.Valid {
		s.mu.Unlock()
		return Task{}, result
	}

	var (
		task Task
		kind MutationKind
		ok   = true
	)
	if editingID == "" {
		task, kind = s.addLocked(fields), MutationAdded
	} else {
		task, ok = s.updateLocked(editingID, fields)
		kind = MutationUpdated
	}
	hook := s.onMutate
	s.mu.Unlock()

	if ok {
		s.fire(hook, kind, task)
	}
	return task, result
}

func (s *Store) addLocked(fields Fields) Task {
	now := s.now()
	deadline := Day(fields.Deadline)
	if deadline.IsZero() {
		deadline = Day(now)
	}
	t := &Task{
		ID:          s.newID(),
		Title:       fields.Title,
		Description: fields.Description,
		Deadline:    deadline,
		Priority:    fields.Priority,
		IsComplete:  fields.IsComplete,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.tasks[t.ID] = t
	s.order = append(s.order, t.ID)
	return *t
}

func (s *Store) updateLocked(id string, fields Fields) (Task, bool) {
	t, ok := s.tasks[id]
	if !ok {
		return Task{}, false
	}
	t.Title = fields.Title
	t.Description = fields.Description
	if d := Day(fields.Deadline); !d.IsZero() {
		t.Deadline = d
	}
	t.Priority = fields.Priority
	t.IsComplete = fields.IsComplete
	t.UpdatedAt = s.now()
	return *t, true
}

func (s *Store) listLocked() []Task {
	out := make([]Task, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.tasks[id])
	}
	return out
}

func (s *Store) fire(hook func(Mutation), kind MutationKind, task Task) {
	if hook == nil {
		return
	}
	hook(Mutation{Kind: kind, Task: task})
}
