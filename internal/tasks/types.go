package tasks

import (
	"fmt"
	"strings"
	"time"
)

type Priority string

const (
	PriorityUnset  Priority = ""
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// DateLayout is the wire format of a task deadline.
const DateLayout = "2006-01-02"

// Field names used as keys of Validation.Errors.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
)

type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Deadline    time.Time `json:"deadline"`
	Priority    Priority  `json:"priority"`
	IsComplete  bool      `json:"is_complete"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Fields holds the user-editable values of a task, as collected by a form.
type Fields struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Deadline    time.Time `json:"deadline"`
	Priority    Priority  `json:"priority"`
	IsComplete  bool      `json:"is_complete"`
}

// Validation is the outcome of checking a candidate against the store.
type Validation struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors"`
}

type MutationKind string

const (
	MutationAdded   MutationKind = "added"
	MutationUpdated MutationKind = "updated"
	MutationDeleted MutationKind = "deleted"
)

// Mutation describes a committed add, update or delete.
type Mutation struct {
	Kind MutationKind
	Task Task
}

func (t Task) Fields() Fields {
	return Fields{
		Title:       t.Title,
		Description: t.Description,
		Deadline:    t.Deadline,
		Priority:    t.Priority,
		IsComplete:  t.IsComplete,
	}
}

func ParsePriority(raw string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(raw))); p {
	case PriorityUnset, PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	default:
		return PriorityUnset, fmt.Errorf("invalid priority %q (expected low|medium|high)", raw)
	}
}

// ParseDate parses a YYYY-MM-DD deadline. An empty string yields the zero time.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid deadline %q: %w", raw, err)
	}
	return d, nil
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
