package dialog

import (
	"time"

	"github.com/ent0n29/taskdesk/internal/tasks"
)

type State string

const (
	StateClosed      State = "closed"
	StateOpenForAdd  State = "open_for_add"
	StateOpenForEdit State = "open_for_edit"
)

// Outcome records why a dialog was closed.
type Outcome string

const (
	OutcomeSaved       Outcome = "saved"
	OutcomeCancelled   Outcome = "cancelled"
	OutcomeDeleted     Outcome = "deleted"
	OutcomeExpired     Outcome = "expired"
	OutcomeTaskRemoved Outcome = "task_removed"
)

type Dialog struct {
	ID             string            `json:"dialog_id"`
	State          State             `json:"state"`
	TaskID         string            `json:"task_id,omitempty"`
	Fields         tasks.Fields      `json:"fields"`
	Errors         map[string]string `json:"errors"`
	Outcome        Outcome           `json:"outcome,omitempty"`
	OpenedAt       time.Time         `json:"opened_at"`
	LastActivityAt time.Time         `json:"last_activity_at"`
	ClosedAt       *time.Time        `json:"closed_at,omitempty"`

	// saving is set while Save is committing outside the manager lock.
	saving bool
}

func (d *Dialog) Open() bool {
	return d.State == StateOpenForAdd || d.State == StateOpenForEdit
}

// TaskStore is the subset of the task store a dialog drives.
type TaskStore interface {
	Get(id string) (tasks.Task, bool)
	Commit(editingID string, fields tasks.Fields) (tasks.Task, tasks.Validation)
	Delete(id string) bool
}
