package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ent0n29/taskdesk/internal/dialog"
)

type openDialogRequest struct {
	TaskID string `json:"task_id"`
}

type dialogResponse struct {
	DialogID       string            `json:"dialog_id"`
	State          dialog.State      `json:"state"`
	TaskID         string            `json:"task_id,omitempty"`
	Fields         fieldsPayload     `json:"fields"`
	Errors         map[string]string `json:"errors"`
	Outcome        dialog.Outcome    `json:"outcome,omitempty"`
	OpenedAt       time.Time         `json:"opened_at"`
	LastActivityAt time.Time         `json:"last_activity_at"`
	ClosedAt       *time.Time        `json:"closed_at,omitempty"`
}

type saveDialogResponse struct {
	Dialog dialogResponse `json:"dialog"`
	Task   *taskResponse  `json:"task,omitempty"`
}

func toDialogResponse(d *dialog.Dialog) dialogResponse {
	return dialogResponse{
		DialogID:       d.ID,
		State:          d.State,
		TaskID:         d.TaskID,
		Fields:         toFieldsPayload(d.Fields),
		Errors:         d.Errors,
		Outcome:        d.Outcome,
		OpenedAt:       d.OpenedAt,
		LastActivityAt: d.LastActivityAt,
		ClosedAt:       d.ClosedAt,
	}
}

func (s *Server) handleOpenDialog(w http.ResponseWriter, r *http.Request) {
	var req openDialogRequest
	if err := decodeChecked(r, schemaOpenDialog, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	taskID := strings.TrimSpace(req.TaskID)

	var (
		d     *dialog.Dialog
		err   error
		event = "opened_add"
	)
	if taskID == "" {
		d = s.dialogs.OpenForAdd()
	} else {
		event = "opened_edit"
		d, err = s.dialogs.OpenForEdit(taskID)
		if err != nil {
			s.respondDialogError(w, err)
			return
		}
	}

	s.observeDialog(event)
	respondJSON(w, http.StatusCreated, toDialogResponse(d))
}

func (s *Server) handleGetDialog(w http.ResponseWriter, r *http.Request) {
	d, err := s.dialogs.Get(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		s.respondDialogError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toDialogResponse(d))
}

func (s *Server) handleSetDialogFields(w http.ResponseWriter, r *http.Request) {
	_, fields, err := decodeFields(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	d, err := s.dialogs.SetFields(strings.TrimSpace(chi.URLParam(r, "id")), fields)
	if err != nil {
		s.respondDialogError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toDialogResponse(d))
}

func (s *Server) handleSaveDialog(w http.ResponseWriter, r *http.Request) {
	d, task, err := s.dialogs.Save(strings.TrimSpace(chi.URLParam(r, "id")))
	switch {
	case errors.Is(err, dialog.ErrValidation):
		s.metrics.ObserveValidation(d.Errors)
		s.observeDialog("save_rejected")
		respondJSON(w, http.StatusUnprocessableEntity, saveDialogResponse{Dialog: toDialogResponse(d)})
		return
	case err != nil:
		s.respondDialogError(w, err)
		return
	}

	s.observeDialog("saved")
	out := saveDialogResponse{Dialog: toDialogResponse(d)}
	if task.ID != "" {
		tr := toTaskResponse(task)
		out.Task = &tr
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCancelDialog(w http.ResponseWriter, r *http.Request) {
	d, err := s.dialogs.Cancel(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		s.respondDialogError(w, err)
		return
	}
	s.observeDialog("cancelled")
	respondJSON(w, http.StatusOK, toDialogResponse(d))
}

func (s *Server) handleDeleteDialog(w http.ResponseWriter, r *http.Request) {
	d, err := s.dialogs.Delete(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		s.respondDialogError(w, err)
		return
	}
	s.observeDialog("deleted")
	respondJSON(w, http.StatusOK, toDialogResponse(d))
}

func (s *Server) respondDialogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dialog.ErrNotFound):
		respondError(w, http.StatusNotFound, "dialog_not_found", err.Error())
	case errors.Is(err, dialog.ErrTaskNotFound):
		respondError(w, http.StatusNotFound, "task_not_found", err.Error())
	case errors.Is(err, dialog.ErrDialogClosed):
		respondError(w, http.StatusConflict, "dialog_closed", err.Error())
	case errors.Is(err, dialog.ErrSaveInProgress):
		respondError(w, http.StatusConflict, "save_in_progress", err.Error())
	case errors.Is(err, dialog.ErrInvalidTransition):
		respondError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, dialog.ErrTaskCompleted):
		respondError(w, http.StatusConflict, "task_completed", err.Error())
	default:
		s.logger.Error("dialog operation failed", "err", err)
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

func (s *Server) observeDialog(event string) {
	if s.metrics == nil {
		return
	}
	s.metrics.DialogEvents.WithLabelValues(event).Inc()
	s.metrics.OpenDialogs.Set(float64(s.dialogs.OpenCount()))
}
