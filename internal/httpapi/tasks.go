package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ent0n29/taskdesk/internal/tasks"
)

type taskFieldsRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Deadline    string `json:"deadline"`
	Priority    string `json:"priority"`
	IsComplete  *bool  `json:"is_complete"`
	ExcludeID   string `json:"exclude_id"`
}

type completionRequest struct {
	IsComplete *bool `json:"is_complete"`
}

type fieldsPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Deadline    string `json:"deadline"`
	Priority    string `json:"priority"`
	IsComplete  bool   `json:"is_complete"`
}

type taskResponse struct {
	ID string `json:"id"`
	fieldsPayload
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type validationResponse struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors"`
}

func (req taskFieldsRequest) fields() (tasks.Fields, error) {
	deadline, err := tasks.ParseDate(req.Deadline)
	if err != nil {
		return tasks.Fields{}, err
	}
	priority, err := tasks.ParsePriority(req.Priority)
	if err != nil {
		return tasks.Fields{}, err
	}
	f := tasks.Fields{
		Title:       req.Title,
		Description: req.Description,
		Deadline:    deadline,
		Priority:    priority,
	}
	if req.IsComplete != nil {
		f.IsComplete = *req.IsComplete
	}
	return f, nil
}

func toFieldsPayload(f tasks.Fields) fieldsPayload {
	out := fieldsPayload{
		Title:       f.Title,
		Description: f.Description,
		Priority:    string(f.Priority),
		IsComplete:  f.IsComplete,
	}
	if !f.Deadline.IsZero() {
		out.Deadline = f.Deadline.Format(tasks.DateLayout)
	}
	return out
}

func toTaskResponse(t tasks.Task) taskResponse {
	return taskResponse{
		ID:            t.ID,
		fieldsPayload: toFieldsPayload(t.Fields()),
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

// decodeFields reads a task fields body. Empty bodies decode to zero fields
// so that the validator reports the missing values.
func decodeFields(r *http.Request) (taskFieldsRequest, tasks.Fields, error) {
	var req taskFieldsRequest
	if err := decodeChecked(r, schemaTaskFields, &req); err != nil && !errors.Is(err, errEmptyBody) {
		return req, tasks.Fields{}, err
	}
	f, err := req.fields()
	return req, f, err
}

func (s *Server) handleListTasks(w http.ResponseWriter, _ *http.Request) {
	list := s.store.List()
	out := make([]taskResponse, 0, len(list))
	for _, t := range list {
		out = append(out, toTaskResponse(t))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"tasks": out,
	})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimSpace(chi.URLParam(r, "id"))
	task, ok := s.store.Get(taskID)
	if !ok {
		respondError(w, http.StatusNotFound, "task_not_found", "task not found")
		return
	}
	respondJSON(w, http.StatusOK, toTaskResponse(task))
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	_, fields, err := decodeFields(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	task, result := s.store.Commit("", fields)
	if !result.Valid {
		s.metrics.ObserveValidation(result.Errors)
		respondJSON(w, http.StatusUnprocessableEntity, validationResponse(result))
		return
	}
	respondJSON(w, http.StatusCreated, toTaskResponse(task))
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimSpace(chi.URLParam(r, "id"))
	current, ok := s.store.Get(taskID)
	if !ok {
		respondError(w, http.StatusNotFound, "task_not_found", "task not found")
		return
	}

	req, fields, err := decodeFields(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.IsComplete == nil {
		fields.IsComplete = current.IsComplete
	}

	task, result := s.store.Commit(taskID, fields)
	if !result.Valid {
		s.metrics.ObserveValidation(result.Errors)
		respondJSON(w, http.StatusUnprocessableEntity, validationResponse(result))
		return
	}
	if task.ID == "" {
		// Deleted between lookup and commit.
		respondError(w, http.StatusNotFound, "task_not_found", "task not found")
		return
	}
	respondJSON(w, http.StatusOK, toTaskResponse(task))
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimSpace(chi.URLParam(r, "id"))
	if !s.store.Delete(taskID) {
		respondError(w, http.StatusNotFound, "task_not_found", "task not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetCompletion(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimSpace(chi.URLParam(r, "id"))

	var req completionRequest
	if err := decodeChecked(r, schemaCompletion, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	task, ok := s.store.SetCompletion(taskID, *req.IsComplete)
	if !ok {
		respondError(w, http.StatusNotFound, "task_not_found", "task not found")
		return
	}
	if s.metrics != nil {
		s.metrics.TaskMutations.WithLabelValues("completion").Inc()
	}
	respondJSON(w, http.StatusOK, toTaskResponse(task))
}

func (s *Server) handleValidateTask(w http.ResponseWriter, r *http.Request) {
	req, fields, err := decodeFields(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	result := s.store.Validate(fields, strings.TrimSpace(req.ExcludeID))
	respondJSON(w, http.StatusOK, validationResponse(result))
}
