package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tasklane/tasklane-be/internal/auth"
	"github.com/tasklane/tasklane-be/internal/services"
)

// TaskHandler handles HTTP requests for task management. Every operation is
// scoped to the identity the auth middleware attached to the request.
type TaskHandler struct {
	service services.TaskServiceProvider
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(service services.TaskServiceProvider) *TaskHandler {
	return &TaskHandler{service: service}
}

// List returns the caller's tasks with filtering, search, sort, and counters.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.UserFromContext(r.Context())

	q := r.URL.Query()
	opts := services.TaskListOptions{
		Search:    q.Get("search"),
		Status:    q.Get("status"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}

	tasks, stats, err := h.service.ListTasks(current.ID, opts)
	if err != nil {
		writeServiceError(w, err, "task not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tasks": tasks,
		"stats": stats,
	})
}

// Create adds a new task for the caller.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.UserFromContext(r.Context())

	var params services.CreateTaskParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	task, err := h.service.CreateTask(current.ID, params)
	if err != nil {
		writeServiceError(w, err, "task not found")
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

// Get returns a single task with its subtasks.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.UserFromContext(r.Context())

	task, err := h.service.GetTaskByID(current.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Update applies a partial update to a task.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.UserFromContext(r.Context())

	var params services.UpdateTaskParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	task, err := h.service.UpdateTask(current.ID, chi.URLParam(r, "id"), params)
	if err != nil {
		writeServiceError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Delete removes a task.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.UserFromContext(r.Context())

	if err := h.service.DeleteTask(current.ID, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "task deleted"})
}

// BulkStatus sets the completion flag on a caller-supplied list of task IDs.
func (h *TaskHandler) BulkStatus(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.UserFromContext(r.Context())

	var payload struct {
		TaskIDs   []string `json:"taskIds"`
		Completed bool     `json:"completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	modified, err := h.service.BulkSetCompleted(current.ID, payload.TaskIDs, payload.Completed)
	if err != nil {
		writeServiceError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "tasks updated",
		"modifiedCount": modified,
	})
}

// BulkCategory moves a caller-supplied list of task IDs to a new category.
func (h *TaskHandler) BulkCategory(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.UserFromContext(r.Context())

	var payload struct {
		TaskIDs  []string `json:"taskIds"`
		Category string   `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	modified, err := h.service.BulkSetCategory(current.ID, payload.TaskIDs, payload.Category)
	if err != nil {
		writeServiceError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "categories updated",
		"modifiedCount": modified,
	})
}

// BulkDelete removes a caller-supplied list of task IDs.
func (h *TaskHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.UserFromContext(r.Context())

	var payload struct {
		TaskIDs []string `json:"taskIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	deleted, err := h.service.BulkDelete(current.ID, payload.TaskIDs)
	if err != nil {
		writeServiceError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "tasks deleted",
		"deletedCount": deleted,
	})
}

// AddSubtask appends a checklist entry to a task.
func (h *TaskHandler) AddSubtask(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.UserFromContext(r.Context())

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	task, err := h.service.AddSubtask(current.ID, chi.URLParam(r, "id"), payload.Text)
	if err != nil {
		writeServiceError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// UpdateSubtask edits a checklist entry.
func (h *TaskHandler) UpdateSubtask(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.UserFromContext(r.Context())

	var payload struct {
		Text      *string `json:"text"`
		Completed *bool   `json:"completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	task, err := h.service.UpdateSubtask(current.ID, chi.URLParam(r, "id"), chi.URLParam(r, "subtaskId"), payload.Text, payload.Completed)
	if err != nil {
		writeServiceError(w, err, "subtask not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// AddTags merges new tags into a task's tag set.
func (h *TaskHandler) AddTags(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.UserFromContext(r.Context())

	var payload struct {
		Tags []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	task, err := h.service.AddTags(current.ID, chi.URLParam(r, "id"), payload.Tags)
	if err != nil {
		writeServiceError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// ToggleStar flips a task's starred flag.
func (h *TaskHandler) ToggleStar(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.UserFromContext(r.Context())

	task, err := h.service.ToggleStar(current.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// ToggleArchive flips a task's archived flag.
func (h *TaskHandler) ToggleArchive(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.UserFromContext(r.Context())

	task, err := h.service.ToggleArchive(current.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// CategoryStats returns per-category completion percentages.
func (h *TaskHandler) CategoryStats(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.UserFromContext(r.Context())

	stats, err := h.service.CategoryStats(current.ID)
	if err != nil {
		writeServiceError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// DueToday returns tasks due today, highest priority first.
func (h *TaskHandler) DueToday(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.UserFromContext(r.Context())

	tasks, err := h.service.DueToday(current.ID)
	if err != nil {
		writeServiceError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}
