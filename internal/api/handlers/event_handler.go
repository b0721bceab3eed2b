package handlers

import (
	"net/http"
	"strconv"

	"github.com/tasklane/tasklane-be/internal/auth"
	"github.com/tasklane/tasklane-be/internal/models"
	"github.com/tasklane/tasklane-be/internal/services"
)

// EventHandler serves the caller's activity log.
type EventHandler struct {
	service services.EventServiceProvider
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(service services.EventServiceProvider) *EventHandler {
	return &EventHandler{service: service}
}

// Recent returns the caller's most recent events, newest first.
func (h *EventHandler) Recent(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.UserFromContext(r.Context())

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit", nil)
			return
		}
		if n > 200 {
			n = 200
		}
		limit = n
	}

	events, err := h.service.GetRecentEvents(current.ID, limit)
	if err != nil {
		writeServiceError(w, err, "event not found")
		return
	}
	if events == nil {
		events = []models.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}
