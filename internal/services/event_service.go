package services

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/tasklane/tasklane-be/internal/models"
	ws "github.com/tasklane/tasklane-be/internal/websocket"
)

// EventServiceProvider defines the interface for activity-log services.
type EventServiceProvider interface {
	CreateEvent(userID, eventType, level, message string) error
	GetRecentEvents(userID string, limit int) ([]models.Event, error)
}

// EventService records a per-user activity log and pushes each entry to the
// user's connected websocket clients.
type EventService struct {
	db  *sql.DB
	hub *ws.Hub // may be nil in tests
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB, hub *ws.Hub) *EventService {
	return &EventService{db: db, hub: hub}
}

// CreateEvent logs a new event and broadcasts it to the owner's clients.
func (s *EventService) CreateEvent(userID, eventType, level, message string) error {
	event := models.Event{
		ID:      uuid.New().String(),
		UserID:  userID,
		Type:    eventType,
		Level:   level,
		Message: message,
	}

	stmt, err := s.db.Prepare("INSERT INTO events (id, user_id, type, level, message) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	if _, err = stmt.Exec(event.ID, event.UserID, event.Type, event.Level, event.Message); err != nil {
		return err
	}

	if s.hub != nil {
		s.hub.BroadcastTo(userID, ws.NewEventMessage(event))
	}
	return nil
}

// GetRecentEvents retrieves the most recent events for one user.
func (s *EventService) GetRecentEvents(userID string, limit int) ([]models.Event, error) {
	rows, err := s.db.Query(
		"SELECT id, user_id, type, level, message, created_at FROM events WHERE user_id = ? ORDER BY created_at DESC LIMIT ?",
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var event models.Event
		if err := rows.Scan(&event.ID, &event.UserID, &event.Type, &event.Level, &event.Message, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
