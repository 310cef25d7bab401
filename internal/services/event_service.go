package services

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/avren/tasklist-be/internal/models"
)

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	Record(eventType, level, message string, userID *string) error
	GetRecentForUser(userID string, limit int) ([]models.Event, error)
	PruneOlderThan(cutoff time.Time) (int64, error)
}

// EventService provides business logic for the activity log.
type EventService struct {
	db *sql.DB
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{db: db}
}

// Record logs a new event to the database. Failures are logged but
// never block the operation that produced the event.
func (s *EventService) Record(eventType, level, message string, userID *string) error {
	id := uuid.New().String()
	_, err := s.db.Exec("INSERT INTO events (id, type, level, message, user_id) VALUES (?, ?, ?, ?, ?)",
		id, eventType, level, message, userID)
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("Failed to record event")
	}
	return err
}

// GetRecentForUser retrieves the most recent events belonging to a
// single user. Cross-user events are never returned.
func (s *EventService) GetRecentForUser(userID string, limit int) ([]models.Event, error) {
	rows, err := s.db.Query(
		"SELECT id, type, level, message, user_id, created_at FROM events WHERE user_id = ? ORDER BY created_at DESC LIMIT ?",
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var event models.Event
		if err := rows.Scan(&event.ID, &event.Type, &event.Level, &event.Message, &event.UserID, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// PruneOlderThan deletes events created before the cutoff and returns
// the number of rows removed. The cutoff is formatted to match the
// CURRENT_TIMESTAMP text sqlite stores for created_at.
func (s *EventService) PruneOlderThan(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec("DELETE FROM events WHERE created_at < ?", cutoff.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
