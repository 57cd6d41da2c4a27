package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"waitlist-referral-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventService appends lifecycle events. It accepts a transaction handle
// so the join can record its event atomically.
type EventService struct {
	DB  *gorm.DB
	Now Clock
}

func NewEventService(db *gorm.DB) *EventService {
	return &EventService{DB: db}
}

// Record writes one event through db (a transaction or the base handle).
func (s *EventService) Record(db *gorm.DB, participantID *string, name string, payload interface{}) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return NewValidationError("event required")
	}
	event := &models.LifecycleEvent{
		ID:            uuid.NewString(),
		ParticipantID: participantID,
		Name:          name,
		CreatedAt:     s.Now.now(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return NewValidationError("payload must be JSON")
		}
		text := string(raw)
		event.Payload = &text
	}
	if err := db.Create(event).Error; err != nil {
		return fmt.Errorf("insert event %q: %w", name, err)
	}
	return nil
}

// Track records an event outside any transaction.
func (s *EventService) Track(ctx context.Context, participantID *string, name string, payload interface{}) error {
	if participantID != nil {
		if _, err := uuid.Parse(*participantID); err != nil {
			return NewValidationError("userId must be a UUID")
		}
	}
	return s.Record(s.DB.WithContext(ctx), participantID, name, payload)
}
