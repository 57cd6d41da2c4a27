package models

import "time"

// LifecycleEvent is an append-only audit/analytics record.
type LifecycleEvent struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	ParticipantID *string   `gorm:"type:uuid;index" json:"participant_id,omitempty"`
	Name          string    `gorm:"type:varchar(128);not null;index" json:"event_name"`
	Payload       *string   `gorm:"type:text" json:"payload,omitempty"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
}

const EventOnboardingCompleted = "onboarding_completed"
