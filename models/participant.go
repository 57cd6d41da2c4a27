package models

import "time"

// Participant is a person who joined the waitlist. EmailCI is the canonical
// (lowercased, trimmed) address and is unique across all participants.
type Participant struct {
	ID         string     `gorm:"primaryKey;type:uuid" json:"id"`
	EmailCI    string     `gorm:"column:email_ci;uniqueIndex:ux_participants_email_ci;not null" json:"-"`
	Email      string     `gorm:"not null" json:"email"`
	Name       string     `json:"name"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times. Rows in this service are never deleted.
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// FirstName returns the first word of the display name, or "Anonymous".
func (p *Participant) FirstName() string {
	return FirstName(p.Name)
}
