package models

import "time"

// ReferralCode is owned by exactly one participant and never mutated.
// Code holds the canonical form used for every lookup; Display is the
// hyphenated form handed out in links (Normalize(Display) == Code).
type ReferralCode struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	ParticipantID string    `gorm:"type:uuid;uniqueIndex:ux_referral_codes_participant;not null" json:"participant_id"`
	Code          string    `gorm:"type:varchar(24);uniqueIndex:ux_referral_codes_code;not null" json:"code"`
	Display       string    `gorm:"type:varchar(32);not null" json:"display"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// ReferralEventKind distinguishes link clicks from credited signups.
type ReferralEventKind string

const (
	ReferralClick  ReferralEventKind = "click"
	ReferralSignup ReferralEventKind = "signup"
)

// ReferralEvent is an append-only fact. The composite unique index keeps a
// (code, signup, email) triple from being credited twice; click rows carry
// a NULL email and never collide.
type ReferralEvent struct {
	ID             string            `gorm:"primaryKey;type:uuid" json:"id"`
	ReferralCodeID string            `gorm:"type:uuid;not null;uniqueIndex:ux_referral_events_credit,priority:1" json:"referral_code_id"`
	Kind           ReferralEventKind `gorm:"type:varchar(16);not null;uniqueIndex:ux_referral_events_credit,priority:2" json:"kind"`
	Email          *string           `gorm:"uniqueIndex:ux_referral_events_credit,priority:3" json:"email,omitempty"`
	CreatedAt      time.Time         `json:"created_at" gorm:"autoCreateTime"`
}
