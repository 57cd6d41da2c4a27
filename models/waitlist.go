package models

import "time"

// AcquisitionSource records how a participant arrived on the waitlist.
type AcquisitionSource string

const (
	SourceDirect   AcquisitionSource = "direct"
	SourceReferral AcquisitionSource = "referral"
	SourceCampaign AcquisitionSource = "campaign"
)

// WaitlistMembership is created exactly once per participant at join time.
type WaitlistMembership struct {
	ID                    string            `gorm:"primaryKey;type:uuid" json:"id"`
	ParticipantID         string            `gorm:"type:uuid;uniqueIndex:ux_waitlist_participant;not null" json:"participant_id"`
	Source                AcquisitionSource `gorm:"type:varchar(16);not null;default:'direct'" json:"source"`
	Campaign              *string           `gorm:"type:varchar(64)" json:"campaign,omitempty"`
	ReferrerParticipantID *string           `gorm:"type:uuid;index" json:"referrer_participant_id,omitempty"`
	CreatedAt             time.Time         `json:"created_at" gorm:"autoCreateTime"`
}
