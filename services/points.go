package services

import (
	"context"
	"errors"
	"fmt"

	"waitlist-referral-system/models"

	"gorm.io/gorm"
)

const (
	BasePoints     = 10
	VerifiedPoints = 20
	ReferralPoints = 10
)

// Points is derived from persisted facts on every call; nothing here is
// ever stored as a balance.
type Points struct {
	Base      int64 `json:"base"`
	Verified  int64 `json:"verified"`
	Referrals int64 `json:"referrals"`
	Total     int64 `json:"total"`
}

// CalculatePoints combines the three point signals.
func CalculatePoints(joined, verified bool, signups int64) Points {
	var p Points
	if joined {
		p.Base = BasePoints
	}
	if verified {
		p.Verified = VerifiedPoints
	}
	p.Referrals = signups * ReferralPoints
	p.Total = p.Base + p.Verified + p.Referrals
	return p
}

// Summary is the per-participant view served by /me/summary. Rank is
// always null: per-user ranking is not computed.
type Summary struct {
	Points    int64   `json:"points"`
	Referrals int64   `json:"referrals"`
	Rank      *int    `json:"rank"`
	Breakdown *Points `json:"breakdown,omitempty"`
}

type PointsService struct {
	DB *gorm.DB
}

func NewPointsService(db *gorm.DB) *PointsService {
	return &PointsService{DB: db}
}

// ComputePoints is read-only and deterministic between writes. Unknown
// participants and participants without a code score what they have.
func (s *PointsService) ComputePoints(ctx context.Context, participantID string) (Points, error) {
	db := s.DB.WithContext(ctx)

	var p models.Participant
	err := db.Where("id = ?", participantID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Points{}, nil
	}
	if err != nil {
		return Points{}, fmt.Errorf("lookup participant: %w", err)
	}
	return s.pointsFor(db, &p)
}

func (s *PointsService) pointsFor(db *gorm.DB, p *models.Participant) (Points, error) {
	var memberships int64
	if err := db.Model(&models.WaitlistMembership{}).
		Where("participant_id = ?", p.ID).
		Count(&memberships).Error; err != nil {
		return Points{}, fmt.Errorf("count memberships: %w", err)
	}

	signups, err := CountSignups(db, p.ID)
	if err != nil {
		return Points{}, err
	}
	return CalculatePoints(memberships > 0, p.VerifiedAt != nil, signups), nil
}

// CountSignups counts signup events credited to the participant's code.
func CountSignups(db *gorm.DB, participantID string) (int64, error) {
	var n int64
	err := db.Model(&models.ReferralEvent{}).
		Joins("JOIN referral_codes ON referral_codes.id = referral_events.referral_code_id").
		Where("referral_codes.participant_id = ? AND referral_events.kind = ?", participantID, models.ReferralSignup).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count signups: %w", err)
	}
	return n, nil
}

// Summary looks a participant up by email. Unknown emails get a zero summary.
func (s *PointsService) Summary(ctx context.Context, email string) (*Summary, error) {
	db := s.DB.WithContext(ctx)

	var p models.Participant
	err := db.Where("email_ci = ?", canonicalEmail(email)).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Summary{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup participant by email: %w", err)
	}

	pts, err := s.pointsFor(db, &p)
	if err != nil {
		return nil, err
	}
	return &Summary{
		Points:    pts.Total,
		Referrals: pts.Referrals / ReferralPoints,
		Breakdown: &pts,
	}, nil
}
