package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"waitlist-referral-system/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JoinRequest is the body of POST /waitlist/join.
type JoinRequest struct {
	Name     string  `json:"name" validate:"required,min=2,max=120"`
	Email    string  `json:"email" validate:"required,email,max=254"`
	Ref      *string `json:"ref" validate:"omitempty,max=64"`
	Campaign *string `json:"campaign" validate:"omitempty,max=64"`
}

// JoinResult is the response replayed byte-for-byte on idempotent retries.
type JoinResult struct {
	Code         string `json:"code"`
	ReferralLink string `json:"referralLink"`

	ParticipantID string `json:"-"`
	Email         string `json:"-"`
}

// WaitlistService runs the join operation as one transaction.
type WaitlistService struct {
	DB          *gorm.DB
	Codes       *CodeGenerator
	Attribution *AttributionEngine
	Events      *EventService
	Now         Clock
	log         *logrus.Entry
}

func NewWaitlistService(db *gorm.DB, codes *CodeGenerator, attribution *AttributionEngine, events *EventService) *WaitlistService {
	return &WaitlistService{
		DB:          db,
		Codes:       codes,
		Attribution: attribution,
		Events:      events,
		log:         componentLogger("waitlist"),
	}
}

// NormalizeJoin trims inputs and applies validation and the disposable
// email rule. It runs before any transaction starts.
func NormalizeJoin(req JoinRequest) (JoinRequest, error) {
	req.Name = norm.NFC.String(strings.TrimSpace(req.Name))
	req.Email = strings.TrimSpace(req.Email)
	if req.Ref != nil {
		ref := strings.TrimSpace(*req.Ref)
		req.Ref = &ref
	}
	if req.Campaign != nil {
		campaign := strings.TrimSpace(*req.Campaign)
		if campaign == "" {
			req.Campaign = nil
		} else {
			req.Campaign = &campaign
		}
	}

	if err := ValidateStruct(req); err != nil {
		return req, err
	}
	if IsDisposableEmail(req.Email) {
		return req, NewDisposableEmailError()
	}
	return req, nil
}

// Join upserts the participant, creates the membership, assigns a code,
// applies attribution and records the onboarding event, all or nothing.
// Every step is select-or-insert, so the whole operation can be replayed.
func (s *WaitlistService) Join(ctx context.Context, req JoinRequest) (*JoinResult, error) {
	req, err := NormalizeJoin(req)
	if err != nil {
		return nil, err
	}

	emailCI := canonicalEmail(req.Email)
	var refCode *string
	if req.Ref != nil && Normalize(*req.Ref) != "" {
		c := Normalize(*req.Ref)
		refCode = &c
	}

	var result *JoinResult
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.upsertParticipant(tx, req.Name, req.Email, emailCI)
		if err != nil {
			return err
		}

		if err := s.ensureMembership(tx, p.ID, req.Campaign); err != nil {
			return err
		}

		rc, err := s.Codes.GenerateCode(tx, p.ID, emailCI)
		if err != nil {
			return err
		}

		if refCode != nil {
			if _, err := s.Attribution.AttributeSignup(tx, *refCode, p.ID, emailCI); err != nil {
				return err
			}
		}

		payload := map[string]interface{}{"ref": refCode}
		if req.Campaign != nil {
			payload["campaign"] = *req.Campaign
		}
		if err := s.Events.Record(tx, &p.ID, models.EventOnboardingCompleted, payload); err != nil {
			return err
		}

		result = &JoinResult{
			Code:          rc.Display,
			ReferralLink:  "/r/" + rc.Display,
			ParticipantID: p.ID,
			Email:         p.EmailCI,
		}
		return nil
	})
	if errors.Is(err, ErrSelfReferral) {
		return nil, NewSelfReferralError()
	}
	if err != nil {
		return nil, fmt.Errorf("join waitlist: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"participant_id": result.ParticipantID,
		"email":          models.MaskEmail(emailCI),
		"referred":       refCode != nil,
	}).Info("participant joined waitlist")
	return result, nil
}

func (s *WaitlistService) upsertParticipant(tx *gorm.DB, name, email, emailCI string) (*models.Participant, error) {
	var p models.Participant
	err := tx.Where("email_ci = ?", emailCI).First(&p).Error
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lookup participant: %w", err)
	}

	now := s.Now.now()
	p = models.Participant{
		ID:         uuid.NewString(),
		EmailCI:    emailCI,
		Email:      email,
		Name:       name,
		Timestamps: models.Timestamps{CreatedAt: now, UpdatedAt: now},
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&p)
	if res.Error != nil {
		return nil, fmt.Errorf("insert participant: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return &p, nil
	}

	// A concurrent join for the same email won the insert.
	var winner models.Participant
	if err := tx.Where("email_ci = ?", emailCI).First(&winner).Error; err != nil {
		return nil, fmt.Errorf("re-read participant after conflict: %w", err)
	}
	return &winner, nil
}

func (s *WaitlistService) ensureMembership(tx *gorm.DB, participantID string, campaign *string) error {
	var existing int64
	if err := tx.Model(&models.WaitlistMembership{}).
		Where("participant_id = ?", participantID).
		Count(&existing).Error; err != nil {
		return fmt.Errorf("lookup membership: %w", err)
	}
	if existing > 0 {
		return nil
	}

	m := &models.WaitlistMembership{
		ID:            uuid.NewString(),
		ParticipantID: participantID,
		Source:        models.SourceDirect,
		CreatedAt:     s.Now.now(),
	}
	if campaign != nil {
		m.Source = models.SourceCampaign
		m.Campaign = campaign
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(m).Error; err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}
