package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"waitlist-referral-system/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const clickLogTimeout = 5 * time.Second

// AttributionEngine links joining participants to the owner of the code
// that referred them and records referral clicks.
type AttributionEngine struct {
	DB  *gorm.DB
	Now Clock
	log *logrus.Entry
}

func NewAttributionEngine(db *gorm.DB) *AttributionEngine {
	return &AttributionEngine{DB: db, log: componentLogger("attribution")}
}

// AttributeSignup credits the owner of rawCode with the joiner's signup.
// It runs inside the join transaction and is safe to replay: an unknown or
// empty code is a no-op, and a (code, signup, email) triple is written at
// most once. Returns the referrer's code when attribution happened, or
// ErrSelfReferral when the joiner owns the code.
func (a *AttributionEngine) AttributeSignup(tx *gorm.DB, rawCode, joinerID, joinerEmail string) (*models.ReferralCode, error) {
	if strings.TrimSpace(rawCode) == "" {
		return nil, nil
	}

	owner, err := FindCode(tx, rawCode)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		a.log.WithField("code", Normalize(rawCode)).Debug("referral code did not resolve, joining without attribution")
		return nil, nil
	}

	if owner.ParticipantID == joinerID {
		a.log.WithField("email", models.MaskEmail(joinerEmail)).Info("self-referral blocked")
		return nil, ErrSelfReferral
	}

	if err := tx.Model(&models.WaitlistMembership{}).
		Where("participant_id = ?", joinerID).
		Updates(map[string]interface{}{
			"referrer_participant_id": owner.ParticipantID,
			"source":                  models.SourceReferral,
		}).Error; err != nil {
		return nil, fmt.Errorf("record referrer on membership: %w", err)
	}

	email := canonicalEmail(joinerEmail)
	var existing int64
	if err := tx.Model(&models.ReferralEvent{}).
		Where("referral_code_id = ? AND kind = ? AND email = ?", owner.ID, models.ReferralSignup, email).
		Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("check existing signup credit: %w", err)
	}
	if existing > 0 {
		return owner, nil
	}

	event := &models.ReferralEvent{
		ID:             uuid.NewString(),
		ReferralCodeID: owner.ID,
		Kind:           models.ReferralSignup,
		Email:          &email,
		CreatedAt:      a.Now.now(),
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(event)
	if res.Error != nil {
		return nil, fmt.Errorf("insert signup credit: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		referralSignups.Inc()
	}
	return owner, nil
}

// LogClick records a click on a referral link. It is best-effort and never
// part of a join transaction: failures are logged and swallowed.
func (a *AttributionEngine) LogClick(ctx context.Context, rawCode string) {
	rc, err := FindCode(a.DB.WithContext(ctx), rawCode)
	if err != nil {
		a.log.WithError(err).Error("error logging referral click")
		return
	}
	if rc == nil {
		return
	}

	event := &models.ReferralEvent{
		ID:             uuid.NewString(),
		ReferralCodeID: rc.ID,
		Kind:           models.ReferralClick,
		CreatedAt:      a.Now.now(),
	}
	if err := a.DB.WithContext(ctx).Create(event).Error; err != nil {
		a.log.WithError(err).WithField("code", rc.Code).Error("error logging referral click")
		return
	}
	referralClicks.Inc()
}

// TrackClick logs a click in the background so the redirect it accompanies
// is never delayed or failed by it.
func (a *AttributionEngine) TrackClick(rawCode string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), clickLogTimeout)
		defer cancel()
		a.LogClick(ctx, rawCode)
	}()
}

// ResolveOwner returns the participant owning rawCode, or nil.
func (a *AttributionEngine) ResolveOwner(ctx context.Context, rawCode string) (*models.Participant, error) {
	db := a.DB.WithContext(ctx)
	rc, err := FindCode(db, rawCode)
	if err != nil || rc == nil {
		return nil, err
	}
	var p models.Participant
	err = db.Where("id = ?", rc.ParticipantID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup code owner: %w", err)
	}
	return &p, nil
}

func canonicalEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
