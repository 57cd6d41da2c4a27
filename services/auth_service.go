package services

import (
	"context"
	"errors"
	"fmt"

	"waitlist-referral-system/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// OTPSendRequest is the body of POST /auth/otp/send.
type OTPSendRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

// OTPVerifyRequest is the body of POST /auth/otp/verify.
type OTPVerifyRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Token string `json:"token" validate:"required,len=6"`
}

// VerifyResult reports the outcome of an OTP check. Participant is nil when
// the verified address never joined the waitlist.
type VerifyResult struct {
	Verified    bool
	Participant *models.Participant
}

// AuthService verifies email ownership through the identity provider and
// stamps verified-at on the participant.
type AuthService struct {
	DB       *gorm.DB
	Provider IdentityProvider
	Now      Clock
	log      *logrus.Entry
}

// NewAuthService accepts a nil provider; every call then fails with
// auth_not_configured.
func NewAuthService(db *gorm.DB, provider IdentityProvider) *AuthService {
	return &AuthService{DB: db, Provider: provider, log: componentLogger("auth")}
}

func (s *AuthService) SendOTP(ctx context.Context, email string) error {
	if s.Provider == nil {
		return NewAuthNotConfiguredError()
	}
	if err := s.Provider.SendOTP(ctx, canonicalEmail(email)); err != nil {
		s.log.WithError(err).WithField("email", models.MaskEmail(email)).Error("OTP send failed")
		return NewOTPSendError(err)
	}
	return nil
}

func (s *AuthService) VerifyOTP(ctx context.Context, email, token string) (*VerifyResult, error) {
	if s.Provider == nil {
		return nil, NewAuthNotConfiguredError()
	}

	emailCI := canonicalEmail(email)
	ok, err := s.Provider.VerifyOTP(ctx, emailCI, token)
	if err != nil {
		s.log.WithError(err).WithField("email", models.MaskEmail(email)).Warn("OTP verification failed")
		return nil, NewOTPVerifyError(err)
	}
	if !ok {
		return &VerifyResult{Verified: false}, nil
	}

	db := s.DB.WithContext(ctx)
	// Keep the first verification time.
	if err := db.Model(&models.Participant{}).
		Where("email_ci = ? AND verified_at IS NULL", emailCI).
		Update("verified_at", s.Now.now()).Error; err != nil {
		return nil, fmt.Errorf("mark email verified: %w", err)
	}

	var p models.Participant
	err = db.Where("email_ci = ?", emailCI).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &VerifyResult{Verified: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reload participant: %w", err)
	}
	return &VerifyResult{Verified: true, Participant: &p}, nil
}
