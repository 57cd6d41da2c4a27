package services

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes returned to clients in the {error, code} body.
const (
	CodeValidation        = "validation_error"
	CodeDisposableEmail   = "disposable_email_not_allowed"
	CodeSelfReferral      = "self_referral"
	CodeAuthNotConfigured = "auth_not_configured"
	CodeOTPSendFailed     = "otp_send_failed"
	CodeOTPVerifyFailed   = "otp_verify_failed"
	CodeInvalidSession    = "invalid_session"
	CodeNotFound          = "not_found"
	CodeRateLimited       = "rate_limited"
	CodeInternal          = "internal_error"
)

// ErrSelfReferral is raised inside the join transaction when a participant
// presents their own referral code.
var ErrSelfReferral = errors.New("self referral")

// AppError is a user-facing failure with a stable code and HTTP status.
type AppError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

func NewValidationError(msg string) *AppError {
	return &AppError{Status: fiber.StatusBadRequest, Code: CodeValidation, Message: msg}
}

func NewDisposableEmailError() *AppError {
	return &AppError{
		Status:  fiber.StatusBadRequest,
		Code:    CodeDisposableEmail,
		Message: "Disposable email addresses are not allowed",
	}
}

func NewSelfReferralError() *AppError {
	return &AppError{
		Status:  fiber.StatusBadRequest,
		Code:    CodeSelfReferral,
		Message: "You cannot use your own referral code",
		Err:     ErrSelfReferral,
	}
}

func NewAuthNotConfiguredError() *AppError {
	return &AppError{
		Status:  fiber.StatusServiceUnavailable,
		Code:    CodeAuthNotConfigured,
		Message: "Authentication service not configured",
	}
}

func NewOTPSendError(err error) *AppError {
	return &AppError{
		Status:  fiber.StatusInternalServerError,
		Code:    CodeOTPSendFailed,
		Message: "Failed to send verification code",
		Err:     err,
	}
}

func NewOTPVerifyError(err error) *AppError {
	return &AppError{
		Status:  fiber.StatusBadRequest,
		Code:    CodeOTPVerifyFailed,
		Message: "Invalid or expired code",
		Err:     err,
	}
}

func NewInvalidSessionError(err error) *AppError {
	return &AppError{
		Status:  fiber.StatusUnauthorized,
		Code:    CodeInvalidSession,
		Message: "Invalid session",
		Err:     err,
	}
}

// AsAppError unwraps err into an *AppError if one is present in the chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
