package services

import (
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	disposableDomain = regexp.MustCompile(`(?i)(^|\.)((mailinator|10minutemail|guerrillamail|tempmail)\.com)$`)
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateStruct runs `validate` tags and reports the first failure.
func ValidateStruct(v interface{}) error {
	if err := validatorInstance().Struct(v); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			fe := errs[0]
			return NewValidationError("invalid " + strings.ToLower(fe.Field()) + " (" + fe.Tag() + ")")
		}
		return NewValidationError("Invalid request data")
	}
	return nil
}

// IsDisposableEmail reports whether the address belongs to a throwaway
// mailbox provider.
func IsDisposableEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	return disposableDomain.MatchString(strings.TrimSpace(email[at+1:]))
}
