package verification

import (
	"context"
	"errors"
	"strings"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/validator"
)

var (
	ErrOTPExpired          = errors.New("verification code has expired or was never sent")
	ErrOTPInvalid          = errors.New("verification code is invalid")
	ErrAlreadyVerified     = errors.New("email is already verified")
	ErrOTPAttemptsExceeded = errors.New("too many failed attempts, request a new verification code")
)

// CodeDigits is the length of an emailed verification code.
const CodeDigits = 6

// SendCodeRequest - POST /verification/otp
type SendCodeRequest struct {
	Email string `json:"email"`
}

func (r *SendCodeRequest) Validate() error {
	var errs validator.ValidationErrors

	r.Email = validator.NormalizeEmail(r.Email)
	if r.Email == "" {
		errs = append(errs, validator.ValidationError{
			Field:   "email",
			Message: "email is required",
		})
	} else if !validator.IsValidEmail(r.Email) {
		errs = append(errs, validator.ValidationError{
			Field:   "email",
			Message: "email format is invalid",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// VerifyCodeRequest - POST /verification/otp/verify
type VerifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (r *VerifyCodeRequest) Validate() error {
	var errs validator.ValidationErrors

	r.Email = validator.NormalizeEmail(r.Email)
	r.Code = strings.TrimSpace(r.Code)

	if r.Email == "" {
		errs = append(errs, validator.ValidationError{
			Field:   "email",
			Message: "email is required",
		})
	}

	if len(r.Code) != CodeDigits || strings.Trim(r.Code, "0123456789") != "" {
		errs = append(errs, validator.ValidationError{
			Field:   "code",
			Message: "code must be 6 digits",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// VerificationService issues and checks emailed one-time codes. State lives on the user row.
type VerificationService interface {
	SendCode(ctx context.Context, req SendCodeRequest) error
	VerifyCode(ctx context.Context, req VerifyCodeRequest) error
}
