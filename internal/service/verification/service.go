package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/verification"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/email"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/sealer"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

type VerificationServiceImpl struct {
	users       user.UserRepository
	dispatcher  email.Dispatcher
	sealer      *sealer.Sealer
	issuer      string
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
}

func NewVerificationService(
	users user.UserRepository,
	dispatcher email.Dispatcher,
	sealer *sealer.Sealer,
	issuer string,
	ttl time.Duration,
	maxAttempts int,
) *VerificationServiceImpl {
	return &VerificationServiceImpl{
		users:       users,
		dispatcher:  dispatcher,
		sealer:      sealer,
		issuer:      issuer,
		ttl:         ttl,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

var _ verification.VerificationService = (*VerificationServiceImpl)(nil)

// opts uses the code lifetime as the TOTP period so one code covers the whole window.
func (s *VerificationServiceImpl) opts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    uint(s.ttl / time.Second),
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// SendCode implements verification.VerificationService.
func (s *VerificationServiceImpl) SendCode(ctx context.Context, req verification.SendCodeRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return err
	}
	if u.EmailVerified {
		return verification.ErrAlreadyVerified
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: u.Email,
		Period:      uint(s.ttl / time.Second),
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return fmt.Errorf("failed to generate otp secret: %w", err)
	}

	now := s.now().UTC()
	code, err := totp.GenerateCodeCustom(key.Secret(), now, s.opts())
	if err != nil {
		return fmt.Errorf("failed to generate otp code: %w", err)
	}

	sealed, err := s.sealer.Seal(key.Secret())
	if err != nil {
		return err
	}
	if err := s.users.SaveOTP(ctx, u.ID, sealed, now.Add(s.ttl), now); err != nil {
		return fmt.Errorf("failed to save otp: %w", err)
	}

	result := s.dispatcher.SendOTP(ctx, email.OTPEmail{
		Email:     u.Email,
		Code:      code,
		ExpiresIn: s.ttl,
	})
	if !result.Success {
		slog.WarnContext(ctx, "failed to send verification code", "user_id", u.ID, "error", result.Error)
	}
	return nil
}

// VerifyCode implements verification.VerificationService.
func (s *VerificationServiceImpl) VerifyCode(ctx context.Context, req verification.VerifyCodeRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return verification.ErrOTPInvalid
		}
		return err
	}
	if u.EmailVerified {
		return verification.ErrAlreadyVerified
	}

	now := s.now().UTC()
	if u.OTPSecret == nil || u.OTPExpiresAt == nil || !now.Before(*u.OTPExpiresAt) {
		return verification.ErrOTPExpired
	}

	secret, err := s.sealer.Open(*u.OTPSecret)
	if err != nil {
		return fmt.Errorf("failed to open otp secret: %w", err)
	}

	valid, err := totp.ValidateCustom(req.Code, secret, now, s.opts())
	if err != nil || !valid {
		attempts, ferr := s.users.RecordOTPFailure(ctx, u.ID, s.maxAttempts, now)
		if ferr != nil {
			return fmt.Errorf("failed to record otp failure: %w", ferr)
		}
		if attempts >= s.maxAttempts {
			slog.WarnContext(ctx, "verification code invalidated after failed attempts", "user_id", u.ID, "attempts", attempts)
			return verification.ErrOTPAttemptsExceeded
		}
		return verification.ErrOTPInvalid
	}

	if err := s.users.MarkEmailVerified(ctx, u.ID, now); err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}
	slog.InfoContext(ctx, "email verified", "user_id", u.ID)
	return nil
}
