package verification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/verification"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/email"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/sealer"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

type outbox struct {
	mu  sync.Mutex
	otp []email.OTPEmail
}

func (o *outbox) SendInvitation(ctx context.Context, msg email.InvitationEmail) email.Result {
	return email.Result{Success: true}
}

func (o *outbox) SendWelcome(ctx context.Context, msg email.WelcomeEmail) email.Result {
	return email.Result{Success: true}
}

func (o *outbox) SendOTP(ctx context.Context, msg email.OTPEmail) email.Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.otp = append(o.otp, msg)
	return email.Result{Success: true}
}

func (o *outbox) lastCode(t *testing.T) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.otp)
	return o.otp[len(o.otp)-1].Code
}

func setup(t *testing.T) (*VerificationServiceImpl, user.UserRepository, *outbox) {
	t.Helper()
	users := memory.NewUserRepository(memory.NewStore())
	box := &outbox{}
	s, err := sealer.New("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	svc := NewVerificationService(users, box, s, "Taskflow", 10*time.Minute, 3)
	svc.now = func() time.Time { return now }

	_, err = users.Create(context.Background(), user.User{Email: "alice@x.com", Name: "Alice"})
	require.NoError(t, err)
	return svc, users, box
}

func TestSendAndVerify(t *testing.T) {
	svc, users, box := setup(t)
	ctx := context.Background()

	require.NoError(t, svc.SendCode(ctx, verification.SendCodeRequest{Email: " Alice@X.com "}))

	u, err := users.GetByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	require.NotNil(t, u.OTPSecret)
	require.NotNil(t, u.OTPExpiresAt)
	assert.Equal(t, now.Add(10*time.Minute), *u.OTPExpiresAt)

	code := box.lastCode(t)
	assert.Len(t, code, verification.CodeDigits)
	assert.Equal(t, 10*time.Minute, box.otp[0].ExpiresIn)

	svc.now = func() time.Time { return now.Add(5 * time.Minute) }
	require.NoError(t, svc.VerifyCode(ctx, verification.VerifyCodeRequest{Email: "alice@x.com", Code: code}))

	u, err = users.GetByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.True(t, u.EmailVerified)
	assert.Nil(t, u.OTPSecret)

	err = svc.SendCode(ctx, verification.SendCodeRequest{Email: "alice@x.com"})
	assert.ErrorIs(t, err, verification.ErrAlreadyVerified)
}

func TestVerifyCode_WrongCode(t *testing.T) {
	svc, _, box := setup(t)
	ctx := context.Background()
	require.NoError(t, svc.SendCode(ctx, verification.SendCodeRequest{Email: "alice@x.com"}))

	wrong := "000000"
	if box.lastCode(t) == wrong {
		wrong = "111111"
	}
	err := svc.VerifyCode(ctx, verification.VerifyCodeRequest{Email: "alice@x.com", Code: wrong})
	assert.ErrorIs(t, err, verification.ErrOTPInvalid)
}

func TestVerifyCode_AttemptsExhausted(t *testing.T) {
	svc, users, box := setup(t)
	ctx := context.Background()
	require.NoError(t, svc.SendCode(ctx, verification.SendCodeRequest{Email: "alice@x.com"}))
	code := box.lastCode(t)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	guess := verification.VerifyCodeRequest{Email: "alice@x.com", Code: wrong}
	assert.ErrorIs(t, svc.VerifyCode(ctx, guess), verification.ErrOTPInvalid)
	assert.ErrorIs(t, svc.VerifyCode(ctx, guess), verification.ErrOTPInvalid)
	assert.ErrorIs(t, svc.VerifyCode(ctx, guess), verification.ErrOTPAttemptsExceeded)

	// The right code no longer works once the secret is gone.
	err := svc.VerifyCode(ctx, verification.VerifyCodeRequest{Email: "alice@x.com", Code: code})
	assert.ErrorIs(t, err, verification.ErrOTPExpired)

	u, err := users.GetByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.Nil(t, u.OTPSecret)
	assert.False(t, u.EmailVerified)

	// A fresh code resets the counter.
	require.NoError(t, svc.SendCode(ctx, verification.SendCodeRequest{Email: "alice@x.com"}))
	u, err = users.GetByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.Zero(t, u.OTPAttempts)
	require.NoError(t, svc.VerifyCode(ctx, verification.VerifyCodeRequest{Email: "alice@x.com", Code: box.lastCode(t)}))
}

func TestVerifyCode_Expired(t *testing.T) {
	svc, _, box := setup(t)
	ctx := context.Background()
	require.NoError(t, svc.SendCode(ctx, verification.SendCodeRequest{Email: "alice@x.com"}))

	svc.now = func() time.Time { return now.Add(10 * time.Minute) }
	err := svc.VerifyCode(ctx, verification.VerifyCodeRequest{Email: "alice@x.com", Code: box.lastCode(t)})
	assert.ErrorIs(t, err, verification.ErrOTPExpired)
}

func TestVerifyCode_NeverSent(t *testing.T) {
	svc, _, _ := setup(t)
	err := svc.VerifyCode(context.Background(), verification.VerifyCodeRequest{Email: "alice@x.com", Code: "123456"})
	assert.ErrorIs(t, err, verification.ErrOTPExpired)
}

func TestSendCode_UnknownUser(t *testing.T) {
	svc, _, box := setup(t)
	err := svc.SendCode(context.Background(), verification.SendCodeRequest{Email: "nobody@x.com"})
	assert.ErrorIs(t, err, user.ErrUserNotFound)
	assert.Empty(t, box.otp)
}
