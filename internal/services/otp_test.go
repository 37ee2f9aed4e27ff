package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/scrapify/scrapify-backend/internal/models"
	"github.com/scrapify/scrapify-backend/internal/storage"
)

func newTestOTPService(store storage.Store, mailer Mailer) *OTPService {
	return NewOTPService(store, mailer, 10*time.Minute, zap.NewNop())
}

// mailedCode extracts the code from the last OTP email.
func mailedCode(t *testing.T, mailer *fakeMailer) string {
	t.Helper()
	text := mailer.last(t).Text
	code := text[strings.LastIndex(text, " ")+1:]
	require.Len(t, code, 4)
	return code
}

func TestSignupOTP(t *testing.T) {
	ctx := context.Background()
	mailer := &fakeMailer{}
	svc := newTestOTPService(storage.NewMemoryStore(), mailer)

	require.NoError(t, svc.SendSignupOTP(ctx, " New@Example.com "))
	email := mailer.last(t)
	assert.Equal(t, []string{"new@example.com"}, email.To)
	assert.Equal(t, "Your OTP Code", email.Subject)
	code := mailedCode(t, mailer)

	assert.ErrorIs(t, svc.Verify(ctx, "new@example.com", "0000", models.OTPPurposeSignup), ErrInvalidOTP)
	assert.ErrorIs(t, svc.Verify(ctx, "new@example.com", code, models.OTPPurposeForgotPassword), ErrInvalidOTP)
	assert.NoError(t, svc.Verify(ctx, "NEW@example.com", code, models.OTPPurposeSignup))
}

func TestOTPLatestCodeWins(t *testing.T) {
	ctx := context.Background()
	mailer := &fakeMailer{}
	svc := newTestOTPService(storage.NewMemoryStore(), mailer)

	require.NoError(t, svc.SendSignupOTP(ctx, "new@example.com"))
	first := mailedCode(t, mailer)
	require.NoError(t, svc.SendSignupOTP(ctx, "new@example.com"))
	second := mailedCode(t, mailer)

	if first != second {
		assert.ErrorIs(t, svc.Verify(ctx, "new@example.com", first, models.OTPPurposeSignup), ErrInvalidOTP)
	}
	assert.NoError(t, svc.Verify(ctx, "new@example.com", second, models.OTPPurposeSignup))
}

func TestOTPExpires(t *testing.T) {
	ctx := context.Background()
	mailer := &fakeMailer{}
	svc := newTestOTPService(storage.NewMemoryStore(), mailer)

	require.NoError(t, svc.SendSignupOTP(ctx, "new@example.com"))
	code := mailedCode(t, mailer)

	svc.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
	assert.ErrorIs(t, svc.Verify(ctx, "new@example.com", code, models.OTPPurposeSignup), ErrExpiredOTP)
}

func TestOTPVerifyValidation(t *testing.T) {
	svc := newTestOTPService(storage.NewMemoryStore(), &fakeMailer{})

	for _, tc := range []struct{ email, code string }{
		{"", "1234"},
		{"not-an-email", "1234"},
		{"a@example.com", ""},
		{"a@example.com", "12ab"},
	} {
		err := svc.Verify(context.Background(), tc.email, tc.code, models.OTPPurposeSignup)
		var ve *ValidationError
		require.True(t, errors.As(err, &ve), "%+v", tc)
		assert.Equal(t, "Valid email and OTP are required", ve.Message)
	}
}

func TestOTPDeliveryFailure(t *testing.T) {
	svc := newTestOTPService(storage.NewMemoryStore(), &fakeMailer{err: errMailDown})

	err := svc.SendSignupOTP(context.Background(), "new@example.com")
	assert.ErrorIs(t, err, ErrOTPDelivery)
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	mailer := &fakeMailer{}
	svc := newTestOTPService(store, mailer)
	createUser(t, store, "asha@example.com")

	assert.ErrorIs(t, svc.SendResetOTP(ctx, "nobody@example.com"), ErrUserNotFound)

	require.NoError(t, svc.SendResetOTP(ctx, "asha@example.com"))
	assert.Equal(t, "Your Password Reset OTP", mailer.last(t).Subject)
	code := mailedCode(t, mailer)

	// A signup code cannot reset a password
	require.NoError(t, svc.SendSignupOTP(ctx, "asha@example.com"))
	signupCode := mailedCode(t, mailer)
	if signupCode != code {
		assert.ErrorIs(t, svc.ResetPassword(ctx, "asha@example.com", signupCode, "newpass"), ErrInvalidOTP)
	}

	require.NoError(t, svc.ResetPassword(ctx, "asha@example.com", code, "  newpass  "))
	u, err := store.GetUserByEmail(ctx, "asha@example.com")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("newpass")))

	var ve *ValidationError
	assert.True(t, errors.As(svc.ResetPassword(ctx, "asha@example.com", code, ""), &ve))
}
