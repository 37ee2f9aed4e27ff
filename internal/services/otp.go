package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/scrapify/scrapify-backend/internal/models"
	"github.com/scrapify/scrapify-backend/internal/storage"
	"github.com/scrapify/scrapify-backend/internal/utils"
)

const otpDigits = 4

// ErrOTPDelivery means the code was stored but could not be mailed.
var ErrOTPDelivery = errors.New("failed to send OTP email")

type OTPService struct {
	store  storage.Store
	mailer Mailer
	ttl    time.Duration
	log    *zap.Logger
	now    func() time.Time
}

func NewOTPService(store storage.Store, mailer Mailer, ttl time.Duration, log *zap.Logger) *OTPService {
	return &OTPService{store: store, mailer: mailer, ttl: ttl, log: log, now: time.Now}
}

// SendSignupOTP mails a fresh signup code to email.
func (s *OTPService) SendSignupOTP(ctx context.Context, email string) error {
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	return s.send(ctx, email, models.OTPPurposeSignup, "Your OTP Code", "Your OTP code is: %s")
}

// SendResetOTP mails a password reset code. Unknown emails are refused.
func (s *OTPService) SendResetOTP(ctx context.Context, email string) error {
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	if _, err := s.store.GetUserByEmail(ctx, email); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}
	return s.send(ctx, email, models.OTPPurposeForgotPassword,
		"Your Password Reset OTP", "Your OTP code for password reset is: %s")
}

func (s *OTPService) send(ctx context.Context, email, purpose, subject, body string) error {
	code, err := utils.GenerateOTP(otpDigits)
	if err != nil {
		return fmt.Errorf("failed to generate OTP: %w", err)
	}
	if err := s.store.CreateOTP(ctx, &models.OTP{Email: email, Code: code, Purpose: purpose}); err != nil {
		return fmt.Errorf("save OTP: %w", err)
	}

	err = s.mailer.Send(ctx, Email{
		To:      []string{email},
		Subject: subject,
		Text:    fmt.Sprintf(body, code),
	})
	if err != nil {
		s.log.Error("otp email failed", zap.String("purpose", purpose), zap.Error(err))
		return ErrOTPDelivery
	}
	s.log.Info("otp sent", zap.String("purpose", purpose))
	return nil
}

// Verify checks code against the latest code issued to email for purpose.
// Codes older than the configured TTL are rejected.
func (s *OTPService) Verify(ctx context.Context, email, code, purpose string) error {
	email, err := NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if err != nil || !isNumeric(code) {
		return invalid("otp", "Valid email and OTP are required")
	}

	otp, err := s.store.GetLatestOTP(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrInvalidOTP
		}
		return fmt.Errorf("load OTP: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(otp.Code), []byte(code)) != 1 {
		return ErrInvalidOTP
	}
	if s.ttl > 0 && s.now().After(otp.CreatedAt.Add(s.ttl)) {
		return ErrExpiredOTP
	}
	return nil
}

// ResetPassword replaces the password of email after checking a reset code.
func (s *OTPService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	newPassword = strings.TrimSpace(newPassword)
	normalized, err := NormalizeEmail(email)
	if err != nil || newPassword == "" || !isNumeric(strings.TrimSpace(code)) {
		return invalid("", "All fields are required and must be valid")
	}
	if err := s.Verify(ctx, normalized, code, models.OTPPurposeForgotPassword); err != nil {
		return err
	}

	hashed, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePassword(ctx, normalized, hashed); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to update password: %w", err)
	}
	s.log.Info("password reset")
	return nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
