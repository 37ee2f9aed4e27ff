package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/scrapify/scrapify-backend/internal/models"
	"github.com/scrapify/scrapify-backend/internal/services"
)

// AuthHandler handles signup, login and OTP flows
type AuthHandler struct {
	auth *services.AuthService
	otps *services.OTPService
	log  *zap.Logger
}

func NewAuthHandler(auth *services.AuthService, otps *services.OTPService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, otps: otps, log: log}
}

type otpRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

// SendSignupOTP mails a signup verification code
func (h *AuthHandler) SendSignupOTP(c *fiber.Ctx) error {
	var req otpRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Valid email is required"})
	}
	if err := h.otps.SendSignupOTP(c.UserContext(), req.Email); err != nil {
		return respondError(c, h.log, err, "Failed to save OTP")
	}
	return c.JSON(fiber.Map{"message": "OTP sent successfully"})
}

// VerifySignupOTP checks a signup verification code
func (h *AuthHandler) VerifySignupOTP(c *fiber.Ctx) error {
	return h.verify(c, models.OTPPurposeSignup)
}

// SendResetOTP mails a password reset code to a registered email
func (h *AuthHandler) SendResetOTP(c *fiber.Ctx) error {
	var req otpRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Valid email is required"})
	}
	if err := h.otps.SendResetOTP(c.UserContext(), req.Email); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Email not found"})
		}
		return respondError(c, h.log, err, "Failed to save OTP")
	}
	return c.JSON(fiber.Map{"message": "OTP sent successfully"})
}

// VerifyResetOTP checks a password reset code without consuming it
func (h *AuthHandler) VerifyResetOTP(c *fiber.Ctx) error {
	return h.verify(c, models.OTPPurposeForgotPassword)
}

func (h *AuthHandler) verify(c *fiber.Ctx, purpose string) error {
	var req otpRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Valid email and OTP are required"})
	}
	if err := h.otps.Verify(c.UserContext(), req.Email, req.OTP, purpose); err != nil {
		return respondError(c, h.log, err, "Server error")
	}
	return c.JSON(fiber.Map{"message": "OTP verified"})
}

// ResetPassword sets a new password after a reset code check
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req otpRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "All fields are required and must be valid"})
	}
	if err := h.otps.ResetPassword(c.UserContext(), req.Email, req.OTP, req.NewPassword); err != nil {
		return respondError(c, h.log, err, "Failed to update password")
	}
	return c.JSON(fiber.Map{"message": "Password reset successful"})
}

// Signup registers a new user
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "All fields are required and must be valid"})
	}

	_, err := h.auth.Signup(c.UserContext(), services.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		return respondError(c, h.log, err, "Server error")
	}
	return c.JSON(fiber.Map{"message": "User registered successfully"})
}

// Login exchanges credentials for a bearer token
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Email and password are required"})
	}

	user, token, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, h.log, err, "Server error")
	}
	return c.JSON(fiber.Map{
		"message": "Login successful",
		"user": fiber.Map{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
			"phone": user.Phone,
		},
		"token": token,
	})
}
