package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/scrapify/scrapify-backend/internal/services"
)

// respondError writes err as {"error": message} with the matching status.
// Unrecognized errors are logged and reported as fallback with a 500.
func respondError(c *fiber.Ctx, log *zap.Logger, err error, fallback string) error {
	var validation *services.ValidationError
	if errors.As(err, &validation) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validation.Message})
	}
	var transition *services.TransitionError
	if errors.As(err, &transition) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": transition.Message})
	}

	switch {
	case errors.Is(err, services.ErrBookingNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
	case errors.Is(err, services.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	case errors.Is(err, services.ErrFileNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "File not found"})
	case errors.Is(err, services.ErrEmailTaken):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Email already exists"})
	case errors.Is(err, services.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email or password"})
	case errors.Is(err, services.ErrInvalidOTP):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid OTP"})
	case errors.Is(err, services.ErrExpiredOTP):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "OTP has expired"})
	case errors.Is(err, services.ErrOTPDelivery):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to send OTP email"})
	}

	log.Error(fallback, zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallback})
}

// ErrorHandler is the fiber.Config error handler. It keeps the
// {"error": message} body shape for errors no handler answered.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal server error"
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		} else {
			log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		}
		return c.Status(code).JSON(fiber.Map{"error": message})
	}
}
