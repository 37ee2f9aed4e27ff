package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/scrapify/scrapify-backend/internal/services"
)

const (
	bearerPrefix = "Bearer "

	localUserID = "userID"
	localEmail  = "email"
)

// RequireAuth validates the bearer token and stores the caller's id in
// c.Locals for handlers to read with UserID.
func RequireAuth(tokens *services.TokenService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Access denied. No token provided",
			})
		}
		if !strings.HasPrefix(header, bearerPrefix) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format",
			})
		}

		claims, err := tokens.Parse(strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix)))
		if err != nil {
			msg := "Invalid token"
			if errors.Is(err, services.ErrExpiredToken) {
				msg = "Token has expired"
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": msg})
		}

		c.Locals(localUserID, claims.UserID)
		c.Locals(localEmail, claims.Email)
		return c.Next()
	}
}

// UserID returns the authenticated caller, or 0 outside RequireAuth.
func UserID(c *fiber.Ctx) uint {
	id, _ := c.Locals(localUserID).(uint)
	return id
}
