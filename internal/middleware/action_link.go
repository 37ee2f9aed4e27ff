package middleware

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/scrapify/scrapify-backend/internal/utils"
)

// ValidateActionSignature checks the sig query parameter of an emailed
// admin link against the booking id in the path. With an empty secret the
// links are unsigned and every request passes.
func ValidateActionSignature(secret, action string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return c.Next()
		}

		sig := c.Query("sig")
		if sig == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing link signature",
			})
		}

		id, err := strconv.ParseUint(c.Params("bookingId"), 10, 64)
		if err != nil || !utils.VerifyAction(secret, action, uint(id), sig) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid signature",
			})
		}

		return c.Next()
	}
}
