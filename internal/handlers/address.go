package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/scrapify/scrapify-backend/internal/middleware"
	"github.com/scrapify/scrapify-backend/internal/models"
	"github.com/scrapify/scrapify-backend/internal/services"
)

// AddressHandler handles the caller's saved pickup address
type AddressHandler struct {
	addresses *services.AddressService
	log       *zap.Logger
}

func NewAddressHandler(addresses *services.AddressService, log *zap.Logger) *AddressHandler {
	return &AddressHandler{addresses: addresses, log: log}
}

// SaveAddress creates or updates the caller's address
func (h *AddressHandler) SaveAddress(c *fiber.Ctx) error {
	var req models.AddressInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	address, err := h.addresses.Upsert(c.UserContext(), middleware.UserID(c), req)
	if err != nil {
		return respondError(c, h.log, err, "Failed to save address")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Address updated successfully",
		"address": newAddressResponse(address),
	})
}

// GetAddress returns the caller's address or null
func (h *AddressHandler) GetAddress(c *fiber.Ctx) error {
	address, err := h.addresses.Get(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.log, err, "Failed to fetch address")
	}
	return c.JSON(fiber.Map{"address": newAddressResponse(address)})
}
