package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/scrapify/scrapify-backend/internal/services"
)

// AdminHandler handles the accept/reject links emailed to operations
type AdminHandler struct {
	machine *services.StatusMachine
	log     *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(machine *services.StatusMachine, log *zap.Logger) *AdminHandler {
	return &AdminHandler{machine: machine, log: log}
}

// AcceptBooking confirms a pending booking
func (h *AdminHandler) AcceptBooking(c *fiber.Ctx) error {
	id, ok := bookingIDParam(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking ID"})
	}

	if _, err := h.machine.Accept(c.UserContext(), id); err != nil {
		return respondError(c, h.log, err, "Failed to accept booking")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Booking accepted successfully. Customer has been notified.",
	})
}

// RejectBooking cancels a pending booking with an optional ?reason=
func (h *AdminHandler) RejectBooking(c *fiber.Ctx) error {
	id, ok := bookingIDParam(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking ID"})
	}

	if _, err := h.machine.Reject(c.UserContext(), id, c.Query("reason")); err != nil {
		return respondError(c, h.log, err, "Failed to reject booking")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Booking rejected successfully. Customer has been notified.",
	})
}

func bookingIDParam(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("bookingId"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
