package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/scrapify/scrapify-backend/internal/storage"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	Version  string
	store    storage.Store
	channels map[string]bool
}

// NewHealthHandler creates a new health handler. channels lists the
// notification channels and whether each is configured.
func NewHealthHandler(version string, store storage.Store, channels map[string]bool) *HealthHandler {
	return &HealthHandler{
		Version:  version,
		store:    store,
		channels: channels,
	}
}

// Check returns the health status of the service
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status, code, storageStatus := "OK", fiber.StatusOK, "up"
	if err := h.store.Ping(ctx); err != nil {
		status, code, storageStatus = "DEGRADED", fiber.StatusServiceUnavailable, "down"
	}

	return c.Status(code).JSON(fiber.Map{
		"status":   status,
		"service":  "Scrapify Backend",
		"version":  h.Version,
		"storage":  storageStatus,
		"channels": h.channels,
	})
}
