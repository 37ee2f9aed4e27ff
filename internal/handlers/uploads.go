package handlers

import (
	"mime"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/scrapify/scrapify-backend/internal/services"
)

// UploadsHandler serves stored booking and profile images
type UploadsHandler struct {
	media *services.MediaIntake
	log   *zap.Logger
}

func NewUploadsHandler(media *services.MediaIntake, log *zap.Logger) *UploadsHandler {
	return &UploadsHandler{media: media, log: log}
}

// Serve streams /uploads/:filename from the active media store
func (h *UploadsHandler) Serve(c *fiber.Ctx) error {
	name := c.Params("filename")
	rc, err := h.media.Open(c.UserContext(), name)
	if err != nil {
		return respondError(c, h.log, err, "Failed to read file")
	}

	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		c.Set(fiber.HeaderContentType, ct)
	} else {
		c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
	}
	c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	// fasthttp closes rc once the body is written
	return c.SendStream(rc)
}
