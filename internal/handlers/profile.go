package handlers

import (
	"mime/multipart"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/scrapify/scrapify-backend/internal/middleware"
	"github.com/scrapify/scrapify-backend/internal/models"
	"github.com/scrapify/scrapify-backend/internal/services"
)

// ProfileHandler serves the caller's profile
type ProfileHandler struct {
	auth  *services.AuthService
	media *services.MediaIntake
	log   *zap.Logger
}

func NewProfileHandler(auth *services.AuthService, media *services.MediaIntake, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{auth: auth, media: media, log: log}
}

type profileResponse struct {
	ID          uint             `json:"id"`
	Name        string           `json:"name"`
	Email       string           `json:"email"`
	Phone       string           `json:"phone"`
	ProfilePic  string           `json:"profile_pic,omitempty"`
	MemberSince time.Time        `json:"memberSince"`
	Address     string           `json:"address"`
	AddressData *addressResponse `json:"addressData"`
}

func newProfileResponse(user *models.User, address *models.Address) profileResponse {
	resp := profileResponse{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		Phone:       user.Phone,
		ProfilePic:  user.ProfilePicture,
		MemberSince: user.CreatedAt,
		AddressData: newAddressResponse(address),
	}
	if address != nil {
		resp.Address = address.String()
	}
	return resp
}

// GetProfile returns the caller with their structured address
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	user, address, err := h.auth.Profile(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.log, err, "Failed to fetch profile")
	}
	return c.JSON(fiber.Map{"user": newProfileResponse(user, address)})
}

// UpdateProfile changes name, phone and optionally the password
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	var req struct {
		Name     *string `json:"name"`
		Phone    *string `json:"phone"`
		Password *string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	user, err := h.auth.UpdateProfile(c.UserContext(), middleware.UserID(c), services.ProfileInput{
		Name:     req.Name,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		return respondError(c, h.log, err, "Failed to update profile")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Profile updated successfully",
		"user":    newProfileResponse(user, nil),
	})
}

// UploadProfilePicture stores the profilePic file and links it to the caller
func (h *ProfileHandler) UploadProfilePicture(c *fiber.Ctx) error {
	fh, err := c.FormFile("profilePic")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No file uploaded"})
	}

	stored, err := h.media.StoreImages(c.UserContext(), []*multipart.FileHeader{fh})
	if err != nil {
		return respondError(c, h.log, err, "Failed to upload profile picture")
	}

	user, err := h.auth.SetProfilePicture(c.UserContext(), middleware.UserID(c), stored[0].Filename)
	if err != nil {
		return respondError(c, h.log, err, "Failed to upload profile picture")
	}
	return c.JSON(fiber.Map{
		"success":     true,
		"message":     "Profile picture uploaded",
		"profile_pic": user.ProfilePicture,
	})
}
