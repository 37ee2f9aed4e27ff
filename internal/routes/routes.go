package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/scrapify/scrapify-backend/internal/handlers"
	"github.com/scrapify/scrapify-backend/internal/middleware"
	"github.com/scrapify/scrapify-backend/internal/services"
)

// Handlers bundles everything the route table needs
type Handlers struct {
	Auth       *handlers.AuthHandler
	Profile    *handlers.ProfileHandler
	Address    *handlers.AddressHandler
	Booking    *handlers.BookingHandler
	Admin      *handlers.AdminHandler
	Uploads    *handlers.UploadsHandler
	Health     *handlers.HealthHandler
	Debug      *handlers.DebugHandler // nil disables /debug routes
	Tokens     *services.TokenService
	Prefix     string
	LinkSecret string
	Version    string
}

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, h Handlers) {

	// Root endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to Scrapify Backend!",
			"version": h.Version,
			"endpoints": fiber.Map{
				"health":  "/health",
				"api":     h.Prefix,
				"uploads": "/uploads/:filename",
			},
		})
	})

	app.Get("/health", h.Health.Check)

	// Images are served both at the root and under the API prefix
	app.Get("/uploads/:filename", h.Uploads.Serve)

	api := app.Group(h.Prefix)
	api.Get("/test", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "API is working!"})
	})
	api.Get("/uploads/:filename", h.Uploads.Serve)

	// ========== ACCOUNT ROUTES ==========
	api.Post("/send-otp", h.Auth.SendSignupOTP)
	api.Post("/verify-otp", h.Auth.VerifySignupOTP)
	api.Post("/forgot-password/send-otp", h.Auth.SendResetOTP)
	api.Post("/forgot-password/verify-otp", h.Auth.VerifyResetOTP)
	api.Post("/forgot-password/reset", h.Auth.ResetPassword)
	api.Post("/signup", h.Auth.Signup)
	api.Post("/login", h.Auth.Login)

	// ========== AUTHENTICATED ROUTES ==========
	auth := middleware.RequireAuth(h.Tokens)
	api.Get("/profile", auth, h.Profile.GetProfile)
	api.Put("/profile", auth, h.Profile.UpdateProfile)
	api.Post("/upload-profile-pic", auth, h.Profile.UploadProfilePicture)

	api.Post("/address", auth, h.Address.SaveAddress)
	api.Get("/address", auth, h.Address.GetAddress)

	api.Post("/book-service", auth, h.Booking.CreateBooking)
	api.Get("/orders", auth, h.Booking.GetOrders)

	// ========== ADMIN ROUTES ==========
	// Reached from links in the operations email
	admin := api.Group("/admin")
	admin.Get("/accept-booking/:bookingId",
		middleware.ValidateActionSignature(h.LinkSecret, services.ActionAccept), h.Admin.AcceptBooking)
	admin.Get("/reject-booking/:bookingId",
		middleware.ValidateActionSignature(h.LinkSecret, services.ActionReject), h.Admin.RejectBooking)

	// ========== DEBUG ROUTES ==========
	if h.Debug != nil {
		debug := app.Group("/debug")
		debug.Get("/logs", h.Debug.Logs)
		debug.Delete("/logs", h.Debug.ClearLogs)
		debug.Get("/logs/stream", h.Debug.StreamLogs)
	}
}
