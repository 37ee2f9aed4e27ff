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

// BookingHandler handles booking submission and the orders list
type BookingHandler struct {
	bookings *services.BookingService
	log      *zap.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookings *services.BookingService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{bookings: bookings, log: log}
}

// CreateBooking handles a multipart booking submission
func (h *BookingHandler) CreateBooking(c *fiber.Ctx) error {
	in := services.CreateBookingInput{
		UserID:        middleware.UserID(c),
		ServiceID:     c.FormValue("serviceId"),
		ServiceTitle:  c.FormValue("serviceTitle"),
		SelectedItems: c.FormValue("selectedItems"),
		Description:   c.FormValue("description"),
		Address: models.AddressInput{
			Street:  c.FormValue("street"),
			Area:    c.FormValue("area"),
			City:    c.FormValue("city"),
			Pincode: c.FormValue("pincode"),
		},
		Images: uploadedFiles(c, "images", "images[]"),
	}

	booking, err := h.bookings.Create(c.UserContext(), in)
	if err != nil {
		return respondError(c, h.log, err, "Failed to create booking")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":   true,
		"message":   "Booking created successfully",
		"bookingId": booking.ID,
	})
}

// GetOrders lists the caller's bookings, optionally filtered by ?status=
func (h *BookingHandler) GetOrders(c *fiber.Ctx) error {
	bookings, err := h.bookings.List(c.UserContext(), middleware.UserID(c), c.Query("status"))
	if err != nil {
		return respondError(c, h.log, err, "Failed to fetch orders")
	}

	orders := make([]orderResponse, 0, len(bookings))
	for _, b := range bookings {
		orders = append(orders, newOrderResponse(b))
	}
	return c.JSON(fiber.Map{
		"success": true,
		"orders":  orders,
	})
}

// uploadedFiles collects the files sent under any of keys. Requests that
// are not multipart carry none.
func uploadedFiles(c *fiber.Ctx, keys ...string) []*multipart.FileHeader {
	form, err := c.MultipartForm()
	if err != nil {
		return nil
	}
	var files []*multipart.FileHeader
	for _, key := range keys {
		files = append(files, form.File[key]...)
	}
	return files
}

type addressResponse struct {
	ID      uint   `json:"id"`
	Street  string `json:"street"`
	Area    string `json:"area"`
	City    string `json:"city"`
	Pincode string `json:"pincode"`
}

func newAddressResponse(a *models.Address) *addressResponse {
	if a == nil {
		return nil
	}
	return &addressResponse{ID: a.ID, Street: a.Street, Area: a.Area, City: a.City, Pincode: a.Pincode}
}

type orderResponse struct {
	ID            uint                 `json:"id"`
	ServiceID     int                  `json:"serviceId"`
	ServiceTitle  string               `json:"serviceTitle"`
	SelectedItems models.SelectedItems `json:"selectedItems"`
	Description   string               `json:"description"`
	Status        models.BookingStatus `json:"status"`
	BookingDate   string               `json:"bookingDate"`
	BookingTime   string               `json:"bookingTime"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
	Images        []string             `json:"images"`
	Address       *addressResponse     `json:"address"`
}

func newOrderResponse(b *models.Booking) orderResponse {
	items := b.SelectedItems
	if items == nil {
		items = models.SelectedItems{}
	}
	return orderResponse{
		ID:            b.ID,
		ServiceID:     b.ServiceID,
		ServiceTitle:  b.ServiceTitle,
		SelectedItems: items,
		Description:   b.Description,
		Status:        b.Status,
		BookingDate:   b.BookingDate(),
		BookingTime:   b.BookingTime(),
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
		Images:        b.ImagePaths(),
		Address:       newAddressResponse(b.Address),
	}
}
