package models

import "time"

// Booking is a customer's pickup request for a set of catalog items
type Booking struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;index" json:"user_id"`

	// Service details
	ServiceID     int           `gorm:"not null" json:"service_id"`
	ServiceTitle  string        `gorm:"size:255;not null" json:"service_title"`
	SelectedItems SelectedItems `gorm:"type:text;not null" json:"selected_items"`
	Description   string        `gorm:"type:text" json:"description"`

	// Pickup address, nullable when the user never saved one
	AddressID *uint    `gorm:"index" json:"address_id"`
	Address   *Address `gorm:"foreignKey:AddressID" json:"address,omitempty"`

	// Status tracking
	Status BookingStatus `gorm:"size:20;not null;default:pending;index" json:"status"`

	Images []BookingImage `gorm:"foreignKey:BookingID" json:"images,omitempty"`

	// Timestamps
	BookedAt  time.Time `gorm:"not null" json:"booked_at"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Booking) TableName() string { return "service_bookings" }

// BookingImage is one uploaded photo attached to a booking
type BookingImage struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	BookingID  uint      `gorm:"not null;uniqueIndex:idx_booking_image_file" json:"booking_id"`
	Filename   string    `gorm:"size:255;not null;uniqueIndex:idx_booking_image_file" json:"filename"`
	FilePath   string    `gorm:"size:512;not null" json:"file_path"`
	UploadedAt time.Time `gorm:"not null" json:"uploaded_at"`
}

func (BookingImage) TableName() string { return "booking_images" }

// StoredFile is a reference to a file persisted by media intake
type StoredFile struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
}

// BookingDate returns the calendar date the booking was placed (YYYY-MM-DD)
func (b *Booking) BookingDate() string {
	return b.BookedAt.Format("2006-01-02")
}

// BookingTime returns the wall-clock time the booking was placed (HH:MM:SS)
func (b *Booking) BookingTime() string {
	return b.BookedAt.Format("15:04:05")
}

// ImagePaths returns the relative paths of the booking's images in upload order
func (b *Booking) ImagePaths() []string {
	paths := make([]string, 0, len(b.Images))
	for _, img := range b.Images {
		paths = append(paths, img.FilePath)
	}
	return paths
}
