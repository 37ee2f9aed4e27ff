package models

import "time"

// User is a registered customer
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"size:100;not null" json:"name"`
	Email          string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Phone          string    `gorm:"size:20" json:"phone"`
	Password       string    `gorm:"size:255;not null" json:"-"`
	ProfilePicture string    `gorm:"size:512" json:"profile_picture,omitempty"`
	LegacyAddress  string    `gorm:"column:address;type:text" json:"-"` // pre-structured "street, area, city, pincode"
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }
