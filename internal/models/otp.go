package models

import "gorm.io/gorm"

const (
	OTPPurposeSignup         = "signup"
	OTPPurposeForgotPassword = "forgot_password"
)

// OTP is a one-time code mailed to an email address. Only the latest row per
// (email, purpose) is consulted.
type OTP struct {
	gorm.Model
	Email   string `gorm:"size:255;not null;index:idx_otp_lookup"`
	Code    string `gorm:"size:10;not null"`
	Purpose string `gorm:"size:32;not null;index:idx_otp_lookup"`
}

func (OTP) TableName() string { return "otp_verification" }
