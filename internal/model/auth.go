package model

import "time"

// AuthRequest types
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required"`
	OTP   string `json:"otp" binding:"required"`
}

// Credential is the private half of a user record: the password hash and any pending OTP.
type Credential struct {
	ID           int64      `db:"id"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password"`
	Phone        *string    `db:"phone"`
	OTP          *string    `db:"otp"`
	OTPExpiry    *time.Time `db:"otp_expiry"`
}

// HasPendingOTP reports whether a code was issued and not yet consumed.
func (c *Credential) HasPendingOTP() bool {
	return c.OTP != nil && *c.OTP != "" && c.OTPExpiry != nil
}

// Delivery is the destination of an OTP.
type Delivery struct {
	Email string
	Phone string
}
