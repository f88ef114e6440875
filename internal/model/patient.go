package model

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for dates of birth.
const DateLayout = "2006-01-02"

type Patient struct {
	Base
	FirstName        string     `db:"first_name" json:"first_name"`
	LastName         string     `db:"last_name" json:"last_name"`
	Email            string     `db:"email" json:"email"`
	Phone            *string    `db:"phone" json:"phone"`
	DateOfBirth      *time.Time `db:"date_of_birth" json:"date_of_birth"`
	EmergencyContact *string    `db:"emergency_contact" json:"emergency_contact"`
	EmergencyPhone   *string    `db:"emergency_phone" json:"emergency_phone"`
	TwoFactorEnabled bool       `db:"two_factor_enabled" json:"two_factor_enabled"`
}

func (p *Patient) GetID() int64     { return p.ID }
func (p *Patient) GetEmail() string { return p.Email }
func (p *Patient) GetPhone() string { return deref(p.Phone) }

func (p *Patient) InsertFields(passwordHash string) ([]string, []interface{}) {
	cols := []string{
		"first_name", "last_name", "email", "phone", "date_of_birth", "password",
		"emergency_contact", "emergency_phone", "two_factor_enabled",
	}
	vals := []interface{}{
		p.FirstName, p.LastName, p.Email, p.Phone, p.DateOfBirth, passwordHash,
		p.EmergencyContact, p.EmergencyPhone, p.TwoFactorEnabled,
	}
	return cols, vals
}

// PatientSignupRequest keeps the camelCase body the patient registration form posts.
type PatientSignupRequest struct {
	FirstName        string `json:"firstName" binding:"required"`
	LastName         string `json:"lastName" binding:"required"`
	Email            string `json:"email" binding:"required,email"`
	Password         string `json:"password" binding:"required"`
	Phone            string `json:"phone" binding:"omitempty,phone"`
	DateOfBirth      string `json:"dateOfBirth" binding:"omitempty,datetime=2006-01-02"`
	EmergencyContact string `json:"emergencyContact"`
	EmergencyPhone   string `json:"emergencyPhone" binding:"omitempty,phone"`
	TwoFactorEnabled bool   `json:"twoFactorEnabled"`
}

func (r *PatientSignupRequest) GetPassword() string { return r.Password }

func (r *PatientSignupRequest) ToProfile() (Profile, error) {
	p := &Patient{
		FirstName:        r.FirstName,
		LastName:         r.LastName,
		Email:            r.Email,
		Phone:            optional(r.Phone),
		EmergencyContact: optional(r.EmergencyContact),
		EmergencyPhone:   optional(r.EmergencyPhone),
		TwoFactorEnabled: r.TwoFactorEnabled,
	}
	if r.DateOfBirth != "" {
		dob, err := time.Parse(DateLayout, r.DateOfBirth)
		if err != nil {
			return nil, fmt.Errorf("invalid date of birth: %w", err)
		}
		p.DateOfBirth = &dob
	}
	return p, nil
}
