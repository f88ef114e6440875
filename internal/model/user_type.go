package model

// Profile is the client-visible part of a user record. Password hashes and OTP state never live here.
type Profile interface {
	GetID() int64
	GetEmail() string
	GetPhone() string
	// InsertFields returns the columns and values written at signup, hash included.
	InsertFields(passwordHash string) ([]string, []interface{})
}

// SignupRequest is a bound signup body for one user type.
type SignupRequest interface {
	ToProfile() (Profile, error)
	GetPassword() string
}

// UserType describes one family of accounts sharing the OTP login flow.
type UserType struct {
	Name              string
	Label             string
	Table             string
	RecordKey         string
	RegisteredMessage string
	// SignupPaths are the routes that accept a signup body, relative to the type's group.
	SignupPaths       []string
	ProfileColumns    []string
	NewProfile        func() Profile
	NewSignupRequest  func() SignupRequest
}

var DoctorType = UserType{
	Name:              "doctor",
	Label:             "Doctor",
	Table:             "doctors",
	RecordKey:         "doctor",
	RegisteredMessage: "Doctor registered successfully",
	SignupPaths:       []string{"/signup"},
	ProfileColumns: []string{
		"id", "name", "email", "specialization", "license_number",
		"hospital_name", "phone", "years_experience", "created_at",
	},
	NewProfile:       func() Profile { return &Doctor{} },
	NewSignupRequest: func() SignupRequest { return &DoctorSignupRequest{} },
}

var PatientType = UserType{
	Name:              "patient",
	Label:             "Patient",
	Table:             "patients",
	RecordKey:         "patient",
	RegisteredMessage: "Patient registered",
	SignupPaths:       []string{"/signup", "/register"},
	ProfileColumns: []string{
		"id", "first_name", "last_name", "email", "phone", "date_of_birth",
		"emergency_contact", "emergency_phone", "two_factor_enabled", "created_at",
	},
	NewProfile:       func() Profile { return &Patient{} },
	NewSignupRequest: func() SignupRequest { return &PatientSignupRequest{} },
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
