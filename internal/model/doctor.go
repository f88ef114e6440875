package model

type Doctor struct {
	Base
	Name            string  `db:"name" json:"name"`
	Email           string  `db:"email" json:"email"`
	Specialization  *string `db:"specialization" json:"specialization"`
	LicenseNumber   *string `db:"license_number" json:"license_number"`
	HospitalName    *string `db:"hospital_name" json:"hospital_name"`
	Phone           *string `db:"phone" json:"phone"`
	YearsExperience *int    `db:"years_experience" json:"years_experience"`
}

func (d *Doctor) GetID() int64     { return d.ID }
func (d *Doctor) GetEmail() string { return d.Email }
func (d *Doctor) GetPhone() string { return deref(d.Phone) }

func (d *Doctor) InsertFields(passwordHash string) ([]string, []interface{}) {
	cols := []string{
		"name", "email", "password", "specialization", "license_number",
		"hospital_name", "phone", "years_experience",
	}
	vals := []interface{}{
		d.Name, d.Email, passwordHash, d.Specialization, d.LicenseNumber,
		d.HospitalName, d.Phone, d.YearsExperience,
	}
	return cols, vals
}

type DoctorSignupRequest struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required"`
	Specialization  string `json:"specialization" binding:"required"`
	LicenseNumber   string `json:"license_number" binding:"required"`
	HospitalName    string `json:"hospital_name" binding:"required"`
	Phone           string `json:"phone" binding:"omitempty,phone"`
	YearsExperience *int   `json:"years_experience" binding:"omitempty,min=0"`
}

func (r *DoctorSignupRequest) GetPassword() string { return r.Password }

func (r *DoctorSignupRequest) ToProfile() (Profile, error) {
	return &Doctor{
		Name:            r.Name,
		Email:           r.Email,
		Specialization:  optional(r.Specialization),
		LicenseNumber:   optional(r.LicenseNumber),
		HospitalName:    optional(r.HospitalName),
		Phone:           optional(r.Phone),
		YearsExperience: r.YearsExperience,
	}, nil
}
