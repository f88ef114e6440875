package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoctorSignupRequest_ToProfile(t *testing.T) {
	years := 12
	req := &DoctorSignupRequest{
		Name: "Dr. Rao", Email: "rao@example.com", Password: "password123",
		Specialization: "Cardiology", LicenseNumber: "LIC-1", HospitalName: "City",
		YearsExperience: &years,
	}
	p, err := req.ToProfile()
	require.NoError(t, err)

	cols, vals := p.InsertFields("hash")
	require.Len(t, vals, len(cols))
	assert.Equal(t, "hash", vals[indexOf(cols, "password")])
	assert.Nil(t, vals[indexOf(cols, "phone")].(*string))
	assert.Equal(t, "", p.GetPhone())
}

func TestPatientSignupRequest_ToProfile(t *testing.T) {
	req := &PatientSignupRequest{
		FirstName: "Pat", LastName: "Lee", Email: "pat@example.com", Password: "password123",
		Phone: "+15550001111", DateOfBirth: "1990-04-02",
	}
	p, err := req.ToProfile()
	require.NoError(t, err)

	patient := p.(*Patient)
	assert.Equal(t, time.Date(1990, 4, 2, 0, 0, 0, 0, time.UTC), *patient.DateOfBirth)
	assert.Equal(t, "+15550001111", p.GetPhone())

	cols, vals := p.InsertFields("hash")
	require.Len(t, vals, len(cols))
	assert.Equal(t, "hash", vals[indexOf(cols, "password")])
}

func TestPatientSignupRequest_BadDate(t *testing.T) {
	_, err := (&PatientSignupRequest{DateOfBirth: "02/04/1990"}).ToProfile()
	assert.Error(t, err)
}

func TestProfileColumnsMatchStructTags(t *testing.T) {
	for _, ut := range []UserType{DoctorType, PatientType} {
		b, err := json.Marshal(ut.NewProfile())
		require.NoError(t, err)
		var fields map[string]interface{}
		require.NoError(t, json.Unmarshal(b, &fields))
		for _, col := range ut.ProfileColumns {
			assert.Contains(t, fields, col, "%s.%s", ut.Table, col)
		}
		assert.NotContains(t, fields, "password")
		assert.NotContains(t, fields, "otp")
	}
}

func TestUser_HidesPasswordHash(t *testing.T) {
	b, err := json.Marshal(User{Name: "A", Email: "a@example.com", PasswordHash: "secret", Role: RoleDoctor})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "secret")
}

func TestCredential_HasPendingOTP(t *testing.T) {
	code := "123456"
	exp := time.Now()
	assert.False(t, (&Credential{}).HasPendingOTP())
	assert.False(t, (&Credential{OTP: &code}).HasPendingOTP())
	assert.True(t, (&Credential{OTP: &code, OTPExpiry: &exp}).HasPendingOTP())
}

func indexOf(cols []string, name string) int {
	for i, c := range cols {
		if c == name {
			return i
		}
	}
	return -1
}
