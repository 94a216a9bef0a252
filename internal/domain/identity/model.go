// Package identity manages CareSync user accounts. A user carries exactly
// one role-specific profile; code reading profile fields matches on Role
// rather than probing optional fields.
package identity

import (
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/caresync/caresync/internal/platform/auth"
)

// User maps to the app_user table.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	Name         string    `db:"name" json:"name"`
	Phone        string    `db:"phone" json:"phone,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`

	// Exactly one of the following is non-nil, matching Role.
	Patient  *PatientProfile  `db:"-" json:"patient,omitempty"`
	Doctor   *DoctorProfile   `db:"-" json:"doctor,omitempty"`
	Pharmacy *PharmacyProfile `db:"-" json:"pharmacy,omitempty"`
	Hospital *HospitalProfile `db:"-" json:"hospital,omitempty"`
}

// PatientProfile holds patient-specific fields.
type PatientProfile struct {
	DateOfBirth string `json:"date_of_birth,omitempty"`
	Gender      string `json:"gender,omitempty"`
	BloodGroup  string `json:"blood_group,omitempty"`
	Address     string `json:"address,omitempty"`
}

// DoctorProfile holds doctor-specific fields.
type DoctorProfile struct {
	Specialty       string `json:"specialty"`
	Qualification   string `json:"qualification,omitempty"`
	ExperienceYears int    `json:"experience_years,omitempty"`
	ClinicAddress   string `json:"clinic_address,omitempty"`
}

// PharmacyProfile holds pharmacy-specific fields.
type PharmacyProfile struct {
	StoreName     string `json:"store_name"`
	LicenseNumber string `json:"license_number,omitempty"`
	Address       string `json:"address,omitempty"`
}

// HospitalProfile holds hospital-specific fields.
type HospitalProfile struct {
	HospitalName string `json:"hospital_name"`
	Address      string `json:"address,omitempty"`
	Departments  string `json:"departments,omitempty"`
}

var validRoles = map[string]bool{
	auth.RolePatient:  true,
	auth.RoleDoctor:   true,
	auth.RolePharmacy: true,
	auth.RoleHospital: true,
}

// Validate checks that the user is internally consistent: a known role,
// a parseable email, and exactly the profile the role demands.
func (u *User) Validate() error {
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return fmt.Errorf("invalid email address: %q", u.Email)
	}
	if u.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !validRoles[u.Role] {
		return fmt.Errorf("invalid role: %q", u.Role)
	}

	count := 0
	if u.Patient != nil {
		count++
	}
	if u.Doctor != nil {
		count++
	}
	if u.Pharmacy != nil {
		count++
	}
	if u.Hospital != nil {
		count++
	}
	if count != 1 {
		return fmt.Errorf("exactly one role profile is required, got %d", count)
	}

	switch u.Role {
	case auth.RolePatient:
		if u.Patient == nil {
			return fmt.Errorf("role %q requires a patient profile", u.Role)
		}
	case auth.RoleDoctor:
		if u.Doctor == nil {
			return fmt.Errorf("role %q requires a doctor profile", u.Role)
		}
		if u.Doctor.Specialty == "" {
			return fmt.Errorf("doctor specialty is required")
		}
	case auth.RolePharmacy:
		if u.Pharmacy == nil {
			return fmt.Errorf("role %q requires a pharmacy profile", u.Role)
		}
		if u.Pharmacy.StoreName == "" {
			return fmt.Errorf("pharmacy store_name is required")
		}
	case auth.RoleHospital:
		if u.Hospital == nil {
			return fmt.Errorf("role %q requires a hospital profile", u.Role)
		}
		if u.Hospital.HospitalName == "" {
			return fmt.Errorf("hospital hospital_name is required")
		}
	}
	return nil
}

// Profile returns the active role profile as an opaque value for storage.
func (u *User) Profile() interface{} {
	switch u.Role {
	case auth.RolePatient:
		return u.Patient
	case auth.RoleDoctor:
		return u.Doctor
	case auth.RolePharmacy:
		return u.Pharmacy
	case auth.RoleHospital:
		return u.Hospital
	}
	return nil
}

// DisplayName returns the public name for the user's role: the store or
// hospital name for organisations, the personal name otherwise.
func (u *User) DisplayName() string {
	switch u.Role {
	case auth.RolePharmacy:
		if u.Pharmacy != nil && u.Pharmacy.StoreName != "" {
			return u.Pharmacy.StoreName
		}
	case auth.RoleHospital:
		if u.Hospital != nil && u.Hospital.HospitalName != "" {
			return u.Hospital.HospitalName
		}
	}
	return u.Name
}
