package dto

import "github.com/noah-isme/clinic-api/internal/models"

// AddDoctorRequest is the admin payload for onboarding a doctor.
type AddDoctorRequest struct {
	Name       string         `json:"name" form:"name" validate:"required,max=120"`
	Email      string         `json:"email" form:"email" validate:"required,email"`
	Password   string         `json:"password" form:"password" validate:"required,min=8,max=72"`
	Speciality string         `json:"speciality" form:"speciality" validate:"required"`
	Degree     string         `json:"degree" form:"degree" validate:"required"`
	Experience string         `json:"experience" form:"experience" validate:"required"`
	About      string         `json:"about" form:"about" validate:"required"`
	Fees       float64        `json:"fees" form:"fees" validate:"gt=0"`
	Address    models.Address `json:"address" form:"-"`
	Image      *UploadFile    `json:"-" form:"-"`
}

// ChangeAvailabilityRequest toggles a doctor's availability.
type ChangeAvailabilityRequest struct {
	DoctorID string `json:"doctorId" validate:"required"`
}

// PublicDoctor is the doctor card shown to anonymous visitors.
type PublicDoctor struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Image       string              `json:"image"`
	Speciality  string              `json:"speciality"`
	Degree      string              `json:"degree"`
	Experience  string              `json:"experience"`
	About       string              `json:"about"`
	Fees        float64             `json:"fees"`
	Address     models.Address      `json:"address"`
	Available   bool                `json:"available"`
	SlotsBooked models.SlotRegistry `json:"slotsBooked"`
}
