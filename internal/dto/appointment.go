package dto

import "github.com/noah-isme/clinic-api/internal/models"

// BookAppointmentRequest books a doctor slot for the calling patient.
type BookAppointmentRequest struct {
	DoctorID string `json:"doctorId" validate:"required"`
	SlotDate string `json:"slotDate" validate:"required,datetime=2006-01-02"`
	SlotTime string `json:"slotTime" validate:"required,max=16"`
}

// AppointmentActionRequest identifies the appointment a cancel or complete
// call acts upon.
type AppointmentActionRequest struct {
	AppointmentID string `json:"appointmentId" validate:"required"`
}

// AppointmentQuery filters doctor and admin listings.
type AppointmentQuery struct {
	Search string `form:"search"`
}

// CancelResult reports what a cancellation changed.
type CancelResult struct {
	AppointmentID    string `json:"appointmentId"`
	AlreadyCancelled bool   `json:"alreadyCancelled"`
	SlotReleased     bool   `json:"slotReleased"`
}

// AdminDashboard aggregates clinic wide counts.
type AdminDashboard struct {
	Doctors            int                  `json:"doctors"`
	Patients           int                  `json:"patients"`
	Appointments       int                  `json:"appointments"`
	LatestAppointments []models.Appointment `json:"latestAppointments"`
}

// DoctorDashboard aggregates a doctor's own practice.
type DoctorDashboard struct {
	Earnings           float64              `json:"earnings"`
	Appointments       int                  `json:"appointments"`
	Patients           int                  `json:"patients"`
	LatestAppointments []models.Appointment `json:"latestAppointments"`
}

// ReconcileSummary reports the outcome of a slot registry sweep.
type ReconcileSummary struct {
	Doctors  int   `json:"doctors"`
	Removed  int64 `json:"removed"`
	Restored int64 `json:"restored"`
	Failed   int   `json:"failed"`
	Skipped  bool  `json:"skipped"`
}
