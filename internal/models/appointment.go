package models

import (
	"database/sql/driver"
	"time"
)

// PatientSnapshot is the patient display data captured when an appointment
// is booked. It is a cache and may be stale.
type PatientSnapshot struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image"`
	DOB   string `json:"dob"`
}

// Scan implements sql.Scanner.
func (s *PatientSnapshot) Scan(src interface{}) error { return scanJSON(src, s) }

// Value implements driver.Valuer.
func (s PatientSnapshot) Value() (driver.Value, error) { return jsonValue(s) }

// DoctorSnapshot is the doctor display data captured at booking time.
type DoctorSnapshot struct {
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Image      string  `json:"image"`
	Speciality string  `json:"speciality"`
	Fees       float64 `json:"fees"`
}

// Scan implements sql.Scanner.
func (s *DoctorSnapshot) Scan(src interface{}) error { return scanJSON(src, s) }

// Value implements driver.Valuer.
func (s DoctorSnapshot) Value() (driver.Value, error) { return jsonValue(s) }

// Appointment is a scheduled visit occupying one doctor slot.
type Appointment struct {
	ID              string          `db:"id" json:"id"`
	PatientID       string          `db:"patient_id" json:"patientId"`
	DoctorID        string          `db:"doctor_id" json:"doctorId"`
	SlotDate        string          `db:"slot_date" json:"slotDate"`
	SlotTime        string          `db:"slot_time" json:"slotTime"`
	Amount          float64         `db:"amount" json:"amount"`
	Payment         bool            `db:"payment" json:"payment"`
	Cancelled       bool            `db:"cancelled" json:"cancelled"`
	IsCompleted     bool            `db:"is_completed" json:"isCompleted"`
	PatientSnapshot PatientSnapshot `db:"patient_snapshot" json:"userData"`
	DoctorSnapshot  DoctorSnapshot  `db:"doctor_snapshot" json:"docData"`
	BookedAt        time.Time       `db:"booked_at" json:"bookedAt"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`
}

// Live reports whether the appointment still holds its slot.
func (a *Appointment) Live() bool {
	return !a.Cancelled && !a.IsCompleted
}

// AppointmentFilter narrows appointment listings.
type AppointmentFilter struct {
	PatientID string
	DoctorID  string
	Limit     int
}

// BookedSlot is one row of a doctor's slot registry.
type BookedSlot struct {
	DoctorID      string    `db:"doctor_id"`
	SlotDate      string    `db:"slot_date"`
	SlotTime      string    `db:"slot_time"`
	AppointmentID string    `db:"appointment_id"`
	CreatedAt     time.Time `db:"created_at"`
}

// SlotRegistry maps a date to the set of booked times on that date.
type SlotRegistry map[string][]string

// Has reports whether date/time is booked.
func (r SlotRegistry) Has(date, slotTime string) bool {
	for _, t := range r[date] {
		if t == slotTime {
			return true
		}
	}
	return false
}
