package models

import "time"

// Patient is a registered clinic user.
type Patient struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Image        string    `db:"image" json:"image"`
	Phone        string    `db:"phone" json:"phone"`
	Address      Address   `db:"address" json:"address"`
	Gender       string    `db:"gender" json:"gender"`
	DOB          string    `db:"dob" json:"dob"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// Snapshot captures the patient's current display data.
func (p *Patient) Snapshot() PatientSnapshot {
	return PatientSnapshot{Name: p.Name, Email: p.Email, Image: p.Image, DOB: p.DOB}
}

// Doctor is a practitioner accepting appointments.
type Doctor struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Image        string    `db:"image" json:"image"`
	Speciality   string    `db:"speciality" json:"speciality"`
	Degree       string    `db:"degree" json:"degree"`
	Experience   string    `db:"experience" json:"experience"`
	About        string    `db:"about" json:"about"`
	Fees         float64   `db:"fees" json:"fees"`
	Phone        string    `db:"phone" json:"phone"`
	Address      Address   `db:"address" json:"address"`
	Available    bool      `db:"available" json:"available"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// Snapshot captures the doctor's current display data.
func (d *Doctor) Snapshot() DoctorSnapshot {
	return DoctorSnapshot{Name: d.Name, Email: d.Email, Image: d.Image, Speciality: d.Speciality, Fees: d.Fees}
}
