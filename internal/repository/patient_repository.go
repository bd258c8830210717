package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/clinic-api/internal/models"
	"github.com/noah-isme/clinic-api/pkg/database"
	appErrors "github.com/noah-isme/clinic-api/pkg/errors"
)

var patientWritableColumns = map[string]struct{}{
	"name": {}, "image": {}, "phone": {}, "address": {}, "gender": {}, "dob": {}, "password_hash": {},
}

const patientColumns = `id, name, email, password_hash, image, phone, address, gender, dob, created_at, updated_at`

// PatientRepository provides database access for patients.
type PatientRepository struct {
	db *sqlx.DB
}

// NewPatientRepository creates a PatientRepository.
func NewPatientRepository(db *sqlx.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

// FindByID returns a patient or sql.ErrNoRows.
func (r *PatientRepository) FindByID(ctx context.Context, id string) (*models.Patient, error) {
	return r.findOne(ctx, "id", id)
}

// FindByEmail returns a patient or sql.ErrNoRows.
func (r *PatientRepository) FindByEmail(ctx context.Context, email string) (*models.Patient, error) {
	return r.findOne(ctx, "email", email)
}

func (r *PatientRepository) findOne(ctx context.Context, column, value string) (*models.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE ` + column + ` = $1 LIMIT 1`
	var patient models.Patient
	if err := r.db.GetContext(ctx, &patient, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find patient by %s: %w", column, err)
	}
	return &patient, nil
}

// FindByIDs loads the given patients keyed by id. Missing ids are absent
// from the result.
func (r *PatientRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*models.Patient, error) {
	out := make(map[string]*models.Patient, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = ANY($1)`
	var patients []models.Patient
	if err := r.db.SelectContext(ctx, &patients, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find patients: %w", err)
	}
	for i := range patients {
		out[patients[i].ID] = &patients[i]
	}
	return out, nil
}

// List returns every patient, newest first.
func (r *PatientRepository) List(ctx context.Context) ([]models.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients ORDER BY created_at DESC`
	var patients []models.Patient
	if err := r.db.SelectContext(ctx, &patients, query); err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	return patients, nil
}

// Count returns the number of patients.
func (r *PatientRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM patients`); err != nil {
		return 0, fmt.Errorf("count patients: %w", err)
	}
	return total, nil
}

// Create inserts a patient.
func (r *PatientRepository) Create(ctx context.Context, p *models.Patient) error {
	query := `INSERT INTO patients (` + patientColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err := r.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Email, p.PasswordHash, p.Image, p.Phone, p.Address, p.Gender, p.DOB, p.CreatedAt, p.UpdatedAt,
	); err != nil {
		if appErrors.IsUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("create patient: %w", err)
	}
	return nil
}

// UpdateFields writes only the given columns plus updated_at.
func (r *PatientRepository) UpdateFields(ctx context.Context, id string, changes map[string]interface{}, updatedAt time.Time) error {
	return updateColumns(ctx, r.db, "patients", patientWritableColumns, id, changes, updatedAt)
}

// Delete removes the patient, their appointments and the slots those
// appointments held. Reports are kept.
func (r *PatientRepository) Delete(ctx context.Context, id string) error {
	return database.RunInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const releaseSlots = `DELETE FROM doctor_booked_slots WHERE appointment_id IN (SELECT id FROM appointments WHERE patient_id = $1)`
		if _, err := tx.ExecContext(ctx, releaseSlots, id); err != nil {
			return fmt.Errorf("release patient slots: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM appointments WHERE patient_id = $1`, id); err != nil {
			return fmt.Errorf("delete patient appointments: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete patient: %w", err)
		}
		return requireAffected(res, "delete patient")
	})
}
