package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/clinic-api/internal/models"
	"github.com/noah-isme/clinic-api/pkg/database"
	appErrors "github.com/noah-isme/clinic-api/pkg/errors"
)

// ErrSlotTaken is returned by Book when the doctor slot is already held.
var ErrSlotTaken = errors.New("slot already booked")

const appointmentColumns = `id, patient_id, doctor_id, slot_date, slot_time, amount, payment, cancelled, is_completed, patient_snapshot, doctor_snapshot, booked_at, updated_at`

// CancelOutcome describes what a cancellation changed.
type CancelOutcome struct {
	Appointment      models.Appointment
	AlreadyCancelled bool
	SlotsReleased    int64
}

// AppointmentRepository persists appointments and the doctor slot registry.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository constructs the repository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// FindByID returns an appointment or sql.ErrNoRows.
func (r *AppointmentRepository) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	var appt models.Appointment
	if err := r.db.GetContext(ctx, &appt, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find appointment: %w", err)
	}
	return &appt, nil
}

// Book claims the doctor slot and inserts the appointment atomically.
func (r *AppointmentRepository) Book(ctx context.Context, appt *models.Appointment) error {
	return database.RunInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const claim = `INSERT INTO doctor_booked_slots (doctor_id, slot_date, slot_time, appointment_id, created_at) VALUES ($1, $2, $3, $4, $5)`
		if _, err := tx.ExecContext(ctx, claim, appt.DoctorID, appt.SlotDate, appt.SlotTime, appt.ID, appt.BookedAt); err != nil {
			if appErrors.IsUniqueViolation(err) {
				return ErrSlotTaken
			}
			return fmt.Errorf("claim slot: %w", err)
		}
		query := `INSERT INTO appointments (` + appointmentColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
		if _, err := tx.ExecContext(ctx, query,
			appt.ID, appt.PatientID, appt.DoctorID, appt.SlotDate, appt.SlotTime, appt.Amount,
			appt.Payment, appt.Cancelled, appt.IsCompleted, appt.PatientSnapshot, appt.DoctorSnapshot,
			appt.BookedAt, appt.UpdatedAt,
		); err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}
		return nil
	})
}

// Cancel sets the cancelled flag and releases the slot held by this
// appointment in one transaction. Releasing is keyed on the appointment id,
// so a slot re-booked by another appointment is never touched and repeated
// calls release nothing.
func (r *AppointmentRepository) Cancel(ctx context.Context, id string, at time.Time) (*CancelOutcome, error) {
	var out CancelOutcome
	err := database.RunInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		lock := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1 FOR UPDATE`
		if err := tx.GetContext(ctx, &out.Appointment, lock, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sql.ErrNoRows
			}
			return fmt.Errorf("lock appointment: %w", err)
		}
		out.AlreadyCancelled = out.Appointment.Cancelled

		if !out.AlreadyCancelled {
			const flag = `UPDATE appointments SET cancelled = TRUE, updated_at = $2 WHERE id = $1`
			if _, err := tx.ExecContext(ctx, flag, id, at); err != nil {
				return fmt.Errorf("flag appointment cancelled: %w", err)
			}
			out.Appointment.Cancelled = true
			out.Appointment.UpdatedAt = at
		}

		const release = `DELETE FROM doctor_booked_slots WHERE doctor_id = $1 AND slot_date = $2 AND slot_time = $3 AND appointment_id = $4`
		res, err := tx.ExecContext(ctx, release, out.Appointment.DoctorID, out.Appointment.SlotDate, out.Appointment.SlotTime, id)
		if err != nil {
			return fmt.Errorf("release slot: %w", err)
		}
		out.SlotsReleased, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("release slot rows: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Complete marks a non-cancelled appointment as completed. It reports
// whether a row changed.
func (r *AppointmentRepository) Complete(ctx context.Context, id string, at time.Time) (bool, error) {
	const query = `UPDATE appointments SET is_completed = TRUE, updated_at = $2 WHERE id = $1 AND cancelled = FALSE`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("complete appointment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete appointment rows: %w", err)
	}
	return n > 0, nil
}

// List returns appointments newest first, optionally scoped to a patient or doctor.
func (r *AppointmentRepository) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error) {
	var conditions []string
	var args []interface{}
	if filter.PatientID != "" {
		args = append(args, filter.PatientID)
		conditions = append(conditions, fmt.Sprintf("patient_id = $%d", len(args)))
	}
	if filter.DoctorID != "" {
		args = append(args, filter.DoctorID)
		conditions = append(conditions, fmt.Sprintf("doctor_id = $%d", len(args)))
	}

	query := strings.Builder{}
	query.WriteString(`SELECT ` + appointmentColumns + ` FROM appointments`)
	if len(conditions) > 0 {
		query.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	query.WriteString(" ORDER BY booked_at DESC, id ASC")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&query, " LIMIT $%d", len(args))
	}

	var items []models.Appointment
	if err := r.db.SelectContext(ctx, &items, query.String(), args...); err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return items, nil
}

// Count returns the number of appointments.
func (r *AppointmentRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM appointments`); err != nil {
		return 0, fmt.Errorf("count appointments: %w", err)
	}
	return total, nil
}

// BookedSlots assembles the doctor's date -> times registry.
func (r *AppointmentRepository) BookedSlots(ctx context.Context, doctorID string) (models.SlotRegistry, error) {
	const query = `SELECT doctor_id, slot_date, slot_time, appointment_id, created_at FROM doctor_booked_slots WHERE doctor_id = $1 ORDER BY slot_date, slot_time`
	var rows []models.BookedSlot
	if err := r.db.SelectContext(ctx, &rows, query, doctorID); err != nil {
		return nil, fmt.Errorf("list booked slots: %w", err)
	}
	registry := models.SlotRegistry{}
	for _, row := range rows {
		registry[row.SlotDate] = append(registry[row.SlotDate], row.SlotTime)
	}
	return registry, nil
}

// ReconcileDoctorSlots removes registry rows not backed by a non-cancelled
// appointment and restores rows missing for live appointments.
func (r *AppointmentRepository) ReconcileDoctorSlots(ctx context.Context, doctorID string, at time.Time) (removed, restored int64, err error) {
	err = database.RunInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const prune = `DELETE FROM doctor_booked_slots s
WHERE s.doctor_id = $1
	AND NOT EXISTS (
		SELECT 1 FROM appointments a
		WHERE a.id = s.appointment_id AND a.doctor_id = s.doctor_id
			AND a.slot_date = s.slot_date AND a.slot_time = s.slot_time
			AND a.cancelled = FALSE
	)`
		res, err := tx.ExecContext(ctx, prune, doctorID)
		if err != nil {
			return fmt.Errorf("prune orphan slots: %w", err)
		}
		if removed, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("prune orphan slots rows: %w", err)
		}

		const restore = `INSERT INTO doctor_booked_slots (doctor_id, slot_date, slot_time, appointment_id, created_at)
SELECT a.doctor_id, a.slot_date, a.slot_time, a.id, $2
FROM appointments a
WHERE a.doctor_id = $1 AND a.cancelled = FALSE AND a.is_completed = FALSE
ON CONFLICT (doctor_id, slot_date, slot_time) DO NOTHING`
		res, err = tx.ExecContext(ctx, restore, doctorID, at)
		if err != nil {
			return fmt.Errorf("restore missing slots: %w", err)
		}
		if restored, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("restore missing slots rows: %w", err)
		}
		return nil
	})
	return removed, restored, err
}
