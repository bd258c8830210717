package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/clinic-api/internal/models"
	"github.com/noah-isme/clinic-api/pkg/database"
	appErrors "github.com/noah-isme/clinic-api/pkg/errors"
)

// ErrEmailTaken is returned when an account email is already registered.
var ErrEmailTaken = errors.New("email already registered")

var doctorWritableColumns = map[string]struct{}{
	"name": {}, "image": {}, "speciality": {}, "degree": {}, "experience": {}, "about": {},
	"fees": {}, "phone": {}, "address": {}, "available": {}, "password_hash": {},
}

const doctorColumns = `id, name, email, password_hash, image, speciality, degree, experience, about, fees, phone, address, available, created_at, updated_at`

// DoctorRepository provides database access for doctors.
type DoctorRepository struct {
	db *sqlx.DB
}

// NewDoctorRepository creates a DoctorRepository.
func NewDoctorRepository(db *sqlx.DB) *DoctorRepository {
	return &DoctorRepository{db: db}
}

// FindByID returns a doctor or sql.ErrNoRows.
func (r *DoctorRepository) FindByID(ctx context.Context, id string) (*models.Doctor, error) {
	return r.findOne(ctx, "id", id)
}

// FindByEmail returns a doctor or sql.ErrNoRows.
func (r *DoctorRepository) FindByEmail(ctx context.Context, email string) (*models.Doctor, error) {
	return r.findOne(ctx, "email", email)
}

func (r *DoctorRepository) findOne(ctx context.Context, column, value string) (*models.Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors WHERE ` + column + ` = $1 LIMIT 1`
	var doctor models.Doctor
	if err := r.db.GetContext(ctx, &doctor, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find doctor by %s: %w", column, err)
	}
	return &doctor, nil
}

// FindByIDs loads the given doctors keyed by id. Missing ids are absent
// from the result.
func (r *DoctorRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*models.Doctor, error) {
	out := make(map[string]*models.Doctor, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query := `SELECT ` + doctorColumns + ` FROM doctors WHERE id = ANY($1)`
	var doctors []models.Doctor
	if err := r.db.SelectContext(ctx, &doctors, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find doctors: %w", err)
	}
	for i := range doctors {
		out[doctors[i].ID] = &doctors[i]
	}
	return out, nil
}

// List returns every doctor ordered by name.
func (r *DoctorRepository) List(ctx context.Context) ([]models.Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors ORDER BY name ASC`
	var doctors []models.Doctor
	if err := r.db.SelectContext(ctx, &doctors, query); err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return doctors, nil
}

// ListIDs returns every doctor id.
func (r *DoctorRepository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM doctors ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list doctor ids: %w", err)
	}
	return ids, nil
}

// Count returns the number of doctors.
func (r *DoctorRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM doctors`); err != nil {
		return 0, fmt.Errorf("count doctors: %w", err)
	}
	return total, nil
}

// Create inserts a doctor.
func (r *DoctorRepository) Create(ctx context.Context, d *models.Doctor) error {
	query := `INSERT INTO doctors (` + doctorColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	if _, err := r.db.ExecContext(ctx, query,
		d.ID, d.Name, d.Email, d.PasswordHash, d.Image, d.Speciality, d.Degree, d.Experience,
		d.About, d.Fees, d.Phone, d.Address, d.Available, d.CreatedAt, d.UpdatedAt,
	); err != nil {
		if appErrors.IsUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("create doctor: %w", err)
	}
	return nil
}

// UpdateFields writes only the given columns plus updated_at.
func (r *DoctorRepository) UpdateFields(ctx context.Context, id string, changes map[string]interface{}, updatedAt time.Time) error {
	return updateColumns(ctx, r.db, "doctors", doctorWritableColumns, id, changes, updatedAt)
}

// ToggleAvailability flips the doctor's availability and returns the new value.
func (r *DoctorRepository) ToggleAvailability(ctx context.Context, id string, at time.Time) (bool, error) {
	const query = `UPDATE doctors SET available = NOT available, updated_at = $2 WHERE id = $1 RETURNING available`
	var available bool
	if err := r.db.GetContext(ctx, &available, query, id, at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, err
		}
		return false, fmt.Errorf("toggle availability: %w", err)
	}
	return available, nil
}

// Delete removes the doctor, their appointments and their slot registry.
// Reports are kept.
func (r *DoctorRepository) Delete(ctx context.Context, id string) error {
	return database.RunInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM doctor_booked_slots WHERE doctor_id = $1`, id); err != nil {
			return fmt.Errorf("delete doctor slots: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM appointments WHERE doctor_id = $1`, id); err != nil {
			return fmt.Errorf("delete doctor appointments: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM doctors WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete doctor: %w", err)
		}
		return requireAffected(res, "delete doctor")
	})
}

// updateColumns issues a single UPDATE touching only the named columns, so
// columns written elsewhere in the meantime keep their values.
func updateColumns(ctx context.Context, db *sqlx.DB, table string, writable map[string]struct{}, id string, changes map[string]interface{}, updatedAt time.Time) error {
	columns := make([]string, 0, len(changes))
	for column := range changes {
		if _, ok := writable[column]; !ok {
			return fmt.Errorf("update %s: column %q is not writable", table, column)
		}
		columns = append(columns, column)
	}
	sort.Strings(columns)

	args := make([]interface{}, 0, len(columns)+2)
	sets := make([]string, 0, len(columns)+1)
	args = append(args, id)
	for _, column := range columns {
		args = append(args, changes[column])
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	args = append(args, updatedAt)
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	query := `UPDATE ` + table + ` SET ` + strings.Join(sets, ", ") + ` WHERE id = $1`
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	return requireAffected(res, "update "+table)
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
