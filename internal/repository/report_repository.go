package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/clinic-api/internal/models"
	"github.com/noah-isme/clinic-api/pkg/database"
)

const reportColumns = `id, patient_id, doctor_id, appointment_id, created_at, updated_at`

// ReportRepository persists reports and their append-only versions.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts the report header together with its first version.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	if len(report.Versions) != 1 {
		return fmt.Errorf("create report: expected exactly one initial version, got %d", len(report.Versions))
	}
	first := report.Versions[0]
	return database.RunInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const insertReport = `INSERT INTO reports (id, patient_id, doctor_id, appointment_id, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`
		if _, err := tx.ExecContext(ctx, insertReport, report.ID, report.PatientID, report.DoctorID, report.AppointmentID, report.CreatedAt, report.UpdatedAt); err != nil {
			return fmt.Errorf("insert report: %w", err)
		}
		const insertVersion = `INSERT INTO report_versions (report_id, version, status, description, updated_at) VALUES ($1, $2, $3, $4, $5)`
		if _, err := tx.ExecContext(ctx, insertVersion, report.ID, first.Version, first.Status, first.Description, first.UpdatedAt); err != nil {
			return fmt.Errorf("insert report version: %w", err)
		}
		return nil
	})
}

// AppendVersion locks the report row, appends the next contiguous version
// and bumps the report's updated_at, all in one transaction. It returns
// sql.ErrNoRows when the report does not exist.
func (r *ReportRepository) AppendVersion(ctx context.Context, reportID string, status models.StatusMap, description string, at time.Time) (*models.Report, error) {
	var report models.Report
	err := database.RunInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		lockQuery := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1 FOR UPDATE`
		if err := tx.GetContext(ctx, &report, lockQuery, reportID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sql.ErrNoRows
			}
			return fmt.Errorf("lock report: %w", err)
		}

		const insertVersion = `INSERT INTO report_versions (report_id, version, status, description, updated_at)
SELECT $1, COALESCE(MAX(version), 0) + 1, $2, $3, $4 FROM report_versions WHERE report_id = $1
RETURNING version`
		var version int
		if err := tx.QueryRowxContext(ctx, insertVersion, reportID, status, description, at).Scan(&version); err != nil {
			return fmt.Errorf("append report version: %w", err)
		}

		const touch = `UPDATE reports SET updated_at = $2 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, touch, reportID, at); err != nil {
			return fmt.Errorf("touch report: %w", err)
		}
		report.UpdatedAt = at

		reports := []models.Report{report}
		if err := loadVersions(ctx, tx, reports); err != nil {
			return err
		}
		report = reports[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// FindByID returns the report with its full version history.
func (r *ReportRepository) FindByID(ctx context.Context, id string) (*models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`
	var report models.Report
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find report: %w", err)
	}
	reports := []models.Report{report}
	if err := loadVersions(ctx, r.db, reports); err != nil {
		return nil, err
	}
	return &reports[0], nil
}

// ListByPatient returns the patient's reports, most recently updated first.
func (r *ReportRepository) ListByPatient(ctx context.Context, patientID string) ([]models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE patient_id = $1 ORDER BY updated_at DESC, id ASC`
	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, query, patientID); err != nil {
		return nil, fmt.Errorf("list patient reports: %w", err)
	}
	if err := loadVersions(ctx, r.db, reports); err != nil {
		return nil, err
	}
	return reports, nil
}

// List returns reports for administration with the total matching count.
func (r *ReportRepository) List(ctx context.Context, filter models.ReportFilter) ([]models.Report, int, error) {
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
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM reports`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}

	query := `SELECT ` + reportColumns + ` FROM reports` + where + ` ORDER BY updated_at DESC, id ASC`
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		args = append(args, filter.PageSize, (page-1)*filter.PageSize)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}
	if err := loadVersions(ctx, r.db, reports); err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

func loadVersions(ctx context.Context, q sqlx.QueryerContext, reports []models.Report) error {
	if len(reports) == 0 {
		return nil
	}
	ids := make([]string, len(reports))
	index := make(map[string]int, len(reports))
	for i := range reports {
		ids[i] = reports[i].ID
		index[reports[i].ID] = i
		reports[i].Versions = []models.ReportVersion{}
	}

	const query = `SELECT report_id, version, status, description, updated_at FROM report_versions WHERE report_id = ANY($1) ORDER BY report_id, version ASC`
	var versions []models.ReportVersion
	if err := sqlx.SelectContext(ctx, q, &versions, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("load report versions: %w", err)
	}
	for _, v := range versions {
		if i, ok := index[v.ReportID]; ok {
			reports[i].Versions = append(reports[i].Versions, v)
		}
	}
	return nil
}
