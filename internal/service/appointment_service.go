package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/clinic-api/internal/dto"
	"github.com/noah-isme/clinic-api/internal/models"
	"github.com/noah-isme/clinic-api/internal/repository"
	appErrors "github.com/noah-isme/clinic-api/pkg/errors"
)

const (
	appointmentResource = "appointment"
	latestAppointments  = 5
)

type appointmentStore interface {
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
	Book(ctx context.Context, appt *models.Appointment) error
	Cancel(ctx context.Context, id string, at time.Time) (*repository.CancelOutcome, error)
	Complete(ctx context.Context, id string, at time.Time) (bool, error)
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error)
}

type patientBatchFinder interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]*models.Patient, error)
}

type slotMetrics interface {
	SlotsReleased(n int64)
}

// AppointmentService books appointments and keeps the doctor slot registry
// consistent with appointment state.
type AppointmentService struct {
	appointments appointmentStore
	patients     patientFinder
	doctors      doctorFinder
	audit        auditLogger
	metrics      slotMetrics
	validator    *validator.Validate
	logger       *zap.Logger
	cache        *CacheService
	now          func() time.Time
}

// NewAppointmentService constructs the service.
func NewAppointmentService(appointments appointmentStore, patients patientFinder, doctors doctorFinder, audit auditLogger, metrics slotMetrics, validate *validator.Validate, logger *zap.Logger) *AppointmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AppointmentService{
		appointments: appointments,
		patients:     patients,
		doctors:      doctors,
		audit:        audit,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		now:          time.Now,
	}
}

// WithCache lets booking and cancellation invalidate the cached public
// doctor directory, which embeds booked slots.
func (s *AppointmentService) WithCache(cache *CacheService) *AppointmentService {
	s.cache = cache
	return s
}

// Book reserves a doctor slot for the calling patient.
func (s *AppointmentService) Book(ctx context.Context, actor *models.Principal, req dto.BookAppointmentRequest, meta models.RequestMeta) (*models.Appointment, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.Is(models.RolePatient) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only patients can book appointments")
	}
	req.DoctorID = strings.TrimSpace(req.DoctorID)
	req.SlotTime = strings.TrimSpace(req.SlotTime)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}

	doctor, err := s.doctors.FindByID(ctx, req.DoctorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "doctor not found")
		}
		return nil, appErrors.Storage(err, "failed to load doctor")
	}
	if !doctor.Available {
		return nil, appErrors.Clone(appErrors.ErrValidation, "doctor not available")
	}
	patient, err := s.patients.FindByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "patient not found")
		}
		return nil, appErrors.Storage(err, "failed to load patient")
	}

	now := s.now().UTC()
	appt := &models.Appointment{
		ID:              uuid.NewString(),
		PatientID:       patient.ID,
		DoctorID:        doctor.ID,
		SlotDate:        req.SlotDate,
		SlotTime:        req.SlotTime,
		Amount:          doctor.Fees,
		PatientSnapshot: patient.Snapshot(),
		DoctorSnapshot:  doctor.Snapshot(),
		BookedAt:        now,
		UpdatedAt:       now,
	}
	if err := s.appointments.Book(ctx, appt); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "slot not available")
		}
		return nil, appErrors.Storage(err, "failed to book appointment")
	}
	s.cache.Invalidate(ctx, publicDoctorsCacheKey)

	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionAppointmentBook, appointmentResource, appt.ID, meta, map[string]interface{}{
		"doctorId": appt.DoctorID,
		"slotDate": appt.SlotDate,
		"slotTime": appt.SlotTime,
	})
	return appt, nil
}

// Cancel flags the appointment cancelled and releases its slot. Cancelling
// an already cancelled appointment succeeds and still retries the release.
func (s *AppointmentService) Cancel(ctx context.Context, actor *models.Principal, appointmentID string, meta models.RequestMeta) (*dto.CancelResult, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	appt, err := s.load(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(actor, ActionCancelAppointment, Subject{PatientID: appt.PatientID, DoctorID: appt.DoctorID}); err != nil {
		return nil, err
	}

	outcome, err := s.appointments.Cancel(ctx, appt.ID, s.now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Storage(err, "failed to cancel appointment")
	}

	if outcome.SlotsReleased > 0 {
		if s.metrics != nil {
			s.metrics.SlotsReleased(outcome.SlotsReleased)
		}
		s.cache.Invalidate(ctx, publicDoctorsCacheKey)
	}
	if outcome.AlreadyCancelled && outcome.SlotsReleased > 0 {
		s.logger.Warn("released slot left behind by an earlier cancellation",
			zap.String("appointment_id", appt.ID),
			zap.String("doctor_id", appt.DoctorID),
		)
	}
	if !outcome.AlreadyCancelled {
		recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionAppointmentCancel, appointmentResource, appt.ID, meta, map[string]interface{}{
			"doctorId":      appt.DoctorID,
			"slotDate":      appt.SlotDate,
			"slotTime":      appt.SlotTime,
			"slotsReleased": outcome.SlotsReleased,
		})
	}
	return &dto.CancelResult{
		AppointmentID:    appt.ID,
		AlreadyCancelled: outcome.AlreadyCancelled,
		SlotReleased:     outcome.SlotsReleased > 0,
	}, nil
}

// Complete marks an appointment as attended by its assigned doctor.
func (s *AppointmentService) Complete(ctx context.Context, actor *models.Principal, appointmentID string, meta models.RequestMeta) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	appt, err := s.load(ctx, appointmentID)
	if err != nil {
		return err
	}
	if err := Authorize(actor, ActionCompleteAppointment, Subject{PatientID: appt.PatientID, DoctorID: appt.DoctorID}); err != nil {
		return err
	}
	if appt.Cancelled {
		return appErrors.Clone(appErrors.ErrValidation, "cancelled appointments cannot be completed")
	}
	changed, err := s.appointments.Complete(ctx, appt.ID, s.now().UTC())
	if err != nil {
		return appErrors.Storage(err, "failed to complete appointment")
	}
	if !changed {
		return appErrors.Clone(appErrors.ErrValidation, "cancelled appointments cannot be completed")
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionAppointmentComplete, appointmentResource, appt.ID, meta, nil)
	return nil
}

// ListForPatient returns the calling patient's appointments, newest first.
func (s *AppointmentService) ListForPatient(ctx context.Context, actor *models.Principal) ([]models.Appointment, error) {
	if !actor.Is(models.RolePatient) {
		return nil, appErrors.ErrForbidden
	}
	items, err := s.appointments.List(ctx, models.AppointmentFilter{PatientID: actor.ID})
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list appointments")
	}
	return items, nil
}

// ListForDoctor returns the calling doctor's appointments with refreshed
// patient display data, filtered by search.
func (s *AppointmentService) ListForDoctor(ctx context.Context, actor *models.Principal, query dto.AppointmentQuery) ([]models.Appointment, error) {
	if !actor.Is(models.RoleDoctor) {
		return nil, appErrors.ErrForbidden
	}
	return s.listRefreshed(ctx, models.AppointmentFilter{DoctorID: actor.ID}, query.Search)
}

// ListAll returns every appointment for the admin panel.
func (s *AppointmentService) ListAll(ctx context.Context, actor *models.Principal, query dto.AppointmentQuery) ([]models.Appointment, error) {
	if !actor.Is(models.RoleAdmin) {
		return nil, appErrors.ErrForbidden
	}
	return s.listRefreshed(ctx, models.AppointmentFilter{}, query.Search)
}

// DoctorDashboard summarises the calling doctor's practice.
func (s *AppointmentService) DoctorDashboard(ctx context.Context, actor *models.Principal) (*dto.DoctorDashboard, error) {
	if !actor.Is(models.RoleDoctor) {
		return nil, appErrors.ErrForbidden
	}
	items, err := s.listRefreshed(ctx, models.AppointmentFilter{DoctorID: actor.ID}, "")
	if err != nil {
		return nil, err
	}
	dashboard := &dto.DoctorDashboard{Appointments: len(items), LatestAppointments: latest(items)}
	patients := make(map[string]struct{})
	for _, a := range items {
		if a.IsCompleted || a.Payment {
			dashboard.Earnings += a.Amount
		}
		patients[a.PatientID] = struct{}{}
	}
	dashboard.Patients = len(patients)
	return dashboard, nil
}

func (s *AppointmentService) load(ctx context.Context, id string) (*models.Appointment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "appointmentId is required")
	}
	appt, err := s.appointments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Storage(err, "failed to load appointment")
	}
	return appt, nil
}

func (s *AppointmentService) listRefreshed(ctx context.Context, filter models.AppointmentFilter, search string) ([]models.Appointment, error) {
	items, err := s.appointments.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list appointments")
	}
	return refreshAndFilter(ctx, s.patients, items, search)
}

func refreshAndFilter(ctx context.Context, patients patientBatchFinder, items []models.Appointment, search string) ([]models.Appointment, error) {
	if len(items) == 0 {
		return []models.Appointment{}, nil
	}
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, a := range items {
		if _, ok := seen[a.PatientID]; !ok {
			seen[a.PatientID] = struct{}{}
			ids = append(ids, a.PatientID)
		}
	}
	sort.Strings(ids)
	live, err := patients.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load patients")
	}
	refreshed := RefreshDisplaySnapshot(items, live, true)

	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return refreshed, nil
	}
	filtered := make([]models.Appointment, 0, len(refreshed))
	for _, a := range refreshed {
		if strings.Contains(strings.ToLower(a.PatientSnapshot.Name), needle) ||
			strings.Contains(strings.ToLower(a.PatientSnapshot.Email), needle) {
			filtered = append(filtered, a)
		}
	}
	return filtered, nil
}

func latest(items []models.Appointment) []models.Appointment {
	if len(items) > latestAppointments {
		return items[:latestAppointments]
	}
	return items
}
