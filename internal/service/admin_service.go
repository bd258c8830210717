package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/clinic-api/internal/dto"
	"github.com/noah-isme/clinic-api/internal/models"
	"github.com/noah-isme/clinic-api/internal/repository"
	appErrors "github.com/noah-isme/clinic-api/pkg/errors"
)

type adminDoctorStore interface {
	List(ctx context.Context) ([]models.Doctor, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, d *models.Doctor) error
	ToggleAvailability(ctx context.Context, id string, at time.Time) (bool, error)
	Delete(ctx context.Context, id string) error
}

type adminPatientStore interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]*models.Patient, error)
	List(ctx context.Context) ([]models.Patient, error)
	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, id string) error
}

type adminAppointmentStore interface {
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error)
	Count(ctx context.Context) (int, error)
	BookedSlots(ctx context.Context, doctorID string) (models.SlotRegistry, error)
}

// AdminService backs the admin panel and the public doctor directory.
type AdminService struct {
	doctors      adminDoctorStore
	patients     adminPatientStore
	appointments adminAppointmentStore
	uploader     BlobUploader
	maxBytes     int64
	audit        auditLogger
	validator    *validator.Validate
	logger       *zap.Logger
	cache        *CacheService
	now          func() time.Time
}

// NewAdminService constructs the service.
func NewAdminService(doctors adminDoctorStore, patients adminPatientStore, appointments adminAppointmentStore, uploader BlobUploader, maxBytes int64, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *AdminService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	return &AdminService{
		doctors:      doctors,
		patients:     patients,
		appointments: appointments,
		uploader:     uploader,
		maxBytes:     maxBytes,
		audit:        audit,
		validator:    validate,
		logger:       logger,
		now:          time.Now,
	}
}

// WithCache enables read-through caching of the public doctor directory.
func (s *AdminService) WithCache(cache *CacheService) *AdminService {
	s.cache = cache
	return s
}

// Dashboard returns clinic wide counts and the latest appointments.
func (s *AdminService) Dashboard(ctx context.Context, actor *models.Principal) (*dto.AdminDashboard, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	doctors, err := s.doctors.Count(ctx)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to count doctors")
	}
	patients, err := s.patients.Count(ctx)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to count patients")
	}
	appointments, err := s.appointments.Count(ctx)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to count appointments")
	}
	latestItems, err := s.appointments.List(ctx, models.AppointmentFilter{Limit: latestAppointments})
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list appointments")
	}
	refreshed, err := refreshAndFilter(ctx, s.patients, latestItems, "")
	if err != nil {
		return nil, err
	}
	return &dto.AdminDashboard{
		Doctors:            doctors,
		Patients:           patients,
		Appointments:       appointments,
		LatestAppointments: refreshed,
	}, nil
}

// AddDoctor onboards a doctor account.
func (s *AdminService) AddDoctor(ctx context.Context, actor *models.Principal, req dto.AddDoctorRequest, meta models.RequestMeta) (*models.Doctor, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid doctor payload")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	now := s.now().UTC()
	doctor := &models.Doctor{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Speciality:   strings.TrimSpace(req.Speciality),
		Degree:       strings.TrimSpace(req.Degree),
		Experience:   strings.TrimSpace(req.Experience),
		About:        strings.TrimSpace(req.About),
		Fees:         req.Fees,
		Address:      req.Address,
		Available:    true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.Image != nil {
		url, err := uploadImage(ctx, s.uploader, s.maxBytes, "doctor-"+doctor.ID, req.Image, now)
		if err != nil {
			return nil, err
		}
		doctor.Image = url
	}

	if err := s.doctors.Create(ctx, doctor); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		}
		return nil, appErrors.Storage(err, "failed to create doctor")
	}
	s.cache.Invalidate(ctx, publicDoctorsCacheKey)
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionDoctorCreate, "doctor", doctor.ID, meta, map[string]interface{}{
		"speciality": doctor.Speciality,
	})
	return doctor, nil
}

// ChangeAvailability flips whether a doctor accepts bookings.
func (s *AdminService) ChangeAvailability(ctx context.Context, actor *models.Principal, req dto.ChangeAvailabilityRequest) (bool, error) {
	if err := requireAdmin(actor); err != nil {
		return false, err
	}
	if err := s.validator.Struct(req); err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "doctorId is required")
	}
	available, err := s.doctors.ToggleAvailability(ctx, req.DoctorID, s.now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, appErrors.Clone(appErrors.ErrNotFound, "doctor not found")
		}
		return false, appErrors.Storage(err, "failed to change availability")
	}
	s.cache.Invalidate(ctx, publicDoctorsCacheKey)
	return available, nil
}

// ListUsers returns all patients.
func (s *AdminService) ListUsers(ctx context.Context, actor *models.Principal) ([]models.Patient, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	items, err := s.patients.List(ctx)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list patients")
	}
	return items, nil
}

// ListDoctors returns all doctors for the admin panel.
func (s *AdminService) ListDoctors(ctx context.Context, actor *models.Principal) ([]models.Doctor, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	items, err := s.doctors.List(ctx)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list doctors")
	}
	return items, nil
}

// PublicDoctors lists doctor cards with their booked slots and without
// credentials.
func (s *AdminService) PublicDoctors(ctx context.Context) ([]dto.PublicDoctor, error) {
	var cached []dto.PublicDoctor
	if s.cache.Get(ctx, publicDoctorsCacheKey, &cached) {
		return cached, nil
	}

	items, err := s.doctors.List(ctx)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list doctors")
	}
	out := make([]dto.PublicDoctor, 0, len(items))
	for _, d := range items {
		slots, err := s.appointments.BookedSlots(ctx, d.ID)
		if err != nil {
			return nil, appErrors.Storage(err, "failed to load booked slots")
		}
		out = append(out, dto.PublicDoctor{
			ID:          d.ID,
			Name:        d.Name,
			Image:       d.Image,
			Speciality:  d.Speciality,
			Degree:      d.Degree,
			Experience:  d.Experience,
			About:       d.About,
			Fees:        d.Fees,
			Address:     d.Address,
			Available:   d.Available,
			SlotsBooked: slots,
		})
	}
	s.cache.Set(ctx, publicDoctorsCacheKey, out)
	return out, nil
}

// DeleteUser removes a patient with their appointments. Their reports stay.
func (s *AdminService) DeleteUser(ctx context.Context, actor *models.Principal, patientID string, meta models.RequestMeta) error {
	if err := Authorize(actor, ActionDeleteAccount, Subject{PatientID: patientID}); err != nil {
		return err
	}
	if err := s.patients.Delete(ctx, strings.TrimSpace(patientID)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "patient not found")
		}
		return appErrors.Storage(err, "failed to delete patient")
	}
	s.cache.Invalidate(ctx, publicDoctorsCacheKey)
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionPatientDelete, "patient", patientID, meta, nil)
	return nil
}

// DeleteDoctor removes a doctor with their appointments and slot registry.
// Their reports stay.
func (s *AdminService) DeleteDoctor(ctx context.Context, actor *models.Principal, doctorID string, meta models.RequestMeta) error {
	if err := Authorize(actor, ActionDeleteAccount, Subject{DoctorID: doctorID}); err != nil {
		return err
	}
	if err := s.doctors.Delete(ctx, strings.TrimSpace(doctorID)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "doctor not found")
		}
		return appErrors.Storage(err, "failed to delete doctor")
	}
	s.cache.Invalidate(ctx, publicDoctorsCacheKey)
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionDoctorDelete, "doctor", doctorID, meta, nil)
	return nil
}

func requireAdmin(actor *models.Principal) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if !actor.Is(models.RoleAdmin) {
		return appErrors.ErrForbidden
	}
	return nil
}
