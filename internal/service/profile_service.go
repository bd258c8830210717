package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/clinic-api/internal/dto"
	"github.com/noah-isme/clinic-api/internal/models"
	appErrors "github.com/noah-isme/clinic-api/pkg/errors"
)

const minPasswordLength = 8

// Self-editable fields per role. Anything else in an update is ignored.
var (
	patientProfileFields = map[string]struct{}{"name": {}, "phone": {}, "address": {}, "dob": {}, "gender": {}}
	doctorProfileFields  = map[string]struct{}{
		"name": {}, "speciality": {}, "fees": {}, "available": {}, "phone": {},
		"about": {}, "degree": {}, "experience": {}, "address": {},
	}
	imageExtensions = map[string]struct{}{".png": {}, ".jpg": {}, ".jpeg": {}, ".webp": {}, ".gif": {}}
)

type profilePatientStore interface {
	FindByID(ctx context.Context, id string) (*models.Patient, error)
	UpdateFields(ctx context.Context, id string, changes map[string]interface{}, updatedAt time.Time) error
}

type profileDoctorStore interface {
	FindByID(ctx context.Context, id string) (*models.Doctor, error)
	UpdateFields(ctx context.Context, id string, changes map[string]interface{}, updatedAt time.Time) error
}

// BlobUploader stores an image and returns its public URL.
type BlobUploader interface {
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
}

// ProfileService lets patients and doctors maintain their own accounts.
type ProfileService struct {
	patients profilePatientStore
	doctors  profileDoctorStore
	uploader BlobUploader
	maxBytes int64
	audit    auditLogger
	logger   *zap.Logger
	now      func() time.Time
}

// NewProfileService constructs the service. A nil uploader disables image
// changes.
func NewProfileService(patients profilePatientStore, doctors profileDoctorStore, uploader BlobUploader, maxBytes int64, audit auditLogger, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	return &ProfileService{patients: patients, doctors: doctors, uploader: uploader, maxBytes: maxBytes, audit: audit, logger: logger, now: time.Now}
}

// Get returns the caller's own profile.
func (s *ProfileService) Get(ctx context.Context, actor *models.Principal) (*dto.Profile, error) {
	switch {
	case actor == nil:
		return nil, appErrors.ErrUnauthorized
	case actor.Is(models.RolePatient):
		p, err := s.loadPatient(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		return &dto.Profile{Role: models.RolePatient, Patient: p}, nil
	case actor.Is(models.RoleDoctor):
		d, err := s.loadDoctor(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		return &dto.Profile{Role: models.RoleDoctor, Doctor: d}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "admins have no profile")
	}
}

// Update applies the allow-listed fields, an optional image and an optional
// password change to the caller's own account. Only the columns the request
// touches are written, all in one statement.
func (s *ProfileService) Update(ctx context.Context, actor *models.Principal, req dto.ProfileUpdateRequest, meta models.RequestMeta) (*dto.Profile, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.Is(models.RolePatient) && !actor.Is(models.RoleDoctor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "admins have no profile")
	}

	if req.NewPassword != "" || req.CurrentPassword != "" {
		if err := validatePasswordChange(req); err != nil {
			return nil, err
		}
	}

	var (
		profile     *dto.Profile
		changes     map[string]interface{}
		currentHash string
	)
	switch actor.Role {
	case models.RolePatient:
		p, err := s.loadPatient(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		if changes, err = applyPatientFields(p, req.Fields); err != nil {
			return nil, err
		}
		currentHash = p.PasswordHash
		profile = &dto.Profile{Role: models.RolePatient, Patient: p}
	default:
		d, err := s.loadDoctor(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		if changes, err = applyDoctorFields(d, req.Fields); err != nil {
			return nil, err
		}
		currentHash = d.PasswordHash
		profile = &dto.Profile{Role: models.RoleDoctor, Doctor: d}
	}

	passwordChanged := false
	if req.NewPassword != "" {
		if bcrypt.CompareHashAndPassword([]byte(currentHash), []byte(req.CurrentPassword)) != nil {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "current password is incorrect")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
		}
		changes["password_hash"] = string(hash)
		passwordChanged = true
	}

	if req.Image != nil {
		url, err := s.uploadImage(ctx, actor, req.Image)
		if err != nil {
			return nil, err
		}
		changes["image"] = url
	}

	if len(changes) > 0 {
		if err := s.save(ctx, profile, changes); err != nil {
			return nil, err
		}
	}
	if passwordChanged {
		recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionPasswordChange, string(actor.Role), actor.ID, meta, nil)
	}
	return profile, nil
}

func (s *ProfileService) save(ctx context.Context, profile *dto.Profile, changes map[string]interface{}) error {
	now := s.now().UTC()
	image, _ := changes["image"].(string)
	if profile.Patient != nil {
		if err := s.patients.UpdateFields(ctx, profile.Patient.ID, changes, now); err != nil {
			return mapAccountWriteError(err, "patient")
		}
		if image != "" {
			profile.Patient.Image = image
		}
		profile.Patient.UpdatedAt = now
		return nil
	}
	if err := s.doctors.UpdateFields(ctx, profile.Doctor.ID, changes, now); err != nil {
		return mapAccountWriteError(err, "doctor")
	}
	if image != "" {
		profile.Doctor.Image = image
	}
	profile.Doctor.UpdatedAt = now
	return nil
}

func (s *ProfileService) uploadImage(ctx context.Context, actor *models.Principal, file *dto.UploadFile) (string, error) {
	return uploadImage(ctx, s.uploader, s.maxBytes, fmt.Sprintf("%s-%s", actor.Role, actor.ID), file, s.now())
}

func uploadImage(ctx context.Context, uploader BlobUploader, maxBytes int64, prefix string, file *dto.UploadFile, at time.Time) (string, error) {
	if uploader == nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "image uploads are disabled")
	}
	if file.Reader == nil || file.Size <= 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "image is empty")
	}
	if file.Size > maxBytes {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("image exceeds %d bytes", maxBytes))
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if _, ok := imageExtensions[ext]; !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, "unsupported image type")
	}
	name := fmt.Sprintf("%s-%d%s", prefix, at.UnixNano(), ext)
	url, err := uploader.Upload(ctx, name, io.LimitReader(file.Reader, maxBytes))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "image upload failed")
	}
	return url, nil
}

func (s *ProfileService) loadPatient(ctx context.Context, id string) (*models.Patient, error) {
	p, err := s.patients.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "patient not found")
		}
		return nil, appErrors.Storage(err, "failed to load patient")
	}
	return p, nil
}

func (s *ProfileService) loadDoctor(ctx context.Context, id string) (*models.Doctor, error) {
	d, err := s.doctors.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "doctor not found")
		}
		return nil, appErrors.Storage(err, "failed to load doctor")
	}
	return d, nil
}

func validatePasswordChange(req dto.ProfileUpdateRequest) error {
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return appErrors.Clone(appErrors.ErrValidation, "currentPassword and newPassword are both required")
	}
	if len(req.NewPassword) < minPasswordLength || len(req.NewPassword) > 72 {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("new password must be %d to 72 characters", minPasswordLength))
	}
	return nil
}

func mapAccountWriteError(err error, kind string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, kind+" not found")
	}
	return appErrors.Storage(err, "failed to update "+kind)
}

// applyPatientFields sets the allow-listed fields on p and returns them keyed
// by column.
func applyPatientFields(p *models.Patient, fields map[string]interface{}) (map[string]interface{}, error) {
	changes := make(map[string]interface{}, len(fields))
	for key, raw := range fields {
		if _, ok := patientProfileFields[key]; !ok {
			continue
		}
		var err error
		switch key {
		case "name":
			p.Name, err = requiredString(key, raw)
			changes[key] = p.Name
		case "phone":
			p.Phone, err = optionalString(key, raw)
			changes[key] = p.Phone
		case "dob":
			p.DOB, err = optionalString(key, raw)
			changes[key] = p.DOB
		case "gender":
			p.Gender, err = optionalString(key, raw)
			changes[key] = p.Gender
		case "address":
			p.Address, err = addressValue(raw)
			changes[key] = p.Address
		}
		if err != nil {
			return nil, err
		}
	}
	return changes, nil
}

func applyDoctorFields(d *models.Doctor, fields map[string]interface{}) (map[string]interface{}, error) {
	changes := make(map[string]interface{}, len(fields))
	for key, raw := range fields {
		if _, ok := doctorProfileFields[key]; !ok {
			continue
		}
		var err error
		switch key {
		case "name":
			d.Name, err = requiredString(key, raw)
			changes[key] = d.Name
		case "speciality":
			d.Speciality, err = requiredString(key, raw)
			changes[key] = d.Speciality
		case "degree":
			d.Degree, err = optionalString(key, raw)
			changes[key] = d.Degree
		case "experience":
			d.Experience, err = optionalString(key, raw)
			changes[key] = d.Experience
		case "about":
			d.About, err = optionalString(key, raw)
			changes[key] = d.About
		case "phone":
			d.Phone, err = optionalString(key, raw)
			changes[key] = d.Phone
		case "fees":
			d.Fees, err = feesValue(raw)
			changes[key] = d.Fees
		case "available":
			d.Available, err = boolValue(key, raw)
			changes[key] = d.Available
		case "address":
			d.Address, err = addressValue(raw)
			changes[key] = d.Address
		}
		if err != nil {
			return nil, err
		}
	}
	return changes, nil
}

func fieldError(field, problem string) error {
	return appErrors.Clone(appErrors.ErrValidation, field+" "+problem)
}

func optionalString(field string, raw interface{}) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(v), nil
	default:
		return "", fieldError(field, "must be a string")
	}
}

func requiredString(field string, raw interface{}) (string, error) {
	v, err := optionalString(field, raw)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", fieldError(field, "must not be empty")
	}
	return v, nil
}

func feesValue(raw interface{}) (float64, error) {
	var fees float64
	switch v := raw.(type) {
	case float64:
		fees = v
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fieldError("fees", "must be a number")
		}
		fees = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fieldError("fees", "must be a number")
		}
		fees = f
	default:
		return 0, fieldError("fees", "must be a number")
	}
	if fees <= 0 {
		return 0, fieldError("fees", "must be positive")
	}
	return fees, nil
}

func boolValue(field string, raw interface{}) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fieldError(field, "must be true or false")
		}
		return b, nil
	default:
		return false, fieldError(field, "must be true or false")
	}
}

// addressValue accepts an address object or its JSON text, as multipart
// forms send it.
func addressValue(raw interface{}) (models.Address, error) {
	var addr models.Address
	switch v := raw.(type) {
	case nil:
		return addr, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return addr, nil
		}
		if err := json.Unmarshal([]byte(v), &addr); err != nil {
			return addr, fieldError("address", "must be an object with line1 and line2")
		}
	case map[string]interface{}:
		line1, err := optionalString("address.line1", v["line1"])
		if err != nil {
			return addr, err
		}
		line2, err := optionalString("address.line2", v["line2"])
		if err != nil {
			return addr, err
		}
		addr = models.Address{Line1: line1, Line2: line2}
	default:
		return addr, fieldError("address", "must be an object with line1 and line2")
	}
	addr.Line1 = strings.TrimSpace(addr.Line1)
	addr.Line2 = strings.TrimSpace(addr.Line2)
	return addr, nil
}
