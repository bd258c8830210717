package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/clinic-api/internal/dto"
	"github.com/noah-isme/clinic-api/internal/models"
	"github.com/noah-isme/clinic-api/internal/repository"
	appErrors "github.com/noah-isme/clinic-api/pkg/errors"
)

type adminDoctorStoreStub struct {
	*memDoctors
	created []*models.Doctor
	deleted []string
}

func (s *adminDoctorStoreStub) List(ctx context.Context) ([]models.Doctor, error) {
	out := make([]models.Doctor, 0, len(s.byID))
	for _, id := range []string{"d1", "d2"} {
		if d, ok := s.byID[id]; ok {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (s *adminDoctorStoreStub) Count(ctx context.Context) (int, error) { return len(s.byID), nil }

func (s *adminDoctorStoreStub) Create(ctx context.Context, d *models.Doctor) error {
	for _, existing := range s.byID {
		if existing.Email == d.Email {
			return repository.ErrEmailTaken
		}
	}
	s.created = append(s.created, d)
	s.byID[d.ID] = d
	return nil
}

func (s *adminDoctorStoreStub) ToggleAvailability(ctx context.Context, id string, at time.Time) (bool, error) {
	d, ok := s.byID[id]
	if !ok {
		return false, sql.ErrNoRows
	}
	d.Available = !d.Available
	return d.Available, nil
}

func (s *adminDoctorStoreStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.byID[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.byID, id)
	s.deleted = append(s.deleted, id)
	return nil
}

type adminPatientStoreStub struct {
	*memPatients
}

func (s *adminPatientStoreStub) List(ctx context.Context) ([]models.Patient, error) {
	out := make([]models.Patient, 0, len(s.byID))
	for _, p := range s.byID {
		out = append(out, *p)
	}
	return out, nil
}

func (s *adminPatientStoreStub) Count(ctx context.Context) (int, error) { return len(s.byID), nil }

func (s *adminPatientStoreStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.byID[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.byID, id)
	return nil
}

type adminFixture struct {
	doctors  *adminDoctorStoreStub
	patients *adminPatientStoreStub
	appts    *memAppointmentStore
	uploader *uploaderStub
	audit    *auditRecorder
	svc      *AdminService
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	booked := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := &adminFixture{
		doctors: &adminDoctorStoreStub{memDoctors: newMemDoctors(
			models.Doctor{ID: "d1", Name: "Dr. Strange", Email: "strange@example.com", PasswordHash: "secret-hash", Available: true},
			models.Doctor{ID: "d2", Name: "Dr. House", Email: "house@example.com"},
		)},
		patients: &adminPatientStoreStub{memPatients: newMemPatients(
			models.Patient{ID: "p1", Name: "Jane Doe", Email: "jane@example.com"},
		)},
		appts: newMemAppointmentStore(
			models.Appointment{ID: "A", PatientID: "p1", DoctorID: "d1", SlotDate: "2024-01-05", SlotTime: "10:00", BookedAt: booked},
			models.Appointment{ID: "B", PatientID: "p1", DoctorID: "d1", SlotDate: "2024-01-05", SlotTime: "11:00", BookedAt: booked.Add(time.Hour), Cancelled: true},
		),
		uploader: &uploaderStub{},
		audit:    &auditRecorder{},
	}
	f.svc = NewAdminService(f.doctors, f.patients, f.appts, f.uploader, 1024, f.audit, nil, nil)
	return f
}

func TestAdminDashboard(t *testing.T) {
	f := newAdminFixture(t)

	dash, err := f.svc.Dashboard(context.Background(), adminUser)
	require.NoError(t, err)
	assert.Equal(t, 2, dash.Doctors)
	assert.Equal(t, 1, dash.Patients)
	assert.Equal(t, 2, dash.Appointments)
	require.Len(t, dash.LatestAppointments, 2)
	assert.Equal(t, "B", dash.LatestAppointments[0].ID)
	assert.Equal(t, "Jane Doe", dash.LatestAppointments[0].PatientSnapshot.Name)

	_, err = f.svc.Dashboard(context.Background(), doctorD1)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = f.svc.Dashboard(context.Background(), nil)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAddDoctor(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	req := dto.AddDoctorRequest{
		Name:       "Dr. Who",
		Email:      " Who@Example.com ",
		Password:   "tardis-2024",
		Speciality: "General physician",
		Degree:     "MBBS",
		Experience: "4 Years",
		About:      "Travels a lot",
		Fees:       40,
		Image:      &dto.UploadFile{Filename: "who.jpg", Size: 3, Reader: strings.NewReader("jpg")},
	}

	doctor, err := f.svc.AddDoctor(ctx, adminUser, req, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "who@example.com", doctor.Email)
	assert.True(t, doctor.Available)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(doctor.PasswordHash), []byte("tardis-2024")))
	assert.True(t, strings.HasPrefix(doctor.Image, "https://cdn.test/doctor-"+doctor.ID))
	assert.Equal(t, []string{models.AuditActionDoctorCreate}, f.audit.actions())

	req.Image = nil
	_, err = f.svc.AddDoctor(ctx, adminUser, req, models.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	req.Email = "new@example.com"
	req.Fees = 0
	_, err = f.svc.AddDoctor(ctx, adminUser, req, models.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = f.svc.AddDoctor(ctx, patientP1, req, models.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestChangeAvailability(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	available, err := f.svc.ChangeAvailability(ctx, adminUser, dto.ChangeAvailabilityRequest{DoctorID: "d1"})
	require.NoError(t, err)
	assert.False(t, available)

	_, err = f.svc.ChangeAvailability(ctx, adminUser, dto.ChangeAvailabilityRequest{DoctorID: "missing"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = f.svc.ChangeAvailability(ctx, adminUser, dto.ChangeAvailabilityRequest{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestPublicDoctorsExposeSlotsNotCredentials(t *testing.T) {
	f := newAdminFixture(t)

	cards, err := f.svc.PublicDoctors(context.Background())
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "d1", cards[0].ID)
	assert.True(t, cards[0].SlotsBooked.Has("2024-01-05", "10:00"))
	assert.False(t, cards[0].SlotsBooked.Has("2024-01-05", "11:00"))
	assert.Empty(t, cards[1].SlotsBooked)
}

func TestAdminDeletesAccounts(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.DeleteDoctor(ctx, doctorD1, "d1", models.RequestMeta{}), appErrors.ErrForbidden)
	assert.ErrorIs(t, f.svc.DeleteUser(ctx, patientP1, "p1", models.RequestMeta{}), appErrors.ErrForbidden)

	require.NoError(t, f.svc.DeleteDoctor(ctx, adminUser, "d2", models.RequestMeta{}))
	require.NoError(t, f.svc.DeleteUser(ctx, adminUser, "p1", models.RequestMeta{}))
	assert.ErrorIs(t, f.svc.DeleteUser(ctx, adminUser, "p1", models.RequestMeta{}), appErrors.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteDoctor(ctx, adminUser, "d9", models.RequestMeta{}), appErrors.ErrNotFound)

	assert.Equal(t, []string{"d2"}, f.doctors.deleted)
	assert.Equal(t, []string{models.AuditActionDoctorDelete, models.AuditActionPatientDelete}, f.audit.actions())
}
