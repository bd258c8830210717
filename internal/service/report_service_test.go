package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinic-api/internal/dto"
	"github.com/noah-isme/clinic-api/internal/models"
	appErrors "github.com/noah-isme/clinic-api/pkg/errors"
)

var (
	doctorD1  = &models.Principal{Role: models.RoleDoctor, ID: "d1"}
	doctorD2  = &models.Principal{Role: models.RoleDoctor, ID: "d2"}
	patientP1 = &models.Principal{Role: models.RolePatient, ID: "p1"}
	patientP2 = &models.Principal{Role: models.RolePatient, ID: "p2"}
	adminUser = &models.Principal{Role: models.RoleAdmin}
)

type reportFixture struct {
	reports      *memReportStore
	appointments *memAppointmentStore
	patients     *memPatients
	doctors      *memDoctors
	audit        *auditRecorder
	metrics      *counterMetrics
	svc          *ReportService
}

func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()
	f := &reportFixture{
		reports: newMemReportStore(),
		appointments: newMemAppointmentStore(
			models.Appointment{ID: "appt-1", PatientID: "p1", DoctorID: "d1", SlotDate: "2024-01-05", SlotTime: "10:00", Amount: 50},
			models.Appointment{ID: "appt-2", PatientID: "p1", DoctorID: "d2", SlotDate: "2024-01-06", SlotTime: "11:00", Amount: 70},
		),
		patients: newMemPatients(
			models.Patient{ID: "p1", Name: "Jane Doe", Email: "jane@example.com", DOB: "1990-04-01"},
			models.Patient{ID: "p2", Name: "Other", Email: "other@example.com"},
		),
		doctors: newMemDoctors(
			models.Doctor{ID: "d1", Name: "Dr. Strange", Speciality: "Neurologist"},
			models.Doctor{ID: "d2", Name: "Dr. House", Speciality: "Diagnostics"},
		),
		audit:   &auditRecorder{},
		metrics: &counterMetrics{},
	}
	f.svc = NewReportService(f.reports, f.appointments, f.patients, f.doctors, f.audit, f.metrics, ReportExporters{}, nil, nil)
	f.svc.now = tickingClock(time.Date(2024, 1, 5, 10, 30, 0, 0, time.UTC))
	return f
}

func status(pairs ...string) models.StatusMap {
	var m models.StatusMap
	for i := 0; i+1 < len(pairs); i += 2 {
		m = m.Set(pairs[i], pairs[i+1])
	}
	return m
}

func (f *reportFixture) createReport(t *testing.T) *dto.ReportView {
	t.Helper()
	view, err := f.svc.Create(context.Background(), doctorD1, dto.CreateReportRequest{
		PatientID:     "p1",
		AppointmentID: "appt-1",
		Status:        status("bp", "120/80"),
		Description:   "initial visit",
	}, models.RequestMeta{IP: "10.0.0.1"})
	require.NoError(t, err)
	return view
}

func TestReportLifecycleScenario(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	created := f.createReport(t)
	require.Len(t, created.Versions, 1)
	assert.Equal(t, 1, created.CurrentVersion.Version)
	assert.Equal(t, "d1", created.DoctorID)

	updated, err := f.svc.AppendVersion(ctx, doctorD1, created.ID, dto.AppendVersionRequest{
		Status:      status("bp", "118/76", "sugar", "95"),
		Description: "follow up",
	}, models.RequestMeta{})
	require.NoError(t, err)
	require.Len(t, updated.Versions, 2)
	assert.Equal(t, 2, updated.CurrentVersion.Version)
	assert.Equal(t, created.Versions[0], updated.Versions[0])

	listed, err := f.svc.ListForPatient(ctx, patientP1, "p1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Len(t, listed[0].Versions, 2)
	assert.Equal(t, 2, listed[0].CurrentVersion.Version)
	require.NotNil(t, listed[0].Doctor)
	assert.Equal(t, "Dr. Strange", listed[0].Doctor.Name)

	detail, err := f.svc.Get(ctx, adminUser, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Versions, detail.Versions)
	require.NotNil(t, detail.Patient)
	assert.Equal(t, "Jane Doe", detail.Patient.Name)
	require.NotNil(t, detail.Doctor)
	assert.Equal(t, "Neurologist", detail.Doctor.Speciality)
	require.NotNil(t, detail.Appointment)
	assert.Equal(t, "2024-01-05", detail.Appointment.SlotDate)

	assert.EqualValues(t, 1, f.metrics.created.Load())
	assert.EqualValues(t, 1, f.metrics.appended.Load())
	assert.Equal(t, []string{models.AuditActionReportCreate, models.AuditActionReportAppend}, f.audit.actions())
}

func TestAppendVersionConcurrentCallsStayContiguous(t *testing.T) {
	f := newReportFixture(t)
	created := f.createReport(t)

	const writers = 40
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.AppendVersion(context.Background(), doctorD1, created.ID, dto.AppendVersionRequest{
				Status:      status("attempt", fmt.Sprint(i)),
				Description: "retry",
			}, models.RequestMeta{})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := f.reports.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, stored.Versions, writers+1)
	for i, v := range stored.Versions {
		assert.Equal(t, i+1, v.Version)
	}
}

func TestAppendVersionLeavesHistoryUntouched(t *testing.T) {
	f := newReportFixture(t)
	created := f.createReport(t)
	first := created.Versions[0]

	for i := 0; i < 3; i++ {
		_, err := f.svc.AppendVersion(context.Background(), doctorD1, created.ID, dto.AppendVersionRequest{
			Status:      status("bp", fmt.Sprintf("1%d0/80", i)),
			Description: fmt.Sprintf("note %d", i),
		}, models.RequestMeta{})
		require.NoError(t, err)
	}

	stored, err := f.reports.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, first, stored.Versions[0])
	assert.Equal(t, "note 0", stored.Versions[1].Description)
	assert.Equal(t, "note 2", stored.CurrentVersion().Description)
}

func TestCreateReportRejections(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		actor *models.Principal
		req   dto.CreateReportRequest
		want  *appErrors.Error
	}{
		{"patient caller", patientP1, dto.CreateReportRequest{PatientID: "p1", AppointmentID: "appt-1"}, appErrors.ErrForbidden},
		{"admin caller", adminUser, dto.CreateReportRequest{PatientID: "p1", AppointmentID: "appt-1"}, appErrors.ErrForbidden},
		{"no principal", nil, dto.CreateReportRequest{PatientID: "p1", AppointmentID: "appt-1"}, appErrors.ErrUnauthorized},
		{"other doctor's appointment", doctorD2, dto.CreateReportRequest{PatientID: "p1", AppointmentID: "appt-1"}, appErrors.ErrInvalidReference},
		{"unknown appointment", doctorD1, dto.CreateReportRequest{PatientID: "p1", AppointmentID: "missing"}, appErrors.ErrInvalidReference},
		{"patient mismatch", doctorD1, dto.CreateReportRequest{PatientID: "p2", AppointmentID: "appt-1"}, appErrors.ErrInvalidReference},
		{"missing appointment id", doctorD1, dto.CreateReportRequest{PatientID: "p1"}, appErrors.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tc.actor, tc.req, models.RequestMeta{})
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	all, _, err := f.reports.List(ctx, models.ReportFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestAppendVersionAuthorshipIsExclusive(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()
	created := f.createReport(t)
	req := dto.AppendVersionRequest{Status: status("bp", "130/85")}

	// d2 treats p1 on appt-2 but did not author this report.
	_, err := f.svc.AppendVersion(ctx, doctorD2, created.ID, req, models.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.svc.AppendVersion(ctx, patientP1, created.ID, req, models.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.svc.AppendVersion(ctx, doctorD1, "missing", req, models.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	stored, err := f.reports.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Versions, 1)
}

func TestGetReportReadRule(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()
	created := f.createReport(t)

	_, err := f.svc.Get(ctx, patientP1, created.ID)
	assert.NoError(t, err)
	_, err = f.svc.Get(ctx, doctorD1, created.ID)
	assert.NoError(t, err)

	_, err = f.svc.Get(ctx, patientP2, created.ID)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = f.svc.Get(ctx, doctorD2, created.ID)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = f.svc.Get(ctx, adminUser, "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = f.svc.ListForPatient(ctx, patientP2, "p1")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	listed, err := f.svc.ListForPatient(ctx, doctorD2, "p1")
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestGetReportToleratesDeletedReferences(t *testing.T) {
	f := newReportFixture(t)
	created := f.createReport(t)
	delete(f.doctors.byID, "d1")
	delete(f.patients.byID, "p1")

	detail, err := f.svc.Get(context.Background(), adminUser, created.ID)
	require.NoError(t, err)
	assert.Nil(t, detail.Doctor)
	assert.Nil(t, detail.Patient)
	assert.NotNil(t, detail.Appointment)
}

func TestListForPatientOrdersByLastUpdate(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()
	older := f.createReport(t)
	newer, err := f.svc.Create(ctx, doctorD2, dto.CreateReportRequest{PatientID: "p1", AppointmentID: "appt-2"}, models.RequestMeta{})
	require.NoError(t, err)

	listed, err := f.svc.ListForPatient(ctx, patientP1, "p1")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, newer.ID, listed[0].ID)

	_, err = f.svc.AppendVersion(ctx, doctorD1, older.ID, dto.AppendVersionRequest{Description: "bump"}, models.RequestMeta{})
	require.NoError(t, err)
	listed, err = f.svc.ListForPatient(ctx, patientP1, "p1")
	require.NoError(t, err)
	assert.Equal(t, older.ID, listed[0].ID)
}

func TestReportServiceSurvivesAuditFailure(t *testing.T) {
	f := newReportFixture(t)
	f.audit.err = errors.New("audit table locked")
	created := f.createReport(t)
	assert.Equal(t, 1, created.CurrentVersion.Version)
}

func TestRenderPDF(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()
	created := f.createReport(t)
	_, err := f.svc.AppendVersion(ctx, doctorD1, created.ID, dto.AppendVersionRequest{Status: status("bp", "118/76")}, models.RequestMeta{})
	require.NoError(t, err)

	file, err := f.svc.RenderPDF(ctx, patientP1, created.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.Equal(t, fmt.Sprintf("report-%s-v1.pdf", created.ID), file.Filename)
	assert.True(t, bytes.HasPrefix(file.Content, []byte("%PDF")))

	_, err = f.svc.RenderPDF(ctx, patientP1, created.ID, 9)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = f.svc.RenderPDF(ctx, patientP2, created.ID, 0)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestAdminListAndExport(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()
	f.createReport(t)

	views, page, err := f.svc.AdminList(ctx, adminUser, dto.ReportListQuery{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, 1, page.TotalCount)
	assert.Equal(t, 20, page.PageSize)
	require.NotNil(t, views[0].Patient)
	assert.Equal(t, "Jane Doe", views[0].Patient.Name)

	_, _, err = f.svc.AdminList(ctx, doctorD1, dto.ReportListQuery{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	file, err := f.svc.Export(ctx, adminUser, dto.ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Contains(t, string(file.Content), "Report ID,Patient,Doctor")
	assert.Contains(t, string(file.Content), "Jane Doe,Dr. Strange")
	assert.Contains(t, string(file.Content), "bp=120/80")

	file, err = f.svc.Export(ctx, adminUser, dto.ExportFormatXLSX)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(file.Content, []byte("PK")))

	file, err = f.svc.Export(ctx, adminUser, dto.ExportFormatPDF)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(file.Content, []byte("%PDF")))

	_, err = f.svc.Export(ctx, adminUser, "docx")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
