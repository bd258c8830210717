package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/clinic-api/internal/dto"
	"github.com/noah-isme/clinic-api/internal/models"
	appErrors "github.com/noah-isme/clinic-api/pkg/errors"
	"github.com/noah-isme/clinic-api/pkg/export"
)

const reportResource = "report"

type reportStore interface {
	Create(ctx context.Context, report *models.Report) error
	AppendVersion(ctx context.Context, reportID string, status models.StatusMap, description string, at time.Time) (*models.Report, error)
	FindByID(ctx context.Context, id string) (*models.Report, error)
	ListByPatient(ctx context.Context, patientID string) ([]models.Report, error)
	List(ctx context.Context, filter models.ReportFilter) ([]models.Report, int, error)
}

type appointmentFinder interface {
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
}

type patientFinder interface {
	FindByID(ctx context.Context, id string) (*models.Patient, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*models.Patient, error)
}

type doctorFinder interface {
	FindByID(ctx context.Context, id string) (*models.Doctor, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*models.Doctor, error)
}

type reportMetrics interface {
	ReportCreated()
	ReportVersionAppended()
}

type documentRenderer interface {
	RenderDocument(doc export.Document) ([]byte, error)
	Render(data export.Dataset, title string) ([]byte, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ReportExporters bundles the renderers used for downloads.
type ReportExporters struct {
	PDF  documentRenderer
	CSV  datasetRenderer
	XLSX datasetRenderer
}

// ReportService orchestrates medical report workflows.
type ReportService struct {
	reports      reportStore
	appointments appointmentFinder
	patients     patientFinder
	doctors      doctorFinder
	audit        auditLogger
	metrics      reportMetrics
	exporters    ReportExporters
	validator    *validator.Validate
	logger       *zap.Logger
	now          func() time.Time
}

// NewReportService builds a ReportService with sane defaults.
func NewReportService(
	reports reportStore,
	appointments appointmentFinder,
	patients patientFinder,
	doctors doctorFinder,
	audit auditLogger,
	metrics reportMetrics,
	exporters ReportExporters,
	validate *validator.Validate,
	logger *zap.Logger,
) *ReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if exporters.PDF == nil {
		exporters.PDF = export.NewPDFExporter()
	}
	if exporters.CSV == nil {
		exporters.CSV = export.NewCSVExporter()
	}
	if exporters.XLSX == nil {
		exporters.XLSX = export.NewXLSXExporter("Reports")
	}
	return &ReportService{
		reports:      reports,
		appointments: appointments,
		patients:     patients,
		doctors:      doctors,
		audit:        audit,
		metrics:      metrics,
		exporters:    exporters,
		validator:    validate,
		logger:       logger,
		now:          time.Now,
	}
}

// Create starts a report for an appointment that binds the calling doctor
// and the given patient. The report begins with version 1.
func (s *ReportService) Create(ctx context.Context, actor *models.Principal, req dto.CreateReportRequest, meta models.RequestMeta) (*dto.ReportView, error) {
	if err := Authorize(actor, ActionCreateReport, Subject{}); err != nil {
		return nil, err
	}
	req.PatientID = strings.TrimSpace(req.PatientID)
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}
	if err := validateStatus(req.Status); err != nil {
		return nil, err
	}

	appt, err := s.appointments.FindByID(ctx, req.AppointmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidReference, "invalid appointment/patient")
		}
		return nil, appErrors.Storage(err, "failed to load appointment")
	}
	if appt.DoctorID != actor.ID || appt.PatientID != req.PatientID {
		return nil, appErrors.Clone(appErrors.ErrInvalidReference, "invalid appointment/patient")
	}

	now := s.now().UTC()
	report := &models.Report{
		ID:            uuid.NewString(),
		PatientID:     req.PatientID,
		DoctorID:      actor.ID,
		AppointmentID: req.AppointmentID,
		Versions: []models.ReportVersion{{
			Version:     1,
			Status:      normaliseStatus(req.Status),
			Description: req.Description,
			UpdatedAt:   now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	report.Versions[0].ReportID = report.ID
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, appErrors.Storage(err, "failed to create report")
	}

	if s.metrics != nil {
		s.metrics.ReportCreated()
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionReportCreate, reportResource, report.ID, meta, map[string]interface{}{
		"patientId":     report.PatientID,
		"appointmentId": report.AppointmentID,
		"version":       1,
	})
	return toReportView(report), nil
}

// AppendVersion adds the next version to a report authored by the caller.
// Earlier versions are never modified.
func (s *ReportService) AppendVersion(ctx context.Context, actor *models.Principal, reportID string, req dto.AppendVersionRequest, meta models.RequestMeta) (*dto.ReportView, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.Is(models.RoleDoctor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only doctors can update reports")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}
	if err := validateStatus(req.Status); err != nil {
		return nil, err
	}

	current, err := s.loadReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(actor, ActionAppendVersion, Subject{PatientID: current.PatientID, DoctorID: current.DoctorID}); err != nil {
		return nil, err
	}

	updated, err := s.reports.AppendVersion(ctx, reportID, normaliseStatus(req.Status), req.Description, s.now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, appErrors.Storage(err, "failed to update report")
	}

	if s.metrics != nil {
		s.metrics.ReportVersionAppended()
	}
	latest := updated.CurrentVersion()
	values := map[string]interface{}{}
	if latest != nil {
		values["version"] = latest.Version
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionReportAppend, reportResource, reportID, meta, values)
	return toReportView(updated), nil
}

// ListForPatient returns the patient's reports, most recently updated first,
// each with its author summary.
func (s *ReportService) ListForPatient(ctx context.Context, actor *models.Principal, patientID string) ([]dto.ReportView, error) {
	patientID = strings.TrimSpace(patientID)
	if err := Authorize(actor, ActionListPatientReports, Subject{PatientID: patientID}); err != nil {
		return nil, err
	}
	if patientID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "patientId is required")
	}
	reports, err := s.reports.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list reports")
	}
	return s.viewsWithPeople(ctx, reports, false)
}

// Get returns one report with freshly resolved patient, doctor and
// appointment snapshots.
func (s *ReportService) Get(ctx context.Context, actor *models.Principal, reportID string) (*dto.ReportDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	report, err := s.loadReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(actor, ActionReadReport, Subject{PatientID: report.PatientID, DoctorID: report.DoctorID}); err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view this report")
	}
	return s.enrich(ctx, report)
}

// RenderPDF renders one version (the current one when version is 0) of a
// report the caller may read.
func (s *ReportService) RenderPDF(ctx context.Context, actor *models.Principal, reportID string, version int) (*dto.ExportFile, error) {
	detail, err := s.Get(ctx, actor, reportID)
	if err != nil {
		return nil, err
	}
	selected := detail.CurrentVersion
	if version > 0 {
		selected = detail.Report.VersionByNumber(version)
	}
	if selected == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report version not found")
	}

	doc := export.Document{
		Title:    "Medical Report",
		Subtitle: fmt.Sprintf("Version %d of %d, updated %s", selected.Version, len(detail.Versions), selected.UpdatedAt.Format("2006-01-02 15:04")),
		Footer:   "Report " + detail.ID,
	}
	patientFields := []export.Field{{Label: "Patient ID", Value: detail.PatientID}}
	if p := detail.Patient; p != nil {
		patientFields = append(patientFields,
			export.Field{Label: "Name", Value: p.Name},
			export.Field{Label: "Email", Value: p.Email},
			export.Field{Label: "Date of birth", Value: p.DOB},
			export.Field{Label: "Gender", Value: p.Gender},
		)
	}
	doc.Sections = append(doc.Sections, export.Section{Heading: "Patient", Fields: patientFields})

	doctorFields := []export.Field{{Label: "Doctor ID", Value: detail.DoctorID}}
	if d := detail.Doctor; d != nil {
		doctorFields = append(doctorFields,
			export.Field{Label: "Name", Value: d.Name},
			export.Field{Label: "Speciality", Value: d.Speciality},
			export.Field{Label: "Degree", Value: d.Degree},
		)
	}
	doc.Sections = append(doc.Sections, export.Section{Heading: "Doctor", Fields: doctorFields})

	if a := detail.Appointment; a != nil {
		doc.Sections = append(doc.Sections, export.Section{Heading: "Appointment", Fields: []export.Field{
			{Label: "Date", Value: a.SlotDate},
			{Label: "Time", Value: a.SlotTime},
		}})
	}

	statusFields := make([]export.Field, 0, len(selected.Status))
	for _, entry := range selected.Status {
		statusFields = append(statusFields, export.Field{Label: entry.Key, Value: entry.Value})
	}
	doc.Sections = append(doc.Sections,
		export.Section{Heading: "Clinical status", Fields: statusFields},
		export.Section{Heading: "Notes", Body: selected.Description},
	)

	content, err := s.exporters.PDF.RenderDocument(doc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	return &dto.ExportFile{
		Filename:    fmt.Sprintf("report-%s-v%d.pdf", detail.ID, selected.Version),
		ContentType: "application/pdf",
		Content:     content,
	}, nil
}

// AdminList lists every report with author and patient summaries.
func (s *ReportService) AdminList(ctx context.Context, actor *models.Principal, query dto.ReportListQuery) ([]dto.ReportView, *models.Pagination, error) {
	if !actor.Is(models.RoleAdmin) {
		return nil, nil, appErrors.ErrForbidden
	}
	page, size := normalisePage(query.Page, query.PageSize)
	reports, total, err := s.reports.List(ctx, models.ReportFilter{PatientID: query.PatientID, DoctorID: query.DoctorID, Page: page, PageSize: size})
	if err != nil {
		return nil, nil, appErrors.Storage(err, "failed to list reports")
	}
	views, err := s.viewsWithPeople(ctx, reports, true)
	if err != nil {
		return nil, nil, err
	}
	return views, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Export renders all reports as CSV, XLSX or a PDF table, one row per report
// carrying the current version.
func (s *ReportService) Export(ctx context.Context, actor *models.Principal, format dto.ExportFormat) (*dto.ExportFile, error) {
	if !actor.Is(models.RoleAdmin) {
		return nil, appErrors.ErrForbidden
	}
	var render func(export.Dataset) ([]byte, error)
	var contentType string
	switch format {
	case dto.ExportFormatCSV, "":
		format = dto.ExportFormatCSV
		render, contentType = s.exporters.CSV.Render, "text/csv"
	case dto.ExportFormatXLSX:
		render, contentType = s.exporters.XLSX.Render, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case dto.ExportFormatPDF:
		render = func(data export.Dataset) ([]byte, error) { return s.exporters.PDF.Render(data, "Medical reports") }
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv, xlsx or pdf")
	}

	reports, _, err := s.reports.List(ctx, models.ReportFilter{})
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list reports")
	}
	views, err := s.viewsWithPeople(ctx, reports, true)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{Headers: []string{"Report ID", "Patient", "Doctor", "Appointment ID", "Versions", "Current Version", "Status", "Description", "Updated At"}}
	for _, v := range views {
		row := map[string]string{
			"Report ID":      v.ID,
			"Patient":        v.PatientID,
			"Doctor":         v.DoctorID,
			"Appointment ID": v.AppointmentID,
			"Versions":       strconv.Itoa(len(v.Versions)),
			"Updated At":     v.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if v.Patient != nil {
			row["Patient"] = v.Patient.Name
		}
		if v.Doctor != nil {
			row["Doctor"] = v.Doctor.Name
		}
		if cur := v.CurrentVersion; cur != nil {
			row["Current Version"] = strconv.Itoa(cur.Version)
			row["Description"] = cur.Description
			pairs := make([]string, 0, len(cur.Status))
			for _, e := range cur.Status {
				pairs = append(pairs, e.Key+"="+e.Value)
			}
			row["Status"] = strings.Join(pairs, "; ")
		}
		data.Rows = append(data.Rows, row)
	}

	content, err := render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &dto.ExportFile{
		Filename:    fmt.Sprintf("reports-%s.%s", s.now().UTC().Format("20060102"), format),
		ContentType: contentType,
		Content:     content,
	}, nil
}

func (s *ReportService) loadReport(ctx context.Context, reportID string) (*models.Report, error) {
	reportID = strings.TrimSpace(reportID)
	if reportID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "report id is required")
	}
	report, err := s.reports.FindByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, appErrors.Storage(err, "failed to load report")
	}
	return report, nil
}

func (s *ReportService) enrich(ctx context.Context, report *models.Report) (*dto.ReportDetail, error) {
	detail := &dto.ReportDetail{ReportView: *toReportView(report)}

	patient, err := s.patients.FindByID(ctx, report.PatientID)
	switch {
	case err == nil:
		detail.Patient = patientSummary(patient)
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Storage(err, "failed to load patient")
	}

	doctor, err := s.doctors.FindByID(ctx, report.DoctorID)
	switch {
	case err == nil:
		detail.Doctor = doctorSummary(doctor)
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Storage(err, "failed to load doctor")
	}

	appt, err := s.appointments.FindByID(ctx, report.AppointmentID)
	switch {
	case err == nil:
		detail.Appointment = appointmentSummary(appt)
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Storage(err, "failed to load appointment")
	}
	return detail, nil
}

// viewsWithPeople attaches author summaries, and patient summaries when
// withPatients is set, using one batched lookup each.
func (s *ReportService) viewsWithPeople(ctx context.Context, reports []models.Report, withPatients bool) ([]dto.ReportView, error) {
	return buildReportViews(ctx, reports, s.doctors, s.patients, withPatients)
}

func buildReportViews(ctx context.Context, reports []models.Report, doctors doctorFinder, patients patientFinder, withPatients bool) ([]dto.ReportView, error) {
	views := make([]dto.ReportView, 0, len(reports))
	if len(reports) == 0 {
		return views, nil
	}

	doctorIDs := uniqueIDs(reports, func(r models.Report) string { return r.DoctorID })
	doctorMap, err := doctors.FindByIDs(ctx, doctorIDs)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load doctors")
	}
	var patientMap map[string]*models.Patient
	if withPatients {
		patientIDs := uniqueIDs(reports, func(r models.Report) string { return r.PatientID })
		if patientMap, err = patients.FindByIDs(ctx, patientIDs); err != nil {
			return nil, appErrors.Storage(err, "failed to load patients")
		}
	}

	for i := range reports {
		view := toReportView(&reports[i])
		if d, ok := doctorMap[reports[i].DoctorID]; ok {
			view.Doctor = doctorSummary(d)
		}
		if p, ok := patientMap[reports[i].PatientID]; ok {
			view.Patient = patientSummary(p)
		}
		views = append(views, *view)
	}
	return views, nil
}

func uniqueIDs(reports []models.Report, key func(models.Report) string) []string {
	seen := make(map[string]struct{}, len(reports))
	ids := make([]string, 0, len(reports))
	for _, r := range reports {
		id := key(r)
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func toReportView(report *models.Report) *dto.ReportView {
	view := &dto.ReportView{Report: *report}
	if view.Versions == nil {
		view.Versions = []models.ReportVersion{}
	}
	view.CurrentVersion = view.Report.CurrentVersion()
	return view
}

func patientSummary(p *models.Patient) *dto.PatientSummary {
	return &dto.PatientSummary{ID: p.ID, Name: p.Name, Email: p.Email, Image: p.Image, Phone: p.Phone, Gender: p.Gender, DOB: p.DOB}
}

func doctorSummary(d *models.Doctor) *dto.DoctorSummary {
	return &dto.DoctorSummary{ID: d.ID, Name: d.Name, Email: d.Email, Image: d.Image, Speciality: d.Speciality, Degree: d.Degree}
}

func appointmentSummary(a *models.Appointment) *dto.AppointmentSummary {
	return &dto.AppointmentSummary{ID: a.ID, SlotDate: a.SlotDate, SlotTime: a.SlotTime, Amount: a.Amount, Cancelled: a.Cancelled, IsCompleted: a.IsCompleted}
}

func validateStatus(status models.StatusMap) error {
	for _, e := range status {
		if strings.TrimSpace(e.Key) == "" {
			return appErrors.Clone(appErrors.ErrValidation, "status keys must not be empty")
		}
		if len(e.Key) > 64 || len(e.Value) > 512 {
			return appErrors.Clone(appErrors.ErrValidation, "status entry too long")
		}
	}
	return nil
}

func normaliseStatus(status models.StatusMap) models.StatusMap {
	out := models.StatusMap{}
	for _, e := range status {
		out = out.Set(strings.TrimSpace(e.Key), e.Value)
	}
	return out
}

func normalisePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size
}
