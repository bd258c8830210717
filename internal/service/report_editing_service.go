package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/clinic-api/internal/dto"
	"github.com/noah-isme/clinic-api/internal/models"
	appErrors "github.com/noah-isme/clinic-api/pkg/errors"
)

type patientReportLister interface {
	ListByPatient(ctx context.Context, patientID string) ([]models.Report, error)
}

// ReportEditingService assembles the report editor view for a doctor
// working on one patient's appointment.
type ReportEditingService struct {
	reports      patientReportLister
	appointments appointmentFinder
	patients     patientFinder
	doctors      doctorFinder
	logger       *zap.Logger
}

// NewReportEditingService constructs the resolver.
func NewReportEditingService(reports patientReportLister, appointments appointmentFinder, patients patientFinder, doctors doctorFinder, logger *zap.Logger) *ReportEditingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportEditingService{reports: reports, appointments: appointments, patients: patients, doctors: doctors, logger: logger}
}

// Resolve returns the patient's report history and the report, if any, the
// calling doctor should extend instead of creating a new one. That is the
// most recently updated report the doctor authored for this appointment.
func (s *ReportEditingService) Resolve(ctx context.Context, actor *models.Principal, patientID, appointmentID string) (*dto.ReportEditingContext, error) {
	if err := Authorize(actor, ActionResolveEditing, Subject{}); err != nil {
		return nil, err
	}
	patientID = strings.TrimSpace(patientID)
	appointmentID = strings.TrimSpace(appointmentID)
	if patientID == "" || appointmentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "patientId and appointmentId are required")
	}

	appt, err := s.appointments.FindByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidReference, "invalid appointment/patient")
		}
		return nil, appErrors.Storage(err, "failed to load appointment")
	}
	if appt.DoctorID != actor.ID || appt.PatientID != patientID {
		return nil, appErrors.Clone(appErrors.ErrInvalidReference, "invalid appointment/patient")
	}

	patient, err := s.patients.FindByID(ctx, patientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "patient not found")
		}
		return nil, appErrors.Storage(err, "failed to load patient")
	}

	result := &dto.ReportEditingContext{
		Patient:     patientSummary(patient),
		Appointment: appointmentSummary(appt),
	}
	doctor, err := s.doctors.FindByID(ctx, actor.ID)
	switch {
	case err == nil:
		result.Doctor = doctorSummary(doctor)
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Storage(err, "failed to load doctor")
	}

	reports, err := s.reports.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list reports")
	}
	views, err := buildReportViews(ctx, reports, s.doctors, s.patients, false)
	if err != nil {
		return nil, err
	}
	result.Reports = views

	for i := range views {
		if views[i].DoctorID == actor.ID && views[i].AppointmentID == appointmentID {
			editable := views[i]
			result.EditableReport = &editable
			break
		}
	}
	return result, nil
}
