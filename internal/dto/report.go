package dto

import "github.com/noah-isme/clinic-api/internal/models"

// CreateReportRequest starts a new report for an appointment.
type CreateReportRequest struct {
	PatientID     string           `json:"patientId" validate:"required"`
	AppointmentID string           `json:"appointmentId" validate:"required"`
	Status        models.StatusMap `json:"status"`
	Description   string           `json:"description" validate:"max=20000"`
}

// AppendVersionRequest appends a new version to an existing report.
type AppendVersionRequest struct {
	Status      models.StatusMap `json:"status"`
	Description string           `json:"description" validate:"max=20000"`
}

// PatientSummary is the patient block shown next to reports.
type PatientSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Image  string `json:"image,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Gender string `json:"gender,omitempty"`
	DOB    string `json:"dob,omitempty"`
}

// DoctorSummary is the doctor block shown next to reports.
type DoctorSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Image      string `json:"image,omitempty"`
	Speciality string `json:"speciality,omitempty"`
	Degree     string `json:"degree,omitempty"`
}

// AppointmentSummary is the appointment block shown next to reports.
type AppointmentSummary struct {
	ID          string  `json:"id"`
	SlotDate    string  `json:"slotDate"`
	SlotTime    string  `json:"slotTime"`
	Amount      float64 `json:"amount"`
	Cancelled   bool    `json:"cancelled"`
	IsCompleted bool    `json:"isCompleted"`
}

// ReportView is a report with its derived current version and optional
// author/patient summaries.
type ReportView struct {
	models.Report
	CurrentVersion *models.ReportVersion `json:"currentVersion"`
	Doctor         *DoctorSummary        `json:"doctor,omitempty"`
	Patient        *PatientSummary       `json:"patient,omitempty"`
}

// ReportDetail is a report enriched with freshly resolved references.
// References deleted since the report was written are returned as nil.
type ReportDetail struct {
	ReportView
	Appointment *AppointmentSummary `json:"appointment,omitempty"`
}

// ReportEditingContext is what a doctor sees when opening the report editor
// for a patient and appointment.
type ReportEditingContext struct {
	Patient        *PatientSummary     `json:"patient"`
	Doctor         *DoctorSummary      `json:"doctor"`
	Appointment    *AppointmentSummary `json:"appointment"`
	Reports        []ReportView        `json:"reports"`
	EditableReport *ReportView         `json:"editableReport"`
}

// ReportListQuery carries admin listing parameters.
type ReportListQuery struct {
	PatientID string `form:"patientId"`
	DoctorID  string `form:"doctorId"`
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
}

// ExportFormat names a report export encoding.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatXLSX ExportFormat = "xlsx"
	ExportFormatPDF  ExportFormat = "pdf"
)

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}
