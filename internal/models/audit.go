package models

import "time"

// Audit actions recorded for clinical and administrative changes.
const (
	AuditActionReportCreate        = "REPORT_CREATE"
	AuditActionReportAppend        = "REPORT_APPEND_VERSION"
	AuditActionAppointmentBook     = "APPOINTMENT_BOOK"
	AuditActionAppointmentCancel   = "APPOINTMENT_CANCEL"
	AuditActionAppointmentComplete = "APPOINTMENT_COMPLETE"
	AuditActionDoctorCreate        = "DOCTOR_CREATE"
	AuditActionDoctorDelete        = "DOCTOR_DELETE"
	AuditActionPatientDelete       = "PATIENT_DELETE"
	AuditActionPasswordChange      = "PASSWORD_CHANGE"
	AuditActionSlotRepair          = "SLOT_REGISTRY_REPAIR"
	AuditActionAccessDenied        = "ACCESS_DENIED"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	ActorRole  Role      `db:"actor_role" json:"actorRole"`
	ActorID    *string   `db:"actor_id" json:"actorId,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resourceId,omitempty"`
	NewValues  []byte    `db:"new_values" json:"newValues,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ipAddress"`
	UserAgent  string    `db:"user_agent" json:"userAgent"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// RequestMeta carries caller details recorded alongside audit entries.
type RequestMeta struct {
	IP        string
	UserAgent string
}
