package service

import (
	"github.com/noah-isme/clinic-api/internal/models"
	appErrors "github.com/noah-isme/clinic-api/pkg/errors"
)

// Action names a permission checked by Authorize.
type Action string

const (
	ActionCreateReport        Action = "report:create"
	ActionAppendVersion       Action = "report:append"
	ActionReadReport          Action = "report:read"
	ActionListPatientReports  Action = "report:list-patient"
	ActionResolveEditing      Action = "report:editing"
	ActionCancelAppointment   Action = "appointment:cancel"
	ActionCompleteAppointment Action = "appointment:complete"
	ActionDeleteAccount       Action = "account:delete"
)

// Subject carries the ownership attributes of the resource being acted on.
type Subject struct {
	PatientID string
	DoctorID  string
}

type rule func(p *models.Principal, s Subject) bool

func anyDoctor(p *models.Principal, _ Subject) bool { return p.Is(models.RoleDoctor) }

func anyAdmin(p *models.Principal, _ Subject) bool { return p.Is(models.RoleAdmin) }

func authorDoctor(p *models.Principal, s Subject) bool {
	return p.IsSelf(models.RoleDoctor, s.DoctorID)
}

func ownPatient(p *models.Principal, s Subject) bool {
	return p.IsSelf(models.RolePatient, s.PatientID)
}

// policy lists, per action, the rules any one of which grants access.
var policy = map[Action][]rule{
	ActionCreateReport:        {anyDoctor},
	ActionAppendVersion:       {authorDoctor},
	ActionReadReport:          {anyAdmin, ownPatient, authorDoctor},
	ActionListPatientReports:  {anyAdmin, ownPatient, anyDoctor},
	ActionResolveEditing:      {anyDoctor},
	ActionCancelAppointment:   {anyAdmin, ownPatient, authorDoctor},
	ActionCompleteAppointment: {authorDoctor},
	ActionDeleteAccount:       {anyAdmin},
}

// Authorize decides whether p may perform action on subject. A missing
// principal is Unauthorized; a denied one is Forbidden.
func Authorize(p *models.Principal, action Action, subject Subject) error {
	if p == nil || !p.Role.Valid() {
		return appErrors.ErrUnauthorized
	}
	for _, allow := range policy[action] {
		if allow(p, subject) {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, forbiddenMessage(action))
}

func forbiddenMessage(action Action) string {
	switch action {
	case ActionCreateReport:
		return "only doctors can create reports"
	case ActionAppendVersion:
		return "only the authoring doctor can update this report"
	case ActionResolveEditing:
		return "only doctors can edit reports"
	case ActionCancelAppointment:
		return "not allowed to cancel this appointment"
	case ActionCompleteAppointment:
		return "only the assigned doctor can complete this appointment"
	default:
		return appErrors.ErrForbidden.Message
	}
}
