package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/noah-isme/clinic-api/internal/models"
	"github.com/noah-isme/clinic-api/internal/repository"
)

// memReportStore serialises writers per store the way the SQL repository
// serialises them per report row.
type memReportStore struct {
	mu      sync.Mutex
	reports map[string]*models.Report
}

func newMemReportStore() *memReportStore {
	return &memReportStore{reports: make(map[string]*models.Report)}
}

func copyReport(r *models.Report) *models.Report {
	out := *r
	out.Versions = make([]models.ReportVersion, len(r.Versions))
	for i, v := range r.Versions {
		v.Status = v.Status.Clone()
		out.Versions[i] = v
	}
	return &out
}

func (s *memReportStore) Create(ctx context.Context, report *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[report.ID]; ok {
		return fmt.Errorf("duplicate report %s", report.ID)
	}
	s.reports[report.ID] = copyReport(report)
	return nil
}

func (s *memReportStore) AppendVersion(ctx context.Context, reportID string, status models.StatusMap, description string, at time.Time) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.reports[reportID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	next := 1
	if cur := stored.CurrentVersion(); cur != nil {
		next = cur.Version + 1
	}
	stored.Versions = append(stored.Versions, models.ReportVersion{
		ReportID:    reportID,
		Version:     next,
		Status:      status.Clone(),
		Description: description,
		UpdatedAt:   at,
	})
	stored.UpdatedAt = at
	return copyReport(stored), nil
}

func (s *memReportStore) FindByID(ctx context.Context, id string) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.reports[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return copyReport(stored), nil
}

func (s *memReportStore) ListByPatient(ctx context.Context, patientID string) ([]models.Report, error) {
	items, _, err := s.List(ctx, models.ReportFilter{PatientID: patientID})
	return items, err
}

func (s *memReportStore) List(ctx context.Context, filter models.ReportFilter) ([]models.Report, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Report
	for _, r := range s.reports {
		if filter.PatientID != "" && r.PatientID != filter.PatientID {
			continue
		}
		if filter.DoctorID != "" && r.DoctorID != filter.DoctorID {
			continue
		}
		out = append(out, *copyReport(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, len(out), nil
}

// memAppointmentStore keeps appointments and the slot registry under one
// lock, mirroring the single transaction used by the SQL repository.
type memAppointmentStore struct {
	mu    sync.Mutex
	appts map[string]*models.Appointment
	slots map[string]map[string]string // doctor -> date|time -> appointment
}

func newMemAppointmentStore(appts ...models.Appointment) *memAppointmentStore {
	s := &memAppointmentStore{appts: make(map[string]*models.Appointment), slots: make(map[string]map[string]string)}
	for i := range appts {
		a := appts[i]
		s.appts[a.ID] = &a
		if !a.Cancelled {
			s.claim(a.DoctorID, a.SlotDate, a.SlotTime, a.ID)
		}
	}
	return s
}

func slotKey(date, slotTime string) string { return date + "|" + slotTime }

func (s *memAppointmentStore) claim(doctorID, date, slotTime, apptID string) {
	if s.slots[doctorID] == nil {
		s.slots[doctorID] = make(map[string]string)
	}
	s.slots[doctorID][slotKey(date, slotTime)] = apptID
}

func (s *memAppointmentStore) registry(doctorID string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.slots[doctorID]))
	for k, v := range s.slots[doctorID] {
		out[k] = v
	}
	return out
}

func (s *memAppointmentStore) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (s *memAppointmentStore) Book(ctx context.Context, appt *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.slots[appt.DoctorID][slotKey(appt.SlotDate, appt.SlotTime)]; taken {
		return repository.ErrSlotTaken
	}
	s.claim(appt.DoctorID, appt.SlotDate, appt.SlotTime, appt.ID)
	cp := *appt
	s.appts[appt.ID] = &cp
	return nil
}

func (s *memAppointmentStore) Cancel(ctx context.Context, id string, at time.Time) (*repository.CancelOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := &repository.CancelOutcome{AlreadyCancelled: a.Cancelled}
	if !a.Cancelled {
		a.Cancelled = true
		a.UpdatedAt = at
	}
	key := slotKey(a.SlotDate, a.SlotTime)
	if holder, ok := s.slots[a.DoctorID][key]; ok && holder == id {
		delete(s.slots[a.DoctorID], key)
		out.SlotsReleased = 1
	}
	out.Appointment = *a
	return out, nil
}

func (s *memAppointmentStore) Complete(ctx context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appts[id]
	if !ok || a.Cancelled {
		return false, nil
	}
	a.IsCompleted = true
	a.UpdatedAt = at
	return true, nil
}

func (s *memAppointmentStore) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Appointment
	for _, a := range s.appts {
		if filter.PatientID != "" && a.PatientID != filter.PatientID {
			continue
		}
		if filter.DoctorID != "" && a.DoctorID != filter.DoctorID {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].BookedAt.Equal(out[j].BookedAt) {
			return out[i].BookedAt.After(out[j].BookedAt)
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *memAppointmentStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.appts), nil
}

func (s *memAppointmentStore) BookedSlots(ctx context.Context, doctorID string) (models.SlotRegistry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := models.SlotRegistry{}
	for key := range s.slots[doctorID] {
		var date, slotTime string
		for i := 0; i < len(key); i++ {
			if key[i] == '|' {
				date, slotTime = key[:i], key[i+1:]
				break
			}
		}
		out[date] = append(out[date], slotTime)
	}
	return out, nil
}

type memPatients struct {
	byID map[string]*models.Patient
	err  error
}

func newMemPatients(patients ...models.Patient) *memPatients {
	m := &memPatients{byID: make(map[string]*models.Patient)}
	for i := range patients {
		p := patients[i]
		m.byID[p.ID] = &p
	}
	return m
}

func (m *memPatients) FindByID(ctx context.Context, id string) (*models.Patient, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (m *memPatients) FindByIDs(ctx context.Context, ids []string) (map[string]*models.Patient, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]*models.Patient, len(ids))
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

type memDoctors struct {
	byID map[string]*models.Doctor
}

func newMemDoctors(doctors ...models.Doctor) *memDoctors {
	m := &memDoctors{byID: make(map[string]*models.Doctor)}
	for i := range doctors {
		d := doctors[i]
		m.byID[d.ID] = &d
	}
	return m
}

func (m *memDoctors) FindByID(ctx context.Context, id string) (*models.Doctor, error) {
	d, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *d
	return &cp, nil
}

func (m *memDoctors) FindByIDs(ctx context.Context, ids []string) (map[string]*models.Doctor, error) {
	out := make(map[string]*models.Doctor, len(ids))
	for _, id := range ids {
		if d, ok := m.byID[id]; ok {
			cp := *d
			out[id] = &cp
		}
	}
	return out, nil
}

type auditRecorder struct {
	mu      sync.Mutex
	entries []models.AuditLog
	err     error
}

func (a *auditRecorder) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.entries = append(a.entries, *log)
	return nil
}

func (a *auditRecorder) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}

type counterMetrics struct {
	created  atomic.Int64
	appended atomic.Int64
	released atomic.Int64
}

func (m *counterMetrics) ReportCreated()         { m.created.Add(1) }
func (m *counterMetrics) ReportVersionAppended() { m.appended.Add(1) }
func (m *counterMetrics) SlotsReleased(n int64)  { m.released.Add(n) }

// tickingClock returns a clock that advances one second per call.
func tickingClock(start time.Time) func() time.Time {
	var ticks atomic.Int64
	return func() time.Time {
		return start.Add(time.Duration(ticks.Add(1)) * time.Second)
	}
}
