package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// StatusEntry is one clinical measurement, e.g. bp = "120/80".
type StatusEntry struct {
	Key   string
	Value string
}

// StatusMap is an ordered string to string map of clinical measurements.
// It encodes as a JSON object and keeps the order keys were supplied in.
type StatusMap []StatusEntry

// Get returns the value stored under key.
func (m StatusMap) Get(key string) (string, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// Set replaces the value of an existing key or appends a new entry.
func (m StatusMap) Set(key, value string) StatusMap {
	for i := range m {
		if m[i].Key == key {
			m[i].Value = value
			return m
		}
	}
	return append(m, StatusEntry{Key: key, Value: value})
}

// Clone returns an independent copy.
func (m StatusMap) Clone() StatusMap {
	if m == nil {
		return nil
	}
	out := make(StatusMap, len(m))
	copy(out, m)
	return out
}

// MarshalJSON implements json.Marshaler.
func (m StatusMap) MarshalJSON() ([]byte, error) {
	om := orderedmap.New[string, string]()
	for _, e := range m {
		om.Set(e.Key, e.Value)
	}
	return json.Marshal(om)
}

// UnmarshalJSON implements json.Unmarshaler. Numbers and booleans are kept
// in their literal text form; nested objects and arrays are rejected.
func (m *StatusMap) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = nil
		return nil
	}
	if len(data) == 0 || data[0] != '{' {
		return fmt.Errorf("status must be an object")
	}

	om := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(data, om); err != nil {
		return fmt.Errorf("decode status: %w", err)
	}
	out := make(StatusMap, 0, om.Len())
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		value, err := statusScalar(pair.Key, pair.Value)
		if err != nil {
			return err
		}
		out = append(out, StatusEntry{Key: pair.Key, Value: value})
	}
	*m = out
	return nil
}

func statusScalar(key string, raw json.RawMessage) (string, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("status value for %q: %w", key, err)
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		return strconv.FormatBool(t), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("status value for %q must be a scalar", key)
	}
}

// Scan implements sql.Scanner.
func (m *StatusMap) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		return m.UnmarshalJSON(v)
	case string:
		return m.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("unsupported status column type %T", src)
	}
}

// Value implements driver.Valuer.
func (m StatusMap) Value() (driver.Value, error) {
	raw, err := m.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// ReportVersion is an immutable snapshot of a report.
type ReportVersion struct {
	ReportID    string    `db:"report_id" json:"-"`
	Version     int       `db:"version" json:"version"`
	Status      StatusMap `db:"status" json:"status"`
	Description string    `db:"description" json:"description"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// Report is the versioned clinical record for one patient, doctor and
// appointment. Versions are ordered by version number.
type Report struct {
	ID            string          `db:"id" json:"id"`
	PatientID     string          `db:"patient_id" json:"patientId"`
	DoctorID      string          `db:"doctor_id" json:"doctorId"`
	AppointmentID string          `db:"appointment_id" json:"appointmentId"`
	Versions      []ReportVersion `db:"-" json:"versions"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updatedAt"`
}

// CurrentVersion returns the last version or nil for a report without any.
func (r *Report) CurrentVersion() *ReportVersion {
	if r == nil || len(r.Versions) == 0 {
		return nil
	}
	return &r.Versions[len(r.Versions)-1]
}

// VersionByNumber looks up a specific version.
func (r *Report) VersionByNumber(n int) *ReportVersion {
	if r == nil {
		return nil
	}
	for i := range r.Versions {
		if r.Versions[i].Version == n {
			return &r.Versions[i]
		}
	}
	return nil
}

// ReportFilter narrows admin report listings.
type ReportFilter struct {
	PatientID string
	DoctorID  string
	Page      int
	PageSize  int
}
