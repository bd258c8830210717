package service

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/noah-isme/clinic-api/internal/models"
)

var titleCaser = cases.Title(language.Und)

// RefreshDisplaySnapshot overlays each appointment's cached patient snapshot
// with the patient's current profile. The input slice and its snapshots are
// left untouched; callers get copies. When format is set, names that had to
// be derived from an email address are made human readable.
func RefreshDisplaySnapshot(appointments []models.Appointment, patients map[string]*models.Patient, format bool) []models.Appointment {
	out := make([]models.Appointment, len(appointments))
	for i, appt := range appointments {
		snap := appt.PatientSnapshot
		live := patients[appt.PatientID]

		if live != nil {
			if email := strings.TrimSpace(live.Email); email != "" {
				snap.Email = email
			}
			if image := strings.TrimSpace(live.Image); image != "" {
				snap.Image = image
			}
			if dob := strings.TrimSpace(live.DOB); dob != "" {
				snap.DOB = dob
			}
		}

		name, derived := displayName(live, appt.PatientSnapshot)
		if derived && format {
			name = FormatDisplayName(name)
		}
		snap.Name = name

		appt.PatientSnapshot = snap
		out[i] = appt
	}
	return out
}

// displayName picks the live name, then the cached one, then the email local
// part. derived is true only for the last case.
func displayName(live *models.Patient, cached models.PatientSnapshot) (name string, derived bool) {
	if live != nil {
		if n := strings.TrimSpace(live.Name); n != "" {
			return n, false
		}
	}
	if n := strings.TrimSpace(cached.Name); n != "" {
		return n, false
	}
	email := cached.Email
	if live != nil && strings.TrimSpace(live.Email) != "" {
		email = live.Email
	}
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	return local, local != ""
}

// FormatDisplayName turns an identifier such as "jane.doe" or "johnSmith_2"
// into "Jane Doe" / "John Smith 2".
func FormatDisplayName(raw string) string {
	var b strings.Builder
	var prev rune
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r == '.' || r == '_' || r == '-':
			r = ' '
		case i > 0 && unicode.IsUpper(r) && unicode.IsLower(prev):
			b.WriteRune(' ')
		}
		b.WriteRune(r)
		prev = r
	}
	return titleCaser.String(strings.Join(strings.Fields(b.String()), " "))
}
