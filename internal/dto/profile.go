package dto

import (
	"io"

	"github.com/noah-isme/clinic-api/internal/models"
)

// UploadFile is an image received from a multipart form.
type UploadFile struct {
	Filename string
	Size     int64
	Reader   io.Reader
}

// ProfileUpdateRequest holds the raw submitted fields. Fields outside the
// caller's role allow-list are dropped by the service.
type ProfileUpdateRequest struct {
	Fields          map[string]interface{}
	CurrentPassword string
	NewPassword     string
	Image           *UploadFile
}

// Profile is the caller's own account.
type Profile struct {
	Role    models.Role     `json:"role"`
	Patient *models.Patient `json:"patient,omitempty"`
	Doctor  *models.Doctor  `json:"doctor,omitempty"`
}
