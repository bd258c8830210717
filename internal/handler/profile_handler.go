package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clinic-api/internal/dto"
	"github.com/noah-isme/clinic-api/internal/models"
	"github.com/noah-isme/clinic-api/pkg/response"
)

type profileService interface {
	Get(ctx context.Context, actor *models.Principal) (*dto.Profile, error)
	Update(ctx context.Context, actor *models.Principal, req dto.ProfileUpdateRequest, meta models.RequestMeta) (*dto.Profile, error)
}

const (
	currentPasswordField = "currentPassword"
	newPasswordField     = "newPassword"
)

// ProfileHandler serves the caller's own patient or doctor profile.
type ProfileHandler struct {
	service profileService
}

// NewProfileHandler constructs a profile handler.
func NewProfileHandler(service profileService) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// Get godoc
// @Summary Get the caller's profile
// @Tags Profile
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /profile [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	profile, err := h.service.Get(c.Request.Context(), principalFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// Update godoc
// @Summary Update the caller's profile
// @Description Accepts JSON or multipart/form-data with an optional image part.
// @Tags Profile
// @Accept json,mpfd
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /profile [put]
func (h *ProfileHandler) Update(c *gin.Context) {
	req, closer, err := bindProfileUpdate(c)
	defer closer.Close()
	if err != nil {
		response.Error(c, err)
		return
	}
	profile, err := h.service.Update(c.Request.Context(), principalFromContext(c), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

func bindProfileUpdate(c *gin.Context) (dto.ProfileUpdateRequest, io.Closer, error) {
	var req dto.ProfileUpdateRequest
	fields := map[string]interface{}{}

	if isMultipart(c) {
		if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
			return req, nopCloser{}, invalidPayload(err, "invalid profile form")
		}
		for key, values := range c.Request.MultipartForm.Value {
			if len(values) > 0 {
				fields[key] = values[0]
			}
		}
		image, closer, err := formImage(c)
		if err != nil {
			return req, closer, err
		}
		req.Image = image
		req.Fields = fields
		req.CurrentPassword, _ = fields[currentPasswordField].(string)
		req.NewPassword, _ = fields[newPasswordField].(string)
		return req, closer, nil
	}

	decoder := json.NewDecoder(c.Request.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&fields); err != nil {
		return req, nopCloser{}, invalidPayload(err, "invalid profile payload")
	}
	req.Fields = fields
	req.CurrentPassword, _ = fields[currentPasswordField].(string)
	req.NewPassword, _ = fields[newPasswordField].(string)
	return req, nopCloser{}, nil
}
