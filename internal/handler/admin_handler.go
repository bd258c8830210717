package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clinic-api/internal/dto"
	"github.com/noah-isme/clinic-api/internal/models"
	"github.com/noah-isme/clinic-api/pkg/response"
)

type adminService interface {
	Dashboard(ctx context.Context, actor *models.Principal) (*dto.AdminDashboard, error)
	AddDoctor(ctx context.Context, actor *models.Principal, req dto.AddDoctorRequest, meta models.RequestMeta) (*models.Doctor, error)
	ChangeAvailability(ctx context.Context, actor *models.Principal, req dto.ChangeAvailabilityRequest) (bool, error)
	ListUsers(ctx context.Context, actor *models.Principal) ([]models.Patient, error)
	ListDoctors(ctx context.Context, actor *models.Principal) ([]models.Doctor, error)
	PublicDoctors(ctx context.Context) ([]dto.PublicDoctor, error)
	DeleteUser(ctx context.Context, actor *models.Principal, patientID string, meta models.RequestMeta) error
	DeleteDoctor(ctx context.Context, actor *models.Principal, doctorID string, meta models.RequestMeta) error
}

// AdminHandler exposes clinic administration plus the public doctor list.
type AdminHandler struct {
	service adminService
}

// NewAdminHandler constructs an admin handler.
func NewAdminHandler(service adminService) *AdminHandler {
	return &AdminHandler{service: service}
}

// Dashboard godoc
// @Summary Clinic wide dashboard
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/dashboard [get]
func (h *AdminHandler) Dashboard(c *gin.Context) {
	dash, err := h.service.Dashboard(c.Request.Context(), principalFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dash, nil)
}

// AddDoctor godoc
// @Summary Onboard a doctor
// @Description Multipart form with an optional image part; address is sent as JSON text.
// @Tags Admin
// @Accept mpfd,json
// @Produce json
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/add-doctor [post]
func (h *AdminHandler) AddDoctor(c *gin.Context) {
	var req dto.AddDoctorRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid doctor payload"))
		return
	}
	if isMultipart(c) {
		if raw := strings.TrimSpace(c.PostForm("address")); raw != "" {
			if err := json.Unmarshal([]byte(raw), &req.Address); err != nil {
				response.Error(c, invalidPayload(err, "address must be an object with line1 and line2"))
				return
			}
		}
		image, closer, err := formImage(c)
		defer closer.Close()
		if err != nil {
			response.Error(c, err)
			return
		}
		req.Image = image
	}

	doctor, err := h.service.AddDoctor(c.Request.Context(), principalFromContext(c), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doctor)
}

// ChangeAvailability godoc
// @Summary Toggle a doctor's availability
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body dto.ChangeAvailabilityRequest true "Doctor"
// @Success 200 {object} response.Envelope
// @Router /admin/change-availability [post]
func (h *AdminHandler) ChangeAvailability(c *gin.Context) {
	var req dto.ChangeAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid availability payload"))
		return
	}
	available, err := h.service.ChangeAvailability(c.Request.Context(), principalFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"doctorId": req.DoctorID, "available": available}, nil)
}

// ListUsers godoc
// @Summary List patient accounts
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.service.ListUsers(c.Request.Context(), principalFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, nil)
}

// ListDoctors godoc
// @Summary List doctor accounts
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/all-doctors [get]
func (h *AdminHandler) ListDoctors(c *gin.Context) {
	doctors, err := h.service.ListDoctors(c.Request.Context(), principalFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doctors, nil)
}

// PublicDoctors godoc
// @Summary Public doctor directory
// @Tags Doctors
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /doctors [get]
func (h *AdminHandler) PublicDoctors(c *gin.Context) {
	doctors, err := h.service.PublicDoctors(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doctors, nil)
}

// DeleteUser godoc
// @Summary Delete a patient account
// @Tags Admin
// @Param id path string true "Patient ID"
// @Success 204
// @Router /admin/users/{id} [delete]
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	if err := h.service.DeleteUser(c.Request.Context(), principalFromContext(c), c.Param("id"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteDoctor godoc
// @Summary Delete a doctor account
// @Tags Admin
// @Param id path string true "Doctor ID"
// @Success 204
// @Router /admin/doctor/{id} [delete]
func (h *AdminHandler) DeleteDoctor(c *gin.Context) {
	if err := h.service.DeleteDoctor(c.Request.Context(), principalFromContext(c), c.Param("id"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
