package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clinic-api/internal/dto"
	"github.com/noah-isme/clinic-api/internal/models"
	"github.com/noah-isme/clinic-api/pkg/response"
)

type appointmentService interface {
	Book(ctx context.Context, actor *models.Principal, req dto.BookAppointmentRequest, meta models.RequestMeta) (*models.Appointment, error)
	Cancel(ctx context.Context, actor *models.Principal, appointmentID string, meta models.RequestMeta) (*dto.CancelResult, error)
	Complete(ctx context.Context, actor *models.Principal, appointmentID string, meta models.RequestMeta) error
	ListForPatient(ctx context.Context, actor *models.Principal) ([]models.Appointment, error)
	ListForDoctor(ctx context.Context, actor *models.Principal, query dto.AppointmentQuery) ([]models.Appointment, error)
	ListAll(ctx context.Context, actor *models.Principal, query dto.AppointmentQuery) ([]models.Appointment, error)
	DoctorDashboard(ctx context.Context, actor *models.Principal) (*dto.DoctorDashboard, error)
}

// AppointmentHandler serves booking, cancellation and appointment listings.
type AppointmentHandler struct {
	service appointmentService
}

// NewAppointmentHandler constructs an appointment handler.
func NewAppointmentHandler(service appointmentService) *AppointmentHandler {
	return &AppointmentHandler{service: service}
}

// Book godoc
// @Summary Book a doctor slot
// @Tags Appointments
// @Accept json
// @Produce json
// @Param payload body dto.BookAppointmentRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /user/book-appointment [post]
func (h *AppointmentHandler) Book(c *gin.Context) {
	var req dto.BookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid booking payload"))
		return
	}
	appt, err := h.service.Book(c.Request.Context(), principalFromContext(c), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, appt)
}

// Cancel godoc
// @Summary Cancel an appointment and release its slot
// @Description Shared by the patient, doctor and admin cancel routes.
// @Tags Appointments
// @Accept json
// @Produce json
// @Param payload body dto.AppointmentActionRequest true "Appointment"
// @Success 200 {object} response.Envelope
// @Router /user/cancel-appointment [post]
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	var req dto.AppointmentActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid appointment payload"))
		return
	}
	result, err := h.service.Cancel(c.Request.Context(), principalFromContext(c), req.AppointmentID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Complete godoc
// @Summary Mark an appointment completed
// @Tags Appointments
// @Accept json
// @Produce json
// @Param payload body dto.AppointmentActionRequest true "Appointment"
// @Success 200 {object} response.Envelope
// @Router /doctor/complete-appointment [post]
func (h *AppointmentHandler) Complete(c *gin.Context) {
	var req dto.AppointmentActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid appointment payload"))
		return
	}
	if err := h.service.Complete(c.Request.Context(), principalFromContext(c), req.AppointmentID, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "appointment completed")
}

// ListMine godoc
// @Summary List the calling patient's appointments
// @Tags Appointments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /user/appointments [get]
func (h *AppointmentHandler) ListMine(c *gin.Context) {
	items, err := h.service.ListForPatient(c.Request.Context(), principalFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// ListForDoctor godoc
// @Summary List the calling doctor's appointments
// @Tags Appointments
// @Produce json
// @Param search query string false "Patient name or email"
// @Success 200 {object} response.Envelope
// @Router /doctor/appointments [get]
func (h *AppointmentHandler) ListForDoctor(c *gin.Context) {
	h.list(c, h.service.ListForDoctor)
}

// ListAll godoc
// @Summary List every appointment
// @Tags Admin
// @Produce json
// @Param search query string false "Patient name or email"
// @Success 200 {object} response.Envelope
// @Router /admin/appointments [get]
func (h *AppointmentHandler) ListAll(c *gin.Context) {
	h.list(c, h.service.ListAll)
}

func (h *AppointmentHandler) list(c *gin.Context, fn func(context.Context, *models.Principal, dto.AppointmentQuery) ([]models.Appointment, error)) {
	var query dto.AppointmentQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, invalidPayload(err, "invalid query parameters"))
		return
	}
	items, err := fn(c.Request.Context(), principalFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// DoctorDashboard godoc
// @Summary Doctor practice dashboard
// @Tags Appointments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /doctor/dashboard [get]
func (h *AppointmentHandler) DoctorDashboard(c *gin.Context) {
	dash, err := h.service.DoctorDashboard(c.Request.Context(), principalFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dash, nil)
}
