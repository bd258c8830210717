package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clinic-api/internal/dto"
	"github.com/noah-isme/clinic-api/internal/middleware"
	"github.com/noah-isme/clinic-api/internal/models"
	appErrors "github.com/noah-isme/clinic-api/pkg/errors"
	"github.com/noah-isme/clinic-api/pkg/response"
)

type reportService interface {
	Create(ctx context.Context, actor *models.Principal, req dto.CreateReportRequest, meta models.RequestMeta) (*dto.ReportView, error)
	AppendVersion(ctx context.Context, actor *models.Principal, reportID string, req dto.AppendVersionRequest, meta models.RequestMeta) (*dto.ReportView, error)
	ListForPatient(ctx context.Context, actor *models.Principal, patientID string) ([]dto.ReportView, error)
	Get(ctx context.Context, actor *models.Principal, reportID string) (*dto.ReportDetail, error)
	RenderPDF(ctx context.Context, actor *models.Principal, reportID string, version int) (*dto.ExportFile, error)
	AdminList(ctx context.Context, actor *models.Principal, query dto.ReportListQuery) ([]dto.ReportView, *models.Pagination, error)
	Export(ctx context.Context, actor *models.Principal, format dto.ExportFormat) (*dto.ExportFile, error)
}

type reportEditingService interface {
	Resolve(ctx context.Context, actor *models.Principal, patientID, appointmentID string) (*dto.ReportEditingContext, error)
}

// ReportHandler exposes medical report endpoints for the profile and admin channels.
type ReportHandler struct {
	reports reportService
	editing reportEditingService
}

// NewReportHandler constructs a report handler.
func NewReportHandler(reports reportService, editing reportEditingService) *ReportHandler {
	return &ReportHandler{reports: reports, editing: editing}
}

// Create godoc
// @Summary Create a medical report
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.CreateReportRequest true "Report payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /reports [post]
func (h *ReportHandler) Create(c *gin.Context) {
	var req dto.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid report payload"))
		return
	}
	view, err := h.reports.Create(c.Request.Context(), principalFromContext(c), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, view)
}

// Update godoc
// @Summary Append a new version to a report
// @Tags Reports
// @Accept json
// @Produce json
// @Param id path string true "Report ID"
// @Param payload body dto.AppendVersionRequest true "Version payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/{id} [put]
func (h *ReportHandler) Update(c *gin.Context) {
	var req dto.AppendVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid report payload"))
		return
	}
	view, err := h.reports.AppendVersion(c.Request.Context(), principalFromContext(c), c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// ListForPatient godoc
// @Summary List a patient's reports, latest first
// @Tags Reports
// @Produce json
// @Param patientId path string true "Patient ID"
// @Success 200 {object} response.Envelope
// @Router /reports/patient/{patientId} [get]
func (h *ReportHandler) ListForPatient(c *gin.Context) {
	views, err := h.reports.ListForPatient(c.Request.Context(), principalFromContext(c), c.Param("patientId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get a report with its references
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Router /reports/{id} [get]
func (h *ReportHandler) Get(c *gin.Context) {
	detail, err := h.reports.Get(c.Request.Context(), principalFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// PDF godoc
// @Summary Download a report version as PDF
// @Tags Reports
// @Produce application/pdf
// @Param id path string true "Report ID"
// @Param version query int false "Version number (defaults to current)"
// @Success 200 {file} file
// @Router /reports/{id}/pdf [get]
func (h *ReportHandler) PDF(c *gin.Context) {
	version := 0
	if raw := strings.TrimSpace(c.Query("version")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "version must be a positive integer"))
			return
		}
		version = n
	}
	file, err := h.reports.RenderPDF(c.Request.Context(), principalFromContext(c), c.Param("id"), version)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}

// Editing godoc
// @Summary Resolve the report editor context for a doctor
// @Tags Reports
// @Produce json
// @Param patientId query string true "Patient ID"
// @Param appointmentId query string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /reports/editing [get]
func (h *ReportHandler) Editing(c *gin.Context) {
	ctx, err := h.editing.Resolve(c.Request.Context(), principalFromContext(c), c.Query("patientId"), c.Query("appointmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ctx, nil)
}

// AdminList godoc
// @Summary List all reports
// @Tags Admin
// @Produce json
// @Param patientId query string false "Patient filter"
// @Param doctorId query string false "Doctor filter"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/reports [get]
func (h *ReportHandler) AdminList(c *gin.Context) {
	var query dto.ReportListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, invalidPayload(err, "invalid query parameters"))
		return
	}
	views, pagination, err := h.reports.AdminList(c.Request.Context(), principalFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, pagination, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Export all reports
// @Tags Admin
// @Produce octet-stream
// @Param format query string false "csv, xlsx or pdf"
// @Success 200 {file} file
// @Router /admin/reports/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	format := dto.ExportFormat(strings.ToLower(strings.TrimSpace(c.Query("format"))))
	file, err := h.reports.Export(c.Request.Context(), principalFromContext(c), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}
