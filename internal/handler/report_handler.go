package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-crm-api/internal/service"
	appErrors "github.com/noah-isme/school-crm-api/pkg/errors"
	"github.com/noah-isme/school-crm-api/pkg/response"
)

// ReportHandler manages report endpoints.
type ReportHandler struct {
	service *service.ReportService
}

// NewReportHandler constructs handler.
func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// View godoc
// @Summary View class report
// @Tags Reports
// @Produce json
// @Param class_group_id query string true "Class ID"
// @Param report_type query string true "grades or attendance"
// @Param start_date query string true "Start date (YYYY-MM-DD)"
// @Param end_date query string true "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /reports/view [get]
func (h *ReportHandler) View(c *gin.Context) {
	var req service.ReportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report query"))
		return
	}
	report, err := h.service.View(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Export godoc
// @Summary Export class report as a file
// @Tags Reports
// @Produce application/octet-stream
// @Param class_group_id query string true "Class ID"
// @Param report_type query string true "grades or attendance"
// @Param start_date query string true "Start date (YYYY-MM-DD)"
// @Param end_date query string true "End date (YYYY-MM-DD)"
// @Param format query string false "xlsx, csv or pdf (default xlsx)"
// @Success 200 {file} binary
// @Router /reports/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	var req service.ReportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report query"))
		return
	}
	result, err := h.service.Export(c.Request.Context(), req, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}

	// Filename is percent-encoded so class names survive the header.
	c.Header("Content-Disposition", "attachment; filename="+url.PathEscape(result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
