package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-crm-api/internal/models"
	"github.com/noah-isme/school-crm-api/internal/service"
	appErrors "github.com/noah-isme/school-crm-api/pkg/errors"
	"github.com/noah-isme/school-crm-api/pkg/response"
)

// AttendanceHandler manages attendance endpoints.
type AttendanceHandler struct {
	service *service.AttendanceService
}

// NewAttendanceHandler constructs handler.
func NewAttendanceHandler(svc *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// Mark godoc
// @Summary Mark attendance for a student
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.MarkAttendanceRequest true "Attendance payload"
// @Success 201 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	mark, err := h.service.Mark(c.Request.Context(), claims.UserID, claims.Role, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, mark)
}

// List godoc
// @Summary List attendance marks
// @Tags Attendance
// @Produce json
// @Param classId query string false "Filter by class"
// @Param date query string false "Filter by date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	var filter models.AttendanceFilter
	filter.ClassGroupID = c.Query("classId")
	if raw := c.Query("date"); raw != "" {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
			return
		}
		filter.Date = &date
	}

	marks, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, marks, nil)
}
