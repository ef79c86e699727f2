package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-crm-api/internal/models"
	"github.com/noah-isme/school-crm-api/internal/service"
	appErrors "github.com/noah-isme/school-crm-api/pkg/errors"
	"github.com/noah-isme/school-crm-api/pkg/response"
)

// ScheduleHandler manages timetable endpoints.
type ScheduleHandler struct {
	service *service.ScheduleService
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(svc *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// List godoc
// @Summary List lesson slots
// @Tags Schedule
// @Produce json
// @Param classId query string false "Filter by class"
// @Param teacherId query string false "Filter by teacher"
// @Param dayOfWeek query string false "Filter by weekday"
// @Success 200 {object} response.Envelope
// @Router /schedule [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	filter := models.LessonSlotFilter{
		ClassGroupID: c.Query("classId"),
		TeacherID:    c.Query("teacherId"),
		DayOfWeek:    c.Query("dayOfWeek"),
	}

	// Teachers see their own timetable regardless of the filter they sent.
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleTeacher {
		filter.TeacherID = claims.UserID
	}

	slots, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// Create godoc
// @Summary Create lesson slot
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body service.CreateLessonSlotRequest true "Slot payload"
// @Success 201 {object} response.Envelope
// @Router /schedule [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req service.CreateLessonSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	slot, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// Delete godoc
// @Summary Delete lesson slot
// @Tags Schedule
// @Produce json
// @Param id path string true "Slot ID"
// @Success 204
// @Router /schedule/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
