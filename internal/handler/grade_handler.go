package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-crm-api/internal/service"
	appErrors "github.com/noah-isme/school-crm-api/pkg/errors"
	"github.com/noah-isme/school-crm-api/pkg/response"
)

// GradeHandler manages gradebook endpoints.
type GradeHandler struct {
	service *service.GradeService
}

// NewGradeHandler constructs handler.
func NewGradeHandler(svc *service.GradeService) *GradeHandler {
	return &GradeHandler{service: svc}
}

// Upsert godoc
// @Summary Write a daily grade
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body service.UpsertGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Router /grades [post]
func (h *GradeHandler) Upsert(c *gin.Context) {
	var req service.UpsertGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	grade, err := h.service.Upsert(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade, nil)
}

// UpsertFinal godoc
// @Summary Write a period grade
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body service.UpsertFinalGradeRequest true "Final grade payload"
// @Success 200 {object} response.Envelope
// @Router /grades/final [post]
func (h *GradeHandler) UpsertFinal(c *gin.Context) {
	var req service.UpsertFinalGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	final, err := h.service.UpsertFinal(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, final, nil)
}

// Matrix godoc
// @Summary Class gradebook matrix
// @Tags Grades
// @Produce json
// @Param classId query string true "Class ID"
// @Param subjectId query string true "Subject ID"
// @Param period query string true "Period name (Q1, Q2, YEAR)"
// @Success 200 {object} response.Envelope
// @Router /grades/matrix [get]
func (h *GradeHandler) Matrix(c *gin.Context) {
	classID := c.Query("classId")
	subjectID := c.Query("subjectId")
	period := c.Query("period")
	if classID == "" || subjectID == "" || period == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "classId, subjectId and period are required"))
		return
	}
	matrix, err := h.service.Matrix(c.Request.Context(), classID, subjectID, period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, matrix, nil)
}
