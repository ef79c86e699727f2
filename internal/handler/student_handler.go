package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-crm-api/internal/models"
	"github.com/noah-isme/school-crm-api/internal/service"
	appErrors "github.com/noah-isme/school-crm-api/pkg/errors"
	"github.com/noah-isme/school-crm-api/pkg/response"
)

// StudentHandler manages student roster endpoints.
type StudentHandler struct {
	service *service.StudentService
}

// NewStudentHandler constructs handler.
func NewStudentHandler(svc *service.StudentService) *StudentHandler {
	return &StudentHandler{service: svc}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param classId query string false "Filter by class"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	filter := models.StudentFilter{ClassGroupID: c.Query("classId")}
	students, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// Create godoc
// @Summary Enroll student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body service.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req service.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Upload godoc
// @Summary Bulk import students from xlsx
// @Tags Students
// @Accept multipart/form-data
// @Produce json
// @Param classId query string true "Target class"
// @Param file formData file true "Workbook with names in column A"
// @Success 200 {object} response.Envelope
// @Router /students/upload [post]
func (h *StudentHandler) Upload(c *gin.Context) {
	classID := c.Query("classId")
	if classID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "classId query parameter is required"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file upload is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to open upload"))
		return
	}
	defer file.Close()

	result, err := h.service.ImportFromExcel(c.Request.Context(), classID, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Transfer godoc
// @Summary Transfer student to another class
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Param classId query string true "Target class"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/transfer [put]
func (h *StudentHandler) Transfer(c *gin.Context) {
	classID := c.Query("classId")
	if classID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "classId query parameter is required"))
		return
	}
	student, err := h.service.Transfer(c.Request.Context(), c.Param("id"), classID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}
