package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-crm-api/internal/service"
	appErrors "github.com/noah-isme/school-crm-api/pkg/errors"
	"github.com/noah-isme/school-crm-api/pkg/response"
)

// BellHandler manages bell schedule endpoints.
type BellHandler struct {
	service *service.BellService
}

// NewBellHandler constructs handler.
func NewBellHandler(svc *service.BellService) *BellHandler {
	return &BellHandler{service: svc}
}

// List godoc
// @Summary List bell schedule
// @Tags Bells
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /bells [get]
func (h *BellHandler) List(c *gin.Context) {
	bells, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bells, nil)
}

// Create godoc
// @Summary Create bell entry
// @Tags Bells
// @Accept json
// @Produce json
// @Param payload body service.CreateBellRequest true "Bell payload"
// @Success 201 {object} response.Envelope
// @Router /bells [post]
func (h *BellHandler) Create(c *gin.Context) {
	var req service.CreateBellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	bell, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, bell)
}

// Delete godoc
// @Summary Delete bell entry
// @Tags Bells
// @Produce json
// @Param id path string true "Bell ID"
// @Success 204
// @Router /bells/{id} [delete]
func (h *BellHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
