package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Kimshubb/jps-erp-api/internal/middleware"
	"github.com/Kimshubb/jps-erp-api/internal/service"
	appErrors "github.com/Kimshubb/jps-erp-api/pkg/errors"
	"github.com/Kimshubb/jps-erp-api/pkg/response"
)

// AdditionalFeeHandler exposes optional fee endpoints.
type AdditionalFeeHandler struct {
	fees *service.AdditionalFeeService
}

// NewAdditionalFeeHandler constructs AdditionalFeeHandler.
func NewAdditionalFeeHandler(fees *service.AdditionalFeeService) *AdditionalFeeHandler {
	return &AdditionalFeeHandler{fees: fees}
}

// List godoc
// @Summary List optional fees
// @Tags AdditionalFees
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /additional-fees [get]
func (h *AdditionalFeeHandler) List(c *gin.Context) {
	fees, err := h.fees.List(c.Request.Context(), middleware.TenantScope(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fees, nil)
}

// ListForStudent godoc
// @Summary List optional fees a student subscribes to
// @Tags AdditionalFees
// @Produce json
// @Param id path string true "Admission number"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/additional-fees [get]
func (h *AdditionalFeeHandler) ListForStudent(c *gin.Context) {
	fees, err := h.fees.ListForStudent(c.Request.Context(), middleware.TenantScope(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fees, nil)
}

// Create godoc
// @Summary Create an optional fee
// @Tags AdditionalFees
// @Accept json
// @Produce json
// @Param payload body service.CreateAdditionalFeeRequest true "Fee payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /additional-fees [post]
func (h *AdditionalFeeHandler) Create(c *gin.Context) {
	var req service.CreateAdditionalFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid fee payload"))
		return
	}

	fee, err := h.fees.Create(c.Request.Context(), middleware.TenantScope(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, fee)
}

// Assign godoc
// @Summary Subscribe a student to an optional fee
// @Description The fee joins the student's billing from the next balance computation
// @Tags AdditionalFees
// @Produce json
// @Param id path string true "Admission number"
// @Param feeId path int true "Fee ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/additional-fees/{feeId} [post]
func (h *AdditionalFeeHandler) Assign(c *gin.Context) {
	feeID, err := strconv.ParseInt(c.Param("feeId"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid fee id"))
		return
	}

	if err := h.fees.Assign(c.Request.Context(), middleware.TenantScope(c), c.Param("id"), feeID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Unassign godoc
// @Summary Remove a student's optional fee subscription
// @Tags AdditionalFees
// @Produce json
// @Param id path string true "Admission number"
// @Param feeId path int true "Fee ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/additional-fees/{feeId} [delete]
func (h *AdditionalFeeHandler) Unassign(c *gin.Context) {
	feeID, err := strconv.ParseInt(c.Param("feeId"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid fee id"))
		return
	}

	if err := h.fees.Unassign(c.Request.Context(), middleware.TenantScope(c), c.Param("id"), feeID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
