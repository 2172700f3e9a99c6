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

// FeeStructureHandler exposes standard fee schedule endpoints.
type FeeStructureHandler struct {
	structures *service.FeeStructureService
}

// NewFeeStructureHandler constructs FeeStructureHandler.
func NewFeeStructureHandler(structures *service.FeeStructureService) *FeeStructureHandler {
	return &FeeStructureHandler{structures: structures}
}

// Get godoc
// @Summary Get the fee structure for a grade and term
// @Tags FeeStructures
// @Produce json
// @Param gradeId query int true "Grade ID"
// @Param termId query int true "Term ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fee-structures [get]
func (h *FeeStructureHandler) Get(c *gin.Context) {
	gradeID, err := strconv.ParseInt(c.Query("gradeId"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grade id"))
		return
	}
	termID, err := strconv.ParseInt(c.Query("termId"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid term id"))
		return
	}

	fs, err := h.structures.Get(c.Request.Context(), middleware.TenantScope(c), gradeID, termID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fs, nil)
}

// ListByTerm godoc
// @Summary List fee structures for a term
// @Tags FeeStructures
// @Produce json
// @Param termId path int true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /fee-structures/term/{termId} [get]
func (h *FeeStructureHandler) ListByTerm(c *gin.Context) {
	termID, err := strconv.ParseInt(c.Param("termId"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid term id"))
		return
	}

	structures, err := h.structures.ListByTerm(c.Request.Context(), middleware.TenantScope(c), termID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, structures, nil)
}

// Upsert godoc
// @Summary Create or replace the fee structure for a grade and term
// @Tags FeeStructures
// @Accept json
// @Produce json
// @Param payload body service.UpsertFeeStructureRequest true "Fee structure payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fee-structures [put]
func (h *FeeStructureHandler) Upsert(c *gin.Context) {
	var req service.UpsertFeeStructureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid fee structure payload"))
		return
	}

	fs, err := h.structures.Upsert(c.Request.Context(), middleware.TenantScope(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fs, nil)
}
