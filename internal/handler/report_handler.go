package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kimshubb/jps-erp-api/internal/middleware"
	"github.com/Kimshubb/jps-erp-api/internal/service"
	"github.com/Kimshubb/jps-erp-api/pkg/response"
)

// ReportHandler exposes school-wide fee reporting endpoints.
type ReportHandler struct {
	reports *service.FeeReportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.FeeReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// FeeReport godoc
// @Summary Build the fee report for the current term
// @Description Per-grade collection totals, optional fee detail, payment method mix and previous-term comparisons
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/fees [get]
func (h *ReportHandler) FeeReport(c *gin.Context) {
	report, err := h.reports.BuildFeeReport(c.Request.Context(), middleware.TenantScope(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
