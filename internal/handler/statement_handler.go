package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kimshubb/jps-erp-api/internal/dto"
	"github.com/Kimshubb/jps-erp-api/internal/middleware"
	"github.com/Kimshubb/jps-erp-api/internal/repository"
	"github.com/Kimshubb/jps-erp-api/pkg/response"
)

type statementService interface {
	Build(ctx context.Context, scope repository.Tenant, studentID string) (*dto.FeeStatement, error)
	RenderCSV(ctx context.Context, scope repository.Tenant, studentID string) ([]byte, *dto.FeeStatement, error)
	RenderPDF(ctx context.Context, scope repository.Tenant, studentID string) ([]byte, *dto.FeeStatement, error)
}

// StatementHandler exposes per-student fee statement endpoints.
type StatementHandler struct {
	statements statementService
}

// NewStatementHandler constructs StatementHandler.
func NewStatementHandler(statements statementService) *StatementHandler {
	return &StatementHandler{statements: statements}
}

// Get godoc
// @Summary Get a student's fee statement
// @Tags Statements
// @Produce json
// @Param id path string true "Admission number"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/statement [get]
func (h *StatementHandler) Get(c *gin.Context) {
	statement, err := h.statements.Build(c.Request.Context(), middleware.TenantScope(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, statement, nil)
}

// DownloadPDF godoc
// @Summary Download a student's fee statement as PDF
// @Tags Statements
// @Produce application/pdf
// @Param id path string true "Admission number"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/statement/pdf [get]
func (h *StatementHandler) DownloadPDF(c *gin.Context) {
	data, statement, err := h.statements.RenderPDF(c.Request.Context(), middleware.TenantScope(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("statement-%s-%s.pdf", statement.StudentID, statement.TermName)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", data)
}

// DownloadCSV godoc
// @Summary Download a student's fee statement as CSV
// @Tags Statements
// @Produce text/csv
// @Param id path string true "Admission number"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/statement/csv [get]
func (h *StatementHandler) DownloadCSV(c *gin.Context) {
	data, statement, err := h.statements.RenderCSV(c.Request.Context(), middleware.TenantScope(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("statement-%s-%s.csv", statement.StudentID, statement.TermName)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", data)
}
