package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Kimshubb/jps-erp-api/internal/dto"
	"github.com/Kimshubb/jps-erp-api/internal/middleware"
	"github.com/Kimshubb/jps-erp-api/internal/models"
	"github.com/Kimshubb/jps-erp-api/internal/repository"
	appErrors "github.com/Kimshubb/jps-erp-api/pkg/errors"
)

type statementServiceMock struct {
	statement *dto.FeeStatement
	data      []byte
	err       error
}

func (m *statementServiceMock) Build(ctx context.Context, scope repository.Tenant, studentID string) (*dto.FeeStatement, error) {
	return m.statement, m.err
}

func (m *statementServiceMock) RenderCSV(ctx context.Context, scope repository.Tenant, studentID string) ([]byte, *dto.FeeStatement, error) {
	return m.data, m.statement, m.err
}

func (m *statementServiceMock) RenderPDF(ctx context.Context, scope repository.Tenant, studentID string) ([]byte, *dto.FeeStatement, error) {
	return m.data, m.statement, m.err
}

func TestStatementHandlerGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &statementServiceMock{
		statement: &dto.FeeStatement{StudentID: "JPS-001", TermName: "Term 2"},
	}
	h := NewStatementHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/students/JPS-001/statement", nil)
	c.Params = gin.Params{{Key: "id", Value: "JPS-001"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "bursar-1", SchoolID: 1, Role: models.RoleBursar})

	h.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestStatementHandlerDownloadCSVSetsHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &statementServiceMock{
		statement: &dto.FeeStatement{StudentID: "JPS-001", TermName: "Term 2"},
		data:      []byte("Date,Method,Code,Amount,Balance\n"),
	}
	h := NewStatementHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/students/JPS-001/statement/csv", nil)
	c.Params = gin.Params{{Key: "id", Value: "JPS-001"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "bursar-1", SchoolID: 1, Role: models.RoleBursar})

	h.DownloadCSV(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	require.Equal(t, `attachment; filename="statement-JPS-001-Term 2.csv"`, w.Header().Get("Content-Disposition"))
	require.Equal(t, mockSvc.data, w.Body.Bytes())
}

func TestStatementHandlerDownloadPDFSetsHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &statementServiceMock{
		statement: &dto.FeeStatement{StudentID: "JPS-001", TermName: "Term 2"},
		data:      []byte("%PDF-1.4"),
	}
	h := NewStatementHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/students/JPS-001/statement/pdf", nil)
	c.Params = gin.Params{{Key: "id", Value: "JPS-001"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "bursar-1", SchoolID: 1, Role: models.RoleBursar})

	h.DownloadPDF(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	require.Equal(t, `attachment; filename="statement-JPS-001-Term 2.pdf"`, w.Header().Get("Content-Disposition"))
}

func TestStatementHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &statementServiceMock{err: appErrors.ErrStudentNotFound}
	h := NewStatementHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/students/NOPE/statement", nil)
	c.Params = gin.Params{{Key: "id", Value: "NOPE"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "bursar-1", SchoolID: 1, Role: models.RoleBursar})

	h.Get(c)
	require.Equal(t, appErrors.ErrStudentNotFound.Status, w.Code)
}
