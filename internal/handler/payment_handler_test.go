package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Kimshubb/jps-erp-api/internal/dto"
	"github.com/Kimshubb/jps-erp-api/internal/middleware"
	"github.com/Kimshubb/jps-erp-api/internal/models"
	"github.com/Kimshubb/jps-erp-api/internal/repository"
	"github.com/Kimshubb/jps-erp-api/internal/service"
	appErrors "github.com/Kimshubb/jps-erp-api/pkg/errors"
)

type paymentServiceMock struct {
	receipt    *dto.PaymentReceipt
	receiptErr error
	payments   []models.FeePayment
	listErr    error

	gotScope repository.Tenant
	gotActor string
	gotReq   service.NewPaymentRequest
}

func (m *paymentServiceMock) NewPayment(ctx context.Context, scope repository.Tenant, actorID string, req service.NewPaymentRequest) (*dto.PaymentReceipt, error) {
	m.gotScope = scope
	m.gotActor = actorID
	m.gotReq = req
	return m.receipt, m.receiptErr
}

func (m *paymentServiceMock) ListForStudent(ctx context.Context, scope repository.Tenant, studentID string) ([]models.FeePayment, error) {
	m.gotScope = scope
	return m.payments, m.listErr
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestPaymentHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &paymentServiceMock{
		receipt: &dto.PaymentReceipt{
			PaymentID:     "pay-1",
			StudentID:     "JPS-001",
			TermID:        7,
			Method:        "Mpesa",
			Amount:        decimal.RequireFromString("3000"),
			BalanceBefore: decimal.RequireFromString("9500"),
			BalanceAfter:  decimal.RequireFromString("6500"),
			CFBalance:     decimal.RequireFromString("6500"),
		},
	}
	h := NewPaymentHandler(mockSvc)

	code := "QW12345"
	payload, _ := json.Marshal(service.NewPaymentRequest{
		StudentID: "JPS-001",
		Method:    models.PaymentMethodMpesa,
		Amount:    decimal.RequireFromString("3000"),
		Code:      &code,
	})
	c, w := newGinContext(http.MethodPost, "/payments", payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "bursar-1", SchoolID: 1, Role: models.RoleBursar})

	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, int64(1), mockSvc.gotScope.SchoolID)
	require.Equal(t, "bursar-1", mockSvc.gotActor)
	require.Equal(t, "JPS-001", mockSvc.gotReq.StudentID)
}

func TestPaymentHandlerCreateRejectsBadPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewPaymentHandler(&paymentServiceMock{})

	c, w := newGinContext(http.MethodPost, "/payments", []byte("{not json"))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "bursar-1", SchoolID: 1, Role: models.RoleBursar})

	h.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentHandlerCreatePropagatesServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &paymentServiceMock{receiptErr: appErrors.ErrDuplicateTxnCode}
	h := NewPaymentHandler(mockSvc)

	payload, _ := json.Marshal(service.NewPaymentRequest{
		StudentID: "JPS-001",
		Method:    models.PaymentMethodMpesa,
		Amount:    decimal.RequireFromString("3000"),
	})
	c, w := newGinContext(http.MethodPost, "/payments", payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "bursar-1", SchoolID: 1, Role: models.RoleBursar})

	h.Create(c)
	require.Equal(t, appErrors.ErrDuplicateTxnCode.Status, w.Code)
}

func TestPaymentHandlerListForStudent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &paymentServiceMock{
		payments: []models.FeePayment{{ID: "pay-1", StudentID: "JPS-001"}},
	}
	h := NewPaymentHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/students/JPS-001/payments", nil)
	c.Params = gin.Params{{Key: "id", Value: "JPS-001"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "bursar-1", SchoolID: 1, Role: models.RoleBursar})

	h.ListForStudent(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, int64(1), mockSvc.gotScope.SchoolID)
}
