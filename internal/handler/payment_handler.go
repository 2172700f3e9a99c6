package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kimshubb/jps-erp-api/internal/dto"
	"github.com/Kimshubb/jps-erp-api/internal/middleware"
	"github.com/Kimshubb/jps-erp-api/internal/models"
	"github.com/Kimshubb/jps-erp-api/internal/repository"
	"github.com/Kimshubb/jps-erp-api/internal/service"
	appErrors "github.com/Kimshubb/jps-erp-api/pkg/errors"
	"github.com/Kimshubb/jps-erp-api/pkg/response"
)

type paymentService interface {
	NewPayment(ctx context.Context, scope repository.Tenant, actorID string, req service.NewPaymentRequest) (*dto.PaymentReceipt, error)
	ListForStudent(ctx context.Context, scope repository.Tenant, studentID string) ([]models.FeePayment, error)
}

// PaymentHandler exposes fee payment endpoints.
type PaymentHandler struct {
	payments paymentService
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(payments paymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Create godoc
// @Summary Record a fee payment
// @Description Applies the payment against the student's balance for the current term and returns a receipt
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body service.NewPaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /payments [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	var req service.NewPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}

	receipt, err := h.payments.NewPayment(c.Request.Context(), middleware.TenantScope(c), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, receipt)
}

// ListForStudent godoc
// @Summary List a student's payments in the current term
// @Tags Payments
// @Produce json
// @Param id path string true "Admission number"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/payments [get]
func (h *PaymentHandler) ListForStudent(c *gin.Context) {
	payments, err := h.payments.ListForStudent(c.Request.Context(), middleware.TenantScope(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, nil)
}
