package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Kimshubb/jps-erp-api/internal/dto"
	"github.com/Kimshubb/jps-erp-api/internal/fees"
	"github.com/Kimshubb/jps-erp-api/internal/models"
	"github.com/Kimshubb/jps-erp-api/internal/repository"
	appErrors "github.com/Kimshubb/jps-erp-api/pkg/errors"
)

type paymentRepository interface {
	MpesaCodeExists(ctx context.Context, scope repository.Tenant, code string) (bool, error)
	ApplyPayment(ctx context.Context, scope repository.Tenant, payment *models.FeePayment, standardFees, additionalFees decimal.Decimal, mpesa *models.MpesaTransaction) error
	ListForStudentTerm(ctx context.Context, scope repository.Tenant, studentID string, termID int64) ([]models.FeePayment, error)
}

type paymentAuditRepository interface {
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
}

// NewPaymentRequest is the payload for recording a fee payment.
type NewPaymentRequest struct {
	StudentID string               `json:"student_id" validate:"required"`
	Method    models.PaymentMethod `json:"method" validate:"required"`
	Amount    decimal.Decimal      `json:"amount"`
	Code      *string              `json:"code,omitempty"`
	PayDate   *time.Time           `json:"pay_date,omitempty"`
}

// PaymentService records fee payments against the school's current term.
type PaymentService struct {
	payments      paymentRepository
	students      balanceStudentRepository
	terms         balanceTermRepository
	feeStructures balanceFeeStructureRepository
	additional    balanceAdditionalFeeRepository
	audit         paymentAuditRepository
	cache         *CacheService
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewPaymentService creates a payment service.
func NewPaymentService(payments paymentRepository, students balanceStudentRepository, terms balanceTermRepository, feeStructures balanceFeeStructureRepository, additional balanceAdditionalFeeRepository, audit paymentAuditRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		payments:      payments,
		students:      students,
		terms:         terms,
		feeStructures: feeStructures,
		additional:    additional,
		audit:         audit,
		cache:         cache,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
	}
}

// NewPayment validates and records a payment, updating the student's
// carry-forward balance in the same transaction. The returned receipt carries
// the balance before and after the payment; BalanceAfter keeps its sign even
// when the student overpays, while CFBalance is the floored stored value.
func (s *PaymentService) NewPayment(ctx context.Context, scope repository.Tenant, actorID string, req NewPaymentRequest) (*dto.PaymentReceipt, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	if !req.Method.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported payment method")
	}
	if !req.Amount.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount must be greater than zero")
	}
	if req.Method.RequiresCode() && (req.Code == nil || *req.Code == "") {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s payments require a transaction code", req.Method))
	}

	term, err := s.terms.FindCurrent(ctx, scope)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNoCurrentTerm, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current term")
	}

	student, err := s.students.FindByID(ctx, scope, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStudentNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	// Only mpesa codes enter the dedupe ledger; bank references pass through.
	var mpesa *models.MpesaTransaction
	if req.Method == models.PaymentMethodMpesa {
		exists, err := s.payments.MpesaCodeExists(ctx, scope, *req.Code)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check transaction code")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrDuplicateTxnCode, "")
		}
		mpesa = &models.MpesaTransaction{Code: *req.Code, Amount: req.Amount, Verified: true}
	}

	standard := decimal.Zero
	if fs, err := s.feeStructures.FindByGradeAndTerm(ctx, scope, student.GradeID, term.ID); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee structure")
		}
		s.logger.Warn("no fee structure configured, treating standard fees as zero",
			zap.Int64("school_id", scope.SchoolID),
			zap.Int64("grade_id", student.GradeID),
			zap.Int64("term_id", term.ID))
	} else {
		standard = fees.SumStructure(fs)
	}

	additional, err := s.additional.SumForStudent(ctx, scope, req.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum additional fees")
	}

	payDate := time.Now().UTC()
	if req.PayDate != nil {
		payDate = *req.PayDate
	}

	payment := &models.FeePayment{
		ID:        uuid.NewString(),
		StudentID: req.StudentID,
		TermID:    term.ID,
		Method:    req.Method,
		Amount:    req.Amount,
		Code:      req.Code,
		PayDate:   payDate,
	}

	if err := s.payments.ApplyPayment(ctx, scope, payment, standard, additional, mpesa); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}

	if s.metrics != nil {
		amount, _ := payment.Amount.Float64()
		s.metrics.RecordPayment(string(payment.Method), amount)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, fmt.Sprintf("reports:school:%d:*", scope.SchoolID)); err != nil {
			s.logger.Warn("report cache invalidation failed", zap.Error(err))
		}
	}
	s.recordAudit(ctx, actorID, payment)

	return &dto.PaymentReceipt{
		PaymentID:     payment.ID,
		StudentID:     payment.StudentID,
		TermID:        payment.TermID,
		Method:        string(payment.Method),
		Amount:        payment.Amount,
		BalanceBefore: payment.Balance.Add(payment.Amount),
		BalanceAfter:  payment.Balance,
		CFBalance:     fees.Floor(payment.Balance),
	}, nil
}

// ListForStudent returns a student's payments for the current term.
func (s *PaymentService) ListForStudent(ctx context.Context, scope repository.Tenant, studentID string) ([]models.FeePayment, error) {
	term, err := s.terms.FindCurrent(ctx, scope)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNoCurrentTerm, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current term")
	}
	payments, err := s.payments.ListForStudentTerm(ctx, scope, studentID, term.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	return payments, nil
}

// recordAudit writes the audit trail entry. Failures are logged, not returned;
// the payment has already committed.
func (s *PaymentService) recordAudit(ctx context.Context, actorID string, payment *models.FeePayment) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		ID:         uuid.NewString(),
		Action:     models.AuditActionPaymentCreate,
		Resource:   "fee_payment",
		ResourceID: &payment.ID,
		CreatedAt:  time.Now().UTC(),
	}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to write payment audit log", zap.String("payment_id", payment.ID), zap.Error(err))
	}
}
