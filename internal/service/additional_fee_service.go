package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Kimshubb/jps-erp-api/internal/models"
	"github.com/Kimshubb/jps-erp-api/internal/repository"
	appErrors "github.com/Kimshubb/jps-erp-api/pkg/errors"
)

type additionalFeeRepository interface {
	List(ctx context.Context, scope repository.Tenant) ([]models.AdditionalFee, error)
	FindByID(ctx context.Context, scope repository.Tenant, id int64) (*models.AdditionalFee, error)
	Create(ctx context.Context, scope repository.Tenant, fee *models.AdditionalFee) error
	ListForStudent(ctx context.Context, scope repository.Tenant, studentID string) ([]models.AdditionalFee, error)
	Assign(ctx context.Context, scope repository.Tenant, studentID string, feeID int64) error
	Unassign(ctx context.Context, scope repository.Tenant, studentID string, feeID int64) error
}

type additionalFeeStudentRepository interface {
	ExistsByID(ctx context.Context, scope repository.Tenant, id string) (bool, error)
}

// CreateAdditionalFeeRequest defines a new optional fee.
type CreateAdditionalFeeRequest struct {
	Name   string          `json:"name" validate:"required"`
	Amount decimal.Decimal `json:"amount"`
}

// AdditionalFeeService manages optional fees and student subscriptions.
type AdditionalFeeService struct {
	repo      additionalFeeRepository
	students  additionalFeeStudentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAdditionalFeeService creates an additional fee service.
func NewAdditionalFeeService(repo additionalFeeRepository, students additionalFeeStudentRepository, validate *validator.Validate, logger *zap.Logger) *AdditionalFeeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdditionalFeeService{repo: repo, students: students, validator: validate, logger: logger}
}

// List returns the school's optional fees.
func (s *AdditionalFeeService) List(ctx context.Context, scope repository.Tenant) ([]models.AdditionalFee, error) {
	feesList, err := s.repo.List(ctx, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list additional fees")
	}
	return feesList, nil
}

// ListForStudent returns the optional fees a student subscribes to.
func (s *AdditionalFeeService) ListForStudent(ctx context.Context, scope repository.Tenant, studentID string) ([]models.AdditionalFee, error) {
	feesList, err := s.repo.ListForStudent(ctx, scope, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student fees")
	}
	return feesList, nil
}

// Create defines a new optional fee.
func (s *AdditionalFeeService) Create(ctx context.Context, scope repository.Tenant, req CreateAdditionalFeeRequest) (*models.AdditionalFee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid additional fee payload")
	}
	if !req.Amount.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount must be greater than zero")
	}

	fee := &models.AdditionalFee{Name: req.Name, Amount: req.Amount}
	if err := s.repo.Create(ctx, scope, fee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create additional fee")
	}
	return fee, nil
}

// Assign subscribes a student to an optional fee. Assigning a fee the student
// already carries is a no-op. The fee enters the student's billing immediately
// and shows up in the next balance recomputation.
func (s *AdditionalFeeService) Assign(ctx context.Context, scope repository.Tenant, studentID string, feeID int64) error {
	exists, err := s.students.ExistsByID(ctx, scope, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student")
	}
	if !exists {
		return appErrors.Clone(appErrors.ErrStudentNotFound, "")
	}

	if _, err := s.repo.FindByID(ctx, scope, feeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "additional fee not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load additional fee")
	}

	if err := s.repo.Assign(ctx, scope, studentID, feeID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign additional fee")
	}
	return nil
}

// Unassign removes a student's subscription. Past payments are not adjusted;
// only future balance recomputations drop the fee.
func (s *AdditionalFeeService) Unassign(ctx context.Context, scope repository.Tenant, studentID string, feeID int64) error {
	if err := s.repo.Unassign(ctx, scope, studentID, feeID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unassign additional fee")
	}
	return nil
}
