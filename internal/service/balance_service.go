package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Kimshubb/jps-erp-api/internal/dto"
	"github.com/Kimshubb/jps-erp-api/internal/fees"
	"github.com/Kimshubb/jps-erp-api/internal/models"
	"github.com/Kimshubb/jps-erp-api/internal/repository"
	appErrors "github.com/Kimshubb/jps-erp-api/pkg/errors"
)

type balanceStudentRepository interface {
	FindByID(ctx context.Context, scope repository.Tenant, id string) (*models.Student, error)
}

type balanceTermRepository interface {
	FindCurrent(ctx context.Context, scope repository.Tenant) (*models.Term, error)
}

type balanceFeeStructureRepository interface {
	FindByGradeAndTerm(ctx context.Context, scope repository.Tenant, gradeID, termID int64) (*models.FeeStructure, error)
}

type balanceAdditionalFeeRepository interface {
	SumForStudent(ctx context.Context, scope repository.Tenant, studentID string) (decimal.Decimal, error)
}

type balancePaymentRepository interface {
	SumForStudentTerm(ctx context.Context, scope repository.Tenant, studentID string, termID int64) (decimal.Decimal, error)
}

// BalanceService recomputes student balances from their billing components.
type BalanceService struct {
	students      balanceStudentRepository
	terms         balanceTermRepository
	feeStructures balanceFeeStructureRepository
	additional    balanceAdditionalFeeRepository
	payments      balancePaymentRepository
	logger        *zap.Logger
}

// NewBalanceService creates a balance service.
func NewBalanceService(students balanceStudentRepository, terms balanceTermRepository, feeStructures balanceFeeStructureRepository, additional balanceAdditionalFeeRepository, payments balancePaymentRepository, logger *zap.Logger) *BalanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BalanceService{
		students:      students,
		terms:         terms,
		feeStructures: feeStructures,
		additional:    additional,
		payments:      payments,
		logger:        logger,
	}
}

// GetBalance recomputes a student's balance for the school's current term:
//
//	current = cf_balance + (standard + additional) - paid
//
// The result is the raw signed value; it is never floored here.
func (s *BalanceService) GetBalance(ctx context.Context, scope repository.Tenant, studentID string) (*dto.BalanceBreakdown, error) {
	term, err := s.terms.FindCurrent(ctx, scope)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNoCurrentTerm, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current term")
	}
	return s.ComputeBalance(ctx, scope, studentID, term.ID)
}

// ComputeBalance recomputes a student's balance for an explicit term.
func (s *BalanceService) ComputeBalance(ctx context.Context, scope repository.Tenant, studentID string, termID int64) (*dto.BalanceBreakdown, error) {
	student, err := s.students.FindByID(ctx, scope, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStudentNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	standard, err := s.standardFees(ctx, scope, student.GradeID, termID)
	if err != nil {
		return nil, err
	}

	additional, err := s.additional.SumForStudent(ctx, scope, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum additional fees")
	}

	paid, err := s.payments.SumForStudentTerm(ctx, scope, studentID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum payments")
	}

	return &dto.BalanceBreakdown{
		StudentID:      studentID,
		TermID:         termID,
		CFBalance:      student.CFBalance,
		StandardFees:   standard,
		AdditionalFees: additional,
		TotalBilled:    standard.Add(additional),
		TotalPaid:      paid,
		CurrentBalance: fees.ApplyPayment(student.CFBalance, standard, additional, paid),
	}, nil
}

// standardFees sums the grade's fee schedule for the term. A missing schedule
// is a valid state that degrades to zero, with a warning so misconfigured
// terms are visible in the logs.
func (s *BalanceService) standardFees(ctx context.Context, scope repository.Tenant, gradeID, termID int64) (decimal.Decimal, error) {
	fs, err := s.feeStructures.FindByGradeAndTerm(ctx, scope, gradeID, termID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("no fee structure configured, treating standard fees as zero",
				zap.Int64("school_id", scope.SchoolID),
				zap.Int64("grade_id", gradeID),
				zap.Int64("term_id", termID))
			return decimal.Zero, nil
		}
		return decimal.Zero, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee structure")
	}
	return fees.SumStructure(fs), nil
}
