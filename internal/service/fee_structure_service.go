package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Kimshubb/jps-erp-api/internal/fees"
	"github.com/Kimshubb/jps-erp-api/internal/models"
	"github.com/Kimshubb/jps-erp-api/internal/repository"
	appErrors "github.com/Kimshubb/jps-erp-api/pkg/errors"
)

type feeStructureRepository interface {
	FindByGradeAndTerm(ctx context.Context, scope repository.Tenant, gradeID, termID int64) (*models.FeeStructure, error)
	ListByTerm(ctx context.Context, scope repository.Tenant, termID int64) ([]models.FeeStructure, error)
	Upsert(ctx context.Context, scope repository.Tenant, fs *models.FeeStructure) error
}

type feeStructureGradeRepository interface {
	FindByID(ctx context.Context, scope repository.Tenant, id int64) (*models.Grade, error)
}

// UpsertFeeStructureRequest sets the standard fee schedule for a grade/term
// pair, replacing any existing schedule entirely.
type UpsertFeeStructureRequest struct {
	GradeID     int64           `json:"grade_id" validate:"required"`
	TermID      int64           `json:"term_id" validate:"required"`
	TuitionFee  decimal.Decimal `json:"tuition_fee"`
	AssBooks    decimal.Decimal `json:"ass_books"`
	DiaryFee    decimal.Decimal `json:"diary_fee"`
	ActivityFee decimal.Decimal `json:"activity_fee"`
	Others      decimal.Decimal `json:"others"`
}

// FeeStructureService manages standard fee schedules.
type FeeStructureService struct {
	repo      feeStructureRepository
	grades    feeStructureGradeRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFeeStructureService creates a fee structure service.
func NewFeeStructureService(repo feeStructureRepository, grades feeStructureGradeRepository, validate *validator.Validate, logger *zap.Logger) *FeeStructureService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeeStructureService{repo: repo, grades: grades, validator: validate, logger: logger}
}

// Get returns the schedule for a grade/term pair.
func (s *FeeStructureService) Get(ctx context.Context, scope repository.Tenant, gradeID, termID int64) (*models.FeeStructure, error) {
	fs, err := s.repo.FindByGradeAndTerm(ctx, scope, gradeID, termID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no fee structure configured for grade and term")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee structure")
	}
	return fs, nil
}

// ListByTerm returns every schedule configured for a term.
func (s *FeeStructureService) ListByTerm(ctx context.Context, scope repository.Tenant, termID int64) ([]models.FeeStructure, error) {
	structures, err := s.repo.ListByTerm(ctx, scope, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list fee structures")
	}
	return structures, nil
}

// Upsert writes the schedule for a grade/term pair. Components may be zero
// individually but the schedule as a whole must bill something.
func (s *FeeStructureService) Upsert(ctx context.Context, scope repository.Tenant, req UpsertFeeStructureRequest) (*models.FeeStructure, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee structure payload")
	}
	for _, component := range []decimal.Decimal{req.TuitionFee, req.AssBooks, req.DiaryFee, req.ActivityFee, req.Others} {
		if component.IsNegative() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "fee components cannot be negative")
		}
	}

	if _, err := s.grades.FindByID(ctx, scope, req.GradeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}

	fs := &models.FeeStructure{
		GradeID:     req.GradeID,
		TermID:      req.TermID,
		TuitionFee:  req.TuitionFee,
		AssBooks:    req.AssBooks,
		DiaryFee:    req.DiaryFee,
		ActivityFee: req.ActivityFee,
		Others:      req.Others,
	}
	if fees.SumStructure(fs).IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "fee structure must bill at least one component")
	}

	if err := s.repo.Upsert(ctx, scope, fs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save fee structure")
	}
	return fs, nil
}
