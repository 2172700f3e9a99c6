package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kimshubb/jps-erp-api/internal/models"
	"github.com/Kimshubb/jps-erp-api/internal/repository"
	appErrors "github.com/Kimshubb/jps-erp-api/pkg/errors"
)

type termRepository interface {
	List(ctx context.Context, scope repository.Tenant, filter models.TermFilter) ([]models.Term, int, error)
	FindByID(ctx context.Context, scope repository.Tenant, id int64) (*models.Term, error)
	FindCurrent(ctx context.Context, scope repository.Tenant) (*models.Term, error)
	ExistsByNameAndYear(ctx context.Context, scope repository.Tenant, name string, year int, excludeID int64) (bool, error)
	Create(ctx context.Context, scope repository.Tenant, term *models.Term) error
	Update(ctx context.Context, scope repository.Tenant, term *models.Term) error
	Migrate(ctx context.Context, scope repository.Tenant, id int64) error
}

type termAuditRepository interface {
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
}

// CreateTermRequest describes payload for creating billing terms.
type CreateTermRequest struct {
	Name      string    `json:"name" validate:"required"`
	Year      int       `json:"year" validate:"required,gte=2000"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
}

// UpdateTermRequest updates mutable fields on a term.
type UpdateTermRequest struct {
	Name      string    `json:"name" validate:"required"`
	Year      int       `json:"year" validate:"required,gte=2000"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
}

// TermService orchestrates term workflows, including the migration that moves
// the school onto a new current term.
type TermService struct {
	repo      termRepository
	audit     termAuditRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTermService creates a new term service instance.
func NewTermService(repo termRepository, audit termAuditRepository, validate *validator.Validate, logger *zap.Logger) *TermService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TermService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns paginated terms.
func (s *TermService) List(ctx context.Context, scope repository.Tenant, filter models.TermFilter) ([]models.Term, *models.Pagination, error) {
	terms, total, err := s.repo.List(ctx, scope, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list terms")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}

	return terms, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a term by ID.
func (s *TermService) Get(ctx context.Context, scope repository.Tenant, id int64) (*models.Term, error) {
	term, err := s.repo.FindByID(ctx, scope, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	return term, nil
}

// GetCurrent returns the school's current term.
func (s *TermService) GetCurrent(ctx context.Context, scope repository.Tenant) (*models.Term, error) {
	term, err := s.repo.FindCurrent(ctx, scope)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNoCurrentTerm, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current term")
	}
	return term, nil
}

// Create adds a new term ensuring uniqueness and date validation. New terms
// are never current; Migrate is the only path that flips the flag.
func (s *TermService) Create(ctx context.Context, scope repository.Tenant, req CreateTermRequest) (*models.Term, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid term payload")
	}
	if !req.StartDate.Before(req.EndDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_date must be before end_date")
	}

	exists, err := s.repo.ExistsByNameAndYear(ctx, scope, req.Name, req.Year, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check term uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "term already exists for name and year")
	}

	term := &models.Term{
		Name:      req.Name,
		Year:      req.Year,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
	if err := s.repo.Create(ctx, scope, term); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create term")
	}
	return term, nil
}

// Update modifies a term record.
func (s *TermService) Update(ctx context.Context, scope repository.Tenant, id int64, req UpdateTermRequest) (*models.Term, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid term payload")
	}
	if !req.StartDate.Before(req.EndDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_date must be before end_date")
	}

	term, err := s.repo.FindByID(ctx, scope, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}

	exists, err := s.repo.ExistsByNameAndYear(ctx, scope, req.Name, req.Year, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check term uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "term already exists for name and year")
	}

	term.Name = req.Name
	term.Year = req.Year
	term.StartDate = req.StartDate
	term.EndDate = req.EndDate

	if err := s.repo.Update(ctx, scope, term); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update term")
	}
	return term, nil
}

// Migrate makes the given term the school's current term and moves active
// students onto it. Carry-forward balances are left untouched; they roll into
// the new term's arithmetic as the brought-forward component.
func (s *TermService) Migrate(ctx context.Context, scope repository.Tenant, actorID string, id int64) (*models.Term, error) {
	term, err := s.repo.FindByID(ctx, scope, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	if term.Current {
		return term, nil
	}

	if err := s.repo.Migrate(ctx, scope, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to migrate term")
	}
	term.Current = true

	if s.audit != nil {
		resourceID := term.Name
		entry := &models.AuditLog{
			ID:         uuid.NewString(),
			Action:     models.AuditActionTermMigrate,
			Resource:   "term",
			ResourceID: &resourceID,
			CreatedAt:  time.Now().UTC(),
		}
		if actorID != "" {
			entry.UserID = &actorID
		}
		if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
			s.logger.Warn("failed to write term migration audit log", zap.Int64("term_id", id), zap.Error(err))
		}
	}
	return term, nil
}
