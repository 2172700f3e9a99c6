package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Kimshubb/jps-erp-api/internal/models"
	"github.com/Kimshubb/jps-erp-api/internal/repository"
	appErrors "github.com/Kimshubb/jps-erp-api/pkg/errors"
)

type gradeRepository interface {
	List(ctx context.Context, scope repository.Tenant) ([]models.Grade, error)
	FindByID(ctx context.Context, scope repository.Tenant, id int64) (*models.Grade, error)
	Create(ctx context.Context, scope repository.Tenant, grade *models.Grade) error
	StreamsByGrade(ctx context.Context, scope repository.Tenant) (map[int64][]models.Stream, error)
	AddStream(ctx context.Context, scope repository.Tenant, stream *models.Stream) error
	StudentCounts(ctx context.Context, scope repository.Tenant) (map[int64]int, error)
}

// CreateGradeRequest adds a class level.
type CreateGradeRequest struct {
	Name string `json:"name" validate:"required"`
}

// CreateStreamRequest adds a stream under a grade.
type CreateStreamRequest struct {
	GradeID int64  `json:"grade_id" validate:"required"`
	Name    string `json:"name" validate:"required"`
}

// GradeService manages grades and their streams.
type GradeService struct {
	repo      gradeRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradeService creates a grade service.
func NewGradeService(repo gradeRepository, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{repo: repo, validator: validate, logger: logger}
}

// List returns every grade with its streams and active student count.
func (s *GradeService) List(ctx context.Context, scope repository.Tenant) ([]models.GradeDetail, error) {
	grades, err := s.repo.List(ctx, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	streams, err := s.repo.StreamsByGrade(ctx, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list streams")
	}
	counts, err := s.repo.StudentCounts(ctx, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}

	details := make([]models.GradeDetail, 0, len(grades))
	for _, grade := range grades {
		detail := models.GradeDetail{
			Grade:        grade,
			Streams:      streams[grade.ID],
			StudentCount: counts[grade.ID],
		}
		if detail.Streams == nil {
			detail.Streams = []models.Stream{}
		}
		details = append(details, detail)
	}
	return details, nil
}

// Create adds a new grade.
func (s *GradeService) Create(ctx context.Context, scope repository.Tenant, req CreateGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	grade := &models.Grade{Name: req.Name}
	if err := s.repo.Create(ctx, scope, grade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create grade")
	}
	return grade, nil
}

// AddStream adds a stream under an existing grade.
func (s *GradeService) AddStream(ctx context.Context, scope repository.Tenant, req CreateStreamRequest) (*models.Stream, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid stream payload")
	}
	stream := &models.Stream{GradeID: req.GradeID, Name: req.Name}
	if err := s.repo.AddStream(ctx, scope, stream); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create stream")
	}
	return stream, nil
}
