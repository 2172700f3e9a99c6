package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Kimshubb/jps-erp-api/internal/models"
	"github.com/Kimshubb/jps-erp-api/internal/repository"
	appErrors "github.com/Kimshubb/jps-erp-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, scope repository.Tenant, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, scope repository.Tenant, id string) (*models.Student, error)
	Create(ctx context.Context, scope repository.Tenant, student *models.Student) error
	Update(ctx context.Context, scope repository.Tenant, student *models.Student) error
	Deactivate(ctx context.Context, scope repository.Tenant, id string, leftDate time.Time) error
	ExistsByID(ctx context.Context, scope repository.Tenant, id string) (bool, error)
}

type studentTermRepository interface {
	FindCurrent(ctx context.Context, scope repository.Tenant) (*models.Term, error)
}

// CreateStudentRequest registers a new student under their admission number.
type CreateStudentRequest struct {
	ID             string          `json:"id" validate:"required"`
	GradeID        int64           `json:"grade_id" validate:"required"`
	StreamID       int64           `json:"stream_id" validate:"required"`
	FullName       string          `json:"full_name" validate:"required"`
	GuardianName   string          `json:"guardian_name" validate:"required"`
	GuardianPhone  string          `json:"guardian_phone" validate:"required"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// UpdateStudentRequest updates mutable student fields.
type UpdateStudentRequest struct {
	GradeID       int64  `json:"grade_id" validate:"required"`
	StreamID      int64  `json:"stream_id" validate:"required"`
	FullName      string `json:"full_name" validate:"required"`
	GuardianName  string `json:"guardian_name" validate:"required"`
	GuardianPhone string `json:"guardian_phone" validate:"required"`
}

// StudentService orchestrates student registration and lifecycle.
type StudentService struct {
	repo      studentRepository
	terms     studentTermRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService creates a student service.
func NewStudentService(repo studentRepository, terms studentTermRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, terms: terms, validator: validate, logger: logger}
}

// List returns students with grade/stream names attached.
func (s *StudentService) List(ctx context.Context, scope repository.Tenant, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, scope, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}

	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a student by admission number.
func (s *StudentService) Get(ctx context.Context, scope repository.Tenant, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, scope, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStudentNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a student in the school's current term. The opening
// balance seeds the carry-forward amount for transfers arriving with arrears.
func (s *StudentService) Create(ctx context.Context, scope repository.Tenant, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if req.OpeningBalance.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "opening_balance cannot be negative")
	}

	term, err := s.terms.FindCurrent(ctx, scope)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNoCurrentTerm, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current term")
	}

	exists, err := s.repo.ExistsByID(ctx, scope, req.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check admission number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "admission number already registered")
	}

	student := &models.Student{
		ID:            req.ID,
		GradeID:       req.GradeID,
		StreamID:      req.StreamID,
		CurrentTermID: term.ID,
		FullName:      req.FullName,
		GuardianName:  req.GuardianName,
		GuardianPhone: req.GuardianPhone,
		CFBalance:     req.OpeningBalance,
		Active:        true,
	}
	if err := s.repo.Create(ctx, scope, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// Update modifies a student's registration details. The carry-forward balance
// is never edited here; only the payment path writes it.
func (s *StudentService) Update(ctx context.Context, scope repository.Tenant, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	student, err := s.repo.FindByID(ctx, scope, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStudentNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	student.GradeID = req.GradeID
	student.StreamID = req.StreamID
	student.FullName = req.FullName
	student.GuardianName = req.GuardianName
	student.GuardianPhone = req.GuardianPhone

	if err := s.repo.Update(ctx, scope, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Deactivate marks a student as having left the school. The record and its
// payment history are retained; the student simply stops appearing in active
// rosters and report denominators.
func (s *StudentService) Deactivate(ctx context.Context, scope repository.Tenant, id string) error {
	if err := s.repo.Deactivate(ctx, scope, id, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrStudentNotFound, "")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate student")
	}
	return nil
}
