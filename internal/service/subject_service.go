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

type subjectRepository interface {
	List(ctx context.Context, scope repository.Tenant, gradeID int64) ([]models.Subject, error)
	Create(ctx context.Context, scope repository.Tenant, subject *models.Subject) error
	Assign(ctx context.Context, scope repository.Tenant, assignment *models.TeacherAssignment) error
	ListAssignments(ctx context.Context, scope repository.Tenant, teacherID string) ([]models.TeacherAssignmentDetail, error)
}

type subjectUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListTeachers(ctx context.Context, scope repository.Tenant) ([]models.User, error)
}

// CreateSubjectRequest adds a subject under a grade.
type CreateSubjectRequest struct {
	GradeID int64  `json:"grade_id" validate:"required"`
	Name    string `json:"name" validate:"required"`
}

// AssignTeacherRequest links a teacher to a subject.
type AssignTeacherRequest struct {
	TeacherID string `json:"teacher_id" validate:"required"`
	SubjectID int64  `json:"subject_id" validate:"required"`
}

// SubjectService manages subjects and teacher assignments.
type SubjectService struct {
	repo      subjectRepository
	users     subjectUserRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService creates a subject service.
func NewSubjectService(repo subjectRepository, users subjectUserRepository, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{repo: repo, users: users, validator: validate, logger: logger}
}

// List returns subjects, optionally restricted to one grade.
func (s *SubjectService) List(ctx context.Context, scope repository.Tenant, gradeID int64) ([]models.Subject, error) {
	subjects, err := s.repo.List(ctx, scope, gradeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, nil
}

// Create adds a subject under a grade.
func (s *SubjectService) Create(ctx context.Context, scope repository.Tenant, req CreateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	subject := &models.Subject{GradeID: req.GradeID, Name: req.Name}
	if err := s.repo.Create(ctx, scope, subject); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	return subject, nil
}

// Teachers returns the school's teacher accounts.
func (s *SubjectService) Teachers(ctx context.Context, scope repository.Tenant) ([]models.User, error) {
	teachers, err := s.users.ListTeachers(ctx, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	return teachers, nil
}

// Assign links a teacher to a subject. Repeating an existing assignment is
// accepted without effect.
func (s *SubjectService) Assign(ctx context.Context, scope repository.Tenant, req AssignTeacherRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	teacher, err := s.users.FindByID(ctx, req.TeacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if teacher.SchoolID != scope.SchoolID || teacher.Role != models.RoleTeacher {
		return appErrors.Clone(appErrors.ErrValidation, "user is not a teacher in this school")
	}

	assignment := &models.TeacherAssignment{TeacherID: req.TeacherID, SubjectID: req.SubjectID}
	if err := s.repo.Assign(ctx, scope, assignment); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// existing assignment, idempotent
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign teacher")
	}
	return nil
}

// Assignments lists a teacher's subject assignments with display names.
func (s *SubjectService) Assignments(ctx context.Context, scope repository.Tenant, teacherID string) ([]models.TeacherAssignmentDetail, error) {
	assignments, err := s.repo.ListAssignments(ctx, scope, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, nil
}
