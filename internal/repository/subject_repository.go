package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Kimshubb/jps-erp-api/internal/models"
)

// SubjectRepository handles subjects and teacher-subject assignments.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository instantiates a subject repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// List returns the school's subjects, optionally restricted to one grade.
func (r *SubjectRepository) List(ctx context.Context, scope Tenant, gradeID int64) ([]models.Subject, error) {
	query := `SELECT id, school_id, grade_id, name, created_at FROM subjects WHERE school_id = $1`
	args := []interface{}{scope.SchoolID}
	if gradeID != 0 {
		args = append(args, gradeID)
		query += fmt.Sprintf(" AND grade_id = $%d", len(args))
	}
	query += " ORDER BY name"

	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// Create inserts a new subject.
func (r *SubjectRepository) Create(ctx context.Context, scope Tenant, subject *models.Subject) error {
	subject.SchoolID = scope.SchoolID
	subject.CreatedAt = time.Now().UTC()

	const query = `INSERT INTO subjects (school_id, grade_id, name, created_at)
		VALUES (:school_id, :grade_id, :name, :created_at) RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, subject)
	if err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&subject.ID); err != nil {
			return fmt.Errorf("scan subject id: %w", err)
		}
	}
	return rows.Err()
}

// Assign links a teacher to a subject. Repeated assignment is a no-op.
func (r *SubjectRepository) Assign(ctx context.Context, scope Tenant, assignment *models.TeacherAssignment) error {
	assignment.SchoolID = scope.SchoolID
	assignment.CreatedAt = time.Now().UTC()

	// joins re-check the tenant on both sides of the link
	const query = `INSERT INTO teacher_assignments (school_id, teacher_id, subject_id, created_at)
		SELECT u.school_id, u.id, sub.id, $4
		FROM users u, subjects sub
		WHERE u.id = $1 AND u.school_id = $3 AND sub.id = $2 AND sub.school_id = $3
		ON CONFLICT (teacher_id, subject_id) DO NOTHING
		RETURNING id`
	err := r.db.GetContext(ctx, &assignment.ID, query, assignment.TeacherID, assignment.SubjectID, scope.SchoolID, assignment.CreatedAt)
	if err != nil {
		return err
	}
	return nil
}

// ListAssignments returns teacher-subject assignments with display names.
func (r *SubjectRepository) ListAssignments(ctx context.Context, scope Tenant, teacherID string) ([]models.TeacherAssignmentDetail, error) {
	query := `SELECT ta.id, ta.school_id, ta.teacher_id, ta.subject_id, ta.created_at,
			u.full_name AS teacher_name, sub.name AS subject_name, g.name AS grade_name
		FROM teacher_assignments ta
		JOIN users u ON u.id = ta.teacher_id
		JOIN subjects sub ON sub.id = ta.subject_id
		JOIN grades g ON g.id = sub.grade_id
		WHERE ta.school_id = $1`
	args := []interface{}{scope.SchoolID}
	if teacherID != "" {
		args = append(args, teacherID)
		query += fmt.Sprintf(" AND ta.teacher_id = $%d", len(args))
	}
	query += " ORDER BY u.full_name, sub.name"

	var assignments []models.TeacherAssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, fmt.Errorf("list teacher assignments: %w", err)
	}
	return assignments, nil
}
