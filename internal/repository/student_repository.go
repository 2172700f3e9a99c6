package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Kimshubb/jps-erp-api/internal/models"
)

// StudentRepository handles persistence for students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository instantiates a student repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `s.id, s.school_id, s.grade_id, s.stream_id, s.current_term_id, s.full_name,
	s.guardian_name, s.guardian_phone, s.cf_balance, s.active, s.left_date, s.created_at, s.updated_at`

// List returns students matching the filter along with the total count.
func (r *StudentRepository) List(ctx context.Context, scope Tenant, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := `FROM students s
		JOIN grades g ON g.id = s.grade_id
		JOIN streams st ON st.id = s.stream_id
		WHERE s.school_id = $1`
	args := []interface{}{scope.SchoolID}

	if filter.GradeID != 0 {
		args = append(args, filter.GradeID)
		base += fmt.Sprintf(" AND s.grade_id = $%d", len(args))
	}
	if filter.StreamID != 0 {
		args = append(args, filter.StreamID)
		base += fmt.Sprintf(" AND s.stream_id = $%d", len(args))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		base += fmt.Sprintf(" AND s.active = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		base += fmt.Sprintf(" AND (s.full_name ILIKE $%d OR s.id ILIKE $%d)", len(args), len(args))
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"name":       "s.full_name",
		"id":         "s.id",
		"grade":      "g.name",
		"created_at": "s.created_at",
	}
	sortColumn, ok := allowedSorts[sortBy]
	if !ok {
		sortColumn = "s.full_name"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s, g.name AS grade_name, st.name AS stream_name %s ORDER BY %s %s LIMIT %d OFFSET %d",
		studentColumns, base, sortColumn, order, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}

	return students, total, nil
}

// FindByID loads a student by admission number within the school.
func (r *StudentRepository) FindByID(ctx context.Context, scope Tenant, id string) (*models.Student, error) {
	const query = `SELECT id, school_id, grade_id, stream_id, current_term_id, full_name,
		guardian_name, guardian_phone, cf_balance, active, left_date, created_at, updated_at
		FROM students WHERE id = $1 AND school_id = $2`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id, scope.SchoolID); err != nil {
		return nil, err
	}
	return &student, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, scope Tenant, student *models.Student) error {
	now := time.Now().UTC()
	student.SchoolID = scope.SchoolID
	student.CreatedAt = now
	student.UpdatedAt = now

	const query = `INSERT INTO students (id, school_id, grade_id, stream_id, current_term_id, full_name,
		guardian_name, guardian_phone, cf_balance, active, created_at, updated_at)
		VALUES (:id, :school_id, :grade_id, :stream_id, :current_term_id, :full_name,
		:guardian_name, :guardian_phone, :cf_balance, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies mutable student fields.
func (r *StudentRepository) Update(ctx context.Context, scope Tenant, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	student.SchoolID = scope.SchoolID
	const query = `UPDATE students SET grade_id = :grade_id, stream_id = :stream_id, full_name = :full_name,
		guardian_name = :guardian_name, guardian_phone = :guardian_phone, updated_at = :updated_at
		WHERE id = :id AND school_id = :school_id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Deactivate marks a student as left on the given date.
func (r *StudentRepository) Deactivate(ctx context.Context, scope Tenant, id string, leftDate time.Time) error {
	const query = `UPDATE students SET active = FALSE, left_date = $1, updated_at = $2 WHERE id = $3 AND school_id = $4`
	res, err := r.db.ExecContext(ctx, query, leftDate, time.Now().UTC(), id, scope.SchoolID)
	if err != nil {
		return fmt.Errorf("deactivate student: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("deactivate student: no rows affected")
	}
	return nil
}

// ExistsByID checks whether an admission number is already taken in the school.
func (r *StudentRepository) ExistsByID(ctx context.Context, scope Tenant, id string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM students WHERE id = $1 AND school_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, id, scope.SchoolID); err != nil {
		return false, fmt.Errorf("check student exists: %w", err)
	}
	return exists, nil
}
