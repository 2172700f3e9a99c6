package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Kimshubb/jps-erp-api/internal/models"
)

// GradeRepository handles persistence for grades and their streams.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository instantiates a grade repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// List returns all grades for the school ordered by name.
func (r *GradeRepository) List(ctx context.Context, scope Tenant) ([]models.Grade, error) {
	const query = `SELECT id, school_id, name, created_at, updated_at FROM grades WHERE school_id = $1 ORDER BY name`
	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, query, scope.SchoolID); err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return grades, nil
}

// FindByID loads a grade by identifier within the school.
func (r *GradeRepository) FindByID(ctx context.Context, scope Tenant, id int64) (*models.Grade, error) {
	const query = `SELECT id, school_id, name, created_at, updated_at FROM grades WHERE id = $1 AND school_id = $2`
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, query, id, scope.SchoolID); err != nil {
		return nil, err
	}
	return &grade, nil
}

// Create inserts a new grade.
func (r *GradeRepository) Create(ctx context.Context, scope Tenant, grade *models.Grade) error {
	now := time.Now().UTC()
	grade.SchoolID = scope.SchoolID
	grade.CreatedAt = now
	grade.UpdatedAt = now

	const query = `INSERT INTO grades (school_id, name, created_at, updated_at)
		VALUES (:school_id, :name, :created_at, :updated_at) RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, grade)
	if err != nil {
		return fmt.Errorf("create grade: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&grade.ID); err != nil {
			return fmt.Errorf("scan grade id: %w", err)
		}
	}
	return rows.Err()
}

// StreamsByGrade returns the streams of every grade in the school, keyed by
// grade ID.
func (r *GradeRepository) StreamsByGrade(ctx context.Context, scope Tenant) (map[int64][]models.Stream, error) {
	const query = `SELECT s.id, s.grade_id, s.name, s.created_at
		FROM streams s
		JOIN grades g ON g.id = s.grade_id
		WHERE g.school_id = $1
		ORDER BY s.name`
	var streams []models.Stream
	if err := r.db.SelectContext(ctx, &streams, query, scope.SchoolID); err != nil {
		return nil, fmt.Errorf("list streams: %w", err)
	}
	result := make(map[int64][]models.Stream, len(streams))
	for _, stream := range streams {
		result[stream.GradeID] = append(result[stream.GradeID], stream)
	}
	return result, nil
}

// AddStream creates a stream under a grade.
func (r *GradeRepository) AddStream(ctx context.Context, scope Tenant, stream *models.Stream) error {
	stream.CreatedAt = time.Now().UTC()

	// the grade join enforces tenant scoping on the insert
	const query = `INSERT INTO streams (grade_id, name, created_at)
		SELECT g.id, $2, $3 FROM grades g WHERE g.id = $1 AND g.school_id = $4
		RETURNING id`
	if err := r.db.GetContext(ctx, &stream.ID, query, stream.GradeID, stream.Name, stream.CreatedAt, scope.SchoolID); err != nil {
		return err
	}
	return nil
}

// StudentCounts returns the number of active students per grade.
func (r *GradeRepository) StudentCounts(ctx context.Context, scope Tenant) (map[int64]int, error) {
	const query = `SELECT grade_id, COUNT(*) AS total FROM students WHERE school_id = $1 AND active = TRUE GROUP BY grade_id`
	type row struct {
		GradeID int64 `db:"grade_id"`
		Total   int   `db:"total"`
	}
	var rows []row
	if err := r.db.SelectContext(ctx, &rows, query, scope.SchoolID); err != nil {
		return nil, fmt.Errorf("count students per grade: %w", err)
	}
	counts := make(map[int64]int, len(rows))
	for _, entry := range rows {
		counts[entry.GradeID] = entry.Total
	}
	return counts, nil
}
