package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Kimshubb/jps-erp-api/internal/models"
)

// FeeStructureRepository handles persistence for standard fee schedules.
type FeeStructureRepository struct {
	db *sqlx.DB
}

// NewFeeStructureRepository instantiates a fee structure repository.
func NewFeeStructureRepository(db *sqlx.DB) *FeeStructureRepository {
	return &FeeStructureRepository{db: db}
}

const feeStructureColumns = "id, school_id, grade_id, term_id, tuition_fee, ass_books, diary_fee, activity_fee, others, created_at, updated_at"

// FindByGradeAndTerm loads the fee structure for a (grade, term) pair. Returns
// sql.ErrNoRows when no schedule has been configured; callers treat that as
// zero standard fees, not a failure.
func (r *FeeStructureRepository) FindByGradeAndTerm(ctx context.Context, scope Tenant, gradeID, termID int64) (*models.FeeStructure, error) {
	query := fmt.Sprintf("SELECT %s FROM fee_structures WHERE school_id = $1 AND grade_id = $2 AND term_id = $3", feeStructureColumns)
	var fs models.FeeStructure
	if err := r.db.GetContext(ctx, &fs, query, scope.SchoolID, gradeID, termID); err != nil {
		return nil, err
	}
	return &fs, nil
}

// ListByTerm returns every configured fee structure for a term.
func (r *FeeStructureRepository) ListByTerm(ctx context.Context, scope Tenant, termID int64) ([]models.FeeStructure, error) {
	query := fmt.Sprintf("SELECT %s FROM fee_structures WHERE school_id = $1 AND term_id = $2 ORDER BY grade_id", feeStructureColumns)
	var structures []models.FeeStructure
	if err := r.db.SelectContext(ctx, &structures, query, scope.SchoolID, termID); err != nil {
		return nil, fmt.Errorf("list fee structures: %w", err)
	}
	return structures, nil
}

// Upsert inserts or replaces the fee structure for its (grade, term) pair. The
// composite unique key on (school_id, grade_id, term_id) drives the conflict
// resolution.
func (r *FeeStructureRepository) Upsert(ctx context.Context, scope Tenant, fs *models.FeeStructure) error {
	now := time.Now().UTC()
	fs.SchoolID = scope.SchoolID
	if fs.CreatedAt.IsZero() {
		fs.CreatedAt = now
	}
	fs.UpdatedAt = now

	const query = `INSERT INTO fee_structures (school_id, grade_id, term_id, tuition_fee, ass_books, diary_fee, activity_fee, others, created_at, updated_at)
		VALUES (:school_id, :grade_id, :term_id, :tuition_fee, :ass_books, :diary_fee, :activity_fee, :others, :created_at, :updated_at)
		ON CONFLICT (school_id, grade_id, term_id) DO UPDATE SET
			tuition_fee = EXCLUDED.tuition_fee,
			ass_books = EXCLUDED.ass_books,
			diary_fee = EXCLUDED.diary_fee,
			activity_fee = EXCLUDED.activity_fee,
			others = EXCLUDED.others,
			updated_at = EXCLUDED.updated_at
		RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, fs)
	if err != nil {
		return fmt.Errorf("upsert fee structure: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&fs.ID); err != nil {
			return fmt.Errorf("scan fee structure id: %w", err)
		}
	}
	return rows.Err()
}
