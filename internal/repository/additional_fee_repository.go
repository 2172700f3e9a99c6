package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/Kimshubb/jps-erp-api/internal/models"
)

// AdditionalFeeRepository handles optional per-student fees and their
// subscriptions.
type AdditionalFeeRepository struct {
	db *sqlx.DB
}

// NewAdditionalFeeRepository instantiates an additional fee repository.
func NewAdditionalFeeRepository(db *sqlx.DB) *AdditionalFeeRepository {
	return &AdditionalFeeRepository{db: db}
}

// List returns all optional fees defined by the school.
func (r *AdditionalFeeRepository) List(ctx context.Context, scope Tenant) ([]models.AdditionalFee, error) {
	const query = `SELECT id, school_id, name, amount, created_at FROM additional_fees WHERE school_id = $1 ORDER BY name`
	var feesList []models.AdditionalFee
	if err := r.db.SelectContext(ctx, &feesList, query, scope.SchoolID); err != nil {
		return nil, fmt.Errorf("list additional fees: %w", err)
	}
	return feesList, nil
}

// FindByID loads one optional fee within the school.
func (r *AdditionalFeeRepository) FindByID(ctx context.Context, scope Tenant, id int64) (*models.AdditionalFee, error) {
	const query = `SELECT id, school_id, name, amount, created_at FROM additional_fees WHERE id = $1 AND school_id = $2`
	var fee models.AdditionalFee
	if err := r.db.GetContext(ctx, &fee, query, id, scope.SchoolID); err != nil {
		return nil, err
	}
	return &fee, nil
}

// Create inserts a new optional fee.
func (r *AdditionalFeeRepository) Create(ctx context.Context, scope Tenant, fee *models.AdditionalFee) error {
	fee.SchoolID = scope.SchoolID
	fee.CreatedAt = time.Now().UTC()

	const query = `INSERT INTO additional_fees (school_id, name, amount, created_at)
		VALUES (:school_id, :name, :amount, :created_at) RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, fee)
	if err != nil {
		return fmt.Errorf("create additional fee: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&fee.ID); err != nil {
			return fmt.Errorf("scan additional fee id: %w", err)
		}
	}
	return rows.Err()
}

// SumForStudent totals the optional fees the student is subscribed to. A
// student with no subscriptions sums to zero.
func (r *AdditionalFeeRepository) SumForStudent(ctx context.Context, scope Tenant, studentID string) (decimal.Decimal, error) {
	const query = `SELECT COALESCE(SUM(af.amount), 0) FROM additional_fees af
		JOIN student_additional_fees saf ON saf.additional_fee_id = af.id
		WHERE saf.student_id = $1 AND af.school_id = $2`
	var total decimal.Decimal
	if err := r.db.GetContext(ctx, &total, query, studentID, scope.SchoolID); err != nil {
		return decimal.Zero, fmt.Errorf("sum additional fees: %w", err)
	}
	return total, nil
}

// ListForStudent returns the optional fees a student is subscribed to.
func (r *AdditionalFeeRepository) ListForStudent(ctx context.Context, scope Tenant, studentID string) ([]models.AdditionalFee, error) {
	const query = `SELECT af.id, af.school_id, af.name, af.amount, af.created_at FROM additional_fees af
		JOIN student_additional_fees saf ON saf.additional_fee_id = af.id
		WHERE saf.student_id = $1 AND af.school_id = $2
		ORDER BY af.name`
	var feesList []models.AdditionalFee
	if err := r.db.SelectContext(ctx, &feesList, query, studentID, scope.SchoolID); err != nil {
		return nil, fmt.Errorf("list student additional fees: %w", err)
	}
	return feesList, nil
}

// Assign subscribes a student to an optional fee. Repeated assignment is a
// no-op.
func (r *AdditionalFeeRepository) Assign(ctx context.Context, scope Tenant, studentID string, feeID int64) error {
	// both joins re-check the tenant so a foreign fee or student cannot be linked
	const query = `INSERT INTO student_additional_fees (student_id, additional_fee_id)
		SELECT s.id, af.id FROM students s, additional_fees af
		WHERE s.id = $1 AND s.school_id = $3 AND af.id = $2 AND af.school_id = $3
		ON CONFLICT (student_id, additional_fee_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, studentID, feeID, scope.SchoolID); err != nil {
		return fmt.Errorf("assign additional fee: %w", err)
	}
	return nil
}

// Unassign removes a student's subscription to an optional fee.
func (r *AdditionalFeeRepository) Unassign(ctx context.Context, scope Tenant, studentID string, feeID int64) error {
	const query = `DELETE FROM student_additional_fees saf
		USING students s
		WHERE saf.student_id = s.id AND saf.student_id = $1 AND saf.additional_fee_id = $2 AND s.school_id = $3`
	if _, err := r.db.ExecContext(ctx, query, studentID, feeID, scope.SchoolID); err != nil {
		return fmt.Errorf("unassign additional fee: %w", err)
	}
	return nil
}
