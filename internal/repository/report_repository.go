package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// ReportRepository exposes read-optimised aggregate queries for the admin fee
// reports. All queries are read-only.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository instantiates the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// GradeFeeRow aggregates fee collection per grade for one term. ExpectedFees is
// the flat schedule sum for the grade (zero when no fee structure exists).
type GradeFeeRow struct {
	GradeID       int64           `db:"grade_id"`
	GradeName     string          `db:"grade_name"`
	ExpectedFees  decimal.Decimal `db:"expected_fees"`
	TotalFeesPaid decimal.Decimal `db:"total_fees_paid"`
	TotalStudents int             `db:"total_students"`
}

// GradeFeeTotals returns per-grade expected fees, collected totals and student
// counts for a term. Grades with no fee structure or no payments still appear
// with zeros.
func (r *ReportRepository) GradeFeeTotals(ctx context.Context, scope Tenant, termID int64) ([]GradeFeeRow, error) {
	const query = `SELECT g.id AS grade_id, g.name AS grade_name,
			COALESCE(fs.tuition_fee + fs.ass_books + fs.diary_fee + fs.activity_fee + fs.others, 0) AS expected_fees,
			COALESCE(p.total_paid, 0) AS total_fees_paid,
			COALESCE(sc.total_students, 0) AS total_students
		FROM grades g
		LEFT JOIN fee_structures fs ON fs.grade_id = g.id AND fs.term_id = $2 AND fs.school_id = $1
		LEFT JOIN (
			SELECT s.grade_id, SUM(fp.amount) AS total_paid
			FROM fee_payments fp
			JOIN students s ON s.id = fp.student_id AND s.school_id = fp.school_id
			WHERE fp.school_id = $1 AND fp.term_id = $2
			GROUP BY s.grade_id
		) p ON p.grade_id = g.id
		LEFT JOIN (
			SELECT grade_id, COUNT(*) AS total_students
			FROM students WHERE school_id = $1 AND active = TRUE
			GROUP BY grade_id
		) sc ON sc.grade_id = g.id
		WHERE g.school_id = $1
		ORDER BY g.name`
	var rows []GradeFeeRow
	if err := r.db.SelectContext(ctx, &rows, query, scope.SchoolID, termID); err != nil {
		return nil, fmt.Errorf("grade fee totals: %w", err)
	}
	return rows, nil
}

// AdditionalFeeRow aggregates one optional fee's uptake within a grade.
type AdditionalFeeRow struct {
	FeeID        int64           `db:"fee_id"`
	FeeName      string          `db:"fee_name"`
	Amount       decimal.Decimal `db:"amount"`
	StudentCount int             `db:"student_count"`
	Students     pq.StringArray  `db:"students"`
}

// AdditionalFeeDetails lists, per optional fee, the subscribed students of one
// grade whose current term matches. Fees with no subscribers in the grade are
// omitted.
func (r *ReportRepository) AdditionalFeeDetails(ctx context.Context, scope Tenant, gradeID, termID int64) ([]AdditionalFeeRow, error) {
	const query = `SELECT af.id AS fee_id, af.name AS fee_name, af.amount,
			COUNT(s.id) AS student_count,
			ARRAY_AGG(s.full_name ORDER BY s.full_name) AS students
		FROM additional_fees af
		JOIN student_additional_fees saf ON saf.additional_fee_id = af.id
		JOIN students s ON s.id = saf.student_id AND s.school_id = af.school_id
		WHERE af.school_id = $1 AND s.grade_id = $2 AND s.current_term_id = $3 AND s.active = TRUE
		GROUP BY af.id, af.name, af.amount
		ORDER BY af.name`
	var rows []AdditionalFeeRow
	if err := r.db.SelectContext(ctx, &rows, query, scope.SchoolID, gradeID, termID); err != nil {
		return nil, fmt.Errorf("additional fee details: %w", err)
	}
	return rows, nil
}

// GradeAdditionalRow aggregates optional fee billing per grade for one term.
type GradeAdditionalRow struct {
	GradeID         int64           `db:"grade_id"`
	GradeName       string          `db:"grade_name"`
	AdditionalTotal decimal.Decimal `db:"additional_total"`
	AdditionalCount int             `db:"additional_count"`
}

// AdditionalFeeGradeTotals sums optional fee billing per grade for the term.
func (r *ReportRepository) AdditionalFeeGradeTotals(ctx context.Context, scope Tenant, termID int64) ([]GradeAdditionalRow, error) {
	const query = `SELECT g.id AS grade_id, g.name AS grade_name,
			COALESCE(SUM(af.amount), 0) AS additional_total,
			COUNT(saf.student_id) AS additional_count
		FROM grades g
		LEFT JOIN students s ON s.grade_id = g.id AND s.school_id = g.school_id AND s.current_term_id = $2 AND s.active = TRUE
		LEFT JOIN student_additional_fees saf ON saf.student_id = s.id
		LEFT JOIN additional_fees af ON af.id = saf.additional_fee_id AND af.school_id = g.school_id
		WHERE g.school_id = $1
		GROUP BY g.id, g.name
		ORDER BY g.name`
	var rows []GradeAdditionalRow
	if err := r.db.SelectContext(ctx, &rows, query, scope.SchoolID, termID); err != nil {
		return nil, fmt.Errorf("additional fee grade totals: %w", err)
	}
	return rows, nil
}
