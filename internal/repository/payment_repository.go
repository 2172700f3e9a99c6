package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/Kimshubb/jps-erp-api/internal/fees"
	"github.com/Kimshubb/jps-erp-api/internal/models"
	appErrors "github.com/Kimshubb/jps-erp-api/pkg/errors"
)

// pqUniqueViolation is the Postgres error code for unique constraint breaches.
const pqUniqueViolation = "23505"

// PaymentRepository handles fee payments, the mpesa code ledger, and the
// transactional balance update applied when a payment lands.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository instantiates a payment repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = "id, school_id, student_id, term_id, method, amount, code, pay_date, balance, created_at"

// SumForStudentTerm totals the student's payments within a term, regardless of
// method. No payments sums to zero.
func (r *PaymentRepository) SumForStudentTerm(ctx context.Context, scope Tenant, studentID string, termID int64) (decimal.Decimal, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM fee_payments WHERE school_id = $1 AND student_id = $2 AND term_id = $3`
	var total decimal.Decimal
	if err := r.db.GetContext(ctx, &total, query, scope.SchoolID, studentID, termID); err != nil {
		return decimal.Zero, fmt.Errorf("sum payments: %w", err)
	}
	return total, nil
}

// ListForStudentTerm returns a student's payments for a term ordered by date.
func (r *PaymentRepository) ListForStudentTerm(ctx context.Context, scope Tenant, studentID string, termID int64) ([]models.FeePayment, error) {
	query := fmt.Sprintf("SELECT %s FROM fee_payments WHERE school_id = $1 AND student_id = $2 AND term_id = $3 ORDER BY pay_date, created_at", paymentColumns)
	var payments []models.FeePayment
	if err := r.db.SelectContext(ctx, &payments, query, scope.SchoolID, studentID, termID); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// MpesaCodeExists reports whether a transaction code is already recorded in the
// school's mpesa ledger.
func (r *PaymentRepository) MpesaCodeExists(ctx context.Context, scope Tenant, code string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM mpesa_transactions WHERE school_id = $1 AND code = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, scope.SchoolID, code); err != nil {
		return false, fmt.Errorf("check mpesa code: %w", err)
	}
	return exists, nil
}

// ApplyPayment records a payment and updates the student's carry-forward
// balance as one atomic unit. The student row is locked for the duration so
// concurrent payments for the same student serialize instead of losing updates.
//
// The balance recorded on the payment row is the raw signed value; the
// carry-forward written back to the student is floored at zero.
func (r *PaymentRepository) ApplyPayment(ctx context.Context, scope Tenant, payment *models.FeePayment, standardFees, additionalFees decimal.Decimal, mpesa *models.MpesaTransaction) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin payment tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var cfBalance decimal.Decimal
	if err = tx.GetContext(ctx, &cfBalance,
		`SELECT cf_balance FROM students WHERE id = $1 AND school_id = $2 FOR UPDATE`,
		payment.StudentID, scope.SchoolID); err != nil {
		return err
	}

	var paidSoFar decimal.Decimal
	if err = tx.GetContext(ctx, &paidSoFar,
		`SELECT COALESCE(SUM(amount), 0) FROM fee_payments WHERE school_id = $1 AND student_id = $2 AND term_id = $3`,
		scope.SchoolID, payment.StudentID, payment.TermID); err != nil {
		return fmt.Errorf("sum prior payments: %w", err)
	}

	priorBalance := fees.ApplyPayment(cfBalance, standardFees, additionalFees, paidSoFar)
	payment.Balance = priorBalance.Sub(payment.Amount)
	newCF := fees.Floor(payment.Balance)

	payment.SchoolID = scope.SchoolID
	payment.CreatedAt = time.Now().UTC()

	if _, err = tx.NamedExecContext(ctx, `INSERT INTO fee_payments (id, school_id, student_id, term_id, method, amount, code, pay_date, balance, created_at)
		VALUES (:id, :school_id, :student_id, :term_id, :method, :amount, :code, :pay_date, :balance, :created_at)`, payment); err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	if mpesa != nil {
		mpesa.SchoolID = scope.SchoolID
		mpesa.CreatedAt = payment.CreatedAt
		if _, err = tx.NamedExecContext(ctx, `INSERT INTO mpesa_transactions (school_id, code, amount, verified, created_at)
			VALUES (:school_id, :code, :amount, :verified, :created_at)`, mpesa); err != nil {
			if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == pqUniqueViolation {
				err = appErrors.Clone(appErrors.ErrDuplicateTxnCode, "")
				return err
			}
			return fmt.Errorf("insert mpesa transaction: %w", err)
		}
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE students SET cf_balance = $1, updated_at = $2 WHERE id = $3 AND school_id = $4`,
		newCF, payment.CreatedAt, payment.StudentID, scope.SchoolID); err != nil {
		return fmt.Errorf("update student balance: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit payment tx: %w", err)
	}
	return nil
}

// MethodTotals sums a term's payments per method.
func (r *PaymentRepository) MethodTotals(ctx context.Context, scope Tenant, termID int64) (map[models.PaymentMethod]decimal.Decimal, error) {
	const query = `SELECT method, COALESCE(SUM(amount), 0) AS total FROM fee_payments
		WHERE school_id = $1 AND term_id = $2 GROUP BY method`
	type row struct {
		Method models.PaymentMethod `db:"method"`
		Total  decimal.Decimal      `db:"total"`
	}
	var rows []row
	if err := r.db.SelectContext(ctx, &rows, query, scope.SchoolID, termID); err != nil {
		return nil, fmt.Errorf("sum payments by method: %w", err)
	}
	totals := make(map[models.PaymentMethod]decimal.Decimal, len(rows))
	for _, entry := range rows {
		totals[entry.Method] = entry.Total
	}
	return totals, nil
}
