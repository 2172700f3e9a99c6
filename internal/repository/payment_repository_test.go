package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kimshubb/jps-erp-api/internal/models"
	appErrors "github.com/Kimshubb/jps-erp-api/pkg/errors"
)

func newPaymentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPaymentRepositorySumForStudentTerm(t *testing.T) {
	db, mock, cleanup := newPaymentMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\) FROM fee_payments`).
		WithArgs(int64(1), "JPS-001", int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("3000"))

	total, err := repo.SumForStudentTerm(context.Background(), Tenant{SchoolID: 1}, "JPS-001", 7)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(3000).Equal(total))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositorySumWithNoPaymentsIsZero(t *testing.T) {
	db, mock, cleanup := newPaymentMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\) FROM fee_payments`).
		WithArgs(int64(1), "JPS-404", int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("0"))

	total, err := repo.SumForStudentTerm(context.Background(), Tenant{SchoolID: 1}, "JPS-404", 7)
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestPaymentRepositoryApplyPayment(t *testing.T) {
	db, mock, cleanup := newPaymentMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT cf_balance FROM students WHERE id = \$1 AND school_id = \$2 FOR UPDATE`).
		WithArgs("JPS-001", int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"cf_balance"}).AddRow("500"))
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\) FROM fee_payments`).
		WithArgs(int64(1), "JPS-001", int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("3000"))
	mock.ExpectExec(`INSERT INTO fee_payments`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE students SET cf_balance`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	payment := &models.FeePayment{
		ID:        "pay-1",
		StudentID: "JPS-001",
		TermID:    7,
		Method:    models.PaymentMethodCash,
		Amount:    decimal.NewFromInt(9500),
		PayDate:   time.Now().UTC(),
	}
	err := repo.ApplyPayment(context.Background(), Tenant{SchoolID: 1}, payment, decimal.NewFromInt(10000), decimal.NewFromInt(2000), nil)
	require.NoError(t, err)

	// prior balance 500 + 12000 - 3000 = 9500; snapshot after paying 9500 is 0
	assert.True(t, payment.Balance.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryApplyPaymentRecordsCreditUnfloored(t *testing.T) {
	db, mock, cleanup := newPaymentMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT cf_balance FROM students`).
		WithArgs("JPS-001", int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"cf_balance"}).AddRow("0"))
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\) FROM fee_payments`).
		WithArgs(int64(1), "JPS-001", int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("0"))
	mock.ExpectExec(`INSERT INTO fee_payments`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE students SET cf_balance`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	payment := &models.FeePayment{
		ID:        "pay-2",
		StudentID: "JPS-001",
		TermID:    7,
		Method:    models.PaymentMethodCash,
		Amount:    decimal.NewFromInt(1000),
		PayDate:   time.Now().UTC(),
	}
	err := repo.ApplyPayment(context.Background(), Tenant{SchoolID: 1}, payment, decimal.Zero, decimal.Zero, nil)
	require.NoError(t, err)

	// the payment snapshot keeps the credit while the student row is floored at 0
	assert.True(t, decimal.NewFromInt(-1000).Equal(payment.Balance))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryApplyPaymentRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newPaymentMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT cf_balance FROM students`).
		WithArgs("JPS-001", int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"cf_balance"}).AddRow("500"))
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\) FROM fee_payments`).
		WithArgs(int64(1), "JPS-001", int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("0"))
	mock.ExpectExec(`INSERT INTO fee_payments`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	payment := &models.FeePayment{
		ID:        "pay-3",
		StudentID: "JPS-001",
		TermID:    7,
		Method:    models.PaymentMethodCash,
		Amount:    decimal.NewFromInt(100),
		PayDate:   time.Now().UTC(),
	}
	err := repo.ApplyPayment(context.Background(), Tenant{SchoolID: 1}, payment, decimal.Zero, decimal.Zero, nil)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryMpesaCodeExists(t *testing.T) {
	db, mock, cleanup := newPaymentMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM mpesa_transactions`).
		WithArgs(int64(1), "SBC123XYZ").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.MpesaCodeExists(context.Background(), Tenant{SchoolID: 1}, "SBC123XYZ")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestPaymentRepositoryMethodTotals(t *testing.T) {
	db, mock, cleanup := newPaymentMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	rows := sqlmock.NewRows([]string{"method", "total"}).
		AddRow("Cash", "4000").
		AddRow("Mpesa", "6000")
	mock.ExpectQuery(`SELECT method, COALESCE\(SUM\(amount\), 0\) AS total FROM fee_payments`).
		WithArgs(int64(1), int64(7)).
		WillReturnRows(rows)

	totals, err := repo.MethodTotals(context.Background(), Tenant{SchoolID: 1}, 7)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(4000).Equal(totals[models.PaymentMethodCash]))
	assert.True(t, decimal.NewFromInt(6000).Equal(totals[models.PaymentMethodMpesa]))
}

func TestPaymentRepositoryApplyPaymentMapsDuplicateMpesaCode(t *testing.T) {
	db, mock, cleanup := newPaymentMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT cf_balance FROM students`).
		WithArgs("JPS-001", int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"cf_balance"}).AddRow("0"))
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\) FROM fee_payments`).
		WithArgs(int64(1), "JPS-001", int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("0"))
	mock.ExpectExec(`INSERT INTO fee_payments`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO mpesa_transactions`).
		WillReturnError(&pq.Error{Code: pqUniqueViolation})
	mock.ExpectRollback()

	code := "SBC123XYZ"
	payment := &models.FeePayment{
		ID:        "pay-4",
		StudentID: "JPS-001",
		TermID:    7,
		Method:    models.PaymentMethodMpesa,
		Amount:    decimal.NewFromInt(100),
		Code:      &code,
		PayDate:   time.Now().UTC(),
	}
	mpesa := &models.MpesaTransaction{Code: code, Amount: payment.Amount}
	err := repo.ApplyPayment(context.Background(), Tenant{SchoolID: 1}, payment, decimal.Zero, decimal.Zero, mpesa)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateTxnCode.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
