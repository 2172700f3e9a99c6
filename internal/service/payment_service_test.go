package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Kimshubb/jps-erp-api/internal/models"
	"github.com/Kimshubb/jps-erp-api/internal/repository"
	appErrors "github.com/Kimshubb/jps-erp-api/pkg/errors"
)

func newPaymentFixture() (*PaymentService, *mockStudentStore, *mockTermStore, *mockPaymentStore, *mockAuditStore) {
	_, students, terms, structures, additional, payments := newBalanceFixture()
	audit := &mockAuditStore{}
	svc := NewPaymentService(payments, students, terms, structures, additional, audit, nil, nil, nil, zap.NewNop())
	return svc, students, terms, payments, audit
}

func TestPaymentServiceNewPayment(t *testing.T) {
	svc, students, _, _, audit := newPaymentFixture()

	receipt, err := svc.NewPayment(context.Background(), repository.Tenant{SchoolID: 1}, "user-1", NewPaymentRequest{
		StudentID: "JPS-001",
		Method:    models.PaymentMethodCash,
		Amount:    money("3000"),
	})
	require.NoError(t, err)

	// prior balance 500 + 12000 - 3000 = 9500
	assert.True(t, money("9500").Equal(receipt.BalanceBefore))
	assert.True(t, money("6500").Equal(receipt.BalanceAfter))
	assert.True(t, money("6500").Equal(receipt.CFBalance))
	assert.True(t, money("6500").Equal(students.students["JPS-001"].CFBalance))

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionPaymentCreate, audit.entries[0].Action)
}

func TestPaymentServiceOverpaymentKeepsCreditOnReceiptOnly(t *testing.T) {
	svc, students, _, payments, _ := newPaymentFixture()
	student := students.students["JPS-001"]
	student.CFBalance = money("0")
	student.GradeID = 99 // no fee structure for this grade
	payments.paid["JPS-001"] = money("0")
	svc.additional.(*mockAdditionalStore).sums["JPS-001"] = money("0")

	receipt, err := svc.NewPayment(context.Background(), repository.Tenant{SchoolID: 1}, "user-1", NewPaymentRequest{
		StudentID: "JPS-001",
		Method:    models.PaymentMethodCash,
		Amount:    money("1000"),
	})
	require.NoError(t, err)

	// the receipt shows the credit, the stored balance is floored at zero
	assert.True(t, money("-1000").Equal(receipt.BalanceAfter))
	assert.True(t, receipt.CFBalance.IsZero())
	assert.True(t, students.students["JPS-001"].CFBalance.IsZero())
}

func TestPaymentServiceRejectsDuplicateMpesaCode(t *testing.T) {
	svc, _, _, payments, _ := newPaymentFixture()
	payments.usedCodes = map[string]bool{"SBC123XYZ": true}

	code := "SBC123XYZ"
	_, err := svc.NewPayment(context.Background(), repository.Tenant{SchoolID: 1}, "user-1", NewPaymentRequest{
		StudentID: "JPS-001",
		Method:    models.PaymentMethodMpesa,
		Amount:    money("1000"),
		Code:      &code,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateTxnCode.Code, appErrors.FromError(err).Code)
}

func TestPaymentServiceMpesaRequiresCode(t *testing.T) {
	svc, _, _, _, _ := newPaymentFixture()

	_, err := svc.NewPayment(context.Background(), repository.Tenant{SchoolID: 1}, "user-1", NewPaymentRequest{
		StudentID: "JPS-001",
		Method:    models.PaymentMethodMpesa,
		Amount:    money("1000"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPaymentServiceBankCodeNotDeduped(t *testing.T) {
	svc, _, _, payments, _ := newPaymentFixture()
	payments.usedCodes = map[string]bool{"SLIP-9": true}

	// bank references can repeat; only mpesa codes are checked against the ledger
	code := "SLIP-9"
	_, err := svc.NewPayment(context.Background(), repository.Tenant{SchoolID: 1}, "user-1", NewPaymentRequest{
		StudentID: "JPS-001",
		Method:    models.PaymentMethodBank,
		Amount:    money("1000"),
		Code:      &code,
	})
	assert.NoError(t, err)
}

func TestPaymentServiceRejectsNonPositiveAmount(t *testing.T) {
	svc, _, _, _, _ := newPaymentFixture()

	_, err := svc.NewPayment(context.Background(), repository.Tenant{SchoolID: 1}, "user-1", NewPaymentRequest{
		StudentID: "JPS-001",
		Method:    models.PaymentMethodCash,
		Amount:    money("0"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPaymentServiceUnknownStudent(t *testing.T) {
	svc, _, _, _, _ := newPaymentFixture()

	_, err := svc.NewPayment(context.Background(), repository.Tenant{SchoolID: 1}, "user-1", NewPaymentRequest{
		StudentID: "JPS-404",
		Method:    models.PaymentMethodCash,
		Amount:    money("1000"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStudentNotFound.Code, appErrors.FromError(err).Code)
}

func TestPaymentServiceNoCurrentTerm(t *testing.T) {
	svc, _, terms, _, _ := newPaymentFixture()
	terms.current = nil

	_, err := svc.NewPayment(context.Background(), repository.Tenant{SchoolID: 1}, "user-1", NewPaymentRequest{
		StudentID: "JPS-001",
		Method:    models.PaymentMethodCash,
		Amount:    money("1000"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoCurrentTerm.Code, appErrors.FromError(err).Code)
}

func TestPaymentServiceSettlingExactBalance(t *testing.T) {
	svc, students, _, _, _ := newPaymentFixture()

	// owed 9500 after the fixture's 3000 prior payments; paying it exactly
	// zeroes both the snapshot and the stored balance
	receipt, err := svc.NewPayment(context.Background(), repository.Tenant{SchoolID: 1}, "user-1", NewPaymentRequest{
		StudentID: "JPS-001",
		Method:    models.PaymentMethodCash,
		Amount:    money("9500"),
	})
	require.NoError(t, err)

	assert.True(t, receipt.BalanceAfter.IsZero())
	assert.True(t, students.students["JPS-001"].CFBalance.IsZero())
}
