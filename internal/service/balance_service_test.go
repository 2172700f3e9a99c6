package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Kimshubb/jps-erp-api/internal/fees"
	"github.com/Kimshubb/jps-erp-api/internal/models"
	"github.com/Kimshubb/jps-erp-api/internal/repository"
	appErrors "github.com/Kimshubb/jps-erp-api/pkg/errors"
)

type mockStudentStore struct {
	students map[string]*models.Student
}

func (m *mockStudentStore) FindByID(ctx context.Context, scope repository.Tenant, id string) (*models.Student, error) {
	student, ok := m.students[id]
	if !ok || student.SchoolID != scope.SchoolID {
		return nil, sql.ErrNoRows
	}
	copied := *student
	return &copied, nil
}

type mockTermStore struct {
	current  *models.Term
	previous *models.Term
}

func (m *mockTermStore) FindCurrent(ctx context.Context, scope repository.Tenant) (*models.Term, error) {
	if m.current == nil {
		return nil, sql.ErrNoRows
	}
	return m.current, nil
}

func (m *mockTermStore) FindPrevious(ctx context.Context, scope repository.Tenant, before time.Time) (*models.Term, error) {
	if m.previous == nil {
		return nil, sql.ErrNoRows
	}
	return m.previous, nil
}

type feeStructureKey struct {
	gradeID int64
	termID  int64
}

type mockFeeStructureStore struct {
	structures map[feeStructureKey]*models.FeeStructure
}

func (m *mockFeeStructureStore) FindByGradeAndTerm(ctx context.Context, scope repository.Tenant, gradeID, termID int64) (*models.FeeStructure, error) {
	fs, ok := m.structures[feeStructureKey{gradeID, termID}]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return fs, nil
}

type mockAdditionalStore struct {
	sums map[string]decimal.Decimal
}

func (m *mockAdditionalStore) SumForStudent(ctx context.Context, scope repository.Tenant, studentID string) (decimal.Decimal, error) {
	return m.sums[studentID], nil
}

// mockPaymentStore backs both the balance reads and the payment write path. It
// reproduces the transactional balance arithmetic so receipts can be asserted
// end to end.
type mockPaymentStore struct {
	students  *mockStudentStore
	paid      map[string]decimal.Decimal
	usedCodes map[string]bool
	recorded  []models.FeePayment
}

func (m *mockPaymentStore) SumForStudentTerm(ctx context.Context, scope repository.Tenant, studentID string, termID int64) (decimal.Decimal, error) {
	return m.paid[studentID], nil
}

func (m *mockPaymentStore) ListForStudentTerm(ctx context.Context, scope repository.Tenant, studentID string, termID int64) ([]models.FeePayment, error) {
	var out []models.FeePayment
	for _, p := range m.recorded {
		if p.StudentID == studentID && p.TermID == termID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPaymentStore) MpesaCodeExists(ctx context.Context, scope repository.Tenant, code string) (bool, error) {
	return m.usedCodes[code], nil
}

func (m *mockPaymentStore) ApplyPayment(ctx context.Context, scope repository.Tenant, payment *models.FeePayment, standardFees, additionalFees decimal.Decimal, mpesa *models.MpesaTransaction) error {
	if mpesa != nil {
		if m.usedCodes[mpesa.Code] {
			return appErrors.Clone(appErrors.ErrDuplicateTxnCode, "")
		}
		if m.usedCodes == nil {
			m.usedCodes = make(map[string]bool)
		}
		m.usedCodes[mpesa.Code] = true
	}
	student := m.students.students[payment.StudentID]
	prior := fees.ApplyPayment(student.CFBalance, standardFees, additionalFees, m.paid[payment.StudentID])
	payment.Balance = prior.Sub(payment.Amount)
	student.CFBalance = fees.Floor(payment.Balance)
	if m.paid == nil {
		m.paid = make(map[string]decimal.Decimal)
	}
	m.paid[payment.StudentID] = m.paid[payment.StudentID].Add(payment.Amount)
	m.recorded = append(m.recorded, *payment)
	return nil
}

type mockAuditStore struct {
	entries []models.AuditLog
}

func (m *mockAuditStore) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	m.entries = append(m.entries, *entry)
	return nil
}

func money(v string) decimal.Decimal {
	d, _ := decimal.NewFromString(v)
	return d
}

func newBalanceFixture() (*BalanceService, *mockStudentStore, *mockTermStore, *mockFeeStructureStore, *mockAdditionalStore, *mockPaymentStore) {
	students := &mockStudentStore{students: map[string]*models.Student{
		"JPS-001": {ID: "JPS-001", SchoolID: 1, GradeID: 5, CFBalance: money("500"), Active: true},
	}}
	terms := &mockTermStore{current: &models.Term{ID: 7, SchoolID: 1, Name: "Term 2", Current: true}}
	structures := &mockFeeStructureStore{structures: map[feeStructureKey]*models.FeeStructure{
		{5, 7}: {GradeID: 5, TermID: 7, TuitionFee: money("8000"), AssBooks: money("1000"), DiaryFee: money("300"), ActivityFee: money("500"), Others: money("200")},
	}}
	additional := &mockAdditionalStore{sums: map[string]decimal.Decimal{"JPS-001": money("2000")}}
	payments := &mockPaymentStore{students: students, paid: map[string]decimal.Decimal{"JPS-001": money("3000")}}

	svc := NewBalanceService(students, terms, structures, additional, payments, zap.NewNop())
	return svc, students, terms, structures, additional, payments
}

func TestBalanceServiceGetBalance(t *testing.T) {
	svc, _, _, _, _, _ := newBalanceFixture()

	breakdown, err := svc.GetBalance(context.Background(), repository.Tenant{SchoolID: 1}, "JPS-001")
	require.NoError(t, err)

	assert.True(t, money("500").Equal(breakdown.CFBalance))
	assert.True(t, money("10000").Equal(breakdown.StandardFees))
	assert.True(t, money("2000").Equal(breakdown.AdditionalFees))
	assert.True(t, money("12000").Equal(breakdown.TotalBilled))
	assert.True(t, money("3000").Equal(breakdown.TotalPaid))
	assert.True(t, money("9500").Equal(breakdown.CurrentBalance))
}

func TestBalanceServiceStudentNotFound(t *testing.T) {
	svc, _, _, _, _, _ := newBalanceFixture()

	_, err := svc.GetBalance(context.Background(), repository.Tenant{SchoolID: 1}, "JPS-404")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStudentNotFound.Code, appErrors.FromError(err).Code)
}

func TestBalanceServiceNoCurrentTerm(t *testing.T) {
	svc, _, terms, _, _, _ := newBalanceFixture()
	terms.current = nil

	_, err := svc.GetBalance(context.Background(), repository.Tenant{SchoolID: 1}, "JPS-001")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoCurrentTerm.Code, appErrors.FromError(err).Code)
}

func TestBalanceServiceMissingFeeStructureDegradesToZero(t *testing.T) {
	svc, _, _, structures, _, _ := newBalanceFixture()
	structures.structures = nil

	breakdown, err := svc.GetBalance(context.Background(), repository.Tenant{SchoolID: 1}, "JPS-001")
	require.NoError(t, err)
	assert.True(t, breakdown.StandardFees.IsZero())
	// 500 + 0 + 2000 - 3000
	assert.True(t, money("-500").Equal(breakdown.CurrentBalance))
}

func TestBalanceServiceZeroState(t *testing.T) {
	svc, _, _, structures, additional, payments := newBalanceFixture()
	structures.structures = nil
	additional.sums = nil
	payments.paid = nil

	// no structure, no additional fees, no payments: the balance is just the
	// carried-forward amount
	breakdown, err := svc.GetBalance(context.Background(), repository.Tenant{SchoolID: 1}, "JPS-001")
	require.NoError(t, err)
	assert.True(t, money("500").Equal(breakdown.CFBalance))
	assert.True(t, breakdown.StandardFees.IsZero())
	assert.True(t, breakdown.AdditionalFees.IsZero())
	assert.True(t, breakdown.TotalBilled.IsZero())
	assert.True(t, breakdown.TotalPaid.IsZero())
	assert.True(t, money("500").Equal(breakdown.CurrentBalance))
}

func TestBalanceServiceRepeatedReadsAgree(t *testing.T) {
	svc, _, _, _, _, _ := newBalanceFixture()

	first, err := svc.GetBalance(context.Background(), repository.Tenant{SchoolID: 1}, "JPS-001")
	require.NoError(t, err)
	second, err := svc.GetBalance(context.Background(), repository.Tenant{SchoolID: 1}, "JPS-001")
	require.NoError(t, err)

	assert.True(t, first.CurrentBalance.Equal(second.CurrentBalance))
	assert.True(t, first.TotalBilled.Equal(second.TotalBilled))
	assert.True(t, first.TotalPaid.Equal(second.TotalPaid))
}

func TestBalanceServiceTenantIsolation(t *testing.T) {
	svc, _, _, _, _, _ := newBalanceFixture()

	// same admission number, wrong school
	_, err := svc.GetBalance(context.Background(), repository.Tenant{SchoolID: 2}, "JPS-001")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStudentNotFound.Code, appErrors.FromError(err).Code)
}
