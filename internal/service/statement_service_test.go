package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Kimshubb/jps-erp-api/internal/models"
	"github.com/Kimshubb/jps-erp-api/internal/repository"
	appErrors "github.com/Kimshubb/jps-erp-api/pkg/errors"
)

type mockGradeStore struct {
	grades map[int64]*models.Grade
}

func (m *mockGradeStore) FindByID(ctx context.Context, scope repository.Tenant, id int64) (*models.Grade, error) {
	grade, ok := m.grades[id]
	if !ok || grade.SchoolID != scope.SchoolID {
		return nil, sql.ErrNoRows
	}
	return grade, nil
}

func newStatementFixture() (*StatementService, *mockPaymentStore) {
	balances, students, terms, _, _, payments := newBalanceFixture()
	grades := &mockGradeStore{grades: map[int64]*models.Grade{
		5: {ID: 5, SchoolID: 1, Name: "Grade 5"},
	}}

	code := "QWE12345"
	payments.recorded = []models.FeePayment{
		{
			ID: "pay-1", SchoolID: 1, StudentID: "JPS-001", TermID: 7,
			Method: models.PaymentMethodCash, Amount: money("1000"),
			PayDate: time.Date(2026, 5, 12, 0, 0, 0, 0, time.UTC),
			Balance: money("11500"),
		},
		{
			ID: "pay-2", SchoolID: 1, StudentID: "JPS-001", TermID: 7,
			Method: models.PaymentMethodMpesa, Amount: money("2000"), Code: &code,
			PayDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
			Balance: money("9500"),
		},
	}

	svc := NewStatementService(balances, students, terms, grades, payments, "JPS Primary School", zap.NewNop())
	return svc, payments
}

func TestStatementServiceBuild(t *testing.T) {
	svc, _ := newStatementFixture()

	statement, err := svc.Build(context.Background(), repository.Tenant{SchoolID: 1}, "JPS-001")
	require.NoError(t, err)

	assert.Equal(t, "JPS-001", statement.StudentID)
	assert.Equal(t, "Grade 5", statement.GradeName)
	assert.Equal(t, "Term 2", statement.TermName)
	require.Len(t, statement.Lines, 2)
	assert.Equal(t, "Cash", statement.Lines[0].Method)
	assert.Equal(t, "QWE12345", statement.Lines[1].Code)
	assert.True(t, money("9500").Equal(statement.Lines[1].Balance))
	assert.True(t, money("3000").Equal(statement.Summary.TotalPaid))
	assert.True(t, money("9500").Equal(statement.Summary.CurrentBalance))
}

func TestStatementServiceRenderCSV(t *testing.T) {
	svc, _ := newStatementFixture()

	data, statement, err := svc.RenderCSV(context.Background(), repository.Tenant{SchoolID: 1}, "JPS-001")
	require.NoError(t, err)
	require.NotNil(t, statement)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Date,Method,Code,Amount,Balance", lines[0])
	assert.Equal(t, "2026-05-12,Cash,,1000.00,11500.00", lines[1])
	assert.Equal(t, "2026-06-01,Mpesa,QWE12345,2000.00,9500.00", lines[2])
}

func TestStatementServiceRenderCSVNoPayments(t *testing.T) {
	svc, payments := newStatementFixture()
	payments.recorded = nil

	data, _, err := svc.RenderCSV(context.Background(), repository.Tenant{SchoolID: 1}, "JPS-001")
	require.NoError(t, err)
	assert.Equal(t, "Date,Method,Code,Amount,Balance\n", string(data))
}

func TestStatementServiceRenderPDF(t *testing.T) {
	svc, _ := newStatementFixture()

	data, statement, err := svc.RenderPDF(context.Background(), repository.Tenant{SchoolID: 1}, "JPS-001")
	require.NoError(t, err)
	require.NotNil(t, statement)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))
}

func TestStatementServiceUnknownStudent(t *testing.T) {
	svc, _ := newStatementFixture()

	_, err := svc.Build(context.Background(), repository.Tenant{SchoolID: 1}, "JPS-404")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStudentNotFound.Code, appErrors.FromError(err).Code)
}
