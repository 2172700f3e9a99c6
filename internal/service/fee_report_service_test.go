package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Kimshubb/jps-erp-api/internal/models"
	"github.com/Kimshubb/jps-erp-api/internal/repository"
	appErrors "github.com/Kimshubb/jps-erp-api/pkg/errors"
)

type mockReportStore struct {
	gradeTotals      map[int64][]repository.GradeFeeRow
	additionalRows   map[int64][]repository.AdditionalFeeRow
	additionalTotals map[int64][]repository.GradeAdditionalRow
}

func (m *mockReportStore) GradeFeeTotals(ctx context.Context, scope repository.Tenant, termID int64) ([]repository.GradeFeeRow, error) {
	return m.gradeTotals[termID], nil
}

func (m *mockReportStore) AdditionalFeeDetails(ctx context.Context, scope repository.Tenant, gradeID, termID int64) ([]repository.AdditionalFeeRow, error) {
	return m.additionalRows[gradeID], nil
}

func (m *mockReportStore) AdditionalFeeGradeTotals(ctx context.Context, scope repository.Tenant, termID int64) ([]repository.GradeAdditionalRow, error) {
	return m.additionalTotals[termID], nil
}

type mockMethodStore struct {
	totals map[int64]map[models.PaymentMethod]decimal.Decimal
}

func (m *mockMethodStore) MethodTotals(ctx context.Context, scope repository.Tenant, termID int64) (map[models.PaymentMethod]decimal.Decimal, error) {
	if totals, ok := m.totals[termID]; ok {
		return totals, nil
	}
	return map[models.PaymentMethod]decimal.Decimal{}, nil
}

func newReportFixture() (*FeeReportService, *mockTermStore, *mockReportStore, *mockMethodStore) {
	terms := &mockTermStore{
		current:  &models.Term{ID: 7, SchoolID: 1, Name: "Term 2", StartDate: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), Current: true},
		previous: &models.Term{ID: 6, SchoolID: 1, Name: "Term 1"},
	}
	reports := &mockReportStore{
		gradeTotals: map[int64][]repository.GradeFeeRow{
			7: {
				{GradeID: 5, GradeName: "Grade 1", ExpectedFees: money("10000"), TotalFeesPaid: money("7500"), TotalStudents: 30},
				{GradeID: 6, GradeName: "Grade 2", ExpectedFees: money("0"), TotalFeesPaid: money("0"), TotalStudents: 25},
			},
			6: {
				{GradeID: 5, GradeName: "Grade 1", ExpectedFees: money("9000"), TotalFeesPaid: money("9000"), TotalStudents: 28},
			},
		},
		additionalRows: map[int64][]repository.AdditionalFeeRow{
			5: {{FeeID: 1, FeeName: "Trip Fee", Amount: money("2000"), StudentCount: 3, Students: []string{"Amani O.", "Brian K.", "Cynthia W."}}},
		},
		additionalTotals: map[int64][]repository.GradeAdditionalRow{
			7: {{GradeID: 5, GradeName: "Grade 1", AdditionalTotal: money("6000"), AdditionalCount: 3}},
			6: {{GradeID: 5, GradeName: "Grade 1", AdditionalTotal: money("4000"), AdditionalCount: 2}},
		},
	}
	methods := &mockMethodStore{totals: map[int64]map[models.PaymentMethod]decimal.Decimal{
		7: {
			models.PaymentMethodCash:  money("2500"),
			models.PaymentMethodMpesa: money("5000"),
		},
		6: {
			models.PaymentMethodCash: money("9000"),
		},
	}}

	svc := NewFeeReportService(reports, terms, methods, nil, 0, zap.NewNop())
	return svc, terms, reports, methods
}

func TestFeeReportServiceBuildsFullReport(t *testing.T) {
	svc, _, _, _ := newReportFixture()

	report, err := svc.BuildFeeReport(context.Background(), repository.Tenant{SchoolID: 1})
	require.NoError(t, err)

	assert.Equal(t, int64(7), report.TermID)
	require.NotNil(t, report.PreviousTermID)
	assert.Equal(t, int64(6), *report.PreviousTermID)

	require.Len(t, report.GradeDetails, 2)
	grade1 := report.GradeDetails[0]
	assert.Equal(t, "Grade 1", grade1.GradeName)
	assert.True(t, money("2500").Equal(grade1.TotalBalance))
	require.Len(t, grade1.AdditionalFees, 1)
	assert.Equal(t, "Trip Fee", grade1.AdditionalFees[0].FeeName)
	assert.True(t, money("6000").Equal(grade1.AdditionalFees[0].TotalBilled))
	assert.Equal(t, []string{"Amani O.", "Brian K.", "Cynthia W."}, grade1.AdditionalFees[0].Students)

	// grade with no fee structure and no payments still appears, zeroed
	grade2 := report.GradeDetails[1]
	assert.True(t, grade2.ExpectedFees.IsZero())
	assert.True(t, grade2.TotalBalance.IsZero())

	require.Len(t, report.TermComparison.Current, 2)
	require.Len(t, report.TermComparison.Previous, 1)
	assert.True(t, money("9000").Equal(report.TermComparison.Previous[0].TotalFeesPaid))

	require.Len(t, report.AdditionalFeesComparison.Current, 1)
	require.Len(t, report.AdditionalFeesComparison.Previous, 1)
	assert.True(t, money("4000").Equal(report.AdditionalFeesComparison.Previous[0].AdditionalTotal))
}

func TestFeeReportServiceMethodMixPercentages(t *testing.T) {
	svc, _, _, _ := newReportFixture()

	report, err := svc.BuildFeeReport(context.Background(), repository.Tenant{SchoolID: 1})
	require.NoError(t, err)

	mix := report.PaymentMethodComparison.Current
	require.Len(t, mix, 2)
	assert.Equal(t, "Cash", mix[0].Method)
	assert.True(t, money("33.33").Equal(mix[0].Percentage))
	assert.Equal(t, "Mpesa", mix[1].Method)
	assert.True(t, money("66.67").Equal(mix[1].Percentage))

	prev := report.PaymentMethodComparison.Previous
	require.Len(t, prev, 1)
	assert.True(t, money("100").Equal(prev[0].Percentage))
}

func TestFeeReportServiceNoPreviousTerm(t *testing.T) {
	svc, terms, _, _ := newReportFixture()
	terms.previous = nil

	report, err := svc.BuildFeeReport(context.Background(), repository.Tenant{SchoolID: 1})
	require.NoError(t, err)

	assert.Nil(t, report.PreviousTermID)
	assert.Empty(t, report.PaymentMethodComparison.Previous)
	assert.Empty(t, report.TermComparison.Previous)
	assert.Empty(t, report.AdditionalFeesComparison.Previous)
	assert.NotEmpty(t, report.GradeDetails)
}

func TestFeeReportServiceNoCurrentTerm(t *testing.T) {
	svc, terms, _, _ := newReportFixture()
	terms.current = nil

	_, err := svc.BuildFeeReport(context.Background(), repository.Tenant{SchoolID: 1})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoCurrentTerm.Code, appErrors.FromError(err).Code)
}
