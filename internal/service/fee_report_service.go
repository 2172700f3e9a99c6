package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Kimshubb/jps-erp-api/internal/dto"
	"github.com/Kimshubb/jps-erp-api/internal/fees"
	"github.com/Kimshubb/jps-erp-api/internal/models"
	"github.com/Kimshubb/jps-erp-api/internal/repository"
	appErrors "github.com/Kimshubb/jps-erp-api/pkg/errors"
)

type reportRepository interface {
	GradeFeeTotals(ctx context.Context, scope repository.Tenant, termID int64) ([]repository.GradeFeeRow, error)
	AdditionalFeeDetails(ctx context.Context, scope repository.Tenant, gradeID, termID int64) ([]repository.AdditionalFeeRow, error)
	AdditionalFeeGradeTotals(ctx context.Context, scope repository.Tenant, termID int64) ([]repository.GradeAdditionalRow, error)
}

type reportTermRepository interface {
	FindCurrent(ctx context.Context, scope repository.Tenant) (*models.Term, error)
	FindPrevious(ctx context.Context, scope repository.Tenant, before time.Time) (*models.Term, error)
}

type reportPaymentRepository interface {
	MethodTotals(ctx context.Context, scope repository.Tenant, termID int64) (map[models.PaymentMethod]decimal.Decimal, error)
}

// methodOrder fixes the display order of the method mix.
var methodOrder = []models.PaymentMethod{
	models.PaymentMethodCash,
	models.PaymentMethodMpesa,
	models.PaymentMethodBank,
}

// FeeReportService assembles the school-wide fee report for the current term,
// with previous-term comparisons where a previous term exists.
type FeeReportService struct {
	reports  reportRepository
	terms    reportTermRepository
	payments reportPaymentRepository
	cache    *CacheService
	ttl      time.Duration
	logger   *zap.Logger
}

// NewFeeReportService creates a fee report service.
func NewFeeReportService(reports reportRepository, terms reportTermRepository, payments reportPaymentRepository, cache *CacheService, ttl time.Duration, logger *zap.Logger) *FeeReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeeReportService{reports: reports, terms: terms, payments: payments, cache: cache, ttl: ttl, logger: logger}
}

// BuildFeeReport assembles the full report. Results are cached per school and
// term; payment recording invalidates the school's report keys.
func (s *FeeReportService) BuildFeeReport(ctx context.Context, scope repository.Tenant) (*dto.FeeReport, error) {
	current, err := s.terms.FindCurrent(ctx, scope)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNoCurrentTerm, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current term")
	}

	cacheKey := fmt.Sprintf("reports:school:%d:feereport:term:%d", scope.SchoolID, current.ID)
	if s.cache != nil {
		var cached dto.FeeReport
		if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
			return &cached, nil
		}
	}

	report := &dto.FeeReport{
		SchoolID: scope.SchoolID,
		TermID:   current.ID,
		TermName: current.Name,
	}

	// A school in its first term has nothing to compare against; the previous
	// blocks stay empty rather than erroring.
	previous, err := s.terms.FindPrevious(ctx, scope, current.StartDate)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load previous term")
	}
	if previous != nil {
		report.PreviousTermID = &previous.ID
		report.PreviousTermName = previous.Name
	}

	if err := s.buildGradeDetails(ctx, scope, current.ID, report); err != nil {
		return nil, err
	}
	if err := s.buildMethodComparison(ctx, scope, current.ID, previous, report); err != nil {
		return nil, err
	}
	if err := s.buildTermComparisons(ctx, scope, current.ID, previous, report); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, report, s.ttl); err != nil {
			s.logger.Warn("failed to cache fee report", zap.Error(err))
		}
	}
	return report, nil
}

func (s *FeeReportService) buildGradeDetails(ctx context.Context, scope repository.Tenant, termID int64, report *dto.FeeReport) error {
	rows, err := s.reports.GradeFeeTotals(ctx, scope, termID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate grade fees")
	}

	details := make([]dto.GradeFeeDetail, 0, len(rows))
	for _, row := range rows {
		detail := dto.GradeFeeDetail{
			GradeID:       row.GradeID,
			GradeName:     row.GradeName,
			ExpectedFees:  row.ExpectedFees,
			TotalFeesPaid: row.TotalFeesPaid,
			TotalBalance:  row.ExpectedFees.Sub(row.TotalFeesPaid),
			TotalStudents: row.TotalStudents,
		}

		feeRows, err := s.reports.AdditionalFeeDetails(ctx, scope, row.GradeID, termID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate additional fees")
		}
		detail.AdditionalFees = make([]dto.AdditionalFeeInfo, 0, len(feeRows))
		for _, fr := range feeRows {
			detail.AdditionalFees = append(detail.AdditionalFees, dto.AdditionalFeeInfo{
				FeeID:        fr.FeeID,
				FeeName:      fr.FeeName,
				Amount:       fr.Amount,
				StudentCount: fr.StudentCount,
				TotalBilled:  fr.Amount.Mul(decimal.NewFromInt(int64(fr.StudentCount))),
				Students:     []string(fr.Students),
			})
		}
		details = append(details, detail)
	}
	report.GradeDetails = details
	return nil
}

func (s *FeeReportService) buildMethodComparison(ctx context.Context, scope repository.Tenant, termID int64, previous *models.Term, report *dto.FeeReport) error {
	current, err := s.methodMix(ctx, scope, termID)
	if err != nil {
		return err
	}
	report.PaymentMethodComparison.Current = current

	if previous == nil {
		report.PaymentMethodComparison.Previous = []dto.MethodBreakdown{}
		return nil
	}
	prev, err := s.methodMix(ctx, scope, previous.ID)
	if err != nil {
		return err
	}
	report.PaymentMethodComparison.Previous = prev
	return nil
}

// methodMix returns per-method totals with each method's percentage share.
// Methods with no payments are omitted; a term with no payments yields an
// empty slice, never a division by zero.
func (s *FeeReportService) methodMix(ctx context.Context, scope repository.Tenant, termID int64) ([]dto.MethodBreakdown, error) {
	totals, err := s.payments.MethodTotals(ctx, scope, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate payment methods")
	}

	grand := decimal.Zero
	for _, amount := range totals {
		grand = grand.Add(amount)
	}

	mix := make([]dto.MethodBreakdown, 0, len(totals))
	for _, method := range methodOrder {
		amount, ok := totals[method]
		if !ok {
			continue
		}
		mix = append(mix, dto.MethodBreakdown{
			Method:     string(method),
			Total:      amount,
			Percentage: fees.Percentage(amount, grand),
		})
	}
	return mix, nil
}

func (s *FeeReportService) buildTermComparisons(ctx context.Context, scope repository.Tenant, termID int64, previous *models.Term, report *dto.FeeReport) error {
	currentTotals, err := s.gradeTermTotals(ctx, scope, termID)
	if err != nil {
		return err
	}
	currentAdditional, err := s.additionalGradeTotals(ctx, scope, termID)
	if err != nil {
		return err
	}
	report.TermComparison.Current = currentTotals
	report.TermComparison.Previous = []dto.GradeTermTotals{}
	report.AdditionalFeesComparison.Current = currentAdditional
	report.AdditionalFeesComparison.Previous = []dto.GradeTermTotals{}

	if previous == nil {
		return nil
	}

	previousTotals, err := s.gradeTermTotals(ctx, scope, previous.ID)
	if err != nil {
		return err
	}
	previousAdditional, err := s.additionalGradeTotals(ctx, scope, previous.ID)
	if err != nil {
		return err
	}
	report.TermComparison.Previous = previousTotals
	report.AdditionalFeesComparison.Previous = previousAdditional
	return nil
}

func (s *FeeReportService) gradeTermTotals(ctx context.Context, scope repository.Tenant, termID int64) ([]dto.GradeTermTotals, error) {
	rows, err := s.reports.GradeFeeTotals(ctx, scope, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate grade fees")
	}
	totals := make([]dto.GradeTermTotals, 0, len(rows))
	for _, row := range rows {
		totals = append(totals, dto.GradeTermTotals{
			GradeID:       row.GradeID,
			GradeName:     row.GradeName,
			TotalFeesPaid: row.TotalFeesPaid,
		})
	}
	return totals, nil
}

func (s *FeeReportService) additionalGradeTotals(ctx context.Context, scope repository.Tenant, termID int64) ([]dto.GradeTermTotals, error) {
	rows, err := s.reports.AdditionalFeeGradeTotals(ctx, scope, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate additional fee totals")
	}
	totals := make([]dto.GradeTermTotals, 0, len(rows))
	for _, row := range rows {
		totals = append(totals, dto.GradeTermTotals{
			GradeID:         row.GradeID,
			GradeName:       row.GradeName,
			AdditionalTotal: row.AdditionalTotal,
			AdditionalCount: row.AdditionalCount,
		})
	}
	return totals, nil
}
