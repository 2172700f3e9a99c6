package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Kimshubb/jps-erp-api/internal/dto"
	"github.com/Kimshubb/jps-erp-api/internal/models"
	"github.com/Kimshubb/jps-erp-api/internal/repository"
	appErrors "github.com/Kimshubb/jps-erp-api/pkg/errors"
	"github.com/Kimshubb/jps-erp-api/pkg/export"
)

type statementGradeRepository interface {
	FindByID(ctx context.Context, scope repository.Tenant, id int64) (*models.Grade, error)
}

type statementPaymentRepository interface {
	ListForStudentTerm(ctx context.Context, scope repository.Tenant, studentID string, termID int64) ([]models.FeePayment, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	RenderWithSummary(data export.Dataset, title string, summary []string) ([]byte, error)
}

// StatementService builds per-student fee statements and renders them for
// download.
type StatementService struct {
	balances *BalanceService
	students balanceStudentRepository
	terms    balanceTermRepository
	grades   statementGradeRepository
	payments statementPaymentRepository
	csv      csvRenderer
	pdf      pdfRenderer
	footer   string
	logger   *zap.Logger
}

// NewStatementService creates a statement service.
func NewStatementService(balances *BalanceService, students balanceStudentRepository, terms balanceTermRepository, grades statementGradeRepository, payments statementPaymentRepository, footer string, logger *zap.Logger) *StatementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatementService{
		balances: balances,
		students: students,
		terms:    terms,
		grades:   grades,
		payments: payments,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		footer:   footer,
		logger:   logger,
	}
}

// Build assembles the statement for a student's current term: every payment in
// chronological order with its recorded balance snapshot, plus the recomputed
// summary.
func (s *StatementService) Build(ctx context.Context, scope repository.Tenant, studentID string) (*dto.FeeStatement, error) {
	term, err := s.terms.FindCurrent(ctx, scope)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNoCurrentTerm, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current term")
	}

	student, err := s.students.FindByID(ctx, scope, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStudentNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	gradeName := ""
	if grade, err := s.grades.FindByID(ctx, scope, student.GradeID); err == nil {
		gradeName = grade.Name
	}

	summary, err := s.balances.ComputeBalance(ctx, scope, studentID, term.ID)
	if err != nil {
		return nil, err
	}

	payments, err := s.payments.ListForStudentTerm(ctx, scope, studentID, term.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}

	lines := make([]dto.StatementLine, 0, len(payments))
	for _, p := range payments {
		line := dto.StatementLine{
			PaymentID: p.ID,
			PayDate:   p.PayDate,
			Method:    string(p.Method),
			Amount:    p.Amount,
			Balance:   p.Balance,
		}
		if p.Code != nil {
			line.Code = *p.Code
		}
		lines = append(lines, line)
	}

	return &dto.FeeStatement{
		StudentID:   student.ID,
		StudentName: student.FullName,
		GradeName:   gradeName,
		TermID:      term.ID,
		TermName:    term.Name,
		Summary:     *summary,
		Lines:       lines,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// RenderCSV renders the statement's payment lines as CSV.
func (s *StatementService) RenderCSV(ctx context.Context, scope repository.Tenant, studentID string) ([]byte, *dto.FeeStatement, error) {
	statement, err := s.Build(ctx, scope, studentID)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.csv.Render(statementDataset(statement))
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render statement csv")
	}
	return data, statement, nil
}

// RenderPDF renders the statement as a PDF with the balance summary.
func (s *StatementService) RenderPDF(ctx context.Context, scope repository.Tenant, studentID string) ([]byte, *dto.FeeStatement, error) {
	statement, err := s.Build(ctx, scope, studentID)
	if err != nil {
		return nil, nil, err
	}

	title := fmt.Sprintf("Fee Statement - %s (%s) - %s", statement.StudentName, statement.StudentID, statement.TermName)
	summary := []string{
		fmt.Sprintf("Brought forward: %s", statement.Summary.CFBalance.StringFixed(2)),
		fmt.Sprintf("Standard fees: %s", statement.Summary.StandardFees.StringFixed(2)),
		fmt.Sprintf("Additional fees: %s", statement.Summary.AdditionalFees.StringFixed(2)),
		fmt.Sprintf("Total paid: %s", statement.Summary.TotalPaid.StringFixed(2)),
		fmt.Sprintf("Balance due: %s", statement.Summary.CurrentBalance.StringFixed(2)),
	}
	if s.footer != "" {
		summary = append(summary, s.footer)
	}

	data, err := s.pdf.RenderWithSummary(statementDataset(statement), title, summary)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render statement pdf")
	}
	return data, statement, nil
}

func statementDataset(statement *dto.FeeStatement) export.Dataset {
	rows := make([]map[string]string, 0, len(statement.Lines))
	for _, line := range statement.Lines {
		rows = append(rows, map[string]string{
			"Date":    line.PayDate.Format("2006-01-02"),
			"Method":  line.Method,
			"Code":    line.Code,
			"Amount":  line.Amount.StringFixed(2),
			"Balance": line.Balance.StringFixed(2),
		})
	}
	return export.Dataset{
		Headers: []string{"Date", "Method", "Code", "Amount", "Balance"},
		Rows:    rows,
	}
}
