package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatementLine is one payment event in a student's fee statement. Balance is
// the snapshot recorded on the payment row at the time it was processed.
type StatementLine struct {
	PaymentID string          `json:"payment_id"`
	PayDate   time.Time       `json:"pay_date"`
	Method    string          `json:"method"`
	Code      string          `json:"code,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Balance   decimal.Decimal `json:"balance"`
}

// FeeStatement is the full payment history and balance summary for a student
// within a term.
type FeeStatement struct {
	StudentID   string           `json:"student_id"`
	StudentName string           `json:"student_name"`
	GradeName   string           `json:"grade_name"`
	TermID      int64            `json:"term_id"`
	TermName    string           `json:"term_name"`
	Summary     BalanceBreakdown `json:"summary"`
	Lines       []StatementLine  `json:"lines"`
	GeneratedAt time.Time        `json:"generated_at"`
}
