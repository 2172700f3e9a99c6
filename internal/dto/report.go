package dto

import "github.com/shopspring/decimal"

// GradeFeeDetail summarises fee collection for one grade in a term.
// ExpectedFees is the flat fee-schedule sum for the grade, not multiplied by
// student count; TotalBalance = ExpectedFees - TotalFeesPaid.
type GradeFeeDetail struct {
	GradeID        int64               `json:"grade_id"`
	GradeName      string              `json:"grade_name"`
	ExpectedFees   decimal.Decimal     `json:"expected_fees"`
	TotalFeesPaid  decimal.Decimal     `json:"total_fees_paid"`
	TotalBalance   decimal.Decimal     `json:"total_balance"`
	TotalStudents  int                 `json:"total_students"`
	AdditionalFees []AdditionalFeeInfo `json:"additional_fees"`
}

// AdditionalFeeInfo details one optional fee's uptake within a grade and term.
type AdditionalFeeInfo struct {
	FeeID        int64           `json:"fee_id"`
	FeeName      string          `json:"fee_name"`
	Amount       decimal.Decimal `json:"amount"`
	StudentCount int             `json:"student_count"`
	TotalBilled  decimal.Decimal `json:"total_billed"`
	Students     []string        `json:"students"`
}

// MethodBreakdown maps a payment method to its share of the term's collections.
type MethodBreakdown struct {
	Method     string          `json:"method"`
	Total      decimal.Decimal `json:"total"`
	Percentage decimal.Decimal `json:"percentage"`
}

// PaymentMethodComparison contrasts the method mix of two terms. Previous is
// empty when no previous term exists or it recorded no payments.
type PaymentMethodComparison struct {
	Current  []MethodBreakdown `json:"current"`
	Previous []MethodBreakdown `json:"previous"`
}

// GradeTermTotals carries per-grade totals for one term.
type GradeTermTotals struct {
	GradeID         int64           `json:"grade_id"`
	GradeName       string          `json:"grade_name"`
	TotalFeesPaid   decimal.Decimal `json:"total_fees_paid"`
	AdditionalTotal decimal.Decimal `json:"additional_total"`
	AdditionalCount int             `json:"additional_count"`
}

// TermComparison contrasts per-grade totals between the current and previous
// term. Previous is empty when no previous term exists.
type TermComparison struct {
	Current  []GradeTermTotals `json:"current"`
	Previous []GradeTermTotals `json:"previous"`
}

// FeeReport is the school-wide fee report for the current term with
// previous-term comparisons.
type FeeReport struct {
	SchoolID                 int64                   `json:"school_id"`
	TermID                   int64                   `json:"term_id"`
	TermName                 string                  `json:"term_name"`
	PreviousTermID           *int64                  `json:"previous_term_id,omitempty"`
	PreviousTermName         string                  `json:"previous_term_name,omitempty"`
	GradeDetails             []GradeFeeDetail        `json:"grade_details"`
	PaymentMethodComparison  PaymentMethodComparison `json:"payment_method_comparison"`
	TermComparison           TermComparison          `json:"term_comparison"`
	AdditionalFeesComparison TermComparison          `json:"additional_fees_comparison"`
}
