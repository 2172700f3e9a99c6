package dto

import "github.com/shopspring/decimal"

// BalanceBreakdown is the full recomputation of a student's balance for a term.
// CurrentBalance = CFBalance + TotalBilled - TotalPaid.
type BalanceBreakdown struct {
	StudentID      string          `json:"student_id"`
	TermID         int64           `json:"term_id"`
	CFBalance      decimal.Decimal `json:"cf_balance"`
	StandardFees   decimal.Decimal `json:"standard_fees"`
	AdditionalFees decimal.Decimal `json:"additional_fees"`
	TotalBilled    decimal.Decimal `json:"total_billed"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
}

// PaymentReceipt is returned after a successful payment, pairing the recorded
// payment with the student's updated carry-forward balance.
type PaymentReceipt struct {
	PaymentID     string          `json:"payment_id"`
	StudentID     string          `json:"student_id"`
	TermID        int64           `json:"term_id"`
	Method        string          `json:"method"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	CFBalance     decimal.Decimal `json:"cf_balance"`
}
