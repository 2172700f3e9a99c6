package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod enumerates accepted payment channels.
type PaymentMethod string

const (
	PaymentMethodCash  PaymentMethod = "Cash"
	PaymentMethodMpesa PaymentMethod = "Mpesa"
	PaymentMethodBank  PaymentMethod = "Bank"
)

// Valid reports whether the method is one of the accepted channels.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodMpesa, PaymentMethodBank:
		return true
	}
	return false
}

// RequiresCode reports whether the method must carry a transaction code.
func (m PaymentMethod) RequiresCode() bool {
	return m == PaymentMethodMpesa || m == PaymentMethodBank
}

// FeePayment records one payment event against a student's account for a term.
// Balance is the point-in-time balance after this payment; it is the raw signed
// value and may be negative when the student overpays.
type FeePayment struct {
	ID        string          `db:"id" json:"id"`
	SchoolID  int64           `db:"school_id" json:"school_id"`
	StudentID string          `db:"student_id" json:"student_id"`
	TermID    int64           `db:"term_id" json:"term_id"`
	Method    PaymentMethod   `db:"method" json:"method"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Code      *string         `db:"code" json:"code,omitempty"`
	PayDate   time.Time       `db:"pay_date" json:"pay_date"`
	Balance   decimal.Decimal `db:"balance" json:"balance"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// MpesaTransaction is a side ledger of mobile-money codes used to reject
// duplicate code reuse.
type MpesaTransaction struct {
	ID        int64           `db:"id" json:"id"`
	SchoolID  int64           `db:"school_id" json:"school_id"`
	Code      string          `db:"code" json:"code"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Verified  bool            `db:"verified" json:"verified"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// PaymentFilter restricts payment listings.
type PaymentFilter struct {
	StudentID string
	TermID    int64
	Method    PaymentMethod
	Page      int
	PageSize  int
}
