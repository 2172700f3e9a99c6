// Package fees holds the pure balance arithmetic shared by the payment path and
// the reporting aggregators. All amounts are decimals; no rounding is applied
// beyond the stored precision of the monetary fields.
package fees

import (
	"github.com/shopspring/decimal"

	"github.com/Kimshubb/jps-erp-api/internal/models"
)

// SumStructure totals the five standard fee components of a fee structure.
// A nil structure (no schedule configured for the grade/term) sums to zero.
func SumStructure(fs *models.FeeStructure) decimal.Decimal {
	if fs == nil {
		return decimal.Zero
	}
	return fs.TuitionFee.
		Add(fs.AssBooks).
		Add(fs.DiaryFee).
		Add(fs.ActivityFee).
		Add(fs.Others)
}

// ApplyPayment computes a balance from its building blocks:
//
//	balance = priorCF + (standardFees + additionalFees) - paid
//
// With paid equal to the term's total payments this is the full recomputation;
// with paid equal to a single payment amount it is the incremental update
// applied at payment time.
func ApplyPayment(priorCF, standardFees, additionalFees, paid decimal.Decimal) decimal.Decimal {
	return priorCF.Add(standardFees).Add(additionalFees).Sub(paid)
}

// Floor clamps a balance at zero. The student's stored carry-forward balance is
// floored on write while the payment snapshot is not; overpayment credit is
// therefore visible on payment rows but not carried on the student record.
func Floor(balance decimal.Decimal) decimal.Decimal {
	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}

// Percentage returns part/total*100, or zero when total is zero. Results keep
// two decimal places for display in the method-mix report.
func Percentage(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Div(total).Mul(decimal.NewFromInt(100)).Round(2)
}
