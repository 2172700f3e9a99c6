package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeeStructure holds the standard fee schedule for one (school, grade, term)
// triple, unique on that composite key. Absence of a row for a combination is a
// valid state and degrades to zero standard fees.
type FeeStructure struct {
	ID          int64           `db:"id" json:"id"`
	SchoolID    int64           `db:"school_id" json:"school_id"`
	GradeID     int64           `db:"grade_id" json:"grade_id"`
	TermID      int64           `db:"term_id" json:"term_id"`
	TuitionFee  decimal.Decimal `db:"tuition_fee" json:"tuition_fee"`
	AssBooks    decimal.Decimal `db:"ass_books" json:"ass_books"`
	DiaryFee    decimal.Decimal `db:"diary_fee" json:"diary_fee"`
	ActivityFee decimal.Decimal `db:"activity_fee" json:"activity_fee"`
	Others      decimal.Decimal `db:"others" json:"others"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// AdditionalFee is a named, school-scoped optional fee (e.g. "Trip Fee") that
// students subscribe to individually.
type AdditionalFee struct {
	ID        int64           `db:"id" json:"id"`
	SchoolID  int64           `db:"school_id" json:"school_id"`
	Name      string          `db:"name" json:"name"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
