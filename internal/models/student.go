package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Student represents a learner registered with a school. The ID is the
// school-issued admission number (e.g. "JPS-0231"), unique per school.
//
// CFBalance is the carry-forward balance: a derived-but-persisted running amount
// owed by the student, overwritten after each payment. It may not equal the
// balance recomputed from payment history; that denormalization is intentional.
type Student struct {
	ID            string          `db:"id" json:"id"`
	SchoolID      int64           `db:"school_id" json:"school_id"`
	GradeID       int64           `db:"grade_id" json:"grade_id"`
	StreamID      int64           `db:"stream_id" json:"stream_id"`
	CurrentTermID int64           `db:"current_term_id" json:"current_term_id"`
	FullName      string          `db:"full_name" json:"full_name"`
	GuardianName  string          `db:"guardian_name" json:"guardian_name"`
	GuardianPhone string          `db:"guardian_phone" json:"guardian_phone"`
	CFBalance     decimal.Decimal `db:"cf_balance" json:"cf_balance"`
	Active        bool            `db:"active" json:"active"`
	LeftDate      *time.Time      `db:"left_date" json:"left_date,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	GradeID   int64
	StreamID  int64
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StudentDetail joins a student with display names for its grade and stream.
type StudentDetail struct {
	Student
	GradeName  string `db:"grade_name" json:"grade_name"`
	StreamName string `db:"stream_name" json:"stream_name"`
}
