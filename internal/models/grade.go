package models

import "time"

// Grade is a class level within a school (e.g. "Grade 1").
type Grade struct {
	ID        int64     `db:"id" json:"id"`
	SchoolID  int64     `db:"school_id" json:"school_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Stream subdivides a grade into class sections.
type Stream struct {
	ID        int64     `db:"id" json:"id"`
	GradeID   int64     `db:"grade_id" json:"grade_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// GradeDetail bundles a grade with its streams and active student count for
// listing endpoints.
type GradeDetail struct {
	Grade
	Streams      []Stream `json:"streams"`
	StudentCount int      `json:"student_count"`
}
