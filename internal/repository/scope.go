package repository

// Tenant scopes repository calls to one school. Every query issued with a
// Tenant filters on school_id; handlers build it from the authenticated user's
// claims so a forgotten filter is a compile error, not a runtime leak.
type Tenant struct {
	SchoolID int64
}
