package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Kimshubb/jps-erp-api/internal/models"
)

// TermRepository handles persistence for billing terms.
type TermRepository struct {
	db *sqlx.DB
}

// NewTermRepository instantiates a term repository.
func NewTermRepository(db *sqlx.DB) *TermRepository {
	return &TermRepository{db: db}
}

const termColumns = "id, school_id, name, year, start_date, end_date, current, created_at, updated_at"

// List returns terms for the school matching provided filters.
func (r *TermRepository) List(ctx context.Context, scope Tenant, filter models.TermFilter) ([]models.Term, int, error) {
	base := "FROM terms WHERE school_id = $1"
	args := []interface{}{scope.SchoolID}

	if filter.Year != 0 {
		args = append(args, filter.Year)
		base += fmt.Sprintf(" AND year = $%d", len(args))
	}
	if filter.Current != nil {
		args = append(args, *filter.Current)
		base += fmt.Sprintf(" AND current = $%d", len(args))
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"name":       true,
		"year":       true,
		"start_date": true,
		"end_date":   true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "start_date"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", termColumns, base, sortBy, order, size, offset)

	var terms []models.Term
	if err := r.db.SelectContext(ctx, &terms, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list terms: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count terms: %w", err)
	}

	return terms, total, nil
}

// FindByID loads a term by identifier within the school.
func (r *TermRepository) FindByID(ctx context.Context, scope Tenant, id int64) (*models.Term, error) {
	query := fmt.Sprintf("SELECT %s FROM terms WHERE id = $1 AND school_id = $2", termColumns)
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, id, scope.SchoolID); err != nil {
		return nil, err
	}
	return &term, nil
}

// FindCurrent returns the school's current term.
func (r *TermRepository) FindCurrent(ctx context.Context, scope Tenant) (*models.Term, error) {
	query := fmt.Sprintf("SELECT %s FROM terms WHERE school_id = $1 AND current = TRUE LIMIT 1", termColumns)
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, scope.SchoolID); err != nil {
		return nil, err
	}
	return &term, nil
}

// FindPrevious returns the term with the latest end date strictly before the
// given date, or sql.ErrNoRows when the school has none.
func (r *TermRepository) FindPrevious(ctx context.Context, scope Tenant, before time.Time) (*models.Term, error) {
	query := fmt.Sprintf("SELECT %s FROM terms WHERE school_id = $1 AND end_date < $2 ORDER BY end_date DESC LIMIT 1", termColumns)
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, scope.SchoolID, before); err != nil {
		return nil, err
	}
	return &term, nil
}

// Create inserts a new term record.
func (r *TermRepository) Create(ctx context.Context, scope Tenant, term *models.Term) error {
	now := time.Now().UTC()
	term.SchoolID = scope.SchoolID
	term.CreatedAt = now
	term.UpdatedAt = now

	const query = `INSERT INTO terms (school_id, name, year, start_date, end_date, current, created_at, updated_at)
		VALUES (:school_id, :name, :year, :start_date, :end_date, :current, :created_at, :updated_at)
		RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, term)
	if err != nil {
		return fmt.Errorf("create term: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&term.ID); err != nil {
			return fmt.Errorf("scan term id: %w", err)
		}
	}
	return rows.Err()
}

// Update modifies an existing term.
func (r *TermRepository) Update(ctx context.Context, scope Tenant, term *models.Term) error {
	term.UpdatedAt = time.Now().UTC()
	term.SchoolID = scope.SchoolID
	const query = `UPDATE terms SET name = :name, year = :year, start_date = :start_date, end_date = :end_date, updated_at = :updated_at
		WHERE id = :id AND school_id = :school_id`
	if _, err := r.db.NamedExecContext(ctx, query, term); err != nil {
		return fmt.Errorf("update term: %w", err)
	}
	return nil
}

// ExistsByNameAndYear checks term uniqueness within the school.
func (r *TermRepository) ExistsByNameAndYear(ctx context.Context, scope Tenant, name string, year int, excludeID int64) (bool, error) {
	base := "SELECT 1 FROM terms WHERE school_id = $1 AND name = $2 AND year = $3"
	args := []interface{}{scope.SchoolID, name, year}
	if excludeID != 0 {
		args = append(args, excludeID)
		base += fmt.Sprintf(" AND id <> $%d", len(args))
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, base+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check term uniqueness: %w", err)
	}
	return true, nil
}

// Migrate flips the current flag to the given term and re-points active
// students at it. The unset and set run in one transaction so the school never
// has two current terms.
func (r *TermRepository) Migrate(ctx context.Context, scope Tenant, id int64) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migrate term tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE terms SET current = FALSE, updated_at = $1 WHERE school_id = $2 AND current = TRUE AND id <> $3`, now, scope.SchoolID, id); err != nil {
		return fmt.Errorf("unset current term: %w", err)
	}

	var res sql.Result
	if res, err = tx.ExecContext(ctx, `UPDATE terms SET current = TRUE, updated_at = $1 WHERE id = $2 AND school_id = $3`, now, id, scope.SchoolID); err != nil {
		return fmt.Errorf("set current term: %w", err)
	}
	if affected, raErr := res.RowsAffected(); raErr == nil && affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE students SET current_term_id = $1, updated_at = $2 WHERE school_id = $3 AND active = TRUE`, id, now, scope.SchoolID); err != nil {
		return fmt.Errorf("repoint students to term: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit migrate term tx: %w", err)
	}
	return nil
}
