package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTermMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func termRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "school_id", "name", "year", "start_date", "end_date", "current", "created_at", "updated_at",
	})
}

func TestTermRepositoryFindCurrent(t *testing.T) {
	db, mock, cleanup := newTermMock(t)
	defer cleanup()
	repo := NewTermRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT (.+) FROM terms WHERE school_id = \$1 AND current = TRUE LIMIT 1`).
		WithArgs(int64(1)).
		WillReturnRows(termRows().AddRow(int64(7), int64(1), "Term 2", 2026, now.AddDate(0, -2, 0), now.AddDate(0, 1, 0), true, now, now))

	term, err := repo.FindCurrent(context.Background(), Tenant{SchoolID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(7), term.ID)
	assert.True(t, term.Current)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTermRepositoryFindCurrentMissing(t *testing.T) {
	db, mock, cleanup := newTermMock(t)
	defer cleanup()
	repo := NewTermRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM terms WHERE school_id = \$1 AND current = TRUE LIMIT 1`).
		WithArgs(int64(1)).
		WillReturnError(sql.ErrNoRows)

	term, err := repo.FindCurrent(context.Background(), Tenant{SchoolID: 1})
	assert.Nil(t, term)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestTermRepositoryFindPrevious(t *testing.T) {
	db, mock, cleanup := newTermMock(t)
	defer cleanup()
	repo := NewTermRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT (.+) FROM terms WHERE school_id = \$1 AND end_date < \$2 ORDER BY end_date DESC LIMIT 1`).
		WithArgs(int64(1), sqlmock.AnyArg()).
		WillReturnRows(termRows().AddRow(int64(6), int64(1), "Term 1", 2026, now.AddDate(0, -5, 0), now.AddDate(0, -3, 0), false, now, now))

	term, err := repo.FindPrevious(context.Background(), Tenant{SchoolID: 1}, now)
	require.NoError(t, err)
	assert.Equal(t, int64(6), term.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTermRepositoryMigrate(t *testing.T) {
	db, mock, cleanup := newTermMock(t)
	defer cleanup()
	repo := NewTermRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE terms SET current = FALSE`).
		WithArgs(sqlmock.AnyArg(), int64(1), int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE terms SET current = TRUE`).
		WithArgs(sqlmock.AnyArg(), int64(8), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE students SET current_term_id`).
		WithArgs(int64(8), sqlmock.AnyArg(), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 40))
	mock.ExpectCommit()

	err := repo.Migrate(context.Background(), Tenant{SchoolID: 1}, 8)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTermRepositoryMigrateUnknownTerm(t *testing.T) {
	db, mock, cleanup := newTermMock(t)
	defer cleanup()
	repo := NewTermRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE terms SET current = FALSE`).
		WithArgs(sqlmock.AnyArg(), int64(1), int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE terms SET current = TRUE`).
		WithArgs(sqlmock.AnyArg(), int64(99), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Migrate(context.Background(), Tenant{SchoolID: 1}, 99)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
