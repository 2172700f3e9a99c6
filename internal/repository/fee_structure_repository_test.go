package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kimshubb/jps-erp-api/internal/models"
)

func newFeeStructureMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestFeeStructureRepositoryFindByGradeAndTerm(t *testing.T) {
	db, mock, cleanup := newFeeStructureMock(t)
	defer cleanup()
	repo := NewFeeStructureRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "school_id", "grade_id", "term_id",
		"tuition_fee", "ass_books", "diary_fee", "activity_fee", "others",
		"created_at", "updated_at",
	}).AddRow(int64(3), int64(1), int64(5), int64(7), "8000", "1000", "300", "500", "200", now, now)

	mock.ExpectQuery(`SELECT (.+) FROM fee_structures WHERE school_id = \$1 AND grade_id = \$2 AND term_id = \$3`).
		WithArgs(int64(1), int64(5), int64(7)).
		WillReturnRows(rows)

	fs, err := repo.FindByGradeAndTerm(context.Background(), Tenant{SchoolID: 1}, 5, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(3), fs.ID)
	assert.True(t, decimal.NewFromInt(8000).Equal(fs.TuitionFee))
	assert.True(t, decimal.NewFromInt(200).Equal(fs.Others))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeStructureRepositoryFindByGradeAndTermMissing(t *testing.T) {
	db, mock, cleanup := newFeeStructureMock(t)
	defer cleanup()
	repo := NewFeeStructureRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM fee_structures WHERE school_id = \$1 AND grade_id = \$2 AND term_id = \$3`).
		WithArgs(int64(1), int64(5), int64(7)).
		WillReturnError(sql.ErrNoRows)

	fs, err := repo.FindByGradeAndTerm(context.Background(), Tenant{SchoolID: 1}, 5, 7)
	assert.Nil(t, fs)
	// raw sql.ErrNoRows so callers can degrade to zero fees
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestFeeStructureRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newFeeStructureMock(t)
	defer cleanup()
	repo := NewFeeStructureRepository(db)

	mock.ExpectQuery(`INSERT INTO fee_structures (.+) ON CONFLICT \(school_id, grade_id, term_id\) DO UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	fs := &models.FeeStructure{
		GradeID:    5,
		TermID:     7,
		TuitionFee: decimal.NewFromInt(8000),
		AssBooks:   decimal.NewFromInt(1000),
	}
	err := repo.Upsert(context.Background(), Tenant{SchoolID: 1}, fs)
	require.NoError(t, err)
	assert.Equal(t, int64(42), fs.ID)
	assert.Equal(t, int64(1), fs.SchoolID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
