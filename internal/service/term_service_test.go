package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Kimshubb/jps-erp-api/internal/models"
	"github.com/Kimshubb/jps-erp-api/internal/repository"
	appErrors "github.com/Kimshubb/jps-erp-api/pkg/errors"
)

type mockTermRepo struct {
	terms  map[int64]*models.Term
	nextID int64
}

func (m *mockTermRepo) List(ctx context.Context, scope repository.Tenant, filter models.TermFilter) ([]models.Term, int, error) {
	var result []models.Term
	for _, term := range m.terms {
		result = append(result, *term)
	}
	return result, len(result), nil
}

func (m *mockTermRepo) FindByID(ctx context.Context, scope repository.Tenant, id int64) (*models.Term, error) {
	term, ok := m.terms[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *term
	return &copied, nil
}

func (m *mockTermRepo) FindCurrent(ctx context.Context, scope repository.Tenant) (*models.Term, error) {
	for _, term := range m.terms {
		if term.Current {
			copied := *term
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockTermRepo) ExistsByNameAndYear(ctx context.Context, scope repository.Tenant, name string, year int, excludeID int64) (bool, error) {
	for _, term := range m.terms {
		if term.Name == name && term.Year == year && term.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockTermRepo) Create(ctx context.Context, scope repository.Tenant, term *models.Term) error {
	m.nextID++
	term.ID = m.nextID
	term.SchoolID = scope.SchoolID
	if m.terms == nil {
		m.terms = make(map[int64]*models.Term)
	}
	copied := *term
	m.terms[term.ID] = &copied
	return nil
}

func (m *mockTermRepo) Update(ctx context.Context, scope repository.Tenant, term *models.Term) error {
	copied := *term
	m.terms[term.ID] = &copied
	return nil
}

func (m *mockTermRepo) Migrate(ctx context.Context, scope repository.Tenant, id int64) error {
	target, ok := m.terms[id]
	if !ok {
		return sql.ErrNoRows
	}
	for _, term := range m.terms {
		term.Current = false
	}
	target.Current = true
	return nil
}

func newTermFixture() (*TermService, *mockTermRepo, *mockAuditStore) {
	repo := &mockTermRepo{
		terms: map[int64]*models.Term{
			6: {ID: 6, SchoolID: 1, Name: "Term 1", Year: 2026, StartDate: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), EndDate: time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC), Current: true},
			7: {ID: 7, SchoolID: 1, Name: "Term 2", Year: 2026, StartDate: time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC), EndDate: time.Date(2026, 8, 7, 0, 0, 0, 0, time.UTC)},
		},
		nextID: 7,
	}
	audit := &mockAuditStore{}
	return NewTermService(repo, audit, nil, zap.NewNop()), repo, audit
}

func TestTermServiceMigrate(t *testing.T) {
	svc, repo, audit := newTermFixture()

	term, err := svc.Migrate(context.Background(), repository.Tenant{SchoolID: 1}, "user-1", 7)
	require.NoError(t, err)
	assert.True(t, term.Current)
	assert.False(t, repo.terms[6].Current)
	assert.True(t, repo.terms[7].Current)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionTermMigrate, audit.entries[0].Action)
}

func TestTermServiceMigrateAlreadyCurrentIsNoop(t *testing.T) {
	svc, repo, audit := newTermFixture()

	term, err := svc.Migrate(context.Background(), repository.Tenant{SchoolID: 1}, "user-1", 6)
	require.NoError(t, err)
	assert.True(t, term.Current)
	assert.True(t, repo.terms[6].Current)
	assert.Empty(t, audit.entries)
}

func TestTermServiceMigrateUnknownTerm(t *testing.T) {
	svc, _, _ := newTermFixture()

	_, err := svc.Migrate(context.Background(), repository.Tenant{SchoolID: 1}, "user-1", 99)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTermServiceCreateValidatesDates(t *testing.T) {
	svc, _, _ := newTermFixture()

	_, err := svc.Create(context.Background(), repository.Tenant{SchoolID: 1}, CreateTermRequest{
		Name:      "Term 3",
		Year:      2026,
		StartDate: time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTermServiceCreateRejectsDuplicate(t *testing.T) {
	svc, _, _ := newTermFixture()

	_, err := svc.Create(context.Background(), repository.Tenant{SchoolID: 1}, CreateTermRequest{
		Name:      "Term 2",
		Year:      2026,
		StartDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestTermServiceCreateIsNeverCurrent(t *testing.T) {
	svc, repo, _ := newTermFixture()

	term, err := svc.Create(context.Background(), repository.Tenant{SchoolID: 1}, CreateTermRequest{
		Name:      "Term 3",
		Year:      2026,
		StartDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.False(t, term.Current)
	assert.True(t, repo.terms[6].Current)
}
