package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/leadpage/internal/domain"
	"github.com/ignite/leadpage/internal/service/landing"
)

func newMock(t *testing.T) (*LandingRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewLandingRepo(db), mock
}

const (
	pageID    = "0b6f1c2a-7e0a-4e4b-939a-570d1f6f0f6b"
	missingID = "5d2e9f1a-3b4c-4d5e-8f6a-7b8c9d0e1f2a"
)

var rowCols = []string{"id", "owner_id", "slug", "status", "document", "created_at", "updated_at", "published_at"}

func sampleDoc(t *testing.T) []byte {
	t.Helper()
	p := 99000.0
	doc, err := json.Marshal(&domain.LandingPageConfig{
		ProductName:        "Sambal Bawang",
		ProductDescription: "Homemade chilli paste.",
		PricingMode:        domain.PricingSingle,
		ProductPrice:       &p,
		Benefits:           []string{"No MSG"},
		CTAEventName:       domain.CTALead,
		ContactTargets: []domain.ContactTarget{
			{ID: "t1", PhoneNumber: "62811", WeightPercent: 100},
		},
	})
	require.NoError(t, err)
	return doc
}

func TestLandingRepo_Get(t *testing.T) {
	repo, mock := newMock(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	published := created.Add(time.Hour)

	mock.ExpectQuery(`SELECT id, owner_id, slug, status, document, created_at, updated_at, published_at\s+FROM landing_pages\s+WHERE id = \$1`).
		WithArgs(pageID).
		WillReturnRows(sqlmock.NewRows(rowCols).
			AddRow(pageID, "owner-1", "sambal-bawang", "published", sampleDoc(t), created, created, published))

	cfg, err := repo.Get(context.Background(), pageID)
	require.NoError(t, err)
	assert.Equal(t, pageID, cfg.ID)
	assert.Equal(t, "owner-1", cfg.OwnerID)
	assert.Equal(t, "sambal-bawang", cfg.Slug)
	assert.Equal(t, domain.LandingPublished, cfg.Status)
	assert.Equal(t, "Sambal Bawang", cfg.ProductName)
	assert.Equal(t, 99000.0, *cfg.ProductPrice)
	assert.Equal(t, domain.CTALead, cfg.CTAEventName)
	require.Len(t, cfg.ContactTargets, 1)
	assert.Equal(t, 100, cfg.ContactTargets[0].WeightPercent)
	require.NotNil(t, cfg.PublishedAt)
	assert.True(t, published.Equal(*cfg.PublishedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLandingRepo_GetNotFound(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(`FROM landing_pages`).WithArgs(missingID).WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), missingID)
	assert.ErrorIs(t, err, landing.ErrNotFound)
}

func TestLandingRepo_GetPublishedBySlug(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery(`WHERE slug = \$1 AND status = 'published'`).
		WithArgs("sambal-bawang").
		WillReturnRows(sqlmock.NewRows(rowCols).
			AddRow(pageID, "owner-1", "sambal-bawang", "published", sampleDoc(t), now, now, now))

	cfg, err := repo.GetPublishedBySlug(context.Background(), "sambal-bawang")
	require.NoError(t, err)
	assert.Equal(t, pageID, cfg.ID)

	mock.ExpectQuery(`WHERE slug = \$1 AND status = 'published'`).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(rowCols))
	_, err = repo.GetPublishedBySlug(context.Background(), "nope")
	assert.ErrorIs(t, err, landing.ErrNotFound)
}

func TestLandingRepo_GetBadDocument(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery(`FROM landing_pages`).
		WillReturnRows(sqlmock.NewRows(rowCols).
			AddRow(pageID, "owner-1", "x", "draft", []byte(`{not json`), now, now, nil))

	_, err := repo.Get(context.Background(), pageID)
	require.Error(t, err)
	assert.False(t, errors.Is(err, landing.ErrNotFound))
}

func TestLandingRepo_List(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM landing_pages WHERE owner_id = \$1 AND status = \$2`).
		WithArgs("owner-1", "draft").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`ORDER BY updated_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("owner-1", "draft", 2, 0).
		WillReturnRows(sqlmock.NewRows(rowCols).
			AddRow("p1", "owner-1", "a", "draft", sampleDoc(t), now, now, nil).
			AddRow("p2", "owner-1", "b", "draft", sampleDoc(t), now, now, nil))

	list, total, err := repo.List(context.Background(), "owner-1", landing.ListFilter{Status: "draft", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, list, 2)
	assert.Equal(t, "p1", list[0].ID)
	assert.Equal(t, "b", list[1].Slug)
	assert.Nil(t, list[1].PublishedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLandingRepo_Save(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()
	cfg := &domain.LandingPageConfig{
		ID: pageID, OwnerID: "owner-1", Slug: "sambal", Status: domain.LandingDraft,
		CreatedAt: now, UpdatedAt: now,
	}

	mock.ExpectExec(`INSERT INTO landing_pages`).
		WithArgs(pageID, "owner-1", "sambal", "draft", sqlmock.AnyArg(), now, now, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := repo.Save(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, pageID, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLandingRepo_SaveSlugConflict(t *testing.T) {
	repo, mock := newMock(t)
	cfg := &domain.LandingPageConfig{ID: "page-2", Slug: "sambal", Status: domain.LandingPublished}

	mock.ExpectExec(`INSERT INTO landing_pages`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "landing_pages_published_slug_key"})

	_, err := repo.Save(context.Background(), cfg)
	assert.ErrorIs(t, err, landing.ErrSlugConflict)

	mock.ExpectExec(`INSERT INTO landing_pages`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "landing_pages_pkey"})
	_, err = repo.Save(context.Background(), cfg)
	require.Error(t, err)
	assert.False(t, errors.Is(err, landing.ErrSlugConflict))
}

func TestLandingRepo_SaveRequiresID(t *testing.T) {
	repo, _ := newMock(t)
	_, err := repo.Save(context.Background(), &domain.LandingPageConfig{})
	assert.Error(t, err)
}

func TestLandingRepo_Delete(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(`DELETE FROM landing_pages WHERE id = \$1`).
		WithArgs(pageID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), pageID))

	mock.ExpectExec(`DELETE FROM landing_pages WHERE id = \$1`).
		WithArgs(pageID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), pageID), landing.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLandingRepo_NonUUIDIDIsNotFound(t *testing.T) {
	repo, mock := newMock(t)

	_, err := repo.Get(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, landing.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(context.Background(), "landing-pages"), landing.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet(), "no query reaches the database")
}
