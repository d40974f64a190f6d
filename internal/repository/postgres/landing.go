package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignite/leadpage/internal/domain"
	"github.com/ignite/leadpage/internal/service/landing"
)

// publishedSlugIndex is the partial unique index on slug for published rows
// (see migrations/001_landing_pages.sql).
const publishedSlugIndex = "landing_pages_published_slug_key"

// LandingRepo implements landing.Repository against PostgreSQL. The full
// config is stored as a JSONB document; identity, ownership, status and
// timestamps are mirrored into columns for filtering and the slug index.
type LandingRepo struct{ db *sql.DB }

// NewLandingRepo creates a Postgres-backed landing page repository.
func NewLandingRepo(db *sql.DB) *LandingRepo { return &LandingRepo{db: db} }

const landingColumns = `id, owner_id, slug, status, document, created_at, updated_at, published_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLanding(row rowScanner) (*domain.LandingPageConfig, error) {
	var (
		cfg                  = &domain.LandingPageConfig{}
		doc                  []byte
		id, owner            string
		slug, status         string
		createdAt, updatedAt sql.NullTime
		publishedAt          sql.NullTime
	)
	if err := row.Scan(&id, &owner, &slug, &status, &doc, &createdAt, &updatedAt, &publishedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(doc, cfg); err != nil {
		return nil, fmt.Errorf("decode landing page %s: %w", id, err)
	}
	cfg.ID = id
	cfg.OwnerID = owner
	cfg.Slug = slug
	cfg.Status = domain.LandingStatus(status)
	if createdAt.Valid {
		cfg.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		cfg.UpdatedAt = updatedAt.Time
	}
	cfg.PublishedAt = nil
	if publishedAt.Valid {
		t := publishedAt.Time
		cfg.PublishedAt = &t
	}
	return cfg, nil
}

// validID reports whether id can match the UUID primary key. Anything else
// would fail in Postgres with invalid_text_representation.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (r *LandingRepo) Get(ctx context.Context, id string) (*domain.LandingPageConfig, error) {
	if !validID(id) {
		return nil, landing.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT `+landingColumns+`
		FROM landing_pages
		WHERE id = $1
	`, id)
	cfg, err := scanLanding(row)
	if err == sql.ErrNoRows {
		return nil, landing.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get landing page: %w", err)
	}
	return cfg, nil
}

func (r *LandingRepo) GetPublishedBySlug(ctx context.Context, slug string) (*domain.LandingPageConfig, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+landingColumns+`
		FROM landing_pages
		WHERE slug = $1 AND status = 'published'
	`, slug)
	cfg, err := scanLanding(row)
	if err == sql.ErrNoRows {
		return nil, landing.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get published landing page: %w", err)
	}
	return cfg, nil
}

func (r *LandingRepo) List(ctx context.Context, ownerID string, f landing.ListFilter) ([]domain.LandingPageConfig, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	where := ` WHERE owner_id = $1`
	args := []interface{}{ownerID}
	idx := 2
	if f.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, f.Status)
		idx++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM landing_pages`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count landing pages: %w", err)
	}

	q := `SELECT ` + landingColumns + ` FROM landing_pages` + where +
		fmt.Sprintf(" ORDER BY updated_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list landing pages: %w", err)
	}
	defer rows.Close()

	var out []domain.LandingPageConfig
	for rows.Next() {
		cfg, err := scanLanding(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan landing page: %w", err)
		}
		out = append(out, *cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list landing pages: %w", err)
	}
	return out, total, nil
}

func (r *LandingRepo) Save(ctx context.Context, cfg *domain.LandingPageConfig) (string, error) {
	if cfg.ID == "" {
		return "", fmt.Errorf("save landing page: id required")
	}
	doc, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encode landing page: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO landing_pages
			(id, owner_id, slug, status, document, created_at, updated_at, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			slug = EXCLUDED.slug,
			status = EXCLUDED.status,
			document = EXCLUDED.document,
			updated_at = EXCLUDED.updated_at,
			published_at = EXCLUDED.published_at
	`, cfg.ID, cfg.OwnerID, cfg.Slug, string(cfg.Status), doc,
		cfg.CreatedAt, cfg.UpdatedAt, cfg.PublishedAt)
	if err != nil {
		if isPublishedSlugViolation(err) {
			return "", landing.ErrSlugConflict
		}
		return "", fmt.Errorf("save landing page: %w", err)
	}
	return cfg.ID, nil
}

func (r *LandingRepo) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return landing.ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM landing_pages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete landing page: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return landing.ErrNotFound
	}
	return nil
}

func isPublishedSlugViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "23505" && pqErr.Constraint == publishedSlugIndex
}
