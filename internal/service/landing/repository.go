package landing

import (
	"context"

	"github.com/ignite/leadpage/internal/domain"
)

// Repository is the persistence gateway for landing page configurations.
// Implementations must be safe for concurrent use and must store and return
// independent copies: mutating a returned config never changes the store.
type Repository interface {
	// Get returns a single config. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.LandingPageConfig, error)

	// GetPublishedBySlug returns the published config at slug, or ErrNotFound.
	GetPublishedBySlug(ctx context.Context, slug string) (*domain.LandingPageConfig, error)

	// List returns an owner's configs ordered by updated_at DESC, plus the
	// total count before pagination.
	List(ctx context.Context, ownerID string, filter ListFilter) ([]domain.LandingPageConfig, int, error)

	// Save inserts or replaces the config with cfg.ID and returns the ID.
	// Returns ErrSlugConflict if a different published config holds the slug.
	Save(ctx context.Context, cfg *domain.LandingPageConfig) (string, error)

	// Delete removes a config permanently. Returns ErrNotFound if it doesn't exist.
	Delete(ctx context.Context, id string) error
}

// ListFilter controls pagination and filtering for config lists.
type ListFilter struct {
	Status string
	Limit  int
	Offset int
}
