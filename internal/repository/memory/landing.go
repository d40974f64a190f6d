// Package memory provides in-process repository implementations used for
// local development (no DATABASE_URL) and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ignite/leadpage/internal/domain"
	"github.com/ignite/leadpage/internal/service/landing"
)

// LandingRepo implements landing.Repository over a map. Every value in and
// out is deep-copied.
type LandingRepo struct {
	mu    sync.RWMutex
	pages map[string]*domain.LandingPageConfig // keyed by id
}

// NewLandingRepo creates an empty repository.
func NewLandingRepo() *LandingRepo {
	return &LandingRepo{pages: make(map[string]*domain.LandingPageConfig)}
}

func (r *LandingRepo) Get(_ context.Context, id string) (*domain.LandingPageConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pages[id]
	if !ok {
		return nil, landing.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *LandingRepo) GetPublishedBySlug(_ context.Context, slug string) (*domain.LandingPageConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.pages {
		if p.IsPublished() && p.Slug == slug {
			return p.Clone(), nil
		}
	}
	return nil, landing.ErrNotFound
}

func (r *LandingRepo) List(_ context.Context, ownerID string, f landing.ListFilter) ([]domain.LandingPageConfig, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.LandingPageConfig
	for _, p := range r.pages {
		if p.OwnerID != ownerID {
			continue
		}
		if f.Status != "" && string(p.Status) != f.Status {
			continue
		}
		out = append(out, *p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})

	total := len(out)
	if f.Offset >= len(out) {
		return nil, total, nil
	}
	end := f.Offset + f.Limit
	if end > len(out) || f.Limit <= 0 {
		end = len(out)
	}
	return out[f.Offset:end], total, nil
}

func (r *LandingRepo) Save(_ context.Context, cfg *domain.LandingPageConfig) (string, error) {
	if cfg == nil || cfg.ID == "" {
		return "", fmt.Errorf("save landing page: id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if cfg.IsPublished() {
		for id, p := range r.pages {
			if id != cfg.ID && p.IsPublished() && p.Slug == cfg.Slug {
				return "", landing.ErrSlugConflict
			}
		}
	}
	r.pages[cfg.ID] = cfg.Clone()
	return cfg.ID, nil
}

func (r *LandingRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pages[id]; !ok {
		return landing.ErrNotFound
	}
	delete(r.pages, id)
	return nil
}
