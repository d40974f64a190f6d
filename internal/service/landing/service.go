package landing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/leadpage/internal/domain"
	"github.com/ignite/leadpage/internal/message"
	"github.com/ignite/leadpage/internal/pkg/distlock"
	"github.com/ignite/leadpage/internal/pkg/logger"
	"github.com/ignite/leadpage/internal/rotation"
)

// LockFactory returns a lock for key. Used to serialise publishes of the
// same slug across server instances.
type LockFactory func(key string) distlock.DistLock

// Config holds service-level settings.
type Config struct {
	PublicBaseURL   string        // published pages live at {PublicBaseURL}/{slug}
	DefaultCurrency string        // currency for new drafts
	DefaultMessage  string        // WhatsApp message template for new drafts
	ContentTimeout  time.Duration // upper bound for one regeneration call
	Locker          LockFactory   // optional
	Now             func() time.Time
}

// Service implements the landing page lifecycle over a Repository.
// All public methods are safe for concurrent use if the underlying
// repository is concurrency-safe.
type Service struct {
	repo    Repository
	content ContentGenerator
	cfg     Config
}

// NewService creates a landing service. content may be nil, in which case
// RegenerateContent reports ErrContentDisabled.
func NewService(repo Repository, content ContentGenerator, cfg Config) *Service {
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = domain.DefaultCurrency
	}
	if cfg.DefaultMessage == "" {
		cfg.DefaultMessage = message.DefaultTemplate
	}
	if cfg.ContentTimeout <= 0 {
		cfg.ContentTimeout = 60 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{repo: repo, content: content, cfg: cfg}
}

func (s *Service) now() time.Time { return s.cfg.Now().UTC() }

// Create returns a new in-memory draft with defaults. Nothing is persisted
// until Save succeeds.
func (s *Service) Create(ownerID string) *domain.LandingPageConfig {
	now := s.now()
	return &domain.LandingPageConfig{
		ID:              uuid.New().String(),
		OwnerID:         ownerID,
		Status:          domain.LandingDraft,
		PricingMode:     domain.PricingSingle,
		Currency:        s.cfg.DefaultCurrency,
		Packages:        []domain.PricingPackage{},
		Benefits:        []string{},
		Testimonials:    []domain.Testimonial{},
		SEOKeywords:     []string{},
		GalleryImages:   []string{},
		PrimaryColor:    "#25D366",
		AccentColor:     "#128C7E",
		HeadingFont:     "Poppins",
		BodyFont:        "Inter",
		CTAEventName:    domain.CTAContact,
		WhatsAppMessage: s.cfg.DefaultMessage,
		ContactTargets:  []domain.ContactTarget{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Get returns a single config.
func (s *Service) Get(ctx context.Context, id string) (*domain.LandingPageConfig, error) {
	return s.repo.Get(ctx, id)
}

// GetPublished returns the published config at slug.
func (s *Service) GetPublished(ctx context.Context, slug string) (*domain.LandingPageConfig, error) {
	return s.repo.GetPublishedBySlug(ctx, slug)
}

// List returns an owner's configs.
func (s *Service) List(ctx context.Context, ownerID string, f ListFilter) ([]domain.LandingPageConfig, int, error) {
	return s.repo.List(ctx, ownerID, f)
}

// Validate runs the config rules without touching storage.
func (s *Service) Validate(cfg *domain.LandingPageConfig) ValidationResult {
	return Validate(cfg)
}

// PublicURL returns the address a page with slug is served at.
func (s *Service) PublicURL(slug string) string {
	return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/" + slug
}

// Update returns a copy of cfg with patch applied. No validation happens
// here; drafts may be invalid while being edited.
func (s *Service) Update(cfg *domain.LandingPageConfig, p Patch) *domain.LandingPageConfig {
	return p.apply(cfg)
}

// DistributeEvenly returns a copy of cfg with contact weights reset to an
// even split (see rotation.AutoDistribute).
func (s *Service) DistributeEvenly(cfg *domain.LandingPageConfig) *domain.LandingPageConfig {
	out := cfg.Clone()
	out.ContactTargets = rotation.AutoDistribute(cfg.ContactTargets)
	return out
}

// Save validates cfg and persists it. On success cfg is stamped with its ID,
// status and timestamps exactly as stored and the ID is returned. On failure
// nothing is written and the error is a *ValidationError or the repository
// error unchanged.
func (s *Service) Save(ctx context.Context, cfg *domain.LandingPageConfig) (string, error) {
	res := Validate(cfg)
	if cfg == nil {
		return "", res.Err()
	}

	var existing *domain.LandingPageConfig
	if cfg.ID != "" {
		e, err := s.repo.Get(ctx, cfg.ID)
		switch {
		case err == nil:
			existing = e
		case !errors.Is(err, ErrNotFound):
			return "", err
		}
	}
	if existing != nil && existing.IsPublished() && existing.Slug != cfg.Slug {
		res.add("slug", KindImmutable, "slug cannot change after publishing")
	}
	if !res.Valid() {
		return "", res.Err()
	}

	now := s.now()
	stored := cfg.Clone()
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if existing != nil {
		// Status only changes through Publish/Unpublish.
		stored.Status = existing.Status
		stored.CreatedAt = existing.CreatedAt
		stored.PublishedAt = existing.PublishedAt
	} else {
		stored.Status = domain.LandingDraft
		stored.PublishedAt = nil
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = now
		}
	}
	stored.UpdatedAt = now

	id, err := s.repo.Save(ctx, stored)
	if err != nil {
		if errors.Is(err, ErrSlugConflict) {
			return "", slugTaken()
		}
		return "", err
	}
	stored.ID = id
	*cfg = *stored.Clone()

	logger.Info("landing page saved", "id", id, "owner_id", cfg.OwnerID, "status", string(cfg.Status))
	return id, nil
}

// Publish re-validates the stored config, reserves its slug and marks it
// published. Returns the slug. A slug held by another published page yields
// a *ValidationError with a slug_taken violation (errors.Is ErrSlugConflict)
// and leaves both records untouched.
func (s *Service) Publish(ctx context.Context, id string) (string, error) {
	cfg, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}

	res := Validate(cfg)
	slugUsable := true
	for _, fe := range res.Errors {
		if fe.Field == "slug" {
			slugUsable = false
		}
	}

	if slugUsable {
		if s.cfg.Locker != nil {
			lock := s.cfg.Locker("landing:slug:" + cfg.Slug)
			ok, err := lock.Acquire(ctx)
			if err != nil {
				return "", fmt.Errorf("acquire slug lock: %w", err)
			}
			if !ok {
				return "", ErrPublishInProgress
			}
			defer func() {
				if err := lock.Release(context.Background()); err != nil {
					logger.Warn("slug lock release failed", "slug", cfg.Slug, "error", err.Error())
				}
			}()
		}

		other, err := s.repo.GetPublishedBySlug(ctx, cfg.Slug)
		switch {
		case err == nil && other.ID != cfg.ID:
			res.add("slug", KindSlugTaken, "slug %q is already published", cfg.Slug)
		case err != nil && !errors.Is(err, ErrNotFound):
			return "", err
		}
	}
	if !res.Valid() {
		return "", res.Err()
	}

	now := s.now()
	cfg.Status = domain.LandingPublished
	if cfg.PublishedAt == nil {
		cfg.PublishedAt = &now
	}
	cfg.UpdatedAt = now

	if _, err := s.repo.Save(ctx, cfg); err != nil {
		if errors.Is(err, ErrSlugConflict) {
			return "", slugTaken()
		}
		return "", err
	}

	logger.Info("landing page published", "id", cfg.ID, "slug", cfg.Slug, "url", s.PublicURL(cfg.Slug))
	return cfg.Slug, nil
}

// Unpublish takes a page offline. The slug is kept so republishing restores
// the same address.
func (s *Service) Unpublish(ctx context.Context, id string) error {
	cfg, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !cfg.IsPublished() {
		return nil
	}
	cfg.Status = domain.LandingDraft
	cfg.PublishedAt = nil
	cfg.UpdatedAt = s.now()
	if _, err := s.repo.Save(ctx, cfg); err != nil {
		return err
	}
	logger.Info("landing page unpublished", "id", id, "slug", cfg.Slug)
	return nil
}

// RegenerateContent asks the content collaborator for fresh copy of kind.
// The result is returned, not stored: apply it with GeneratedContent.ApplyTo
// and Save. Every collaborator failure comes back as *UpstreamError.
func (s *Service) RegenerateContent(ctx context.Context, id string, kind ContentKind) (*GeneratedContent, error) {
	if !kind.Valid() {
		return nil, &ValidationError{Fields: []FieldError{{
			Field: "kind", Kind: KindFormat, Message: fmt.Sprintf("unknown content kind %q", kind),
		}}}
	}

	cfg, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var res ValidationResult
	if strings.TrimSpace(cfg.ProductName) == "" {
		res.add("product_name", KindRequired, "product name is required to generate content")
	}
	if strings.TrimSpace(cfg.ProductDescription) == "" {
		res.add("product_description", KindRequired, "product description is required to generate content")
	}
	if !res.Valid() {
		return nil, res.Err()
	}

	if s.content == nil {
		return nil, &UpstreamError{Kind: kind, Err: ErrContentDisabled}
	}

	req := ContentRequest{
		Kind:               kind,
		ProductName:        cfg.ProductName,
		ProductDescription: cfg.ProductDescription,
	}
	if kind == ContentPricingPackages {
		req.BasePrice = basePrice(cfg)
		req.Currency = cfg.Currency
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ContentTimeout)
	defer cancel()

	out, err := s.content.Generate(ctx, req)
	if err != nil {
		logger.Warn("content generation failed", "id", id, "kind", string(kind), "error", err.Error())
		return nil, &UpstreamError{Kind: kind, Err: err}
	}
	if err := out.checkShape(kind); err != nil {
		return nil, &UpstreamError{Kind: kind, Err: fmt.Errorf("malformed response: %w", err)}
	}
	out.Kind = kind
	return out, nil
}

// Delete removes a config permanently.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	logger.Info("landing page deleted", "id", id)
	return nil
}

func basePrice(cfg *domain.LandingPageConfig) *float64 {
	if cfg.ProductPrice != nil {
		p := *cfg.ProductPrice
		return &p
	}
	if len(cfg.Packages) > 0 {
		p := cfg.Packages[0].Price
		return &p
	}
	return nil
}

func slugTaken() error {
	return &ValidationError{Fields: []FieldError{{
		Field: "slug", Kind: KindSlugTaken, Message: "slug is already published",
	}}}
}
