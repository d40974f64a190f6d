package landing_test

import (
	"context"
	"sync"
	"time"

	"github.com/ignite/leadpage/internal/domain"
	"github.com/ignite/leadpage/internal/pkg/distlock"
	"github.com/ignite/leadpage/internal/repository/memory"
	"github.com/ignite/leadpage/internal/service/landing"
)

const testOwner = "owner-1"

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func price(v float64) *float64 { return &v }

// validConfig returns a single-price config that passes every rule.
func validConfig() *domain.LandingPageConfig {
	return &domain.LandingPageConfig{
		OwnerID:            testOwner,
		Slug:               "madu-murni",
		Status:             domain.LandingDraft,
		ProductName:        "Madu Murni",
		ProductDescription: "Raw forest honey harvested in Sumbawa.",
		PricingMode:        domain.PricingSingle,
		Currency:           "IDR",
		ProductPrice:       price(150000),
		OriginalPrice:      price(200000),
		Packages:           []domain.PricingPackage{},
		Benefits:           []string{"No added sugar", "Lab tested"},
		Testimonials:       []domain.Testimonial{{Name: "Sari", Quote: "Best honey I've had."}},
		SEOKeywords:        []string{"honey", "madu"},
		GalleryImages:      []string{"https://cdn.example.com/a.jpg"},
		HeroImage:          "https://cdn.example.com/hero.jpg",
		PrimaryColor:       "#25D366",
		AccentColor:        "#128C7E",
		HeadingFont:        "Poppins",
		BodyFont:           "Inter",
		CTAEventName:       domain.CTAContact,
		WhatsAppNumber:     "6281234567890",
		WhatsAppMessage:    "Hi, I'm interested in {{ product_name }}.",
		ContactTargets:     []domain.ContactTarget{},
	}
}

// multiPackageConfig returns a valid config in multiple pricing mode with
// three tiers and routing disabled.
func multiPackageConfig() *domain.LandingPageConfig {
	cfg := validConfig()
	cfg.Slug = "paket-madu"
	cfg.PricingMode = domain.PricingMultiple
	cfg.ProductPrice = nil
	cfg.OriginalPrice = nil
	cfg.Packages = []domain.PricingPackage{
		{Name: "Starter", Price: 100000, Features: []string{"250 g"}, CTAText: "Order"},
		{Name: "Family", Price: 180000, Features: []string{"500 g"}, IsHighlighted: true, Badge: "Popular", CTAText: "Order"},
		{Name: "Bulk", Price: 240000, OriginalPrice: price(300000), Features: []string{"1 kg"}, CTAText: "Order"},
	}
	return cfg
}

func newTestService(gen landing.ContentGenerator) (*landing.Service, *memory.LandingRepo) {
	repo := memory.NewLandingRepo()
	svc := landing.NewService(repo, gen, landing.Config{
		PublicBaseURL:  "https://pages.example.com/",
		ContentTimeout: time.Second,
		Now:            func() time.Time { return fixedNow },
	})
	return svc, repo
}

// fakeGenerator returns a canned reply or error and records requests.
type fakeGenerator struct {
	mu    sync.Mutex
	reqs  []landing.ContentRequest
	reply *landing.GeneratedContent
	err   error
	block bool // wait for ctx cancellation instead of replying
}

func (g *fakeGenerator) Generate(ctx context.Context, req landing.ContentRequest) (*landing.GeneratedContent, error) {
	g.mu.Lock()
	g.reqs = append(g.reqs, req)
	g.mu.Unlock()
	if g.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.reply, nil
}

// fakeLock is a distlock.DistLock whose Acquire result is fixed.
type fakeLock struct {
	ok       bool
	released bool
}

func (l *fakeLock) Acquire(context.Context) (bool, error) { return l.ok, nil }
func (l *fakeLock) Release(context.Context) error       { l.released = true; return nil }

var _ distlock.DistLock = (*fakeLock)(nil)
