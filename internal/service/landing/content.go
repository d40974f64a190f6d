package landing

import (
	"context"
	"fmt"
	"strings"

	"github.com/ignite/leadpage/internal/domain"
)

// ContentKind selects which group of fields the content collaborator writes.
type ContentKind string

const (
	ContentBenefits        ContentKind = "benefits"
	ContentTestimonials    ContentKind = "testimonials"
	ContentSEO             ContentKind = "seo"
	ContentPricingPackages ContentKind = "pricing_packages"
)

// Valid reports whether k is a known kind.
func (k ContentKind) Valid() bool {
	switch k {
	case ContentBenefits, ContentTestimonials, ContentSEO, ContentPricingPackages:
		return true
	}
	return false
}

// ContentRequest is the fixed request sent to the content collaborator.
// BasePrice and Currency are only set for pricing_packages.
type ContentRequest struct {
	Kind               ContentKind `json:"kind"`
	ProductName        string      `json:"product_name"`
	ProductDescription string      `json:"product_description"`
	BasePrice          *float64    `json:"base_price,omitempty"`
	Currency           string      `json:"currency,omitempty"`
}

// SEOContent is the reply shape for the seo kind.
type SEOContent struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// GeneratedContent holds the fields produced for one kind; only the member
// matching Kind is populated.
type GeneratedContent struct {
	Kind         ContentKind             `json:"kind"`
	Benefits     []string                `json:"benefits,omitempty"`
	Testimonials []domain.Testimonial    `json:"testimonials,omitempty"`
	SEO          *SEOContent             `json:"seo,omitempty"`
	Packages     []domain.PricingPackage `json:"pricing_packages,omitempty"`
}

// ContentGenerator produces marketing copy for a product. Implementations
// return an error for any failure; they never fill in defaults.
type ContentGenerator interface {
	Generate(ctx context.Context, req ContentRequest) (*GeneratedContent, error)
}

// checkShape verifies that the reply carries the fields for kind.
func (g *GeneratedContent) checkShape(kind ContentKind) error {
	if g == nil {
		return fmt.Errorf("empty response")
	}
	if g.Kind != "" && g.Kind != kind {
		return fmt.Errorf("response kind %q does not match request %q", g.Kind, kind)
	}

	switch kind {
	case ContentBenefits:
		if len(g.Benefits) == 0 {
			return fmt.Errorf("no benefits returned")
		}
		for i, b := range g.Benefits {
			if strings.TrimSpace(b) == "" {
				return fmt.Errorf("benefit %d is empty", i)
			}
		}
	case ContentTestimonials:
		if len(g.Testimonials) == 0 {
			return fmt.Errorf("no testimonials returned")
		}
		for i, t := range g.Testimonials {
			if strings.TrimSpace(t.Name) == "" || strings.TrimSpace(t.Quote) == "" {
				return fmt.Errorf("testimonial %d is missing name or quote", i)
			}
		}
	case ContentSEO:
		if g.SEO == nil || strings.TrimSpace(g.SEO.Title) == "" {
			return fmt.Errorf("seo title missing")
		}
	case ContentPricingPackages:
		if len(g.Packages) == 0 {
			return fmt.Errorf("no pricing packages returned")
		}
		for i, p := range g.Packages {
			if strings.TrimSpace(p.Name) == "" || !(p.Price >= 0) {
				return fmt.Errorf("pricing package %d is missing a name or has a negative price", i)
			}
		}
	default:
		return fmt.Errorf("unknown content kind %q", kind)
	}
	return nil
}

// ApplyTo returns a copy of cfg with the generated fields written in. It
// does not validate or persist; callers Save the result.
func (g *GeneratedContent) ApplyTo(cfg *domain.LandingPageConfig) *domain.LandingPageConfig {
	out := cfg.Clone()
	switch g.Kind {
	case ContentBenefits:
		out.Benefits = append([]string{}, g.Benefits...)
	case ContentTestimonials:
		out.Testimonials = append([]domain.Testimonial{}, g.Testimonials...)
	case ContentSEO:
		if g.SEO != nil {
			out.SEOTitle = g.SEO.Title
			out.SEODescription = g.SEO.Description
			out.SEOKeywords = append([]string{}, g.SEO.Keywords...)
		}
	case ContentPricingPackages:
		tmp := &domain.LandingPageConfig{Packages: g.Packages}
		out.Packages = tmp.Clone().Packages
		out.PricingMode = domain.PricingMultiple
	}
	return out
}
