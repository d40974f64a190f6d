package landing

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ignite/leadpage/internal/domain"
	"github.com/ignite/leadpage/internal/message"
	"github.com/ignite/leadpage/internal/rotation"
)

// ViolationKind is the machine-readable reason attached to a FieldError.
type ViolationKind string

const (
	KindRequired      ViolationKind = "required"
	KindBounds        ViolationKind = "bounds"
	KindFormat        ViolationKind = "format"
	KindPercentageSum ViolationKind = "percentage_sum"
	KindSlugTaken     ViolationKind = "slug_taken"
	KindImmutable     ViolationKind = "immutable"
)

// FieldError names one offending field. Field uses the JSON names with
// indexes for list items, e.g. "packages[1].price".
type FieldError struct {
	Field   string        `json:"field"`
	Kind    ViolationKind `json:"kind"`
	Message string        `json:"message"`
}

// ValidationResult is Valid when Errors is empty.
type ValidationResult struct {
	Errors []FieldError `json:"errors"`
}

// Valid reports whether no violations were found.
func (r ValidationResult) Valid() bool { return len(r.Errors) == 0 }

// Err returns nil for a valid result and a *ValidationError otherwise.
func (r ValidationResult) Err() error {
	if r.Valid() {
		return nil
	}
	return &ValidationError{Fields: append([]FieldError{}, r.Errors...)}
}

func (r *ValidationResult) add(field string, kind ViolationKind, format string, args ...interface{}) {
	r.Errors = append(r.Errors, FieldError{Field: field, Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// Lowercase alphanumerics and hyphens, no leading or trailing hyphen.
var slugPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]*[a-z0-9])?$`)

// Validate checks every structural and business rule a config must satisfy
// before it can be saved or published. All violations are collected; the
// function never panics on a representable config.
func Validate(cfg *domain.LandingPageConfig) ValidationResult {
	var res ValidationResult
	if cfg == nil {
		res.add("config", KindRequired, "configuration is required")
		return res
	}

	// 1. required fields
	if strings.TrimSpace(cfg.ProductName) == "" {
		res.add("product_name", KindRequired, "product name is required")
	}
	if strings.TrimSpace(cfg.ProductDescription) == "" {
		res.add("product_description", KindRequired, "product description is required")
	}
	slugPresent := strings.TrimSpace(cfg.Slug) != ""
	if !slugPresent {
		res.add("slug", KindRequired, "slug is required")
	}

	// 2. slug format
	if slugPresent && !slugPattern.MatchString(cfg.Slug) {
		res.add("slug", KindFormat, "slug may contain only lowercase letters, digits and hyphens, and may not start or end with a hyphen")
	}

	// 3. pricing
	validatePricing(cfg, &res)

	// 4. collection bounds
	validateContent(cfg, &res)

	// 5. contact routing
	validateRouting(cfg, &res)

	// 6. tracking event
	if !cfg.CTAEventName.Valid() {
		res.add("cta_event_name", KindFormat, "unknown CTA event %q", cfg.CTAEventName)
	}

	if strings.TrimSpace(cfg.WhatsAppMessage) != "" {
		if err := message.Check(cfg.WhatsAppMessage); err != nil {
			res.add("whatsapp_message", KindFormat, "invalid message template: %v", err)
		}
	}

	return res
}

func validatePricing(cfg *domain.LandingPageConfig, res *ValidationResult) {
	switch cfg.PricingMode {
	case domain.PricingSingle:
		if cfg.ProductPrice == nil {
			res.add("product_price", KindRequired, "price is required in single pricing mode")
			return
		}
		price := *cfg.ProductPrice
		if !(price >= 0) {
			res.add("product_price", KindBounds, "price must be zero or more")
			return
		}
		if cfg.OriginalPrice != nil && !(*cfg.OriginalPrice > price) {
			res.add("original_price", KindBounds, "original price must be greater than price")
		}

	case domain.PricingMultiple:
		if len(cfg.Packages) == 0 {
			res.add("packages", KindRequired, "at least one package is required in multiple pricing mode")
			return
		}
		for i, p := range cfg.Packages {
			if strings.TrimSpace(p.Name) == "" {
				res.add(fmt.Sprintf("packages[%d].name", i), KindRequired, "package name is required")
			}
			if !(p.Price >= 0) {
				res.add(fmt.Sprintf("packages[%d].price", i), KindBounds, "package price must be zero or more")
				continue
			}
			if p.OriginalPrice != nil && !(*p.OriginalPrice > p.Price) {
				res.add(fmt.Sprintf("packages[%d].original_price", i), KindBounds, "original price must be greater than price")
			}
		}

	default:
		res.add("pricing_mode", KindFormat, "pricing mode must be %q or %q", domain.PricingSingle, domain.PricingMultiple)
	}
}

func validateContent(cfg *domain.LandingPageConfig, res *ValidationResult) {
	if n := utf8.RuneCountInString(cfg.ProductDescription); n > domain.MaxDescriptionLength {
		res.add("product_description", KindBounds, "description is %d characters, limit is %d", n, domain.MaxDescriptionLength)
	}

	if len(cfg.Benefits) > domain.MaxBenefits {
		res.add("benefits", KindBounds, "at most %d benefits allowed, got %d", domain.MaxBenefits, len(cfg.Benefits))
	}
	for i, b := range cfg.Benefits {
		if strings.TrimSpace(b) == "" {
			res.add(fmt.Sprintf("benefits[%d]", i), KindRequired, "benefit may not be empty")
		}
	}

	if len(cfg.Testimonials) > domain.MaxTestimonials {
		res.add("testimonials", KindBounds, "at most %d testimonials allowed, got %d", domain.MaxTestimonials, len(cfg.Testimonials))
	}
	for i, t := range cfg.Testimonials {
		if strings.TrimSpace(t.Name) == "" {
			res.add(fmt.Sprintf("testimonials[%d].name", i), KindRequired, "testimonial name is required")
		}
		if strings.TrimSpace(t.Quote) == "" {
			res.add(fmt.Sprintf("testimonials[%d].quote", i), KindRequired, "testimonial quote is required")
		}
	}

	if len(cfg.SEOKeywords) > domain.MaxSEOKeywords {
		res.add("seo_keywords", KindBounds, "at most %d keywords allowed, got %d", domain.MaxSEOKeywords, len(cfg.SEOKeywords))
	}

	if len(cfg.GalleryImages) > domain.MaxGalleryImages {
		res.add("gallery_images", KindBounds, "at most %d gallery images allowed, got %d", domain.MaxGalleryImages, len(cfg.GalleryImages))
	}
	for i, u := range cfg.GalleryImages {
		if !isHTTPURL(u) {
			res.add(fmt.Sprintf("gallery_images[%d]", i), KindFormat, "image must be an absolute http(s) URL")
		}
	}
	if cfg.HeroImage != "" && !isHTTPURL(cfg.HeroImage) {
		res.add("hero_image", KindFormat, "image must be an absolute http(s) URL")
	}
}

func validateRouting(cfg *domain.LandingPageConfig, res *ValidationResult) {
	if !cfg.RoutingEnabled() {
		if cfg.WhatsAppNumber != "" && !isDigits(cfg.WhatsAppNumber) {
			res.add("whatsapp_number", KindFormat, "phone number must contain digits only")
		}
		return
	}

	sum := 0
	seen := make(map[string]bool, len(cfg.ContactTargets))
	for i, t := range cfg.ContactTargets {
		prefix := fmt.Sprintf("contact_targets[%d]", i)
		sum += t.WeightPercent

		switch {
		case t.ID == "":
			res.add(prefix+".id", KindRequired, "contact id is required")
		case seen[t.ID]:
			res.add(prefix+".id", KindFormat, "duplicate contact id %q", t.ID)
		}
		seen[t.ID] = true

		if t.WeightPercent < 0 || t.WeightPercent > rotation.TotalWeight {
			res.add(prefix+".weight_percent", KindBounds, "weight must be between 0 and 100")
		}

		switch {
		case t.PhoneNumber == "" && t.WeightPercent > 0:
			res.add(prefix+".phone_number", KindRequired, "phone number is required for a contact receiving traffic")
		case t.PhoneNumber != "" && !isDigits(t.PhoneNumber):
			res.add(prefix+".phone_number", KindFormat, "phone number must contain digits only")
		}
	}

	if !rotation.ValidateWeights(cfg.ContactTargets) && sum != rotation.TotalWeight {
		res.add("contact_targets", KindPercentageSum, "weights must sum to 100, got %d", sum)
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "https" || u.Scheme == "http") && u.Host != ""
}
