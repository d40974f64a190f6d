package landing

import (
	"github.com/google/uuid"
	"github.com/ignite/leadpage/internal/domain"
)

// Patch is a partial update to a draft. Nil fields are left unchanged;
// a non-nil slice replaces the whole collection.
type Patch struct {
	Slug               *string                 `json:"slug,omitempty"`
	ProductName        *string                 `json:"product_name,omitempty"`
	ProductDescription *string                 `json:"product_description,omitempty"`
	PricingMode        *domain.PricingMode     `json:"pricing_mode,omitempty"`
	Currency           *string                 `json:"currency,omitempty"`
	ProductPrice       *float64                `json:"product_price,omitempty"`
	OriginalPrice      *float64                `json:"original_price,omitempty"`
	ClearProductPrice  bool                    `json:"clear_product_price,omitempty"`
	ClearOriginalPrice bool                    `json:"clear_original_price,omitempty"`
	Packages           []domain.PricingPackage `json:"packages,omitempty"`
	Benefits           []string                `json:"benefits,omitempty"`
	Testimonials       []domain.Testimonial    `json:"testimonials,omitempty"`

	SEOTitle       *string  `json:"seo_title,omitempty"`
	SEODescription *string  `json:"seo_description,omitempty"`
	SEOKeywords    []string `json:"seo_keywords,omitempty"`
	GalleryImages  []string `json:"gallery_images,omitempty"`
	HeroImage      *string  `json:"hero_image,omitempty"`

	PrimaryColor *string `json:"primary_color,omitempty"`
	AccentColor  *string `json:"accent_color,omitempty"`
	HeadingFont  *string `json:"heading_font,omitempty"`
	BodyFont     *string `json:"body_font,omitempty"`

	MetaPixelID       *string          `json:"meta_pixel_id,omitempty"`
	GoogleAnalyticsID *string          `json:"google_analytics_id,omitempty"`
	TikTokPixelID     *string          `json:"tiktok_pixel_id,omitempty"`
	CTAEventName      *domain.CTAEvent `json:"cta_event_name,omitempty"`

	WhatsAppNumber  *string                `json:"whatsapp_number,omitempty"`
	WhatsAppMessage *string                `json:"whatsapp_message,omitempty"`
	ContactTargets  []domain.ContactTarget `json:"contact_targets,omitempty"`
}

func (p Patch) apply(cfg *domain.LandingPageConfig) *domain.LandingPageConfig {
	out := cfg.Clone()
	if out == nil {
		out = &domain.LandingPageConfig{}
	}

	setString(&out.ProductName, p.ProductName)
	setString(&out.ProductDescription, p.ProductDescription)
	setString(&out.Currency, p.Currency)
	if p.PricingMode != nil {
		out.PricingMode = *p.PricingMode
	}

	switch {
	case p.ClearProductPrice:
		out.ProductPrice = nil
	case p.ProductPrice != nil:
		v := *p.ProductPrice
		out.ProductPrice = &v
	}
	switch {
	case p.ClearOriginalPrice:
		out.OriginalPrice = nil
	case p.OriginalPrice != nil:
		v := *p.OriginalPrice
		out.OriginalPrice = &v
	}

	if p.Packages != nil {
		out.Packages = (&domain.LandingPageConfig{Packages: p.Packages}).Clone().Packages
	}
	if p.Benefits != nil {
		out.Benefits = append([]string{}, p.Benefits...)
	}
	if p.Testimonials != nil {
		out.Testimonials = append([]domain.Testimonial{}, p.Testimonials...)
	}

	setString(&out.SEOTitle, p.SEOTitle)
	setString(&out.SEODescription, p.SEODescription)
	if p.SEOKeywords != nil {
		out.SEOKeywords = append([]string{}, p.SEOKeywords...)
	}
	if p.GalleryImages != nil {
		out.GalleryImages = append([]string{}, p.GalleryImages...)
	}
	setString(&out.HeroImage, p.HeroImage)

	setString(&out.PrimaryColor, p.PrimaryColor)
	setString(&out.AccentColor, p.AccentColor)
	setString(&out.HeadingFont, p.HeadingFont)
	setString(&out.BodyFont, p.BodyFont)

	setString(&out.MetaPixelID, p.MetaPixelID)
	setString(&out.GoogleAnalyticsID, p.GoogleAnalyticsID)
	setString(&out.TikTokPixelID, p.TikTokPixelID)
	if p.CTAEventName != nil {
		out.CTAEventName = *p.CTAEventName
	}

	if p.WhatsAppNumber != nil {
		out.WhatsAppNumber = NormalizePhone(*p.WhatsAppNumber)
	}
	setString(&out.WhatsAppMessage, p.WhatsAppMessage)
	if p.ContactTargets != nil {
		targets := make([]domain.ContactTarget, len(p.ContactTargets))
		for i, t := range p.ContactTargets {
			t.PhoneNumber = NormalizePhone(t.PhoneNumber)
			if t.ID == "" {
				t.ID = uuid.New().String()
			}
			targets[i] = t
		}
		out.ContactTargets = targets
	}

	// A published slug is fixed; Save rejects any change to it.
	switch {
	case p.Slug != nil:
		out.Slug = NormalizeSlug(*p.Slug)
	case out.Slug == "" && !out.IsPublished():
		out.Slug = NormalizeSlug(out.ProductName)
	}

	return out
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
