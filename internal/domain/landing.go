package domain

import (
	"time"
)

// LandingStatus enumerates the lifecycle states of a landing page.
type LandingStatus string

const (
	LandingDraft     LandingStatus = "draft"
	LandingPublished LandingStatus = "published"
)

// PricingMode selects between a single price and a list of packages.
type PricingMode string

const (
	PricingSingle   PricingMode = "single"
	PricingMultiple PricingMode = "multiple"
)

// DefaultCurrency is used when a new draft is created without an explicit currency.
const DefaultCurrency = "IDR"

// CTAEvent is the tracking-pixel event fired when a visitor clicks the CTA.
type CTAEvent string

const (
	CTAContact              CTAEvent = "Contact"
	CTALead                 CTAEvent = "Lead"
	CTAPurchase             CTAEvent = "Purchase"
	CTAAddToCart            CTAEvent = "AddToCart"
	CTAInitiateCheckout     CTAEvent = "InitiateCheckout"
	CTAViewContent          CTAEvent = "ViewContent"
	CTASchedule             CTAEvent = "Schedule"
	CTASubmitApplication    CTAEvent = "SubmitApplication"
	CTASubscribe            CTAEvent = "Subscribe"
	CTACompleteRegistration CTAEvent = "CompleteRegistration"
)

// CTAEvents lists every accepted CTA event in display order.
var CTAEvents = []CTAEvent{
	CTAContact, CTALead, CTAPurchase, CTAAddToCart, CTAInitiateCheckout,
	CTAViewContent, CTASchedule, CTASubmitApplication, CTASubscribe,
	CTACompleteRegistration,
}

// Valid reports whether e is one of CTAEvents.
func (e CTAEvent) Valid() bool {
	for _, known := range CTAEvents {
		if e == known {
			return true
		}
	}
	return false
}

// Collection limits for landing page content.
const (
	MaxDescriptionLength = 240
	MaxBenefits          = 7
	MaxTestimonials      = 6
	MaxSEOKeywords       = 12
	MaxGalleryImages     = 8
)

// PricingPackage is one tier shown when PricingMode is multiple.
type PricingPackage struct {
	Name          string   `json:"name"`
	Price         float64  `json:"price"`
	OriginalPrice *float64 `json:"original_price,omitempty"`
	Features      []string `json:"features"`
	Badge         string   `json:"badge,omitempty"`
	IsHighlighted bool     `json:"is_highlighted"`
	CTAText       string   `json:"cta_text"`
}

// Testimonial is a customer quote.
type Testimonial struct {
	Name  string `json:"name"`
	Quote string `json:"quote"`
}

// ContactTarget is one WhatsApp destination in the rotation with its share
// of traffic in whole percent.
type ContactTarget struct {
	ID            string `json:"id"`
	DisplayName   string `json:"display_name"`
	PhoneNumber   string `json:"phone_number"`
	WeightPercent int    `json:"weight_percent"`
}

// LandingPageConfig is everything needed to publish a landing page. The
// config owns its packages and contact targets; use Clone before handing a
// copy to code that may edit it.
type LandingPageConfig struct {
	ID      string        `json:"id"`
	OwnerID string        `json:"owner_id"`
	Slug    string        `json:"slug"`
	Status  LandingStatus `json:"status"`

	// Product
	ProductName        string           `json:"product_name"`
	ProductDescription string           `json:"product_description"`
	PricingMode        PricingMode      `json:"pricing_mode"`
	Currency           string           `json:"currency"`
	ProductPrice       *float64         `json:"product_price,omitempty"`
	OriginalPrice      *float64         `json:"original_price,omitempty"`
	Packages           []PricingPackage `json:"packages"`

	// Content
	Benefits       []string      `json:"benefits"`
	Testimonials   []Testimonial `json:"testimonials"`
	SEOTitle       string        `json:"seo_title"`
	SEODescription string        `json:"seo_description"`
	SEOKeywords    []string      `json:"seo_keywords"`
	GalleryImages  []string      `json:"gallery_images"`
	HeroImage      string        `json:"hero_image,omitempty"`

	// Styling
	PrimaryColor string `json:"primary_color"`
	AccentColor  string `json:"accent_color"`
	HeadingFont  string `json:"heading_font"`
	BodyFont     string `json:"body_font"`

	// Tracking
	MetaPixelID       string   `json:"meta_pixel_id,omitempty"`
	GoogleAnalyticsID string   `json:"google_analytics_id,omitempty"`
	TikTokPixelID     string   `json:"tiktok_pixel_id,omitempty"`
	CTAEventName      CTAEvent `json:"cta_event_name"`

	// Contact routing. WhatsAppNumber is used when ContactTargets is empty.
	WhatsAppNumber  string          `json:"whatsapp_number,omitempty"`
	WhatsAppMessage string          `json:"whatsapp_message,omitempty"`
	ContactTargets  []ContactTarget `json:"contact_targets"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// IsPublished reports whether the page is live at its slug.
func (c *LandingPageConfig) IsPublished() bool {
	return c.Status == LandingPublished
}

// RoutingEnabled reports whether clicks rotate across ContactTargets.
func (c *LandingPageConfig) RoutingEnabled() bool {
	return len(c.ContactTargets) > 0
}

// Clone returns a deep copy.
func (c *LandingPageConfig) Clone() *LandingPageConfig {
	if c == nil {
		return nil
	}
	cp := *c
	cp.ProductPrice = cloneFloat(c.ProductPrice)
	cp.OriginalPrice = cloneFloat(c.OriginalPrice)
	if c.Packages != nil {
		cp.Packages = make([]PricingPackage, len(c.Packages))
		for i, p := range c.Packages {
			p.OriginalPrice = cloneFloat(p.OriginalPrice)
			p.Features = cloneStrings(p.Features)
			cp.Packages[i] = p
		}
	}
	cp.Benefits = cloneStrings(c.Benefits)
	if c.Testimonials != nil {
		cp.Testimonials = append([]Testimonial{}, c.Testimonials...)
	}
	cp.SEOKeywords = cloneStrings(c.SEOKeywords)
	cp.GalleryImages = cloneStrings(c.GalleryImages)
	if c.ContactTargets != nil {
		cp.ContactTargets = append([]ContactTarget{}, c.ContactTargets...)
	}
	if c.PublishedAt != nil {
		t := *c.PublishedAt
		cp.PublishedAt = &t
	}
	return &cp
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v
	return &f
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s...)
}
