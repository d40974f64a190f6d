// Package tracking serves the public WhatsApp contact link of a published
// landing page. Each click is routed to one contact by the rotation engine,
// counted in Redis and published to SQS for the selection log.
package tracking

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ignite/leadpage/internal/domain"
	"github.com/ignite/leadpage/internal/message"
	"github.com/ignite/leadpage/internal/pkg/logger"
	"github.com/ignite/leadpage/internal/rotation"
	"github.com/ignite/leadpage/internal/service/landing"
)

// PageSource resolves published pages by slug.
type PageSource interface {
	GetPublished(ctx context.Context, slug string) (*domain.LandingPageConfig, error)
	PublicURL(slug string) string
}

// SelectionRecorder counts routed clicks.
type SelectionRecorder interface {
	RecordSelection(ctx context.Context, pageID, targetID string) error
}

// EventPublisher ships selection events off-box.
type EventPublisher interface {
	Publish(ctx context.Context, evt SelectionEvent)
}

type Handler struct {
	pages    PageSource
	router   *rotation.Router
	stats    SelectionRecorder // optional
	pub      EventPublisher    // optional
	renderer *message.Renderer
	now      func() time.Time
}

// NewHandler creates the contact redirect handler. stats and pub may be nil.
func NewHandler(pages PageSource, router *rotation.Router, stats SelectionRecorder, pub EventPublisher) *Handler {
	return &Handler{
		pages:    pages,
		router:   router,
		stats:    stats,
		pub:      pub,
		renderer: message.NewRenderer(),
		now:      time.Now,
	}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/p/{slug}/whatsapp", h.HandleWhatsApp)
	r.Get("/health", h.HandleHealth)
	return r
}

// HandleWhatsApp picks a contact for this click and redirects to wa.me with
// the page's prefilled message.
func (h *Handler) HandleWhatsApp(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	page, err := h.pages.GetPublished(r.Context(), slug)
	if errors.Is(err, landing.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		logger.Error("load published page", "slug", slug, "error", err.Error())
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	var target domain.ContactTarget
	if page.RoutingEnabled() {
		target, err = h.router.Route(page.ContactTargets)
		if err != nil {
			logger.Warn("contact routing unavailable", "page_id", page.ID, "slug", slug, "error", err.Error())
			http.Error(w, "contact unavailable", http.StatusServiceUnavailable)
			return
		}
	} else {
		if page.WhatsAppNumber == "" {
			http.Error(w, "contact unavailable", http.StatusServiceUnavailable)
			return
		}
		target = domain.ContactTarget{PhoneNumber: page.WhatsAppNumber}
	}

	text, err := h.renderer.Render(page.WhatsAppMessage, message.Vars{
		ProductName: page.ProductName,
		ContactName: target.DisplayName,
		Slug:        page.Slug,
		PageURL:     h.pages.PublicURL(page.Slug),
	})
	if err != nil {
		// The template was checked on save; a failure here still sends the visitor on.
		logger.Warn("render whatsapp message", "page_id", page.ID, "error", err.Error())
		text = ""
	}

	if h.stats != nil && target.ID != "" {
		if err := h.stats.RecordSelection(r.Context(), page.ID, target.ID); err != nil {
			logger.Warn("record selection", "page_id", page.ID, "error", err.Error())
		}
	}
	if h.pub != nil {
		h.pub.Publish(r.Context(), SelectionEvent{
			EventID:     uuid.New().String(),
			EventType:   EventContactSelected,
			PageID:      page.ID,
			Slug:        page.Slug,
			TargetID:    target.ID,
			PhoneNumber: target.PhoneNumber,
			IPAddress:   realIP(r),
			UserAgent:   r.UserAgent(),
			Referrer:    r.Referer(),
			Timestamp:   h.now().UTC(),
		})
	}

	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, message.WhatsAppURL(target.PhoneNumber, text), http.StatusFound)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func realIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx > 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return xff
	}
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
