package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/leadpage/internal/domain"
	"github.com/ignite/leadpage/internal/pkg/httputil"
	"github.com/ignite/leadpage/internal/rotation"
	"github.com/ignite/leadpage/internal/service/landing"
	"github.com/ignite/leadpage/internal/storage"
)

// maxConfigBody bounds JSON request bodies. A config with every collection
// at its limit is well under this.
const maxConfigBody = 1 << 20

// DistributionReader reports observed rotation traffic for a page.
type DistributionReader interface {
	Distribution(ctx context.Context, pageID string) ([]rotation.DistributionStats, error)
}

// ImageUploader stores a landing page image and returns its public URL.
type ImageUploader interface {
	Upload(ctx context.Context, ownerID, filename string, r io.Reader) (*storage.UploadedImage, error)
}

// LandingHandlers serves the landing page builder API.
type LandingHandlers struct {
	svc    *landing.Service
	stats  DistributionReader // optional
	images ImageUploader      // optional
}

// NewLandingHandlers creates the handlers. stats and images may be nil; the
// routes they back then report 503.
func NewLandingHandlers(svc *landing.Service, stats DistributionReader, images ImageUploader) *LandingHandlers {
	return &LandingHandlers{svc: svc, stats: stats, images: images}
}

// RegisterRoutes mounts the builder API on r. Owner resolution must already
// be applied.
func (h *LandingHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/landing-pages", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Post("/draft", h.NewDraft)
		r.Post("/validate", h.Validate)
		r.Post("/images", h.UploadImage)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Replace)
			r.Patch("/", h.Patch)
			r.Delete("/", h.Delete)
			r.Post("/publish", h.Publish)
			r.Post("/unpublish", h.Unpublish)
			r.Post("/contacts/distribute", h.DistributeContacts)
			r.Get("/routing", h.Routing)
			r.Post("/content/{kind}", h.RegenerateContent)
		})
	})
}

// loadOwned fetches the page in the URL and hides pages of other owners
// behind a 404.
func (h *LandingHandlers) loadOwned(w http.ResponseWriter, r *http.Request) (*domain.LandingPageConfig, bool) {
	cfg, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err == nil && cfg.OwnerID != OwnerFromContext(r.Context()) {
		err = landing.ErrNotFound
	}
	if err != nil {
		respondServiceError(w, r, err)
		return nil, false
	}
	return cfg, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxConfigBody)
	return httputil.Decode(w, r, dst)
}

// List returns the caller's pages, newest first.
//
//	GET /api/landing-pages?status=published&page=1&limit=20
func (h *LandingHandlers) List(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r, 20, 100)
	status := r.URL.Query().Get("status")
	if status != "" && status != string(domain.LandingDraft) && status != string(domain.LandingPublished) {
		httputil.BadRequest(w, "status must be draft or published")
		return
	}

	pages, total, err := h.svc.List(r.Context(), OwnerFromContext(r.Context()), landing.ListFilter{
		Status: status,
		Limit:  p.Limit,
		Offset: p.Offset,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.OK(w, NewPaginatedResponse(pages, p, total))
}

// NewDraft returns an unsaved draft with defaults, with the optional patch
// in the body applied.
//
//	POST /api/landing-pages/draft
func (h *LandingHandlers) NewDraft(w http.ResponseWriter, r *http.Request) {
	draft := h.svc.Create(OwnerFromContext(r.Context()))
	if r.ContentLength != 0 {
		var p landing.Patch
		if !decodeBody(w, r, &p) {
			return
		}
		draft = h.svc.Update(draft, p)
	}
	httputil.OK(w, draft)
}

// Validate checks a config without saving it. Always 200; the result
// carries the violations.
//
//	POST /api/landing-pages/validate
func (h *LandingHandlers) Validate(w http.ResponseWriter, r *http.Request) {
	var cfg domain.LandingPageConfig
	if !decodeBody(w, r, &cfg) {
		return
	}
	res := h.svc.Validate(&cfg)
	if res.Errors == nil {
		res.Errors = []landing.FieldError{}
	}
	httputil.OK(w, map[string]interface{}{
		"valid":  res.Valid(),
		"errors": res.Errors,
	})
}

// Create saves a new page. Any ID or status in the body is ignored.
//
//	POST /api/landing-pages
func (h *LandingHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var cfg domain.LandingPageConfig
	if !decodeBody(w, r, &cfg) {
		return
	}
	cfg.ID = ""
	cfg.OwnerID = OwnerFromContext(r.Context())

	if _, err := h.svc.Save(r.Context(), &cfg); err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.Created(w, &cfg)
}

// Get returns one page.
//
//	GET /api/landing-pages/{id}
func (h *LandingHandlers) Get(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	httputil.OK(w, cfg)
}

// Replace saves the full config in the body over the stored one.
//
//	PUT /api/landing-pages/{id}
func (h *LandingHandlers) Replace(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	var cfg domain.LandingPageConfig
	if !decodeBody(w, r, &cfg) {
		return
	}
	cfg.ID = existing.ID
	cfg.OwnerID = existing.OwnerID

	if _, err := h.svc.Save(r.Context(), &cfg); err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.OK(w, &cfg)
}

// Patch applies a partial update and saves the result.
//
//	PATCH /api/landing-pages/{id}
func (h *LandingHandlers) Patch(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	var p landing.Patch
	if !decodeBody(w, r, &p) {
		return
	}

	cfg := h.svc.Update(existing, p)
	if _, err := h.svc.Save(r.Context(), cfg); err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.OK(w, cfg)
}

// Delete removes a page.
//
//	DELETE /api/landing-pages/{id}
func (h *LandingHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), cfg.ID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.NoContent(w)
}

// Publish makes the page live at its slug.
//
//	POST /api/landing-pages/{id}/publish
func (h *LandingHandlers) Publish(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	slug, err := h.svc.Publish(r.Context(), cfg.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.OK(w, map[string]string{
		"id":   cfg.ID,
		"slug": slug,
		"url":  h.svc.PublicURL(slug),
	})
}

// Unpublish takes the page offline and returns it.
//
//	POST /api/landing-pages/{id}/unpublish
func (h *LandingHandlers) Unpublish(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	if err := h.svc.Unpublish(r.Context(), cfg.ID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	updated, err := h.svc.Get(r.Context(), cfg.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.OK(w, updated)
}

// DistributeContacts resets contact weights to an even split and saves.
//
//	POST /api/landing-pages/{id}/contacts/distribute
func (h *LandingHandlers) DistributeContacts(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	cfg := h.svc.DistributeEvenly(existing)
	if _, err := h.svc.Save(r.Context(), cfg); err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.OK(w, cfg)
}

type routingTarget struct {
	TargetID      string  `json:"target_id"`
	DisplayName   string  `json:"display_name"`
	WeightPercent int     `json:"weight_percent"`
	Upper         int     `json:"upper"`
	Selections    int64   `json:"selections"`
	ObservedPct   float64 `json:"observed_percentage"`
}

// Routing shows the configured partition next to observed traffic.
//
//	GET /api/landing-pages/{id}/routing
func (h *LandingHandlers) Routing(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	bounds, err := rotation.BuildPartition(cfg.ContactTargets)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	observed := map[string]rotation.DistributionStats{}
	if h.stats != nil {
		dist, err := h.stats.Distribution(r.Context(), cfg.ID)
		if err != nil {
			respondServiceError(w, r, err)
			return
		}
		for _, d := range dist {
			observed[d.TargetID] = d
		}
	}

	out := make([]routingTarget, len(cfg.ContactTargets))
	var total int64
	for i, t := range cfg.ContactTargets {
		o := observed[t.ID]
		total += o.Selections
		out[i] = routingTarget{
			TargetID:      t.ID,
			DisplayName:   t.DisplayName,
			WeightPercent: t.WeightPercent,
			Upper:         bounds[i].Upper,
			Selections:    o.Selections,
			ObservedPct:   o.Percentage,
		}
	}
	httputil.OK(w, map[string]interface{}{
		"page_id":          cfg.ID,
		"stats_enabled":    h.stats != nil,
		"total_selections": total,
		"targets":          out,
	})
}

// RegenerateContent asks the content generator for fresh copy. With
// ?apply=true the result is also written onto the page and saved.
//
//	POST /api/landing-pages/{id}/content/{kind}
func (h *LandingHandlers) RegenerateContent(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	kind := landing.ContentKind(chi.URLParam(r, "kind"))

	content, err := h.svc.RegenerateContent(r.Context(), cfg.ID, kind)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	apply, _ := strconv.ParseBool(r.URL.Query().Get("apply"))
	if !apply {
		httputil.OK(w, map[string]interface{}{"content": content})
		return
	}

	updated := content.ApplyTo(cfg)
	if _, err := h.svc.Save(r.Context(), updated); err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"content": content, "page": updated})
}

// UploadImage stores a hero or gallery image and returns its URL. The
// multipart field is "file".
//
//	POST /api/landing-pages/images
func (h *LandingHandlers) UploadImage(w http.ResponseWriter, r *http.Request) {
	if h.images == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "image uploads are not configured")
		return
	}

	// Room for the multipart envelope around a maximum-size file.
	const limit = storage.MaxUploadBytes + 64<<10
	if r.ContentLength > limit {
		respondServiceError(w, r, storage.ErrTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(storage.MaxUploadBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respondServiceError(w, r, storage.ErrTooLarge)
			return
		}
		httputil.BadRequest(w, "expected multipart form with a file field")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.BadRequest(w, "missing file field")
		return
	}
	defer file.Close()

	img, err := h.images.Upload(r.Context(), OwnerFromContext(r.Context()), header.Filename, file)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.Created(w, img)
}
