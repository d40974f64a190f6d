package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/leadpage/internal/config"
)

// RedirectHandler serves the public WhatsApp contact link.
type RedirectHandler interface {
	HandleWhatsApp(w http.ResponseWriter, r *http.Request)
}

// SetupRoutes builds the top-level mux: health probes, public contact links,
// and the owner-scoped builder API under /api.
func SetupRoutes(cfg config.ServerConfig, deps Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", OwnerHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if deps.Health != nil {
		r.Get("/health", deps.Health.HandleHealth)
		r.Get("/health/live", deps.Health.HandleLiveness)
		r.Get("/health/ready", deps.Health.HandleReadiness)
	}

	// Public, no owner.
	if deps.Redirects != nil {
		r.Get("/p/{slug}/whatsapp", deps.Redirects.HandleWhatsApp)
	}

	owners := deps.Owners
	if owners == nil {
		owners = NewOwnerResolver(cfg.DevMode, cfg.DevOwnerID)
	}
	r.Route("/api", func(r chi.Router) {
		r.Use(owners.Middleware)
		if deps.Landing != nil {
			deps.Landing.RegisterRoutes(r)
		}
	})

	return r
}
