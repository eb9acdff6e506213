package httpapi

import (
	"net/http"
	"time"

	"studio/internal/http/handlers"
	"studio/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(*app.Logger),
	)
	if app.Config != nil {
		r.Use(middleware.CORS(app.Config.CORSAllowedOrigins))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", app.Health)
		r.Get("/status", app.Status)
		r.Get("/openapi.json", app.OpenAPIJSON)
		r.Get("/docs", app.OpenAPIDocs)

		r.Get("/catalog/{stage}", app.ListCatalog)
		r.Get("/catalog/{stage}/archive", app.CatalogArchive)
		r.Get("/artifacts/{id}", app.Artifact)
		r.Get("/engine/checkpoints", app.Checkpoints)

		// Work-producing routes hold files or the engine; keep them throttled.
		r.Group(func(r chi.Router) {
			limit := 30
			if app.Config != nil && app.Config.RateLimitPerMin > 0 {
				limit = app.Config.RateLimitPerMin
			}
			r.Use(middleware.RateLimit(limit, time.Minute))

			r.Post("/uploads", app.Upload)
			r.Route("/pipeline", func(r chi.Router) {
				r.Post("/normalize", app.Normalize)
				r.Post("/validate", app.Validate)
				r.Post("/remove-background", app.RemoveBackground)
			})
			r.Route("/generate", func(r chi.Router) {
				r.Post("/text", app.GenerateText)
				r.Post("/variations", app.GenerateVariations)
			})
		})
	})

	return r
}
