package httpapi

import (
	"net/http"
	"time"

	"server/internal/http/handlers"
	appmw "server/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *handlers.App, countryLookup appmw.CountryLookup) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RealIP,
		appmw.RequestID,
		middleware.Recoverer,
		appmw.Logger(app.Logger),
		appmw.CORS(app.Config.AllowedOrigins),
		appmw.RateLimit(app.Config.RateLimitPerMin, time.Minute),
		appmw.Geo(app.Config.DefaultLocale, countryLookup),
	)

	// Health
	r.Get("/v1/healthz", app.Health)

	// Chat
	r.Post("/chat", app.Chat)
	r.Post("/chat/stream", app.ChatStream)
	r.Get("/chat/history/{userID}", app.ChatHistory)

	// Usage
	r.Get("/usage/{userID}", app.Usage)

	// Admin
	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", app.AdminLogin)
		r.Post("/logout", app.AdminLogout)
		r.Get("/api/metrics", app.AdminMetrics)
		r.Post("/usage/{userID}/reset", app.AdminUsageReset)
	})

	return r
}
