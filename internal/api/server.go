package api

import (
	_ "embed"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/opsfloor/breakd/internal/api/handler"
	"github.com/opsfloor/breakd/internal/cache"
	"github.com/opsfloor/breakd/internal/config"
	"github.com/opsfloor/breakd/internal/db"
	"github.com/opsfloor/breakd/internal/realtime"
	"github.com/opsfloor/breakd/internal/reminders"
)

//go:embed openapi.json
var openapiSpec []byte

// Deps bundles everything the router serves from.
type Deps struct {
	Pool      *db.Pool
	Scheduler *reminders.Scheduler
	Hub       *realtime.Hub
	Cache     *cache.Cache
	Location  *time.Location
}

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(deps Deps, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "HEAD", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type", "If-None-Match", "Cache-Control"},
		ExposedHeaders:   []string{"X-Process-Time", "X-Cache", "ETag"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Handler dependencies ---
	h := handler.New(deps.Pool, deps.Scheduler, deps.Hub, deps.Cache, cfg, deps.Location)

	// --- Routes ---

	r.Get("/", h.Root)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
		r.Get("/cache", h.HealthCheckCache)
	})

	// Swagger UI over the embedded spec.
	r.Get("/docs/openapi.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(openapiSpec)
	})
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/openapi.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/breaks/catalog", h.GetCatalog)

		r.Route("/agents/{agentID}", func(r chi.Router) {
			r.Get("/break-windows", h.GetBreakWindows)
			r.Get("/notifications", h.GetAgentReminders)
			r.Get("/stream", h.StreamReminders)
		})

		r.Post("/scheduler/run-once", h.RunSchedulerOnce)
	})

	return r
}
