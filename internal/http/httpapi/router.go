package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"shortshive/internal/http/handlers"
	"shortshive/internal/infra"
	"shortshive/internal/middleware"
	"shortshive/internal/observability"
)

type Options struct {
	Logger             infra.Logger
	Metrics            *observability.Metrics
	CORSAllowedOrigins []string
	RateLimitPerMin    int
	// StaticDir is served under StaticPath when both are set.
	StaticDir  string
	StaticPath string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.CORSAllowedOrigins),
		instrument(opts.Metrics),
	)

	// Health
	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	if opts.StaticDir != "" && opts.StaticPath != "" {
		prefix := "/" + strings.Trim(opts.StaticPath, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix, http.FileServer(http.Dir(opts.StaticDir))))
	}

	// Polling stays outside the limiter; writes are limited per client.
	r.Get("/animations/{story_id}/status", app.AnimationStatus)
	r.Get("/stories/{story_id}/scenes", app.ListScenes)
	r.Get("/animations/{story_id}/archive", app.DownloadArchive)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin))
		r.Post("/animations", app.GenerateAnimation)
		r.Delete("/animations/{story_id}/images", app.ResetAnimation)
		r.Post("/stories/refine", app.RefineStory)
	})

	return r
}

func instrument(m *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			route := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.ObserveHTTP(r.Method, route, status, time.Since(start))
		})
	}
}
