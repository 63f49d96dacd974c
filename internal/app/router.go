package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	httpserver "github.com/fairyhunter13/vericv/internal/adapter/httpserver"
	"github.com/fairyhunter13/vericv/internal/adapter/observability"
	"github.com/fairyhunter13/vericv/internal/config"
)

// requestTimeout bounds one request, long enough for generation plus OCR.
const requestTimeout = 120 * time.Second

// ParseOrigins splits a comma-separated origin list into a slice, trimming spaces.
// If the input is empty, returns ["*"].
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter wires middleware and routes. Everything under /api except
// /api/health/ needs an authenticated user; request rate is capped per client
// IP before authentication and per user after it.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.NotFound(httpserver.NotFound)
	r.MethodNotAllowed(httpserver.MethodNotAllowed)
	r.Use(
		httpserver.Recoverer(),
		httpserver.RequestID(),
		httpserver.TimeoutMiddleware(requestTimeout),
		httpserver.AccessLog(),
		observability.HTTPMetricsMiddleware,
		cors.Handler(cors.Options{
			AllowedOrigins: ParseOrigins(cfg.CORSAllowOrigins),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-User-Id", "X-Request-Id"},
			ExposedHeaders: []string{"X-Request-Id", "Content-Disposition", "Retry-After"},
			MaxAge:         300,
		}),
	)

	limited := httprate.WithLimitHandler(httpserver.TooManyRequests)
	r.Route("/api", func(api chi.Router) {
		api.Get("/health/", srv.HealthHandler())

		api.Group(func(ar chi.Router) {
			ar.Use(httprate.Limit(cfg.RateLimitPerMin*2, time.Minute, httprate.WithKeyFuncs(httprate.KeyByRealIP), limited))
			ar.Use(httpserver.RequireUser(cfg))
			ar.Use(httprate.Limit(cfg.RateLimitPerMin, time.Minute, httprate.WithKeyFuncs(byUser), limited))

			ar.Post("/cv/", srv.CVUploadHandler())
			ar.Get("/cv/{id}/", srv.CVGetHandler())
			ar.Post("/cv/{id}/confirm_info/", srv.CVConfirmHandler())

			ar.Route("/ai", func(ai chi.Router) {
				ai.Post("/generate/", srv.GenerateHandler())
				ai.Post("/submit/", srv.SubmitHandler())
				ai.Post("/interview/start/", srv.InterviewStartHandler())
				ai.Post("/interview/submit/", srv.InterviewSubmitHandler())
				ai.Post("/report/pdf/", srv.ReportHandler())
			})

			ar.Get("/results/", srv.ResultsListHandler())
			ar.Get("/results/{id}/", srv.ResultGetHandler())
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", srv.ReadyzHandler())
	r.With(httpserver.BasicAuth(cfg)).Get("/metrics", promhttp.Handler().ServeHTTP)

	return otelhttp.NewHandler(httpserver.SecurityHeaders(r), "vericv.http",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string { return r.Method + " " + r.URL.Path }))
}

func byUser(r *http.Request) (string, error) {
	uid, _ := httpserver.UserFrom(r.Context())
	return "user:" + uid, nil
}
