package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 45},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI requests by provider and operation",
		},
		[]string{"provider", "operation"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI request duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 45},
		},
		[]string{"provider", "operation"},
	)

	QuizzesGeneratedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizzes_generated_total",
			Help: "Quiz generation attempts by language and outcome",
		},
		[]string{"language", "outcome"},
	)
	DegradedOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "degraded_outcomes_total",
			Help: "AI-facing calls that returned a fallback value",
		},
		[]string{"component"},
	)
	TextExtractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "text_extractions_total",
			Help: "Document text extractions by mode and status",
		},
		[]string{"mode", "status"},
	)
	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Domain events published by type and status",
		},
		[]string{"type", "status"},
	)
	RateLimitDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_decisions_total",
			Help: "Per-user limiter decisions by bucket",
		},
		[]string{"bucket", "decision"},
	)

	QuizScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quiz_score",
			Help:    "Distribution of graded quiz scores [0,100]",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)
)

var registerOnce sync.Once

// InitMetrics registers all collectors with the default registry. Safe to call more than once.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			AIRequestsTotal,
			AIRequestDuration,
			QuizzesGeneratedTotal,
			DegradedOutcomesTotal,
			TextExtractionsTotal,
			EventsPublishedTotal,
			RateLimitDecisionsTotal,
			QuizScoreHistogram,
		)
	})
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// ObserveAIRequest records one provider round-trip.
func ObserveAIRequest(provider, operation string, started time.Time) {
	AIRequestsTotal.WithLabelValues(provider, operation).Inc()
	AIRequestDuration.WithLabelValues(provider, operation).Observe(time.Since(started).Seconds())
}

// ObserveQuizGenerated counts a generation attempt; outcome is ok, degraded or fatal.
func ObserveQuizGenerated(language, outcome string) {
	QuizzesGeneratedTotal.WithLabelValues(language, outcome).Inc()
}

// ObserveDegraded counts a fallback taken by component.
func ObserveDegraded(component string) {
	DegradedOutcomesTotal.WithLabelValues(component).Inc()
}

// ObserveScore records a graded score when it is in range.
func ObserveScore(score int) {
	if score >= 0 && score <= 100 {
		QuizScoreHistogram.Observe(float64(score))
	}
}

func ObserveExtraction(mode, status string) {
	TextExtractionsTotal.WithLabelValues(mode, status).Inc()
}

func ObserveEvent(eventType, status string) {
	EventsPublishedTotal.WithLabelValues(eventType, status).Inc()
}

// ObserveRateLimit counts an allow or deny decision; errors count as "error".
func ObserveRateLimit(bucket, decision string) {
	RateLimitDecisionsTotal.WithLabelValues(bucket, decision).Inc()
}
