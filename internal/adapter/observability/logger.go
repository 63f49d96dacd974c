package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/vericv/internal/config"
)

// SetupLogger builds the process logger. Dev gets a text handler at debug,
// everything else JSON at info. LOG_LEVEL overrides either default.
func SetupLogger(cfg config.Config) *slog.Logger {
	return newLogger(os.Stdout, cfg)
}

func newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: logLevel(cfg)}
	var h slog.Handler = slog.NewJSONHandler(w, opts)
	if cfg.IsDev() {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With(
		slog.String("service", cfg.OTELServiceName),
		slog.String("env", cfg.AppEnv),
	)
}

func logLevel(cfg config.Config) slog.Level {
	if cfg.LogLevel != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err == nil {
			return lvl
		}
	}
	if cfg.IsDev() {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

type loggerContextKey struct{}

// ContextWithLogger stores lg on ctx. A nil logger leaves ctx untouched.
func ContextWithLogger(ctx context.Context, lg *slog.Logger) context.Context {
	if ctx == nil || lg == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerContextKey{}, lg)
}

// LoggerFromContext returns the request-scoped logger. When the context has a
// recording span, its trace id is attached so log lines join up with traces.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.Default()
	}
	lg := storedLogger(ctx)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		lg = lg.With(slog.String("trace_id", sc.TraceID().String()))
	}
	return lg
}

// WithUser returns ctx whose logger carries the authenticated user id.
func WithUser(ctx context.Context, userID string) context.Context {
	if userID == "" {
		return ctx
	}
	return ContextWithLogger(ctx, storedLogger(ctx).With(slog.String("user_id", userID)))
}

func storedLogger(ctx context.Context) *slog.Logger {
	if lg, ok := ctx.Value(loggerContextKey{}).(*slog.Logger); ok && lg != nil {
		return lg
	}
	return slog.Default()
}
