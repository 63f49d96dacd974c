package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/vericv/internal/config"
)

func TestSetupLogger_Levels(t *testing.T) {
	ctx := context.Background()
	assert.True(t, SetupLogger(config.Config{AppEnv: "dev"}).Enabled(ctx, slog.LevelDebug))
	assert.False(t, SetupLogger(config.Config{AppEnv: "prod"}).Enabled(ctx, slog.LevelDebug))
	assert.True(t, SetupLogger(config.Config{AppEnv: "prod", LogLevel: "debug"}).Enabled(ctx, slog.LevelDebug))
	assert.False(t, SetupLogger(config.Config{AppEnv: "dev", LogLevel: "warn"}).Enabled(ctx, slog.LevelInfo))
	assert.True(t, SetupLogger(config.Config{AppEnv: "dev", LogLevel: "nonsense"}).Enabled(ctx, slog.LevelDebug))
}

func TestNewLogger_ProdWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, config.Config{AppEnv: "prod", OTELServiceName: "vericv"}).Info("hello")
	assert.Contains(t, buf.String(), `"service":"vericv"`)
	assert.Contains(t, buf.String(), `"env":"prod"`)
}

func TestLoggerContext(t *testing.T) {
	assert.Equal(t, slog.Default(), LoggerFromContext(context.Background()))

	lg := slog.New(slog.NewTextHandler(nil, nil))
	ctx := ContextWithLogger(context.Background(), lg)
	assert.Same(t, lg, LoggerFromContext(ctx))
	assert.Equal(t, ctx, ContextWithLogger(ctx, nil))
}

func TestLoggerFromContext_AddsTraceAndUser(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))
	ctx = WithUser(ctx, "u-9")
	assert.Equal(t, ctx, WithUser(ctx, ""))

	tid, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)
	sid, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)
	ctx = trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{TraceID: tid, SpanID: sid}))

	LoggerFromContext(ctx).Info("x")
	assert.Contains(t, buf.String(), `"user_id":"u-9"`)
	assert.Contains(t, buf.String(), `"trace_id":"0102030405060708090a0b0c0d0e0f10"`)
}
