package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fairyhunter13/vericv/internal/config"
	"github.com/stretchr/testify/require"
)

func TestSetupTracing_Disabled(t *testing.T) {
	shutdown, err := SetupTracing(config.Config{OTLPEndpoint: ""})
	require.NoError(t, err)
	require.Nil(t, shutdown)
}

func TestSetupTracing_WithEndpoint(t *testing.T) {
	cfg := config.Config{OTLPEndpoint: "localhost:4317", OTELServiceName: "test-service"}
	// The gRPC exporter connects lazily, so construction succeeds without a collector.
	shutdown, err := SetupTracing(cfg)
	if err == nil && shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		_ = shutdown(ctx)
	}
}

func TestNewHTTPClient(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	hc := NewHTTPClient("test", time.Second)
	require.Equal(t, time.Second, hc.Timeout)
	resp, err := hc.Get(ts.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestSampleRatio(t *testing.T) {
	require.Equal(t, 1.0, sampleRatio(config.Config{AppEnv: "dev", TraceSampleRatio: -1}))
	require.Equal(t, 0.1, sampleRatio(config.Config{AppEnv: "prod", TraceSampleRatio: -1}))
	require.Equal(t, 0.5, sampleRatio(config.Config{AppEnv: "prod", TraceSampleRatio: 0.5}))
	require.Equal(t, 0.0, sampleRatio(config.Config{AppEnv: "dev", TraceSampleRatio: 0}))
}
