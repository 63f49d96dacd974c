package geoip

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestLocator_City_CachesLookup(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/8.8.8.8/json/", r.URL.Path)
		_, _ = w.Write([]byte(`{"ip":"8.8.8.8","city":"Mountain View","country":"US"}`))
	}))
	defer ts.Close()

	mr, rdb := newRedis(t)
	loc := New(ts.URL, rdb)

	city, err := loc.City(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, "Mountain View", city)

	city, err = loc.City(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, "Mountain View", city)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	cached, err := mr.Get("geoip:city:8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, "Mountain View", cached)
	assert.Positive(t, mr.TTL("geoip:city:8.8.8.8"))
}

func TestLocator_City_SkipsPrivateAddresses(t *testing.T) {
	loc := New("http://127.0.0.1:1", nil)
	for _, ip := range []string{"127.0.0.1", "10.0.0.5", "192.168.1.1", "::1", "not-an-ip", ""} {
		city, err := loc.City(context.Background(), ip)
		require.NoError(t, err)
		assert.Empty(t, city, ip)
	}
}

func TestLocator_City_ProviderErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/1.1.1.1/json/" {
			_, _ = w.Write([]byte(`{"error": true, "reason": "RateLimited"}`))
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	loc := New(ts.URL, nil)
	_, err := loc.City(context.Background(), "1.1.1.1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RateLimited")

	_, err = loc.City(context.Background(), "9.9.9.9")
	require.Error(t, err)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.9:5555"
	assert.Equal(t, "203.0.113.9", ClientIP(r))

	r.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	assert.Equal(t, "198.51.100.7", ClientIP(r))

	r.Header.Set("X-Forwarded-For", "")
	r.RemoteAddr = "garbage"
	assert.Equal(t, "garbage", ClientIP(r))
}
