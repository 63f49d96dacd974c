// Package geoip resolves client IPs to a city using the ipapi.co JSON API.
package geoip

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tidwall/gjson"

	"github.com/fairyhunter13/vericv/internal/adapter/observability"
)

const (
	lookupTimeout = 5 * time.Second
	cacheTTL      = 24 * time.Hour
	cachePrefix   = "geoip:city:"
)

// Locator implements domain.GeoLocator. The redis cache is optional.
type Locator struct {
	baseURL string
	hc      *http.Client
	cache   redis.Cmdable
}

// New builds a Locator; cache may be nil.
func New(baseURL string, cache redis.Cmdable) *Locator {
	return &Locator{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      observability.NewHTTPClient("ipapi", lookupTimeout),
		cache:   cache,
	}
}

// City returns the city for ip, or "" for private, loopback and unknown addresses.
func (l *Locator) City(ctx context.Context, ip string) (string, error) {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() {
		return "", nil
	}
	key := cachePrefix + parsed.String()
	if l.cache != nil {
		city, err := l.cache.Get(ctx, key).Result()
		switch {
		case err == nil:
			return city, nil
		case !errors.Is(err, redis.Nil):
			observability.LoggerFromContext(ctx).Warn("geoip cache read failed", slog.Any("error", err))
		}
	}

	city, err := l.lookup(ctx, parsed.String())
	if err != nil {
		return "", fmt.Errorf("op=geoip.City: %w", err)
	}
	if l.cache != nil {
		if err := l.cache.Set(ctx, key, city, cacheTTL).Err(); err != nil {
			observability.LoggerFromContext(ctx).Warn("geoip cache write failed", slog.Any("error", err))
		}
	}
	return city, nil
}

func (l *Locator) lookup(ctx context.Context, ip string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/"+ip+"/json/", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := l.hc.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ipapi status %d", resp.StatusCode)
	}
	if gjson.GetBytes(body, "error").Bool() {
		return "", fmt.Errorf("ipapi: %s", gjson.GetBytes(body, "reason").String())
	}
	return gjson.GetBytes(body, "city").String(), nil
}

// ClientIP picks the first X-Forwarded-For entry, falling back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
