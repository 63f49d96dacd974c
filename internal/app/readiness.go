package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	httpserver "github.com/fairyhunter13/vericv/internal/adapter/httpserver"
)

// probeTimeout bounds each dependency probe so /readyz answers quickly.
const probeTimeout = 2 * time.Second

// Pinger is a dependency that can report its health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RedisPinger is satisfied by go-redis clients.
type RedisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// Dependencies lists what /readyz probes. Redis and Store are optional.
type Dependencies struct {
	DB    Pinger
	Redis RedisPinger
	Tika  Pinger
	// Store is the remote table API when STORE_BACKEND=supabase.
	Store Pinger
}

// ReadinessChecks holds one probe per dependency; nil probes are skipped.
type ReadinessChecks struct {
	DB    func(ctx context.Context) error
	Redis func(ctx context.Context) error
	Tika  func(ctx context.Context) error
	Store func(ctx context.Context) error
}

// BuildReadinessChecks turns deps into time-bounded probes. The database and
// Tika are required, so a missing one yields a failing probe.
func BuildReadinessChecks(deps Dependencies) ReadinessChecks {
	checks := ReadinessChecks{
		DB:   required("db", deps.DB),
		Tika: required("tika", deps.Tika),
	}
	if deps.Redis != nil {
		checks.Redis = bounded(func(ctx context.Context) error { return deps.Redis.Ping(ctx).Err() })
	}
	if deps.Store != nil {
		checks.Store = bounded(deps.Store.Ping)
	}
	return checks
}

// ApplyTo installs the probes on srv.
func (c ReadinessChecks) ApplyTo(srv *httpserver.Server) {
	srv.DBCheck, srv.RedisCheck, srv.TikaCheck, srv.StoreCheck = c.DB, c.Redis, c.Tika, c.Store
}

func required(name string, p Pinger) func(ctx context.Context) error {
	if p == nil {
		err := fmt.Errorf("%s not configured", name)
		return func(context.Context) error { return err }
	}
	return bounded(p.Ping)
}

func bounded(probe func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()
		err := probe(ctx)
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("no answer within %s", probeTimeout)
		}
		return err
	}
}
