package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fairyhunter13/vericv/internal/adapter/observability"
	"github.com/fairyhunter13/vericv/internal/domain"
)

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	// CircuitClosed lets calls through.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects calls until the recovery timeout passes.
	CircuitOpen
	// CircuitHalfOpen lets a single probe through.
	CircuitHalfOpen
)

func (cs CircuitState) String() string {
	switch cs {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned without calling the provider. It matches
// domain.ErrUpstreamTimeout so callers degrade the same way.
var ErrCircuitOpen = fmt.Errorf("%w: circuit open", domain.ErrUpstreamTimeout)

const (
	defaultFailureThreshold = 3
	defaultRecoveryTimeout  = 30 * time.Second
)

// CircuitBreaker opens after consecutive provider failures.
type CircuitBreaker struct {
	mu               sync.Mutex
	name             string
	failureThreshold int
	recoveryTimeout  time.Duration
	state            CircuitState
	failureCount     int
	openedAt         time.Time
	probing          bool
	now              func() time.Time
}

// NewCircuitBreaker creates a breaker for one provider operation.
func NewCircuitBreaker(name string) *CircuitBreaker {
	return &CircuitBreaker{
		name:             name,
		failureThreshold: defaultFailureThreshold,
		recoveryTimeout:  defaultRecoveryTimeout,
		now:              time.Now,
	}
}

// Allow reports whether a call may go to the provider. After the recovery
// timeout an open breaker admits exactly one probe.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if cb.now().Sub(cb.openedAt) < cb.recoveryTimeout {
			return false
		}
		cb.state, cb.probing = CircuitHalfOpen, true
		return true
	default:
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	}
}

// RecordSuccess closes the breaker.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state != CircuitClosed {
		slog.Info("circuit breaker closed", slog.String("breaker", cb.name))
	}
	cb.state, cb.failureCount, cb.probing = CircuitClosed, 0, false
}

// RecordFailure counts a failure; a failed probe reopens immediately.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount++
	if cb.state == CircuitHalfOpen || cb.failureCount >= cb.failureThreshold {
		if cb.state != CircuitOpen {
			slog.Warn("circuit breaker opened",
				slog.String("breaker", cb.name),
				slog.Int("failure_count", cb.failureCount))
		}
		cb.state, cb.openedAt, cb.probing = CircuitOpen, cb.now(), false
	}
}

// RecordNeutral ends a call whose error says nothing about provider health.
// An unfinished probe returns the breaker to open with the original openedAt,
// so the next Allow probes again.
func (cb *CircuitBreaker) RecordNeutral() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == CircuitHalfOpen {
		cb.state, cb.probing = CircuitOpen, false
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Provider is a chat and speech-to-text client.
type Provider interface {
	domain.AIClient
	domain.Transcriber
}

// GuardedClient fronts a Provider with one breaker per operation.
type GuardedClient struct {
	inner      Provider
	chat       *CircuitBreaker
	transcribe *CircuitBreaker
}

var _ Provider = (*GuardedClient)(nil)

// Guard wraps inner with circuit breakers.
func Guard(inner Provider) *GuardedClient {
	return &GuardedClient{
		inner:      inner,
		chat:       NewCircuitBreaker("chat"),
		transcribe: NewCircuitBreaker("transcribe"),
	}
}

func (g *GuardedClient) Chat(ctx domain.Context, req domain.ChatRequest) (string, error) {
	var out string
	err := g.call(ctx, g.chat, func() error {
		var err error
		out, err = g.inner.Chat(ctx, req)
		return err
	})
	return out, err
}

func (g *GuardedClient) Transcribe(ctx domain.Context, fileName, path string) (string, error) {
	var out string
	err := g.call(ctx, g.transcribe, func() error {
		var err error
		out, err = g.inner.Transcribe(ctx, fileName, path)
		return err
	})
	return out, err
}

func (g *GuardedClient) call(ctx context.Context, cb *CircuitBreaker, fn func() error) error {
	if !cb.Allow() {
		observability.ObserveDegraded("breaker_" + cb.name)
		return ErrCircuitOpen
	}
	err := fn()
	switch {
	case err == nil:
		cb.RecordSuccess()
	case countsAsFailure(ctx, err):
		cb.RecordFailure()
	default:
		cb.RecordNeutral()
	}
	return err
}

// countsAsFailure ignores caller cancellations and bad input; those say
// nothing about provider health.
func countsAsFailure(ctx context.Context, err error) bool {
	if errors.Is(err, domain.ErrInvalidArgument) {
		return false
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return false
	}
	return true
}
