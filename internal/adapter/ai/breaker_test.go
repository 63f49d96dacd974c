package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/vericv/internal/domain"
)

func TestCircuitBreaker_Transitions(t *testing.T) {
	t.Parallel()
	now := time.Unix(1_700_000_000, 0)
	cb := NewCircuitBreaker("chat")
	cb.now = func() time.Time { return now }

	for i := 0; i < defaultFailureThreshold-1; i++ {
		cb.RecordFailure()
	}
	assert.Equal(t, CircuitClosed, cb.State())
	assert.True(t, cb.Allow())

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.Allow())

	now = now.Add(defaultRecoveryTimeout)
	assert.True(t, cb.Allow(), "one probe after recovery timeout")
	assert.Equal(t, CircuitHalfOpen, cb.State())
	assert.False(t, cb.Allow(), "only one probe in flight")

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())

	now = now.Add(defaultRecoveryTimeout)
	require.True(t, cb.Allow())
	cb.RecordSuccess()
	assert.Equal(t, CircuitClosed, cb.State())
	assert.Equal(t, "closed", cb.State().String())
}

type scriptedProvider struct {
	chatErr error
	calls   int
}

func (s *scriptedProvider) Chat(context.Context, domain.ChatRequest) (string, error) {
	s.calls++
	if s.chatErr != nil {
		return "", s.chatErr
	}
	return "ok", nil
}

func (s *scriptedProvider) Transcribe(context.Context, string, string) (string, error) {
	s.calls++
	return "hello", nil
}

func TestGuardedClient_ShortCircuits(t *testing.T) {
	t.Parallel()
	inner := &scriptedProvider{chatErr: &domain.UpstreamError{Provider: "groq", Status: 502}}
	g := Guard(inner)
	ctx := context.Background()

	for i := 0; i < defaultFailureThreshold; i++ {
		_, err := g.Chat(ctx, domain.ChatRequest{})
		require.Error(t, err)
	}
	_, err := g.Chat(ctx, domain.ChatRequest{})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.ErrorIs(t, err, domain.ErrUpstreamTimeout)
	assert.Equal(t, defaultFailureThreshold, inner.calls)

	text, err := g.Transcribe(ctx, "a.webm", "/tmp/a.webm")
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestGuardedClient_IgnoresCallerErrors(t *testing.T) {
	t.Parallel()
	inner := &scriptedProvider{chatErr: errors.Join(domain.ErrInvalidArgument, errors.New("empty prompt"))}
	g := Guard(inner)
	for i := 0; i < defaultFailureThreshold+2; i++ {
		_, _ = g.Chat(context.Background(), domain.ChatRequest{})
	}
	assert.Equal(t, CircuitClosed, g.chat.State())

	inner.chatErr = nil
	out, err := g.Chat(context.Background(), domain.ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestGuardedClient_CancelledHalfOpenCallReleasesBreaker(t *testing.T) {
	t.Parallel()
	now := time.Unix(1_700_000_000, 0)
	inner := &scriptedProvider{chatErr: &domain.UpstreamError{Provider: "groq", Status: 503}}
	g := Guard(inner)
	g.chat.now = func() time.Time { return now }

	for i := 0; i < defaultFailureThreshold; i++ {
		_, _ = g.Chat(context.Background(), domain.ChatRequest{})
	}
	require.Equal(t, CircuitOpen, g.chat.State())

	now = now.Add(defaultRecoveryTimeout)
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	inner.chatErr = context.Canceled
	_, err := g.Chat(cancelled, domain.ChatRequest{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, CircuitOpen, g.chat.State())

	inner.chatErr = nil
	out, err := g.Chat(context.Background(), domain.ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, CircuitClosed, g.chat.State())
	assert.Equal(t, defaultFailureThreshold+2, inner.calls)
}
