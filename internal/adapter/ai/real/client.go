// Package real implements the AI ports against OpenAI-compatible HTTP APIs:
// Groq for chat completions and OpenAI for speech-to-text.
package real

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/tidwall/gjson"

	"github.com/fairyhunter13/vericv/internal/adapter/observability"
	"github.com/fairyhunter13/vericv/internal/config"
	"github.com/fairyhunter13/vericv/internal/domain"
	"github.com/fairyhunter13/vericv/pkg/textx"
)

const (
	providerGroq   = "groq"
	providerOpenAI = "openai"
	// maxErrorBody caps provider error text, in runes, carried in errors and logs.
	maxErrorBody = 512
	// defaultCallTimeout applies when a request carries no budget of its own.
	defaultCallTimeout = 30 * time.Second
)

// Client implements domain.AIClient and domain.Transcriber.
type Client struct {
	cfg          config.Config
	chatHC       *http.Client
	transcribeHC *http.Client
}

// New constructs a real AI client. Per-call budgets come from ChatRequest.Timeout;
// the http.Client timeouts only guard against stuck connections.
func New(cfg config.Config) *Client {
	return &Client{
		cfg:          cfg,
		chatHC:       observability.NewHTTPClient("groq", 90*time.Second),
		transcribeHC: observability.NewHTTPClient("openai", 120*time.Second),
	}
}

// getBackoffConfig returns a bounded exponential backoff based on the current environment.
func (c *Client) getBackoffConfig(ctx context.Context) backoff.BackOff {
	initial, maxInterval, multiplier, maxRetries := c.cfg.GetAIBackoffConfig()
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = initial
	expo.MaxInterval = maxInterval
	expo.Multiplier = multiplier
	expo.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(expo, maxRetries), ctx)
}

// Chat calls the chat completions endpoint and returns the first message content.
// Transport errors, 429 and 5xx are retried within the backoff budget; other 4xx are permanent.
func (c *Client) Chat(ctx domain.Context, req domain.ChatRequest) (string, error) {
	if c.cfg.GroqAPIKey == "" {
		observability.LoggerFromContext(ctx).Error("Groq API key missing", slog.String("provider", providerGroq))
		return "", fmt.Errorf("op=ai.Chat: %w: GROQ_API_KEY missing", domain.ErrInvalidArgument)
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	messages := make([]map[string]string, 0, 2)
	if req.System != "" {
		messages = append(messages, map[string]string{"role": "system", "content": req.System})
	}
	messages = append(messages, map[string]string{"role": "user", "content": req.User})
	body := map[string]any{
		"model":       c.cfg.ChatModel,
		"messages":    messages,
		"temperature": req.Temperature,
		"max_tokens":  req.MaxTokens,
	}
	if req.TopP > 0 {
		body["top_p"] = req.TopP
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("op=ai.Chat: marshal: %w", err)
	}

	endpoint := c.cfg.GroqBaseURL + "/chat/completions"
	var content string
	op := func() error {
		start := time.Now()
		// Recreate request each attempt to avoid reusing consumed bodies
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
		if err != nil {
			return backoff.Permanent(err)
		}
		r.Header.Set("Authorization", "Bearer "+c.cfg.GroqAPIKey)
		r.Header.Set("Content-Type", "application/json")
		resp, err := c.chatHC.Do(r)
		observability.ObserveAIRequest(providerGroq, "chat", start)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			observability.LoggerFromContext(ctx).Error("failed to read response body", slog.String("provider", providerGroq), slog.Any("error", err))
			return err
		}
		if err := classifyStatus(ctx, providerGroq, resp, bodyBytes); err != nil {
			return err
		}

		choice := gjson.GetBytes(bodyBytes, "choices.0.message.content")
		if !choice.Exists() {
			observability.LoggerFromContext(ctx).Error("ai provider returned no choices", slog.String("provider", providerGroq), slog.String("model", c.cfg.ChatModel))
			return backoff.Permanent(errors.New("empty choices from provider"))
		}
		content = choice.String()
		observability.LoggerFromContext(ctx).Debug("ai provider chat ok",
			slog.String("provider", providerGroq),
			slog.String("model", gjson.GetBytes(bodyBytes, "model").String()),
			slog.Int64("total_tokens", gjson.GetBytes(bodyBytes, "usage.total_tokens").Int()),
			slog.Int("content_len", len(content)))
		return nil
	}

	if err := backoff.Retry(op, c.getBackoffConfig(ctx)); err != nil {
		return "", fmt.Errorf("op=ai.Chat: %w", mapTransportError(ctx, err))
	}
	return content, nil
}

// classifyStatus turns a non-2xx response into an error; 4xx other than 429 is permanent.
func classifyStatus(ctx context.Context, provider string, resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet := errorText(body)
	upErr := &domain.UpstreamError{Provider: provider, Status: resp.StatusCode, Body: snippet}
	lg := observability.LoggerFromContext(ctx).With(
		slog.String("provider", provider),
		slog.Int("status", resp.StatusCode),
		slog.String("x_request_id", resp.Header.Get("X-Request-Id")))
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		// Retryable: let backoff handle retries
		lg.Warn("ai provider rate limited")
		return upErr
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		lg.Warn("ai provider 4xx", slog.String("body", snippet))
		return backoff.Permanent(upErr)
	default:
		lg.Error("ai provider non-2xx", slog.String("body", snippet))
		return upErr
	}
}

// errorText prefers the OpenAI-style error.message and falls back to the raw body.
func errorText(body []byte) string {
	if msg := gjson.GetBytes(body, "error.message"); msg.Exists() && msg.String() != "" {
		return textx.TruncateRunes(msg.String(), maxErrorBody)
	}
	return textx.TruncateRunes(string(bytes.TrimSpace(body)), maxErrorBody)
}

// mapTransportError attaches ErrUpstreamTimeout when the call budget ran out.
func mapTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrUpstreamTimeout, err)
	}
	return err
}
