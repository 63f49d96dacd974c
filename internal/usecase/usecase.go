// Package usecase contains application business logic services.
//
// AI-facing calls return domain.Outcome values: a degraded outcome carries a
// usable fallback so handlers can still answer 200 with partial content.
package usecase

import (
	"log/slog"
	"time"

	"github.com/fairyhunter13/vericv/internal/adapter/observability"
	"github.com/fairyhunter13/vericv/internal/domain"
)

// Truncator trims text to a token budget for a model.
type Truncator interface {
	Truncate(text, model string, budget int) string
}

// publish sends ev and only logs failures; events never fail a request.
func publish(ctx domain.Context, events domain.EventPublisher, ev domain.Event) {
	if events == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	if err := events.Publish(ctx, ev); err != nil {
		observability.LoggerFromContext(ctx).Warn("event publish failed",
			slog.String("type", ev.Type), slog.String("key", ev.Key), slog.Any("error", err))
	}
}

// optionalID returns a pointer to id, or nil when id is empty.
func optionalID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func clampScore(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
