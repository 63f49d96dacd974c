package postgres

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/vericv/internal/domain"
)

// FeedbackRepo persists coaching feedback attached to results.
type FeedbackRepo struct{ Pool PgxPool }

// NewFeedbackRepo constructs a FeedbackRepo with the given pool.
func NewFeedbackRepo(p PgxPool) *FeedbackRepo { return &FeedbackRepo{Pool: p} }

func (r *FeedbackRepo) Create(ctx domain.Context, f domain.Feedback) (string, error) {
	ctx, span := startSpan(ctx, "feedback", "Create", "INSERT")
	defer span.End()
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	_, err := r.Pool.Exec(ctx, `INSERT INTO feedback (id, result_id, content, rating, created_at) VALUES ($1,$2,$3,$4,$5)`,
		f.ID, f.ResultID, f.Content, f.Rating, f.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("op=feedback.create: %w", classify(err))
	}
	return f.ID, nil
}

// GetByResult returns the most recent feedback for a result.
func (r *FeedbackRepo) GetByResult(ctx domain.Context, resultID string) (domain.Feedback, error) {
	ctx, span := startSpan(ctx, "feedback", "GetByResult", "SELECT")
	defer span.End()
	if !validID(resultID) {
		return domain.Feedback{}, fmt.Errorf("op=feedback.get: %w", domain.ErrNotFound)
	}
	var f domain.Feedback
	row := r.Pool.QueryRow(ctx, `SELECT id, result_id, content, rating, created_at FROM feedback
	WHERE result_id=$1 ORDER BY created_at DESC LIMIT 1`, resultID)
	if err := row.Scan(&f.ID, &f.ResultID, &f.Content, &f.Rating, &f.CreatedAt); err != nil {
		return domain.Feedback{}, fmt.Errorf("op=feedback.get: %w", classify(err))
	}
	return f, nil
}
