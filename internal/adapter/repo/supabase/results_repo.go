package supabase

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/fairyhunter13/vericv/internal/domain"
)

const defaultListLimit = 50

// ResultRepo implements domain.ResultRepository over the remote table API.
type ResultRepo struct{ c *Client }

func NewResultRepo(c *Client) *ResultRepo { return &ResultRepo{c: c} }

var _ domain.ResultRepository = (*ResultRepo)(nil)

func (r *ResultRepo) Create(ctx domain.Context, res domain.Result) (string, error) {
	answers := res.Answers
	if answers == nil {
		answers = []domain.AnnotatedAnswer{}
	}
	completed := res.CompletedAt
	if completed.IsZero() {
		completed = time.Now().UTC()
	}
	rows, err := r.c.insert(ctx, TableResult, map[string]any{
		"quiz_id":    optional(res.QuizID),
		"user_id":    res.UserID,
		"cv_id":      optional(res.CVID),
		"score":      res.Score,
		"correct":    res.Correct,
		"total":      res.Total,
		"answers":    answers,
		"created_at": completed.Format(time.RFC3339Nano),
	})
	if err != nil {
		return "", fmt.Errorf("op=supabase.result.create: %w", err)
	}
	id := rows.Get("0.id").String()
	if id == "" {
		return "", fmt.Errorf("op=supabase.result.create: %w: no id returned", domain.ErrInternal)
	}
	return id, nil
}

func (r *ResultRepo) Get(ctx domain.Context, id string) (domain.Result, error) {
	rows, err := r.c.selectRows(ctx, TableResult, map[string]string{"id": eq(id), "select": "*"})
	if err != nil {
		return domain.Result{}, fmt.Errorf("op=supabase.result.get: %w", err)
	}
	row := rows.Get("0")
	if !row.Exists() {
		return domain.Result{}, fmt.Errorf("op=supabase.result.get: %w", domain.ErrNotFound)
	}
	return decodeResult(row)
}

func (r *ResultRepo) ListByUser(ctx domain.Context, userID string, limit int) ([]domain.Result, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := r.c.selectRows(ctx, TableResult, map[string]string{
		"user_id": eq(userID),
		"select":  "*",
		"order":   "created_at.desc",
		"limit":   strconv.Itoa(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("op=supabase.result.list: %w", err)
	}
	out := []domain.Result{}
	var decodeErr error
	rows.ForEach(func(_, row gjson.Result) bool {
		res, err := decodeResult(row)
		if err != nil {
			decodeErr = err
			return false
		}
		out = append(out, res)
		return true
	})
	if decodeErr != nil {
		return nil, fmt.Errorf("op=supabase.result.list: %w", decodeErr)
	}
	return out, nil
}

func decodeResult(row gjson.Result) (domain.Result, error) {
	res := domain.Result{
		ID:          row.Get("id").String(),
		QuizID:      optionalString(row.Get("quiz_id")),
		UserID:      row.Get("user_id").String(),
		CVID:        optionalString(row.Get("cv_id")),
		Score:       int(row.Get("score").Int()),
		Correct:     int(row.Get("correct").Int()),
		Total:       int(row.Get("total").Int()),
		Answers:     []domain.AnnotatedAnswer{},
		CompletedAt: parseTime(row.Get("created_at")),
	}
	if a := row.Get("answers"); a.IsArray() {
		if err := json.Unmarshal([]byte(a.Raw), &res.Answers); err != nil {
			return domain.Result{}, fmt.Errorf("decode answers: %w", err)
		}
	}
	return res, nil
}
