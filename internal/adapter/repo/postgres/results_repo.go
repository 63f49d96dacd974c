package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/vericv/internal/domain"
)

// defaultListLimit caps result listings when the caller passes no limit.
const defaultListLimit = 50

// ResultRepo persists and loads quiz results from PostgreSQL.
type ResultRepo struct{ Pool PgxPool }

// NewResultRepo constructs a ResultRepo with the given pool.
func NewResultRepo(p PgxPool) *ResultRepo { return &ResultRepo{Pool: p} }

const resultColumns = `id, quiz_id, user_id, cv_id, score, correct, total, answers, completed_at`

// Create inserts a result. Results are never updated afterwards.
func (r *ResultRepo) Create(ctx domain.Context, res domain.Result) (string, error) {
	ctx, span := startSpan(ctx, "results", "Create", "INSERT")
	defer span.End()
	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	if res.CompletedAt.IsZero() {
		res.CompletedAt = time.Now().UTC()
	}
	answers := res.Answers
	if answers == nil {
		answers = []domain.AnnotatedAnswer{}
	}
	payload, err := marshalJSON(answers)
	if err != nil {
		return "", fmt.Errorf("op=result.create: %w", err)
	}
	if err := ensureUser(ctx, r.Pool, res.UserID); err != nil {
		return "", fmt.Errorf("op=result.create: %w", err)
	}
	q := `INSERT INTO results (` + resultColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	if _, err := r.Pool.Exec(ctx, q, res.ID, res.QuizID, res.UserID, res.CVID, res.Score, res.Correct, res.Total, payload, res.CompletedAt); err != nil {
		return "", fmt.Errorf("op=result.create: %w", err)
	}
	return res.ID, nil
}

// Get loads a result by id.
func (r *ResultRepo) Get(ctx domain.Context, id string) (domain.Result, error) {
	ctx, span := startSpan(ctx, "results", "Get", "SELECT")
	defer span.End()
	if !validID(id) {
		return domain.Result{}, fmt.Errorf("op=result.get: %w", domain.ErrNotFound)
	}
	res, err := scanResult(r.Pool.QueryRow(ctx, `SELECT `+resultColumns+` FROM results WHERE id=$1`, id))
	if err != nil {
		return domain.Result{}, fmt.Errorf("op=result.get: %w", classify(err))
	}
	return res, nil
}

// ListByUser returns the user's results, newest first.
func (r *ResultRepo) ListByUser(ctx domain.Context, userID string, limit int) ([]domain.Result, error) {
	ctx, span := startSpan(ctx, "results", "ListByUser", "SELECT")
	defer span.End()
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := r.Pool.Query(ctx, `SELECT `+resultColumns+` FROM results WHERE user_id=$1 ORDER BY completed_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("op=result.list: %w", err)
	}
	defer rows.Close()
	out := []domain.Result{}
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("op=result.list: %w", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=result.list: %w", err)
	}
	return out, nil
}

func scanResult(row scanner) (domain.Result, error) {
	var (
		res     domain.Result
		answers []byte
	)
	if err := row.Scan(&res.ID, &res.QuizID, &res.UserID, &res.CVID, &res.Score, &res.Correct, &res.Total, &answers, &res.CompletedAt); err != nil {
		return domain.Result{}, err
	}
	res.Answers = []domain.AnnotatedAnswer{}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &res.Answers); err != nil {
			return domain.Result{}, fmt.Errorf("decode answers: %w", err)
		}
	}
	return res, nil
}
