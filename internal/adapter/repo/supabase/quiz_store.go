package supabase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/fairyhunter13/vericv/internal/adapter/observability"
	"github.com/fairyhunter13/vericv/internal/domain"
)

// QuizStore implements domain.QuizStore over the remote table API.
// The API has no multi-table transaction, so CreateQuizWithQuestions deletes
// the quiz again when its questions cannot be stored.
type QuizStore struct{ c *Client }

func NewQuizStore(c *Client) *QuizStore { return &QuizStore{c: c} }

var _ domain.QuizStore = (*QuizStore)(nil)

func (s *QuizStore) CreateQuiz(ctx domain.Context, userID, title string, cvID *string) (string, error) {
	if strings.TrimSpace(title) == "" || userID == "" {
		return "", fmt.Errorf("op=supabase.quiz.create: %w", domain.ErrInvalidArgument)
	}
	rows, err := s.c.insert(ctx, TableQuiz, map[string]any{
		"user_id": userID,
		"title":   title,
		"cv_id":   optional(cvID),
	})
	if err != nil {
		return "", fmt.Errorf("op=supabase.quiz.create: %w", err)
	}
	id := rows.Get("0.id").String()
	if id == "" {
		return "", fmt.Errorf("op=supabase.quiz.create: %w: no id returned", domain.ErrInternal)
	}
	return id, nil
}

func (s *QuizStore) AddQuestions(ctx domain.Context, quizID string, drafts []domain.QuestionDraft) ([]string, error) {
	existing, err := s.c.selectRows(ctx, TableQuestion, map[string]string{
		"quiz_id": eq(quizID),
		"select":  "position",
		"order":   "position.desc",
		"limit":   "1",
	})
	if err != nil {
		return nil, fmt.Errorf("op=supabase.quiz.add_questions: %w", err)
	}
	start := 0
	if p := existing.Get("0.position"); p.Exists() {
		start = int(p.Int()) + 1
	}
	ids, err := s.insertQuestions(ctx, quizID, start, drafts)
	if err != nil {
		return nil, fmt.Errorf("op=supabase.quiz.add_questions: %w", err)
	}
	return ids, nil
}

func (s *QuizStore) CreateQuizWithQuestions(ctx domain.Context, q domain.Quiz, drafts []domain.QuestionDraft) (string, []string, error) {
	quizID, err := s.CreateQuiz(ctx, q.UserID, q.Title, q.CVID)
	if err != nil {
		return "", nil, err
	}
	ids, err := s.insertQuestions(ctx, quizID, 0, drafts)
	if err != nil {
		if derr := s.c.delete(ctx, TableQuiz, map[string]string{"id": eq(quizID)}); derr != nil {
			observability.LoggerFromContext(ctx).Error("compensating quiz delete failed", slog.String("quiz_id", quizID), slog.Any("error", derr))
		}
		return "", nil, fmt.Errorf("op=supabase.quiz.create_with_questions: %w", err)
	}
	return quizID, ids, nil
}

func (s *QuizStore) GetQuiz(ctx domain.Context, id string) (domain.Quiz, error) {
	rows, err := s.c.selectRows(ctx, TableQuiz, map[string]string{"id": eq(id), "select": "*"})
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("op=supabase.quiz.get: %w", err)
	}
	row := rows.Get("0")
	if !row.Exists() {
		return domain.Quiz{}, fmt.Errorf("op=supabase.quiz.get: %w", domain.ErrNotFound)
	}
	return domain.Quiz{
		ID:        row.Get("id").String(),
		UserID:    row.Get("user_id").String(),
		CVID:      optionalString(row.Get("cv_id")),
		Title:     row.Get("title").String(),
		CreatedAt: parseTime(row.Get("created_at")),
	}, nil
}

func (s *QuizStore) GetQuestions(ctx domain.Context, quizID string) ([]domain.Question, error) {
	rows, err := s.c.selectRows(ctx, TableQuestion, map[string]string{
		"quiz_id": eq(quizID),
		"select":  "*",
		"order":   "position.asc,id.asc",
	})
	if err != nil {
		return nil, fmt.Errorf("op=supabase.quiz.get_questions: %w", err)
	}
	out := []domain.Question{}
	rows.ForEach(func(_, row gjson.Result) bool {
		q := domain.Question{
			ID:            row.Get("id").String(),
			QuizID:        row.Get("quiz_id").String(),
			Position:      int(row.Get("position").Int()),
			Text:          row.Get("text").String(),
			Options:       []string{},
			CorrectAnswer: domain.CoerceIndex(row.Get("correct_answer").Value()),
			Difficulty:    row.Get("difficulty").String(),
			Skill:         row.Get("skill").String(),
		}
		for _, o := range row.Get("options").Array() {
			q.Options = append(q.Options, o.String())
		}
		out = append(out, q)
		return true
	})
	return out, nil
}

func (s *QuizStore) insertQuestions(ctx context.Context, quizID string, start int, drafts []domain.QuestionDraft) ([]string, error) {
	if len(drafts) == 0 {
		return []string{}, nil
	}
	payload := make([]map[string]any, 0, len(drafts))
	for i, d := range drafts {
		opts := d.Options
		if opts == nil {
			opts = []string{}
		}
		payload = append(payload, map[string]any{
			"quiz_id":        quizID,
			"position":       start + i,
			"text":           d.Text,
			"options":        opts,
			"correct_answer": d.CorrectIndex(),
			"difficulty":     d.Difficulty,
			"skill":          d.Skill,
		})
	}
	rows, err := s.c.insert(ctx, TableQuestion, payload)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(drafts))
	rows.ForEach(func(_, row gjson.Result) bool {
		ids = append(ids, row.Get("id").String())
		return true
	})
	return ids, nil
}
