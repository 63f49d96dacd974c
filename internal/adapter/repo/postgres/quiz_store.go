package postgres

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fairyhunter13/vericv/internal/domain"
)

// QuizStore persists quizzes and their ordered questions in PostgreSQL.
type QuizStore struct{ Pool PgxPool }

// NewQuizStore constructs a QuizStore with the given pool.
func NewQuizStore(p PgxPool) *QuizStore { return &QuizStore{Pool: p} }

var _ domain.QuizStore = (*QuizStore)(nil)

// CreateQuiz inserts an empty quiz and returns its id.
func (s *QuizStore) CreateQuiz(ctx domain.Context, userID, title string, cvID *string) (string, error) {
	ctx, span := startSpan(ctx, "quizzes", "CreateQuiz", "INSERT")
	defer span.End()
	id, err := insertQuiz(ctx, s.Pool, domain.Quiz{UserID: userID, Title: title, CVID: cvID})
	if err != nil {
		return "", fmt.Errorf("op=quiz.create: %w", err)
	}
	return id, nil
}

// AddQuestions appends drafts after any existing questions of the quiz in one transaction.
func (s *QuizStore) AddQuestions(ctx domain.Context, quizID string, drafts []domain.QuestionDraft) ([]string, error) {
	ctx, span := startSpan(ctx, "questions", "AddQuestions", "INSERT")
	defer span.End()
	if !validID(quizID) {
		return nil, fmt.Errorf("op=quiz.add_questions: %w", domain.ErrNotFound)
	}
	var ids []string
	err := withTx(ctx, s.Pool, func(tx pgx.Tx) error {
		var next int
		if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(position), -1) + 1 FROM questions WHERE quiz_id=$1`, quizID).Scan(&next); err != nil {
			return err
		}
		var err error
		ids, err = insertQuestions(ctx, tx, quizID, next, drafts)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("op=quiz.add_questions: %w", err)
	}
	return ids, nil
}

// CreateQuizWithQuestions inserts the quiz and all its questions atomically.
func (s *QuizStore) CreateQuizWithQuestions(ctx domain.Context, q domain.Quiz, drafts []domain.QuestionDraft) (string, []string, error) {
	ctx, span := startSpan(ctx, "quizzes", "CreateQuizWithQuestions", "INSERT")
	defer span.End()
	var (
		quizID string
		ids    []string
	)
	err := withTx(ctx, s.Pool, func(tx pgx.Tx) error {
		var err error
		if quizID, err = insertQuiz(ctx, tx, q); err != nil {
			return err
		}
		ids, err = insertQuestions(ctx, tx, quizID, 0, drafts)
		return err
	})
	if err != nil {
		return "", nil, fmt.Errorf("op=quiz.create_with_questions: %w", err)
	}
	return quizID, ids, nil
}

// GetQuiz loads a quiz by id.
func (s *QuizStore) GetQuiz(ctx domain.Context, id string) (domain.Quiz, error) {
	ctx, span := startSpan(ctx, "quizzes", "GetQuiz", "SELECT")
	defer span.End()
	if !validID(id) {
		return domain.Quiz{}, fmt.Errorf("op=quiz.get: %w", domain.ErrNotFound)
	}
	var q domain.Quiz
	row := s.Pool.QueryRow(ctx, `SELECT id, user_id, cv_id, title, created_at FROM quizzes WHERE id=$1`, id)
	if err := row.Scan(&q.ID, &q.UserID, &q.CVID, &q.Title, &q.CreatedAt); err != nil {
		return domain.Quiz{}, fmt.Errorf("op=quiz.get: %w", classify(err))
	}
	return q, nil
}

// GetQuestions returns the quiz's questions ordered by position.
func (s *QuizStore) GetQuestions(ctx domain.Context, quizID string) ([]domain.Question, error) {
	ctx, span := startSpan(ctx, "questions", "GetQuestions", "SELECT")
	defer span.End()
	out := []domain.Question{}
	if !validID(quizID) {
		return out, nil
	}
	rows, err := s.Pool.Query(ctx, `SELECT id, quiz_id, position, text, options, correct_answer, difficulty, skill
	FROM questions WHERE quiz_id=$1 ORDER BY position ASC, id ASC`, quizID)
	if err != nil {
		return nil, fmt.Errorf("op=quiz.get_questions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			q    domain.Question
			opts []byte
		)
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Position, &q.Text, &opts, &q.CorrectAnswer, &q.Difficulty, &q.Skill); err != nil {
			return nil, fmt.Errorf("op=quiz.get_questions: %w", err)
		}
		q.Options = unmarshalStrings(opts)
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=quiz.get_questions: %w", err)
	}
	return out, nil
}

func insertQuiz(ctx domain.Context, db execer, q domain.Quiz) (string, error) {
	if strings.TrimSpace(q.Title) == "" {
		return "", fmt.Errorf("%w: title required", domain.ErrInvalidArgument)
	}
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	if err := ensureUser(ctx, db, q.UserID); err != nil {
		return "", err
	}
	_, err := db.Exec(ctx, `INSERT INTO quizzes (id, user_id, cv_id, title, created_at) VALUES ($1,$2,$3,$4,$5)`,
		q.ID, q.UserID, q.CVID, q.Title, q.CreatedAt)
	if err != nil {
		return "", err
	}
	return q.ID, nil
}

func insertQuestions(ctx domain.Context, db execer, quizID string, start int, drafts []domain.QuestionDraft) ([]string, error) {
	ids := make([]string, 0, len(drafts))
	q := `INSERT INTO questions (id, quiz_id, position, text, options, correct_answer, difficulty, skill)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	for i, d := range drafts {
		opts, err := marshalJSON(nonNilStrings(d.Options))
		if err != nil {
			return nil, err
		}
		id := uuid.New().String()
		if _, err := db.Exec(ctx, q, id, quizID, start+i, d.Text, opts, d.CorrectIndex(), d.Difficulty, d.Skill); err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
