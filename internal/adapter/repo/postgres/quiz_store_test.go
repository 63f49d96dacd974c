package postgres_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/vericv/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/vericv/internal/domain"
)

func drafts() []domain.QuestionDraft {
	return []domain.QuestionDraft{
		{Text: "Q1", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 1, Difficulty: domain.DifficultyEasy},
		{Text: "Q2", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: "2", Skill: "Go"},
	}
}

func TestQuizStore_CreateQuizWithQuestions_Commits(t *testing.T) {
	p := &poolStub{}
	s := postgres.NewQuizStore(p)

	quizID, ids, err := s.CreateQuizWithQuestions(context.Background(), domain.Quiz{UserID: "u1", Title: "CV Quiz"}, drafts())
	require.NoError(t, err)
	require.NotEmpty(t, quizID)
	require.Len(t, ids, 2)
	require.NotNil(t, p.tx)
	assert.True(t, p.tx.committed)
	assert.False(t, p.tx.rolledBack)

	sqls := p.execSQL()
	require.Len(t, sqls, 4)
	assert.Contains(t, sqls[0], "INSERT INTO users")
	assert.Contains(t, sqls[1], "INSERT INTO quizzes")
	assert.Contains(t, sqls[2], "INSERT INTO questions")

	// position and coerced correct answer
	assert.Equal(t, 0, p.execs[2].args[2])
	assert.Equal(t, 1, p.execs[2].args[5])
	assert.Equal(t, 1, p.execs[3].args[2])
	assert.Equal(t, 2, p.execs[3].args[5])
	assert.JSONEq(t, `["a","b","c","d"]`, string(p.execs[3].args[4].([]byte)))
	assert.Equal(t, quizID, p.execs[3].args[1])
}

func TestQuizStore_CreateQuizWithQuestions_RollsBackOnQuestionFailure(t *testing.T) {
	p := &poolStub{execErr: errors.New("boom"), execErrOn: "INSERT INTO questions"}
	s := postgres.NewQuizStore(p)

	quizID, ids, err := s.CreateQuizWithQuestions(context.Background(), domain.Quiz{UserID: "u1", Title: "CV Quiz"}, drafts())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op=quiz.create_with_questions")
	assert.Empty(t, quizID)
	assert.Nil(t, ids)
	assert.True(t, p.tx.rolledBack)
	assert.False(t, p.tx.committed)
}

func TestQuizStore_CreateQuizWithQuestions_Validation(t *testing.T) {
	p := &poolStub{}
	s := postgres.NewQuizStore(p)

	_, _, err := s.CreateQuizWithQuestions(context.Background(), domain.Quiz{UserID: "u1", Title: "  "}, drafts())
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.True(t, p.tx.rolledBack)

	_, _, err = s.CreateQuizWithQuestions(context.Background(), domain.Quiz{Title: "T"}, drafts())
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	p = &poolStub{beginErr: errors.New("no conn")}
	_, _, err = postgres.NewQuizStore(p).CreateQuizWithQuestions(context.Background(), domain.Quiz{UserID: "u1", Title: "T"}, nil)
	require.Error(t, err)
	assert.Empty(t, p.execs)
}

func TestQuizStore_CreateQuiz(t *testing.T) {
	p := &poolStub{}
	cv := uuid.New().String()
	id, err := postgres.NewQuizStore(p).CreateQuiz(context.Background(), "u1", "T", &cv)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)
	require.Len(t, p.execs, 2)
	assert.Equal(t, &cv, p.execs[1].args[2])
}

func TestQuizStore_AddQuestions_ContinuesPositions(t *testing.T) {
	p := &poolStub{rows: []rowStub{rowOf(3)}}
	ids, err := postgres.NewQuizStore(p).AddQuestions(context.Background(), uuid.New().String(), drafts())
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, 3, p.execs[0].args[2])
	assert.Equal(t, 4, p.execs[1].args[2])
	assert.True(t, p.tx.committed)

	_, err = postgres.NewQuizStore(&poolStub{}).AddQuestions(context.Background(), "nope", drafts())
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQuizStore_GetQuiz(t *testing.T) {
	id := uuid.New().String()
	now := time.Now().UTC()
	p := &poolStub{rows: []rowStub{rowOf(id, "u1", nil, "CV Quiz", now)}}
	q, err := postgres.NewQuizStore(p).GetQuiz(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "CV Quiz", q.Title)
	assert.Nil(t, q.CVID)

	p = &poolStub{rows: []rowStub{rowErr(pgx.ErrNoRows)}}
	_, err = postgres.NewQuizStore(p).GetQuiz(context.Background(), id)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = postgres.NewQuizStore(&poolStub{}).GetQuiz(context.Background(), "not-a-uuid")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQuizStore_GetQuestions(t *testing.T) {
	quiz := uuid.New().String()
	rows := &rowsStub{data: [][]any{
		{"q1", quiz, 0, "First", []byte(`["a","b"]`), 1, "easy", ""},
		{"q2", quiz, 1, "Second", []byte(`["c","d"]`), 0, "", "SQL"},
	}}
	p := &poolStub{query: rows}
	qs, err := postgres.NewQuizStore(p).GetQuestions(context.Background(), quiz)
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, "First", qs[0].Text)
	assert.Equal(t, []string{"c", "d"}, qs[1].Options)
	assert.Equal(t, "SQL", qs[1].Skill)
	assert.True(t, rows.closed)

	empty, err := postgres.NewQuizStore(&poolStub{}).GetQuestions(context.Background(), "unknown")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	none, err := postgres.NewQuizStore(&poolStub{}).GetQuestions(context.Background(), uuid.New().String())
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = postgres.NewQuizStore(&poolStub{query: &rowsStub{err: errors.New("net")}}).GetQuestions(context.Background(), quiz)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "op=quiz.get_questions"))
}
