// Package mocks holds testify mocks for the domain ports.
package mocks

import (
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/vericv/internal/domain"
)

func cleanup(t *testing.T, m *mock.Mock) {
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
}

// QuizStore mocks domain.QuizStore.
type QuizStore struct{ mock.Mock }

func NewQuizStore(t *testing.T) *QuizStore {
	m := &QuizStore{}
	cleanup(t, &m.Mock)
	return m
}

func (m *QuizStore) CreateQuiz(ctx domain.Context, userID, title string, cvID *string) (string, error) {
	args := m.Called(ctx, userID, title, cvID)
	return args.String(0), args.Error(1)
}

func (m *QuizStore) AddQuestions(ctx domain.Context, quizID string, drafts []domain.QuestionDraft) ([]string, error) {
	args := m.Called(ctx, quizID, drafts)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *QuizStore) CreateQuizWithQuestions(ctx domain.Context, q domain.Quiz, drafts []domain.QuestionDraft) (string, []string, error) {
	args := m.Called(ctx, q, drafts)
	ids, _ := args.Get(1).([]string)
	return args.String(0), ids, args.Error(2)
}

func (m *QuizStore) GetQuiz(ctx domain.Context, id string) (domain.Quiz, error) {
	args := m.Called(ctx, id)
	q, _ := args.Get(0).(domain.Quiz)
	return q, args.Error(1)
}

func (m *QuizStore) GetQuestions(ctx domain.Context, quizID string) ([]domain.Question, error) {
	args := m.Called(ctx, quizID)
	qs, _ := args.Get(0).([]domain.Question)
	return qs, args.Error(1)
}

// ResultRepository mocks domain.ResultRepository.
type ResultRepository struct{ mock.Mock }

func NewResultRepository(t *testing.T) *ResultRepository {
	m := &ResultRepository{}
	cleanup(t, &m.Mock)
	return m
}

func (m *ResultRepository) Create(ctx domain.Context, r domain.Result) (string, error) {
	args := m.Called(ctx, r)
	return args.String(0), args.Error(1)
}

func (m *ResultRepository) Get(ctx domain.Context, id string) (domain.Result, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(domain.Result)
	return r, args.Error(1)
}

func (m *ResultRepository) ListByUser(ctx domain.Context, userID string, limit int) ([]domain.Result, error) {
	args := m.Called(ctx, userID, limit)
	rs, _ := args.Get(0).([]domain.Result)
	return rs, args.Error(1)
}

// FeedbackRepository mocks domain.FeedbackRepository.
type FeedbackRepository struct{ mock.Mock }

func NewFeedbackRepository(t *testing.T) *FeedbackRepository {
	m := &FeedbackRepository{}
	cleanup(t, &m.Mock)
	return m
}

func (m *FeedbackRepository) Create(ctx domain.Context, f domain.Feedback) (string, error) {
	args := m.Called(ctx, f)
	return args.String(0), args.Error(1)
}

func (m *FeedbackRepository) GetByResult(ctx domain.Context, resultID string) (domain.Feedback, error) {
	args := m.Called(ctx, resultID)
	f, _ := args.Get(0).(domain.Feedback)
	return f, args.Error(1)
}

// CVRepository mocks domain.CVRepository.
type CVRepository struct{ mock.Mock }

func NewCVRepository(t *testing.T) *CVRepository {
	m := &CVRepository{}
	cleanup(t, &m.Mock)
	return m
}

func (m *CVRepository) Create(ctx domain.Context, cv domain.CV) (string, error) {
	args := m.Called(ctx, cv)
	return args.String(0), args.Error(1)
}

func (m *CVRepository) Get(ctx domain.Context, id string) (domain.CV, error) {
	args := m.Called(ctx, id)
	cv, _ := args.Get(0).(domain.CV)
	return cv, args.Error(1)
}

func (m *CVRepository) ConfirmInfo(ctx domain.Context, id string, info domain.CandidateInfo) (domain.CV, error) {
	args := m.Called(ctx, id, info)
	cv, _ := args.Get(0).(domain.CV)
	return cv, args.Error(1)
}

// InterviewRepository mocks domain.InterviewRepository.
type InterviewRepository struct{ mock.Mock }

func NewInterviewRepository(t *testing.T) *InterviewRepository {
	m := &InterviewRepository{}
	cleanup(t, &m.Mock)
	return m
}

func (m *InterviewRepository) Create(ctx domain.Context, iv domain.VoiceInterview) (string, error) {
	args := m.Called(ctx, iv)
	return args.String(0), args.Error(1)
}

func (m *InterviewRepository) Get(ctx domain.Context, id string) (domain.VoiceInterview, error) {
	args := m.Called(ctx, id)
	iv, _ := args.Get(0).(domain.VoiceInterview)
	return iv, args.Error(1)
}

func (m *InterviewRepository) Complete(ctx domain.Context, iv domain.VoiceInterview) error {
	return m.Called(ctx, iv).Error(0)
}
