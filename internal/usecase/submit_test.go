package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/vericv/internal/domain"
	domainmocks "github.com/fairyhunter13/vericv/internal/domain/mocks"
	"github.com/fairyhunter13/vericv/internal/usecase"
)

type submitDeps struct {
	ai       *domainmocks.AIClient
	quizzes  *domainmocks.QuizStore
	results  *domainmocks.ResultRepository
	feedback *domainmocks.FeedbackRepository
	events   *domainmocks.EventPublisher
}

func newSubmitService(t *testing.T) (usecase.SubmitService, submitDeps) {
	d := submitDeps{
		ai:       domainmocks.NewAIClient(t),
		quizzes:  domainmocks.NewQuizStore(t),
		results:  domainmocks.NewResultRepository(t),
		feedback: domainmocks.NewFeedbackRepository(t),
		events:   domainmocks.NewEventPublisher(t),
	}
	svc := usecase.SubmitService{
		Grader:       usecase.NewGrader(d.quizzes),
		Feedback:     usecase.NewFeedbackSynthesizer(d.ai, nil),
		Quizzes:      d.quizzes,
		Results:      d.results,
		FeedbackRepo: d.feedback,
		Events:       d.events,
	}
	return svc, d
}

func TestSubmitService_GradesStoresAndPublishes(t *testing.T) {
	t.Parallel()
	svc, d := newSubmitService(t)
	d.quizzes.On("GetQuiz", mock.Anything, "quiz-1").Return(domain.Quiz{ID: "quiz-1", UserID: "u1"}, nil).Once()
	d.quizzes.On("GetQuestions", mock.Anything, "quiz-1").Return(fourQuestions(), nil).Once()
	d.ai.On("Chat", mock.Anything, mock.Anything).Return("Review goroutines.", nil).Once()
	d.results.On("Create", mock.Anything, mock.MatchedBy(func(r domain.Result) bool {
		return r.Score == 75 && r.Correct == 3 && r.Total == 4 && r.QuizID != nil && *r.QuizID == "quiz-1"
	})).Return("res-1", nil).Once()
	d.feedback.On("Create", mock.Anything, domain.Feedback{ResultID: "res-1", Content: "Review goroutines.", Rating: 4}).
		Return("fb-1", nil).Once()
	d.events.On("Publish", mock.Anything, mock.MatchedBy(func(ev domain.Event) bool {
		return ev.Type == domain.EventResultSubmitted && ev.Key == "res-1"
	})).Return(errors.New("broker down")).Once()

	out, err := svc.Submit(context.Background(), usecase.SubmitInput{UserID: "u1", QuizID: "quiz-1", Answers: answers(0, 1, 0, 3)})

	require.NoError(t, err)
	require.NoError(t, out.SaveErr)
	assert.Equal(t, "res-1", out.ResultID)
	assert.Equal(t, 75, out.Score)
	assert.Equal(t, 4, out.Rating)
	assert.Equal(t, "Review goroutines.", out.Feedback)
}

func TestSubmitService_PerfectScoreNoProviderCall(t *testing.T) {
	t.Parallel()
	svc, d := newSubmitService(t)
	d.quizzes.On("GetQuiz", mock.Anything, "quiz-1").Return(domain.Quiz{ID: "quiz-1", UserID: "u1"}, nil).Once()
	d.quizzes.On("GetQuestions", mock.Anything, "quiz-1").Return(fourQuestions(), nil).Once()
	d.results.On("Create", mock.Anything, mock.Anything).Return("res-1", nil).Once()
	d.feedback.On("Create", mock.Anything, mock.Anything).Return("fb-1", nil).Once()
	d.events.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()

	out, err := svc.Submit(context.Background(), usecase.SubmitInput{UserID: "u1", QuizID: "quiz-1", Answers: answers(0, 1, 2, 3)})

	require.NoError(t, err)
	assert.Equal(t, 100, out.Score)
	assert.Equal(t, usecase.PerfectScoreFeedback, out.Feedback)
	assert.Equal(t, 5, out.Rating)
	d.ai.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything)
}

func TestSubmitService_MissingQuizStoresNilReference(t *testing.T) {
	t.Parallel()
	svc, d := newSubmitService(t)
	d.quizzes.On("GetQuiz", mock.Anything, "gone").Return(domain.Quiz{}, domain.ErrNotFound).Once()
	d.quizzes.On("GetQuestions", mock.Anything, "gone").Return([]domain.Question{}, nil).Once()
	d.ai.On("Chat", mock.Anything, mock.Anything).Return("Keep practicing.", nil).Once()
	d.results.On("Create", mock.Anything, mock.MatchedBy(func(r domain.Result) bool {
		return r.QuizID == nil && r.Score == 0
	})).Return("res-1", nil).Once()
	d.feedback.On("Create", mock.Anything, mock.Anything).Return("fb-1", nil).Once()
	d.events.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()

	out, err := svc.Submit(context.Background(), usecase.SubmitInput{UserID: "u1", QuizID: "gone", Answers: answers(1)})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Score)
	assert.Equal(t, 3, out.Rating)
}

func TestSubmitService_QuizLookupErrorHidesAnswers(t *testing.T) {
	t.Parallel()
	svc, d := newSubmitService(t)
	d.quizzes.On("GetQuiz", mock.Anything, "quiz-1").Return(domain.Quiz{}, errors.New("connection reset")).Once()
	d.ai.On("Chat", mock.Anything, mock.Anything).Return("Keep practicing.", nil).Once()
	d.results.On("Create", mock.Anything, mock.MatchedBy(func(r domain.Result) bool {
		return r.QuizID == nil && r.Score == 0
	})).Return("res-1", nil).Once()
	d.feedback.On("Create", mock.Anything, mock.Anything).Return("fb-1", nil).Once()
	d.events.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()

	out, err := svc.Submit(context.Background(), usecase.SubmitInput{UserID: "u1", QuizID: "quiz-1", Answers: answers(0, 1)})

	require.NoError(t, err)
	assert.Equal(t, 0, out.Score)
	for _, a := range out.Answers {
		assert.False(t, a.IsCorrect)
		assert.Nil(t, a.CorrectAnswer)
	}
	d.quizzes.AssertNotCalled(t, "GetQuestions", mock.Anything, mock.Anything)
}

func TestSubmitService_OtherUsersQuizIsNotFound(t *testing.T) {
	t.Parallel()
	svc, d := newSubmitService(t)
	d.quizzes.On("GetQuiz", mock.Anything, "quiz-1").Return(domain.Quiz{ID: "quiz-1", UserID: "u2"}, nil).Once()

	_, err := svc.Submit(context.Background(), usecase.SubmitInput{UserID: "u1", QuizID: "quiz-1", Answers: answers(0)})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSubmitService_PersistenceErrorIsReported(t *testing.T) {
	t.Parallel()
	svc, d := newSubmitService(t)
	d.quizzes.On("GetQuiz", mock.Anything, "quiz-1").Return(domain.Quiz{ID: "quiz-1", UserID: "u1"}, nil).Once()
	d.quizzes.On("GetQuestions", mock.Anything, "quiz-1").Return(fourQuestions(), nil).Once()
	d.results.On("Create", mock.Anything, mock.Anything).Return("", errors.New("disk full")).Once()

	out, err := svc.Submit(context.Background(), usecase.SubmitInput{UserID: "u1", QuizID: "quiz-1", Answers: answers(0, 1, 2, 3)})
	require.NoError(t, err)
	require.Error(t, out.SaveErr)
	assert.Empty(t, out.ResultID)
	assert.Equal(t, 100, out.Score)
}

func TestResultService_Get(t *testing.T) {
	t.Parallel()
	results := domainmocks.NewResultRepository(t)
	fb := domainmocks.NewFeedbackRepository(t)
	results.On("Get", mock.Anything, "r1").Return(domain.Result{ID: "r1", UserID: "u1"}, nil).Twice()
	fb.On("GetByResult", mock.Anything, "r1").Return(domain.Feedback{}, domain.ErrNotFound).Once()
	svc := usecase.NewResultService(results, fb)

	res, got, err := svc.Get(context.Background(), "u1", "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", res.ID)
	assert.Nil(t, got)

	_, _, err = svc.Get(context.Background(), "u2", "r1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
