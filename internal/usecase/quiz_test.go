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

const twoQuestionQuiz = `[{"question":"Q1","options":["A","B","C","D"],"correct_answer":0},` +
	`{"question":"Q2","options":["A","B","C","D"],"correct_answer":3}]`

func TestQuizService_GenerateForCV_Stores(t *testing.T) {
	t.Parallel()
	client := domainmocks.NewAIClient(t)
	client.On("Chat", mock.Anything, mock.Anything).Return(twoQuestionQuiz, nil).Once()
	store := domainmocks.NewQuizStore(t)
	store.On("CreateQuizWithQuestions", mock.Anything, mock.MatchedBy(func(q domain.Quiz) bool {
		return q.UserID == "u1" && q.Title == "Quiz: Backend CV" && q.CVID != nil && *q.CVID == "cv-1"
	}), mock.MatchedBy(func(d []domain.QuestionDraft) bool { return len(d) == 2 })).
		Return("quiz-1", []string{"q1", "q2"}, nil).Once()
	events := domainmocks.NewEventPublisher(t)
	events.On("Publish", mock.Anything, mock.MatchedBy(func(ev domain.Event) bool {
		return ev.Type == domain.EventQuizGenerated && ev.Key == "quiz-1"
	})).Return(nil).Once()

	svc := usecase.NewQuizService(usecase.NewQuizGenerator(client, nil, nil, "", 0), store, events)
	res := svc.GenerateForCV(context.Background(), "u1", domain.CV{ID: "cv-1", Title: "Backend CV", Text: "Go developer", Language: domain.LangEN})

	require.NoError(t, res.SaveErr)
	assert.Equal(t, "quiz-1", res.QuizID)
	require.Len(t, res.Questions, 2)
	assert.Equal(t, "q2", res.Questions[1].ID)
	assert.Equal(t, domain.OutcomeOK, res.Kind)
}

func TestQuizService_GenerateForCV_EmptyStoresNothing(t *testing.T) {
	t.Parallel()
	client := domainmocks.NewAIClient(t)
	client.On("Chat", mock.Anything, mock.Anything).Return("", domain.ErrUpstreamTimeout).Once()
	store := domainmocks.NewQuizStore(t)

	svc := usecase.NewQuizService(usecase.NewQuizGenerator(client, nil, nil, "", 0), store, nil)
	res := svc.GenerateForCV(context.Background(), "u1", domain.CV{ID: "cv-1", Text: "text"})

	assert.Empty(t, res.QuizID)
	assert.Empty(t, res.Questions)
	assert.Equal(t, domain.OutcomeDegraded, res.Kind)
	assert.Equal(t, domain.LangEN, res.Language)
	store.AssertNotCalled(t, "CreateQuizWithQuestions", mock.Anything, mock.Anything, mock.Anything)
}

func TestQuizService_GenerateForCV_SaveErrorKeepsQuestions(t *testing.T) {
	t.Parallel()
	client := domainmocks.NewAIClient(t)
	client.On("Chat", mock.Anything, mock.Anything).Return(twoQuestionQuiz, nil).Once()
	store := domainmocks.NewQuizStore(t)
	store.On("CreateQuizWithQuestions", mock.Anything, mock.Anything, mock.Anything).
		Return("", nil, errors.New("tx aborted")).Once()
	events := domainmocks.NewEventPublisher(t)

	svc := usecase.NewQuizService(usecase.NewQuizGenerator(client, nil, nil, "", 0), store, events)
	res := svc.GenerateForCV(context.Background(), "u1", domain.CV{Filename: "cv.pdf", Text: "text"})

	require.Error(t, res.SaveErr)
	assert.Len(t, res.Questions, 2)
	assert.Empty(t, res.Questions[0].ID)
	events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}
