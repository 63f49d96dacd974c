package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/vericv/internal/domain"
	domainmocks "github.com/fairyhunter13/vericv/internal/domain/mocks"
	"github.com/fairyhunter13/vericv/internal/usecase"
)

func wrongAnswer() domain.AnnotatedAnswer {
	c := 2
	return domain.AnnotatedAnswer{Question: "What is a goroutine?", Answer: 0, CorrectAnswer: &c, ChosenText: "A thread", CorrectText: "A lightweight thread"}
}

func TestFeedback_PerfectScoreSkipsProvider(t *testing.T) {
	t.Parallel()
	client := domainmocks.NewAIClient(t)

	out := usecase.NewFeedbackSynthesizer(client, nil).Synthesize(context.Background(), nil, 100)

	assert.True(t, out.IsOK())
	assert.Equal(t, usecase.PerfectScoreFeedback, out.Value)
	client.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything)
}

func TestFeedback_ReturnsProviderTextVerbatim(t *testing.T) {
	t.Parallel()
	client := domainmocks.NewAIClient(t)
	client.On("Chat", mock.Anything, mock.MatchedBy(func(r domain.ChatRequest) bool {
		return r.Temperature == 0.7 && r.MaxTokens == 1000
	})).Return("  Study concurrency.\n", nil).Once()

	out := usecase.NewFeedbackSynthesizer(client, nil).Synthesize(context.Background(), []domain.AnnotatedAnswer{wrongAnswer()}, 75)

	assert.True(t, out.IsOK())
	assert.Equal(t, "  Study concurrency.\n", out.Value)
}

func TestFeedback_ProviderErrorEmbedsBody(t *testing.T) {
	t.Parallel()
	client := domainmocks.NewAIClient(t)
	client.On("Chat", mock.Anything, mock.Anything).
		Return("", &domain.UpstreamError{Provider: "openrouter", Status: 500, Body: "model overloaded"}).Once()

	out := usecase.NewFeedbackSynthesizer(client, nil).Synthesize(context.Background(), []domain.AnnotatedAnswer{wrongAnswer()}, 50)

	assert.True(t, out.IsDegraded())
	assert.Equal(t, "Error while generating feedback: model overloaded", out.Value)
}

func TestFeedbackSummary(t *testing.T) {
	got := usecase.FeedbackSummary([]domain.AnnotatedAnswer{wrongAnswer(), {Question: "Q", Answer: "x"}}, 50)
	assert.Contains(t, got, "Score: 50.0%")
	assert.Contains(t, got, "- Question: What is a goroutine?\n  Your answer: A thread\n  Correct: A lightweight thread\n")
	assert.Contains(t, got, "  Your answer: x\n  Correct: unknown\n")
}
