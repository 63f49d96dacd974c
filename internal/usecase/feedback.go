package usecase

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fairyhunter13/vericv/internal/adapter/observability"
	"github.com/fairyhunter13/vericv/internal/config"
	"github.com/fairyhunter13/vericv/internal/domain"
)

// PerfectScoreFeedback is returned without a provider call when nothing was wrong.
const PerfectScoreFeedback = "Excellent work! You answered all questions correctly."

const feedbackErrorPrefix = "Error while generating feedback: "

const (
	feedbackTemperature = 0.7
	feedbackMaxTokens   = 1000
	feedbackTimeout     = 30 * time.Second
)

// FeedbackSynthesizer turns wrong answers into coaching text.
type FeedbackSynthesizer struct {
	AI      domain.AIClient
	Prompts *config.Prompts
}

func NewFeedbackSynthesizer(client domain.AIClient, prompts *config.Prompts) FeedbackSynthesizer {
	return FeedbackSynthesizer{AI: client, Prompts: prompts}
}

// Synthesize returns the provider's text verbatim. Failures degrade to an
// error string that embeds the provider's error body.
func (f FeedbackSynthesizer) Synthesize(ctx domain.Context, wrong []domain.AnnotatedAnswer, score float64) domain.Outcome[string] {
	if len(wrong) == 0 {
		return domain.Ok(PerfectScoreFeedback)
	}
	prompts := f.Prompts
	if prompts == nil {
		prompts = config.DefaultPrompts()
	}
	summary := FeedbackSummary(wrong, score)
	text, err := f.AI.Chat(ctx, domain.ChatRequest{
		System: prompts.Feedback.System,
		User: prompts.Feedback.Render(map[string]string{
			"percent": fmt.Sprintf("%.1f", score),
			"summary": summary,
		}),
		Temperature: feedbackTemperature,
		MaxTokens:   feedbackMaxTokens,
		Timeout:     feedbackTimeout,
	})
	if err != nil {
		observability.ObserveDegraded("feedback")
		return domain.Degraded(feedbackErrorPrefix+errorBody(err), "provider error", err)
	}
	if strings.TrimSpace(text) == "" {
		observability.ObserveDegraded("feedback")
		return domain.Degraded(feedbackErrorPrefix+"empty response", "empty provider response", nil)
	}
	return domain.Ok(text)
}

// FeedbackSummary renders the plain-text list of incorrect answers.
func FeedbackSummary(wrong []domain.AnnotatedAnswer, score float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Score: %.1f%%\nIncorrect answers:\n", score)
	for _, w := range wrong {
		chosen := w.ChosenText
		if chosen == "" {
			chosen = fmt.Sprint(w.Answer)
		}
		correct := w.CorrectText
		if correct == "" && w.CorrectAnswer != nil {
			correct = fmt.Sprint(*w.CorrectAnswer)
		}
		if correct == "" {
			correct = "unknown"
		}
		fmt.Fprintf(&b, "- Question: %s\n  Your answer: %s\n  Correct: %s\n", w.Question, chosen, correct)
	}
	return b.String()
}

func errorBody(err error) string {
	var ue *domain.UpstreamError
	if errors.As(err, &ue) && ue.Body != "" {
		return ue.Body
	}
	return err.Error()
}
