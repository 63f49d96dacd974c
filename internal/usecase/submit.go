package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fairyhunter13/vericv/internal/adapter/observability"
	"github.com/fairyhunter13/vericv/internal/domain"
)

// SubmitInput is one quiz submission.
type SubmitInput struct {
	UserID  string
	QuizID  string
	CVID    string
	Answers []domain.SubmittedAnswer
}

// SubmitOutput is the graded submission with feedback.
type SubmitOutput struct {
	ResultID     string
	QuizID       string
	Score        int
	Correct      int
	Total        int
	Answers      []domain.AnnotatedAnswer
	Feedback     string
	Rating       int
	FeedbackKind domain.OutcomeKind
	SaveErr      error
}

// SubmitService grades a submission, synthesizes feedback and stores the result.
type SubmitService struct {
	Grader       Grader
	Feedback     FeedbackSynthesizer
	Quizzes      domain.QuizStore
	Results      domain.ResultRepository
	FeedbackRepo domain.FeedbackRepository
	Events       domain.EventPublisher
}

// Submit never fails on provider or storage errors; only a quiz owned by
// another user is rejected.
func (s SubmitService) Submit(ctx domain.Context, in SubmitInput) (SubmitOutput, error) {
	lg := observability.LoggerFromContext(ctx).With(slog.String("quiz_id", in.QuizID))

	// result.quiz stays nil when the quiz cannot be found
	var quizRef *string
	ownershipKnown := true
	quiz, err := s.Quizzes.GetQuiz(ctx, in.QuizID)
	switch {
	case err == nil && quiz.UserID != in.UserID:
		return SubmitOutput{}, fmt.Errorf("op=submit.Submit: %w: quiz", domain.ErrNotFound)
	case err == nil:
		quizRef = &quiz.ID
	case errors.Is(err, domain.ErrNotFound):
		lg.Warn("quiz not found, grading without it")
	default:
		// owner unknown: never echo stored answers
		ownershipKnown = false
		lg.Warn("quiz lookup failed, grading as incorrect", slog.Any("error", err))
	}

	graded := GradeQuestions(nil, in.Answers)
	if ownershipKnown {
		graded = s.Grader.Grade(ctx, in.QuizID, in.Answers)
	}
	observability.ObserveScore(graded.Score)

	fb := s.Feedback.Synthesize(ctx, graded.Wrong, float64(graded.Score))
	out := SubmitOutput{
		QuizID:       in.QuizID,
		Score:        graded.Score,
		Correct:      graded.Correct,
		Total:        graded.Total,
		Answers:      graded.Answers,
		Feedback:     fb.Value,
		Rating:       domain.FeedbackRating(graded.Score),
		FeedbackKind: fb.Kind,
	}

	resultID, err := s.Results.Create(ctx, domain.Result{
		QuizID:      quizRef,
		UserID:      in.UserID,
		CVID:        optionalID(in.CVID),
		Score:       graded.Score,
		Correct:     graded.Correct,
		Total:       graded.Total,
		Answers:     graded.Answers,
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		lg.Error("result persistence failed", slog.Any("error", err))
		out.SaveErr = err
		return out, nil
	}
	out.ResultID = resultID

	if s.FeedbackRepo != nil {
		if _, err := s.FeedbackRepo.Create(ctx, domain.Feedback{
			ResultID: resultID,
			Content:  fb.Value,
			Rating:   out.Rating,
		}); err != nil {
			lg.Error("feedback persistence failed", slog.Any("error", err))
			out.SaveErr = err
		}
	}

	publish(ctx, s.Events, domain.Event{
		Type:   domain.EventResultSubmitted,
		Key:    resultID,
		UserID: in.UserID,
		Data:   map[string]any{"result_id": resultID, "quiz_id": in.QuizID, "score": graded.Score},
	})
	return out, nil
}
