package usecase

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/fairyhunter13/vericv/internal/adapter/observability"
	"github.com/fairyhunter13/vericv/internal/domain"
)

// GradingResult is advisory until the caller persists it as a Result.
type GradingResult struct {
	Score   int
	Correct int
	Total   int
	Answers []domain.AnnotatedAnswer
	Wrong   []domain.AnnotatedAnswer
}

// Grader scores submissions against stored questions. It never mutates the quiz.
type Grader struct {
	Quizzes domain.QuizStore
}

func NewGrader(q domain.QuizStore) Grader { return Grader{Quizzes: q} }

// Grade aligns answers to questions by position, or by question id when every
// answer carries one. A storage miss grades every answer incorrect. In id mode
// each stored question is graded once; repeats of an id grade incorrect.
func (g Grader) Grade(ctx domain.Context, quizID string, answers []domain.SubmittedAnswer) GradingResult {
	questions, err := g.Quizzes.GetQuestions(ctx, quizID)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("questions unavailable, grading as incorrect",
			slog.String("quiz_id", quizID), slog.Any("error", err))
		questions = nil
	}
	return GradeQuestions(questions, answers)
}

// GradeQuestions scores answers against an already loaded question list.
// An empty list grades every answer incorrect and echoes no correct answers.
func GradeQuestions(questions []domain.Question, answers []domain.SubmittedAnswer) GradingResult {
	idMode := byID(answers)
	lookup := positional(questions)
	if idMode {
		lookup = indexed(questions)
	}

	res := GradingResult{
		Total:   len(answers),
		Answers: make([]domain.AnnotatedAnswer, 0, len(answers)),
		Wrong:   []domain.AnnotatedAnswer{},
	}
	seen := make(map[string]bool, len(answers))
	for i, a := range answers {
		ann := domain.AnnotatedAnswer{QuestionID: a.QuestionID, Question: a.Question, Answer: a.Answer}
		chosen := domain.ParseChoice(a.Answer)
		if a.Answer != nil {
			ann.ChosenText = fmt.Sprint(a.Answer)
		}
		if q, ok := lookup(i, a); ok {
			correct := q.CorrectAnswer
			ann.CorrectAnswer = &correct
			repeat := idMode && seen[q.ID]
			ann.IsCorrect = !repeat && validChoice(chosen, q) && chosen == correct
			seen[q.ID] = true
			if ann.Question == "" {
				ann.Question = q.Text
			}
			if ann.QuestionID == "" {
				ann.QuestionID = q.ID
			}
			if chosen >= 0 && chosen < len(q.Options) {
				ann.ChosenText = q.Options[chosen]
			}
			if correct >= 0 && correct < len(q.Options) {
				ann.CorrectText = q.Options[correct]
			}
		}
		if ann.IsCorrect {
			res.Correct++
		} else {
			res.Wrong = append(res.Wrong, ann)
		}
		res.Answers = append(res.Answers, ann)
	}
	res.Score = Score(res.Correct, res.Total)
	return res
}

// Score is round(correct/total*100), and 0 when total is 0.
func Score(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

// validChoice rejects the NoChoice sentinel and indexes outside the options,
// so a corrupt stored answer never matches garbage input.
func validChoice(chosen int, q domain.Question) bool {
	return chosen != domain.NoChoice && chosen >= 0 && chosen < len(q.Options)
}

func byID(answers []domain.SubmittedAnswer) bool {
	if len(answers) == 0 {
		return false
	}
	for _, a := range answers {
		if a.QuestionID == "" {
			return false
		}
	}
	return true
}

type questionLookup func(i int, a domain.SubmittedAnswer) (domain.Question, bool)

func positional(qs []domain.Question) questionLookup {
	return func(i int, _ domain.SubmittedAnswer) (domain.Question, bool) {
		if i < len(qs) {
			return qs[i], true
		}
		return domain.Question{}, false
	}
}

func indexed(qs []domain.Question) questionLookup {
	m := make(map[string]domain.Question, len(qs))
	for _, q := range qs {
		m[q.ID] = q
	}
	return func(_ int, a domain.SubmittedAnswer) (domain.Question, bool) {
		q, ok := m[a.QuestionID]
		return q, ok
	}
}
