package usecase

import (
	"log/slog"
	"strings"

	"github.com/fairyhunter13/vericv/internal/adapter/observability"
	"github.com/fairyhunter13/vericv/internal/domain"
)

// GeneratedQuestion is what the client sees; the correct answer is withheld.
type GeneratedQuestion struct {
	ID         string   `json:"id,omitempty"`
	Question   string   `json:"question"`
	Options    []string `json:"options"`
	Difficulty string   `json:"difficulty,omitempty"`
	Skill      string   `json:"skill,omitempty"`
}

// GenerateResult is the outcome of one /generate/ request.
type GenerateResult struct {
	QuizID    string
	CVID      string
	Language  domain.Language
	Questions []GeneratedQuestion
	Kind      domain.OutcomeKind
	Reason    string
	// SaveErr is set when questions were generated but could not be stored.
	SaveErr error
}

// QuizService generates a quiz for a CV and stores it as one unit of work.
type QuizService struct {
	Generator QuizGenerator
	Quizzes   domain.QuizStore
	Events    domain.EventPublisher
}

func NewQuizService(g QuizGenerator, q domain.QuizStore, e domain.EventPublisher) QuizService {
	return QuizService{Generator: g, Quizzes: q, Events: e}
}

// GenerateForCV runs generation for cv. An empty question list means no quiz
// was produced and nothing is stored.
func (s QuizService) GenerateForCV(ctx domain.Context, userID string, cv domain.CV) GenerateResult {
	lang := cv.Language
	if lang == "" {
		lang = domain.LangEN
	}
	out := s.Generator.Generate(ctx, cv.Text, lang)
	res := GenerateResult{
		CVID:      cv.ID,
		Language:  lang,
		Questions: []GeneratedQuestion{},
		Kind:      out.Kind,
		Reason:    out.Reason,
	}
	drafts := out.Value
	if len(drafts) == 0 {
		return res
	}

	quizID, ids, err := s.Quizzes.CreateQuizWithQuestions(ctx, domain.Quiz{
		UserID: userID,
		CVID:   optionalID(cv.ID),
		Title:  quizTitle(cv),
	}, drafts)
	if err != nil {
		observability.LoggerFromContext(ctx).Error("quiz persistence failed", slog.Any("error", err))
		res.SaveErr = err
		ids = nil
	}
	res.QuizID = quizID
	for i, d := range drafts {
		q := GeneratedQuestion{Question: d.Text, Options: d.Options, Difficulty: d.Difficulty, Skill: d.Skill}
		if q.Options == nil {
			q.Options = []string{}
		}
		if i < len(ids) {
			q.ID = ids[i]
		}
		res.Questions = append(res.Questions, q)
	}
	if res.SaveErr == nil {
		publish(ctx, s.Events, domain.Event{
			Type:   domain.EventQuizGenerated,
			Key:    quizID,
			UserID: userID,
			Data:   map[string]any{"quiz_id": quizID, "cv_id": cv.ID, "questions": len(ids), "language": string(lang)},
		})
	}
	return res
}

func quizTitle(cv domain.CV) string {
	name := strings.TrimSpace(cv.Title)
	if name == "" {
		name = strings.TrimSpace(cv.Filename)
	}
	if name == "" {
		return "CV Quiz"
	}
	return "Quiz: " + name
}
