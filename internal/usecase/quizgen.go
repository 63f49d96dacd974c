package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fairyhunter13/vericv/internal/adapter/ai"
	"github.com/fairyhunter13/vericv/internal/adapter/observability"
	"github.com/fairyhunter13/vericv/internal/config"
	"github.com/fairyhunter13/vericv/internal/domain"
)

// Sampling budget for quiz generation.
const (
	quizTemperature = 0.8
	quizTopP        = 0.9
	quizMaxTokens   = 3500
	quizTimeout     = 45 * time.Second
)

// QuizGenerator asks the model for a skills quiz built from a résumé.
type QuizGenerator struct {
	AI          domain.AIClient
	Prompts     *config.Prompts
	Normalizer  *ai.Normalizer
	Tokens      Truncator
	Model       string
	TokenBudget int
}

// NewQuizGenerator constructs a QuizGenerator.
func NewQuizGenerator(client domain.AIClient, prompts *config.Prompts, tokens Truncator, model string, budget int) QuizGenerator {
	return QuizGenerator{AI: client, Prompts: prompts, Normalizer: ai.NewNormalizer(), Tokens: tokens, Model: model, TokenBudget: budget}
}

// Generate returns question drafts for resumeText in lang. Any provider or
// parse failure yields a degraded outcome with an empty list.
func (g QuizGenerator) Generate(ctx domain.Context, resumeText string, lang domain.Language) domain.Outcome[[]domain.QuestionDraft] {
	lg := observability.LoggerFromContext(ctx)
	empty := []domain.QuestionDraft{}
	out := g.generate(ctx, resumeText, lang, empty)
	observability.ObserveQuizGenerated(string(lang), out.Kind.String())
	if !out.IsOK() {
		observability.ObserveDegraded("quizgen")
		lg.Warn("quiz generation degraded", slog.String("reason", out.Reason), slog.Any("error", out.Err))
	}
	return out
}

func (g QuizGenerator) generate(ctx domain.Context, resumeText string, lang domain.Language, empty []domain.QuestionDraft) domain.Outcome[[]domain.QuestionDraft] {
	text := strings.TrimSpace(resumeText)
	if text == "" {
		return domain.Degraded(empty, "empty resume text", domain.ErrInvalidArgument)
	}
	if g.Tokens != nil && g.TokenBudget > 0 {
		text = g.Tokens.Truncate(text, g.Model, g.TokenBudget)
	}
	prompts := g.Prompts
	if prompts == nil {
		prompts = config.DefaultPrompts()
	}
	lp := prompts.Language(string(lang))
	raw, err := g.AI.Chat(ctx, domain.ChatRequest{
		System: prompts.Quiz.System,
		User: prompts.Quiz.Render(map[string]string{
			"cv_text":              text,
			"language_instruction": lp.QuizInstruction,
			"example":              lp.QuizExample,
		}),
		Temperature: quizTemperature,
		TopP:        quizTopP,
		MaxTokens:   quizMaxTokens,
		Timeout:     quizTimeout,
	})
	if err != nil {
		return domain.Degraded(empty, providerReason(err), err)
	}
	norm := g.Normalizer
	if norm == nil {
		norm = ai.NewNormalizer()
	}
	drafts := CanonicalDrafts(norm.ForContext(ctx).Questions(raw))
	if len(drafts) == 0 {
		if ai.LooksLikeRefusal(raw) {
			return domain.Degraded(empty, "model refused", nil)
		}
		return domain.Degraded(empty, "no usable questions in model output", nil)
	}
	return domain.Ok(drafts)
}

func providerReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrUpstreamTimeout):
		return "provider timeout"
	case errors.Is(err, domain.ErrUpstreamRateLimit):
		return "provider rate limited"
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return "provider unavailable"
	default:
		return fmt.Sprintf("provider error: %v", err)
	}
}

// CanonicalDrafts converts loosely shaped model records into drafts. Records
// without question text are dropped and an out-of-range correct answer becomes
// 0. Missing difficulty is assigned by position in 5/5/5 tiers and missing
// skill is inferred from the text.
func CanonicalDrafts(records []map[string]any) []domain.QuestionDraft {
	out := make([]domain.QuestionDraft, 0, len(records))
	for _, rec := range records {
		text := firstString(rec, "question", "text", "prompt")
		if text == "" {
			continue
		}
		opts := stringList(rec["options"])
		if len(opts) == 0 {
			opts = stringList(rec["choices"])
		}
		d := domain.QuestionDraft{
			Text:          text,
			Options:       opts,
			CorrectAnswer: inRange(correctIndex(rec, opts), len(opts)),
			Difficulty:    normalizeDifficulty(firstString(rec, "difficulty", "level"), len(out)),
			Skill:         firstString(rec, "skill", "topic"),
		}
		if d.Skill == "" {
			d.Skill = InferSkill(text)
		}
		out = append(out, d)
	}
	return out
}

// inRange repairs an index outside the options to 0, the same default a
// non-numeric answer gets.
func inRange(idx, n int) int {
	if idx < 0 || (n > 0 && idx >= n) {
		return 0
	}
	return idx
}

func correctIndex(rec map[string]any, opts []string) int {
	for _, k := range []string{"correct_answer", "correctAnswer", "answer_index", "correct_index"} {
		if v, ok := rec[k]; ok && v != nil {
			if n := domain.ParseChoice(v); n != domain.NoChoice {
				return n
			}
			if s, ok := v.(string); ok {
				if i := optionIndex(opts, s); i >= 0 {
					return i
				}
			}
			return domain.CoerceIndex(v)
		}
	}
	if s, ok := rec["answer"].(string); ok {
		if i := optionIndex(opts, s); i >= 0 {
			return i
		}
	}
	return domain.CoerceIndex(rec["answer"])
}

// optionIndex matches answer against option text or an A-D letter.
func optionIndex(opts []string, answer string) int {
	a := strings.TrimSpace(answer)
	if a == "" {
		return -1
	}
	for i, o := range opts {
		if strings.EqualFold(strings.TrimSpace(o), a) {
			return i
		}
	}
	if len(a) == 1 {
		c := strings.ToUpper(a)[0]
		if c >= 'A' && int(c-'A') < len(opts) {
			return int(c - 'A')
		}
	}
	return -1
}

func normalizeDifficulty(s string, index int) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case domain.DifficultyEasy:
		return domain.DifficultyEasy
	case domain.DifficultyIntermediate, "medium":
		return domain.DifficultyIntermediate
	case domain.DifficultyAdvanced, "hard":
		return domain.DifficultyAdvanced
	}
	switch {
	case index < 5:
		return domain.DifficultyEasy
	case index < 10:
		return domain.DifficultyIntermediate
	default:
		return domain.DifficultyAdvanced
	}
}

var skillKeywords = []struct{ needle, skill string }{
	{"react", "React"},
	{"python", "Python"},
	{"sql", "SQL"},
	{"database", "SQL"},
	{"project management", "Project Management"},
	{"communication", "Communication"},
}

// InferSkill maps question text onto a coarse skill label.
func InferSkill(question string) string {
	s := strings.ToLower(question)
	for _, kw := range skillKeywords {
		if strings.Contains(s, kw.needle) {
			return kw.skill
		}
	}
	return "General"
}

func firstString(rec map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := rec[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func stringList(v any) []string {
	switch x := v.(type) {
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, it := range x {
			switch s := it.(type) {
			case string:
				out = append(out, s)
			case nil:
			default:
				out = append(out, fmt.Sprint(s))
			}
		}
		return out
	default:
		return []string{}
	}
}
