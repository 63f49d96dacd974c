package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/fairyhunter13/vericv/internal/adapter/ai"
	"github.com/fairyhunter13/vericv/internal/adapter/observability"
	"github.com/fairyhunter13/vericv/internal/config"
	"github.com/fairyhunter13/vericv/internal/domain"
)

const (
	interviewQuestionCount = 5

	interviewQTemperature = 0.7
	interviewQMaxTokens   = 1000
	interviewQTimeout     = 30 * time.Second

	interviewEvalTemperature = 0.5
	interviewEvalMaxTokens   = 1500
	interviewEvalTimeout     = 45 * time.Second
)

// InterviewService runs the voice interview round.
type InterviewService struct {
	CVs         domain.CVRepository
	Interviews  domain.InterviewRepository
	AI          domain.AIClient
	STT         domain.Transcriber
	Prompts     *config.Prompts
	Events      domain.EventPublisher
	Tokens      Truncator
	Model       string
	TokenBudget int
}

// StartOutput is returned to the client when an interview starts.
type StartOutput struct {
	InterviewID string
	Questions   []string
	Language    domain.Language
	Duration    int
	Kind        domain.OutcomeKind
	SaveErr     error
}

// AudioInput is a recorded answer already written to a temp file.
type AudioInput struct {
	UserID      string
	InterviewID string
	FileName    string
	Path        string
	MIME        string
	Audio       []byte
}

// AudioOutput is the result of transcribing and evaluating a recording.
// Evaluation is nil when the model could not evaluate the transcription.
type AudioOutput struct {
	Transcription string
	Evaluation    *domain.InterviewEvaluation
	Status        domain.InterviewStatus
	SaveErr       error
}

func (s InterviewService) prompts() *config.Prompts {
	if s.Prompts == nil {
		return config.DefaultPrompts()
	}
	return s.Prompts
}

// Start generates questions for the user's CV and stores the interview.
func (s InterviewService) Start(ctx domain.Context, userID, cvID string, resultID *string) (StartOutput, error) {
	cv, err := s.CVs.Get(ctx, cvID)
	if err != nil {
		return StartOutput{}, err
	}
	if cv.UserID != userID {
		return StartOutput{}, fmt.Errorf("op=interview.Start: %w: cv", domain.ErrNotFound)
	}
	lang := cv.Language
	if lang == "" {
		lang = domain.LangEN
	}
	qs := s.Questions(ctx, cv.Text, lang)
	out := StartOutput{
		Questions: qs.Value,
		Language:  lang,
		Duration:  domain.DefaultInterviewDuration,
		Kind:      qs.Kind,
	}
	id, err := s.Interviews.Create(ctx, domain.VoiceInterview{
		UserID:          userID,
		CVID:            optionalID(cv.ID),
		ResultID:        resultID,
		Language:        lang,
		Questions:       qs.Value,
		DurationSeconds: domain.DefaultInterviewDuration,
		Status:          domain.InterviewStarted,
	})
	if err != nil {
		observability.LoggerFromContext(ctx).Error("interview persistence failed", slog.Any("error", err))
		out.SaveErr = err
		return out, nil
	}
	out.InterviewID = id
	return out, nil
}

// Questions asks for five open-ended questions, falling back to the catalog defaults.
func (s InterviewService) Questions(ctx domain.Context, cvText string, lang domain.Language) domain.Outcome[[]string] {
	p := s.prompts()
	lp := p.Language(string(lang))
	defaults := append([]string(nil), lp.DefaultInterviewQuestions...)
	if s.AI == nil {
		return domain.Degraded(defaults, "no provider configured", nil)
	}
	text := cvText
	if s.Tokens != nil && s.TokenBudget > 0 {
		text = s.Tokens.Truncate(text, s.Model, s.TokenBudget)
	}
	raw, err := s.AI.Chat(ctx, domain.ChatRequest{
		System: p.InterviewQuestions.System,
		User: p.InterviewQuestions.Render(map[string]string{
			"cv_text":              text,
			"language_instruction": lp.InterviewInstruction,
			"example":              lp.InterviewExample,
		}),
		Temperature: interviewQTemperature,
		MaxTokens:   interviewQMaxTokens,
		Timeout:     interviewQTimeout,
	})
	if err != nil {
		observability.ObserveDegraded("interview_questions")
		return domain.Degraded(defaults, providerReason(err), err)
	}
	qs := ai.NewNormalizer().ForContext(ctx).Strings(raw)
	if len(qs) == 0 {
		observability.ObserveDegraded("interview_questions")
		return domain.Degraded(defaults, "no usable questions in model output", nil)
	}
	if len(qs) > interviewQuestionCount {
		qs = qs[:interviewQuestionCount]
	}
	return domain.Ok(qs)
}

// SubmitAudio transcribes and evaluates a recording and completes the interview once.
func (s InterviewService) SubmitAudio(ctx domain.Context, in AudioInput) (AudioOutput, error) {
	lg := observability.LoggerFromContext(ctx).With(slog.String("interview_id", in.InterviewID))
	iv, err := s.Interviews.Get(ctx, in.InterviewID)
	if err != nil {
		return AudioOutput{}, err
	}
	if iv.UserID != in.UserID {
		return AudioOutput{}, fmt.Errorf("op=interview.SubmitAudio: %w", domain.ErrNotFound)
	}
	if iv.Status != domain.InterviewStarted {
		return AudioOutput{}, fmt.Errorf("op=interview.SubmitAudio: %w: interview already %s", domain.ErrConflict, iv.Status)
	}

	iv.Audio = in.Audio
	iv.AudioMIME = in.MIME
	out := AudioOutput{}

	transcription, err := s.STT.Transcribe(ctx, in.FileName, in.Path)
	if err != nil || strings.TrimSpace(transcription) == "" {
		observability.ObserveDegraded("transcription")
		lg.Warn("transcription failed", slog.Any("error", err))
		iv.Status = domain.InterviewFailed
		out.Status = domain.InterviewFailed
		out.Evaluation = &domain.InterviewEvaluation{}
		if cerr := s.Interviews.Complete(ctx, iv); cerr != nil {
			if errors.Is(cerr, domain.ErrConflict) {
				return AudioOutput{}, cerr
			}
			lg.Error("interview persistence failed", slog.Any("error", cerr))
			out.SaveErr = cerr
		}
		return out, nil
	}
	iv.Transcription = transcription
	out.Transcription = transcription

	eval := s.Evaluate(ctx, transcription, iv.Questions, iv.Language)
	if eval.IsOK() {
		e := eval.Value
		out.Evaluation = &e
		iv.SoftSkillsScore = e.SoftSkillsScore
		iv.CommunicationScore = e.CommunicationScore
		iv.ConfidenceScore = e.ConfidenceScore
		iv.Feedback = e.Feedback
		iv.Suggestions = e.Suggestions
	} else {
		lg.Warn("interview evaluation degraded", slog.String("reason", eval.Reason), slog.Any("error", eval.Err))
	}
	iv.Status = domain.InterviewCompleted
	out.Status = domain.InterviewCompleted
	now := time.Now().UTC()
	iv.CompletedAt = &now
	if err := s.Interviews.Complete(ctx, iv); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return AudioOutput{}, err
		}
		lg.Error("interview persistence failed", slog.Any("error", err))
		out.SaveErr = err
		return out, nil
	}
	publish(ctx, s.Events, domain.Event{
		Type:   domain.EventInterviewCompleted,
		Key:    iv.ID,
		UserID: iv.UserID,
		Data:   map[string]any{"interview_id": iv.ID, "evaluated": out.Evaluation != nil},
	})
	return out, nil
}

// Evaluate scores a transcription; scores are clamped to 0..100.
func (s InterviewService) Evaluate(ctx domain.Context, transcription string, questions []string, lang domain.Language) domain.Outcome[domain.InterviewEvaluation] {
	if s.AI == nil {
		return domain.Degraded(domain.InterviewEvaluation{}, "no provider configured", nil)
	}
	p := s.prompts()
	lp := p.Language(string(lang))
	var qb strings.Builder
	for i, q := range questions {
		fmt.Fprintf(&qb, "%d. %s\n", i+1, q)
	}
	raw, err := s.AI.Chat(ctx, domain.ChatRequest{
		System: p.InterviewEval.System,
		User: p.InterviewEval.Render(map[string]string{
			"language_instruction": lp.EvalInstruction,
			"questions":            qb.String(),
			"transcription":        transcription,
		}),
		Temperature: interviewEvalTemperature,
		MaxTokens:   interviewEvalMaxTokens,
		Timeout:     interviewEvalTimeout,
	})
	if err != nil {
		observability.ObserveDegraded("interview_eval")
		return domain.Degraded(domain.InterviewEvaluation{}, providerReason(err), err)
	}
	span, ok := ai.NewNormalizer().ForContext(ctx).ObjectSpan(raw)
	if !ok {
		observability.ObserveDegraded("interview_eval")
		return domain.Degraded(domain.InterviewEvaluation{}, "unparseable model output", nil)
	}
	r := gjson.Parse(span)
	return domain.Ok(domain.InterviewEvaluation{
		SoftSkillsScore:    clampScore(int(r.Get("soft_skills_score").Int())),
		CommunicationScore: clampScore(int(r.Get("communication_score").Int())),
		ConfidenceScore:    clampScore(int(r.Get("confidence_score").Int())),
		Feedback:           strings.TrimSpace(r.Get("feedback").String()),
		Suggestions:        strings.TrimSpace(r.Get("suggestions").String()),
	})
}
