package domain

import (
	"context"
	"strings"
	"time"
)

// Language is the detected or requested language of a CV and its quiz.
type Language string

const (
	LangEN Language = "en"
	LangAR Language = "ar"
)

// ParseLanguage maps free-form input onto a supported language, defaulting to English.
func ParseLanguage(s string) Language {
	if strings.EqualFold(strings.TrimSpace(s), string(LangAR)) {
		return LangAR
	}
	return LangEN
}

// CV is an uploaded résumé with its extracted text and candidate metadata.
// Text is sanitized and truncated at ingestion.
type CV struct {
	ID            string
	UserID        string
	Title         string
	Filename      string
	MIME          string
	Text          string
	Language      Language
	Name          string
	Phone         string
	City          string
	JobTitles     []string
	InfoConfirmed bool
	IPCity        string
	UploadedAt    time.Time
}

// CandidateInfo is what the model (or the regex fallback) pulls out of a CV.
type CandidateInfo struct {
	Name      string   `json:"name"`
	Phone     string   `json:"phone"`
	City      string   `json:"city"`
	JobTitles []string `json:"job_titles"`
}

// Quiz is the aggregate root for an ordered question set.
type Quiz struct {
	ID        string
	UserID    string
	CVID      *string
	Title     string
	CreatedAt time.Time
}

// Difficulty tiers requested from the generator.
const (
	DifficultyEasy         = "easy"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

// QuestionDraft is a generated question that has not been persisted yet.
// CorrectAnswer may hold an int, a float64 (decoded JSON) or a numeric string.
type QuestionDraft struct {
	Text          string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer any      `json:"correct_answer"`
	Difficulty    string   `json:"difficulty,omitempty"`
	Skill         string   `json:"skill,omitempty"`
}

// CorrectIndex returns the coerced zero-based correct option.
func (d QuestionDraft) CorrectIndex() int { return CoerceIndex(d.CorrectAnswer) }

// Question is a persisted question. Position defines presentation order.
// Invariant (not enforced): 0 <= CorrectAnswer < len(Options).
type Question struct {
	ID            string
	QuizID        string
	Position      int
	Text          string
	Options       []string
	CorrectAnswer int
	Difficulty    string
	Skill         string
}

// SubmittedAnswer is one entry of a client submission.
type SubmittedAnswer struct {
	QuestionID string `json:"question_id,omitempty"`
	Question   string `json:"question"`
	Answer     any    `json:"answer"`
}

// AnnotatedAnswer is a submitted answer after grading.
// ChosenText and CorrectText are only used for feedback rendering.
type AnnotatedAnswer struct {
	QuestionID    string `json:"question_id,omitempty"`
	Question      string `json:"question"`
	Answer        any    `json:"answer"`
	IsCorrect     bool   `json:"isCorrect"`
	CorrectAnswer *int   `json:"correctAnswer"`
	ChosenText    string `json:"-"`
	CorrectText   string `json:"-"`
}

// Result is created exactly once per submission and never updated.
type Result struct {
	ID          string
	QuizID      *string
	UserID      string
	CVID        *string
	Score       int
	Correct     int
	Total       int
	Answers     []AnnotatedAnswer
	CompletedAt time.Time
}

// Feedback is the coaching text attached to a Result.
type Feedback struct {
	ID        string
	ResultID  string
	Content   string
	Rating    int
	CreatedAt time.Time
}

// FeedbackRating derives the 3..5 star rating from a score.
func FeedbackRating(score int) int {
	switch {
	case score >= 80:
		return 5
	case score >= 70:
		return 4
	default:
		return 3
	}
}

type InterviewStatus string

const (
	InterviewStarted   InterviewStatus = "started"
	InterviewCompleted InterviewStatus = "completed"
	InterviewFailed    InterviewStatus = "failed"
)

// DefaultInterviewDuration is the recording budget offered to the candidate.
const DefaultInterviewDuration = 180

// VoiceInterview is created with questions only and completed once on submission.
type VoiceInterview struct {
	ID                 string
	UserID             string
	CVID               *string
	ResultID           *string
	Language           Language
	Questions          []string
	DurationSeconds    int
	Audio              []byte
	AudioMIME          string
	Transcription      string
	SoftSkillsScore    int
	CommunicationScore int
	ConfidenceScore    int
	Feedback           string
	Suggestions        string
	Status             InterviewStatus
	StartedAt          time.Time
	CompletedAt        *time.Time
}

// InterviewEvaluation is the model's structured verdict on a transcription.
type InterviewEvaluation struct {
	SoftSkillsScore    int    `json:"soft_skills_score"`
	CommunicationScore int    `json:"communication_score"`
	ConfidenceScore    int    `json:"confidence_score"`
	Feedback           string `json:"feedback"`
	Suggestions        string `json:"suggestions"`
}

// Repositories (ports)

// QuizStore persists quizzes and their ordered questions. Implementations are
// interchangeable: the relational store and the remote table API share it.
type QuizStore interface {
	CreateQuiz(ctx Context, userID, title string, cvID *string) (string, error)
	AddQuestions(ctx Context, quizID string, drafts []QuestionDraft) ([]string, error)
	// CreateQuizWithQuestions is the unit of work used by callers: either the
	// quiz and all its questions exist afterwards or neither does.
	CreateQuizWithQuestions(ctx Context, q Quiz, drafts []QuestionDraft) (string, []string, error)
	GetQuiz(ctx Context, id string) (Quiz, error)
	// GetQuestions returns questions in insertion order; unknown quizzes yield an empty slice.
	GetQuestions(ctx Context, quizID string) ([]Question, error)
}

type ResultRepository interface {
	Create(ctx Context, r Result) (string, error)
	Get(ctx Context, id string) (Result, error)
	ListByUser(ctx Context, userID string, limit int) ([]Result, error)
}

type FeedbackRepository interface {
	Create(ctx Context, f Feedback) (string, error)
	GetByResult(ctx Context, resultID string) (Feedback, error)
}

type CVRepository interface {
	Create(ctx Context, cv CV) (string, error)
	Get(ctx Context, id string) (CV, error)
	ConfirmInfo(ctx Context, id string, info CandidateInfo) (CV, error)
}

type InterviewRepository interface {
	Create(ctx Context, iv VoiceInterview) (string, error)
	Get(ctx Context, id string) (VoiceInterview, error)
	Complete(ctx Context, iv VoiceInterview) error
}

// External collaborators (ports)

// ChatRequest is a single chat-completion call with its sampling budget.
type ChatRequest struct {
	System      string
	User        string
	Temperature float64
	TopP        float64
	MaxTokens   int
	Timeout     time.Duration
}

// AIClient is the hosted text-generation provider.
type AIClient interface {
	Chat(ctx Context, req ChatRequest) (string, error)
}

// Transcriber is the hosted speech-to-text provider.
type Transcriber interface {
	Transcribe(ctx Context, fileName, path string) (string, error)
}

// TextExtractor (port)
// ExtractPath extracts text from a file at path with provided original filename.
type TextExtractor interface {
	ExtractPath(ctx Context, fileName, path string) (string, error)
}

type LanguageDetector interface {
	Detect(text string) Language
}

// GeoLocator resolves a client IP to a city name; empty when unknown.
type GeoLocator interface {
	City(ctx Context, ip string) (string, error)
}

// ReportData is everything the PDF report shows.
type ReportData struct {
	CV          CV
	Score       int
	Interview   *VoiceInterview
	GeneratedAt time.Time
}

type ReportRenderer interface {
	Render(data ReportData) ([]byte, error)
}

// Event types published after state changes.
const (
	EventQuizGenerated      = "quiz.generated"
	EventResultSubmitted    = "result.submitted"
	EventInterviewCompleted = "interview.completed"
)

// Event is a domain notification; Key is used for partitioning.
type Event struct {
	Type       string         `json:"type"`
	Key        string         `json:"key"`
	UserID     string         `json:"user_id"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

type EventPublisher interface {
	Publish(ctx Context, ev Event) error
}

// Context is an alias to allow decoupling from std context in domain.
type Context = context.Context
