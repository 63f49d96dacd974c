package postgres

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/vericv/internal/domain"
)

// InterviewRepo persists voice interviews.
type InterviewRepo struct{ Pool PgxPool }

// NewInterviewRepo constructs an InterviewRepo with the given pool.
func NewInterviewRepo(p PgxPool) *InterviewRepo { return &InterviewRepo{Pool: p} }

const interviewColumns = `id, user_id, cv_id, result_id, language, questions, duration_seconds, audio_mime, transcription,
	soft_skills_score, communication_score, confidence_score, feedback, suggestions, status, started_at, completed_at`

// Create stores a freshly started interview with its questions.
func (r *InterviewRepo) Create(ctx domain.Context, iv domain.VoiceInterview) (string, error) {
	ctx, span := startSpan(ctx, "voice_interviews", "Create", "INSERT")
	defer span.End()
	if iv.ID == "" {
		iv.ID = uuid.New().String()
	}
	if iv.StartedAt.IsZero() {
		iv.StartedAt = time.Now().UTC()
	}
	if iv.Status == "" {
		iv.Status = domain.InterviewStarted
	}
	if iv.DurationSeconds <= 0 {
		iv.DurationSeconds = domain.DefaultInterviewDuration
	}
	questions, err := marshalJSON(nonNilStrings(iv.Questions))
	if err != nil {
		return "", fmt.Errorf("op=interview.create: %w", err)
	}
	if err := ensureUser(ctx, r.Pool, iv.UserID); err != nil {
		return "", fmt.Errorf("op=interview.create: %w", err)
	}
	q := `INSERT INTO voice_interviews (id, user_id, cv_id, result_id, language, questions, duration_seconds, status, started_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	if _, err := r.Pool.Exec(ctx, q, iv.ID, iv.UserID, iv.CVID, iv.ResultID, string(iv.Language), questions,
		iv.DurationSeconds, string(iv.Status), iv.StartedAt); err != nil {
		return "", fmt.Errorf("op=interview.create: %w", classify(err))
	}
	return iv.ID, nil
}

// Get loads an interview by id. The stored audio is not loaded.
func (r *InterviewRepo) Get(ctx domain.Context, id string) (domain.VoiceInterview, error) {
	ctx, span := startSpan(ctx, "voice_interviews", "Get", "SELECT")
	defer span.End()
	if !validID(id) {
		return domain.VoiceInterview{}, fmt.Errorf("op=interview.get: %w", domain.ErrNotFound)
	}
	var (
		iv        domain.VoiceInterview
		lang      string
		status    string
		questions []byte
	)
	row := r.Pool.QueryRow(ctx, `SELECT `+interviewColumns+` FROM voice_interviews WHERE id=$1`, id)
	if err := row.Scan(&iv.ID, &iv.UserID, &iv.CVID, &iv.ResultID, &lang, &questions, &iv.DurationSeconds, &iv.AudioMIME,
		&iv.Transcription, &iv.SoftSkillsScore, &iv.CommunicationScore, &iv.ConfidenceScore, &iv.Feedback, &iv.Suggestions,
		&status, &iv.StartedAt, &iv.CompletedAt); err != nil {
		return domain.VoiceInterview{}, fmt.Errorf("op=interview.get: %w", classify(err))
	}
	iv.Language = domain.ParseLanguage(lang)
	iv.Status = domain.InterviewStatus(status)
	iv.Questions = unmarshalStrings(questions)
	return iv, nil
}

// Complete records the recording, transcription and evaluation of an interview.
// Only a started interview is updated; a finished one yields domain.ErrConflict.
func (r *InterviewRepo) Complete(ctx domain.Context, iv domain.VoiceInterview) error {
	ctx, span := startSpan(ctx, "voice_interviews", "Complete", "UPDATE")
	defer span.End()
	if !validID(iv.ID) {
		return fmt.Errorf("op=interview.complete: %w", domain.ErrNotFound)
	}
	completed := time.Now().UTC()
	if iv.CompletedAt != nil {
		completed = *iv.CompletedAt
	}
	status := iv.Status
	if status == "" {
		status = domain.InterviewCompleted
	}
	q := `UPDATE voice_interviews SET audio=$2, audio_mime=$3, transcription=$4, soft_skills_score=$5, communication_score=$6,
	confidence_score=$7, feedback=$8, suggestions=$9, status=$10, completed_at=$11 WHERE id=$1 AND status=$12`
	tag, err := r.Pool.Exec(ctx, q, iv.ID, iv.Audio, iv.AudioMIME, iv.Transcription, iv.SoftSkillsScore, iv.CommunicationScore,
		iv.ConfidenceScore, iv.Feedback, iv.Suggestions, string(status), completed, string(domain.InterviewStarted))
	if err != nil {
		return fmt.Errorf("op=interview.complete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var current string
		if err := r.Pool.QueryRow(ctx, `SELECT status FROM voice_interviews WHERE id=$1`, iv.ID).Scan(&current); err != nil {
			return fmt.Errorf("op=interview.complete: %w", classify(err))
		}
		return fmt.Errorf("op=interview.complete: %w: interview already %s", domain.ErrConflict, current)
	}
	return nil
}
