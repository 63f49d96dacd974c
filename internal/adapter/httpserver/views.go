package httpserver

import (
	"time"

	"github.com/fairyhunter13/vericv/internal/domain"
)

type cvView struct {
	ID                 string          `json:"id"`
	Title              string          `json:"title"`
	Filename           string          `json:"filename"`
	DetectedLanguage   domain.Language `json:"detected_language"`
	ExtractedName      string          `json:"extracted_name"`
	ExtractedPhone     string          `json:"extracted_phone"`
	ExtractedCity      string          `json:"extracted_city"`
	ExtractedJobTitles []string        `json:"extracted_job_titles"`
	InfoConfirmed      bool            `json:"info_confirmed"`
	IPDetectedCity     string          `json:"ip_detected_city"`
	UploadedAt         time.Time       `json:"uploaded_at"`
}

func newCVView(cv domain.CV) cvView {
	titles := cv.JobTitles
	if titles == nil {
		titles = []string{}
	}
	return cvView{
		ID:                 cv.ID,
		Title:              cv.Title,
		Filename:           cv.Filename,
		DetectedLanguage:   cv.Language,
		ExtractedName:      cv.Name,
		ExtractedPhone:     cv.Phone,
		ExtractedCity:      cv.City,
		ExtractedJobTitles: titles,
		InfoConfirmed:      cv.InfoConfirmed,
		IPDetectedCity:     cv.IPCity,
		UploadedAt:         cv.UploadedAt,
	}
}

type feedbackView struct {
	Content   string    `json:"content"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}

type resultView struct {
	ID          string                   `json:"id"`
	QuizID      *string                  `json:"quiz_id"`
	CVID        *string                  `json:"cv_id,omitempty"`
	Score       int                      `json:"score"`
	Correct     int                      `json:"correct"`
	Total       int                      `json:"total"`
	Answers     []domain.AnnotatedAnswer `json:"answers"`
	CompletedAt time.Time                `json:"completed_at"`
	Feedback    *feedbackView            `json:"feedback,omitempty"`
}

func newResultView(r domain.Result, fb *domain.Feedback) resultView {
	answers := r.Answers
	if answers == nil {
		answers = []domain.AnnotatedAnswer{}
	}
	v := resultView{
		ID:          r.ID,
		QuizID:      r.QuizID,
		CVID:        r.CVID,
		Score:       r.Score,
		Correct:     r.Correct,
		Total:       r.Total,
		Answers:     answers,
		CompletedAt: r.CompletedAt,
	}
	if fb != nil {
		v.Feedback = &feedbackView{Content: fb.Content, Rating: fb.Rating, CreatedAt: fb.CreatedAt}
	}
	return v
}
