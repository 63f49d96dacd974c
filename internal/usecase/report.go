package usecase

import (
	"fmt"
	"time"

	"github.com/fairyhunter13/vericv/internal/domain"
)

// ReportService assembles and renders the assessment PDF.
type ReportService struct {
	CVs        domain.CVRepository
	Results    domain.ResultRepository
	Interviews domain.InterviewRepository
	Renderer   domain.ReportRenderer
}

// Build renders the report for the user's CV, result and optional interview.
func (s ReportService) Build(ctx domain.Context, userID, cvID, resultID, interviewID string) ([]byte, error) {
	cv, err := s.CVs.Get(ctx, cvID)
	if err != nil {
		return nil, err
	}
	if cv.UserID != userID {
		return nil, fmt.Errorf("op=report.Build: %w: cv", domain.ErrNotFound)
	}
	res, err := s.Results.Get(ctx, resultID)
	if err != nil {
		return nil, err
	}
	if res.UserID != userID {
		return nil, fmt.Errorf("op=report.Build: %w: result", domain.ErrNotFound)
	}
	data := domain.ReportData{CV: cv, Score: res.Score, GeneratedAt: time.Now().UTC()}
	if interviewID != "" {
		iv, err := s.Interviews.Get(ctx, interviewID)
		if err != nil {
			return nil, err
		}
		if iv.UserID != userID {
			return nil, fmt.Errorf("op=report.Build: %w: interview", domain.ErrNotFound)
		}
		data.Interview = &iv
	}
	pdf, err := s.Renderer.Render(data)
	if err != nil {
		return nil, fmt.Errorf("op=report.Build: render: %w", err)
	}
	return pdf, nil
}
