package usecase

import (
	"errors"
	"fmt"

	"github.com/fairyhunter13/vericv/internal/domain"
)

// ResultService provides read access to a user's results.
type ResultService struct {
	Results  domain.ResultRepository
	Feedback domain.FeedbackRepository
}

func NewResultService(r domain.ResultRepository, f domain.FeedbackRepository) ResultService {
	return ResultService{Results: r, Feedback: f}
}

// List returns the user's results, newest first.
func (s ResultService) List(ctx domain.Context, userID string, limit int) ([]domain.Result, error) {
	return s.Results.ListByUser(ctx, userID, limit)
}

// Get returns a result owned by userID and its feedback, if any.
func (s ResultService) Get(ctx domain.Context, userID, id string) (domain.Result, *domain.Feedback, error) {
	res, err := s.Results.Get(ctx, id)
	if err != nil {
		return domain.Result{}, nil, err
	}
	if res.UserID != userID {
		return domain.Result{}, nil, fmt.Errorf("op=result.Get: %w", domain.ErrNotFound)
	}
	if s.Feedback == nil {
		return res, nil, nil
	}
	fb, err := s.Feedback.GetByResult(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return res, nil, nil
		}
		return domain.Result{}, nil, err
	}
	return res, &fb, nil
}
