package usecase

import (
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
	cvInfoTemperature = 0.3
	cvInfoMaxTokens   = 500
	cvInfoTimeout     = 30 * time.Second
	maxJobTitles      = 3
)

// CVService ingests résumés and manages their candidate metadata.
type CVService struct {
	CVs         domain.CVRepository
	Extractor   domain.TextExtractor
	Lang        domain.LanguageDetector
	AI          domain.AIClient
	Geo         domain.GeoLocator
	Prompts     *config.Prompts
	Tokens      Truncator
	Model       string
	TokenBudget int
}

// UploadInput describes a résumé already written to a temp file.
type UploadInput struct {
	UserID   string
	Title    string
	FileName string
	Path     string
	MIME     string
	ClientIP string
}

// InfoPatch carries user corrections; nil fields keep the extracted value.
type InfoPatch struct {
	Name  *string
	Phone *string
	City  *string
}

// Prepare extracts text, language and candidate info without persisting.
func (s CVService) Prepare(ctx domain.Context, in UploadInput) (domain.CV, error) {
	lg := observability.LoggerFromContext(ctx)
	text, err := s.Extractor.ExtractPath(ctx, in.FileName, in.Path)
	if err != nil {
		return domain.CV{}, fmt.Errorf("op=cv.Prepare: extract: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return domain.CV{}, fmt.Errorf("op=cv.Prepare: %w: no text could be extracted", domain.ErrInvalidArgument)
	}
	lang := domain.LangEN
	if s.Lang != nil {
		lang = s.Lang.Detect(text)
	}
	info := s.ExtractInfo(ctx, text).Value
	cv := domain.CV{
		UserID:     in.UserID,
		Title:      in.Title,
		Filename:   in.FileName,
		MIME:       in.MIME,
		Text:       text,
		Language:   lang,
		Name:       info.Name,
		Phone:      info.Phone,
		City:       info.City,
		JobTitles:  info.JobTitles,
		UploadedAt: time.Now().UTC(),
	}
	if cv.Title == "" {
		cv.Title = in.FileName
	}
	if s.Geo != nil && in.ClientIP != "" {
		city, err := s.Geo.City(ctx, in.ClientIP)
		if err != nil {
			lg.Debug("ip city lookup failed", slog.Any("error", err))
		}
		cv.IPCity = city
	}
	return cv, nil
}

// Save persists a prepared CV and returns it with its id.
func (s CVService) Save(ctx domain.Context, cv domain.CV) (domain.CV, error) {
	id, err := s.CVs.Create(ctx, cv)
	if err != nil {
		return cv, fmt.Errorf("op=cv.Save: %w", err)
	}
	cv.ID = id
	return cv, nil
}

// Upload prepares and saves in one step.
func (s CVService) Upload(ctx domain.Context, in UploadInput) (domain.CV, error) {
	cv, err := s.Prepare(ctx, in)
	if err != nil {
		return domain.CV{}, err
	}
	return s.Save(ctx, cv)
}

// Get returns the CV when it belongs to userID, else ErrNotFound.
func (s CVService) Get(ctx domain.Context, userID, id string) (domain.CV, error) {
	cv, err := s.CVs.Get(ctx, id)
	if err != nil {
		return domain.CV{}, err
	}
	if cv.UserID != userID {
		return domain.CV{}, fmt.Errorf("op=cv.Get: %w", domain.ErrNotFound)
	}
	return cv, nil
}

// ConfirmInfo applies user corrections and marks the info confirmed.
func (s CVService) ConfirmInfo(ctx domain.Context, userID, id string, patch InfoPatch) (domain.CV, error) {
	cv, err := s.Get(ctx, userID, id)
	if err != nil {
		return domain.CV{}, err
	}
	info := domain.CandidateInfo{Name: cv.Name, Phone: cv.Phone, City: cv.City, JobTitles: cv.JobTitles}
	if patch.Name != nil {
		info.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Phone != nil {
		info.Phone = strings.TrimSpace(*patch.Phone)
	}
	if patch.City != nil {
		info.City = strings.TrimSpace(*patch.City)
	}
	return s.CVs.ConfirmInfo(ctx, id, info)
}

// ExtractInfo asks the model for candidate metadata and falls back to regexes.
func (s CVService) ExtractInfo(ctx domain.Context, text string) domain.Outcome[domain.CandidateInfo] {
	fallback := ai.FallbackCandidateInfo(text)
	if s.AI == nil {
		return domain.Degraded(fallback, "no provider configured", nil)
	}
	prompt := text
	if s.Tokens != nil && s.TokenBudget > 0 {
		prompt = s.Tokens.Truncate(text, s.Model, s.TokenBudget)
	}
	prompts := s.Prompts
	if prompts == nil {
		prompts = config.DefaultPrompts()
	}
	raw, err := s.AI.Chat(ctx, domain.ChatRequest{
		System:      prompts.CVInfo.System,
		User:        prompts.CVInfo.Render(map[string]string{"cv_text": prompt}),
		Temperature: cvInfoTemperature,
		MaxTokens:   cvInfoMaxTokens,
		Timeout:     cvInfoTimeout,
	})
	if err != nil {
		observability.ObserveDegraded("cv_info")
		return domain.Degraded(fallback, providerReason(err), err)
	}
	span, ok := ai.NewNormalizer().ForContext(ctx).ObjectSpan(raw)
	if !ok {
		observability.ObserveDegraded("cv_info")
		return domain.Degraded(fallback, "unparseable model output", nil)
	}
	parsed := gjson.Parse(span)
	info := domain.CandidateInfo{
		Name:      strings.TrimSpace(parsed.Get("name").String()),
		Phone:     strings.TrimSpace(parsed.Get("phone").String()),
		City:      strings.TrimSpace(parsed.Get("city").String()),
		JobTitles: []string{},
	}
	for _, t := range parsed.Get("job_titles").Array() {
		if v := strings.TrimSpace(t.String()); v != "" && len(info.JobTitles) < maxJobTitles {
			info.JobTitles = append(info.JobTitles, v)
		}
	}
	if info.Name == "" {
		info.Name = fallback.Name
	}
	if info.Phone == "" {
		info.Phone = fallback.Phone
	}
	return domain.Ok(info)
}
