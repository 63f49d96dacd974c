package httpserver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tidwall/gjson"

	"github.com/fairyhunter13/vericv/internal/adapter/geoip"
	"github.com/fairyhunter13/vericv/internal/adapter/report"
	"github.com/fairyhunter13/vericv/internal/config"
	"github.com/fairyhunter13/vericv/internal/domain"
	"github.com/fairyhunter13/vericv/internal/service/ratelimiter"
	"github.com/fairyhunter13/vericv/internal/usecase"
)

// Services groups the usecases the handlers call.
type Services struct {
	CVs         usecase.CVService
	Quizzes     usecase.QuizService
	Submissions usecase.SubmitService
	Results     usecase.ResultService
	Interviews  usecase.InterviewService
	Reports     usecase.ReportService
}

// Server aggregates handlers dependencies.
type Server struct {
	Cfg config.Config
	Services
	// Limiter throttles generation per user; nil disables it.
	Limiter    ratelimiter.Limiter
	DBCheck    func(ctx context.Context) error
	RedisCheck func(ctx context.Context) error
	TikaCheck  func(ctx context.Context) error
	// StoreCheck probes the remote table API when it backs quizzes.
	StoreCheck func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers wired.
func NewServer(cfg config.Config, svc Services, limiter ratelimiter.Limiter) *Server {
	return &Server{Cfg: cfg, Services: svc, Limiter: limiter}
}

func (s *Server) cvRules() uploadRules {
	return uploadRules{fields: cvFields, maxBytes: s.Cfg.MaxUploadMB << 20, allowExt: allowedExt, allowMIM: allowedMIMEFor}
}

func (s *Server) audioRules() uploadRules {
	return uploadRules{fields: []string{"audio"}, maxBytes: s.Cfg.MaxAudioMB << 20, allowMIM: allowedAudio}
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data")
}

func currentUser(r *http.Request) string {
	uid, _ := UserFrom(r.Context())
	return uid
}

// allow consumes one token from the user's bucket. Limiter errors fail open.
func (s *Server) allow(w http.ResponseWriter, r *http.Request, bucket string) bool {
	if s.Limiter == nil {
		return true
	}
	ok, retry, err := s.Limiter.Allow(r.Context(), bucket, currentUser(r))
	if err != nil {
		LoggerFrom(r).Warn("rate limiter unavailable", slog.String("bucket", bucket), slog.Any("error", err))
		return true
	}
	if !ok {
		secs := int(retry.Round(time.Second).Seconds())
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeStatus(w, http.StatusTooManyRequests, "RATE_LIMITED", bucket+" limit reached", map[string]any{"retry_after_seconds": secs})
		return false
	}
	return true
}

// uploadedCV is a received résumé; SaveErr is set when only persistence failed.
type uploadedCV struct {
	CV      domain.CV
	SaveErr error
}

// uploadCV receives and saves a résumé. It writes the error response itself
// and returns false when nothing usable was produced.
func (s *Server) uploadCV(w http.ResponseWriter, r *http.Request) (uploadedCV, bool) {
	up, err := receiveUpload(w, r, s.cvRules())
	if err != nil {
		s.writeUploadError(w, r, err, s.cvRules().maxBytes)
		return uploadedCV{}, false
	}
	defer up.Close()
	cv, err := s.CVs.Prepare(r.Context(), usecase.UploadInput{
		UserID:   currentUser(r),
		Title:    SanitizeString(r.FormValue("title")),
		FileName: up.FileName,
		Path:     up.Path,
		MIME:     up.MIME,
		ClientIP: geoip.ClientIP(r),
	})
	if err != nil {
		s.fail(w, r, err, nil)
		return uploadedCV{}, false
	}
	saved, err := s.CVs.Save(r.Context(), cv)
	if err != nil {
		LoggerFrom(r).Error("cv persistence failed", slog.Any("error", err))
		return uploadedCV{CV: cv, SaveErr: err}, true
	}
	return uploadedCV{CV: saved}, true
}

// GenerateHandler builds a quiz from a stored CV or an uploaded file.
func (s *Server) GenerateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.allow(w, r, ratelimiter.BucketGenerate) {
			return
		}
		var (
			cv      domain.CV
			saveErr error
		)
		if isMultipart(r) {
			up, ok := s.uploadCV(w, r)
			if !ok {
				return
			}
			cv, saveErr = up.CV, up.SaveErr
		} else {
			var req struct {
				CVID string `json:"cv_id" validate:"required,max=64"`
			}
			if details, err := decodeJSON(w, r, &req); err != nil {
				s.fail(w, r, err, details)
				return
			}
			var err error
			if cv, err = s.CVs.Get(r.Context(), currentUser(r), req.CVID); err != nil {
				s.fail(w, r, err, nil)
				return
			}
		}

		res := s.Quizzes.GenerateForCV(r.Context(), currentUser(r), cv)
		body := map[string]any{"questions": res.Questions, "language": res.Language}
		if res.QuizID != "" {
			body["quiz_id"] = res.QuizID
		}
		if cv.ID != "" {
			body["cv_id"] = cv.ID
		}
		if saveErr != nil || res.SaveErr != nil {
			body["error"] = savedWithErrors
		}
		writeJSON(w, http.StatusOK, body)
	}
}

type submitRequest struct {
	QuizID  string                   `json:"quiz_id" validate:"required,max=64"`
	CVID    string                   `json:"cv_id" validate:"omitempty,max=64"`
	Answers []domain.SubmittedAnswer `json:"answers"`
}

// parseSubmit accepts answers as a list of {question, answer, question_id?}
// or as a {question: answer} mapping kept in document order.
func parseSubmit(body []byte) (submitRequest, error) {
	if !gjson.ValidBytes(body) {
		return submitRequest{}, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument)
	}
	doc := gjson.ParseBytes(body)
	req := submitRequest{
		QuizID:  doc.Get("quiz_id").String(),
		CVID:    doc.Get("cv_id").String(),
		Answers: []domain.SubmittedAnswer{},
	}
	answers := doc.Get("answers")
	switch {
	case answers.IsObject():
		answers.ForEach(func(k, v gjson.Result) bool {
			req.Answers = append(req.Answers, domain.SubmittedAnswer{Question: k.String(), Answer: v.Value()})
			return true
		})
	case answers.IsArray():
		for _, item := range answers.Array() {
			ans := item.Get("answer")
			if !item.IsObject() || !ans.Exists() {
				continue
			}
			req.Answers = append(req.Answers, domain.SubmittedAnswer{
				QuestionID: item.Get("question_id").String(),
				Question:   item.Get("question").String(),
				Answer:     ans.Value(),
			})
		}
	}
	return req, nil
}

// SubmitHandler grades answers and returns score, feedback and rating.
func (s *Server) SubmitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			s.fail(w, r, fmt.Errorf("%w: read body: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		req, err := parseSubmit(raw)
		if err != nil {
			s.fail(w, r, err, nil)
			return
		}
		if details, err := validateStruct(req); err != nil {
			s.fail(w, r, err, details)
			return
		}
		out, err := s.Submissions.Submit(r.Context(), usecase.SubmitInput{
			UserID:  currentUser(r),
			QuizID:  req.QuizID,
			CVID:    req.CVID,
			Answers: req.Answers,
		})
		if err != nil {
			s.fail(w, r, err, nil)
			return
		}
		body := map[string]any{
			"score":    out.Score,
			"quiz_id":  out.QuizID,
			"feedback": out.Feedback,
			"rating":   out.Rating,
			"correct":  out.Correct,
			"total":    out.Total,
			"answers":  out.Answers,
		}
		if out.ResultID != "" {
			body["result_id"] = out.ResultID
		}
		if out.SaveErr != nil {
			body["error"] = savedWithErrors
		}
		writeJSON(w, http.StatusOK, body)
	}
}

// InterviewStartHandler creates an interview with generated questions.
func (s *Server) InterviewStartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			CVID     string `json:"cv_id" validate:"required,max=64"`
			ResultID string `json:"result_id" validate:"omitempty,max=64"`
		}
		if details, err := decodeJSON(w, r, &req); err != nil {
			s.fail(w, r, err, details)
			return
		}
		if !s.allow(w, r, ratelimiter.BucketInterview) {
			return
		}
		var resultID *string
		if req.ResultID != "" {
			resultID = &req.ResultID
		}
		out, err := s.Interviews.Start(r.Context(), currentUser(r), req.CVID, resultID)
		if err != nil {
			s.fail(w, r, err, nil)
			return
		}
		body := map[string]any{
			"questions": out.Questions,
			"language":  out.Language,
			"duration":  out.Duration,
		}
		if out.InterviewID != "" {
			body["interview_id"] = out.InterviewID
		}
		if out.SaveErr != nil {
			body["error"] = savedWithErrors
		}
		writeJSON(w, http.StatusOK, body)
	}
}

// InterviewSubmitHandler transcribes and evaluates a recorded answer.
func (s *Server) InterviewSubmitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !isMultipart(r) {
			s.fail(w, r, fmt.Errorf("%w: content-type must be multipart/form-data", domain.ErrInvalidArgument), nil)
			return
		}
		up, err := receiveUpload(w, r, s.audioRules())
		if err != nil {
			s.writeUploadError(w, r, err, s.audioRules().maxBytes)
			return
		}
		defer up.Close()
		interviewID := strings.TrimSpace(r.FormValue("interview_id"))
		if interviewID == "" {
			s.fail(w, r, fmt.Errorf("%w: interview_id required", domain.ErrInvalidArgument), map[string]string{"interview_id": "required"})
			return
		}
		out, err := s.Interviews.SubmitAudio(r.Context(), usecase.AudioInput{
			UserID:      currentUser(r),
			InterviewID: interviewID,
			FileName:    up.FileName,
			Path:        up.Path,
			MIME:        up.MIME,
			Audio:       up.Data,
		})
		if err != nil {
			s.fail(w, r, err, nil)
			return
		}
		body := map[string]any{
			"transcription": out.Transcription,
			"evaluation":    out.Evaluation,
			"status":        out.Status,
		}
		if out.SaveErr != nil {
			body["error"] = savedWithErrors
		}
		writeJSON(w, http.StatusOK, body)
	}
}

// ReportHandler renders the assessment PDF as an attachment.
func (s *Server) ReportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			CVID        string `json:"cv_id" validate:"required,max=64"`
			ResultID    string `json:"result_id" validate:"required,max=64"`
			InterviewID string `json:"interview_id" validate:"omitempty,max=64"`
		}
		if details, err := decodeJSON(w, r, &req); err != nil {
			s.fail(w, r, err, details)
			return
		}
		pdf, err := s.Reports.Build(r.Context(), currentUser(r), req.CVID, req.ResultID, req.InterviewID)
		if err != nil {
			s.fail(w, r, err, nil)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName(req.CVID)))
		w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(pdf)
	}
}

// CVUploadHandler stores an uploaded résumé with its extracted metadata.
func (s *Server) CVUploadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !isMultipart(r) {
			s.fail(w, r, fmt.Errorf("%w: content-type must be multipart/form-data", domain.ErrInvalidArgument), nil)
			return
		}
		up, ok := s.uploadCV(w, r)
		if !ok {
			return
		}
		if up.SaveErr != nil {
			s.fail(w, r, up.SaveErr, nil)
			return
		}
		writeJSON(w, http.StatusCreated, newCVView(up.CV))
	}
}

// CVGetHandler returns one of the caller's CVs.
func (s *Server) CVGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cv, err := s.CVs.Get(r.Context(), currentUser(r), chi.URLParam(r, "id"))
		if err != nil {
			s.fail(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, newCVView(cv))
	}
}

// CVConfirmHandler applies the user's corrections to the extracted info.
func (s *Server) CVConfirmHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name  *string `json:"name" validate:"omitempty,max=255"`
			Phone *string `json:"phone" validate:"omitempty,max=50"`
			City  *string `json:"city" validate:"omitempty,max=100"`
		}
		if details, err := decodeJSON(w, r, &req); err != nil {
			s.fail(w, r, err, details)
			return
		}
		cv, err := s.CVs.ConfirmInfo(r.Context(), currentUser(r), chi.URLParam(r, "id"), usecase.InfoPatch{
			Name:  req.Name,
			Phone: req.Phone,
			City:  req.City,
		})
		if err != nil {
			s.fail(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, newCVView(cv))
	}
}

// ResultsListHandler lists the caller's results, newest first.
func (s *Server) ResultsListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || validate().Var(n, "min=1,max=100") != nil {
				s.fail(w, r, fmt.Errorf("%w: limit must be between 1 and 100", domain.ErrInvalidArgument), map[string]string{"limit": "range"})
				return
			}
			limit = n
		}
		results, err := s.Results.List(r.Context(), currentUser(r), limit)
		if err != nil {
			s.fail(w, r, err, nil)
			return
		}
		out := make([]resultView, 0, len(results))
		for _, res := range results {
			out = append(out, newResultView(res, nil))
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": out})
	}
}

// ResultGetHandler returns one result with its feedback.
func (s *Server) ResultGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, fb, err := s.Results.Get(r.Context(), currentUser(r), chi.URLParam(r, "id"))
		if err != nil {
			s.fail(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, newResultView(res, fb))
	}
}

// HealthHandler reports process health and database connectivity.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		db := "connected"
		if s.DBCheck != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := s.DBCheck(ctx); err != nil {
				LoggerFrom(r).Warn("database health check failed", slog.Any("error", err))
				db = "disconnected"
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": db})
	}
}

// ReadyzHandler probes every configured dependency; any failure answers 503.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		probes := []struct {
			name string
			fn   func(context.Context) error
		}{{"db", s.DBCheck}, {"redis", s.RedisCheck}, {"tika", s.TikaCheck}, {"supabase", s.StoreCheck}}
		checks := make([]check, 0, len(probes))
		st := http.StatusOK
		for _, p := range probes {
			if p.fn == nil {
				continue
			}
			c := check{Name: p.name, OK: true}
			if err := p.fn(ctx); err != nil {
				c.OK, c.Details = false, err.Error()
				st = http.StatusServiceUnavailable
			}
			checks = append(checks, c)
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
