package postgres

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/vericv/internal/domain"
)

// CVRepo persists uploaded CVs and their extracted candidate metadata.
type CVRepo struct{ Pool PgxPool }

// NewCVRepo constructs a CVRepo with the given pool.
func NewCVRepo(p PgxPool) *CVRepo { return &CVRepo{Pool: p} }

const cvColumns = `id, user_id, title, filename, mime, text, detected_language, extracted_name, extracted_phone,
	extracted_city, extracted_job_titles, info_confirmed, ip_detected_city, uploaded_at`

// Create inserts a new CV owned by cv.UserID and returns its id.
func (r *CVRepo) Create(ctx domain.Context, cv domain.CV) (string, error) {
	ctx, span := startSpan(ctx, "cvs", "Create", "INSERT")
	defer span.End()
	if cv.ID == "" {
		cv.ID = uuid.New().String()
	}
	if cv.UploadedAt.IsZero() {
		cv.UploadedAt = time.Now().UTC()
	}
	if cv.Language == "" {
		cv.Language = domain.LangEN
	}
	titles, err := marshalJSON(nonNilStrings(cv.JobTitles))
	if err != nil {
		return "", fmt.Errorf("op=cv.create: %w", err)
	}
	if err := ensureUser(ctx, r.Pool, cv.UserID); err != nil {
		return "", fmt.Errorf("op=cv.create: %w", err)
	}
	q := `INSERT INTO cvs (` + cvColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`
	_, err = r.Pool.Exec(ctx, q, cv.ID, cv.UserID, cv.Title, cv.Filename, cv.MIME, cv.Text, string(cv.Language),
		cv.Name, cv.Phone, cv.City, titles, cv.InfoConfirmed, cv.IPCity, cv.UploadedAt)
	if err != nil {
		return "", fmt.Errorf("op=cv.create: %w", classify(err))
	}
	return cv.ID, nil
}

// Get loads a CV by id.
func (r *CVRepo) Get(ctx domain.Context, id string) (domain.CV, error) {
	ctx, span := startSpan(ctx, "cvs", "Get", "SELECT")
	defer span.End()
	if !validID(id) {
		return domain.CV{}, fmt.Errorf("op=cv.get: %w", domain.ErrNotFound)
	}
	row := r.Pool.QueryRow(ctx, `SELECT `+cvColumns+` FROM cvs WHERE id=$1`, id)
	cv, err := scanCV(row)
	if err != nil {
		return domain.CV{}, fmt.Errorf("op=cv.get: %w", classify(err))
	}
	return cv, nil
}

// ConfirmInfo stores user-corrected candidate info and marks it confirmed.
func (r *CVRepo) ConfirmInfo(ctx domain.Context, id string, info domain.CandidateInfo) (domain.CV, error) {
	ctx, span := startSpan(ctx, "cvs", "ConfirmInfo", "UPDATE")
	defer span.End()
	if !validID(id) {
		return domain.CV{}, fmt.Errorf("op=cv.confirm: %w", domain.ErrNotFound)
	}
	titles, err := marshalJSON(nonNilStrings(info.JobTitles))
	if err != nil {
		return domain.CV{}, fmt.Errorf("op=cv.confirm: %w", err)
	}
	q := `UPDATE cvs SET extracted_name=$2, extracted_phone=$3, extracted_city=$4, extracted_job_titles=$5, info_confirmed=TRUE
	WHERE id=$1 RETURNING ` + cvColumns
	row := r.Pool.QueryRow(ctx, q, id, info.Name, info.Phone, info.City, titles)
	cv, err := scanCV(row)
	if err != nil {
		return domain.CV{}, fmt.Errorf("op=cv.confirm: %w", classify(err))
	}
	return cv, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCV(row scanner) (domain.CV, error) {
	var (
		cv     domain.CV
		lang   string
		titles []byte
	)
	if err := row.Scan(&cv.ID, &cv.UserID, &cv.Title, &cv.Filename, &cv.MIME, &cv.Text, &lang, &cv.Name, &cv.Phone,
		&cv.City, &titles, &cv.InfoConfirmed, &cv.IPCity, &cv.UploadedAt); err != nil {
		return domain.CV{}, err
	}
	cv.Language = domain.ParseLanguage(lang)
	cv.JobTitles = unmarshalStrings(titles)
	return cv, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
