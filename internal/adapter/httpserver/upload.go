package httpserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/fairyhunter13/vericv/internal/adapter/textextractor/tika"
	"github.com/fairyhunter13/vericv/internal/domain"
	"github.com/fairyhunter13/vericv/pkg/textx"
)

// cvFields are the multipart field names accepted for a résumé.
var cvFields = []string{"cv", "file", "pdf", "cv_file", "resume", "document"}

var (
	errTooLarge    = errors.New("payload too large")
	errUnsupported = errors.New("unsupported media type")
)

// upload is a received file spooled to a temp path. Close removes it.
type upload struct {
	FileName string
	Path     string
	MIME     string
	Data     []byte
}

func (u *upload) Close() {
	if u != nil && u.Path != "" {
		_ = os.Remove(u.Path)
	}
}

type uploadRules struct {
	fields   []string
	maxBytes int64
	allowExt func(name string) bool
	allowMIM func(mime, name string) bool
}

// receiveUpload parses the multipart form, finds the first present field,
// checks extension and sniffed content type, and writes the file to a temp path.
func receiveUpload(w http.ResponseWriter, r *http.Request, rules uploadRules) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, rules.maxBytes)
	if err := r.ParseMultipartForm(rules.maxBytes); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) || strings.Contains(strings.ToLower(err.Error()), "too large") {
			return nil, errTooLarge
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	for _, field := range rules.fields {
		f, h, err := r.FormFile(field)
		if err != nil {
			continue
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", domain.ErrInvalidArgument, field, err)
		}
		if rules.allowExt != nil && !rules.allowExt(h.Filename) {
			return nil, fmt.Errorf("%w: extension of %q", errUnsupported, h.Filename)
		}
		mt := mimetype.Detect(data).String()
		if rules.allowMIM != nil && !rules.allowMIM(mt, h.Filename) {
			return nil, fmt.Errorf("%w: content %s", errUnsupported, mt)
		}
		tmp, err := os.CreateTemp("", "upload-*"+strings.ToLower(filepath.Ext(h.Filename)))
		if err != nil {
			return nil, err
		}
		u := &upload{FileName: filepath.Base(h.Filename), Path: tmp.Name(), MIME: mt, Data: data}
		_, werr := tmp.Write(data)
		cerr := tmp.Close()
		if werr != nil || cerr != nil {
			u.Close()
			return nil, errors.Join(werr, cerr)
		}
		return u, nil
	}
	return nil, fmt.Errorf("%w: file required in one of %s", domain.ErrInvalidArgument, strings.Join(rules.fields, ", "))
}

// writeUploadError maps upload failures onto 413, 415 or the usual envelope.
func (s *Server) writeUploadError(w http.ResponseWriter, r *http.Request, err error, maxBytes int64) {
	switch {
	case errors.Is(err, errTooLarge):
		writeStatus(w, http.StatusRequestEntityTooLarge, "INVALID_ARGUMENT", "payload too large", map[string]any{"max_mb": maxBytes >> 20})
	case errors.Is(err, errUnsupported):
		writeStatus(w, http.StatusUnsupportedMediaType, "INVALID_ARGUMENT", err.Error(), nil)
	default:
		s.fail(w, r, err, nil)
	}
}

// allowedExt enforces an allowlist for résumé uploads: .txt, .pdf, .docx
func allowedExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".pdf", ".docx":
		return true
	}
	return false
}

func allowedMIMEFor(m string, filename string) bool {
	m = strings.ToLower(m)
	// .txt files may be sniffed as any text/* type
	if strings.HasSuffix(strings.ToLower(filename), ".txt") && strings.HasPrefix(m, "text/") {
		return true
	}
	if strings.HasPrefix(m, "text/plain") {
		return true
	}
	// DOCX is a zip container and older detectors report it as such
	if strings.HasSuffix(strings.ToLower(filename), ".docx") && m == "application/zip" {
		return true
	}
	return m == "application/pdf" || m == "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
}

func allowedAudio(m string, _ string) bool {
	m = strings.ToLower(m)
	return strings.HasPrefix(m, "audio/") || strings.HasPrefix(m, "video/webm") || m == "application/ogg" || strings.HasPrefix(m, "video/mp4")
}

// plainTextExtractor answers .txt uploads locally and sends other formats to next.
type plainTextExtractor struct {
	next domain.TextExtractor
}

// NewUploadExtractor wraps the document extractor used for CV uploads.
func NewUploadExtractor(next domain.TextExtractor) domain.TextExtractor {
	return plainTextExtractor{next: next}
}

func (p plainTextExtractor) ExtractPath(ctx domain.Context, fileName, path string) (string, error) {
	if strings.EqualFold(filepath.Ext(fileName), ".txt") {
		b, err := os.ReadFile(path) //nolint:gosec // temp file created by receiveUpload
		if err != nil {
			return "", fmt.Errorf("op=upload.ExtractPath: %w", err)
		}
		return textx.TruncateRunes(textx.SanitizeText(string(b)), tika.MaxTextRunes), nil
	}
	if p.next == nil {
		return "", fmt.Errorf("%w: %s requires extractor", domain.ErrInvalidArgument, strings.TrimPrefix(filepath.Ext(fileName), "."))
	}
	return p.next.ExtractPath(ctx, fileName, path)
}
