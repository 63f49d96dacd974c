// Package tika extracts résumé text through an Apache Tika server.
//
// A document that comes back without text is sent once more with Tika's
// OCR-only strategy, which handles scanned CVs.
package tika

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/fairyhunter13/vericv/internal/adapter/observability"
	"github.com/fairyhunter13/vericv/internal/domain"
	"github.com/fairyhunter13/vericv/pkg/textx"
)

// MaxTextRunes caps the text kept per document.
const MaxTextRunes = 4000

const (
	ocrHeader   = "X-Tika-PDFOcrStrategy"
	ocrStrategy = "ocr_only"
	// OCR of a multi-page scan is slow.
	extractTimeout = 60 * time.Second
)

// Client implements domain.TextExtractor with PUT /tika.
type Client struct {
	rc *resty.Client
}

var _ domain.TextExtractor = (*Client)(nil)

func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:9998"
	}
	rc := resty.NewWithClient(observability.NewHTTPClient("tika", extractTimeout)).
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "text/plain")
	return &Client{rc: rc}
}

// ExtractPath returns the cleaned text of the upload stored at path.
func (c *Client) ExtractPath(ctx context.Context, fileName, path string) (string, error) {
	safe, err := allowedPath(path)
	if err != nil {
		return "", fmt.Errorf("op=tika.ExtractPath: %w", err)
	}
	data, err := os.ReadFile(safe) //nolint:gosec // constrained by allowedPath
	if err != nil {
		return "", fmt.Errorf("op=tika.ExtractPath: %w", err)
	}
	ct := contentTypeFor(fileName)

	text, err := c.extract(ctx, data, ct, false)
	if err != nil {
		return "", fmt.Errorf("op=tika.ExtractPath: %w", err)
	}
	if text == "" {
		observability.LoggerFromContext(ctx).Info("no text layer, running OCR", slog.String("file", fileName))
		if text, err = c.extract(ctx, data, ct, true); err != nil {
			return "", fmt.Errorf("op=tika.ExtractPath: ocr: %w", err)
		}
	}
	return textx.TruncateRunes(text, MaxTextRunes), nil
}

func (c *Client) extract(ctx context.Context, data []byte, contentType string, ocr bool) (string, error) {
	mode := "text"
	req := c.rc.R().SetContext(ctx).SetBody(data)
	if contentType != "" {
		req.SetHeader("Content-Type", contentType)
	}
	if ocr {
		mode = "ocr"
		req.SetHeader(ocrHeader, ocrStrategy)
	}
	resp, err := req.Put("/tika")
	if err != nil {
		observability.ObserveExtraction(mode, "error")
		return "", err
	}
	if resp.IsError() {
		observability.ObserveExtraction(mode, "error")
		return "", &domain.UpstreamError{Provider: "tika", Status: resp.StatusCode(), Body: strings.TrimSpace(resp.String())}
	}
	observability.ObserveExtraction(mode, "ok")
	return textx.NormalizeLines(textx.SanitizeText(resp.String())), nil
}

// allowedPath keeps reads inside the temp and working directories unless
// TIKA_ALLOW_ABSPATHS=1.
func allowedPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if os.Getenv("TIKA_ALLOW_ABSPATHS") == "1" {
		return abs, nil
	}
	wd, _ := os.Getwd()
	for _, root := range []string{os.TempDir(), wd} {
		rel, err := filepath.Rel(filepath.Clean(root), abs)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
			return abs, nil
		}
	}
	return "", fmt.Errorf("%w: disallowed path %s", domain.ErrInvalidArgument, abs)
}

func contentTypeFor(fileName string) string {
	switch ext := strings.ToLower(filepath.Ext(fileName)); ext {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".doc":
		return "application/msword"
	case ".txt":
		return "text/plain"
	case "":
		return ""
	default:
		return mime.TypeByExtension(ext)
	}
}

// Ping asks the server for its version; readiness uses it.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.rc.R().SetContext(ctx).Get("/version")
	if err != nil {
		return fmt.Errorf("op=tika.Ping: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("op=tika.Ping: %w", &domain.UpstreamError{Provider: "tika", Status: resp.StatusCode(), Body: resp.String()})
	}
	return nil
}
