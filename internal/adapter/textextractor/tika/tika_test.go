package tika_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/vericv/internal/adapter/textextractor/tika"
	"github.com/fairyhunter13/vericv/internal/domain"
)

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestClient_ExtractPath_Text(t *testing.T) {
	t.Setenv("TIKA_ALLOW_ABSPATHS", "1")
	path := writeTemp(t, "cv.pdf", "%PDF-fake")

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/tika", r.URL.Path)
		assert.Equal(t, "text/plain", r.Header.Get("Accept"))
		assert.Equal(t, "application/pdf", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("X-Tika-PDFOcrStrategy"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "%PDF-fake", string(body))
		_, _ = w.Write([]byte("  Jane   Doe\n\n Go Engineer \x00"))
	}))
	defer ts.Close()

	got, err := tika.New(ts.URL).ExtractPath(context.Background(), "cv.pdf", path)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nGo Engineer", got)
}

func TestClient_ExtractPath_OCRFallbackOnce(t *testing.T) {
	t.Setenv("TIKA_ALLOW_ABSPATHS", "1")
	path := writeTemp(t, "scan.pdf", "%PDF-scan")

	var plain, ocr int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Tika-PDFOcrStrategy") == "ocr_only" {
			atomic.AddInt32(&ocr, 1)
			_, _ = w.Write([]byte("Scanned Candidate"))
			return
		}
		atomic.AddInt32(&plain, 1)
		_, _ = w.Write([]byte("   \n  "))
	}))
	defer ts.Close()

	got, err := tika.New(ts.URL).ExtractPath(context.Background(), "scan.pdf", path)
	require.NoError(t, err)
	assert.Equal(t, "Scanned Candidate", got)
	assert.Equal(t, int32(1), atomic.LoadInt32(&plain))
	assert.Equal(t, int32(1), atomic.LoadInt32(&ocr))
}

func TestClient_ExtractPath_Truncates(t *testing.T) {
	t.Setenv("TIKA_ALLOW_ABSPATHS", "1")
	path := writeTemp(t, "long.txt", "x")
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("ب", tika.MaxTextRunes+500)))
	}))
	defer ts.Close()

	got, err := tika.New(ts.URL).ExtractPath(context.Background(), "long.txt", path)
	require.NoError(t, err)
	assert.Equal(t, tika.MaxTextRunes, utf8.RuneCountInString(got))
}

func TestClient_ExtractPath_Errors(t *testing.T) {
	t.Setenv("TIKA_ALLOW_ABSPATHS", "1")
	path := writeTemp(t, "cv.docx", "doc")
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte("encrypted document"))
	}))
	defer ts.Close()

	_, err := tika.New(ts.URL).ExtractPath(context.Background(), "cv.docx", path)
	var ue *domain.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusUnprocessableEntity, ue.Status)
	assert.Equal(t, "encrypted document", ue.Body)

	_, err = tika.New(ts.URL).ExtractPath(context.Background(), "cv.docx", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestClient_ExtractPath_DisallowedPath(t *testing.T) {
	t.Setenv("TIKA_ALLOW_ABSPATHS", "0")
	_, err := tika.New("http://127.0.0.1:1").ExtractPath(context.Background(), "passwd", "/etc/passwd")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "disallowed path")
}
