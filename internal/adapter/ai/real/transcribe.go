package real

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/fairyhunter13/vericv/internal/adapter/observability"
	"github.com/fairyhunter13/vericv/internal/domain"
)

// transcribeTimeout bounds one speech-to-text call including retries.
const transcribeTimeout = 90 * time.Second

// Transcribe uploads the audio file at path and returns the plain-text transcription.
func (c *Client) Transcribe(ctx domain.Context, fileName, path string) (string, error) {
	if c.cfg.OpenAIAPIKey == "" {
		return "", fmt.Errorf("op=ai.Transcribe: %w: OPENAI_API_KEY missing", domain.ErrInvalidArgument)
	}
	audio, err := os.ReadFile(path) //nolint:gosec // path is a temp file created by the server
	if err != nil {
		return "", fmt.Errorf("op=ai.Transcribe: read audio: %w", err)
	}
	payload, contentType, err := transcriptionForm(fileName, audio, c.cfg.TranscribeModel)
	if err != nil {
		return "", fmt.Errorf("op=ai.Transcribe: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, transcribeTimeout)
	defer cancel()

	endpoint := c.cfg.OpenAIBaseURL + "/audio/transcriptions"
	var text string
	op := func() error {
		start := time.Now()
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		r.Header.Set("Authorization", "Bearer "+c.cfg.OpenAIAPIKey)
		r.Header.Set("Content-Type", contentType)
		resp, err := c.transcribeHC.Do(r)
		observability.ObserveAIRequest(providerOpenAI, "transcribe", start)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if err := classifyStatus(ctx, providerOpenAI, resp, body); err != nil {
			return err
		}
		text = strings.TrimSpace(string(body))
		return nil
	}
	if err := backoff.Retry(op, c.getBackoffConfig(ctx)); err != nil {
		return "", fmt.Errorf("op=ai.Transcribe: %w", mapTransportError(ctx, err))
	}
	observability.LoggerFromContext(ctx).Debug("transcription ok", slog.String("provider", providerOpenAI), slog.Int("text_len", len(text)))
	return text, nil
}

func transcriptionForm(fileName string, audio []byte, model string) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filepath.Base(fileName))
	if err != nil {
		return nil, "", err
	}
	if _, err := fw.Write(audio); err != nil {
		return nil, "", err
	}
	if err := mw.WriteField("model", model); err != nil {
		return nil, "", err
	}
	if err := mw.WriteField("response_format", "text"); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}
