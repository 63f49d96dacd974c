// Package langdetect identifies whether a CV is written in Arabic or English.
package langdetect

import (
	"log/slog"
	"strings"

	"github.com/abadojack/whatlanggo"

	"github.com/fairyhunter13/vericv/internal/domain"
	"github.com/fairyhunter13/vericv/pkg/textx"
)

// sampleRunes is how much of the document is inspected.
const sampleRunes = 1000

// Detector implements domain.LanguageDetector with whatlanggo.
type Detector struct{}

func New() *Detector { return &Detector{} }

// Detect returns LangAR for Arabic text and LangEN for everything else,
// including text too short to classify.
func (d *Detector) Detect(text string) domain.Language {
	sample := strings.TrimSpace(textx.TruncateRunes(text, sampleRunes))
	if sample == "" {
		return domain.LangEN
	}
	info := whatlanggo.Detect(sample)
	slog.Debug("language detected",
		slog.String("lang", info.Lang.Iso6391()),
		slog.Float64("confidence", info.Confidence))
	if info.Lang == whatlanggo.Arb {
		return domain.LangAR
	}
	return domain.LangEN
}
