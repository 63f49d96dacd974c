// Package tokencount keeps CV text inside the model's prompt budget.
//
// Groq's Llama and Mixtral models publish no tiktoken encoding; cl100k_base
// counts their tokens closely enough to size a prompt.
package tokencount

import (
	"log/slog"
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"

	"github.com/fairyhunter13/vericv/pkg/textx"
)

const (
	defaultEncoding = "cl100k_base"
	legacyEncoding  = "p50k_base"
	// runesPerToken estimates a budget when no encoding loads, e.g. offline
	// without a cached BPE file.
	runesPerToken = 4
)

// Counter truncates text per model. Safe for concurrent use; encodings load
// once per name.
type Counter struct {
	mu        sync.Mutex
	encodings map[string]*tiktoken.Tiktoken
}

func NewCounter() *Counter {
	return &Counter{encodings: map[string]*tiktoken.Tiktoken{}}
}

// encodingName picks the BPE for a provider model id such as
// "meta-llama/llama-4-maverick-17b-128e-instruct".
func encodingName(model string) string {
	m := strings.ToLower(model)
	if i := strings.LastIndexByte(m, '/'); i >= 0 {
		m = m[i+1:]
	}
	if strings.HasPrefix(m, "text-davinci") || strings.HasPrefix(m, "code-") {
		return legacyEncoding
	}
	return defaultEncoding
}

func (c *Counter) encoding(model string) (*tiktoken.Tiktoken, error) {
	name := encodingName(model)
	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encodings[name]; ok {
		return enc, nil
	}
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, err
	}
	c.encodings[name] = enc
	return enc, nil
}

// Count returns the number of tokens text uses under model's encoding.
func (c *Counter) Count(text, model string) (int, error) {
	enc, err := c.encoding(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// Truncate cuts text to at most budget tokens. budget <= 0 means unlimited.
// Without an encoding the cut is estimated from the rune count.
func (c *Counter) Truncate(text, model string, budget int) string {
	if budget <= 0 || text == "" {
		return text
	}
	enc, err := c.encoding(model)
	if err != nil {
		slog.Warn("token encoding unavailable, estimating cut", slog.String("model", model), slog.Any("error", err))
		return textx.TruncateRunes(text, budget*runesPerToken)
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= budget {
		return text
	}
	slog.Debug("cv text over token budget", slog.Int("tokens", len(tokens)), slog.Int("budget", budget))
	// a cut can split a multi-byte rune
	return strings.ToValidUTF8(enc.Decode(tokens[:budget]), "")
}
