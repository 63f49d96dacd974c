// Package ai recovers structured data from free-form model output.
package ai

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"github.com/fairyhunter13/vericv/internal/adapter/observability"
)

// maxScanAttempts bounds the opener-by-opener decode in the last recovery pass.
const maxScanAttempts = 64

var fenceRe = regexp.MustCompile("(?m)^\\s*```[a-zA-Z]*\\s*$|```(?:json|JSON)?")

// Normalizer turns model output into JSON values. It never fails: unusable
// input yields an empty collection or a fallback record.
type Normalizer struct {
	log *slog.Logger
}

// NewNormalizer creates a normalizer that logs to the default logger.
func NewNormalizer() *Normalizer { return &Normalizer{log: slog.Default()} }

// ForContext returns a copy logging through the request-scoped logger.
func (n *Normalizer) ForContext(ctx context.Context) *Normalizer {
	return &Normalizer{log: observability.LoggerFromContext(ctx)}
}

func (n *Normalizer) logger() *slog.Logger {
	if n.log == nil {
		return slog.Default()
	}
	return n.log
}

// Questions returns the question records contained in raw. Structured input
// passes through; a mapping is unwrapped via its "questions" or "data" key.
func (n *Normalizer) Questions(raw any) []map[string]any {
	switch v := raw.(type) {
	case nil:
		return []map[string]any{}
	case []map[string]any:
		return v
	case []any:
		return records(v)
	case map[string]any:
		return unwrapRecords(v)
	case string:
		return n.questionsFromText(v)
	case []byte:
		return n.questionsFromText(string(v))
	case json.RawMessage:
		return n.questionsFromText(string(v))
	default:
		return []map[string]any{}
	}
}

func (n *Normalizer) questionsFromText(text string) []map[string]any {
	n.logger().Debug("normalizing model output", slog.Int("raw_len", len(text)))
	parsed, ok := n.parse(text)
	if !ok {
		return []map[string]any{}
	}
	switch v := parsed.(type) {
	case []any:
		return records(v)
	case map[string]any:
		return unwrapRecords(v)
	default:
		return []map[string]any{}
	}
}

// Object returns the first JSON object in raw, or {"raw": text} when none parses.
func (n *Normalizer) Object(raw any) map[string]any {
	switch v := raw.(type) {
	case map[string]any:
		return v
	case string:
		return n.objectFromText(v)
	case []byte:
		return n.objectFromText(string(v))
	case json.RawMessage:
		return n.objectFromText(string(v))
	default:
		return map[string]any{"raw": ""}
	}
}

func (n *Normalizer) objectFromText(text string) map[string]any {
	span, ok := n.ObjectSpan(text)
	if !ok {
		return map[string]any{"raw": text}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(span), &m); err != nil {
		return map[string]any{"raw": text}
	}
	return m
}

// ObjectSpan returns the JSON text of the first recoverable object in text.
func (n *Normalizer) ObjectSpan(text string) (string, bool) {
	n.logger().Debug("normalizing model output", slog.Int("raw_len", len(text)))
	parsed, ok := n.parse(text)
	if !ok {
		return "", false
	}
	obj, isObj := parsed.(map[string]any)
	if !isObj {
		list, isList := parsed.([]any)
		if !isList || len(list) == 0 {
			return "", false
		}
		if obj, isObj = list[0].(map[string]any); !isObj {
			return "", false
		}
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return "", false
	}
	return string(b), true
}

// Strings returns a list of strings, flattening records to their "question" field.
func (n *Normalizer) Strings(raw any) []string {
	var items []any
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		items = v
	case string:
		parsed, ok := n.parse(v)
		if !ok {
			return []string{}
		}
		switch p := parsed.(type) {
		case []any:
			items = p
		case map[string]any:
			if list, ok := p["questions"].([]any); ok {
				items = list
			} else if list, ok := p["data"].([]any); ok {
				items = list
			}
		}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		switch x := it.(type) {
		case string:
			if s := strings.TrimSpace(x); s != "" {
				out = append(out, s)
			}
		case map[string]any:
			if s, ok := x["question"].(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	}
	return out
}

// parse tries the greedy span, then the fence-stripped greedy span, then a
// value-by-value decode starting at each opener.
func (n *Normalizer) parse(text string) (any, bool) {
	if v, ok := parseGreedy(text); ok {
		return v, true
	}
	stripped := stripFences(text)
	if v, ok := parseGreedy(stripped); ok {
		return v, true
	}
	return scanValues(stripped)
}

func parseGreedy(text string) (any, bool) {
	span := greedySpan(text)
	if span == "" {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(span), &v); err != nil {
		return nil, false
	}
	return v, true
}

// greedySpan slices from the first '{' or '[' to the last matching closer.
func greedySpan(text string) string {
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return ""
	}
	closer := byte('}')
	if text[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(text, closer)
	if end <= start {
		return ""
	}
	return text[start : end+1]
}

func scanValues(text string) (any, bool) {
	offset := 0
	for attempt := 0; attempt < maxScanAttempts; attempt++ {
		i := strings.IndexAny(text[offset:], "{[")
		if i < 0 {
			return nil, false
		}
		pos := offset + i
		var v any
		if err := json.NewDecoder(strings.NewReader(text[pos:])).Decode(&v); err == nil {
			switch v.(type) {
			case []any, map[string]any:
				return v, true
			}
		}
		offset = pos + 1
	}
	return nil, false
}

func stripFences(text string) string {
	return strings.TrimSpace(fenceRe.ReplaceAllString(text, ""))
}

func records(items []any) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func unwrapRecords(m map[string]any) []map[string]any {
	for _, key := range []string{"questions", "data"} {
		switch inner := m[key].(type) {
		case []any:
			return records(inner)
		case []map[string]any:
			return inner
		}
	}
	return []map[string]any{}
}
