package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/vericv/internal/adapter/observability"
)

const twoQuestions = `[{"question":"What is Go?","options":["A","B","C","D"],"correct_answer":1},` +
	`{"question":"What is a goroutine?","options":["A","B","C","D"],"correct_answer":"2"}]`

func TestNormalizer_Questions_TextVariants(t *testing.T) {
	t.Parallel()
	n := NewNormalizer()

	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"bare array", twoQuestions, 2},
		{"prose around array", "Sure! Here are your questions:\n" + twoQuestions + "\nGood luck.", 2},
		{"markdown fenced", "```json\n" + twoQuestions + "\n```", 2},
		{"fenced with prose", "Here you go:\n```json\n" + twoQuestions + "\n```\nLet me know [if needed].", 2},
		{"object wrapper questions", `{"questions": ` + twoQuestions + `}`, 2},
		{"object wrapper data", `Result: {"data": ` + twoQuestions + `} end`, 2},
		{"object without list", `{"foo": "bar"}`, 0},
		{"prose only", "I cannot help with that request.", 0},
		{"broken json", `[{"question": "x", "options": [}`, 0},
		{"empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := n.Questions(tt.input)
			require.NotNil(t, got)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestNormalizer_Questions_BracketsInProseBeforeJSON(t *testing.T) {
	t.Parallel()
	n := NewNormalizer()
	got := n.Questions("Note [internal]: output follows " + twoQuestions + " (see [1])")
	require.Len(t, got, 2)
	assert.Equal(t, "What is Go?", got[0]["question"])
}

func TestNormalizer_Questions_Structured(t *testing.T) {
	t.Parallel()
	n := NewNormalizer()

	list := []any{map[string]any{"question": "q1"}, "skip-me", map[string]any{"question": "q2"}}
	assert.Len(t, n.Questions(list), 2)
	assert.Len(t, n.Questions(map[string]any{"questions": list}), 2)
	assert.Len(t, n.Questions(map[string]any{"data": list}), 2)
	assert.Empty(t, n.Questions(map[string]any{"other": list}))
	assert.Empty(t, n.Questions(nil))
	assert.Empty(t, n.Questions(42))
	assert.Len(t, n.Questions(json.RawMessage(twoQuestions)), 2)
	assert.Len(t, n.Questions([]byte(twoQuestions)), 2)
}

func TestNormalizer_ForContextUsesRequestLogger(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	lg := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})).With(slog.String("request_id", "req-9"))
	ctx := observability.ContextWithLogger(context.Background(), lg)

	got := NewNormalizer().ForContext(ctx).Questions(twoQuestions)
	require.Len(t, got, 2)
	assert.Contains(t, buf.String(), `"request_id":"req-9"`)
	assert.Contains(t, buf.String(), "normalizing model output")
}

func TestNormalizer_Object(t *testing.T) {
	t.Parallel()
	n := NewNormalizer()

	got := n.Object("The info is: {\"name\": \"Jane Doe\", \"city\": \"Cairo\"} thanks")
	assert.Equal(t, "Jane Doe", got["name"])
	assert.Equal(t, "Cairo", got["city"])

	fenced := n.Object("```json\n{\"name\": \"Jane\"}\n```")
	assert.Equal(t, "Jane", fenced["name"])

	fallback := n.Object("no json here")
	assert.Equal(t, map[string]any{"raw": "no json here"}, fallback)

	same := map[string]any{"a": 1}
	assert.Equal(t, same, n.Object(same))
}

func TestNormalizer_ObjectSpan(t *testing.T) {
	t.Parallel()
	n := NewNormalizer()

	span, ok := n.ObjectSpan(`[{"soft_skills_score": 80}]`)
	require.True(t, ok)
	assert.JSONEq(t, `{"soft_skills_score": 80}`, span)

	_, ok = n.ObjectSpan(`["a", "b"]`)
	assert.False(t, ok)
	_, ok = n.ObjectSpan("nothing")
	assert.False(t, ok)
}

func TestNormalizer_Strings(t *testing.T) {
	t.Parallel()
	n := NewNormalizer()

	assert.Equal(t, []string{"Q1", "Q2"}, n.Strings("```json\n[\"Q1\", \"Q2\"]\n```"))
	assert.Equal(t, []string{"Q1", "Q2"}, n.Strings(`{"questions": ["Q1", " Q2 "]}`))
	assert.Equal(t, []string{"Q1"}, n.Strings(`[{"question": "Q1"}, {"other": 1}, ""]`))
	assert.Equal(t, []string{"a"}, n.Strings([]string{"a"}))
	assert.Empty(t, n.Strings("sorry"))
}

func TestFallbackCandidateInfo(t *testing.T) {
	t.Parallel()
	text := "Jane Doe\nSenior Engineer since 2019\nPhone: +20 100 555 1234\nCairo"
	info := FallbackCandidateInfo(text)
	assert.Equal(t, "Jane Doe", info.Name)
	assert.Equal(t, "+20 100 555 1234", info.Phone)
	assert.Empty(t, info.City)
	assert.NotNil(t, info.JobTitles)

	empty := FallbackCandidateInfo("lowercase only text 2020")
	assert.Empty(t, empty.Name)
	assert.Empty(t, empty.Phone)
}
