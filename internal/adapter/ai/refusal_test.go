package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLooksLikeRefusal(t *testing.T) {
	t.Parallel()
	tests := []struct {
		text string
		want bool
	}{
		{"I cannot help with that request.", true},
		{"I'm sorry, but I can't process personal documents.", true},
		{"لا أستطيع المساعدة في هذا الطلب", true},
		{"Sure! " + twoQuestions, false},
		{"Here are some thoughts about your CV.", false},
		{"", false},
		{strings.Repeat("filler ", 60) + "I cannot", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LooksLikeRefusal(tt.text), tt.text)
	}
}
