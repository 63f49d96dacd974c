package ai

import "strings"

// refusalPhrases are openings models use when declining a request.
var refusalPhrases = []string{
	"i cannot", "i can't", "i can not", "i'm unable", "i am unable", "i refuse",
	"i'm sorry, but", "i am sorry, but", "unfortunately, i cannot", "unfortunately, i can't",
	"as an ai", "i don't have access", "i'm not able to", "i am not able to",
	"لا أستطيع", "عذراً", "عذرا",
}

// refusalWindow limits matching to the start of the reply, where refusals sit.
const refusalWindow = 200

// LooksLikeRefusal reports whether text reads as the model declining the task.
// Replies carrying JSON are never refusals.
func LooksLikeRefusal(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" || strings.ContainsAny(t, "{[") {
		return false
	}
	head := strings.ToLower(t)
	if r := []rune(head); len(r) > refusalWindow {
		head = string(r[:refusalWindow])
	}
	for _, p := range refusalPhrases {
		if strings.Contains(head, p) {
			return true
		}
	}
	return false
}
