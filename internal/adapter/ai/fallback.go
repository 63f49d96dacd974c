package ai

import (
	"regexp"
	"strings"

	"github.com/fairyhunter13/vericv/internal/domain"
)

var (
	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\+?\d{1,4}[-.\s]?\(?\d{1,4}\)?[-.\s]?\d{1,4}[-.\s]?\d{1,9}`),
		regexp.MustCompile(`\d{3}[-.\s]?\d{3}[-.\s]?\d{4}`),
	}
	namePattern = regexp.MustCompile(`(?m)^[\s]*([A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)+)`)
)

// minPhoneDigits filters out years and short numeric runs matched by the loose pattern.
const minPhoneDigits = 7

// FallbackCandidateInfo pulls a name and phone out of raw CV text with regexes.
// City and job titles cannot be recovered this way and stay empty.
func FallbackCandidateInfo(cvText string) domain.CandidateInfo {
	info := domain.CandidateInfo{JobTitles: []string{}}
	for _, re := range phonePatterns {
		for _, m := range re.FindAllString(cvText, -1) {
			if countDigits(m) >= minPhoneDigits {
				info.Phone = strings.TrimSpace(m)
				break
			}
		}
		if info.Phone != "" {
			break
		}
	}
	if m := namePattern.FindStringSubmatch(cvText); len(m) > 1 {
		info.Name = strings.TrimSpace(m[1])
	}
	return info
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
