package provider

import (
	"strings"
	"time"
	"unicode/utf8"
)

func sanitizeText(in string, maxLen int) string {
	in = strings.TrimSpace(in)
	if in == "" {
		return ""
	}
	in = strings.Join(strings.Fields(in), " ")
	if maxLen > 0 && len(in) > maxLen {
		in = in[:maxLen]
		for !utf8.ValidString(in) {
			in = in[:len(in)-1]
		}
	}
	return in
}

// mentionsKeyword reports whether text contains any keyword, ignoring case.
// An empty keyword list accepts everything.
func mentionsKeyword(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	text = strings.ToLower(text)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
