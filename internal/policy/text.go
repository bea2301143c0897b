package policy

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CleanText strips markup and collapses whitespace.
func CleanText(raw string) string {
	if raw == "" {
		return ""
	}
	text := raw
	if strings.ContainsAny(raw, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
		if err == nil {
			text = doc.Text()
		}
	}
	return strings.Join(strings.Fields(text), " ")
}

// TruncateRunes shortens s to at most max runes, appending "..." when cut.
func TruncateRunes(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max])) + "..."
}
