package search

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	highlightOpen  = `<span class="highlight">`
	highlightClose = `</span>`

	// Tokens this short are too common to highlight usefully.
	minHighlightLen = 3
)

// Highlight wraps every whole-word, case-insensitive occurrence of each query
// token of at least three runes in a highlight span. Shorter tokens are left
// alone.
func Highlight(text, query string) string {
	highlighted := text
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if utf8.RuneCountInString(term) < minHighlightLen {
			continue
		}
		pattern, err := regexp.Compile(`(?i)\b(` + regexp.QuoteMeta(term) + `)\b`)
		if err != nil {
			continue
		}
		highlighted = pattern.ReplaceAllString(highlighted, highlightOpen+`$1`+highlightClose)
	}
	return highlighted
}
