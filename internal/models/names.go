package models

import (
	"regexp"
	"slices"
	"strings"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	parenthetical = regexp.MustCompile(`\(.*?\)`)
)

// nameTitles are honorifics and particles moved in front of the given name.
var nameTitles = []string{
	"Baron", "Sir", "Dr.", "Lord", "Dame", "Count", "Countess", "King", "Queen",
	"Prince", "Princess", "Duke", "Duchess", "marquis", "marchioness", "von", "de",
}

// NormalizeTerm collapses whitespace, trims and lower-cases a term for comparison.
func NormalizeTerm(s string) string {
	return strings.ToLower(strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " ")))
}

// StripParenthetical removes "(...)" segments and surrounding whitespace.
func StripParenthetical(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(parenthetical.ReplaceAllString(s, ""), " "))
}

// ConvertName turns an index-style "Last, First" name into reading order.
//
//	"Jefferson, Thomas"      -> "Thomas Jefferson"
//	"Lafayette, Baron Henri" -> "Baron Henri de Lafayette"
//
// Names without exactly one ", " separator are returned unchanged.
func ConvertName(name string) string {
	parts := strings.Split(name, ", ")
	if len(parts) != 2 {
		return name
	}
	last := strings.TrimSpace(parts[0])

	var titles, given []string
	for _, word := range strings.Fields(parts[1]) {
		if slices.Contains(nameTitles, word) && !slices.Contains(titles, word) {
			titles = append(titles, word)
			continue
		}
		given = append(given, word)
	}

	first := strings.Join(given, " ")
	if len(titles) == 0 {
		return strings.TrimSpace(first + " " + last)
	}
	// Titles keep their canonical order, not their order in the source.
	ordered := make([]string, 0, len(titles))
	for _, t := range nameTitles {
		if slices.Contains(titles, t) {
			ordered = append(ordered, t)
		}
	}
	return strings.Join(strings.Fields(strings.Join(ordered, " ")+" "+first+" de "+last), " ")
}
