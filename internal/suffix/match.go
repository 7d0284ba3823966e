package suffix

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Match describes a suffix variant found at the end of a string.
type Match struct {
	// Canonical is the target spelling the matched span rewrites to.
	Canonical string

	// Variant is the table variant that matched.
	Variant Variant

	// Start and End are the byte span of the match in the input text.
	// End includes a consumed trailing period, if the text had one.
	Start int
	End   int
}

// FindBestMatch scans the table for a suffix variant anchored at the end of
// text and returns the highest-priority match. Groups are scanned in table
// order; within a group, variants in their fixed order. Priority across
// groups outranks variant length within a group.
//
// text must already be trimmed of leading and trailing whitespace. A single
// trailing period on text is ignored for comparison and consumed by the
// returned span; any further trailing punctuation defeats the match.
//
// A variant only matches on a whole-word boundary: the character before the
// span must be whitespace, a non-alphanumeric separator, or the start of
// the string. This keeps "CO" from firing inside "RECORDINGCO".
func (t *Table) FindBestMatch(text string) (Match, bool) {
	if text == "" {
		return Match{}, false
	}

	matchText := text
	consumedPeriod := false
	if strings.HasSuffix(matchText, ".") {
		matchText = matchText[:len(matchText)-1]
		consumedPeriod = true
	}

	for _, g := range t.groups {
		for _, v := range g.Variants {
			start, ok := matchAt(matchText, v.core)
			if !ok {
				continue
			}

			end := len(matchText)
			if consumedPeriod {
				end = len(text)
			}
			return Match{
				Canonical: g.Canonical,
				Variant:   v,
				Start:     start,
				End:       end,
			}, true
		}
	}

	return Match{}, false
}

// matchAt reports whether text ends with core (case-insensitively) on a
// word boundary, returning the byte offset where the span starts.
func matchAt(text, core string) (int, bool) {
	if len(text) < len(core) {
		return 0, false
	}

	start := len(text) - len(core)
	if !strings.EqualFold(text[start:], core) {
		return 0, false
	}

	if start == 0 {
		return 0, true
	}

	r, _ := utf8.DecodeLastRuneInString(text[:start])
	if isWordBoundary(r) {
		return start, true
	}
	return 0, false
}

// isWordBoundary reports whether r separates words: any whitespace or
// non-alphanumeric rune qualifies.
func isWordBoundary(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
