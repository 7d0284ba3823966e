// Package normalize turns raw party names into their canonical form: the
// suffix engine rewrites legal-entity suffixes against the rule table, and
// Clean performs the aggressive pre-oracle cleanup used by the batch
// pipeline.
package normalize

import (
	"regexp"
	"strings"

	"github.com/harborline/manifest-cli/internal/suffix"
)

// nullMarkers are inputs that semantically mean "no data". They map to an
// empty output and never reach suffix processing.
var nullMarkers = map[string]struct{}{
	"":     {},
	"nan":  {},
	"null": {},
}

var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

// IsNullMarker reports whether raw, trimmed and case-folded, is a null
// marker ("", "nan", "NaN", "null", ...).
func IsNullMarker(raw string) bool {
	_, ok := nullMarkers[strings.ToLower(strings.TrimSpace(raw))]
	return ok
}

// Engine rewrites legal-entity suffixes at the end of a name to their
// canonical form. An Engine holds only an immutable rule table reference
// and is safe for concurrent use.
type Engine struct {
	table *suffix.Table
}

// NewEngine creates an Engine over the given rule table.
func NewEngine(t *suffix.Table) *Engine {
	return &Engine{table: t}
}

// Default returns an Engine over the default rule table.
func Default() *Engine {
	return NewEngine(suffix.DefaultTable())
}

// Normalize returns the canonical form of raw.
//
// Null markers return "". Otherwise the engine repeatedly matches the rule
// table against the end of the unresolved head of the string, consuming one
// suffix per iteration, so stacked suffixes resolve from the end inward:
//
//	"ACME PVT LTD" -> "ACME PVT LIMITED" -> "ACME PRIVATE LIMITED"
//
// Canonical targets are inserted uppercase as authored in the table; the
// case of non-suffix text is preserved. Each iteration strictly shortens
// the unresolved head, and table construction guarantees canonical targets
// never re-match, so Normalize terminates and is idempotent.
func (e *Engine) Normalize(raw string) string {
	if IsNullMarker(raw) {
		return ""
	}

	head := strings.TrimSpace(raw)

	// Canonical targets in reverse order of matching (rightmost first).
	var resolved []string
	for {
		head = strings.TrimRight(head, " \t")
		m, ok := e.table.FindBestMatch(head)
		if !ok {
			break
		}
		resolved = append(resolved, m.Canonical)
		head = head[:m.Start]
	}

	if len(resolved) == 0 {
		return head
	}

	parts := make([]string, 0, len(resolved)+1)
	if head = strings.TrimSpace(head); head != "" {
		parts = append(parts, head)
	}
	for i := len(resolved) - 1; i >= 0; i-- {
		parts = append(parts, resolved[i])
	}

	return multiSpaceRe.ReplaceAllString(strings.Join(parts, " "), " ")
}
