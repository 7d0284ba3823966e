// Package suffix implements the legal-entity suffix rule table and the
// end-anchored matcher used to canonicalize suffixes on company names.
package suffix

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Variant is a single raw spelling of a legal-entity suffix, e.g. "L.L.C."
// or "PVT". A variant whose authored text ends in a period matches with or
// without that period.
type Variant struct {
	// Text is the spelling exactly as authored in the table.
	Text string

	// PeriodOptional marks a variant whose trailing period is semantically
	// ignorable during matching.
	PeriodOptional bool

	// core is Text uppercased with any trailing period stripped. All
	// comparisons run against core.
	core string
}

// Group maps a set of variants to one canonical target spelling. Within a
// group, longer spellings of the same abbreviation precede shorter ones so
// that "L.L.C." is tried before "LLC" and "LTD" before "LT".
type Group struct {
	Canonical string
	Variants  []Variant
}

// Table is an immutable, priority-ordered sequence of suffix groups.
// Document order encodes match priority. A Table is safe for concurrent
// readers; it is never mutated after construction.
type Table struct {
	groups []Group
}

func newVariant(text string) Variant {
	return Variant{
		Text:           text,
		PeriodOptional: strings.HasSuffix(text, "."),
		core:           strings.ToUpper(strings.TrimSuffix(text, ".")),
	}
}

// NewTable validates and builds a Table from the given groups.
//
// The invariant enforced at construction time is the one the normalization
// fixpoint needs to terminate and stay idempotent: no variant core equals,
// or is an end-anchored fragment of, any canonical target in the table.
// Otherwise the engine could re-match its own output.
func NewTable(groups []Group) (*Table, error) {
	if len(groups) == 0 {
		return nil, eris.New("suffix: table has no groups")
	}

	canonicals := make([]string, 0, len(groups))
	for _, g := range groups {
		if g.Canonical == "" {
			return nil, eris.New("suffix: group with empty canonical target")
		}
		canonicals = append(canonicals, strings.ToUpper(g.Canonical))
	}

	for gi, g := range groups {
		if len(g.Variants) == 0 {
			return nil, eris.Errorf("suffix: group %q has no variants", g.Canonical)
		}
		for vi, v := range g.Variants {
			if v.core == "" {
				return nil, eris.Errorf("suffix: group %q variant %d is empty", g.Canonical, vi)
			}
			for _, canon := range canonicals {
				if strings.HasSuffix(canon, v.core) {
					return nil, eris.Errorf(
						"suffix: variant %q (group %q) would re-match canonical target %q",
						v.Text, groups[gi].Canonical, canon)
				}
			}
		}
	}

	out := make([]Group, len(groups))
	copy(out, groups)
	return &Table{groups: out}, nil
}

// variants builds a variant list from authored spellings, preserving order.
func variants(texts ...string) []Variant {
	out := make([]Variant, len(texts))
	for i, t := range texts {
		out[i] = newVariant(t)
	}
	return out
}

// defaultGroups is the canonical suffix catalogue. Group order encodes
// priority (most specific legal form first). The content and order are a
// correctness contract: changing either changes which rewrite wins.
var defaultGroups = []Group{
	{
		Canonical: "LIMITED LIABILITY COMPANY",
		Variants:  variants("L.L.C.", "L.L.C", "LLC"),
	},
	{
		Canonical: "INCORPORATED",
		Variants:  variants("INCD", "INC.", "INC"),
	},
	{
		Canonical: "CORPORATION",
		Variants:  variants("CORP.", "CORP"),
	},
	{
		Canonical: "LIMITED",
		Variants:  variants("LTD.", "LTD", "LT.", "LT", "LIMITE", "LIMIT", "LIMI", "LIM", "L.", "L"),
	},
	{
		Canonical: "PRIVATE",
		Variants:  variants("PVT.", "PVT", "PTE.", "PTE", "(P)"),
	},
	{
		Canonical: "COMPANY",
		Variants:  variants("CO.", "CO", "COMPAN"),
	},
}

var defaultTable = func() *Table {
	t, err := NewTable(defaultGroups)
	if err != nil {
		panic(err)
	}
	return t
}()

// DefaultTable returns the process-wide suffix table. The returned Table is
// shared and read-only.
func DefaultTable() *Table {
	return defaultTable
}

// Groups returns the table's groups in priority order. The slice is a copy;
// callers cannot mutate the table through it.
func (t *Table) Groups() []Group {
	out := make([]Group, len(t.groups))
	copy(out, t.groups)
	return out
}
