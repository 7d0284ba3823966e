// Package oracle calls an LLM to fix misspelled party names and to pull
// city names out of free-form addresses. Everything rule-based stays in
// the normalize package; the oracle only handles what rules cannot.
package oracle

import "context"

// Corrector fixes spelling in raw party names. The result maps each
// requested name to its corrected form; names missing from the map could
// not be corrected.
type Corrector interface {
	Correct(ctx context.Context, names []string) (map[string]string, error)
}

// Extractor extracts city names from raw addresses. Addresses with no
// recognizable city are absent from the result.
type Extractor interface {
	Extract(ctx context.Context, addresses []string) (map[string]string, error)
}

// Identity is the offline Corrector: every name maps to itself.
type Identity struct{}

func (Identity) Correct(_ context.Context, names []string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	for _, n := range names {
		out[n] = n
	}
	return out, nil
}

// Null is the offline Extractor: no address yields a city. Unlike party
// names, an address is never a usable stand-in for its own city.
type Null struct{}

func (Null) Extract(context.Context, []string) (map[string]string, error) {
	return map[string]string{}, nil
}
