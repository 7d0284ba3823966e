package normalize

import (
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Rules holds the token lists applied by Clean. Zero value means
// "defaults only"; loaded rules are merged over the defaults.
type Rules struct {
	// UnwantedTokens are dropped wherever they appear as whole words.
	UnwantedTokens []string `yaml:"unwanted_tokens"`

	// Abbreviations maps short forms to their expansion, applied on
	// whole tokens after punctuation stripping.
	Abbreviations map[string]string `yaml:"abbreviations"`
}

// defaultRules covers the prefixes and contractions that show up
// constantly in ocean-manifest party columns.
var defaultRules = Rules{
	UnwantedTokens: []string{"M/S", "MESSRS", "C/O", "ATTN", "O/B"},
	Abbreviations: map[string]string{
		"INTL": "INTERNATIONAL",
		"NATL": "NATIONAL",
		"MFG":  "MANUFACTURING",
		"MFRS": "MANUFACTURERS",
		"ENGG": "ENGINEERING",
		"TRDG": "TRADING",
		"EXP":  "EXPORTS",
		"IMP":  "IMPORTS",
		"GOVT": "GOVERNMENT",
	},
}

// DefaultRules returns a copy of the built-in clean rules.
func DefaultRules() Rules {
	return defaultRules.merge(Rules{})
}

// LoadRules reads a YAML rules file and merges it over the defaults.
// Loaded unwanted tokens are appended; loaded abbreviations override
// defaults on key collision.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, eris.Wrapf(err, "normalize: read rules file %s", path)
	}

	var loaded Rules
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return Rules{}, eris.Wrapf(err, "normalize: parse rules file %s", path)
	}

	return defaultRules.merge(loaded), nil
}

func (r Rules) merge(over Rules) Rules {
	out := Rules{
		UnwantedTokens: append([]string{}, r.UnwantedTokens...),
		Abbreviations:  make(map[string]string, len(r.Abbreviations)+len(over.Abbreviations)),
	}
	out.UnwantedTokens = append(out.UnwantedTokens, over.UnwantedTokens...)
	for k, v := range r.Abbreviations {
		out.Abbreviations[strings.ToUpper(k)] = strings.ToUpper(v)
	}
	for k, v := range over.Abbreviations {
		out.Abbreviations[strings.ToUpper(k)] = strings.ToUpper(v)
	}
	return out
}

var nonAlnumRe = regexp.MustCompile(`[^A-Z0-9 ]+`)

// Clean performs the aggressive pre-oracle cleanup on a raw party name:
// Unicode NFKC normalization, uppercasing, slash-token removal (M/S, C/O),
// punctuation stripping, unwanted-token removal, and whole-word
// abbreviation expansion. The result is a
// single-spaced uppercase string, or "" for null markers.
//
// Clean is deliberately not part of Normalize: the suffix engine preserves
// the case and punctuation of non-suffix text, while Clean rewrites the
// whole name. The batch pipeline runs Clean first, then the oracle, then
// the engine.
func Clean(raw string, rules Rules) string {
	if IsNullMarker(raw) {
		return ""
	}

	s := norm.NFKC.String(raw)
	s = strings.ToUpper(strings.TrimSpace(s))

	// Slash tokens must go before punctuation stripping splits them.
	for _, tok := range rules.UnwantedTokens {
		if strings.ContainsRune(tok, '/') {
			s = removeWholeWord(s, tok)
		}
	}

	s = nonAlnumRe.ReplaceAllString(s, " ")

	fields := strings.Fields(s)
	out := fields[:0]
	for _, f := range fields {
		if isUnwanted(f, rules.UnwantedTokens) {
			continue
		}
		if full, ok := rules.Abbreviations[f]; ok {
			out = append(out, full)
			continue
		}
		out = append(out, f)
	}

	return strings.Join(out, " ")
}

func isUnwanted(token string, unwanted []string) bool {
	for _, u := range unwanted {
		if token == u {
			return true
		}
	}
	return false
}

// removeWholeWord deletes whole-word occurrences of tok from s. tok may
// contain regexp metacharacters.
func removeWholeWord(s, tok string) string {
	re, err := regexp.Compile(`(^|\s)` + regexp.QuoteMeta(tok) + `(\s|$)`)
	if err != nil {
		return s
	}
	return re.ReplaceAllString(s, " ")
}
