package oracle

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// envelope is the strict response shape the prompts demand.
type envelope struct {
	StandardizedData []envelopeItem `json:"standardized_data"`
}

type envelopeItem struct {
	RawInput *string `json:"raw_input"`
	Output   *string `json:"output"`
}

// codeFenceRe strips a markdown code fence the model sometimes wraps
// around the JSON despite instructions.
var codeFenceRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// parseEnvelope validates a model response against the chunk of inputs it
// answers. Every input must appear exactly once with a non-null output,
// and the entry count must match the input count.
func parseEnvelope(raw string, inputs []string) (map[string]string, error) {
	text := strings.TrimSpace(raw)
	if m := codeFenceRe.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	var env envelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return nil, eris.Wrap(err, "oracle: malformed response JSON")
	}

	if len(env.StandardizedData) != len(inputs) {
		return nil, eris.Errorf("oracle: response has %d entries, expected %d",
			len(env.StandardizedData), len(inputs))
	}

	want := make(map[string]struct{}, len(inputs))
	for _, in := range inputs {
		want[in] = struct{}{}
	}

	out := make(map[string]string, len(inputs))
	for i, item := range env.StandardizedData {
		if item.RawInput == nil || item.Output == nil {
			return nil, eris.Errorf("oracle: entry %d missing raw_input or output", i)
		}
		if _, ok := want[*item.RawInput]; !ok {
			return nil, eris.Errorf("oracle: entry %d raw_input %q was not requested", i, *item.RawInput)
		}
		if _, dup := out[*item.RawInput]; dup {
			return nil, eris.Errorf("oracle: entry %d duplicates raw_input %q", i, *item.RawInput)
		}
		out[*item.RawInput] = *item.Output
	}
	return out, nil
}
