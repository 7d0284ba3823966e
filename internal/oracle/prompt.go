package oracle

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// partySystemPrompt drives spelling correction of company names. The
// model must not expand or normalize legal suffixes; the suffix engine
// owns that step.
const partySystemPrompt = `You are a data cleaning assistant for ocean shipping manifests.
You receive a JSON array of raw company names. For each name, correct obvious
misspellings and OCR artifacts in the company name itself. Do NOT expand,
abbreviate, or alter legal entity suffixes such as LTD, PVT, INC, CORP, CO or
LLC; leave them exactly as written. Do NOT translate, reorder, or invent words.
If a name looks correct, return it unchanged.

Respond with ONLY a JSON object of this exact shape, no prose:
{"standardized_data":[{"raw_input":"<input exactly as given>","output":"<corrected name>"}]}

The array must contain exactly one entry per input, in the same order.`

// citySystemPrompt drives city extraction from free-form addresses.
const citySystemPrompt = `You are a data cleaning assistant for ocean shipping manifests.
You receive a JSON array of raw addresses. For each address, extract the city
name in uppercase. If no city can be determined, use an empty string for the
output. Never guess a city that is not present in the address.

Respond with ONLY a JSON object of this exact shape, no prose:
{"standardized_data":[{"raw_input":"<input exactly as given>","output":"<CITY or empty>"}]}

The array must contain exactly one entry per input, in the same order.`

// buildUserPayload encodes one chunk of inputs as the user message body.
func buildUserPayload(inputs []string) (string, error) {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "", eris.Wrap(err, "oracle: marshal inputs")
	}
	return string(data), nil
}
