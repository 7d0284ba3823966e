package batch

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/harborline/manifest-cli/internal/model"
)

// Request is the JSON body of the standardization endpoints. Each entry
// carries the raw value under raw_input; the city endpoint also accepts
// raw_address.
type Request struct {
	Data []RequestItem `json:"data"`
}

// RequestItem is one value to standardize.
type RequestItem struct {
	RawInput   *string `json:"raw_input"`
	RawAddress *string `json:"raw_address"`
}

// Response is the JSON body returned by the standardization endpoints.
type Response struct {
	StandardizedData []model.StandardizedRecord `json:"standardized_data"`
}

// ParseRequest decodes and validates a request body, returning the raw
// values in order. Validation errors name the offending entry index.
func ParseRequest(r io.Reader) ([]string, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var req Request
	if err := dec.Decode(&req); err != nil {
		return nil, eris.Wrap(err, "batch: malformed request body")
	}
	if len(req.Data) == 0 {
		return nil, eris.New("batch: request has no data entries")
	}

	inputs := make([]string, len(req.Data))
	for i, item := range req.Data {
		switch {
		case item.RawInput != nil && item.RawAddress != nil:
			return nil, eris.Errorf("batch: entry %d has both raw_input and raw_address", i)
		case item.RawInput != nil:
			inputs[i] = *item.RawInput
		case item.RawAddress != nil:
			inputs[i] = *item.RawAddress
		default:
			return nil, eris.Errorf("batch: entry %d missing raw_input", i)
		}
	}
	return inputs, nil
}
