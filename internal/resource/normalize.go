package resource

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeList accepts either a bare JSON array or a paginated envelope
// {"results": [...]} and decodes the items into out.
func DecodeList(data []byte, out any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty list response")
	}

	switch trimmed[0] {
	case '[':
		return json.Unmarshal(trimmed, out)
	case '{':
		var envelope struct {
			Results json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return fmt.Errorf("decode list envelope: %w", err)
		}
		if len(envelope.Results) == 0 || string(envelope.Results) == "null" {
			return json.Unmarshal([]byte("[]"), out)
		}
		return json.Unmarshal(envelope.Results, out)
	default:
		return fmt.Errorf("unexpected list response starting with %q", trimmed[0])
	}
}
