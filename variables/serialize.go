package variables

import "encoding/json"

// serializeValue renders value into the (text, isJSON, sizeBytes) triple
// stored on a Variable row. Strings are stored verbatim; anything else is
// JSON-encoded and flagged accordingly.
func serializeValue(value any) (text string, isJSON bool, sizeBytes int, err error) {
	if s, ok := value.(string); ok {
		return s, false, len(s), nil
	}

	raw, marshalErr := json.Marshal(value)
	if marshalErr != nil {
		return "", false, 0, marshalErr
	}
	return string(raw), true, len(raw), nil
}

// DeserializeValue returns the concrete value for a Variable, JSON-decoding
// it when IsJSON is set. A malformed JSON payload degrades to the raw text
// rather than erroring, matching get-or-create's "never block the loop"
// posture for stored data written by an older schema.
func DeserializeValue(v Variable) any {
	if !v.IsJSON {
		return v.Value
	}
	var decoded any
	if err := json.Unmarshal([]byte(v.Value), &decoded); err != nil {
		return v.Value
	}
	return decoded
}
