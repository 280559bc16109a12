package sessions

import "encoding/json"

func unmarshal(raw string, out any) error {
	return json.Unmarshal([]byte(raw), out)
}

// decodePair decodes both raw JSON documents, reporting false when either
// fails so callers can fall back to literal string comparison.
func decodePair(a, b string, outA, outB any) bool {
	if err := unmarshal(a, outA); err != nil {
		return false
	}
	if err := unmarshal(b, outB); err != nil {
		return false
	}
	return true
}
