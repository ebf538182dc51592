package domain

import "encoding/json"

// CandidateDocument is the input unit produced by the inference collaborator:
// raw model output expected to decode to a JSON object, plus the language and
// kind the generation was prompted for. It is never mutated and is discarded
// after validation, pass or fail.
type CandidateDocument struct {
	RawText  string       `json:"raw_text"`
	Kind     DocumentKind `json:"kind"`
	Language Language     `json:"language"`
}

// Payload is the decoded, schema-conformant structure of a document. Keys
// are exactly the kind's allow-listed keys; the schema validator guarantees
// no others exist, so every field present has a known scanning obligation.
type Payload map[string]any

// StringField returns the named top-level field as a string, with ok=false
// when absent or not a string.
func (p Payload) StringField(name string) (string, bool) {
	v, present := p[name]
	if !present {
		return "", false
	}
	s, isString := v.(string)
	return s, isString
}

// ListField returns the named top-level field as a list of objects.
func (p Payload) ListField(name string) ([]map[string]any, bool) {
	v, present := p[name]
	if !present {
		return nil, false
	}
	raw, isList := v.([]any)
	if !isList {
		return nil, false
	}
	items := make([]map[string]any, 0, len(raw))
	for _, el := range raw {
		obj, isObj := el.(map[string]any)
		if !isObj {
			return nil, false
		}
		items = append(items, obj)
	}
	return items, true
}

// MarshalText serializes the payload back to canonical JSON for persistence
// in review records.
func (p Payload) MarshalText() ([]byte, error) {
	return json.Marshal(map[string]any(p))
}
