// Package schema validates the structure of candidate documents against
// per-kind closed schemas.
//
// Schemas are strict in both directions: every required key must be present
// and no key may exist outside the kind's allow-list. An unexpected key is a
// rejection, not a silently-ignored extra — a model can emit arbitrary keys,
// and a dropped extra key would be a channel for free text that no phrase
// scan ever sees. Closing the schema means every field that exists has a
// known scanning obligation.
package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/scribe-safety-gate/internal/domain"
)

// valueKind is the expected JSON type of an allow-listed key.
type valueKind int

const (
	stringValue valueKind = iota
	objectListValue
)

// kindSchema describes one document kind's closed schema.
type kindSchema struct {
	required []string
	// allowed maps every permitted top-level key to its expected type.
	allowed map[string]valueKind
	// element describes the single object-list field's element schema.
	element elementSchema
	// freeText lists the top-level string fields scanned for forbidden
	// phrases. Nested free-text fields are handled via element.freeText.
	freeText []string
}

type elementSchema struct {
	field    string
	required []string
	allowed  map[string]bool
	// enumValues constrains one element key to a closed value set.
	enumKey    string
	enumValues map[string]bool
	freeText   []string
}

// DisclaimerField is the designated disclaimer key, common to all kinds.
// It is allow-listed but deliberately not schema-required: an absent
// disclaimer is the disclaimer check's failure to report, with its own
// error variant, not a generic schema violation.
const DisclaimerField = "disclaimer"

// anatomicalRegions is the allow-list for imaging observation regions.
var anatomicalRegions = map[string]bool{
	"lungs":        true,
	"pleura":       true,
	"heart":        true,
	"mediastinum":  true,
	"bones":        true,
	"soft_tissues": true,
	"abdomen":      true,
	"other":        true,
}

var schemas = map[domain.DocumentKind]kindSchema{
	domain.KindImagingFindings: {
		required: []string{"study_type", "observations"},
		allowed: map[string]valueKind{
			"study_type":    stringValue,
			"observations":  objectListValue,
			"comparison":    stringValue,
			"technique":     stringValue,
			DisclaimerField: stringValue,
		},
		element: elementSchema{
			field:      "observations",
			required:   []string{"region", "description"},
			allowed:    map[string]bool{"region": true, "description": true, "laterality": true},
			enumKey:    "region",
			enumValues: anatomicalRegions,
			freeText:   []string{"description"},
		},
		freeText: []string{"comparison", "technique"},
	},
	domain.KindLabResults: {
		required: []string{"panel", "values"},
		allowed: map[string]valueKind{
			"panel":         stringValue,
			"values":        objectListValue,
			"notes":         stringValue,
			DisclaimerField: stringValue,
		},
		element: elementSchema{
			field:    "values",
			required: []string{"analyte", "value"},
			allowed:  map[string]bool{"analyte": true, "value": true, "unit": true, "reference_range": true},
			freeText: []string{"analyte"},
		},
		freeText: []string{"notes"},
	},
	domain.KindSOAPNote: {
		required: []string{"subjective", "objective", "assessment", "plan"},
		allowed: map[string]valueKind{
			"subjective":    stringValue,
			"objective":     stringValue,
			"assessment":    stringValue,
			"plan":          stringValue,
			DisclaimerField: stringValue,
		},
		freeText: []string{"subjective", "objective", "assessment", "plan"},
	},
}

// Validator checks candidate document structure against the closed schemas.
type Validator struct{}

// NewValidator creates a schema validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate decodes raw text and checks it against the kind's schema.
// Check order: structural decode, required-field presence, then
// allow-list conformance, cheapest failures first.
func (v *Validator) Validate(raw string, kind domain.DocumentKind) (domain.Payload, *domain.ValidationError) {
	sch, ok := schemas[kind]
	if !ok {
		return nil, domain.NewMalformedInput(fmt.Sprintf("unsupported document kind %q", kind))
	}

	var payload map[string]any
	decoder := json.NewDecoder(strings.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		return nil, domain.NewMalformedInput(err.Error())
	}
	if payload == nil {
		return nil, domain.NewMalformedInput("document is not a JSON object")
	}
	if decoder.More() {
		return nil, domain.NewMalformedInput("trailing data after document")
	}

	// Required keys first.
	for _, key := range sch.required {
		if _, present := payload[key]; !present {
			return nil, domain.NewSchemaViolation(key, "required field is missing")
		}
	}

	// No key outside the allow-list. Sorted for deterministic error output.
	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		expected, allowed := sch.allowed[key]
		if !allowed {
			return nil, domain.NewSchemaViolation(key, fmt.Sprintf("key not allowed for %s", kind))
		}
		if verr := checkValue(key, payload[key], expected, sch.element); verr != nil {
			return nil, verr
		}
	}

	return domain.Payload(payload), nil
}

// checkValue verifies one top-level value's type, descending into object
// lists to apply the element allow-list.
func checkValue(key string, value any, expected valueKind, element elementSchema) *domain.ValidationError {
	switch expected {
	case stringValue:
		if _, isString := value.(string); !isString {
			return domain.NewSchemaViolation(key, "expected a string value")
		}
	case objectListValue:
		list, isList := value.([]any)
		if !isList {
			return domain.NewSchemaViolation(key, "expected a list of objects")
		}
		for i, el := range list {
			obj, isObj := el.(map[string]any)
			if !isObj {
				return domain.NewSchemaViolation(elementPath(key, i), "expected an object")
			}
			if verr := checkElement(key, i, obj, element); verr != nil {
				return verr
			}
		}
	}
	return nil
}

// checkElement applies the nested element schema: required keys, key
// allow-list, string values, and the closed value set where one applies.
func checkElement(field string, index int, obj map[string]any, element elementSchema) *domain.ValidationError {
	for _, key := range element.required {
		if _, present := obj[key]; !present {
			return domain.NewSchemaViolation(elementPath(field, index)+"."+key, "required field is missing")
		}
	}

	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if !element.allowed[key] {
			return domain.NewSchemaViolation(elementPath(field, index)+"."+key, "key not allowed")
		}
		s, isString := obj[key].(string)
		if !isString {
			return domain.NewSchemaViolation(elementPath(field, index)+"."+key, "expected a string value")
		}
		if key == element.enumKey && !element.enumValues[s] {
			return domain.NewSchemaViolation(elementPath(field, index)+"."+key, fmt.Sprintf("value %q not in allowed set", s))
		}
	}
	return nil
}

func elementPath(field string, index int) string {
	return fmt.Sprintf("%s[%d]", field, index)
}

// FreeTextField is one scannable field of a validated payload, with the
// path used in rejection reporting.
type FreeTextField struct {
	Path  string
	Value string
}

// FreeTextFields enumerates the free-text fields of a schema-conformant
// payload for the given kind. The set is fixed per kind, never discovered
// dynamically — dynamic discovery would reopen the unexpected-field hole
// the closed schema exists to shut.
func (v *Validator) FreeTextFields(kind domain.DocumentKind, payload domain.Payload) []FreeTextField {
	sch, ok := schemas[kind]
	if !ok {
		return nil
	}

	var fields []FreeTextField
	for _, name := range sch.freeText {
		if value, present := payload.StringField(name); present {
			fields = append(fields, FreeTextField{Path: name, Value: value})
		}
	}

	if sch.element.field != "" {
		items, _ := payload.ListField(sch.element.field)
		for i, item := range items {
			for _, name := range sch.element.freeText {
				if value, isString := item[name].(string); isString {
					fields = append(fields, FreeTextField{
						Path:  elementPath(sch.element.field, i) + "." + name,
						Value: value,
					})
				}
			}
		}
	}

	return fields
}
