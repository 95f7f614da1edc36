package dialogue

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/jsonschema-go/jsonschema"
)

// SchemaFor returns the JSON schema of a Dialogue in the given shape, in the
// strict form structured-output APIs expect: every property required and no
// additional properties.
func SchemaFor(shape Shape) (*jsonschema.Schema, error) {
	s, err := jsonschema.For[Dialogue](nil)
	if err != nil {
		return nil, fmt.Errorf("build dialogue schema: %w", err)
	}
	strict(s)

	min, max := shape.ItemRange()
	items := s.Properties["dialogue"]
	if items == nil || items.Items == nil || items.Items.Properties["speaker"] == nil {
		return nil, fmt.Errorf("build dialogue schema: unexpected layout")
	}
	items.Description = fmt.Sprintf("list of dialogue items, typically between %d and %d items", min, max)

	enum := make([]any, 0, len(shape.Speakers()))
	for _, sp := range shape.Speakers() {
		enum = append(enum, string(sp))
	}
	items.Items.Properties["speaker"].Enum = enum
	return s, nil
}

// SchemaJSON renders SchemaFor as indented JSON for providers that only
// accept the schema inside the prompt.
func SchemaJSON(shape Shape) (string, error) {
	s, err := SchemaFor(shape)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal dialogue schema: %w", err)
	}
	return string(data), nil
}

func strict(s *jsonschema.Schema) {
	if s == nil {
		return
	}
	// Slices come back nullable as Types ["null", "array"]; the model must
	// always send a value.
	if s.Type == "" {
		for _, t := range s.Types {
			if t != "null" {
				s.Type = t
				break
			}
		}
		s.Types = nil
	}
	switch s.Type {
	case "array":
		strict(s.Items)
	case "object":
		s.AdditionalProperties = &jsonschema.Schema{Not: &jsonschema.Schema{}}
		s.Required = s.Required[:0]
		for name, prop := range s.Properties {
			s.Required = append(s.Required, name)
			strict(prop)
		}
		sort.Strings(s.Required)
	}
}
