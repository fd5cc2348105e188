package mirror

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const (
	notesSchema    = `{"type": "object", "additionalProperties": {"type": "string"}}`
	messagedSchema = `{"type": "object", "additionalProperties": {"const": true}}`
)

type validator struct {
	notesSchema    *jsonschema.Schema
	messagedSchema *jsonschema.Schema
}

func newValidator() (*validator, error) {
	notes, err := compileSchema("notes.json", notesSchema)
	if err != nil {
		return nil, err
	}
	messaged, err := compileSchema("messaged.json", messagedSchema)
	if err != nil {
		return nil, err
	}
	return &validator{notesSchema: notes, messagedSchema: messaged}, nil
}

func compileSchema(name, src string) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse %s schema: %w", name, err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, doc); err != nil {
		return nil, fmt.Errorf("add %s schema: %w", name, err)
	}
	schema, err := c.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", name, err)
	}
	return schema, nil
}

// decode parses raw and validates it against schema. When validation fails
// the parsed object is returned anyway so valid entries can be salvaged.
func decode(raw json.RawMessage, schema *jsonschema.Schema) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	obj, _ := inst.(map[string]any)
	return obj, schema.Validate(inst)
}

func (v *validator) notes(raw json.RawMessage, logger *slog.Logger) map[string]string {
	out := make(map[string]string)
	obj, err := decode(raw, v.notesSchema)
	if err != nil {
		logger.Warn("invalid notes in store, keeping valid entries", "err", err)
	}
	for id, value := range obj {
		if s, ok := value.(string); ok {
			out[id] = s
		}
	}
	return out
}

func (v *validator) messaged(raw json.RawMessage, logger *slog.Logger) map[string]bool {
	out := make(map[string]bool)
	obj, err := decode(raw, v.messagedSchema)
	if err != nil {
		logger.Warn("invalid messaged flags in store, keeping valid entries", "err", err)
	}
	for id, value := range obj {
		if b, ok := value.(bool); ok && b {
			out[id] = true
		}
	}
	return out
}
