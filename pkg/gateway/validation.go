package gateway

import (
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Validator compiles each registered tool's parameter list into a JSON
// Schema once, then validates incoming params against it before dispatch —
// the same generate-once/validate-per-call split as the teacher's
// ToolExecutor, adapted from its flat type+description schema to the richer
// enum/range/pattern constraints the memory tools need.
type Validator struct {
	mu      sync.RWMutex
	schemas map[string]*gojsonschema.Schema
	defs    map[string]ToolDefinition
}

// NewValidator constructs an empty Validator.
func NewValidator() *Validator {
	return &Validator{
		schemas: make(map[string]*gojsonschema.Schema),
		defs:    make(map[string]ToolDefinition),
	}
}

// Register compiles def's parameters into a JSON Schema and stores it under
// def.Name, replacing any prior definition of the same name.
func (v *Validator) Register(def ToolDefinition) error {
	schema, err := buildSchema(def)
	if err != nil {
		return fmt.Errorf("compile schema for %s: %w", def.Name, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.schemas[def.Name] = schema
	v.defs[def.Name] = def
	return nil
}

// Validate checks params against the compiled schema for toolName.
func (v *Validator) Validate(toolName string, params map[string]interface{}) error {
	v.mu.RLock()
	schema, ok := v.schemas[toolName]
	v.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no schema registered for tool %q", toolName)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(params))
	if err != nil {
		return err
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("validation failed: %v", msgs)
	}
	return nil
}

// Definitions returns every registered tool's definition, for tools/list.
func (v *Validator) Definitions() []ToolDefinition {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]ToolDefinition, 0, len(v.defs))
	for _, d := range v.defs {
		out = append(out, d)
	}
	return out
}

func buildSchema(def ToolDefinition) (*gojsonschema.Schema, error) {
	schemaMap := map[string]interface{}{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           map[string]interface{}{},
	}
	properties := schemaMap["properties"].(map[string]interface{})
	var required []string

	for _, p := range def.Parameters {
		properties[p.Name] = paramSchema(p)
		if p.Required {
			required = append(required, p.Name)
		}
	}
	if len(required) > 0 {
		schemaMap["required"] = required
	}

	loader := gojsonschema.NewGoLoader(schemaMap)
	return gojsonschema.NewSchema(loader)
}

func paramSchema(p ToolParameter) map[string]interface{} {
	m := map[string]interface{}{
		"type":        p.Type,
		"description": p.Description,
	}
	if p.Default != nil {
		m["default"] = p.Default
	}
	if len(p.Enum) > 0 {
		enum := make([]interface{}, len(p.Enum))
		for i, e := range p.Enum {
			enum[i] = e
		}
		m["enum"] = enum
	}
	if p.Minimum != nil {
		m["minimum"] = *p.Minimum
	}
	if p.Maximum != nil {
		m["maximum"] = *p.Maximum
	}
	if p.MaxLength != nil {
		m["maxLength"] = *p.MaxLength
	}
	if p.Pattern != "" {
		m["pattern"] = p.Pattern
	}
	if p.MaxItems != nil {
		m["maxItems"] = *p.MaxItems
	}
	if p.Items != nil {
		m["items"] = paramSchema(*p.Items)
	}
	return m
}
