// Package tools provides the registry of agent capabilities and the
// executor that applies them to the local file system and process
// environment. Every tool declares a parameter schema and an effect
// class; the executor validates arguments, scopes paths to the project
// root, and normalizes every result into an Outcome.
package tools

import (
	"fmt"
	"sort"
)

// EffectClass describes the side-effect profile of a tool. The agent
// loop serializes Mutating and Process tools; ReadOnly tools may run
// concurrently within one model turn.
type EffectClass string

const (
	EffectReadOnly EffectClass = "read-only"
	EffectMutating EffectClass = "mutating"
	EffectProcess  EffectClass = "process-spawning"
)

// Spec is the static declaration of a tool: its name, the parameter
// schema advertised to the model, and its effect class.
type Spec struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Params      *Schema     `json:"parameters"`
	Effect      EffectClass `json:"effect"`
}

// Schema is a minimal JSON-Schema object declaration covering the
// needs of the built-in tools: typed properties and required fields.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// Property declares one named parameter.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// ObjectSchema builds an object schema from properties and required names.
func ObjectSchema(props map[string]Property, required ...string) *Schema {
	return &Schema{Type: "object", Properties: props, Required: required}
}

// Validate checks args against the schema: required fields must be
// present and every known property must carry a compatible type.
// Unknown extra arguments are tolerated.
func (s *Schema) Validate(args map[string]any) error {
	if s == nil {
		return nil
	}
	for _, name := range s.Required {
		if _, ok := args[name]; !ok {
			return fmt.Errorf("missing required argument %q", name)
		}
	}
	// Deterministic order keeps error messages stable.
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		prop, ok := s.Properties[name]
		if !ok {
			continue
		}
		if err := checkType(name, prop.Type, args[name]); err != nil {
			return err
		}
	}
	return nil
}

func checkType(name, want string, value any) error {
	switch want {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("argument %q must be a string, got %T", name, value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("argument %q must be a boolean, got %T", name, value)
		}
	case "integer", "number":
		switch value.(type) {
		case float64, int, int64:
		default:
			return fmt.Errorf("argument %q must be a number, got %T", name, value)
		}
	}
	return nil
}

// stringArg returns args[key] as a string, or "" when absent.
func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// boolArg returns args[key] as a bool, or false when absent.
func boolArg(args map[string]any, key string) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return false
}

// intArg returns args[key] as an int, or def when absent. JSON numbers
// decode as float64, so both forms are accepted.
func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return def
	}
}
