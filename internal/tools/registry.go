package tools

import (
	"context"
	"fmt"
	"sort"
)

// Common sentinel errors.
var (
	ErrDuplicateTool = fmt.Errorf("tool name already registered")
	ErrUnknownTool   = fmt.Errorf("unknown tool")
)

// Tool is one invocable capability. Run receives arguments that have
// already passed schema validation and must return all failure as an
// Outcome, never panic.
type Tool interface {
	Spec() Spec
	Run(ctx context.Context, args map[string]any) Outcome
}

// Registry is the fixed catalogue of tools. It is populated once at
// startup and read-only afterwards, so concurrent lookups need no
// locking.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register inserts a tool. Registering the same name twice returns
// ErrDuplicateTool.
func (r *Registry) Register(t Tool) error {
	name := t.Spec().Name
	if name == "" {
		return fmt.Errorf("tool has empty name")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}
	r.tools[name] = t
	return nil
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return t, nil
}

// Effect returns the effect class of a registered tool. Unknown names
// report EffectMutating so callers err on the side of serializing.
func (r *Registry) Effect(name string) EffectClass {
	t, ok := r.tools[name]
	if !ok {
		return EffectMutating
	}
	return t.Spec().Effect
}

// Specs returns the catalogue sorted by name, for encoding into model
// requests and for display.
func (r *Registry) Specs() []Spec {
	specs := make([]Spec, 0, len(r.tools))
	for _, t := range r.tools {
		specs = append(specs, t.Spec())
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.tools) }
