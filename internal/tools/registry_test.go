package tools

import (
	"context"
	"errors"
	"testing"
)

// fakeTool is a minimal Tool for registry and executor tests.
type fakeTool struct {
	spec Spec
	run  func(ctx context.Context, args map[string]any) Outcome
}

func (t *fakeTool) Spec() Spec { return t.spec }

func (t *fakeTool) Run(ctx context.Context, args map[string]any) Outcome {
	if t.run == nil {
		return Ok("ok")
	}
	return t.run(ctx, args)
}

func newFakeTool(name string, effect EffectClass) *fakeTool {
	return &fakeTool{spec: Spec{Name: name, Effect: effect}}
}

func TestRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(newFakeTool("alpha", EffectReadOnly)); err != nil {
		t.Fatalf("unexpected error on Register: %v", err)
	}

	tool, err := reg.Lookup("alpha")
	if err != nil {
		t.Fatalf("unexpected error on Lookup: %v", err)
	}
	if tool.Spec().Name != "alpha" {
		t.Errorf("expected tool alpha, got %s", tool.Spec().Name)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(newFakeTool("alpha", EffectReadOnly)); err != nil {
		t.Fatalf("unexpected error on first Register: %v", err)
	}

	err := reg.Register(newFakeTool("alpha", EffectMutating))
	if err == nil {
		t.Fatal("expected ErrDuplicateTool, got nil")
	}
	if !errors.Is(err, ErrDuplicateTool) {
		t.Fatalf("expected ErrDuplicateTool, got %v", err)
	}
}

func TestLookupUnknown(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Lookup("nope")
	if err == nil {
		t.Fatal("expected ErrUnknownTool, got nil")
	}
	if !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
}

func TestEffect(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(newFakeTool("reader", EffectReadOnly)); err != nil {
		t.Fatalf("unexpected error on Register: %v", err)
	}

	if got := reg.Effect("reader"); got != EffectReadOnly {
		t.Errorf("expected read-only effect, got %s", got)
	}
	// Unknown names must report the conservative class.
	if got := reg.Effect("mystery"); got != EffectMutating {
		t.Errorf("expected mutating effect for unknown tool, got %s", got)
	}
}

func TestSpecsSorted(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := reg.Register(newFakeTool(name, EffectReadOnly)); err != nil {
			t.Fatalf("unexpected error on Register: %v", err)
		}
	}

	specs := reg.Specs()
	if len(specs) != 3 {
		t.Fatalf("expected 3 specs, got %d", len(specs))
	}
	want := []string{"alpha", "mid", "zeta"}
	for i, spec := range specs {
		if spec.Name != want[i] {
			t.Errorf("expected spec %d to be %s, got %s", i, want[i], spec.Name)
		}
	}
}
