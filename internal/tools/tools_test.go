package tools

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func lookupSchema() Schema {
	return Schema{
		Name:        "lookup",
		Description: "Looks up a fact by topic.",
		Parameters: map[string]Param{
			"topic": {Type: "string", Description: "What to look up."},
			"limit": {Type: "number", Description: "Maximum results."},
		},
		Required: []string{"topic"},
	}
}

func TestRegisterAndCall(t *testing.T) {
	r := NewRegistry()
	err := r.Register(lookupSchema(), func(ctx context.Context, args map[string]any) (string, error) {
		return fmt.Sprintf("results for %s", args["topic"]), nil
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	out, err := r.Call(context.Background(), "lookup", map[string]any{"topic": "go routines"})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if out != "results for go routines" {
		t.Errorf("out = %q", out)
	}
}

func TestDuplicateRegistration(t *testing.T) {
	r := NewRegistry()
	fn := func(ctx context.Context, args map[string]any) (string, error) { return "", nil }

	if err := r.Register(lookupSchema(), fn); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register(lookupSchema(), fn); err == nil {
		t.Error("expected error on duplicate registration")
	}
}

func TestCallUnknownTool(t *testing.T) {
	r := NewRegistry()

	_, err := r.Call(context.Background(), "missing", nil)
	var unknown *ErrUnknownTool
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want ErrUnknownTool", err)
	}
	if unknown.Name != "missing" {
		t.Errorf("unknown.Name = %q", unknown.Name)
	}
}

func TestValidation(t *testing.T) {
	r := NewRegistry()
	called := false
	err := r.Register(lookupSchema(), func(ctx context.Context, args map[string]any) (string, error) {
		called = true
		return "", nil
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	tests := []struct {
		name      string
		args      map[string]any
		wantParam string
	}{
		{
			name:      "missing required",
			args:      map[string]any{"limit": 5},
			wantParam: "topic",
		},
		{
			name:      "wrong type",
			args:      map[string]any{"topic": 42},
			wantParam: "topic",
		},
		{
			name:      "undeclared parameter",
			args:      map[string]any{"topic": "x", "verbose": true},
			wantParam: "verbose",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called = false
			_, err := r.Call(context.Background(), "lookup", tt.args)

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if verr.Param != tt.wantParam {
				t.Errorf("verr.Param = %q, want %q", verr.Param, tt.wantParam)
			}
			if called {
				t.Error("tool function ran despite validation failure")
			}
		})
	}
}

func TestNumberAcceptsIntAndFloat(t *testing.T) {
	r := NewRegistry()
	err := r.Register(lookupSchema(), func(ctx context.Context, args map[string]any) (string, error) {
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	for _, limit := range []any{3, int64(3), 3.0} {
		if _, err := r.Call(context.Background(), "lookup", map[string]any{"topic": "x", "limit": limit}); err != nil {
			t.Errorf("limit %T rejected: %v", limit, err)
		}
	}
}

func TestSchemasSorted(t *testing.T) {
	r := NewRegistry()
	fn := func(ctx context.Context, args map[string]any) (string, error) { return "", nil }

	for _, name := range []string{"zeta", "alpha", "mid"} {
		s := Schema{Name: name, Parameters: map[string]Param{}}
		if err := r.Register(s, fn); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	schemas := r.Schemas()
	want := []string{"alpha", "mid", "zeta"}
	for i, w := range want {
		if schemas[i].Name != w {
			t.Errorf("schemas[%d] = %q, want %q", i, schemas[i].Name, w)
		}
	}
}
