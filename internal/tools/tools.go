// Package tools provides a registry of callable tools with declared
// parameter schemas. Arguments are validated against the schema before
// the tool function runs, so handlers can assume well-formed input.
package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Param describes one tool parameter.
type Param struct {
	// Type is the expected primitive type: "string", "number", "boolean".
	Type string `json:"type"`
	// Description explains the parameter for prompt construction.
	Description string `json:"description"`
}

// Schema declares a tool's name, purpose, and parameters.
type Schema struct {
	// Name uniquely identifies the tool within a registry.
	Name string `json:"name"`
	// Description explains what the tool does.
	Description string `json:"description"`
	// Parameters maps parameter names to their declarations.
	Parameters map[string]Param `json:"parameters"`
	// Required lists parameter names that must be present.
	Required []string `json:"required"`
}

// Func executes a tool call with validated arguments.
type Func func(ctx context.Context, args map[string]any) (string, error)

// ValidationError reports arguments that do not satisfy a tool's schema.
// It is recoverable: the caller can correct the arguments and retry.
type ValidationError struct {
	Tool   string
	Param  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("tool %q: parameter %q: %s", e.Tool, e.Param, e.Reason)
}

// ErrUnknownTool reports a call to a tool the registry does not have.
type ErrUnknownTool struct {
	Name string
}

func (e *ErrUnknownTool) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

type registered struct {
	schema Schema
	fn     Func
}

// Registry holds tools by name. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]registered
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]registered)}
}

// Register adds a tool. Registering a name twice is an error.
func (r *Registry) Register(schema Schema, fn Func) error {
	if schema.Name == "" {
		return fmt.Errorf("tool schema has no name")
	}
	if fn == nil {
		return fmt.Errorf("tool %q has no function", schema.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[schema.Name]; exists {
		return fmt.Errorf("tool %q already registered", schema.Name)
	}
	r.tools[schema.Name] = registered{schema: schema, fn: fn}
	return nil
}

// Schemas returns all registered schemas, ordered by name.
func (r *Registry) Schemas() []Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Schema, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.schema)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Call validates args against the tool's schema and runs it.
// Validation failures return a *ValidationError without running the tool.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return "", &ErrUnknownTool{Name: name}
	}

	if err := validate(t.schema, args); err != nil {
		return "", err
	}
	return t.fn(ctx, args)
}

func validate(schema Schema, args map[string]any) error {
	for _, req := range schema.Required {
		if _, ok := args[req]; !ok {
			return &ValidationError{Tool: schema.Name, Param: req, Reason: "required parameter missing"}
		}
	}

	for name, value := range args {
		decl, ok := schema.Parameters[name]
		if !ok {
			return &ValidationError{Tool: schema.Name, Param: name, Reason: "not declared in schema"}
		}
		if !typeMatches(decl.Type, value) {
			return &ValidationError{
				Tool:   schema.Name,
				Param:  name,
				Reason: fmt.Sprintf("expected %s, got %T", decl.Type, value),
			}
		}
	}
	return nil
}

func typeMatches(declared string, value any) bool {
	switch declared {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		switch value.(type) {
		case int, int64, float64:
			return true
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	default:
		return false
	}
}
