package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Registry maps tool names to implementations. Registration happens at
// startup before any run begins; afterwards the registry is read-only, so
// lookups during runs take no lock contention of consequence.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering a duplicate name is an error so that two
// teams cannot silently shadow each other's capabilities.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("tool %q already registered", t.Name())
	}
	r.tools[t.Name()] = t
	return nil
}

// MustRegister registers the given tools and panics on duplicates. Intended
// for startup wiring where a duplicate is a programming error.
func (r *Registry) MustRegister(tools ...Tool) {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Has reports whether the named tool is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns all registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Catalog returns the specs for the named tools, preserving the given order.
// Unknown names are skipped; team catalogs are validated at configuration
// time, not per call.
func (r *Registry) Catalog(names []string) []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]Spec, 0, len(names))
	for _, name := range names {
		t, ok := r.tools[name]
		if !ok {
			continue
		}
		specs = append(specs, Spec{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return specs
}

// DecodeArgs decodes a raw JSON argument payload for display purposes. An
// empty or undecodable payload yields nil; validation happens in Call.
func DecodeArgs(rawArgs string) map[string]any {
	if rawArgs == "" {
		return nil
	}
	args := map[string]any{}
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return nil
	}
	return args
}

// Call decodes raw JSON arguments, looks up the named tool and executes it.
// A missing tool or undecodable argument payload is returned as *ToolError so
// the executor can fold it into context as a failed observation instead of
// crashing the loop.
func (r *Registry) Call(ctx context.Context, name, rawArgs string) (string, error) {
	t, ok := r.Get(name)
	if !ok {
		return "", NewToolError(name, "tool not registered", CodeNotFound)
	}

	args := map[string]any{}
	if rawArgs != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return "", NewToolError(name, fmt.Sprintf("malformed arguments: %v", err), CodeValidation)
		}
	}

	return t.Call(ctx, args)
}
