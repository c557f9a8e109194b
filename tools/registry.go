package tools

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is the in-memory map of registered Tools, keyed by name (spec §9
// "Dynamic dispatch on tools → registry map. A tool is a value {name,
// schema, visibility_fn, guards[], handler_fn} stored in an in-memory map
// keyed by name, built at startup."). Registration happens once at startup;
// lookups happen on every dispatch, so Registry is safe for concurrent
// read-heavy use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool, replacing any previously registered tool of the
// same name. Returns an error if the tool has no name or no handler.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tools: tool must have a name")
	}
	if t.Handler == nil {
		return fmt.Errorf("tools: tool %q must have a handler", t.Name)
	}
	if t.Visibility == nil {
		t.Visibility = VisibleToAll
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name] = t
	return nil
}

// Lookup returns the tool registered under name, regardless of visibility.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Visible returns the tool registered under name if it exists and is
// visible to agent, per spec §4.3 step 2 ("schema + visibility check").
func (r *Registry) Visible(name string, agent AgentView) (Tool, bool) {
	t, ok := r.Lookup(name)
	if !ok || !t.Visibility(agent) {
		return Tool{}, false
	}
	return t, true
}

// Names returns the registered tool names in sorted order, e.g. for
// building a visible-tool list to hand to the model.
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

// VisibleTools returns every registered tool visible to agent, sorted by
// name — the catalog the prompt assembler advertises to the model.
func (r *Registry) VisibleTools(agent AgentView) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		if t.Visibility(agent) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
