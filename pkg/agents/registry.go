package agents

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownAgent is returned when a name does not resolve to a registered
// definition.
var ErrUnknownAgent = errors.New("agents: unknown agent")

// Entry describes a registered agent.
type Entry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Registry is a thread-safe directory of the definitions known at start-up.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

// NewRegistry creates a Registry holding defs. It fails on a nil definition,
// an empty name, or a duplicate name.
func NewRegistry(defs ...*Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds d to the registry.
func (r *Registry) Register(d *Definition) error {
	if d == nil {
		return errors.New("agents: nil definition")
	}
	if d.Name == "" {
		return errors.New("agents: definition name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.defs[d.Name]; dup {
		return fmt.Errorf("agents: duplicate agent name %q", d.Name)
	}
	r.defs[d.Name] = d

	return nil
}

// Get returns the named definition.
func (r *Registry) Get(name string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownAgent, name)
	}
	return d, nil
}

// List returns all entries sorted by name.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(r.defs))
	for _, d := range r.defs {
		entries = append(entries, Entry{Name: d.Name, Description: d.Description})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	return entries
}

// Validate checks every registered definition: a model must be set, tool
// names must be unique, and each handoff must be the very definition
// registered under its name.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.sortedNames() {
		d := r.defs[name]

		if d.Model == nil {
			return fmt.Errorf("agents: agent %q: model is required", d.Name)
		}

		tools := make(map[string]struct{}, len(d.Tools))
		for _, t := range d.Tools {
			if t.Name == "" || t.Handler == nil {
				return fmt.Errorf("agents: agent %q: tool needs a name and a handler", d.Name)
			}
			if _, dup := tools[t.Name]; dup {
				return fmt.Errorf("agents: agent %q: duplicate tool %q", d.Name, t.Name)
			}
			tools[t.Name] = struct{}{}
		}

		seen := make(map[string]struct{}, len(d.Handoffs))
		for _, h := range d.Handoffs {
			if h == nil {
				return fmt.Errorf("agents: agent %q: nil handoff", d.Name)
			}
			if h.Name == d.Name {
				return fmt.Errorf("agents: agent %q: cannot hand off to itself", d.Name)
			}
			if _, dup := seen[h.Name]; dup {
				return fmt.Errorf("agents: agent %q: duplicate handoff %q", d.Name, h.Name)
			}
			seen[h.Name] = struct{}{}

			if registered, ok := r.defs[h.Name]; !ok || registered != h {
				return fmt.Errorf("agents: agent %q: handoff %w %q", d.Name, ErrUnknownAgent, h.Name)
			}
		}
	}

	return nil
}

func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
