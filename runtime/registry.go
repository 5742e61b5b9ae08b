// Package runtime resolves build tool names into the version to container
// image table used to constrain the runtime parameters of a template.
package runtime

import (
	"fmt"
	"sort"
)

// Entry is a single tool/version/image triple
type Entry struct {
	Tool    string
	Version string
	Image   string
}

// Registry maintains the known tool -> version -> image triples
type Registry struct {
	tools map[string]map[string]string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]map[string]string),
	}
}

// Register adds an entry. Registering the same tool and version twice with a
// different image is an error.
func (r *Registry) Register(e Entry) error {
	if e.Tool == "" || e.Version == "" || e.Image == "" {
		return fmt.Errorf("runtime entry requires tool, version and image: %+v", e)
	}
	versions, ok := r.tools[e.Tool]
	if !ok {
		versions = make(map[string]string)
		r.tools[e.Tool] = versions
	}
	if existing, ok := versions[e.Version]; ok && existing != e.Image {
		return fmt.Errorf("runtime %s %s already registered with image %s", e.Tool, e.Version, existing)
	}
	versions[e.Version] = e.Image
	return nil
}

// Versions returns the version -> image table of a tool
func (r *Registry) Versions(tool string) (map[string]string, bool) {
	versions, exists := r.tools[tool]
	if !exists {
		return nil, false
	}
	out := make(map[string]string, len(versions))
	for v, img := range versions {
		out[v] = img
	}
	return out, true
}

// List returns all registered tool names, sorted
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entries returns every triple sorted by tool then version
func (r *Registry) Entries() []Entry {
	var entries []Entry
	for _, tool := range r.List() {
		versions := r.tools[tool]
		keys := make([]string, 0, len(versions))
		for v := range versions {
			keys = append(keys, v)
		}
		sort.Strings(keys)
		for _, v := range keys {
			entries = append(entries, Entry{Tool: tool, Version: v, Image: versions[v]})
		}
	}
	return entries
}

// Count returns the number of registered tools
func (r *Registry) Count() int {
	return len(r.tools)
}
