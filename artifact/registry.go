// Package artifact tracks artifact names and the actions producing them for a
// single generation run.
package artifact

import (
	"sort"
	"strconv"

	"github.com/simon020286/pipegen/models"
)

// DefaultBase is used when Allocate receives an empty base name
const DefaultBase = "Artifact"

// Producer identifies the action that produces an artifact
type Producer struct {
	StageIndex int // -1 while the action is not yet placed in a stage
	Stage      string
	Action     string
}

// Registry maps artifact names to their producer. A Registry is not safe for
// concurrent use and must not outlive the run that created it.
type Registry struct {
	names    map[string]Producer
	counters map[string]int
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		names:    make(map[string]Producer),
		counters: make(map[string]int),
	}
}

// Allocate returns base if it is unused, otherwise base followed by the next
// value of a per-base counter (base2, base3, ...). The returned name is
// registered to p before return.
func (r *Registry) Allocate(base string, p Producer) string {
	if base == "" {
		base = DefaultBase
	}
	name := base
	for {
		if _, taken := r.names[name]; !taken {
			break
		}
		next := r.counters[base] + 1
		if next < 2 {
			next = 2
		}
		r.counters[base] = next
		name = base + strconv.Itoa(next)
	}
	r.names[name] = p
	return name
}

// Register records name as produced by p
func (r *Registry) Register(name string, p Producer) error {
	if _, taken := r.names[name]; taken {
		return models.ErrDuplicateArtifact(name)
	}
	r.names[name] = p
	return nil
}

// Resolve returns the producer of name
func (r *Registry) Resolve(name string) (Producer, error) {
	p, exists := r.names[name]
	if !exists {
		return Producer{}, models.ErrNotFound(name)
	}
	return p, nil
}

// Count returns the number of registered artifacts
func (r *Registry) Count() int {
	return len(r.names)
}

// List returns all registered names, sorted
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.names))
	for name := range r.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
