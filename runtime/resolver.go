package runtime

import "sort"

// Matrix is the resolved runtime table for a set of requested tools
type Matrix struct {
	// Mapping is tool -> version -> image for every requested tool
	Mapping map[string]map[string]string
	// ValidTools holds the requested tools in request order, without repeats
	ValidTools []string
	// ValidVersions is the sorted union of the versions of every requested tool
	ValidVersions []string
}

// Resolve looks up each requested tool. It stops at the first tool missing
// from the registry and returns ok=false; callers must then abort the whole
// generation run.
func (r *Registry) Resolve(tools []string) (Matrix, bool) {
	m := Matrix{
		Mapping:       make(map[string]map[string]string, len(tools)),
		ValidTools:    []string{},
		ValidVersions: []string{},
	}
	versions := make(map[string]bool)

	for _, tool := range tools {
		table, exists := r.Versions(tool)
		if !exists {
			return Matrix{}, false
		}
		if _, dup := m.Mapping[tool]; dup {
			continue
		}
		m.Mapping[tool] = table
		m.ValidTools = append(m.ValidTools, tool)
		for v := range table {
			versions[v] = true
		}
	}

	for v := range versions {
		m.ValidVersions = append(m.ValidVersions, v)
	}
	sort.Strings(m.ValidVersions)
	return m, true
}
