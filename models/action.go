package models

import "fmt"

// Category is the kind of operation an action performs
type Category string

const (
	CategorySource Category = "Source"
	CategoryBuild  Category = "Build"
	CategoryInvoke Category = "Invoke"
	CategoryDeploy Category = "Deploy"
)

// Categories lists every supported category
var Categories = []Category{CategorySource, CategoryBuild, CategoryInvoke, CategoryDeploy}

// ParseCategory converts a configuration string to a Category
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown action category '%s'", s)
}

// DefaultRunOrder is applied to actions that leave RunOrder unset
const DefaultRunOrder = 1

// ArtifactRef names an artifact produced by one action and consumed by later ones
type ArtifactRef struct {
	Name string
}

// Artifacts builds a list of references from names
func Artifacts(names ...string) []ArtifactRef {
	refs := make([]ArtifactRef, len(names))
	for i, n := range names {
		refs[i] = ArtifactRef{Name: n}
	}
	return refs
}

// Action is a single operation inside a stage
type Action struct {
	Name            string
	Category        Category
	Provider        string
	Configuration   map[string]Value
	InputArtifacts  []ArtifactRef
	OutputArtifacts []ArtifactRef
	RunOrder        int // 0 means DefaultRunOrder
}

// EffectiveRunOrder returns the run order with the default applied
func (a Action) EffectiveRunOrder() int {
	if a.RunOrder == 0 {
		return DefaultRunOrder
	}
	return a.RunOrder
}

// Clone returns a deep copy of the action
func (a Action) Clone() Action {
	out := a
	if a.Configuration != nil {
		out.Configuration = make(map[string]Value, len(a.Configuration))
		for k, v := range a.Configuration {
			out.Configuration[k] = v
		}
	}
	out.InputArtifacts = append([]ArtifactRef(nil), a.InputArtifacts...)
	out.OutputArtifacts = append([]ArtifactRef(nil), a.OutputArtifacts...)
	return out
}

// Stage is a named, ordered phase of the pipeline
type Stage struct {
	Name    string
	Actions []Action
}

// Clone returns a deep copy of the stage
func (s Stage) Clone() Stage {
	out := Stage{Name: s.Name, Actions: make([]Action, len(s.Actions))}
	for i, a := range s.Actions {
		out.Actions[i] = a.Clone()
	}
	return out
}
