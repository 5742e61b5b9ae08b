// Package pipegen assembles validated multi-stage delivery pipeline
// definitions together with their execution role and runtime matrix.
package pipegen

import (
	"github.com/simon020286/pipegen/actions"
	"github.com/simon020286/pipegen/iam"
	"github.com/simon020286/pipegen/models"
	"github.com/simon020286/pipegen/store"
)

// Action is a placed action together with its validated provider configuration
type Action struct {
	models.Action
	Type   actions.TypeID
	Config actions.Config
}

// Stage is a placed stage of a Definition
type Stage struct {
	Name    string
	Actions []Action
}

// Definition is the result of a successful Build. It shares no memory with the
// stages passed to Build.
type Definition struct {
	Role          iam.RoleDefinition
	ArtifactStore store.ArtifactStore
	Stages        []Stage
}

// ActionCount returns the number of actions across all stages
func (d *Definition) ActionCount() int {
	n := 0
	for _, s := range d.Stages {
		n += len(s.Actions)
	}
	return n
}

// Capabilities returns the role capabilities the pipeline's actions need, in
// first-use order. S3Access is always present since every pipeline reads and
// writes its artifact store.
func (d *Definition) Capabilities() []iam.Capability {
	return CapabilitiesFor(d.modelStages())
}

func (d *Definition) modelStages() []models.Stage {
	out := make([]models.Stage, len(d.Stages))
	for i, s := range d.Stages {
		out[i].Name = s.Name
		for _, a := range s.Actions {
			out[i].Actions = append(out[i].Actions, a.Action)
		}
	}
	return out
}

// CapabilitiesFor derives the capability set required by stages
func CapabilitiesFor(stages []models.Stage) []iam.Capability {
	caps := []iam.Capability{iam.S3Access}
	seen := map[iam.Capability]bool{iam.S3Access: true}
	add := func(c iam.Capability) {
		if !seen[c] {
			seen[c] = true
			caps = append(caps, c)
		}
	}

	for _, s := range stages {
		for _, a := range s.Actions {
			switch {
			case a.Category == models.CategorySource && a.Provider == "CodeCommit":
				add(iam.CodeCommitAccess)
			case a.Category == models.CategoryBuild && a.Provider == "CodeBuild":
				add(iam.CodeBuildAccess)
			case a.Category == models.CategoryInvoke && a.Provider == "Lambda":
				add(iam.LambdaInvoke)
			case a.Category == models.CategoryDeploy && a.Provider == "CloudFormation":
				add(iam.CloudFormationDeploy)
			}
		}
	}
	return caps
}

func cloneRole(r iam.RoleDefinition) iam.RoleDefinition {
	out := r
	out.ManagedPolicyARNs = append([]string(nil), r.ManagedPolicyARNs...)
	out.Statements = make([]iam.PolicyStatement, len(r.Statements))
	for i, st := range r.Statements {
		c := st
		c.Actions = append([]string(nil), st.Actions...)
		c.Resources = append([]string(nil), st.Resources...)
		if st.Condition != nil {
			c.Condition = make(map[string]map[string][]string, len(st.Condition))
			for op, kv := range st.Condition {
				inner := make(map[string][]string, len(kv))
				for k, v := range kv {
					inner[k] = append([]string(nil), v...)
				}
				c.Condition[op] = inner
			}
		}
		out.Statements[i] = c
	}
	return out
}
