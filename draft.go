package pipegen

import (
	"github.com/simon020286/pipegen/artifact"
	"github.com/simon020286/pipegen/models"
)

// OutputSuffix is appended to an action name to form its default output name
const OutputSuffix = "Output"

// Draft assembles stages in code. Action constructors allocate output names
// from the draft's own registry so that two actions with the same name never
// collide on their outputs. A Draft is not safe for concurrent use.
type Draft struct {
	stages   []models.Stage
	registry *artifact.Registry
}

// NewDraft creates an empty draft
func NewDraft() *Draft {
	return &Draft{registry: artifact.NewRegistry()}
}

// AddStage appends a stage holding actions
func (d *Draft) AddStage(name string, actions ...models.Action) *Draft {
	s := models.Stage{Name: name, Actions: make([]models.Action, len(actions))}
	for i, a := range actions {
		s.Actions[i] = a.Clone()
	}
	d.stages = append(d.stages, s)
	return d
}

// Stages returns a copy of the stages added so far
func (d *Draft) Stages() []models.Stage {
	out := make([]models.Stage, len(d.stages))
	for i, s := range d.stages {
		out[i] = s.Clone()
	}
	return out
}

// Source creates a Source action with one allocated output
func (d *Draft) Source(name, provider string, cfg map[string]models.Value) models.Action {
	return d.action(name, models.CategorySource, provider, cfg, nil, true)
}

// Build creates a Build action consuming inputs, with one allocated output
func (d *Draft) Build(name, provider string, cfg map[string]models.Value, inputs ...string) models.Action {
	return d.action(name, models.CategoryBuild, provider, cfg, inputs, true)
}

// Invoke creates an Invoke action consuming inputs, with one allocated output
func (d *Draft) Invoke(name, provider string, cfg map[string]models.Value, inputs ...string) models.Action {
	return d.action(name, models.CategoryInvoke, provider, cfg, inputs, true)
}

// Deploy creates a Deploy action consuming inputs. Deploys produce nothing.
func (d *Draft) Deploy(name, provider string, cfg map[string]models.Value, inputs ...string) models.Action {
	return d.action(name, models.CategoryDeploy, provider, cfg, inputs, false)
}

func (d *Draft) action(name string, category models.Category, provider string, cfg map[string]models.Value, inputs []string, produces bool) models.Action {
	a := models.Action{
		Name:           name,
		Category:       category,
		Provider:       provider,
		Configuration:  cfg,
		InputArtifacts: models.Artifacts(inputs...),
	}
	if produces {
		out := d.registry.Allocate(name+OutputSuffix, artifact.Producer{StageIndex: -1, Action: name})
		a.OutputArtifacts = models.Artifacts(out)
	}
	return a.Clone()
}

// Output returns the name of the first output of a, or "" when it has none
func Output(a models.Action) string {
	if len(a.OutputArtifacts) == 0 {
		return ""
	}
	return a.OutputArtifacts[0].Name
}
