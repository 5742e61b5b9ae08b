package pipegen

import (
	"github.com/simon020286/pipegen/actions"
	"github.com/simon020286/pipegen/artifact"
	"github.com/simon020286/pipegen/iam"
	"github.com/simon020286/pipegen/models"
	"github.com/simon020286/pipegen/store"
)

// Build validates stages and assembles a Definition. Checks stop at the first
// failure, in this order:
//   - the pipeline has stages and the first one only holds Source actions
//   - stage names, action names within a stage and run orders are valid and
//     the artifact store has a location
//   - every action configuration validates against its provider
//   - stage by stage, inputs resolve to outputs of earlier stages and
//     template paths name one of the action's inputs
//   - no output name is produced twice
//
// Build never returns a partial Definition.
func Build(stages []models.Stage, role iam.RoleDefinition, artifactStore store.ArtifactStore) (*Definition, error) {
	if len(stages) == 0 {
		return nil, models.ErrEmptyPipeline
	}
	first := stages[0]
	for _, a := range first.Actions {
		if a.Category != models.CategorySource {
			return nil, &models.FirstStageError{Stage: first.Name, Action: a.Name, Category: a.Category}
		}
	}

	if err := checkStructure(stages); err != nil {
		return nil, err
	}
	artifactStore = artifactStore.Clone().WithDefaults()
	if err := artifactStore.Validate(); err != nil {
		return nil, err
	}

	def := &Definition{
		Role:          cloneRole(role),
		ArtifactStore: artifactStore,
		Stages:        make([]Stage, len(stages)),
	}

	// Phase 1: validate every provider configuration
	for i, s := range stages {
		def.Stages[i] = Stage{Name: s.Name, Actions: make([]Action, len(s.Actions))}
		for j, a := range s.Actions {
			cfg, err := actions.Validate(a.Category, a.Provider, a.Configuration)
			if err != nil {
				return nil, &models.ActionError{Stage: s.Name, Action: a.Name, Err: err}
			}
			placed := a.Clone()
			placed.RunOrder = a.EffectiveRunOrder()
			def.Stages[i].Actions[j] = Action{Action: placed, Type: cfg.TypeID(), Config: cfg}
		}
	}

	// Phase 2: every input resolves to an output of an earlier stage
	if err := resolveInputs(def.Stages); err != nil {
		return nil, err
	}

	// Phase 3: every output is produced exactly once
	registry := artifact.NewRegistry()
	for i, s := range def.Stages {
		for _, a := range s.Actions {
			for _, out := range a.OutputArtifacts {
				p := artifact.Producer{StageIndex: i, Stage: s.Name, Action: a.Name}
				if err := registry.Register(out.Name, p); err != nil {
					return nil, err
				}
			}
		}
	}

	return def, nil
}

// resolveInputs walks the stages in order. A stage's outputs become visible
// only after all of its inputs have been checked, so an action can never
// consume an artifact of its own stage.
func resolveInputs(stages []Stage) error {
	produced := make(map[string]bool)
	for _, s := range stages {
		for _, a := range s.Actions {
			for _, in := range a.InputArtifacts {
				if !produced[in.Name] {
					return models.ErrUnresolvedArtifact(in.Name, a.Name)
				}
			}
			if err := checkTemplatePath(a); err != nil {
				return err
			}
		}
		for _, a := range s.Actions {
			for _, out := range a.OutputArtifacts {
				produced[out.Name] = true
			}
		}
	}
	return nil
}

func checkStructure(stages []models.Stage) error {
	stageNames := make(map[string]bool, len(stages))
	for _, s := range stages {
		if stageNames[s.Name] {
			return &models.DuplicateStageError{Name: s.Name}
		}
		stageNames[s.Name] = true

		actionNames := make(map[string]bool, len(s.Actions))
		for _, a := range s.Actions {
			if actionNames[a.Name] {
				return &models.DuplicateActionError{Stage: s.Name, Action: a.Name}
			}
			actionNames[a.Name] = true
			if a.RunOrder < 0 {
				return &models.InvalidRunOrderError{Action: a.Name, RunOrder: a.RunOrder}
			}
		}
	}
	return nil
}

// checkTemplatePath verifies that a CloudFormation deploy reading its template
// from "Artifact::path" consumes that artifact
func checkTemplatePath(a Action) error {
	cfn, ok := a.Config.(actions.CloudFormationDeploy)
	if !ok {
		return nil
	}
	name, ok := cfn.TemplateArtifact()
	if !ok {
		return nil
	}
	for _, in := range a.InputArtifacts {
		if in.Name == name {
			return nil
		}
	}
	return &models.TemplatePathError{Action: a.Name, Artifact: name}
}
