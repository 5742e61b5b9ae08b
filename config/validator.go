package config

import (
	"fmt"

	"github.com/simon020286/pipegen/iam"
	"github.com/simon020286/pipegen/models"
)

// ValidationError reports a structural defect in a configuration file
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Validate checks the parts of the configuration the core does not: required
// names, parseable categories and capabilities. Stage topology and provider
// configuration are left to the pipeline builder.
func (c *PipelineConfig) Validate() error {
	if c.Name == "" {
		return invalid("name", "pipeline name is required")
	}

	if _, err := iam.ParseCapabilities(c.Role.Capabilities); err != nil {
		return invalid("role.capabilities", "%v", err)
	}

	if c.ArtifactStore.Bucket != nil && c.ArtifactStore.Bucket.LifecycleDays < 0 {
		return invalid("artifact_store.bucket.lifecycle_days", "must not be negative")
	}

	if c.BuildProject != nil && len(c.Runtimes) == 0 {
		return invalid("build_project", "at least one runtime is required to pick the project image")
	}

	for i, stage := range c.Stages {
		field := fmt.Sprintf("stages[%d]", i)
		if stage.Name == "" {
			return invalid(field+".name", "stage name is required")
		}
		if len(stage.Actions) == 0 {
			return invalid(field+".actions", "stage '%s' must have at least one action", stage.Name)
		}

		for j, action := range stage.Actions {
			if err := validateAction(fmt.Sprintf("%s.actions[%d]", field, j), action); err != nil {
				return err
			}
		}
	}

	return nil
}

func validateAction(field string, a ActionConfig) error {
	if a.Name == "" {
		return invalid(field+".name", "action name is required")
	}
	if _, err := models.ParseCategory(a.Category); err != nil {
		return invalid(field+".category", "%v", err)
	}
	if a.Provider == "" {
		return invalid(field+".provider", "provider is required for action '%s'", a.Name)
	}
	for i, name := range a.Inputs {
		if name == "" {
			return invalid(fmt.Sprintf("%s.inputs[%d]", field, i), "artifact name is required")
		}
	}
	for i, name := range a.Outputs {
		if name == "" {
			return invalid(fmt.Sprintf("%s.outputs[%d]", field, i), "artifact name is required")
		}
	}
	return nil
}
