// Package config loads pipeline configurations from YAML or HCL files and
// converts them into the stage, role and artifact store inputs of a
// generation run.
package config

import (
	"fmt"

	"github.com/simon020286/pipegen/iam"
	"github.com/simon020286/pipegen/models"
	"github.com/simon020286/pipegen/project"
	"github.com/simon020286/pipegen/store"
)

// PipelineConfig represents the complete pipeline configuration
type PipelineConfig struct {
	Name          string              `yaml:"name"`
	Description   string              `yaml:"description,omitempty"`
	Variables     map[string]any      `yaml:"variables,omitempty"` // Reusable values for $var: and $js:
	ArtifactStore ArtifactStoreConfig `yaml:"artifact_store"`
	Role          RoleConfig          `yaml:"role,omitempty"`
	Runtimes      []string            `yaml:"runtimes,omitempty"` // Build tools offered through the runtime parameters
	BuildProject  *BuildProjectConfig `yaml:"build_project,omitempty"`
	Stages        []StageConfig       `yaml:"stages"`
}

// ArtifactStoreConfig configures where artifacts are kept
type ArtifactStoreConfig struct {
	Type     string        `yaml:"type,omitempty"`
	Location any           `yaml:"location,omitempty"`
	Bucket   *BucketConfig `yaml:"bucket,omitempty"` // Generate the bucket in the template
}

// BucketConfig configures a generated artifact bucket
type BucketConfig struct {
	Name          any                `yaml:"name,omitempty"`
	Encryption    bool               `yaml:"encryption,omitempty"`
	Lifecycle     bool               `yaml:"lifecycle,omitempty"`
	LifecycleDays int                `yaml:"lifecycle_days,omitempty"` // 0 means store.DefaultLifecycle
	Replication   *ReplicationConfig `yaml:"replication,omitempty"`
	Tags          map[string]string  `yaml:"tags,omitempty"`
}

// ReplicationConfig configures cross-bucket replication
type ReplicationConfig struct {
	Role                      any    `yaml:"role"`
	DestinationBucket         string `yaml:"destination_bucket"`
	KMSKeyID                  any    `yaml:"kms_key_id,omitempty"`
	ReplicateEncryptedObjects bool   `yaml:"replicate_encrypted_objects,omitempty"`
}

// BuildProjectConfig configures a build project whose image is chosen from
// the runtimes through the template parameters
type BuildProjectConfig struct {
	Name        any               `yaml:"name,omitempty"`
	ComputeType string            `yaml:"compute_type,omitempty"`
	ServiceRole any               `yaml:"service_role,omitempty"` // A dedicated role is generated when empty
	Environment map[string]any    `yaml:"environment,omitempty"`
	Tags        map[string]string `yaml:"tags,omitempty"`
}

// RoleConfig configures the execution role
type RoleConfig struct {
	TrustPrincipal    string   `yaml:"trust_principal,omitempty"`
	Path              string   `yaml:"path,omitempty"`
	ArtifactBucketARN string   `yaml:"artifact_bucket_arn,omitempty"`
	Capabilities      []string `yaml:"capabilities,omitempty"` // Derived from the stages when empty
	PassRoleServices  []string `yaml:"pass_role_services,omitempty"`
	ManagedPolicyARNs []string `yaml:"managed_policy_arns,omitempty"`
}

// StageConfig represents the configuration of a stage
type StageConfig struct {
	Name    string         `yaml:"name"`
	Actions []ActionConfig `yaml:"actions"`
}

// ActionConfig represents the configuration of an action
type ActionConfig struct {
	Name          string         `yaml:"name"`
	Category      string         `yaml:"category"`
	Provider      string         `yaml:"provider"`
	Configuration map[string]any `yaml:"configuration,omitempty"`
	Inputs        []string       `yaml:"inputs,omitempty"`
	Outputs       []string       `yaml:"outputs,omitempty"`
	RunOrder      int            `yaml:"run_order,omitempty"`
}

// Resolver returns the value resolver bound to the configuration variables
func (c *PipelineConfig) Resolver() *Resolver {
	return NewResolver(c.Variables)
}

// ToStages validates the configuration and converts it into stages. String
// values are parsed with the configuration resolver.
func (c *PipelineConfig) ToStages() ([]models.Stage, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	r := c.Resolver()
	stages := make([]models.Stage, len(c.Stages))
	for i, sc := range c.Stages {
		stages[i] = models.Stage{Name: sc.Name, Actions: make([]models.Action, len(sc.Actions))}
		for j, ac := range sc.Actions {
			a, err := ac.toAction(r)
			if err != nil {
				return nil, invalid(fmt.Sprintf("stages[%d].actions[%d]", i, j), "%v", err)
			}
			stages[i].Actions[j] = a
		}
	}
	return stages, nil
}

func (ac ActionConfig) toAction(r *Resolver) (models.Action, error) {
	category, err := models.ParseCategory(ac.Category)
	if err != nil {
		return models.Action{}, err
	}

	var cfg map[string]models.Value
	if ac.Configuration != nil {
		cfg = make(map[string]models.Value, len(ac.Configuration))
		for key, raw := range ac.Configuration {
			v, err := r.Value(raw)
			if err != nil {
				return models.Action{}, fmt.Errorf("configuration key '%s': %w", key, err)
			}
			cfg[key] = v
		}
	}

	return models.Action{
		Name:            ac.Name,
		Category:        category,
		Provider:        ac.Provider,
		Configuration:   cfg,
		InputArtifacts:  models.Artifacts(ac.Inputs...),
		OutputArtifacts: models.Artifacts(ac.Outputs...),
		RunOrder:        ac.RunOrder,
	}, nil
}

// Parameters converts the role configuration into composer parameters
func (rc RoleConfig) Parameters() iam.Parameters {
	return iam.Parameters{
		TrustPrincipal:    rc.TrustPrincipal,
		Path:              rc.Path,
		ArtifactBucketARN: rc.ArtifactBucketARN,
		PassRoleServices:  append([]string(nil), rc.PassRoleServices...),
		ManagedPolicyARNs: append([]string(nil), rc.ManagedPolicyARNs...),
	}
}

// ToStore converts the artifact store configuration. A nil location is kept
// nil so that store defaults can apply.
func (sc ArtifactStoreConfig) ToStore(r *Resolver) (store.ArtifactStore, error) {
	s := store.ArtifactStore{Type: sc.Type}

	if sc.Location != nil {
		loc, err := r.Value(sc.Location)
		if err != nil {
			return store.ArtifactStore{}, invalid("artifact_store.location", "%v", err)
		}
		s.Location = loc
	}

	if sc.Bucket != nil {
		opts, err := sc.Bucket.toOptions(r)
		if err != nil {
			return store.ArtifactStore{}, invalid("artifact_store.bucket", "%v", err)
		}
		s.Bucket = &opts
	}
	return s, nil
}

func (bc BucketConfig) toOptions(r *Resolver) (store.BucketOptions, error) {
	opts := store.BucketOptions{Encryption: bc.Encryption, Tags: bc.Tags}

	if bc.Name != nil {
		name, err := r.Value(bc.Name)
		if err != nil {
			return store.BucketOptions{}, fmt.Errorf("name: %w", err)
		}
		opts.Name = name
	}

	if bc.Lifecycle || bc.LifecycleDays > 0 {
		opts.Lifecycle = &store.LifecycleOptions{AbortIncompleteMultipartDays: bc.LifecycleDays}
	}

	if rc := bc.Replication; rc != nil {
		repl := store.ReplicationOptions{
			DestinationBucket:         rc.DestinationBucket,
			ReplicateEncryptedObjects: rc.ReplicateEncryptedObjects,
		}
		if rc.Role != nil {
			role, err := r.Value(rc.Role)
			if err != nil {
				return store.BucketOptions{}, fmt.Errorf("replication.role: %w", err)
			}
			repl.RoleARN = role
		}
		if rc.KMSKeyID != nil {
			key, err := r.Value(rc.KMSKeyID)
			if err != nil {
				return store.BucketOptions{}, fmt.Errorf("replication.kms_key_id: %w", err)
			}
			repl.ReplicaKMSKeyID = key
		}
		opts.Replication = &repl
	}
	return opts, nil
}

// ToOptions converts the build project configuration
func (pc BuildProjectConfig) ToOptions(r *Resolver) (project.Options, error) {
	opts := project.Options{ComputeType: pc.ComputeType, Tags: pc.Tags}

	if pc.Name != nil {
		name, err := r.Value(pc.Name)
		if err != nil {
			return project.Options{}, invalid("build_project.name", "%v", err)
		}
		opts.Name = name
	}
	if pc.ServiceRole != nil {
		role, err := r.Value(pc.ServiceRole)
		if err != nil {
			return project.Options{}, invalid("build_project.service_role", "%v", err)
		}
		opts.ServiceRoleARN = role
	}
	if len(pc.Environment) > 0 {
		opts.EnvironmentVariables = make(map[string]models.Value, len(pc.Environment))
		for key, raw := range pc.Environment {
			v, err := r.Value(raw)
			if err != nil {
				return project.Options{}, invalid("build_project.environment."+key, "%v", err)
			}
			opts.EnvironmentVariables[key] = v
		}
	}
	return opts, nil
}
