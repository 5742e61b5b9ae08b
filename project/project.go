// Package project describes the build project whose container image is
// picked at deploy time from the runtime matrix.
package project

import (
	"errors"
	"fmt"
	"strings"

	"dario.cat/mergo"

	"github.com/simon020286/pipegen/iam"
	"github.com/simon020286/pipegen/models"
)

// Logical resource names
const (
	LogicalID     = "BuildProject"
	RoleLogicalID = "CodeBuildRole"
)

const (
	DefaultComputeType = "BUILD_GENERAL1_SMALL"
	EnvironmentType    = "LINUX_CONTAINER"
	// SourceType makes the project read its source from the pipeline
	SourceType = "CODEPIPELINE"
	Packaging  = "ZIP"

	TrustPrincipal          = "codebuild.amazonaws.com"
	RolePath                = "/cicd/codebuild/"
	BasicExecutionPolicyARN = "arn:aws:iam::aws:policy/service-role/AWSLambdaBasicExecutionRole"

	// Tags carrying the runtime chosen at deploy time
	TagRuntimeLanguage = "10-technical:runtime_language"
	TagRuntimeVersion  = "10-technical:runtime_version"

	iamARNPrefix = "arn:aws:iam::"
)

var (
	// ErrRuntimeRequired is returned when a project is requested without any
	// runtime to pick its image from
	ErrRuntimeRequired = errors.New("build project requires at least one runtime")
	// ErrComputeType is returned for an unknown compute type
	ErrComputeType = errors.New("unknown build compute type")
)

// ComputeTypes lists the accepted compute types
var ComputeTypes = []string{"BUILD_GENERAL1_SMALL", "BUILD_GENERAL1_MEDIUM", "BUILD_GENERAL1_LARGE"}

// DefaultTags are applied to every project; caller tags win
var DefaultTags = map[string]string{
	"10-technical:team": "PlatformEngineering",
}

// Options are the caller-controlled parts of a build project
type Options struct {
	// Name is the physical project name; nil lets the control plane pick one
	Name        models.Value
	ComputeType string
	// ServiceRoleARN is an existing role. A bare role name is expanded to an
	// ARN in the deploying account. Nil generates a dedicated role.
	ServiceRoleARN       models.Value
	EnvironmentVariables map[string]models.Value
	Tags                 map[string]string
}

// Project is the resolved build project
type Project struct {
	Name                 models.Value
	ComputeType          string
	ServiceRole          models.Value
	// Role is set when the project gets its own generated role
	Role                 *iam.RoleDefinition
	EnvironmentVariables map[string]models.Value
	Tags                 map[string]string
}

// Build resolves options into a project. artifactBucketARN scopes the S3
// access of a generated role the same way it scopes the pipeline role.
func Build(opts Options, artifactBucketARN string) (Project, error) {
	if err := mergo.Merge(&opts, Options{ComputeType: DefaultComputeType}); err != nil {
		return Project{}, err
	}
	if !knownComputeType(opts.ComputeType) {
		return Project{}, fmt.Errorf("%w: %s", ErrComputeType, opts.ComputeType)
	}

	p := Project{
		Name:                 opts.Name,
		ComputeType:          opts.ComputeType,
		EnvironmentVariables: make(map[string]models.Value, len(opts.EnvironmentVariables)),
		Tags:                 make(map[string]string, len(DefaultTags)+len(opts.Tags)),
	}
	for k, v := range opts.EnvironmentVariables {
		p.EnvironmentVariables[k] = v
	}
	for k, v := range opts.Tags {
		p.Tags[k] = v
	}
	if err := mergo.Merge(&p.Tags, DefaultTags); err != nil {
		return Project{}, err
	}

	if opts.ServiceRoleARN == nil {
		role := iam.Compose([]iam.Capability{iam.S3Access}, iam.Parameters{
			TrustPrincipal:    TrustPrincipal,
			Path:              RolePath,
			ArtifactBucketARN: artifactBucketARN,
			ManagedPolicyARNs: []string{BasicExecutionPolicyARN},
		})
		p.Role = &role
		p.ServiceRole = models.GetAtt{Resource: RoleLogicalID, Attribute: "Arn"}
		return p, nil
	}

	p.ServiceRole = roleARN(opts.ServiceRoleARN)
	return p, nil
}

// roleARN expands a literal role name into a role ARN of the deploying
// account. ARNs and deferred references are kept as they are.
func roleARN(v models.Value) models.Value {
	name, ok := models.LiteralString(v)
	if !ok || strings.HasPrefix(name, iamARNPrefix) {
		return v
	}
	return models.Sub{Template: "arn:aws:iam::${AWS::AccountId}:role/" + name}
}

func knownComputeType(ct string) bool {
	for _, known := range ComputeTypes {
		if ct == known {
			return true
		}
	}
	return false
}
