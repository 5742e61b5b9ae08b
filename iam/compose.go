package iam

import (
	"strings"

	"dario.cat/mergo"
)

const (
	// PolicyVersion is the policy language version written into documents
	PolicyVersion = "2012-10-17"

	s3ARNPrefix = "arn:aws:s3:::"
)

// Effect of a policy statement
type Effect string

const (
	Allow Effect = "Allow"
	Deny  Effect = "Deny"
)

// PolicyStatement is a single statement of an inline policy
type PolicyStatement struct {
	Sid       string
	Effect    Effect
	Actions   []string
	Resources []string
	Condition map[string]map[string][]string
}

// RoleDefinition is the composed execution role
type RoleDefinition struct {
	TrustPrincipal    string
	Path              string
	ManagedPolicyARNs []string
	Statements        []PolicyStatement
}

// Parameters are caller-supplied values interpolated into fragments.
// Zero fields take the defaults documented on each field.
type Parameters struct {
	// TrustPrincipal is the service allowed to assume the role.
	// Default: codepipeline.amazonaws.com
	TrustPrincipal string
	// Path of the role. Default: /cicd/codepipeline/
	Path string
	// ArtifactBucketARN scopes S3Access. A bare bucket name is prefixed with
	// arn:aws:s3:::. Empty means "*".
	ArtifactBucketARN string
	// PassRoleServices restricts iam:PassRole for CloudFormationDeploy.
	// Default: [cloudformation.amazonaws.com]
	PassRoleServices []string
	// ManagedPolicyARNs are attached as-is
	ManagedPolicyARNs []string
}

// DefaultParameters holds the documented defaults
var DefaultParameters = Parameters{
	TrustPrincipal:   "codepipeline.amazonaws.com",
	Path:             "/cicd/codepipeline/",
	PassRoleServices: []string{"cloudformation.amazonaws.com"},
}

// WithDefaults returns p with every zero field replaced by its default.
// mergo only rejects operands of different types or non-struct
// destinations, so an error here is a programming defect and panics.
func (p Parameters) WithDefaults() Parameters {
	out := p
	defaults := DefaultParameters
	defaults.PassRoleServices = append([]string(nil), DefaultParameters.PassRoleServices...)
	if err := mergo.Merge(&out, defaults); err != nil {
		panic("iam: merging parameter defaults: " + err.Error())
	}
	return out
}

// Compose builds the role for the enabled capabilities. Fragments are
// appended in the order the capabilities are given and are never merged; a
// capability listed twice contributes once.
func Compose(capabilities []Capability, params Parameters) RoleDefinition {
	params = params.WithDefaults()
	role := RoleDefinition{
		TrustPrincipal:    params.TrustPrincipal,
		Path:              params.Path,
		ManagedPolicyARNs: append([]string(nil), params.ManagedPolicyARNs...),
	}

	enabled := make(map[Capability]bool, len(capabilities))
	for _, c := range capabilities {
		if enabled[c] {
			continue
		}
		enabled[c] = true
		role.Statements = append(role.Statements, fragment(c, params)...)
	}
	return role
}

// fragment returns the fixed statements for c
func fragment(c Capability, params Parameters) []PolicyStatement {
	switch c {
	case S3Access:
		return []PolicyStatement{{
			Sid:       "S3Access",
			Effect:    Allow,
			Resources: []string{objectsResource(params.ArtifactBucketARN)},
			Actions: []string{
				"s3:PutObject",
				"s3:PutObjectVersion",
				"s3:GetObject",
				"s3:GetObjectVersion",
				"s3:GetBucketVersioning",
			},
		}}
	case CodeCommitAccess:
		return []PolicyStatement{{
			Sid:       "CodeCommitAccess",
			Effect:    Allow,
			Resources: []string{"*"},
			Actions: []string{
				"codecommit:CancelUploadArchive",
				"codecommit:GetBranch",
				"codecommit:GetCommit",
				"codecommit:GetUploadArchiveStatus",
				"codecommit:UploadArchive",
			},
		}}
	case CodeBuildAccess:
		return []PolicyStatement{{
			Sid:       "CodeBuildAccess",
			Effect:    Allow,
			Resources: []string{"*"},
			Actions: []string{
				"codebuild:BatchGetBuilds",
				"codebuild:StartBuild",
			},
		}}
	case LambdaInvoke:
		return []PolicyStatement{{
			Sid:       "LambdaInvoke",
			Effect:    Allow,
			Resources: []string{"*"},
			Actions: []string{
				"lambda:InvokeFunction",
				"lambda:ListFunctions",
				"lambda:GetFunction",
			},
		}}
	case CloudFormationDeploy:
		return []PolicyStatement{
			{
				Sid:       "CloudFormationDeploy",
				Effect:    Allow,
				Resources: []string{"*"},
				Actions: []string{
					"cloudformation:CreateStack",
					"cloudformation:DeleteStack",
					"cloudformation:DescribeStacks",
					"cloudformation:UpdateStack",
					"cloudformation:CreateChangeSet",
					"cloudformation:DeleteChangeSet",
					"cloudformation:DescribeChangeSet",
					"cloudformation:ExecuteChangeSet",
					"cloudformation:SetStackPolicy",
					"cloudformation:ValidateTemplate",
				},
			},
			{
				Sid:       "CloudFormationPassRole",
				Effect:    Allow,
				Resources: []string{"*"},
				Actions:   []string{"iam:PassRole"},
				Condition: map[string]map[string][]string{
					"StringEqualsIfExists": {
						"iam:PassedToService": append([]string(nil), params.PassRoleServices...),
					},
				},
			},
		}
	}
	return nil
}

// objectsResource turns a bucket ARN or name into the ARN pattern of its objects
func objectsResource(bucket string) string {
	if bucket == "" || bucket == "*" {
		return "*"
	}
	if !strings.HasPrefix(bucket, s3ARNPrefix) {
		bucket = s3ARNPrefix + bucket
	}
	return strings.TrimSuffix(bucket, "/*") + "/*"
}
