package actions

import (
	"strings"

	"github.com/simon020286/pipegen/models"
)

var (
	cloudFormationRequired = []string{"StackName", "RoleArn", "TemplatePath"}
	s3DeployRequired       = []string{"BucketName", "Extract"}
)

// DefaultActionMode is used by CloudFormation deploys that do not set ActionMode
const DefaultActionMode = "CREATE_UPDATE"

// CloudFormationDeploy creates or updates a stack from a template artifact
type CloudFormationDeploy struct {
	StackName          models.Value
	RoleArn            models.Value
	TemplatePath       models.Value
	ActionMode         models.Value
	Capabilities       models.Value // nil when unset
	ParameterOverrides models.Value // nil when unset
	Extra              map[string]models.Value
}

func (CloudFormationDeploy) isConfig() {}

func (CloudFormationDeploy) TypeID() TypeID {
	return TypeID{Category: models.CategoryDeploy, Owner: "AWS", Provider: "CloudFormation", Version: "1"}
}

func (c CloudFormationDeploy) Fields() map[string]models.Value {
	fields := map[string]models.Value{
		"StackName":    c.StackName,
		"RoleArn":      c.RoleArn,
		"TemplatePath": c.TemplatePath,
		"ActionMode":   c.ActionMode,
	}
	if c.Capabilities != nil {
		fields["Capabilities"] = c.Capabilities
	}
	if c.ParameterOverrides != nil {
		fields["ParameterOverrides"] = c.ParameterOverrides
	}
	return mergeFields(fields, c.Extra)
}

// TemplateArtifact returns the artifact named by a literal "Artifact::path"
// TemplatePath. ok is false for deferred paths or paths without a separator.
func (c CloudFormationDeploy) TemplateArtifact() (name string, ok bool) {
	path, isLiteral := models.LiteralString(c.TemplatePath)
	if !isLiteral {
		return "", false
	}
	name, _, found := strings.Cut(path, "::")
	if !found || name == "" {
		return "", false
	}
	return name, true
}

func validateCloudFormationDeploy(cfg map[string]models.Value) (Config, error) {
	if err := checkValues(cfg, cloudFormationRequired); err != nil {
		return nil, err
	}
	return CloudFormationDeploy{
		StackName:          cfg["StackName"],
		RoleArn:            cfg["RoleArn"],
		TemplatePath:       cfg["TemplatePath"],
		ActionMode:         optional(cfg, "ActionMode", models.String(DefaultActionMode)),
		Capabilities:       optional(cfg, "Capabilities", nil),
		ParameterOverrides: optional(cfg, "ParameterOverrides", nil),
		Extra: extras(cfg, "StackName", "RoleArn", "TemplatePath",
			"ActionMode", "Capabilities", "ParameterOverrides"),
	}, nil
}

// S3Deploy copies the input artifact into a bucket, optionally extracted
type S3Deploy struct {
	BucketName models.Value
	Extract    models.Value
	ObjectKey  models.Value // nil when unset
	Extra      map[string]models.Value
}

func (S3Deploy) isConfig() {}

func (S3Deploy) TypeID() TypeID {
	return TypeID{Category: models.CategoryDeploy, Owner: "AWS", Provider: "S3", Version: "1"}
}

func (c S3Deploy) Fields() map[string]models.Value {
	fields := map[string]models.Value{
		"BucketName": c.BucketName,
		"Extract":    c.Extract,
	}
	if c.ObjectKey != nil {
		fields["ObjectKey"] = c.ObjectKey
	}
	return mergeFields(fields, c.Extra)
}

func validateS3Deploy(cfg map[string]models.Value) (Config, error) {
	if err := checkValues(cfg, s3DeployRequired); err != nil {
		return nil, err
	}
	return S3Deploy{
		BucketName: cfg["BucketName"],
		Extract:    cfg["Extract"],
		ObjectKey:  optional(cfg, "ObjectKey", nil),
		Extra:      extras(cfg, "BucketName", "Extract", "ObjectKey"),
	}, nil
}
