// Package actions validates provider-specific action configuration and turns
// it into one of a closed set of typed variants.
package actions

import (
	"sort"

	"github.com/simon020286/pipegen/models"
)

// TypeID identifies the action type the way the pipeline service expects it
type TypeID struct {
	Category models.Category
	Owner    string
	Provider string
	Version  string
}

// Config is a validated action configuration. Only this package implements it.
type Config interface {
	TypeID() TypeID
	// Fields returns the configuration in the shape the renderer emits
	Fields() map[string]models.Value
	isConfig()
}

// Provider describes a supported (category, provider) pair
type Provider struct {
	Category models.Category
	Name     string
	Owner    string
	Required []string
	Optional []string
}

var providers = []Provider{
	{models.CategorySource, "GitHub", "ThirdParty", githubRequired, []string{"PollForSourceChanges"}},
	{models.CategorySource, "CodeCommit", "AWS", codeCommitRequired, []string{"PollForSourceChanges"}},
	{models.CategorySource, "S3", "AWS", s3SourceRequired, []string{"PollForSourceChanges"}},
	{models.CategoryBuild, "CodeBuild", "AWS", codeBuildRequired, []string{"PrimarySource"}},
	{models.CategoryInvoke, "Lambda", "AWS", lambdaRequired, []string{"UserParameters"}},
	{models.CategoryDeploy, "CloudFormation", "AWS", cloudFormationRequired, []string{"ActionMode", "Capabilities", "ParameterOverrides"}},
	{models.CategoryDeploy, "S3", "AWS", s3DeployRequired, []string{"ObjectKey"}},
}

// Providers returns the supported providers in a stable order
func Providers() []Provider {
	out := make([]Provider, len(providers))
	copy(out, providers)
	return out
}

// Validate checks cfg against the required keys of the given provider and
// returns the typed configuration. Checks stop at the first violation.
func Validate(category models.Category, provider string, cfg map[string]models.Value) (Config, error) {
	switch category {
	case models.CategorySource:
		switch provider {
		case "GitHub":
			return validateGitHubSource(cfg)
		case "CodeCommit":
			return validateCodeCommitSource(cfg)
		case "S3":
			return validateS3Source(cfg)
		}
	case models.CategoryBuild:
		if provider == "CodeBuild" {
			return validateCodeBuild(cfg)
		}
	case models.CategoryInvoke:
		if provider == "Lambda" {
			return validateLambdaInvoke(cfg)
		}
	case models.CategoryDeploy:
		switch provider {
		case "CloudFormation":
			return validateCloudFormationDeploy(cfg)
		case "S3":
			return validateS3Deploy(cfg)
		}
	}
	return nil, models.ErrUnknownProvider(category, provider)
}

// checkValues walks the required keys in order, then every other key in
// sorted order, so the first reported violation never depends on map order.
func checkValues(cfg map[string]models.Value, required []string) error {
	seen := make(map[string]bool, len(required))
	for _, key := range required {
		seen[key] = true
		v, ok := cfg[key]
		if !ok {
			return models.ErrMissingKey(key)
		}
		if err := checkValue(key, v); err != nil {
			return err
		}
	}

	rest := make([]string, 0, len(cfg))
	for key := range cfg {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		if err := checkValue(key, cfg[key]); err != nil {
			return err
		}
	}
	return nil
}

func checkValue(key string, v models.Value) error {
	if v == nil {
		return models.ErrInvalidValueType(key, "nil")
	}
	if v.IsDeferred() {
		return nil
	}
	if _, ok := models.LiteralString(v); ok {
		return nil
	}
	return models.ErrInvalidValueType(key, v.Kind())
}

// optional returns cfg[key], or def when the key is absent
func optional(cfg map[string]models.Value, key string, def models.Value) models.Value {
	if v, ok := cfg[key]; ok {
		return v
	}
	return def
}

// extras copies every key of cfg not listed in known
func extras(cfg map[string]models.Value, known ...string) map[string]models.Value {
	skip := make(map[string]bool, len(known))
	for _, k := range known {
		skip[k] = true
	}
	var out map[string]models.Value
	for k, v := range cfg {
		if skip[k] {
			continue
		}
		if out == nil {
			out = make(map[string]models.Value)
		}
		out[k] = v
	}
	return out
}

func mergeFields(fields map[string]models.Value, extra map[string]models.Value) map[string]models.Value {
	for k, v := range extra {
		fields[k] = v
	}
	return fields
}
