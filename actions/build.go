package actions

import "github.com/simon020286/pipegen/models"

var (
	codeBuildRequired = []string{"ProjectName"}
	lambdaRequired    = []string{"FunctionName"}
)

// CodeBuild runs a build project over its input artifacts. With several
// inputs PrimarySource selects the one holding the buildspec.
type CodeBuild struct {
	ProjectName   models.Value
	PrimarySource models.Value // nil when unset
	Extra         map[string]models.Value
}

func (CodeBuild) isConfig() {}

func (CodeBuild) TypeID() TypeID {
	return TypeID{Category: models.CategoryBuild, Owner: "AWS", Provider: "CodeBuild", Version: "1"}
}

func (c CodeBuild) Fields() map[string]models.Value {
	fields := map[string]models.Value{"ProjectName": c.ProjectName}
	if c.PrimarySource != nil {
		fields["PrimarySource"] = c.PrimarySource
	}
	return mergeFields(fields, c.Extra)
}

func validateCodeBuild(cfg map[string]models.Value) (Config, error) {
	if err := checkValues(cfg, codeBuildRequired); err != nil {
		return nil, err
	}
	return CodeBuild{
		ProjectName:   cfg["ProjectName"],
		PrimarySource: optional(cfg, "PrimarySource", nil),
		Extra:         extras(cfg, "ProjectName", "PrimarySource"),
	}, nil
}

// LambdaInvoke calls a function, passing UserParameters through the job data
type LambdaInvoke struct {
	FunctionName   models.Value
	UserParameters models.Value // nil when unset
	Extra          map[string]models.Value
}

func (LambdaInvoke) isConfig() {}

func (LambdaInvoke) TypeID() TypeID {
	return TypeID{Category: models.CategoryInvoke, Owner: "AWS", Provider: "Lambda", Version: "1"}
}

func (c LambdaInvoke) Fields() map[string]models.Value {
	fields := map[string]models.Value{"FunctionName": c.FunctionName}
	if c.UserParameters != nil {
		fields["UserParameters"] = c.UserParameters
	}
	return mergeFields(fields, c.Extra)
}

func validateLambdaInvoke(cfg map[string]models.Value) (Config, error) {
	if err := checkValues(cfg, lambdaRequired); err != nil {
		return nil, err
	}
	return LambdaInvoke{
		FunctionName:   cfg["FunctionName"],
		UserParameters: optional(cfg, "UserParameters", nil),
		Extra:          extras(cfg, "FunctionName", "UserParameters"),
	}, nil
}
