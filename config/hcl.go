package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// hclFile is the HCL shape of a PipelineConfig. Values that may hold
// intrinsic references are decoded as cty.Value and converted afterwards.
type hclFile struct {
	Name          string         `hcl:"name"`
	Description   string         `hcl:"description,optional"`
	Variables     hcl.Expression `hcl:"variables,optional"`
	Runtimes      []string       `hcl:"runtimes,optional"`
	ArtifactStore *hclStore      `hcl:"artifact_store,block"`
	Role          *hclRole       `hcl:"role,block"`
	BuildProject  *hclProject    `hcl:"build_project,block"`
	Stages        []*hclStage    `hcl:"stage,block"`
}

type hclStore struct {
	Type     string     `hcl:"type,optional"`
	Location cty.Value  `hcl:"location,optional"`
	Bucket   *hclBucket `hcl:"bucket,block"`
}

type hclBucket struct {
	Name          cty.Value         `hcl:"name,optional"`
	Encryption    bool              `hcl:"encryption,optional"`
	Lifecycle     bool              `hcl:"lifecycle,optional"`
	LifecycleDays int               `hcl:"lifecycle_days,optional"`
	Tags          map[string]string `hcl:"tags,optional"`
	Replication   *hclReplication   `hcl:"replication,block"`
}

type hclReplication struct {
	Role                      cty.Value `hcl:"role"`
	DestinationBucket         string    `hcl:"destination_bucket"`
	KMSKeyID                  cty.Value `hcl:"kms_key_id,optional"`
	ReplicateEncryptedObjects bool      `hcl:"replicate_encrypted_objects,optional"`
}

type hclProject struct {
	Name        cty.Value         `hcl:"name,optional"`
	ComputeType string            `hcl:"compute_type,optional"`
	ServiceRole cty.Value         `hcl:"service_role,optional"`
	Environment cty.Value         `hcl:"environment,optional"`
	Tags        map[string]string `hcl:"tags,optional"`
}

type hclRole struct {
	TrustPrincipal    string   `hcl:"trust_principal,optional"`
	Path              string   `hcl:"path,optional"`
	ArtifactBucketARN string   `hcl:"artifact_bucket_arn,optional"`
	Capabilities      []string `hcl:"capabilities,optional"`
	PassRoleServices  []string `hcl:"pass_role_services,optional"`
	ManagedPolicyARNs []string `hcl:"managed_policy_arns,optional"`
}

type hclStage struct {
	Name    string       `hcl:"name,label"`
	Actions []*hclAction `hcl:"action,block"`
}

type hclAction struct {
	Name          string    `hcl:"name,label"`
	Category      string    `hcl:"category"`
	Provider      string    `hcl:"provider"`
	Configuration cty.Value `hcl:"configuration,optional"`
	Inputs        []string  `hcl:"inputs,optional"`
	Outputs       []string  `hcl:"outputs,optional"`
	RunOrder      int       `hcl:"run_order,optional"`
}

// ParseHCL parses and validates an HCL configuration. The top-level
// variables attribute is evaluated first and exposed to the rest of the file
// as var.<name>.
func ParseHCL(data []byte, filename string) (*PipelineConfig, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %s", filename, diags.Error())
	}

	variables, err := decodeVariables(file.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode variables in %s: %w", filename, err)
	}

	varsVal := cty.EmptyObjectVal
	if len(variables) > 0 {
		varsVal, err = toCtyValue(variables)
		if err != nil {
			return nil, fmt.Errorf("failed to convert variables in %s: %w", filename, err)
		}
	}
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{"var": varsVal},
	}

	var raw hclFile
	diags = gohcl.DecodeBody(file.Body, evalCtx, &raw)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %s", filename, diags.Error())
	}

	cfg, err := raw.toConfig(variables)
	if err != nil {
		return nil, fmt.Errorf("failed to convert HCL file %s: %w", filename, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeVariables evaluates the variables attribute without any context
func decodeVariables(body hcl.Body) (map[string]any, error) {
	content, _, diags := body.PartialContent(&hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{{Name: "variables"}},
	})
	if diags.HasErrors() {
		return nil, diags
	}

	attr, exists := content.Attributes["variables"]
	if !exists {
		return nil, nil
	}
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}

	native, err := ctyToNative(val)
	if err != nil {
		return nil, err
	}
	if native == nil {
		return nil, nil
	}
	vars, ok := native.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("variables must be an object, got %s", val.Type().FriendlyName())
	}
	return vars, nil
}

func (f *hclFile) toConfig(variables map[string]any) (*PipelineConfig, error) {
	cfg := &PipelineConfig{
		Name:        f.Name,
		Description: f.Description,
		Variables:   variables,
		Runtimes:    f.Runtimes,
	}

	if f.Role != nil {
		cfg.Role = RoleConfig(*f.Role)
	}

	if s := f.ArtifactStore; s != nil {
		loc, err := ctyToNative(s.Location)
		if err != nil {
			return nil, fmt.Errorf("artifact_store.location: %w", err)
		}
		cfg.ArtifactStore = ArtifactStoreConfig{Type: s.Type, Location: loc}

		if b := s.Bucket; b != nil {
			bucket, err := b.toConfig()
			if err != nil {
				return nil, fmt.Errorf("artifact_store.bucket: %w", err)
			}
			cfg.ArtifactStore.Bucket = bucket
		}
	}

	if p := f.BuildProject; p != nil {
		bp, err := p.toConfig()
		if err != nil {
			return nil, fmt.Errorf("build_project: %w", err)
		}
		cfg.BuildProject = bp
	}

	for _, s := range f.Stages {
		stage := StageConfig{Name: s.Name, Actions: make([]ActionConfig, 0, len(s.Actions))}
		for _, a := range s.Actions {
			action, err := a.toConfig()
			if err != nil {
				return nil, fmt.Errorf("stage '%s' action '%s': %w", s.Name, a.Name, err)
			}
			stage.Actions = append(stage.Actions, action)
		}
		cfg.Stages = append(cfg.Stages, stage)
	}

	return cfg, nil
}

func (b *hclBucket) toConfig() (*BucketConfig, error) {
	name, err := ctyToNative(b.Name)
	if err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	out := &BucketConfig{
		Name:          name,
		Encryption:    b.Encryption,
		Lifecycle:     b.Lifecycle,
		LifecycleDays: b.LifecycleDays,
		Tags:          b.Tags,
	}

	if r := b.Replication; r != nil {
		role, err := ctyToNative(r.Role)
		if err != nil {
			return nil, fmt.Errorf("replication.role: %w", err)
		}
		key, err := ctyToNative(r.KMSKeyID)
		if err != nil {
			return nil, fmt.Errorf("replication.kms_key_id: %w", err)
		}
		out.Replication = &ReplicationConfig{
			Role:                      role,
			DestinationBucket:         r.DestinationBucket,
			KMSKeyID:                  key,
			ReplicateEncryptedObjects: r.ReplicateEncryptedObjects,
		}
	}
	return out, nil
}

func (p *hclProject) toConfig() (*BuildProjectConfig, error) {
	name, err := ctyToNative(p.Name)
	if err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	role, err := ctyToNative(p.ServiceRole)
	if err != nil {
		return nil, fmt.Errorf("service_role: %w", err)
	}
	out := &BuildProjectConfig{
		Name:        name,
		ComputeType: p.ComputeType,
		ServiceRole: role,
		Tags:        p.Tags,
	}

	env, err := ctyToNative(p.Environment)
	if err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	if env != nil {
		m, ok := env.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("environment must be an object, got %s", p.Environment.Type().FriendlyName())
		}
		out.Environment = m
	}
	return out, nil
}

func (a *hclAction) toConfig() (ActionConfig, error) {
	out := ActionConfig{
		Name:     a.Name,
		Category: a.Category,
		Provider: a.Provider,
		Inputs:   a.Inputs,
		Outputs:  a.Outputs,
		RunOrder: a.RunOrder,
	}

	native, err := ctyToNative(a.Configuration)
	if err != nil {
		return ActionConfig{}, fmt.Errorf("configuration: %w", err)
	}
	if native != nil {
		m, ok := native.(map[string]any)
		if !ok {
			return ActionConfig{}, fmt.Errorf("configuration must be an object, got %s", a.Configuration.Type().FriendlyName())
		}
		out.Configuration = m
	}
	return out, nil
}

// ctyToNative recursively converts a cty.Value to its most natural Go
// counterpart. Null and unknown values become nil.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()

	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, fmt.Errorf("could not convert number to float64: %w", err)
		}
		return f, nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		slice := make([]any, 0, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			_, val := it.Element()
			nativeVal, err := ctyToNative(val)
			if err != nil {
				return nil, err
			}
			slice = append(slice, nativeVal)
		}
		return slice, nil

	case ty.IsObjectType() || ty.IsMapType():
		goMap := make(map[string]any)
		it := v.ElementIterator()
		for it.Next() {
			key, val := it.Element()
			keyStr := key.AsString()
			nativeVal, err := ctyToNative(val)
			if err != nil {
				return nil, fmt.Errorf("in attribute '%s': %w", keyStr, err)
			}
			goMap[keyStr] = nativeVal
		}
		return goMap, nil

	default:
		return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}

// toCtyValue converts decoded variables back into a cty object for var.*
func toCtyValue(vars map[string]any) (cty.Value, error) {
	attrs := make(map[string]cty.Value, len(vars))
	for k, v := range vars {
		val, err := nativeToCty(v)
		if err != nil {
			return cty.NilVal, fmt.Errorf("variable '%s': %w", k, err)
		}
		attrs[k] = val
	}
	return cty.ObjectVal(attrs), nil
}

func nativeToCty(v any) (cty.Value, error) {
	switch val := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case string:
		return cty.StringVal(val), nil
	case bool:
		return cty.BoolVal(val), nil
	case float64:
		return cty.NumberFloatVal(val), nil
	case []any:
		if len(val) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, len(val))
		for i, e := range val {
			ev, err := nativeToCty(e)
			if err != nil {
				return cty.NilVal, err
			}
			elems[i] = ev
		}
		return cty.TupleVal(elems), nil
	case map[string]any:
		return toCtyValue(val)
	}
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer type: %w", err)
	}
	return gocty.ToCtyValue(v, ty)
}
