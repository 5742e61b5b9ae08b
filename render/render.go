package render

import (
	"errors"
	"sort"

	"github.com/simon020286/pipegen"
	"github.com/simon020286/pipegen/iam"
	"github.com/simon020286/pipegen/models"
	"github.com/simon020286/pipegen/project"
	"github.com/simon020286/pipegen/store"
)

// Logical resource and parameter names
const (
	PipelineLogicalID = "Pipeline"
	RoleLogicalID     = "PipelineRole"

	RuntimeLanguageParameter = "BuildRuntimeLanguage"
	RuntimeVersionParameter  = "BuildRuntimeVersion"
	LanguagesMapping         = "Languages"
)

// ErrNoPipeline is returned when rendering a result without a pipeline
var ErrNoPipeline = errors.New("result has no pipeline definition")

// BuildProjectOutput names the output holding the build project name
const BuildProjectOutput = "BuildProjectName"

// Render builds the template for a generation result
func Render(res *pipegen.Result) (*Template, error) {
	if res == nil || res.Pipeline == nil {
		return nil, ErrNoPipeline
	}
	if res.Project != nil && len(res.Runtime.ValidTools) == 0 {
		return nil, project.ErrRuntimeRequired
	}

	t := &Template{
		AWSTemplateFormatVersion: FormatVersion,
		Description:              res.Description,
		Parameters:               map[string]Parameter{},
		Resources:                map[string]Resource{},
		Outputs:                  map[string]Output{},
	}

	refs := refCollector{}
	t.Resources[PipelineLogicalID] = pipelineResource(res, refs)
	t.Resources[RoleLogicalID] = roleResource(res.Name, res.Pipeline.Role)
	if res.Bucket != nil {
		t.Resources[store.BucketLogicalID] = bucketResource(*res.Bucket, refs)
	}
	if p := res.Project; p != nil {
		if p.Role != nil {
			name := "build"
			if res.Name != "" {
				name = res.Name + "-build"
			}
			t.Resources[project.RoleLogicalID] = roleResource(name, *p.Role)
		}
		t.Resources[project.LogicalID] = projectResource(*p, refs)
		t.Outputs[BuildProjectOutput] = Output{
			Description: "Name of the build project",
			Value:       map[string]any{"Ref": project.LogicalID},
		}
	}

	if len(res.Runtime.ValidTools) > 0 {
		t.Parameters[RuntimeLanguageParameter] = Parameter{
			Type:          "String",
			Description:   "Build tool used by the build projects",
			AllowedValues: append([]string(nil), res.Runtime.ValidTools...),
		}
		t.Parameters[RuntimeVersionParameter] = Parameter{
			Type:          "String",
			Description:   "Version of the build tool",
			AllowedValues: append([]string(nil), res.Runtime.ValidVersions...),
		}
		t.Mappings = map[string]map[string]map[string]string{
			LanguagesMapping: res.Runtime.Mapping,
		}
	}

	resources := make(map[string]bool, len(t.Resources))
	for id := range t.Resources {
		resources[id] = true
	}
	params := make(map[string]bool, len(t.Parameters))
	for name := range t.Parameters {
		params[name] = true
	}
	for _, name := range refs.undeclared(resources, params) {
		t.Parameters[name] = Parameter{Type: "String", NoEcho: sensitive(name)}
	}

	t.Outputs["PipelineName"] = Output{
		Description: "Name of the pipeline",
		Value:       map[string]any{"Ref": PipelineLogicalID},
	}
	t.Outputs["PipelineRoleArn"] = Output{
		Description: "ARN of the pipeline execution role",
		Value:       map[string]any{"Fn::GetAtt": []any{RoleLogicalID, "Arn"}},
	}

	return t, nil
}

func pipelineResource(res *pipegen.Result, refs refCollector) Resource {
	def := res.Pipeline

	refs.add(def.ArtifactStore.Location)
	stages := make([]any, 0, len(def.Stages))
	for _, s := range def.Stages {
		acts := make([]any, 0, len(s.Actions))
		for _, a := range s.Actions {
			fields := a.Config.Fields()
			refs.addAll(fields)

			action := map[string]any{
				"Name": a.Name,
				"ActionTypeId": map[string]any{
					"Category": string(a.Type.Category),
					"Owner":    a.Type.Owner,
					"Provider": a.Type.Provider,
					"Version":  a.Type.Version,
				},
				"Configuration": values(fields),
				"RunOrder":      a.RunOrder,
			}
			if len(a.InputArtifacts) > 0 {
				action["InputArtifacts"] = artifactList(a.InputArtifacts)
			}
			if len(a.OutputArtifacts) > 0 {
				action["OutputArtifacts"] = artifactList(a.OutputArtifacts)
			}
			acts = append(acts, action)
		}
		stages = append(stages, map[string]any{"Name": s.Name, "Actions": acts})
	}

	props := map[string]any{
		"RoleArn": map[string]any{"Fn::GetAtt": []any{RoleLogicalID, "Arn"}},
		"ArtifactStore": map[string]any{
			"Type":     def.ArtifactStore.Type,
			"Location": value(def.ArtifactStore.Location),
		},
		"Stages": stages,
	}
	if res.Name != "" {
		props["Name"] = res.Name
	}
	return Resource{Type: "AWS::CodePipeline::Pipeline", Properties: props}
}

func artifactList(refs []models.ArtifactRef) []any {
	out := make([]any, len(refs))
	for i, r := range refs {
		out[i] = map[string]any{"Name": r.Name}
	}
	return out
}

func roleResource(name string, role iam.RoleDefinition) Resource {
	props := map[string]any{
		"Path": role.Path,
		"AssumeRolePolicyDocument": map[string]any{
			"Version": iam.PolicyVersion,
			"Statement": []any{
				map[string]any{
					"Effect":    string(iam.Allow),
					"Principal": map[string]any{"Service": []any{role.TrustPrincipal}},
					"Action":    []any{"sts:AssumeRole"},
				},
			},
		},
	}
	if len(role.ManagedPolicyARNs) > 0 {
		props["ManagedPolicyArns"] = stringList(role.ManagedPolicyARNs)
	}

	if len(role.Statements) > 0 {
		statements := make([]any, len(role.Statements))
		for i, st := range role.Statements {
			statements[i] = statement(st)
		}
		policyName := "pipeline-policy"
		if name != "" {
			policyName = name + "-policy"
		}
		props["Policies"] = []any{
			map[string]any{
				"PolicyName": policyName,
				"PolicyDocument": map[string]any{
					"Version":   iam.PolicyVersion,
					"Statement": statements,
				},
			},
		}
	}
	return Resource{Type: "AWS::IAM::Role", Properties: props}
}

func statement(st iam.PolicyStatement) map[string]any {
	out := map[string]any{
		"Effect":   string(st.Effect),
		"Action":   stringList(st.Actions),
		"Resource": stringList(st.Resources),
	}
	if st.Sid != "" {
		out["Sid"] = st.Sid
	}
	if len(st.Condition) > 0 {
		cond := make(map[string]any, len(st.Condition))
		for op, kv := range st.Condition {
			inner := make(map[string]any, len(kv))
			for k, v := range kv {
				inner[k] = stringList(v)
			}
			cond[op] = inner
		}
		out["Condition"] = cond
	}
	return out
}

func bucketResource(b store.Bucket, refs refCollector) Resource {
	keys := make([]string, 0, len(b.Tags))
	for k := range b.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	tags := make([]any, len(keys))
	for i, k := range keys {
		tags[i] = map[string]any{"Key": k, "Value": b.Tags[k]}
	}

	props := map[string]any{"Tags": tags}
	if b.Name != nil {
		refs.add(b.Name)
		props["BucketName"] = value(b.Name)
	}
	if b.Encryption != nil {
		props["BucketEncryption"] = map[string]any{
			"ServerSideEncryptionConfiguration": []any{
				map[string]any{
					"ServerSideEncryptionByDefault": map[string]any{"SSEAlgorithm": b.Encryption.SSEAlgorithm},
				},
			},
		}
	}
	if b.Lifecycle != nil {
		props["LifecycleConfiguration"] = map[string]any{
			"Rules": []any{
				map[string]any{
					"Status": b.Lifecycle.Status,
					"AbortIncompleteMultipartUpload": map[string]any{
						"DaysAfterInitiation": b.Lifecycle.AbortIncompleteMultipartDays,
					},
				},
			},
		}
	}
	if b.Versioning {
		props["VersioningConfiguration"] = map[string]any{"Status": store.StatusEnabled}
	}
	if r := b.Replication; r != nil {
		refs.add(r.Role)
		rules := make([]any, len(r.Rules))
		for i, rule := range r.Rules {
			dest := map[string]any{"Bucket": rule.DestinationBucketARN}
			if rule.ReplicaKMSKeyID != nil {
				refs.add(rule.ReplicaKMSKeyID)
				dest["EncryptionConfiguration"] = map[string]any{"ReplicaKmsKeyID": value(rule.ReplicaKMSKeyID)}
			}
			rules[i] = map[string]any{
				"Prefix":      rule.Prefix,
				"Status":      rule.Status,
				"Destination": dest,
				"SourceSelectionCriteria": map[string]any{
					"SseKmsEncryptedObjects": map[string]any{"Status": rule.SSEKMSEncryptedObjects},
				},
			}
		}
		props["ReplicationConfiguration"] = map[string]any{
			"Role":  value(r.Role),
			"Rules": rules,
		}
	}
	return Resource{Type: "AWS::S3::Bucket", Properties: props}
}

// projectResource renders the build project. Its image is looked up in the
// Languages mapping with the runtime parameters.
func projectResource(p project.Project, refs refCollector) Resource {
	refs.add(p.ServiceRole)

	names := make([]string, 0, len(p.EnvironmentVariables))
	for name := range p.EnvironmentVariables {
		names = append(names, name)
	}
	sort.Strings(names)
	env := make([]any, len(names))
	for i, name := range names {
		v := p.EnvironmentVariables[name]
		refs.add(v)
		env[i] = map[string]any{"Name": name, "Value": value(v)}
	}

	keys := make([]string, 0, len(p.Tags))
	for k := range p.Tags {
		if k != project.TagRuntimeLanguage && k != project.TagRuntimeVersion {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	tags := make([]any, 0, len(keys)+2)
	for _, k := range keys {
		tags = append(tags, map[string]any{"Key": k, "Value": p.Tags[k]})
	}
	tags = append(tags,
		map[string]any{"Key": project.TagRuntimeLanguage, "Value": map[string]any{"Ref": RuntimeLanguageParameter}},
		map[string]any{"Key": project.TagRuntimeVersion, "Value": map[string]any{"Ref": RuntimeVersionParameter}},
	)

	props := map[string]any{
		"Source": map[string]any{"Type": project.SourceType},
		"Artifacts": map[string]any{
			"Type":          project.SourceType,
			"Packaging":     project.Packaging,
			"NamespaceType": "NONE",
		},
		"Environment": map[string]any{
			"ComputeType": p.ComputeType,
			"Type":        project.EnvironmentType,
			"Image": map[string]any{"Fn::FindInMap": []any{
				LanguagesMapping,
				map[string]any{"Ref": RuntimeLanguageParameter},
				map[string]any{"Ref": RuntimeVersionParameter},
			}},
			"EnvironmentVariables": env,
		},
		"ServiceRole": value(p.ServiceRole),
		"Tags":        tags,
	}
	if p.Name != nil {
		refs.add(p.Name)
		props["Name"] = value(p.Name)
	}
	return Resource{Type: "AWS::CodeBuild::Project", Properties: props}
}

func stringList(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
