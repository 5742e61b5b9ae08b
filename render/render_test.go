package render

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/simon020286/pipegen"
	"github.com/simon020286/pipegen/actions"
	"github.com/simon020286/pipegen/iam"
	"github.com/simon020286/pipegen/models"
	"github.com/simon020286/pipegen/project"
	"github.com/simon020286/pipegen/runtime"
	"github.com/simon020286/pipegen/store"
)

func testResult(t *testing.T) *pipegen.Result {
	t.Helper()
	d := pipegen.NewDraft()
	src := d.Source("Source", "GitHub", map[string]models.Value{
		"Repo":       models.String("app"),
		"Branch":     models.String("main"),
		"Owner":      models.String("acme"),
		"OAuthToken": models.Ref{Name: "GitHubToken"},
	})
	build := d.Build("Build", "CodeBuild", map[string]models.Value{"ProjectName": models.String("app")}, pipegen.Output(src))
	deploy := d.Deploy("Deploy", "CloudFormation", map[string]models.Value{
		"StackName":    models.Sub{Template: "${AWS::StackName}-app"},
		"RoleArn":      models.GetAtt{Resource: "DeployRole", Attribute: "Arn"},
		"TemplatePath": models.String(pipegen.Output(build) + "::template.yaml"),
	}, pipegen.Output(build))
	d.AddStage("Source", src).AddStage("Build", build).AddStage("Deploy", deploy)

	stages := d.Stages()
	role := iam.Compose(pipegen.CapabilitiesFor(stages), iam.Parameters{ArtifactBucketARN: "artifacts"})
	artifactStore := store.ArtifactStore{Bucket: &store.BucketOptions{}}
	def, err := pipegen.Build(stages, role, artifactStore)
	if err != nil {
		t.Fatal(err)
	}
	bucket, err := store.BuildBucket(store.BucketOptions{
		Encryption: true,
		Lifecycle:  &store.LifecycleOptions{},
		Replication: &store.ReplicationOptions{
			RoleARN:           models.Ref{Name: "ReplicationRole"},
			DestinationBucket: "replica",
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	registry := runtime.NewRegistry()
	_ = registry.Register(runtime.Entry{Tool: "python", Version: "3.7.1", Image: "aws/codebuild/python:3.7.1"})
	matrix, _ := registry.Resolve([]string{"python"})

	return &pipegen.Result{
		RunID:       "01HZ0000000000000000000000",
		Name:        "app",
		Description: "app pipeline",
		Pipeline:    def,
		Runtime:     matrix,
		Bucket:      &bucket,
	}
}

func TestRender_Sections(t *testing.T) {
	tmpl, err := Render(testResult(t))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	for _, id := range []string{"Pipeline", "PipelineRole", "ArtifactBucket"} {
		if _, ok := tmpl.Resources[id]; !ok {
			t.Errorf("Expected resource '%s'", id)
		}
	}

	lang := tmpl.Parameters["BuildRuntimeLanguage"]
	if diff := cmp.Diff([]string{"python"}, lang.AllowedValues); diff != "" {
		t.Errorf("Language values mismatch (-want +got):\n%s", diff)
	}
	if got := tmpl.Mappings["Languages"]["python"]["3.7.1"]; got != "aws/codebuild/python:3.7.1" {
		t.Errorf("Expected python image in mapping, got '%s'", got)
	}

	token, ok := tmpl.Parameters["GitHubToken"]
	if !ok || !token.NoEcho {
		t.Errorf("Expected NoEcho GitHubToken parameter, got %+v (present=%v)", token, ok)
	}
	if _, ok := tmpl.Parameters["ReplicationRole"]; !ok {
		t.Error("Expected ReplicationRole parameter")
	}
	if _, ok := tmpl.Parameters["ArtifactBucket"]; ok {
		t.Error("Expected no parameter for a template resource")
	}

	if _, ok := tmpl.Outputs["PipelineName"]; !ok {
		t.Error("Expected PipelineName output")
	}
}

func TestRender_PipelineProperties(t *testing.T) {
	tmpl, err := Render(testResult(t))
	if err != nil {
		t.Fatal(err)
	}
	props := tmpl.Resources["Pipeline"].Properties

	artifactStore := props["ArtifactStore"].(map[string]any)
	if diff := cmp.Diff(map[string]any{"Ref": "ArtifactBucket"}, artifactStore["Location"]); diff != "" {
		t.Errorf("Location mismatch (-want +got):\n%s", diff)
	}

	stages := props["Stages"].([]any)
	if len(stages) != 3 {
		t.Fatalf("Expected 3 stages, got %d", len(stages))
	}
	deploy := stages[2].(map[string]any)["Actions"].([]any)[0].(map[string]any)
	cfg := deploy["Configuration"].(map[string]any)

	want := map[string]any{
		"StackName":    map[string]any{"Fn::Sub": "${AWS::StackName}-app"},
		"RoleArn":      map[string]any{"Fn::GetAtt": []any{"DeployRole", "Arn"}},
		"TemplatePath": "BuildOutput::template.yaml",
		"ActionMode":   "CREATE_UPDATE",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Deploy configuration mismatch (-want +got):\n%s", diff)
	}
	if _, ok := deploy["OutputArtifacts"]; ok {
		t.Error("Expected no output artifacts on deploy")
	}
}

func TestRender_RoleWithoutStatements(t *testing.T) {
	res := testResult(t)
	res.Pipeline.Role = iam.Compose(nil, iam.Parameters{})
	res.Runtime = runtime.Matrix{}

	tmpl, err := Render(res)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tmpl.Resources["PipelineRole"].Properties["Policies"]; ok {
		t.Error("Expected no inline policies")
	}
	if _, ok := tmpl.Parameters["BuildRuntimeLanguage"]; ok {
		t.Error("Expected no runtime parameters without tools")
	}
	if tmpl.Mappings != nil {
		t.Errorf("Expected no mappings, got %v", tmpl.Mappings)
	}
}

func TestRender_NoPipeline(t *testing.T) {
	if _, err := Render(nil); err != ErrNoPipeline {
		t.Errorf("Expected ErrNoPipeline, got %v", err)
	}
}

func TestTemplate_Encodings(t *testing.T) {
	tmpl, err := Render(testResult(t))
	if err != nil {
		t.Fatal(err)
	}

	jsonData, err := tmpl.Encode("json")
	if err != nil {
		t.Fatal(err)
	}
	var fromJSON map[string]any
	if err := json.Unmarshal(jsonData, &fromJSON); err != nil {
		t.Fatalf("Expected valid JSON, got %v", err)
	}

	yamlData, err := tmpl.Encode("yaml")
	if err != nil {
		t.Fatal(err)
	}
	var fromYAML map[string]any
	if err := yaml.Unmarshal(yamlData, &fromYAML); err != nil {
		t.Fatalf("Expected valid YAML, got %v", err)
	}
	if !strings.HasPrefix(string(yamlData), "AWSTemplateFormatVersion:") {
		t.Errorf("Expected YAML to start with the format version, got:\n%s", yamlData)
	}

	if fromJSON["AWSTemplateFormatVersion"] != "2010-09-09" || fromYAML["AWSTemplateFormatVersion"] != "2010-09-09" {
		t.Error("Expected format version in both encodings")
	}

	if _, err := tmpl.Encode("toml"); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestTemplate_Deterministic(t *testing.T) {
	a, _ := Render(testResult(t))
	b, _ := Render(testResult(t))
	ja, _ := a.JSON()
	jb, _ := b.JSON()
	if string(ja) != string(jb) {
		t.Error("Expected identical JSON for identical results")
	}
}

func TestRender_SubPlaceholdersBecomeParameters(t *testing.T) {
	res := testResult(t)
	build := &res.Pipeline.Stages[1].Actions[0]
	build.Configuration["ProjectName"] = models.Sub{Template: "${LambdaLayerName}-repo-${!Literal}-${AWS::Region}-${Repo.Arn}"}
	cfg := build.Config.(actions.CodeBuild)
	cfg.ProjectName = build.Configuration["ProjectName"]
	build.Config = cfg

	tmpl, err := Render(res)
	if err != nil {
		t.Fatal(err)
	}

	p, ok := tmpl.Parameters["LambdaLayerName"]
	if !ok || p.Type != "String" {
		t.Errorf("Expected String parameter LambdaLayerName, got %+v (present=%v)", p, ok)
	}
	for _, name := range []string{"!Literal", "Literal", "AWS::Region", "Repo.Arn", "Repo", "AWS::StackName"} {
		if _, ok := tmpl.Parameters[name]; ok {
			t.Errorf("Expected no parameter for '%s'", name)
		}
	}
}

func TestSubNames(t *testing.T) {
	tests := []struct {
		template string
		want     []string
	}{
		{"${A}-${B}", []string{"A", "B"}},
		{"plain", nil},
		{"${AWS::AccountId}", []string{"AWS::AccountId"}},
		{"${!Escaped}", nil},
		{"${Res.Attr}", nil},
		{"${}", nil},
	}
	for _, tc := range tests {
		t.Run(tc.template, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, subNames(tc.template)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}

	refs := refCollector{}
	refs.add(models.Sub{Template: "${AWS::AccountId}-${Bucket}"})
	if !refs["Bucket"] || refs["AWS::AccountId"] {
		t.Errorf("Expected only Bucket to be collected, got %v", refs)
	}
}

func TestRender_BuildProject(t *testing.T) {
	res := testResult(t)
	p, err := project.Build(project.Options{
		EnvironmentVariables: map[string]models.Value{"LAYER": models.Ref{Name: "LayerName"}},
	}, "artifacts")
	if err != nil {
		t.Fatal(err)
	}
	res.Project = &p

	tmpl, err := Render(res)
	if err != nil {
		t.Fatal(err)
	}

	proj, ok := tmpl.Resources["BuildProject"]
	if !ok || proj.Type != "AWS::CodeBuild::Project" {
		t.Fatalf("Expected CodeBuild project resource, got %+v", proj)
	}
	env := proj.Properties["Environment"].(map[string]any)
	wantImage := map[string]any{"Fn::FindInMap": []any{
		"Languages",
		map[string]any{"Ref": "BuildRuntimeLanguage"},
		map[string]any{"Ref": "BuildRuntimeVersion"},
	}}
	if diff := cmp.Diff(wantImage, env["Image"]); diff != "" {
		t.Errorf("Image mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"Fn::GetAtt": []any{"CodeBuildRole", "Arn"}}, proj.Properties["ServiceRole"]); diff != "" {
		t.Errorf("ServiceRole mismatch (-want +got):\n%s", diff)
	}

	tags := proj.Properties["Tags"].([]any)
	last := tags[len(tags)-1].(map[string]any)
	if last["Key"] != "10-technical:runtime_version" {
		t.Errorf("Expected runtime version tag last, got %v", last)
	}

	role, ok := tmpl.Resources["CodeBuildRole"]
	if !ok {
		t.Fatal("Expected CodeBuildRole resource")
	}
	trust := role.Properties["AssumeRolePolicyDocument"].(map[string]any)["Statement"].([]any)[0].(map[string]any)
	if diff := cmp.Diff(map[string]any{"Service": []any{"codebuild.amazonaws.com"}}, trust["Principal"]); diff != "" {
		t.Errorf("Trust principal mismatch (-want +got):\n%s", diff)
	}

	if _, ok := tmpl.Parameters["LayerName"]; !ok {
		t.Error("Expected LayerName parameter from the project environment")
	}
	if _, ok := tmpl.Outputs["BuildProjectName"]; !ok {
		t.Error("Expected BuildProjectName output")
	}
}

func TestRender_BuildProjectNeedsRuntime(t *testing.T) {
	res := testResult(t)
	p, err := project.Build(project.Options{ServiceRoleARN: models.String("build")}, "")
	if err != nil {
		t.Fatal(err)
	}
	res.Project = &p
	res.Runtime = runtime.Matrix{}

	if _, err := Render(res); !errors.Is(err, project.ErrRuntimeRequired) {
		t.Errorf("Expected ErrRuntimeRequired, got %v", err)
	}
}
