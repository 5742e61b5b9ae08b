package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/simon020286/pipegen/runtime"
)

const validPipeline = `
name: app
runtimes: [python]
artifact_store:
  location: pipeline-artifacts
stages:
  - name: Source
    actions:
      - name: Source
        category: Source
        provider: CodeCommit
        configuration:
          RepositoryName: app
          BranchName: main
        outputs: [SourceOutput]
  - name: Build
    actions:
      - name: Build
        category: Build
        provider: CodeBuild
        configuration:
          ProjectName: app
        inputs: [SourceOutput]
        outputs: [BuildOutput]
`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	registry := runtime.NewRegistry()
	require.NoError(t, registry.Register(runtime.Entry{Tool: "python", Version: "3.7.1", Image: "aws/codebuild/python:3.7.1"}))

	srv := httptest.NewServer(NewServer(registry, nil).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/yaml", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeError(t *testing.T, resp *http.Response) errorResponse {
	t.Helper()
	var out errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Content-Type"))
}

func TestProviders(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/v1/providers")
	require.NoError(t, err)
	defer resp.Body.Close()

	var providers []providerResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&providers))
	require.NotEmpty(t, providers)

	var github *providerResponse
	for i := range providers {
		if providers[i].Provider == "GitHub" {
			github = &providers[i]
		}
	}
	require.NotNil(t, github)
	assert.Equal(t, []string{"Repo", "Branch", "Owner", "OAuthToken"}, github.Required)
}

func TestRuntimes(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/v1/runtimes")
	require.NoError(t, err)
	defer resp.Body.Close()

	var runtimes []runtimeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&runtimes))
	assert.Equal(t, []runtimeResponse{{Tool: "python", Version: "3.7.1", Image: "aws/codebuild/python:3.7.1"}}, runtimes)
}

func TestValidate_OK(t *testing.T) {
	srv := newTestServer(t)
	resp := post(t, srv, "/v1/pipelines/validate", validPipeline)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out validateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Valid)
	assert.Equal(t, 2, out.Stages)
	assert.Equal(t, 2, out.Actions)
	assert.Len(t, out.RunID, 26)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantKind   string
		wantError  string
	}{
		{
			name:       "unresolved artifact",
			body:       strings.Replace(validPipeline, "inputs: [SourceOutput]", "inputs: [Missing]", 1),
			wantStatus: http.StatusUnprocessableEntity,
			wantKind:   KindTopology,
			wantError:  "Missing",
		},
		{
			name:       "missing configuration key",
			body:       strings.Replace(validPipeline, "BranchName: main", "", 1),
			wantStatus: http.StatusUnprocessableEntity,
			wantKind:   KindConfig,
			wantError:  "BranchName",
		},
		{
			name:       "unknown runtime",
			body:       strings.Replace(validPipeline, "runtimes: [python]", "runtimes: [cobol]", 1),
			wantStatus: http.StatusUnprocessableEntity,
			wantKind:   KindRuntime,
			wantError:  "cobol",
		},
		{
			name:       "structural validation",
			body:       strings.Replace(validPipeline, "name: app", "name: \"\"", 1),
			wantStatus: http.StatusUnprocessableEntity,
			wantKind:   KindConfig,
			wantError:  "pipeline name is required",
		},
		{
			name:       "unknown build compute type",
			body:       validPipeline + "build_project:\n  compute_type: HUGE\n",
			wantStatus: http.StatusUnprocessableEntity,
			wantKind:   KindConfig,
			wantError:  "HUGE",
		},
		{
			name:       "malformed body",
			body:       "stages: [",
			wantStatus: http.StatusBadRequest,
			wantKind:   KindRequest,
			wantError:  "failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t)
			resp := post(t, srv, "/v1/pipelines/validate", tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			out := decodeError(t, resp)
			assert.Equal(t, tt.wantKind, out.Kind)
			assert.Contains(t, out.Error, tt.wantError)
		})
	}
}

func TestRender_Formats(t *testing.T) {
	srv := newTestServer(t)

	resp := post(t, srv, "/v1/pipelines/render", validPipeline)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Run-Id"))

	var doc map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	resources, ok := doc["Resources"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, resources, "Pipeline")
	assert.Contains(t, resources, "PipelineRole")
	assert.NotContains(t, resources, "ArtifactBucket")

	resp = post(t, srv, "/v1/pipelines/render?format=yaml", validPipeline)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/yaml", resp.Header.Get("Content-Type"))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var yamlDoc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &yamlDoc))
	assert.Contains(t, yamlDoc, "Mappings")
}

func TestRender_BuildProject(t *testing.T) {
	srv := newTestServer(t)

	resp := post(t, srv, "/v1/pipelines/render", validPipeline+"build_project:\n  compute_type: BUILD_GENERAL1_SMALL\n")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	resources, ok := doc["Resources"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, resources, "BuildProject")
	assert.Contains(t, resources, "CodeBuildRole")
}

func TestRender_BadFormat(t *testing.T) {
	srv := newTestServer(t)
	resp := post(t, srv, "/v1/pipelines/render?format=xml", validPipeline)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, KindRequest, decodeError(t, resp).Kind)
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/v1/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
