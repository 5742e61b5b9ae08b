// Package render turns a generation result into a declarative infrastructure
// template document.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// FormatVersion is written into every template
const FormatVersion = "2010-09-09"

// Template is a rendered infrastructure document
type Template struct {
	AWSTemplateFormatVersion string                                  `json:"AWSTemplateFormatVersion" yaml:"AWSTemplateFormatVersion"`
	Description              string                                  `json:"Description,omitempty" yaml:"Description,omitempty"`
	Parameters               map[string]Parameter                    `json:"Parameters,omitempty" yaml:"Parameters,omitempty"`
	Mappings                 map[string]map[string]map[string]string `json:"Mappings,omitempty" yaml:"Mappings,omitempty"`
	Resources                map[string]Resource                     `json:"Resources" yaml:"Resources"`
	Outputs                  map[string]Output                       `json:"Outputs,omitempty" yaml:"Outputs,omitempty"`
}

// Parameter is a template parameter declaration
type Parameter struct {
	Type          string   `json:"Type" yaml:"Type"`
	Description   string   `json:"Description,omitempty" yaml:"Description,omitempty"`
	AllowedValues []string `json:"AllowedValues,omitempty" yaml:"AllowedValues,omitempty"`
	NoEcho        bool     `json:"NoEcho,omitempty" yaml:"NoEcho,omitempty"`
}

// Resource is a template resource
type Resource struct {
	Type       string         `json:"Type" yaml:"Type"`
	Properties map[string]any `json:"Properties" yaml:"Properties"`
}

// Output is a template output
type Output struct {
	Description string `json:"Description,omitempty" yaml:"Description,omitempty"`
	Value       any    `json:"Value" yaml:"Value"`
}

// JSON returns the template as indented JSON
func (t *Template) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode template as JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// YAML returns the template as YAML
func (t *Template) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return nil, fmt.Errorf("failed to encode template as YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode template as YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// Encode returns the template in format, "json" or "yaml"
func (t *Template) Encode(format string) ([]byte, error) {
	switch format {
	case "json", "":
		return t.JSON()
	case "yaml", "yml":
		return t.YAML()
	default:
		return nil, fmt.Errorf("unsupported template format '%s'", format)
	}
}
