// Package iam composes the pipeline execution role from coarse capabilities.
package iam

import "fmt"

// Capability is a permission bundle that expands into fixed policy statements
type Capability string

const (
	S3Access             Capability = "S3Access"
	CodeCommitAccess     Capability = "CodeCommitAccess"
	CodeBuildAccess      Capability = "CodeBuildAccess"
	LambdaInvoke         Capability = "LambdaInvoke"
	CloudFormationDeploy Capability = "CloudFormationDeploy"
)

// Capabilities lists every capability
var Capabilities = []Capability{S3Access, CodeCommitAccess, CodeBuildAccess, LambdaInvoke, CloudFormationDeploy}

// ParseCapability converts a configuration string to a Capability
func ParseCapability(s string) (Capability, error) {
	for _, c := range Capabilities {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown capability '%s'", s)
}

// ParseCapabilities converts a list of names, keeping their order
func ParseCapabilities(names []string) ([]Capability, error) {
	caps := make([]Capability, 0, len(names))
	for _, n := range names {
		c, err := ParseCapability(n)
		if err != nil {
			return nil, err
		}
		caps = append(caps, c)
	}
	return caps, nil
}
