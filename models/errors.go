package models

import (
	"errors"
	"fmt"
)

// ConfigError is implemented by defects in a single action's configuration
type ConfigError interface {
	error
	configError()
}

// TopologyError is implemented by structural defects in the stage/action graph
type TopologyError interface {
	error
	topologyError()
}

// IsConfigError reports whether err wraps a ConfigError
func IsConfigError(err error) bool {
	var ce ConfigError
	return errors.As(err, &ce)
}

// IsTopologyError reports whether err wraps a TopologyError
func IsTopologyError(err error) bool {
	var te TopologyError
	return errors.As(err, &te)
}

type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return "missing required configuration key: " + e.Key
}

func (*MissingKeyError) configError() {}

func ErrMissingKey(key string) error {
	return &MissingKeyError{Key: key}
}

type InvalidValueTypeError struct {
	Key        string
	ActualType string
}

func (e *InvalidValueTypeError) Error() string {
	return fmt.Sprintf("configuration key '%s' must be a string or a deferred reference, got %s", e.Key, e.ActualType)
}

func (*InvalidValueTypeError) configError() {}

func ErrInvalidValueType(key, actualType string) error {
	return &InvalidValueTypeError{Key: key, ActualType: actualType}
}

type UnknownProviderError struct {
	Category Category
	Provider string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider '%s' for category %s", e.Provider, e.Category)
}

func (*UnknownProviderError) configError() {}

func ErrUnknownProvider(category Category, provider string) error {
	return &UnknownProviderError{Category: category, Provider: provider}
}

// ActionError locates a configuration error on a specific action
type ActionError struct {
	Stage  string
	Action string
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("stage '%s' action '%s': %v", e.Stage, e.Action, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// ErrEmptyPipeline is returned when a pipeline has no stages
var ErrEmptyPipeline = errors.New("pipeline must have at least one stage")

type FirstStageError struct {
	Stage    string
	Action   string
	Category Category
}

func (e *FirstStageError) Error() string {
	return fmt.Sprintf("first stage '%s' may only contain Source actions, action '%s' is %s", e.Stage, e.Action, e.Category)
}

func (*FirstStageError) topologyError() {}

type DuplicateStageError struct {
	Name string
}

func (e *DuplicateStageError) Error() string {
	return fmt.Sprintf("duplicate stage name '%s'", e.Name)
}

func (*DuplicateStageError) topologyError() {}

type DuplicateActionError struct {
	Stage  string
	Action string
}

func (e *DuplicateActionError) Error() string {
	return fmt.Sprintf("duplicate action name '%s' in stage '%s'", e.Action, e.Stage)
}

func (*DuplicateActionError) topologyError() {}

type InvalidRunOrderError struct {
	Action   string
	RunOrder int
}

func (e *InvalidRunOrderError) Error() string {
	return fmt.Sprintf("action '%s' has invalid run order %d", e.Action, e.RunOrder)
}

func (*InvalidRunOrderError) topologyError() {}

type UnresolvedArtifactError struct {
	Artifact string
	Action   string
}

func (e *UnresolvedArtifactError) Error() string {
	return fmt.Sprintf("action '%s' consumes artifact '%s' which no earlier stage produces", e.Action, e.Artifact)
}

func (*UnresolvedArtifactError) topologyError() {}

func ErrUnresolvedArtifact(artifact, action string) error {
	return &UnresolvedArtifactError{Artifact: artifact, Action: action}
}

type DuplicateArtifactError struct {
	Artifact string
}

func (e *DuplicateArtifactError) Error() string {
	return fmt.Sprintf("artifact '%s' is produced more than once", e.Artifact)
}

func (*DuplicateArtifactError) topologyError() {}

func ErrDuplicateArtifact(artifact string) error {
	return &DuplicateArtifactError{Artifact: artifact}
}

// TemplatePathError is returned when a deploy action reads its template from
// an artifact it does not consume
type TemplatePathError struct {
	Action   string
	Artifact string
}

func (e *TemplatePathError) Error() string {
	return fmt.Sprintf("action '%s' reads its template from artifact '%s' which is not one of its inputs", e.Action, e.Artifact)
}

func (*TemplatePathError) topologyError() {}

// NotFoundError is returned by artifact lookups for names nobody produced
type NotFoundError struct {
	Artifact string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("artifact '%s' not found", e.Artifact)
}

func ErrNotFound(artifact string) error {
	return &NotFoundError{Artifact: artifact}
}
