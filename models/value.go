package models

import "fmt"

// Value is a configuration value: either a literal supplied by the caller or a
// deferred reference that is only resolved when the template is deployed.
// The set of implementations is closed.
type Value interface {
	// IsDeferred reports whether the value is resolved at deploy time
	IsDeferred() bool
	// Kind returns a short name for the value shape, used in error messages
	Kind() string
	isValue()
}

// Literal represents a value given directly in the configuration
type Literal struct {
	Value any
}

// NewLiteral wraps v as a Literal
func NewLiteral(v any) Literal {
	return Literal{Value: v}
}

func (l Literal) IsDeferred() bool { return false }

// Kind returns the Go type of the wrapped value ("string", "int", ...)
func (l Literal) Kind() string {
	if l.Value == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", l.Value)
}

func (Literal) isValue() {}

// String returns the literal as a string when it holds one
func (l Literal) String() (string, bool) {
	s, ok := l.Value.(string)
	return s, ok
}

// Ref references a template parameter or resource by logical name
type Ref struct {
	Name string
}

func (Ref) IsDeferred() bool { return true }
func (Ref) Kind() string     { return "Ref" }
func (Ref) isValue()         {}

// Sub is a string template substituted at deploy time (${Name} placeholders)
type Sub struct {
	Template string
}

func (Sub) IsDeferred() bool { return true }
func (Sub) Kind() string     { return "Fn::Sub" }
func (Sub) isValue()         {}

// GetAtt references an attribute of another resource
type GetAtt struct {
	Resource  string
	Attribute string
}

func (GetAtt) IsDeferred() bool { return true }
func (GetAtt) Kind() string     { return "Fn::GetAtt" }
func (GetAtt) isValue()         {}

// ImportValue references an export of another stack
type ImportValue struct {
	Name string
}

func (ImportValue) IsDeferred() bool { return true }
func (ImportValue) Kind() string     { return "Fn::ImportValue" }
func (ImportValue) isValue()         {}

// String is a shorthand for a string Literal
func String(s string) Value {
	return Literal{Value: s}
}

// LiteralString returns the string held by v when v is a string literal
func LiteralString(v Value) (string, bool) {
	if l, ok := v.(Literal); ok {
		return l.String()
	}
	return "", false
}
