package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/dop251/goja"

	"github.com/simon020286/pipegen/models"
)

// Prefixes recognised in configuration strings
const (
	PrefixRef    = "$ref:"
	PrefixSub    = "$sub:"
	PrefixGetAtt = "$getatt:"
	PrefixImport = "$import:"
	PrefixVar    = "$var:"
	PrefixEnv    = "$env:"
	PrefixJS     = "$js:"
)

// maxIndirection bounds chains of $var: and $js: values resolving to further
// prefixed strings
const maxIndirection = 8

// Resolver turns raw configuration values into models.Value. $var:, $env:
// and $js: are resolved immediately; $ref:, $sub:, $getatt: and $import:
// become deferred references.
type Resolver struct {
	Variables map[string]any
	// LookupEnv defaults to os.LookupEnv
	LookupEnv func(string) (string, bool)
}

// NewResolver creates a resolver over variables
func NewResolver(variables map[string]any) *Resolver {
	return &Resolver{Variables: variables, LookupEnv: os.LookupEnv}
}

// Value parses raw. Strings are inspected for prefixes, intrinsic maps such as
// {Ref: X} become deferred references and anything else is kept as a literal.
func (r *Resolver) Value(raw any) (models.Value, error) {
	return r.value(raw, 0)
}

func (r *Resolver) value(raw any, depth int) (models.Value, error) {
	if depth > maxIndirection {
		return nil, fmt.Errorf("value indirection deeper than %d", maxIndirection)
	}

	switch v := raw.(type) {
	case models.Value:
		return v, nil
	case string:
		return r.parseString(v, depth)
	case map[string]any:
		if ref, ok, err := parseIntrinsic(v); ok || err != nil {
			return ref, err
		}
	}
	return models.NewLiteral(raw), nil
}

func (r *Resolver) parseString(s string, depth int) (models.Value, error) {
	switch {
	case strings.HasPrefix(s, PrefixRef):
		return models.Ref{Name: strings.TrimPrefix(s, PrefixRef)}, nil

	case strings.HasPrefix(s, PrefixSub):
		return models.Sub{Template: strings.TrimPrefix(s, PrefixSub)}, nil

	case strings.HasPrefix(s, PrefixGetAtt):
		return parseGetAtt(strings.TrimPrefix(s, PrefixGetAtt))

	case strings.HasPrefix(s, PrefixImport):
		return models.ImportValue{Name: strings.TrimPrefix(s, PrefixImport)}, nil

	case strings.HasPrefix(s, PrefixVar):
		name := strings.TrimPrefix(s, PrefixVar)
		value, exists := r.Variables[name]
		if !exists {
			return nil, fmt.Errorf("variable '%s' not found in variables", name)
		}
		return r.value(value, depth+1)

	case strings.HasPrefix(s, PrefixEnv):
		name := strings.TrimPrefix(s, PrefixEnv)
		lookup := r.LookupEnv
		if lookup == nil {
			lookup = os.LookupEnv
		}
		value, ok := lookup(name)
		if !ok || value == "" {
			return nil, fmt.Errorf("environment variable '%s' is not set or is empty", name)
		}
		return models.String(value), nil

	case strings.HasPrefix(s, PrefixJS):
		result, err := r.evalJS(strings.TrimPrefix(s, PrefixJS))
		if err != nil {
			return nil, err
		}
		return r.value(result, depth+1)
	}
	return models.String(s), nil
}

// evalJS evaluates a JavaScript expression using Goja. Configuration
// variables are available as $vars.
func (r *Resolver) evalJS(expression string) (any, error) {
	vm := goja.New()

	vars := r.Variables
	if vars == nil {
		vars = map[string]any{}
	}
	if err := vm.Set("$vars", vars); err != nil {
		return nil, fmt.Errorf("failed to set variables: %w", err)
	}

	wrappedCode := "(function() {\n return " + expression + "\n})()"

	result, err := vm.RunString(wrappedCode)
	if err != nil {
		return nil, fmt.Errorf("failed to execute JS expression '%s': %w", expression, err)
	}
	return result.Export(), nil
}

func parseGetAtt(s string) (models.Value, error) {
	resource, attribute, found := strings.Cut(s, ".")
	if !found || resource == "" || attribute == "" {
		return nil, fmt.Errorf("invalid $getatt reference '%s': expected Resource.Attribute", s)
	}
	return models.GetAtt{Resource: resource, Attribute: attribute}, nil
}

// parseIntrinsic recognises single-key intrinsic maps. ok is false for any
// other map.
func parseIntrinsic(m map[string]any) (models.Value, bool, error) {
	if len(m) != 1 {
		return nil, false, nil
	}

	for key, arg := range m {
		switch key {
		case "Ref":
			name, ok := arg.(string)
			if !ok {
				return nil, true, fmt.Errorf("Ref expects a string, got %T", arg)
			}
			return models.Ref{Name: name}, true, nil

		case "Fn::Sub":
			tmpl, ok := arg.(string)
			if !ok {
				return nil, true, fmt.Errorf("Fn::Sub expects a string, got %T", arg)
			}
			return models.Sub{Template: tmpl}, true, nil

		case "Fn::ImportValue":
			name, ok := arg.(string)
			if !ok {
				return nil, true, fmt.Errorf("Fn::ImportValue expects a string, got %T", arg)
			}
			return models.ImportValue{Name: name}, true, nil

		case "Fn::GetAtt":
			switch a := arg.(type) {
			case string:
				v, err := parseGetAtt(a)
				return v, true, err
			case []any:
				if len(a) == 2 {
					resource, ok1 := a[0].(string)
					attribute, ok2 := a[1].(string)
					if ok1 && ok2 {
						return models.GetAtt{Resource: resource, Attribute: attribute}, true, nil
					}
				}
			}
			return nil, true, fmt.Errorf("Fn::GetAtt expects [resource, attribute], got %v", arg)
		}
	}
	return nil, false, nil
}
