package render

import (
	"regexp"
	"sort"
	"strings"

	"github.com/simon020286/pipegen/models"
)

// value renders a configuration value in template intrinsic form
func value(v models.Value) any {
	switch val := v.(type) {
	case models.Literal:
		return val.Value
	case models.Ref:
		return map[string]any{"Ref": val.Name}
	case models.Sub:
		return map[string]any{"Fn::Sub": val.Template}
	case models.GetAtt:
		return map[string]any{"Fn::GetAtt": []any{val.Resource, val.Attribute}}
	case models.ImportValue:
		return map[string]any{"Fn::ImportValue": val.Name}
	}
	return nil
}

func values(m map[string]models.Value) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = value(v)
	}
	return out
}

// subPlaceholder matches the ${...} placeholders of an Fn::Sub template
var subPlaceholder = regexp.MustCompile(`\$\{([^}]*)\}`)

// refCollector records the names referenced through Ref or Fn::Sub so that
// parameters can be declared for the ones no resource defines
type refCollector map[string]bool

func (c refCollector) add(v models.Value) {
	switch val := v.(type) {
	case models.Ref:
		c.addName(val.Name)
	case models.Sub:
		for _, name := range subNames(val.Template) {
			c.addName(name)
		}
	}
}

func (c refCollector) addName(name string) {
	if name != "" && !strings.HasPrefix(name, "AWS::") {
		c[name] = true
	}
}

// subNames returns the plain names a Sub template substitutes. Escaped
// literals (${!x}) and attribute references (${Res.Attr}) are skipped.
func subNames(template string) []string {
	var names []string
	for _, m := range subPlaceholder.FindAllStringSubmatch(template, -1) {
		name := strings.TrimSpace(m[1])
		if name == "" || strings.HasPrefix(name, "!") || strings.Contains(name, ".") {
			continue
		}
		names = append(names, name)
	}
	return names
}

func (c refCollector) addAll(m map[string]models.Value) {
	for _, v := range m {
		c.add(v)
	}
}

// undeclared returns the collected names not present in any of declared, sorted
func (c refCollector) undeclared(declared ...map[string]bool) []string {
	var names []string
	for name := range c {
		known := false
		for _, d := range declared {
			if d[name] {
				known = true
				break
			}
		}
		if !known {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// sensitive reports whether a parameter name looks like it holds a secret
func sensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range []string{"token", "secret", "password"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
