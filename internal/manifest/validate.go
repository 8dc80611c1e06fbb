package manifest

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/ccmdi/blockkit/internal/expr"
	"github.com/ccmdi/blockkit/internal/resolver"
)

// ValidateHandlers checks manifest/handler parity in both directions:
// every component must name a registered handler, and every registered
// handler must be claimed by a component.
func (s *Set) ValidateHandlers(registered []string) error {
	have := make(map[string]bool, len(registered))
	for _, name := range registered {
		have[name] = true
	}

	claimed := make(map[string]bool)
	var missing []string
	for _, typ := range s.Types() {
		c := s.components[typ]
		claimed[c.Handler] = true
		if !have[c.Handler] {
			missing = append(missing, fmt.Sprintf("%s (component %q)", c.Handler, typ))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("manifests name unregistered handlers: %s", strings.Join(missing, ", "))
	}

	var orphans []string
	for _, name := range registered {
		if !claimed[name] {
			orphans = append(orphans, name)
		}
	}
	if len(orphans) > 0 {
		sort.Strings(orphans)
		return fmt.Errorf("handlers registered without a manifest: %s", strings.Join(orphans, ", "))
	}
	return nil
}

// ValidateArgs checks a resolved block invocation against the component's
// contract. It returns the typed argument map with defaults applied, or a
// MissingArgumentsError, ArgumentTypeError, or InvalidPropertyError.
func (c *Component) ValidateArgs(res *resolver.Resolved) (map[string]cty.Value, error) {
	for prop := range res.CSSOverrides {
		if !c.AllowsProperty(prop) {
			return nil, &InvalidPropertyError{Component: c.Type, Property: prop}
		}
	}

	var missing []string
	for _, name := range c.Required() {
		if _, ok := res.Args[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingArgumentsError{Component: c.Type, Keys: missing}
	}

	args := make(map[string]cty.Value, len(c.Inputs))
	for name, in := range c.Inputs {
		raw, ok := res.Args[name]
		if !ok {
			args[name] = *in.Default
			continue
		}

		val := res.Values[name]
		if val.IsMissing() {
			val = expr.StringVal(raw)
		}
		val = normalize(val, in.Type)
		converted, err := convertValue(ctyFromValue(val), in.Type)
		if err != nil {
			return nil, &ArgumentTypeError{Component: c.Type, Key: name, Reason: err.Error()}
		}
		args[name] = converted
	}
	return args, nil
}

// normalize decodes JSON-shaped string arguments when the declared type is
// a collection, so `columns=["title"]` satisfies a list(string) input.
func normalize(val expr.Value, want cty.Type) expr.Value {
	if val.Kind() != expr.KindString || want.IsPrimitiveType() || want == cty.DynamicPseudoType {
		return val
	}
	var decoded any
	if err := json.Unmarshal([]byte(val.Display()), &decoded); err != nil {
		return val
	}
	return expr.FromAny(decoded)
}

func convertValue(v cty.Value, want cty.Type) (cty.Value, error) {
	return convert.Convert(v, want)
}

// ctyFromValue maps an evaluated argument value onto the cty type system
// so manifest-declared types can be enforced with standard conversions.
func ctyFromValue(v expr.Value) cty.Value {
	return ctyFromAny(v.ToAny())
}

func ctyFromAny(v any) cty.Value {
	switch t := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType)
	case bool:
		return cty.BoolVal(t)
	case float64:
		return cty.NumberFloatVal(t)
	case string:
		return cty.StringVal(t)
	case []any:
		if len(t) == 0 {
			return cty.EmptyTupleVal
		}
		elems := make([]cty.Value, len(t))
		for i, e := range t {
			elems[i] = ctyFromAny(e)
		}
		return cty.TupleVal(elems)
	case map[string]any:
		if len(t) == 0 {
			return cty.EmptyObjectVal
		}
		attrs := make(map[string]cty.Value, len(t))
		for k, e := range t {
			attrs[k] = ctyFromAny(e)
		}
		return cty.ObjectVal(attrs)
	default:
		return cty.StringVal(fmt.Sprintf("%v", t))
	}
}
