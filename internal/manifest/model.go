// Package manifest defines the HCL component manifests that declare each
// widget's argument contract, alias table, CSS override surface, and
// declared refresh strategies.
package manifest

import (
	"sort"

	"github.com/zclconf/go-cty/cty"

	"github.com/ccmdi/blockkit/internal/refresh"
)

// Component is the format-agnostic representation of one component
// manifest. It is the contract a block invocation is validated against
// before the registered handler runs.
type Component struct {
	Type        string
	Description string

	// Handler names the registered render handler for this component.
	Handler string

	// Refresh holds the strategies declared in the manifest; strategies
	// inferred from watched keys are added at render time.
	Refresh []refresh.Strategy

	// CSSProperties lists the custom property names a trailing-! argument
	// may override.
	CSSProperties []string

	Inputs map[string]InputDefinition
}

// InputDefinition defines a single argument a component accepts.
type InputDefinition struct {
	// Name is taken from the HCL block label.
	Name string

	// Type is the value type the argument is converted to.
	Type cty.Type

	Description string

	// Default is used when the caller omits the argument. A nil Default
	// marks the argument required.
	Default *cty.Value

	// Aliases are alternate source keys that resolve to this input.
	Aliases []string
}

// Required returns the names of all inputs without a default, sorted.
func (c *Component) Required() []string {
	var out []string
	for name, in := range c.Inputs {
		if in.Default == nil {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// AliasTable flattens every input's aliases into the alias-to-canonical
// map the argument resolver consumes.
func (c *Component) AliasTable() map[string]string {
	table := make(map[string]string)
	for name, in := range c.Inputs {
		for _, alias := range in.Aliases {
			table[alias] = name
		}
	}
	return table
}

// AllowsProperty reports whether the component declares the given CSS
// custom property as overridable.
func (c *Component) AllowsProperty(name string) bool {
	for _, p := range c.CSSProperties {
		if p == name {
			return true
		}
	}
	return false
}
