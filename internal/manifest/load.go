package manifest

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/ccmdi/blockkit/internal/ctxlog"
	"github.com/ccmdi/blockkit/internal/fsutil"
	"github.com/ccmdi/blockkit/internal/refresh"
)

// Set is the collection of all loaded component manifests, keyed by
// component type.
type Set struct {
	components map[string]*Component
}

// NewSet assembles a set from already-parsed components. A component type
// appearing twice is an error.
func NewSet(components ...*Component) (*Set, error) {
	set := &Set{components: make(map[string]*Component, len(components))}
	for _, c := range components {
		if _, exists := set.components[c.Type]; exists {
			return nil, fmt.Errorf("component %q declared more than once", c.Type)
		}
		set.components[c.Type] = c
	}
	return set, nil
}

// Component looks up a manifest by component type.
func (s *Set) Component(typ string) (*Component, bool) {
	c, ok := s.components[typ]
	return c, ok
}

// All returns every component in the set, ordered by type.
func (s *Set) All() []*Component {
	out := make([]*Component, 0, len(s.components))
	for _, t := range s.Types() {
		out = append(out, s.components[t])
	}
	return out
}

// Types returns every component type in the set, sorted.
func (s *Set) Types() []string {
	out := make([]string, 0, len(s.components))
	for t := range s.components {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Len reports the number of components in the set.
func (s *Set) Len() int { return len(s.components) }

// LoadDir parses every .hcl manifest under root into one Set. A component
// type declared twice is an error.
func LoadDir(ctx context.Context, root string) (*Set, error) {
	logger := ctxlog.FromContext(ctx)

	paths, err := fsutil.FindFilesByExtension(root, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("discovering manifests in %q: %w", root, err)
	}

	set := &Set{components: make(map[string]*Component)}
	for _, path := range paths {
		components, err := ParseFile(ctx, path)
		if err != nil {
			return nil, err
		}
		for _, c := range components {
			if _, exists := set.components[c.Type]; exists {
				return nil, fmt.Errorf("component %q declared more than once (last in %s)", c.Type, path)
			}
			set.components[c.Type] = c
		}
	}

	logger.Debug("Loaded component manifests.", "root", root, "count", len(set.components))
	return set, nil
}

// ParseFile decodes one manifest file that contains zero or more
// 'component' blocks.
func ParseFile(ctx context.Context, path string) ([]*Component, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, diags
	}
	return decodeFile(ctx, file, path)
}

// ParseBytes decodes manifest source held in memory, as used by modules
// that embed their own manifest.
func ParseBytes(ctx context.Context, src []byte, filename string) ([]*Component, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diags
	}
	return decodeFile(ctx, file, filename)
}

type rootSchema struct {
	Components []*hclComponent `hcl:"component,block"`
}

type hclComponent struct {
	Type string   `hcl:"type,label"`
	Body hcl.Body `hcl:",remain"`
}

var componentBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "description"},
		{Name: "handler", Required: true},
		{Name: "refresh"},
		{Name: "css"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "input", LabelNames: []string{"name"}},
	},
}

var inputBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "type"},
		{Name: "description"},
		{Name: "default"},
		{Name: "aliases"},
	},
}

func decodeFile(ctx context.Context, file *hcl.File, path string) ([]*Component, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Parsing component manifests.", "file_path", path)

	schema := &rootSchema{}
	var allDiags hcl.Diagnostics
	allDiags = append(allDiags, gohcl.DecodeBody(file.Body, nil, schema)...)
	if allDiags.HasErrors() {
		return nil, allDiags
	}

	components := make([]*Component, 0, len(schema.Components))
	for _, parsed := range schema.Components {
		body, contentDiags := parsed.Body.Content(componentBodySchema)
		allDiags = append(allDiags, contentDiags...)
		if contentDiags.HasErrors() {
			continue
		}

		c := &Component{
			Type:   parsed.Type,
			Inputs: make(map[string]InputDefinition),
		}

		if attr, ok := body.Attributes["description"]; ok {
			allDiags = append(allDiags, gohcl.DecodeExpression(attr.Expr, nil, &c.Description)...)
		}
		if attr, ok := body.Attributes["handler"]; ok {
			allDiags = append(allDiags, gohcl.DecodeExpression(attr.Expr, nil, &c.Handler)...)
		}
		if attr, ok := body.Attributes["css"]; ok {
			allDiags = append(allDiags, gohcl.DecodeExpression(attr.Expr, nil, &c.CSSProperties)...)
		}
		if attr, ok := body.Attributes["refresh"]; ok {
			var raw []string
			refreshDiags := gohcl.DecodeExpression(attr.Expr, nil, &raw)
			allDiags = append(allDiags, refreshDiags...)
			if !refreshDiags.HasErrors() {
				strategies, diags := parseRefresh(raw, attr)
				allDiags = append(allDiags, diags...)
				c.Refresh = strategies
			}
		}

		inputs, inputDiags := parseInputs(body.Blocks)
		allDiags = append(allDiags, inputDiags...)
		c.Inputs = inputs

		components = append(components, c)
	}

	if allDiags.HasErrors() {
		return nil, allDiags
	}
	logger.Debug("Parsed component manifests.", "file_path", path, "count", len(components))
	return components, nil
}

func parseRefresh(raw []string, attr *hcl.Attribute) ([]refresh.Strategy, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	var out []refresh.Strategy
	for _, s := range raw {
		strategy, err := refresh.Parse(s)
		if err != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid refresh strategy",
				Detail:   err.Error(),
				Subject:  attr.Expr.Range().Ptr(),
			})
			continue
		}
		out = append(out, strategy)
	}
	return refresh.Dedupe(out), diags
}

func parseInputs(blocks hcl.Blocks) (map[string]InputDefinition, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	inputs := make(map[string]InputDefinition)

	for _, block := range blocks.OfType("input") {
		name := block.Labels[0]
		if _, exists := inputs[name]; exists {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate input definition",
				Detail:   fmt.Sprintf("An input named %q has already been defined.", name),
				Subject:  &block.DefRange,
			})
			continue
		}

		body, contentDiags := block.Body.Content(inputBodySchema)
		diags = append(diags, contentDiags...)
		if contentDiags.HasErrors() {
			continue
		}

		typeAttr, ok := body.Attributes["type"]
		if !ok {
			missing := block.Body.MissingItemRange()
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Missing 'type' attribute",
				Detail:   "The 'type' attribute is required for all input blocks.",
				Subject:  &missing,
			})
			continue
		}
		ctyType, typeDiags := typeExprToCtyType(typeAttr.Expr)
		diags = append(diags, typeDiags...)
		if typeDiags.HasErrors() {
			continue
		}

		def := InputDefinition{Name: name, Type: ctyType}
		if attr, ok := body.Attributes["description"]; ok {
			diags = append(diags, gohcl.DecodeExpression(attr.Expr, nil, &def.Description)...)
		}
		if attr, ok := body.Attributes["aliases"]; ok {
			diags = append(diags, gohcl.DecodeExpression(attr.Expr, nil, &def.Aliases)...)
		}
		if attr, ok := body.Attributes["default"]; ok {
			// Defaults must be literal values, so no eval context.
			val, valDiags := attr.Expr.Value(nil)
			diags = append(diags, valDiags...)
			if valDiags.HasErrors() {
				continue
			}
			if converted, err := convertValue(val, ctyType); err == nil {
				def.Default = &converted
			} else {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Invalid default value type",
					Detail:   fmt.Sprintf("The default value for %q is not compatible with its type, %q.", name, ctyType.FriendlyName()),
					Subject:  attr.Expr.Range().Ptr(),
				})
				continue
			}
		}

		inputs[name] = def
	}

	return inputs, diags
}

// typeExprToCtyType converts an HCL type expression such as `string` or
// `list(number)` into its cty.Type equivalent.
func typeExprToCtyType(expr hcl.Expression) (cty.Type, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	fail := func(detail string, rng hcl.Range) (cty.Type, hcl.Diagnostics) {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid type expression",
			Detail:   detail,
			Subject:  rng.Ptr(),
		})
		return cty.DynamicPseudoType, diags
	}

	switch v := expr.(type) {
	case *hclsyntax.FunctionCallExpr:
		if len(v.Args) != 1 {
			return fail(fmt.Sprintf("type constructors require exactly one argument, got %d", len(v.Args)), v.Range())
		}
		elem, elemDiags := typeExprToCtyType(v.Args[0])
		if elemDiags.HasErrors() {
			return cty.DynamicPseudoType, elemDiags
		}
		if elem == cty.DynamicPseudoType {
			return fail("collection types cannot contain type 'any'", v.Range())
		}
		switch v.Name {
		case "list":
			return cty.List(elem), nil
		case "map":
			return cty.Map(elem), nil
		case "set":
			return cty.Set(elem), nil
		default:
			return fail(fmt.Sprintf("unknown type constructor function %q", v.Name), v.Range())
		}

	case *hclsyntax.ScopeTraversalExpr:
		if len(v.Traversal) != 1 {
			return fail("invalid type keyword: traversal path is not a single identifier", v.Range())
		}
		switch v.Traversal.RootName() {
		case "string":
			return cty.String, nil
		case "number":
			return cty.Number, nil
		case "bool":
			return cty.Bool, nil
		case "any":
			return cty.DynamicPseudoType, nil
		default:
			return fail(fmt.Sprintf("unknown primitive type %q", v.Traversal.RootName()), v.Range())
		}

	default:
		return fail(fmt.Sprintf("unsupported expression for type definition: %T", v), expr.Range())
	}
}
