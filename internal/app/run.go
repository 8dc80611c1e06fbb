package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/ccmdi/blockkit/internal/engine"
)

// Run executes one CLI invocation. With a component it renders a single
// block against the vault and prints the output; without one it lists the
// available components.
func (a *App) Run(ctx context.Context, component, docPath, source string) error {
	if component == "" {
		return a.listComponents()
	}

	out, err := a.engine.RenderBlock(ctx, &engine.Block{
		Component: component,
		Source:    source,
		DocPath:   docPath,
	})
	if err != nil {
		return err
	}
	if !out.Enabled {
		fmt.Fprintln(a.outW, "(disabled)")
		return nil
	}

	body := out.Body
	if body != "" && !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	fmt.Fprint(a.outW, body)
	for prop, value := range out.CSSOverrides {
		fmt.Fprintf(a.outW, "css: --%s: %s\n", prop, value)
	}
	return nil
}

// Eval evaluates one expression against a document's metadata and prints
// the display form of the result.
func (a *App) Eval(expression, docPath string) error {
	v, err := a.engine.Eval(expression, docPath)
	if err != nil {
		return fmt.Errorf("evaluating %q: %w", expression, err)
	}
	fmt.Fprintln(a.outW, v.Display())
	return nil
}

func (a *App) listComponents() error {
	for _, c := range a.manifests.All() {
		line := c.Type
		if c.Description != "" {
			line += "  " + c.Description
		}
		fmt.Fprintln(a.outW, line)
	}
	return nil
}
