package resolver

import (
	"context"
	"strings"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ccmdi/blockkit/internal/ctxlog"
	"github.com/ccmdi/blockkit/internal/expr"
	"github.com/ccmdi/blockkit/internal/metadata"
)

// Reserved argument keys.
const (
	KeyEnabled = "enabled"
	KeyRef     = "ref" // reserved for reference-based indirection
)

// WatchedKeys is the set of metadata properties dereferenced while resolving
// a block's arguments, split by alias root. Both roots read the same
// metadata object; the split exists so different refresh rules can apply to
// the two usages.
type WatchedKeys struct {
	accesses []expr.Access
	seen     map[string]struct{}
}

// NewWatchedKeys builds a set from explicit accesses, deduplicating as the
// resolver would.
func NewWatchedKeys(accesses ...expr.Access) *WatchedKeys {
	w := &WatchedKeys{}
	for _, a := range accesses {
		w.add(a)
	}
	return w
}

func (w *WatchedKeys) add(a expr.Access) {
	if w.seen == nil {
		w.seen = make(map[string]struct{})
	}
	key := a.String()
	if _, dup := w.seen[key]; dup {
		return
	}
	w.seen[key] = struct{}{}
	w.accesses = append(w.accesses, a)
}

// Accesses returns the deduplicated accesses in first-seen order.
func (w *WatchedKeys) Accesses() []expr.Access { return w.accesses }

// Empty reports whether any metadata was referenced at all.
func (w *WatchedKeys) Empty() bool { return len(w.accesses) == 0 }

// Keys returns the distinct top-level metadata keys across both roots.
func (w *WatchedKeys) Keys() []string {
	var keys []string
	seen := map[string]struct{}{}
	for _, a := range w.accesses {
		k := a.Key()
		if _, dup := seen[k]; dup || k == "" {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// Resolved is the output of one resolution pass.
type Resolved struct {
	// Args is the flat argument map handed to the widget.
	Args map[string]string
	// Values carries the typed results for args that evaluated as
	// expressions; literal passthrough args appear as strings.
	Values map[string]expr.Value
	// CSSOverrides holds trailing-! keys, stripped of the suffix.
	CSSOverrides map[string]string
	// Enabled gates whether the block renders at all.
	Enabled bool
	// Ref is the reserved reference key, verbatim.
	Ref string
	// Watched is the watched key set recorded during evaluation.
	Watched WatchedKeys
	// RecoveryNeeded is set when a file.-rooted reference evaluated to
	// missing, flagging the bounded post-render recovery path.
	RecoveryNeeded bool
}

// Resolver resolves block source against document metadata. The clock is
// injected so date-valued special variables are deterministic under test.
type Resolver struct {
	clk clock.Clock
}

// New creates a resolver on the given clock.
func New(clk clock.Clock) *Resolver {
	return &Resolver{clk: clk}
}

// Resolve runs the full resolution pipeline for one block. aliases maps
// source key names to the declared argument they stand in for (already
// filtered by the caller against the target component's declared inputs);
// an alias never overwrites an explicitly supplied key.
func (r *Resolver) Resolve(ctx context.Context, source string, doc *metadata.Document, aliases map[string]string) *Resolved {
	logger := ctxlog.FromContext(ctx)

	out := &Resolved{
		Args:         map[string]string{},
		Values:       map[string]expr.Value{},
		CSSOverrides: map[string]string{},
		Enabled:      true,
	}

	vars := specialVars(doc, r.now())
	evalCtx := doc.Context()

	for _, arg := range parseLines(source) {
		key := arg.key
		value, typed := r.resolveValue(arg, vars, evalCtx, out)

		// Alias pass: a folder-style shorthand feeds the declared key
		// unless that key was (or will be) supplied explicitly. A key
		// carrying the override suffix is never an alias.
		if !strings.HasSuffix(key, "!") {
			if target, ok := aliases[key]; ok {
				key = target
			}
		}

		// Classification pass.
		switch {
		case strings.HasSuffix(key, "!"):
			out.CSSOverrides[strings.TrimSuffix(key, "!")] = value
		case key == KeyEnabled:
			out.Enabled = typed.Truthy()
		case key == KeyRef:
			out.Ref = value
		default:
			if _, explicit := out.Args[key]; explicit && key != arg.key {
				continue
			}
			out.Args[key] = value
			out.Values[key] = typed
		}
	}

	if out.RecoveryNeeded {
		logger.Debug("Unresolved file reference, recovery flagged.", "doc", doc.Path)
	}
	return out
}

// resolveValue applies the substitution and evaluation steps for one value.
func (r *Resolver) resolveValue(arg rawArg, vars map[string]string, evalCtx expr.Context, out *Resolved) (string, expr.Value) {
	if arg.literal {
		// Quoted and JSON-like values skip evaluation entirely; variables
		// inside them substitute plainly.
		v := substitute(arg.value, vars, false)
		return v, expr.StringVal(v)
	}

	evalInput := substitute(arg.value, vars, true)
	res, err := expr.EvaluateString(evalInput, evalCtx)
	if err != nil {
		// Error-recovery passthrough: plain paths, URLs, and free text
		// stay renderable as literal strings.
		plain := substitute(arg.value, vars, false)
		return plain, expr.StringVal(plain)
	}

	for _, a := range res.Accesses {
		out.Watched.add(a)
		if a.Root == "file" && evalCtx.Lookup(a.Path).IsMissing() {
			out.RecoveryNeeded = true
		}
	}
	return res.Value.Display(), res.Value
}

// Eval evaluates a single expression against a document's metadata, with
// the same special-variable substitution the full pipeline applies. Unlike
// Resolve there is no literal passthrough, so bare identifiers read from
// front matter and a malformed expression is an error the caller sees.
func (r *Resolver) Eval(source string, doc *metadata.Document) (expr.Value, error) {
	vars := specialVars(doc, r.now())
	input := substitute(strings.TrimSpace(source), vars, true)
	res, err := expr.EvaluateStandalone(input, doc.Context())
	if err != nil {
		return expr.MissingVal(), err
	}
	return res.Value, nil
}

func (r *Resolver) now() time.Time {
	if r.clk == nil {
		return time.Now()
	}
	return r.clk.Now()
}
