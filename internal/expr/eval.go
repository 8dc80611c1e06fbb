package expr

import (
	"fmt"
	"math"
	"strings"
)

// Context exposes the metadata object expressions resolve against. Lookup
// returns MissingVal for absent paths; it must never mutate the underlying
// metadata, so repeated evaluation of one expression is deterministic.
type Context interface {
	Lookup(path []string) Value
}

// MapContext adapts a plain front-matter object to a Context.
type MapContext map[string]Value

func (m MapContext) Lookup(path []string) Value {
	if len(path) == 0 {
		return MissingVal()
	}
	v, ok := m[path[0]]
	if !ok {
		return MissingVal()
	}
	for _, seg := range path[1:] {
		v = v.Field(seg)
	}
	return v
}

// Access records one property dereference performed during evaluation:
// the alias it was rooted at ("fm" or "file") and the path segments.
type Access struct {
	Root string
	Path []string
}

// Key returns the top-level metadata key the access touches.
func (a Access) Key() string {
	if len(a.Path) == 0 {
		return ""
	}
	return a.Path[0]
}

func (a Access) String() string {
	return a.Root + "." + strings.Join(a.Path, ".")
}

// Result carries the evaluated value plus every property access performed
// while computing it, in evaluation order.
type Result struct {
	Value    Value
	Accesses []Access
}

// Evaluate walks the AST against the context. The only error surface is an
// internal inconsistency (an unknown node or operator), which indicates a
// parser bug rather than bad input.
func Evaluate(n Node, ctx Context) (Result, error) {
	ev := &evaluator{ctx: ctx}
	v, err := ev.eval(n)
	if err != nil {
		return Result{}, err
	}
	return Result{Value: v, Accesses: ev.accesses}, nil
}

// EvaluateString parses and evaluates in one step.
func EvaluateString(input string, ctx Context) (Result, error) {
	n, err := Parse(input)
	if err != nil {
		return Result{}, err
	}
	return Evaluate(n, ctx)
}

// EvaluateStandalone is EvaluateString with ParseStandalone's grammar, so
// bare identifiers read from front matter.
func EvaluateStandalone(input string, ctx Context) (Result, error) {
	n, err := ParseStandalone(input)
	if err != nil {
		return Result{}, err
	}
	return Evaluate(n, ctx)
}

type evaluator struct {
	ctx      Context
	accesses []Access
}

func (ev *evaluator) eval(n Node) (Value, error) {
	switch t := n.(type) {
	case *Literal:
		return t.Value, nil

	case *Property:
		ev.accesses = append(ev.accesses, Access{Root: t.Root, Path: t.Path})
		return ev.ctx.Lookup(t.Path), nil

	case *Unary:
		x, err := ev.eval(t.X)
		if err != nil {
			return Value{}, err
		}
		switch t.Op {
		case NOT:
			return BoolVal(!x.Truthy()), nil
		case MINUS:
			f, ok := x.Num()
			if !ok {
				return NumberVal(nan()), nil
			}
			return NumberVal(-f), nil
		}
		return Value{}, fmt.Errorf("expr: unknown unary operator %s", t.Op)

	case *Binary:
		return ev.evalBinary(t)

	case *Conditional:
		cond, err := ev.eval(t.Cond)
		if err != nil {
			return Value{}, err
		}
		if t.Then == nil {
			return BoolVal(cond.Truthy()), nil
		}
		if cond.Truthy() {
			return ev.eval(t.Then)
		}
		if t.Else == nil {
			// Two-argument form: the raw condition value stands in for else.
			return cond, nil
		}
		return ev.eval(t.Else)

	case *Call:
		return ev.evalCall(t)
	}
	return Value{}, fmt.Errorf("expr: unknown node %T", n)
}

func (ev *evaluator) evalBinary(b *Binary) (Value, error) {
	// Logical operators short-circuit and return an operand, not a
	// normalized boolean.
	switch b.Op {
	case AND:
		l, err := ev.eval(b.L)
		if err != nil {
			return Value{}, err
		}
		if !l.Truthy() {
			return l, nil
		}
		return ev.eval(b.R)
	case OR:
		l, err := ev.eval(b.L)
		if err != nil {
			return Value{}, err
		}
		if l.Truthy() {
			return l, nil
		}
		return ev.eval(b.R)
	}

	l, err := ev.eval(b.L)
	if err != nil {
		return Value{}, err
	}
	r, err := ev.eval(b.R)
	if err != nil {
		return Value{}, err
	}

	switch b.Op {
	case PLUS:
		// Two strings concatenate even when both look numeric; the
		// coercion branch needs a genuine number on at least one side.
		if l.Kind() != KindString || r.Kind() != KindString {
			if lf, ok := l.Num(); ok {
				if rf, ok := r.Num(); ok {
					return NumberVal(lf + rf), nil
				}
			}
		}
		return StringVal(l.Display() + r.Display()), nil

	case MINUS, STAR, SLASH:
		lf, lok := l.Num()
		rf, rok := r.Num()
		if !lok || !rok {
			return NumberVal(nan()), nil
		}
		switch b.Op {
		case MINUS:
			return NumberVal(lf - rf), nil
		case STAR:
			return NumberVal(lf * rf), nil
		default:
			// Division by zero yields the platform infinity, not an error.
			return NumberVal(lf / rf), nil
		}

	case EQ:
		return BoolVal(l.Equal(r)), nil
	case NE:
		return BoolVal(!l.Equal(r)), nil

	case GT, LT, GE, LE:
		cmp := compare(l, r)
		switch b.Op {
		case GT:
			return BoolVal(cmp > 0), nil
		case LT:
			return BoolVal(cmp < 0), nil
		case GE:
			return BoolVal(cmp >= 0), nil
		default:
			return BoolVal(cmp <= 0), nil
		}
	}
	return Value{}, fmt.Errorf("expr: unknown binary operator %s", b.Op)
}

func (ev *evaluator) evalCall(c *Call) (Value, error) {
	args := make([]Value, len(c.Args))
	for i, a := range c.Args {
		v, err := ev.eval(a)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}
	switch c.Name {
	case "contains":
		return BoolVal(contains(args[0], args[1])), nil
	}
	return Value{}, fmt.Errorf("expr: unknown function %q", c.Name)
}

// contains is a case-insensitive substring test for strings and an
// element-membership test for lists.
func contains(haystack, needle Value) bool {
	if haystack.Kind() == KindList {
		for _, e := range haystack.List() {
			if e.Equal(needle) {
				return true
			}
		}
		return false
	}
	return strings.Contains(strings.ToLower(haystack.Display()), strings.ToLower(needle.Display()))
}

// compare orders two values: numerically when both coerce to numbers,
// otherwise as case-insensitive strings.
func compare(l, r Value) int {
	if lf, ok := l.Num(); ok {
		if rf, ok := r.Num(); ok {
			switch {
			case lf < rf:
				return -1
			case lf > rf:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(strings.ToLower(l.Display()), strings.ToLower(r.Display()))
}

func nan() float64 { return math.NaN() }
