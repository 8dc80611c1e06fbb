package expr

import "strings"

// Node is an expression AST node.
type Node interface {
	node()
}

// Literal is a string, number, boolean, null or undefined literal.
type Literal struct {
	Value Value
}

// Property is a dotted path into document metadata. Root is "fm" or "file";
// both resolve against the same metadata object, the distinction only matters
// for watched-key classification upstream.
type Property struct {
	Root string
	Path []string
}

// Unary is !x or -x.
type Unary struct {
	Op TokenType // NOT or MINUS
	X  Node
}

// Binary is a two-operand arithmetic, comparison or logical expression.
type Binary struct {
	Op   TokenType
	L, R Node
}

// Conditional is the if(cond), if(cond, then) or if(cond, then, else) form.
// Then and Else are nil for the shorter arities.
type Conditional struct {
	Cond Node
	Then Node
	Else Node
}

// Call is a built-in function invocation, e.g. contains(haystack, needle).
type Call struct {
	Name string
	Args []Node
}

func (*Literal) node()     {}
func (*Property) node()    {}
func (*Unary) node()       {}
func (*Binary) node()      {}
func (*Conditional) node() {}
func (*Call) node()        {}

// String renders the property as it appeared in source, e.g. "fm.status.done".
func (p *Property) String() string {
	return p.Root + "." + strings.Join(p.Path, ".")
}
