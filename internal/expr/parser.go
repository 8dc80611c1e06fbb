package expr

import (
	"fmt"
	"strconv"
)

// parseNumberLiteral accepts what the lexer scanned as NUMBER, including
// leading zeros ("01" is the number 1).
func parseNumberLiteral(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// ParseError describes why an input could not be parsed as an expression.
// Callers treat it as a signal to fall back to literal passthrough, so it
// must never be surfaced to the user directly.
type ParseError struct {
	Input string
	Pos   int
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s (offset %d)", e.Input, e.Msg, e.Pos)
}

// parser is a recursive-descent parser with one token of lookahead.
type parser struct {
	input string
	lex   *Lexer
	tok   Token
	bare  bool
}

// Parse turns one expression string into an AST, or fails with a *ParseError.
// Inputs that are not valid expression syntax (bare paths, URLs, free text)
// fail cleanly here and are handled upstream as literal values.
func Parse(input string) (Node, error) {
	return parse(input, false)
}

// ParseStandalone parses like Parse but additionally accepts bare
// identifiers, treating status as fm.status. Block arguments must reject
// bare words so plain text keeps falling through to literal passthrough;
// this form serves direct expression evaluation, which has no passthrough.
func ParseStandalone(input string) (Node, error) {
	return parse(input, true)
}

func parse(input string, bare bool) (Node, error) {
	p := &parser{input: input, lex: NewLexer(input), bare: bare}
	if err := p.advance(); err != nil {
		return nil, err
	}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok.Type != EOF {
		return nil, p.errorf("unexpected trailing %s %q", p.tok.Type, p.tok.Literal)
	}
	return n, nil
}

func (p *parser) advance() error {
	tok, err := p.lex.Next()
	if err != nil {
		return &ParseError{Input: p.input, Pos: tok.Pos, Msg: err.Error()}
	}
	p.tok = tok
	return nil
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Input: p.input, Pos: p.tok.Pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(t TokenType) error {
	if p.tok.Type != t {
		return p.errorf("expected %s, found %s %q", t, p.tok.Type, p.tok.Literal)
	}
	return p.advance()
}

// parseOr handles ||, the lowest-precedence operator.
func (p *parser) parseOr() (Node, error) {
	return p.parseBinaryLevel(0)
}

// Precedence levels, lowest first. Equality sits above relational so that
// a > b == true parses as (a > b) == true.
var precLevels = [][]TokenType{
	{OR},
	{AND},
	{EQ, NE},
	{GT, LT, GE, LE},
	{PLUS, MINUS},
	{STAR, SLASH},
}

func (p *parser) parseBinaryLevel(level int) (Node, error) {
	if level == len(precLevels) {
		return p.parseUnary()
	}
	left, err := p.parseBinaryLevel(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		op := p.tok.Type
		if !tokenIn(op, precLevels[level]) {
			return left, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseBinaryLevel(level + 1)
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, L: left, R: right}
	}
}

func tokenIn(t TokenType, set []TokenType) bool {
	for _, s := range set {
		if t == s {
			return true
		}
	}
	return false
}

func (p *parser) parseUnary() (Node, error) {
	switch p.tok.Type {
	case NOT, MINUS:
		op := p.tok.Type
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: op, X: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	switch p.tok.Type {
	case NUMBER:
		f, err := parseNumberLiteral(p.tok.Literal)
		if err != nil {
			return nil, p.errorf("invalid number %q", p.tok.Literal)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Literal{Value: NumberVal(f)}, nil

	case STRING:
		lit := p.tok.Literal
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Literal{Value: StringVal(lit)}, nil

	case LPAREN:
		if err := p.advance(); err != nil {
			return nil, err
		}
		n, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return n, nil

	case IDENT:
		return p.parseIdent()
	}
	return nil, p.errorf("unexpected %s %q", p.tok.Type, p.tok.Literal)
}

func (p *parser) parseIdent() (Node, error) {
	name := p.tok.Literal
	if err := p.advance(); err != nil {
		return nil, err
	}

	switch name {
	case "true":
		return &Literal{Value: BoolVal(true)}, nil
	case "false":
		return &Literal{Value: BoolVal(false)}, nil
	case "null":
		return &Literal{Value: NullVal()}, nil
	case "undefined":
		return &Literal{Value: MissingVal()}, nil
	}

	if p.tok.Type == LPAREN {
		return p.parseCall(name)
	}

	if name == "fm" || name == "file" {
		if p.tok.Type != DOT {
			return nil, p.errorf("property prefix %q must be followed by '.'", name)
		}
		var path []string
		for p.tok.Type == DOT {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.tok.Type != IDENT && p.tok.Type != NUMBER {
				return nil, p.errorf("expected property segment after '.', found %s %q", p.tok.Type, p.tok.Literal)
			}
			path = append(path, p.tok.Literal)
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		return &Property{Root: name, Path: path}, nil
	}

	if p.bare {
		path := []string{name}
		for p.tok.Type == DOT {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.tok.Type != IDENT && p.tok.Type != NUMBER {
				return nil, p.errorf("expected property segment after '.', found %s %q", p.tok.Type, p.tok.Literal)
			}
			path = append(path, p.tok.Literal)
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		return &Property{Root: "fm", Path: path}, nil
	}

	return nil, p.errorf("unknown identifier %q", name)
}

// parseCall recognizes the small fixed set of built-ins. if() becomes a
// Conditional node so the evaluator can skip the untaken branch.
func (p *parser) parseCall(name string) (Node, error) {
	if err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	var args []Node
	if p.tok.Type != RPAREN {
		for {
			arg, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.tok.Type != COMMA {
				break
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.expect(RPAREN); err != nil {
		return nil, err
	}

	switch name {
	case "if":
		if len(args) < 1 || len(args) > 3 {
			return nil, p.errorf("if() takes 1 to 3 arguments, got %d", len(args))
		}
		c := &Conditional{Cond: args[0]}
		if len(args) > 1 {
			c.Then = args[1]
		}
		if len(args) > 2 {
			c.Else = args[2]
		}
		return c, nil
	case "contains":
		if len(args) != 2 {
			return nil, p.errorf("contains() takes 2 arguments, got %d", len(args))
		}
		return &Call{Name: name, Args: args}, nil
	}
	return nil, p.errorf("unknown function %q", name)
}
