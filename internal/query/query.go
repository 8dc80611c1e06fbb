// Package query implements the filter mini-language used to test whether a
// document matches a query: space-separated terms combined with AND (binding
// tighter) and OR, where a term is a #tag, a quoted folder path, bare path
// text, or a bracketed property filter like [status=done].
package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ccmdi/blockkit/internal/expr"
)

// Doc is the view of a document a query is matched against.
type Doc struct {
	Path        string
	FrontMatter map[string]expr.Value
	Tags        []string
}

// Query is a parsed filter ready for repeated matching.
type Query struct {
	root queryNode
}

type queryNode interface {
	matches(d Doc) bool
}

type orNode struct{ terms []queryNode }
type andNode struct{ terms []queryNode }

func (n orNode) matches(d Doc) bool {
	for _, t := range n.terms {
		if t.matches(d) {
			return true
		}
	}
	return false
}

func (n andNode) matches(d Doc) bool {
	for _, t := range n.terms {
		if !t.matches(d) {
			return false
		}
	}
	return true
}

// tagTerm matches when any of the document's tags contains the fragment.
type tagTerm struct{ fragment string }

func (t tagTerm) matches(d Doc) bool {
	for _, tag := range d.Tags {
		if strings.Contains(strings.ToLower(tag), t.fragment) {
			return true
		}
	}
	return false
}

// prefixTerm matches quoted folder paths by path prefix.
type prefixTerm struct{ prefix string }

func (t prefixTerm) matches(d Doc) bool {
	return strings.HasPrefix(strings.ToLower(d.Path), t.prefix)
}

// textTerm matches bare text as a path substring.
type textTerm struct{ text string }

func (t textTerm) matches(d Doc) bool {
	return strings.Contains(strings.ToLower(d.Path), t.text)
}

// propOp is the comparison applied by a bracketed property filter.
type propOp int

const (
	opExists propOp = iota
	opNotExists
	opEq
	opNe
	opGt
	opLt
	opGe
	opLe
	opContains
)

type propTerm struct {
	prop string
	op   propOp
	val  string
}

func (t propTerm) matches(d Doc) bool {
	v, present := d.FrontMatter[t.prop]
	if present {
		// A key holding YAML null ("nothing:") does not exist for
		// filtering purposes.
		present = !v.IsMissing() && v.Kind() != expr.KindNull
	}
	switch t.op {
	case opExists:
		return present
	case opNotExists:
		return !present
	}
	if !present {
		return false
	}
	want := expr.StringVal(t.val)
	switch t.op {
	case opEq:
		return v.Equal(want)
	case opNe:
		return !v.Equal(want)
	case opContains:
		return strings.Contains(strings.ToLower(v.Display()), strings.ToLower(t.val))
	}
	// Numeric operators fall back to case-insensitive string comparison
	// when either side is non-numeric.
	cmp := compareLoose(v, t.val)
	switch t.op {
	case opGt:
		return cmp > 0
	case opLt:
		return cmp < 0
	case opGe:
		return cmp >= 0
	case opLe:
		return cmp <= 0
	}
	return false
}

func compareLoose(v expr.Value, raw string) int {
	if f, ok := v.Num(); ok {
		if w, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			switch {
			case f < w:
				return -1
			case f > w:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(strings.ToLower(v.Display()), strings.ToLower(raw))
}

// Parse parses a query string. AND binds tighter than OR, so
// "#a OR #b AND folder" reads as "#a OR (#b AND folder)".
func Parse(input string) (*Query, error) {
	tokens, err := tokenize(input)
	if err != nil {
		return nil, err
	}

	var or orNode
	var and andNode
	flush := func() {
		if len(and.terms) > 0 {
			if len(and.terms) == 1 {
				or.terms = append(or.terms, and.terms[0])
			} else {
				or.terms = append(or.terms, and)
			}
			and = andNode{}
		}
	}

	expectTerm := true
	for _, tok := range tokens {
		switch {
		case tok == "OR":
			if expectTerm {
				return nil, fmt.Errorf("query: OR without a preceding term")
			}
			flush()
			expectTerm = true
		case tok == "AND":
			if expectTerm {
				return nil, fmt.Errorf("query: AND without a preceding term")
			}
			expectTerm = true
		default:
			term, err := parseTerm(tok)
			if err != nil {
				return nil, err
			}
			and.terms = append(and.terms, term)
			expectTerm = false
		}
	}
	if expectTerm && len(tokens) > 0 {
		return nil, fmt.Errorf("query: trailing operator")
	}
	flush()
	if len(or.terms) == 0 {
		return nil, fmt.Errorf("query: empty query")
	}
	return &Query{root: or}, nil
}

// Matches reports whether the document satisfies the query.
func (q *Query) Matches(d Doc) bool {
	return q.root.matches(d)
}

// MatchesQuery is a one-shot parse-and-match convenience. An unparseable
// query matches nothing.
func MatchesQuery(input string, d Doc) bool {
	q, err := Parse(input)
	if err != nil {
		return false
	}
	return q.Matches(d)
}

func parseTerm(tok string) (queryNode, error) {
	switch {
	case strings.HasPrefix(tok, "#"):
		frag := strings.ToLower(strings.TrimPrefix(tok, "#"))
		if frag == "" {
			return nil, fmt.Errorf("query: empty tag term")
		}
		return tagTerm{fragment: frag}, nil

	case strings.HasPrefix(tok, `"`):
		return prefixTerm{prefix: strings.ToLower(strings.Trim(tok, `"`))}, nil

	case strings.HasPrefix(tok, "["):
		return parsePropTerm(tok)
	}
	return textTerm{text: strings.ToLower(tok)}, nil
}

var propOps = []struct {
	sep string
	op  propOp
}{
	{"!=", opNe},
	{">=", opGe},
	{"<=", opLe},
	{"~=", opContains},
	{"=", opEq},
	{">", opGt},
	{"<", opLt},
}

func parsePropTerm(tok string) (queryNode, error) {
	if !strings.HasSuffix(tok, "]") {
		return nil, fmt.Errorf("query: unterminated property filter %q", tok)
	}
	body := tok[1 : len(tok)-1]
	if body == "" {
		return nil, fmt.Errorf("query: empty property filter")
	}
	for _, cand := range propOps {
		if i := strings.Index(body, cand.sep); i > 0 {
			return propTerm{prop: body[:i], op: cand.op, val: body[i+len(cand.sep):]}, nil
		}
	}
	if strings.HasPrefix(body, "!") {
		return propTerm{prop: body[1:], op: opNotExists}, nil
	}
	return propTerm{prop: body, op: opExists}, nil
}

// tokenize splits on spaces while keeping quoted paths and bracketed filters
// intact.
func tokenize(input string) ([]string, error) {
	var tokens []string
	i := 0
	for i < len(input) {
		ch := input[i]
		switch {
		case ch == ' ' || ch == '\t':
			i++
		case ch == '"':
			end := strings.IndexByte(input[i+1:], '"')
			if end < 0 {
				return nil, fmt.Errorf("query: unterminated quote")
			}
			tokens = append(tokens, input[i:i+end+2])
			i += end + 2
		case ch == '[':
			end := strings.IndexByte(input[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("query: unterminated property filter")
			}
			tokens = append(tokens, input[i:i+end+1])
			i += end + 1
		default:
			end := strings.IndexAny(input[i:], " \t")
			if end < 0 {
				tokens = append(tokens, input[i:])
				i = len(input)
			} else {
				tokens = append(tokens, input[i:i+end])
				i += end
			}
		}
	}
	return tokens, nil
}
