package expr

import "fmt"

// TokenType identifies the lexical class of a token.
type TokenType int

const (
	EOF TokenType = iota
	ILLEGAL

	NUMBER // 42, 3.14, 007
	STRING // "double" or 'single' quoted, backslash escapes
	IDENT  // fm, file, if, contains, true, false, null, undefined

	NOT    // !
	PLUS   // +
	MINUS  // -
	STAR   // *
	SLASH  // /
	GT     // >
	LT     // <
	GE     // >=
	LE     // <=
	EQ     // ==
	NE     // !=
	AND    // &&
	OR     // ||
	LPAREN // (
	RPAREN // )
	COMMA  // ,
	DOT    // .
)

var tokenNames = [...]string{
	EOF:     "EOF",
	ILLEGAL: "ILLEGAL",
	NUMBER:  "NUMBER",
	STRING:  "STRING",
	IDENT:   "IDENT",
	NOT:     "NOT",
	PLUS:    "PLUS",
	MINUS:   "MINUS",
	STAR:    "STAR",
	SLASH:   "SLASH",
	GT:      "GT",
	LT:      "LT",
	GE:      "GE",
	LE:      "LE",
	EQ:      "EQ",
	NE:      "NE",
	AND:     "AND",
	OR:      "OR",
	LPAREN:  "LPAREN",
	RPAREN:  "RPAREN",
	COMMA:   "COMMA",
	DOT:     "DOT",
}

func (t TokenType) String() string {
	if int(t) >= 0 && int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is a single lexical unit with its source position (0-based byte offset).
type Token struct {
	Type    TokenType
	Literal string
	Pos     int
}
