package expr

import (
	"fmt"
	"strings"
)

// ASCII character classification tables for fast scanning.
var (
	isSpace      [128]bool
	isDigit      [128]bool
	isIdentStart [128]bool
	isIdentPart  [128]bool
)

func init() {
	for i := 0; i < 128; i++ {
		ch := byte(i)
		isSpace[i] = ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n'
		isDigit[i] = '0' <= ch && ch <= '9'
		isIdentStart[i] = ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_'
		isIdentPart[i] = isIdentStart[i] || isDigit[i]
	}
}

// Lexer scans one expression string into tokens.
type Lexer struct {
	input string
	pos   int
}

// NewLexer returns a lexer over the given expression source.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) peekAt(off int) byte {
	if l.pos+off >= len(l.input) {
		return 0
	}
	return l.input[l.pos+off]
}

func (l *Lexer) skipSpace() {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch < 128 && isSpace[ch] {
			l.pos++
			continue
		}
		return
	}
}

// Next returns the next token. After the input is exhausted it returns EOF
// tokens indefinitely.
func (l *Lexer) Next() (Token, error) {
	l.skipSpace()
	start := l.pos
	if l.pos >= len(l.input) {
		return Token{Type: EOF, Pos: start}, nil
	}

	ch := l.input[l.pos]
	switch {
	case ch < 128 && isDigit[ch]:
		return l.scanNumber()
	case ch == '"' || ch == '\'':
		return l.scanString(ch)
	case ch < 128 && isIdentStart[ch]:
		return l.scanIdent()
	}

	two := func(t TokenType) (Token, error) {
		tok := Token{Type: t, Literal: l.input[l.pos : l.pos+2], Pos: start}
		l.pos += 2
		return tok, nil
	}
	one := func(t TokenType) (Token, error) {
		tok := Token{Type: t, Literal: l.input[l.pos : l.pos+1], Pos: start}
		l.pos++
		return tok, nil
	}

	switch ch {
	case '!':
		if l.peekAt(1) == '=' {
			return two(NE)
		}
		return one(NOT)
	case '=':
		if l.peekAt(1) == '=' {
			return two(EQ)
		}
		return Token{Type: ILLEGAL, Literal: "=", Pos: start}, fmt.Errorf("unexpected '=' at offset %d (did you mean '==')", start)
	case '>':
		if l.peekAt(1) == '=' {
			return two(GE)
		}
		return one(GT)
	case '<':
		if l.peekAt(1) == '=' {
			return two(LE)
		}
		return one(LT)
	case '&':
		if l.peekAt(1) == '&' {
			return two(AND)
		}
	case '|':
		if l.peekAt(1) == '|' {
			return two(OR)
		}
	case '+':
		return one(PLUS)
	case '-':
		return one(MINUS)
	case '*':
		return one(STAR)
	case '/':
		return one(SLASH)
	case '(':
		return one(LPAREN)
	case ')':
		return one(RPAREN)
	case ',':
		return one(COMMA)
	case '.':
		return one(DOT)
	}

	return Token{Type: ILLEGAL, Literal: string(ch), Pos: start},
		fmt.Errorf("unexpected character %q at offset %d", ch, start)
}

// scanNumber accepts integer and decimal literals. Leading zeros are allowed;
// "01" scans as the number 1.
func (l *Lexer) scanNumber() (Token, error) {
	start := l.pos
	for l.pos < len(l.input) && l.peek() < 128 && isDigit[l.peek()] {
		l.pos++
	}
	if l.peek() == '.' && l.peekAt(1) < 128 && isDigit[l.peekAt(1)] {
		l.pos++
		for l.pos < len(l.input) && l.peek() < 128 && isDigit[l.peek()] {
			l.pos++
		}
	}
	return Token{Type: NUMBER, Literal: l.input[start:l.pos], Pos: start}, nil
}

// scanString consumes a quoted literal. The Literal field holds the decoded
// content without the surrounding quotes.
func (l *Lexer) scanString(quote byte) (Token, error) {
	start := l.pos
	l.pos++ // opening quote
	var sb strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '\\' {
			next := l.peekAt(1)
			switch next {
			case '"', '\'', '\\':
				sb.WriteByte(next)
			case 'n':
				sb.WriteByte('\n')
			case 0:
				return Token{Type: ILLEGAL, Pos: start}, fmt.Errorf("unterminated escape at offset %d", l.pos)
			default:
				// Unknown escapes keep the backslash verbatim.
				sb.WriteByte('\\')
				sb.WriteByte(next)
			}
			l.pos += 2
			continue
		}
		if ch == quote {
			l.pos++
			return Token{Type: STRING, Literal: sb.String(), Pos: start}, nil
		}
		sb.WriteByte(ch)
		l.pos++
	}
	return Token{Type: ILLEGAL, Pos: start}, fmt.Errorf("unterminated string starting at offset %d", start)
}

func (l *Lexer) scanIdent() (Token, error) {
	start := l.pos
	for l.pos < len(l.input) && l.peek() < 128 && isIdentPart[l.peek()] {
		l.pos++
	}
	return Token{Type: IDENT, Literal: l.input[start:l.pos], Pos: start}, nil
}
