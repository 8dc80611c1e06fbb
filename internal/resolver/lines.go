package resolver

import "strings"

// rawArg is one parsed key=value line before resolution.
type rawArg struct {
	key     string
	value   string
	literal bool // value was fully quoted or a balanced JSON-like block
}

// parseLines splits block source into raw arguments. Comment and blank lines
// are ignored; lines whose key fails the identifier charset are dropped; a
// value opening with '{' or '[' accumulates further lines until braces and
// brackets balance, enabling multi-line JSON-like values.
func parseLines(source string) []rawArg {
	var args []rawArg
	lines := strings.Split(strings.ReplaceAll(source, "\r\n", "\n"), "\n")
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		if !validKey(key) {
			continue
		}
		value := strings.TrimSpace(line[eq+1:])

		switch {
		case len(value) > 0 && (value[0] == '"' || value[0] == '\''):
			if decoded, ok := decodeQuoted(value); ok {
				args = append(args, rawArg{key: key, value: decoded, literal: true})
			} else {
				// Unbalanced quote: treat the rest of the line as text.
				args = append(args, rawArg{key: key, value: value})
			}
		case len(value) > 0 && (value[0] == '{' || value[0] == '['):
			joined, consumed := accumulateBalanced(value, lines[i+1:])
			i += consumed
			args = append(args, rawArg{key: key, value: joined, literal: true})
		default:
			args = append(args, rawArg{key: key, value: value})
		}
	}
	return args
}

// validKey accepts letters, digits, '_', '-', with an optional trailing '!'.
func validKey(key string) bool {
	key = strings.TrimSuffix(key, "!")
	if key == "" {
		return false
	}
	for i := 0; i < len(key); i++ {
		ch := key[i]
		switch {
		case 'a' <= ch && ch <= 'z':
		case 'A' <= ch && ch <= 'Z':
		case '0' <= ch && ch <= '9':
		case ch == '_' || ch == '-':
		default:
			return false
		}
	}
	return true
}

// decodeQuoted unwraps a value that is exactly one quoted string, applying
// backslash escapes. Values with trailing garbage after the closing quote
// are rejected so they fall back to plain text handling.
func decodeQuoted(value string) (string, bool) {
	quote := value[0]
	var sb strings.Builder
	i := 1
	for i < len(value) {
		ch := value[i]
		if ch == '\\' && i+1 < len(value) {
			next := value[i+1]
			switch next {
			case '"', '\'', '\\':
				sb.WriteByte(next)
			case 'n':
				sb.WriteByte('\n')
			default:
				sb.WriteByte('\\')
				sb.WriteByte(next)
			}
			i += 2
			continue
		}
		if ch == quote {
			return sb.String(), i == len(value)-1
		}
		sb.WriteByte(ch)
		i++
	}
	return "", false
}

// accumulateBalanced joins lines until '{'/'[' nesting returns to zero,
// ignoring brackets inside quoted strings. It returns the joined value and
// how many extra lines were consumed.
func accumulateBalanced(first string, rest []string) (string, int) {
	var sb strings.Builder
	depth := 0
	scan := func(s string) {
		inQuote := byte(0)
		for i := 0; i < len(s); i++ {
			ch := s[i]
			if inQuote != 0 {
				if ch == '\\' {
					i++
				} else if ch == inQuote {
					inQuote = 0
				}
				continue
			}
			switch ch {
			case '"', '\'':
				inQuote = ch
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}

	sb.WriteString(first)
	scan(first)
	consumed := 0
	for depth > 0 && consumed < len(rest) {
		line := rest[consumed]
		consumed++
		sb.WriteByte('\n')
		sb.WriteString(line)
		scan(line)
	}
	return sb.String(), consumed
}
