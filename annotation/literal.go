package annotation

import (
	"encoding/json"
	"errors"
	"strings"
)

var errUnterminatedString = errors.New("unterminated string literal")

// normalizeLiteral rewrites a Python style literal into JSON: single quoted
// strings become double quoted, None/True/False become null/true/false and
// tuples become arrays. Nothing is evaluated.
func normalizeLiteral(s string) (string, error) {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '"' || c == '\'':
			end, err := copyQuoted(&b, s, i)
			if err != nil {
				return "", err
			}
			i = end
		case c == '(':
			b.WriteByte('[')
			i++
		case c == ')':
			b.WriteByte(']')
			i++
		case isIdentStart(c):
			j := i
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			switch word := s[i:j]; word {
			case "None":
				b.WriteString("null")
			case "True":
				b.WriteString("true")
			case "False":
				b.WriteString("false")
			default:
				b.WriteString(word)
			}
			i = j
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), nil
}

// copyQuoted writes the string literal starting at s[start] as a JSON string
// and returns the index just past its closing quote.
func copyQuoted(b *strings.Builder, s string, start int) (int, error) {
	quote := s[start]
	b.WriteByte('"')
	for i := start + 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			next := s[i+1]
			if next == '\'' {
				b.WriteByte('\'')
			} else {
				b.WriteByte('\\')
				b.WriteByte(next)
			}
			i++
		case c == quote:
			b.WriteByte('"')
			return i + 1, nil
		case c == '"':
			b.WriteString(`\"`)
		default:
			b.WriteByte(c)
		}
	}
	return 0, errUnterminatedString
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// decodeLiteral decodes strict JSON first and falls back to the normalized literal.
func decodeLiteral(text string, out any) error {
	if err := json.Unmarshal([]byte(text), out); err == nil {
		return nil
	}
	normalized, err := normalizeLiteral(text)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(normalized), out)
}
