package formula

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokDoubleSlash
	tokPercent
	tokPow
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int // byte offset in the stripped source
}

// strip removes surrounding whitespace and the spreadsheet-style leading '='.
func strip(src string) string {
	s := strings.TrimSpace(src)
	s = strings.TrimPrefix(s, "=")
	return strings.TrimSpace(s)
}

// lex splits src into tokens. Any character outside the grammar is a
// syntax error.
func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		r, size := utf8.DecodeRuneInString(src[i:])
		switch {
		case r == ' ' || r == '\t' || r == '\r' || r == '\n':
			i += size
		case isDigitByte(src[i]) || (src[i] == '.' && i+1 < len(src) && isDigitByte(src[i+1])):
			end, err := scanNumber(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokNumber, text: src[i:end], pos: i})
			i = end
		case r == '_' || unicode.IsLetter(r):
			start := i
			for i < len(src) {
				r, size := utf8.DecodeRuneInString(src[i:])
				if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
					break
				}
				i += size
			}
			toks = append(toks, token{kind: tokIdent, text: src[start:i], pos: start})
		default:
			kind, width := operator(src[i:])
			if width == 0 {
				return nil, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, r, i)
			}
			toks = append(toks, token{kind: kind, text: src[i : i+width], pos: i})
			i += width
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(src)}), nil
}

func operator(s string) (tokenKind, int) {
	switch {
	case strings.HasPrefix(s, "**"):
		return tokPow, 2
	case strings.HasPrefix(s, "//"):
		return tokDoubleSlash, 2
	}
	switch s[0] {
	case '+':
		return tokPlus, 1
	case '-':
		return tokMinus, 1
	case '*':
		return tokStar, 1
	case '/':
		return tokSlash, 1
	case '%':
		return tokPercent, 1
	case '(':
		return tokLParen, 1
	case ')':
		return tokRParen, 1
	}
	return tokEOF, 0
}

// scanNumber scans digits[.digits][e[+-]digits] starting at i. A number
// running straight into a letter ("2x", "1e") is rejected.
func scanNumber(src string, i int) (int, error) {
	start := i
	for i < len(src) && isDigitByte(src[i]) {
		i++
	}
	if i < len(src) && src[i] == '.' {
		i++
		for i < len(src) && isDigitByte(src[i]) {
			i++
		}
	}
	if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
		j := i + 1
		if j < len(src) && (src[j] == '+' || src[j] == '-') {
			j++
		}
		if j < len(src) && isDigitByte(src[j]) {
			for j < len(src) && isDigitByte(src[j]) {
				j++
			}
			i = j
		}
	}
	if i < len(src) {
		r, _ := utf8.DecodeRuneInString(src[i:])
		if r == '_' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			return 0, fmt.Errorf("%w: malformed number %q", ErrSyntax, src[start:i+1])
		}
	}
	return i, nil
}

func isDigitByte(c byte) bool { return c >= '0' && c <= '9' }
