package formula

import (
	"strings"
)

// Substitute returns expr with every identifier that ns defines replaced
// by its value. Negative values are parenthesized. Text that does not
// lex is returned stripped but otherwise unchanged.
func Substitute(expr string, ns map[string]string) string {
	s := strip(expr)
	toks, err := lex(s)
	if err != nil {
		return s
	}
	var b strings.Builder
	last := 0
	for _, t := range toks {
		if t.kind != tokIdent {
			continue
		}
		v, ok := ns[t.text]
		if !ok {
			continue
		}
		b.WriteString(s[last:t.pos])
		v = strings.TrimSpace(v)
		if strings.HasPrefix(v, "-") {
			v = "(" + v + ")"
		}
		b.WriteString(v)
		last = t.pos + len(t.text)
	}
	b.WriteString(s[last:])
	return b.String()
}
