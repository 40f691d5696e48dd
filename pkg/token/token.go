// Package token models values that are only known once a template is rendered: references
// to other resources, pseudo parameters, intrinsic functions and lazily produced values.
package token

import (
	"fmt"
	"strings"
)

type (
	// Token is a value resolved during template rendering. The resolved value may itself
	// contain tokens, which are resolved recursively by [Resolve].
	Token interface {
		Resolve() (any, error)
	}

	// Referenceable is anything that has a logical id in a template (resources, conditions).
	Referenceable interface {
		LogicalID() string
	}

	// Str is a string that is either a literal or an unresolved token. The zero value is the
	// empty literal.
	Str struct {
		lit string
		tok Token
	}
)

// String returns a literal Str.
func String(s string) Str {
	return Str{lit: s}
}

// AsStr wraps a token as a Str. A nil token yields the empty literal.
func AsStr(t Token) Str {
	if s, ok := t.(Str); ok {
		return s
	}
	return Str{tok: t}
}

// IsUnresolved returns true if the value of s cannot be known until rendering.
func (s Str) IsUnresolved() bool {
	return s.tok != nil
}

// Literal returns the literal value of s, or false if s is a token.
func (s Str) Literal() (string, bool) {
	if s.tok != nil {
		return "", false
	}
	return s.lit, true
}

func (s Str) IsEmpty() bool {
	return s.tok == nil && s.lit == ""
}

func (s Str) Resolve() (any, error) {
	if s.tok != nil {
		return s.tok.Resolve()
	}
	return s.lit, nil
}

// String renders s for humans (logs, error messages). Tokens render as a placeholder.
func (s Str) String() string {
	if s.tok == nil {
		return s.lit
	}
	if st, ok := s.tok.(fmt.Stringer); ok {
		return "${Token[" + st.String() + "]}"
	}
	return fmt.Sprintf("${Token[%T]}", s.tok)
}

// Concat joins the parts with no delimiter. If every part is a literal the result is a literal.
// Nested concatenations are flattened into a single join.
func Concat(parts ...Str) Str {
	var flat []any
	literal := true
	for _, p := range parts {
		if j, ok := p.tok.(join); ok && j.delim == "" {
			flat = append(flat, j.parts...)
			literal = false
			continue
		}
		if p.IsUnresolved() {
			literal = false
		}
		flat = append(flat, p)
	}
	if !literal {
		return AsStr(Join("", flat...))
	}
	sb := new(strings.Builder)
	for _, p := range parts {
		sb.WriteString(p.lit)
	}
	return String(sb.String())
}

// IsUnresolved reports whether v is, or directly wraps, a token.
func IsUnresolved(v any) bool {
	switch v := v.(type) {
	case Str:
		return v.IsUnresolved()
	case *Str:
		return v != nil && v.IsUnresolved()
	case Token:
		return true
	}
	return false
}
