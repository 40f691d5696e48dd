package token

import (
	"fmt"
	"strings"
)

type (
	ref struct {
		target Referenceable
	}

	getAtt struct {
		target Referenceable
		attr   string
	}

	pseudo string

	join struct {
		delim string
		parts []any
	}

	fnIf struct {
		condition Referenceable
		whenTrue  any
		whenFalse any
	}

	fnEquals struct {
		a, b any
	}

	fnNot struct {
		condition any
	}
)

const (
	pseudoRegion    pseudo = "AWS::Region"
	pseudoAccountID pseudo = "AWS::AccountId"
	pseudoPartition pseudo = "AWS::Partition"
	pseudoNoValue   pseudo = "AWS::NoValue"
)

var (
	AWSRegion    = Str{tok: pseudoRegion}
	AWSAccountID = Str{tok: pseudoAccountID}
	AWSPartition = Str{tok: pseudoPartition}

	// NoValue removes the enclosing property when used as the result of [If].
	NoValue Token = pseudoNoValue
)

// Ref references the primary identifier of a resource, or the value of a parameter.
func Ref(target Referenceable) Str {
	return Str{tok: ref{target: target}}
}

// GetAtt references an attribute of a resource.
func GetAtt(target Referenceable, attr string) Str {
	return Str{tok: getAtt{target: target, attr: attr}}
}

// Join concatenates parts with delim. Parts may be literals, Str or other tokens.
func Join(delim string, parts ...any) Token {
	return join{delim: delim, parts: parts}
}

// If selects whenTrue or whenFalse depending on a template condition.
func If(condition Referenceable, whenTrue, whenFalse any) Token {
	return fnIf{condition: condition, whenTrue: whenTrue, whenFalse: whenFalse}
}

func Equals(a, b any) Token {
	return fnEquals{a: a, b: b}
}

func Not(condition any) Token {
	return fnNot{condition: condition}
}

func (r ref) Resolve() (any, error) {
	if r.target == nil {
		return nil, fmt.Errorf("Ref to nil target")
	}
	return map[string]any{"Ref": r.target.LogicalID()}, nil
}

func (r ref) String() string {
	if r.target == nil {
		return "Ref(<nil>)"
	}
	return r.target.LogicalID() + ".Ref"
}

func (g getAtt) Resolve() (any, error) {
	if g.target == nil {
		return nil, fmt.Errorf("GetAtt %s to nil target", g.attr)
	}
	return map[string]any{"Fn::GetAtt": []any{g.target.LogicalID(), g.attr}}, nil
}

func (g getAtt) String() string {
	if g.target == nil {
		return "<nil>." + g.attr
	}
	return g.target.LogicalID() + "." + g.attr
}

func (p pseudo) Resolve() (any, error) {
	return map[string]any{"Ref": string(p)}, nil
}

func (p pseudo) String() string {
	return string(p)
}

func (j join) Resolve() (any, error) {
	resolved := make([]any, 0, len(j.parts))
	for i, p := range j.parts {
		v, err := Resolve(p)
		if err != nil {
			return nil, fmt.Errorf("join part %d: %w", i, err)
		}
		if v == nil {
			continue
		}
		// Adjacent literals are merged so a fully literal join collapses into a string.
		if s, ok := v.(string); ok && len(resolved) > 0 {
			if prev, ok := resolved[len(resolved)-1].(string); ok {
				resolved[len(resolved)-1] = prev + j.delim + s
				continue
			}
		}
		resolved = append(resolved, v)
	}
	switch len(resolved) {
	case 0:
		return "", nil
	case 1:
		if s, ok := resolved[0].(string); ok {
			return s, nil
		}
		if j.delim == "" {
			return resolved[0], nil
		}
	}
	return map[string]any{"Fn::Join": []any{j.delim, resolved}}, nil
}

func (j join) String() string {
	parts := make([]string, len(j.parts))
	for i, p := range j.parts {
		parts[i] = fmt.Sprint(p)
	}
	return "Join(" + strings.Join(parts, j.delim) + ")"
}

func (f fnIf) Resolve() (any, error) {
	if f.condition == nil {
		return nil, fmt.Errorf("Fn::If without a condition")
	}
	t, err := Resolve(f.whenTrue)
	if err != nil {
		return nil, err
	}
	e, err := Resolve(f.whenFalse)
	if err != nil {
		return nil, err
	}
	return map[string]any{"Fn::If": []any{f.condition.LogicalID(), t, e}}, nil
}

func (f fnEquals) Resolve() (any, error) {
	a, err := Resolve(f.a)
	if err != nil {
		return nil, err
	}
	b, err := Resolve(f.b)
	if err != nil {
		return nil, err
	}
	return map[string]any{"Fn::Equals": []any{a, b}}, nil
}

func (f fnNot) Resolve() (any, error) {
	c, err := Resolve(f.condition)
	if err != nil {
		return nil, err
	}
	return map[string]any{"Fn::Not": []any{c}}, nil
}
