package iam

import (
	"errors"
	"fmt"
)

const policyVersion = "2012-10-17"

// PolicyDocument is rendered when the template is, so statements added after the owning
// resource is declared still end up in the template.
type PolicyDocument struct {
	statements []*PolicyStatement
}

func NewPolicyDocument(statements ...*PolicyStatement) *PolicyDocument {
	d := &PolicyDocument{}
	d.AddStatements(statements...)
	return d
}

func (d *PolicyDocument) AddStatements(statements ...*PolicyStatement) {
	d.statements = append(d.statements, statements...)
}

func (d *PolicyDocument) Statements() []*PolicyStatement {
	out := make([]*PolicyStatement, len(d.statements))
	copy(out, d.statements)
	return out
}

func (d *PolicyDocument) IsEmpty() bool {
	return len(d.statements) == 0
}

// Resolve merges statements that differ only in their resources, then renders the document.
func (d *PolicyDocument) Resolve() (any, error) {
	if d.IsEmpty() {
		return nil, errors.New("policy document must contain at least one statement")
	}
	var merged []*PolicyStatement
	byKey := make(map[string]*PolicyStatement)
	for _, s := range d.statements {
		key := s.mergeKey()
		if key == "" {
			merged = append(merged, s)
			continue
		}
		if existing, ok := byKey[key]; ok {
			existing.AddResources(s.Resources...)
			continue
		}
		c := &PolicyStatement{Effect: s.Effect}
		c.AddActions(s.Actions...)
		c.AddResources(s.Resources...)
		byKey[key] = c
		merged = append(merged, c)
	}

	rendered := make([]any, 0, len(merged))
	var errs error
	for i, s := range merged {
		r, err := s.render()
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("statement %d: %w", i, err))
			continue
		}
		rendered = append(rendered, r)
	}
	if errs != nil {
		return nil, errs
	}
	return map[string]any{
		"Version":   policyVersion,
		"Statement": rendered,
	}, nil
}
