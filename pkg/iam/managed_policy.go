package iam

import (
	"github.com/klothoplatform/constructs/pkg/construct"
	"github.com/klothoplatform/constructs/pkg/stack"
	"github.com/klothoplatform/constructs/pkg/token"
)

type (
	ManagedPolicyProps struct {
		Description token.Str
		Roles       []*Role
	}

	// ManagedPolicy is a standalone AWS::IAM::ManagedPolicy. Unlike a role's inline policy it is
	// a separate resource, so its deletion is ordered independently of the roles it is attached to.
	ManagedPolicy struct {
		node     *construct.Node
		resource *construct.Resource
		document *PolicyDocument
		roles    []*Role
	}
)

func NewManagedPolicy(scope construct.Construct, id string, props ManagedPolicyProps) (*ManagedPolicy, error) {
	s, err := stack.Of(scope)
	if err != nil {
		return nil, err
	}
	p := &ManagedPolicy{document: NewPolicyDocument()}
	if p.node, err = construct.NewNode(p, scope, id); err != nil {
		return nil, err
	}
	for _, r := range props.Roles {
		p.AttachToRole(r)
	}
	properties := construct.Properties{
		"PolicyDocument": p.document,
		"Path":           "/",
		"Roles":          token.Lazy(func() any { return roleRefs(p.roles) }),
	}
	if !props.Description.IsEmpty() {
		properties["Description"] = props.Description
	}
	if p.resource, err = s.AddResource(p, "Resource", "AWS::IAM::ManagedPolicy", properties); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *ManagedPolicy) Node() *construct.Node {
	return p.node
}

func (p *ManagedPolicy) Resource() *construct.Resource {
	return p.resource
}

func (p *ManagedPolicy) Document() *PolicyDocument {
	return p.document
}

func (p *ManagedPolicy) ManagedPolicyArn() token.Str {
	return p.resource.Ref()
}

func (p *ManagedPolicy) AddStatements(statements ...*PolicyStatement) {
	p.document.AddStatements(statements...)
}

func (p *ManagedPolicy) AttachToRole(r *Role) {
	for _, existing := range p.roles {
		if existing == r {
			return
		}
	}
	p.roles = append(p.roles, r)
}
