package iam

import (
	"github.com/klothoplatform/constructs/pkg/construct"
	"github.com/klothoplatform/constructs/pkg/stack"
	"github.com/klothoplatform/constructs/pkg/token"
)

// Policy is an inline AWS::IAM::Policy attached to one or more roles.
type Policy struct {
	node     *construct.Node
	resource *construct.Resource
	document *PolicyDocument
	roles    []*Role
}

func NewPolicy(scope construct.Construct, id string) (*Policy, error) {
	s, err := stack.Of(scope)
	if err != nil {
		return nil, err
	}
	p := &Policy{document: NewPolicyDocument()}
	if p.node, err = construct.NewNode(p, scope, id); err != nil {
		return nil, err
	}
	p.resource, err = s.AddResource(p, "Resource", "AWS::IAM::Policy", construct.Properties{
		"PolicyDocument": p.document,
		// Policy names only need to be unique per role.
		"PolicyName": token.Lazy(func() any { return p.resource.LogicalID() }),
		"Roles":      token.Lazy(func() any { return roleRefs(p.roles) }),
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Policy) Node() *construct.Node {
	return p.node
}

func (p *Policy) Resource() *construct.Resource {
	return p.resource
}

func (p *Policy) Document() *PolicyDocument {
	return p.document
}

func (p *Policy) AttachToRole(r *Role) {
	for _, existing := range p.roles {
		if existing == r {
			return
		}
	}
	p.roles = append(p.roles, r)
}

func roleRefs(roles []*Role) any {
	if len(roles) == 0 {
		return nil
	}
	refs := make([]token.Str, len(roles))
	for i, r := range roles {
		refs[i] = r.RoleName()
	}
	return refs
}
