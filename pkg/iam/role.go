package iam

import (
	"github.com/klothoplatform/constructs/pkg/construct"
	"github.com/klothoplatform/constructs/pkg/stack"
	"github.com/klothoplatform/constructs/pkg/token"
)

type (
	RoleProps struct {
		// AssumedBy is the service principal allowed to assume the role, e.g. "lambda.amazonaws.com".
		AssumedBy         string
		Description       string
		ManagedPolicyArns []token.Str
	}

	Role struct {
		node     *construct.Node
		stack    *stack.Stack
		resource *construct.Resource

		defaultPolicy *Policy
	}
)

// NewRole declares an AWS::IAM::Role. The inline default policy is only declared once a
// statement is added to the role.
func NewRole(scope construct.Construct, id string, props RoleProps) (*Role, error) {
	s, err := stack.Of(scope)
	if err != nil {
		return nil, err
	}
	if props.AssumedBy == "" {
		return nil, construct.NewValidationError(scope, "role %s requires a principal to be assumed by", id)
	}
	r := &Role{stack: s}
	if r.node, err = construct.NewNode(r, scope, id); err != nil {
		return nil, err
	}

	trust := NewPolicyDocument(&PolicyStatement{
		Effect:    EffectAllow,
		Actions:   []string{"sts:AssumeRole"},
		Principal: map[string][]string{"Service": {props.AssumedBy}},
	})
	properties := construct.Properties{
		"AssumeRolePolicyDocument": trust,
	}
	if len(props.ManagedPolicyArns) > 0 {
		properties["ManagedPolicyArns"] = props.ManagedPolicyArns
	}
	if props.Description != "" {
		properties["Description"] = props.Description
	}
	if r.resource, err = s.AddResource(r, "Resource", "AWS::IAM::Role", properties); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Role) Node() *construct.Node {
	return r.node
}

func (r *Role) Resource() *construct.Resource {
	return r.resource
}

func (r *Role) RoleName() token.Str {
	return r.resource.Ref()
}

func (r *Role) RoleArn() token.Str {
	return r.resource.GetAtt("Arn")
}

// DefaultPolicy returns the inline policy of the role, or nil if nothing was granted to it yet.
func (r *Role) DefaultPolicy() *Policy {
	return r.defaultPolicy
}

func (r *Role) GrantPrincipal() Principal {
	return r
}

func (r *Role) AddToPrincipalPolicy(s *PolicyStatement) error {
	if r.defaultPolicy == nil {
		p, err := NewPolicy(r, "DefaultPolicy")
		if err != nil {
			return err
		}
		p.AttachToRole(r)
		r.defaultPolicy = p
	}
	r.defaultPolicy.Document().AddStatements(s)
	return nil
}

func (r *Role) String() string {
	return r.node.Path()
}
