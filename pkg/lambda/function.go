// Package lambda declares functions whose code is a file asset, and the provider framework that
// serves custom resources from them.
package lambda

import (
	"time"

	"github.com/klothoplatform/constructs/pkg/construct"
	"github.com/klothoplatform/constructs/pkg/iam"
	"github.com/klothoplatform/constructs/pkg/stack"
	"github.com/klothoplatform/constructs/pkg/token"
)

type Runtime string

const (
	RuntimePython312 Runtime = "python3.12"
	RuntimeNodeJS20  Runtime = "nodejs20.x"

	// MaxTimeout is the longest a single invocation may run.
	MaxTimeout = 15 * time.Minute
)

type (
	FunctionProps struct {
		Code        *stack.Asset
		Handler     string
		Runtime     Runtime
		Timeout     time.Duration
		Description string
		Environment map[string]token.Str
		// Role defaults to a new role with basic execution permissions.
		Role *iam.Role
	}

	Function struct {
		node     *construct.Node
		resource *construct.Resource
		role     *iam.Role
		env      map[string]token.Str
	}
)

func NewFunction(scope construct.Construct, id string, props FunctionProps) (*Function, error) {
	s, err := stack.Of(scope)
	if err != nil {
		return nil, err
	}
	switch {
	case props.Code == nil:
		return nil, construct.NewValidationError(scope, "function %s requires code", id)
	case props.Handler == "":
		return nil, construct.NewValidationError(scope, "function %s requires a handler", id)
	case props.Timeout > MaxTimeout:
		return nil, construct.NewValidationError(scope, "function %s timeout %s exceeds %s", id, props.Timeout, MaxTimeout)
	}
	if props.Runtime == "" {
		props.Runtime = RuntimePython312
	}

	f := &Function{env: make(map[string]token.Str, len(props.Environment))}
	for k, v := range props.Environment {
		f.env[k] = v
	}
	if f.node, err = construct.NewNode(f, scope, id); err != nil {
		return nil, err
	}

	f.role = props.Role
	if f.role == nil {
		f.role, err = iam.NewRole(f, "ServiceRole", iam.RoleProps{
			AssumedBy: "lambda.amazonaws.com",
			ManagedPolicyArns: []token.Str{token.Concat(
				token.String("arn:"), s.Partition(),
				token.String(":iam::aws:policy/service-role/AWSLambdaBasicExecutionRole"),
			)},
		})
		if err != nil {
			return nil, err
		}
	}

	asset := s.AddAsset(props.Code)
	properties := construct.Properties{
		"Code": map[string]any{
			"S3Bucket": s.AssetBucketName(),
			"S3Key":    asset.ObjectKey(),
		},
		"Handler": props.Handler,
		"Runtime": string(props.Runtime),
		"Role":    f.role.RoleArn(),
		"Environment": token.Lazy(func() any {
			if len(f.env) == 0 {
				return nil
			}
			return map[string]any{"Variables": f.env}
		}),
	}
	if props.Timeout > 0 {
		properties["Timeout"] = int(props.Timeout.Seconds())
	}
	if props.Description != "" {
		properties["Description"] = props.Description
	}
	if f.resource, err = s.AddResource(f, "Resource", "AWS::Lambda::Function", properties); err != nil {
		return nil, err
	}
	if err := s.AddDependency(f.resource, f.role.Resource()); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Function) Node() *construct.Node {
	return f.node
}

func (f *Function) Resource() *construct.Resource {
	return f.resource
}

func (f *Function) Role() *iam.Role {
	return f.role
}

func (f *Function) FunctionName() token.Str {
	return f.resource.Ref()
}

func (f *Function) FunctionArn() token.Str {
	return f.resource.GetAtt("Arn")
}

// AddEnvironment sets an environment variable. Variables are rendered with the template, so
// this may be called after the function is declared.
func (f *Function) AddEnvironment(key string, value token.Str) {
	f.env[key] = value
}

func (f *Function) GrantPrincipal() iam.Principal {
	return f.role
}

// GrantInvoke allows grantee to invoke this function, including any of its versions and aliases.
func (f *Function) GrantInvoke(grantee iam.Grantable) (*iam.Grant, error) {
	return iam.GrantOnPrincipal(iam.GrantOptions{
		Grantee:   grantee,
		Actions:   []string{"lambda:InvokeFunction"},
		Resources: []token.Str{f.FunctionArn(), token.Concat(f.FunctionArn(), token.String(":*"))},
	})
}
