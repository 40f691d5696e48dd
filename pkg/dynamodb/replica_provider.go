package dynamodb

import (
	"embed"
	"io/fs"
	"time"

	"github.com/klothoplatform/constructs/pkg/construct"
	"github.com/klothoplatform/constructs/pkg/iam"
	"github.com/klothoplatform/constructs/pkg/lambda"
	"github.com/klothoplatform/constructs/pkg/stack"
	"github.com/klothoplatform/constructs/pkg/token"
)

//go:embed replica-handler/*.py
var replicaHandlerFiles embed.FS

const (
	replicaProviderID  = "ReplicaProvider"
	replicaProviderKey = "dynamodb." + replicaProviderID

	replicaQueryInterval = 10 * time.Second
)

// replicaProvider serves the replica custom resources of every table in a stack.
type replicaProvider struct {
	node *construct.Node

	// OnEventHandler adds and removes replicas.
	OnEventHandler *lambda.Function
	// IsCompleteHandler reports when a replica is active or gone.
	IsCompleteHandler *lambda.Function

	provider *lambda.Provider
}

// replicaProviderFor returns the stack's replica provider. The provider waits as long as the
// slowest table needs.
func replicaProviderFor(s *stack.Stack, timeout time.Duration) (*replicaProvider, error) {
	c, err := s.Singleton(replicaProviderKey, func() (construct.Construct, error) {
		return newReplicaProvider(s, timeout)
	})
	if err != nil {
		return nil, err
	}
	p := c.(*replicaProvider)
	if err := p.provider.ExtendTotalTimeout(timeout); err != nil {
		return nil, err
	}
	return p, nil
}

func newReplicaProvider(s *stack.Stack, timeout time.Duration) (*replicaProvider, error) {
	p := &replicaProvider{}
	var err error
	if p.node, err = construct.NewNode(p, s, replicaProviderID); err != nil {
		return nil, err
	}

	sub, err := fs.Sub(replicaHandlerFiles, "replica-handler")
	if err != nil {
		return nil, err
	}
	code, err := stack.NewFileAsset(sub, "replica handler")
	if err != nil {
		return nil, err
	}

	p.OnEventHandler, err = lambda.NewFunction(p, "OnEventHandler", lambda.FunctionProps{
		Code:    code,
		Handler: "index.on_event",
		Runtime: lambda.RuntimePython312,
		Timeout: 5 * time.Minute,
	})
	if err != nil {
		return nil, err
	}
	p.IsCompleteHandler, err = lambda.NewFunction(p, "IsCompleteHandler", lambda.FunctionProps{
		Code:    code,
		Handler: "index.is_complete",
		Runtime: lambda.RuntimePython312,
		Timeout: 30 * time.Second,
	})
	if err != nil {
		return nil, err
	}

	onEventRole := p.OnEventHandler.Role()
	// The first replica of an account creates the replication service linked role.
	if err := onEventRole.AddToPrincipalPolicy(iam.NewStatement(
		[]string{"iam:CreateServiceLinkedRole"},
		s.FormatArn(stack.ArnComponents{
			Service:      "iam",
			NoRegion:     true,
			Resource:     "role",
			ResourceName: token.String("aws-service-role/replication.dynamodb.amazonaws.com/AWSServiceRoleForDynamoDBReplication"),
		}),
	)); err != nil {
		return nil, err
	}
	if err := onEventRole.AddToPrincipalPolicy(iam.NewStatement(
		[]string{"dynamodb:DescribeLimits"}, token.String("*"),
	)); err != nil {
		return nil, err
	}

	p.provider, err = lambda.NewProvider(p, "Provider", lambda.ProviderProps{
		OnEventHandler:    p.OnEventHandler,
		IsCompleteHandler: p.IsCompleteHandler,
		QueryInterval:     replicaQueryInterval,
		TotalTimeout:      timeout,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *replicaProvider) Node() *construct.Node {
	return p.node
}

func (p *replicaProvider) ServiceToken() token.Str {
	return p.provider.ServiceToken()
}
