package lambda

import (
	"embed"
	"io/fs"
	"strconv"
	"time"

	"github.com/klothoplatform/constructs/pkg/construct"
	"github.com/klothoplatform/constructs/pkg/stack"
	"github.com/klothoplatform/constructs/pkg/token"
)

//go:embed framework/*.py
var frameworkFiles embed.FS

const (
	DefaultQueryInterval = 5 * time.Second
	DefaultTotalTimeout  = 30 * time.Minute
	// MaxTotalTimeout bounds how long the framework keeps polling the completion handler.
	MaxTotalTimeout = 2 * time.Hour

	envOnEventArn    = "USER_ON_EVENT_FUNCTION_ARN"
	envIsCompleteArn = "USER_IS_COMPLETE_FUNCTION_ARN"
	envQueryInterval = "QUERY_INTERVAL_SECONDS"
	envTotalTimeout  = "TOTAL_TIMEOUT_SECONDS"
)

type (
	ProviderProps struct {
		OnEventHandler    *Function
		IsCompleteHandler *Function
		QueryInterval     time.Duration
		TotalTimeout      time.Duration
	}

	// Provider serves custom resources: the framework function receives the deployment events,
	// invokes OnEventHandler and then polls IsCompleteHandler until it reports completion.
	Provider struct {
		node         *construct.Node
		framework    *Function
		onEvent      *Function
		isComplete   *Function
		interval     time.Duration
		totalTimeout time.Duration
	}
)

func NewProvider(scope construct.Construct, id string, props ProviderProps) (*Provider, error) {
	if props.OnEventHandler == nil {
		return nil, construct.NewValidationError(scope, "provider %s requires an event handler", id)
	}
	if props.QueryInterval == 0 {
		props.QueryInterval = DefaultQueryInterval
	}
	if props.TotalTimeout == 0 {
		props.TotalTimeout = DefaultTotalTimeout
	}
	p := &Provider{
		onEvent:    props.OnEventHandler,
		isComplete: props.IsCompleteHandler,
		interval:   props.QueryInterval,
	}
	var err error
	if p.node, err = construct.NewNode(p, scope, id); err != nil {
		return nil, err
	}
	if err := p.ExtendTotalTimeout(props.TotalTimeout); err != nil {
		return nil, err
	}

	sub, err := fs.Sub(frameworkFiles, "framework")
	if err != nil {
		return nil, err
	}
	code, err := stack.NewFileAsset(sub, "provider framework")
	if err != nil {
		return nil, err
	}
	p.framework, err = NewFunction(p, "framework-onEvent", FunctionProps{
		Code:        code,
		Handler:     "framework.on_event",
		Runtime:     RuntimePython312,
		Timeout:     MaxTimeout,
		Description: "custom resource provider framework - onEvent",
		Environment: map[string]token.Str{
			envOnEventArn: p.onEvent.FunctionArn(),
		},
	})
	if err != nil {
		return nil, err
	}
	if _, err := p.onEvent.GrantInvoke(p.framework); err != nil {
		return nil, err
	}
	if p.isComplete != nil {
		p.framework.AddEnvironment(envIsCompleteArn, p.isComplete.FunctionArn())
		p.framework.AddEnvironment(envQueryInterval, token.String(strconv.Itoa(int(p.interval.Seconds()))))
		p.framework.AddEnvironment(envTotalTimeout, token.LazyStr(func() token.Str {
			return token.String(strconv.Itoa(int(p.totalTimeout.Seconds())))
		}))
		if _, err := p.isComplete.GrantInvoke(p.framework); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Provider) Node() *construct.Node {
	return p.node
}

// ServiceToken is the value custom resources served by this provider use as their ServiceToken.
func (p *Provider) ServiceToken() token.Str {
	return p.framework.FunctionArn()
}

func (p *Provider) Framework() *Function {
	return p.framework
}

func (p *Provider) QueryInterval() time.Duration {
	return p.interval
}

func (p *Provider) TotalTimeout() time.Duration {
	return p.totalTimeout
}

// ExtendTotalTimeout raises the total timeout to d. A shorter d leaves the timeout unchanged.
func (p *Provider) ExtendTotalTimeout(d time.Duration) error {
	if d > MaxTotalTimeout {
		return construct.NewValidationError(p, "total timeout %s exceeds %s", d, MaxTotalTimeout)
	}
	if d < p.interval {
		return construct.NewValidationError(p, "total timeout %s must be at least the query interval %s", d, p.interval)
	}
	if d > p.totalTimeout {
		p.totalTimeout = d
	}
	return nil
}
