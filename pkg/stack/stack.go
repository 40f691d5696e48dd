package stack

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dominikbraun/graph"
	"github.com/klothoplatform/constructs/pkg/construct"
	"github.com/klothoplatform/constructs/pkg/set"
	"github.com/klothoplatform/constructs/pkg/token"
	"go.uber.org/zap"
)

type (
	// Props configures a [Stack]. Leaving Region or Account empty makes the stack
	// environment-agnostic: the value is only known at deploy time.
	Props struct {
		StackName   string
		Description string
		Region      string
		Account     string
	}

	Stack struct {
		node        *construct.Node
		app         *App
		name        string
		description string
		region      token.Str
		account     token.Str

		graph        construct.Graph
		conditions   []*Condition
		outputs      []*Output
		assets       []*Asset
		dependencies set.Ordered[*Stack]
		singletons   map[string]construct.Construct
		logicalIDs   set.Set[string]

		log *zap.Logger
	}
)

var stackNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]{0,127}$`)

// ValidStackName reports whether name can be used as a stack name.
func ValidStackName(name string) bool {
	return stackNamePattern.MatchString(name)
}

// New declares a stack in app.
func New(app *App, id string, props Props) (*Stack, error) {
	s := &Stack{
		app:         app,
		description: props.Description,
		graph:       construct.NewGraph(),
		singletons:  make(map[string]construct.Construct),
		logicalIDs:  make(set.Set[string]),
	}
	n, err := construct.NewNode(s, app, id)
	if err != nil {
		return nil, err
	}
	s.node = n

	s.name = props.StackName
	if s.name == "" {
		s.name = strings.ReplaceAll(id, "_", "-")
	}
	if !stackNamePattern.MatchString(s.name) {
		return nil, construct.NewValidationError(s,
			"stack name %q must match %s", s.name, stackNamePattern)
	}

	s.region = token.AWSRegion
	if props.Region != "" {
		s.region = token.String(props.Region)
	}
	s.account = token.AWSAccountID
	if props.Account != "" {
		s.account = token.String(props.Account)
	}
	s.log = zap.L().Named("stack").With(zap.String("stack", s.name))

	app.stacks = append(app.stacks, s)
	s.log.Debug("declared stack", zap.Stringer("region", s.region), zap.Stringer("account", s.account))
	return s, nil
}

// Of returns the stack that c belongs to.
func Of(c construct.Construct) (*Stack, error) {
	if c == nil || c.Node() == nil {
		return nil, errors.New("construct is nil")
	}
	found := c.Node().FindAncestor(func(c construct.Construct) bool {
		_, ok := c.(*Stack)
		return ok
	})
	if found == nil {
		return nil, construct.NewValidationError(c, "construct is not defined within a stack")
	}
	return found.(*Stack), nil
}

func (s *Stack) Node() *construct.Node {
	return s.node
}

func (s *Stack) App() *App {
	return s.app
}

func (s *Stack) StackName() string {
	return s.name
}

func (s *Stack) Description() string {
	return s.description
}

// Region is either the literal deployment region or the AWS::Region pseudo parameter.
func (s *Stack) Region() token.Str {
	return s.region
}

func (s *Stack) Account() token.Str {
	return s.account
}

// Partition is derived from a literal region; otherwise it is the AWS::Partition pseudo parameter.
func (s *Stack) Partition() token.Str {
	region, ok := s.region.Literal()
	if !ok {
		return token.AWSPartition
	}
	switch {
	case strings.HasPrefix(region, "cn-"):
		return token.String("aws-cn")
	case strings.HasPrefix(region, "us-gov-"):
		return token.String("aws-us-gov")
	case strings.HasPrefix(region, "us-iso-"):
		return token.String("aws-iso")
	case strings.HasPrefix(region, "us-isob-"):
		return token.String("aws-iso-b")
	}
	return token.String("aws")
}

func (s *Stack) Logger() *zap.Logger {
	return s.log
}

func (s *Stack) Graph() construct.Graph {
	return s.graph
}

// AddResource declares a resource construct under scope (which must be inside s) and registers it
// in the stack's graph.
func (s *Stack) AddResource(scope construct.Construct, id, typ string, props construct.Properties) (*construct.Resource, error) {
	if owner, err := Of(scope); err != nil {
		return nil, err
	} else if owner != s {
		return nil, construct.NewValidationError(scope, "scope belongs to stack %s, not %s", owner.name, s.name)
	}
	r, err := construct.NewResource(scope, id, s.node, typ, props)
	if err != nil {
		return nil, err
	}
	if err := s.claimLogicalID(r, r.LogicalID()); err != nil {
		return nil, err
	}
	if err := s.graph.AddVertex(r); err != nil {
		return nil, fmt.Errorf("could not add resource %s: %w", r.LogicalID(), err)
	}
	s.log.Debug("added resource", zap.String("id", r.LogicalID()), zap.String("type", typ))
	return r, nil
}

func (s *Stack) claimLogicalID(c construct.Construct, id string) error {
	if id == "" {
		return construct.NewValidationError(c, "logical id must not be empty")
	}
	if !s.logicalIDs.AddIfAbsent(id) {
		return construct.NewValidationError(c, "logical id %s is already used in stack %s", id, s.name)
	}
	return nil
}

// Resource returns the resource with the given logical id.
func (s *Stack) Resource(logicalID string) (*construct.Resource, error) {
	r, err := s.graph.Vertex(logicalID)
	if errors.Is(err, graph.ErrVertexNotFound) {
		return nil, fmt.Errorf("resource %s not found in stack %s: %w", logicalID, s.name, err)
	}
	return r, err
}

// Resources returns every resource of the stack in creation order: a resource comes after
// everything it depends on, otherwise resources are ordered by logical id.
func (s *Stack) Resources() ([]*construct.Resource, error) {
	var out []*construct.Resource
	err := construct.WalkGraph(s.graph, func(id string, r *construct.Resource, nerr error) error {
		if r != nil {
			out = append(out, r)
		}
		return nerr
	})
	if err != nil {
		return nil, fmt.Errorf("stack %s: %w", s.name, err)
	}
	return out, nil
}

// AddDependency adds an explicit DependsOn from dependent to dependency. Both must belong to s.
func (s *Stack) AddDependency(dependent, dependency *construct.Resource) error {
	for _, r := range []*construct.Resource{dependent, dependency} {
		if _, err := s.graph.Vertex(r.LogicalID()); err != nil {
			return fmt.Errorf("resource %s is not part of stack %s: %w", r.LogicalID(), s.name, err)
		}
	}
	return construct.AddDependency(s.graph, dependent.LogicalID(), dependency.LogicalID())
}

// AddStackDependency records that s must be deployed after other.
func (s *Stack) AddStackDependency(other *Stack) error {
	if other == s {
		return construct.NewValidationError(s, "stack cannot depend on itself")
	}
	if other.app != s.app {
		return construct.NewValidationError(s, "stack %s belongs to a different app", other.name)
	}
	if other.dependsOn(s) {
		return construct.NewValidationError(s, "dependency on %s would create a cycle", other.name)
	}
	s.dependencies.Add(other)
	return nil
}

func (s *Stack) dependsOn(other *Stack) bool {
	for _, d := range s.dependencies.ToSlice() {
		if d == other || d.dependsOn(other) {
			return true
		}
	}
	return false
}

// Dependencies returns the stacks s depends on in the order they were added.
func (s *Stack) Dependencies() []*Stack {
	return s.dependencies.ToSlice()
}

// Singleton returns the construct registered under key, creating it on first use.
func (s *Stack) Singleton(key string, create func() (construct.Construct, error)) (construct.Construct, error) {
	if c, ok := s.singletons[key]; ok {
		return c, nil
	}
	c, err := create()
	if err != nil {
		return nil, err
	}
	s.singletons[key] = c
	return c, nil
}

// AddAsset registers a file asset. Assets with the same hash are registered once.
func (s *Stack) AddAsset(a *Asset) *Asset {
	for _, existing := range s.assets {
		if existing.Hash == a.Hash {
			return existing
		}
	}
	s.assets = append(s.assets, a)
	return a
}

func (s *Stack) Assets() []*Asset {
	out := make([]*Asset, len(s.assets))
	copy(out, s.assets)
	return out
}
