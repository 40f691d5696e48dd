package stack

import (
	"github.com/klothoplatform/constructs/pkg/construct"
	"github.com/klothoplatform/constructs/pkg/token"
)

type Output struct {
	node        *construct.Node
	logicalID   string
	Value       token.Str
	Description string
	ExportName  string
	Condition   *Condition
}

// AddOutput declares a stack output under scope.
func (s *Stack) AddOutput(scope construct.Construct, id string, value token.Str, description string) (*Output, error) {
	o := &Output{Value: value, Description: description}
	n, err := construct.NewNode(o, scope, id)
	if err != nil {
		return nil, err
	}
	o.node = n
	o.logicalID = construct.MakeLogicalID(construct.RelativePath(s.node, n))
	if err := s.claimLogicalID(o, o.logicalID); err != nil {
		return nil, err
	}
	s.outputs = append(s.outputs, o)
	return o, nil
}

func (o *Output) Node() *construct.Node {
	return o.node
}

func (o *Output) LogicalID() string {
	return o.logicalID
}

func (s *Stack) Outputs() []*Output {
	out := make([]*Output, len(s.outputs))
	copy(out, s.outputs)
	return out
}
