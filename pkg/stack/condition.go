package stack

import (
	"github.com/klothoplatform/constructs/pkg/construct"
	"github.com/klothoplatform/constructs/pkg/token"
)

// Condition is a deploy-time boolean that resources can be made conditional on.
type Condition struct {
	node       *construct.Node
	logicalID  string
	Expression token.Token
}

// AddCondition declares a template condition under scope.
func (s *Stack) AddCondition(scope construct.Construct, id string, expression token.Token) (*Condition, error) {
	if expression == nil {
		return nil, construct.NewValidationError(scope, "condition %s requires an expression", id)
	}
	c := &Condition{Expression: expression}
	n, err := construct.NewNode(c, scope, id)
	if err != nil {
		return nil, err
	}
	c.node = n
	c.logicalID = construct.MakeLogicalID(construct.RelativePath(s.node, n))
	if err := s.claimLogicalID(c, c.logicalID); err != nil {
		return nil, err
	}
	s.conditions = append(s.conditions, c)
	return c, nil
}

func (c *Condition) Node() *construct.Node {
	return c.node
}

func (c *Condition) LogicalID() string {
	return c.logicalID
}

// Conditions returns the conditions of the stack in declaration order.
func (s *Stack) Conditions() []*Condition {
	out := make([]*Condition, len(s.conditions))
	copy(out, s.conditions)
	return out
}
