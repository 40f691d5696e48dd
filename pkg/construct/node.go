// Package construct holds the construct tree, the resource model and the dependency graph that
// stacks render into templates.
package construct

import (
	"fmt"
	"slices"
	"strings"
)

// PathSeparator separates construct ids in a node path.
const PathSeparator = "/"

type (
	// Construct is anything that occupies a node in the construct tree.
	Construct interface {
		Node() *Node
	}

	// Node is the position of a construct in the tree. Ids are unique among siblings.
	Node struct {
		id       string
		scope    *Node
		host     Construct
		children []*Node
		byID     map[string]*Node
	}

	// Base is a construct with no behaviour of its own, used to group children.
	Base struct {
		node *Node
	}
)

// NewRoot creates the root of a construct tree hosted by host.
func NewRoot(host Construct) *Node {
	return &Node{host: host}
}

// NewNode attaches a new node for host under scope.
func NewNode(host Construct, scope Construct, id string) (*Node, error) {
	if scope == nil || scope.Node() == nil {
		return nil, fmt.Errorf("construct %q requires a scope", id)
	}
	if id == "" {
		return nil, &ValidationError{Path: scope.Node().Path(), Message: "construct id must not be empty"}
	}
	if strings.Contains(id, PathSeparator) {
		id = strings.ReplaceAll(id, PathSeparator, "--")
	}
	parent := scope.Node()
	if _, exists := parent.byID[id]; exists {
		return nil, &ValidationError{
			Path:    parent.Path(),
			Message: fmt.Sprintf("there is already a construct with id %q", id),
		}
	}
	n := &Node{id: id, scope: parent, host: host}
	if parent.byID == nil {
		parent.byID = make(map[string]*Node)
	}
	parent.byID[id] = n
	parent.children = append(parent.children, n)
	return n, nil
}

// New creates a grouping construct.
func New(scope Construct, id string) (*Base, error) {
	b := &Base{}
	n, err := NewNode(b, scope, id)
	if err != nil {
		return nil, err
	}
	b.node = n
	return b, nil
}

func (b *Base) Node() *Node {
	return b.node
}

func (n *Node) ID() string {
	return n.id
}

func (n *Node) Scope() *Node {
	return n.scope
}

// Host returns the construct that owns this node.
func (n *Node) Host() Construct {
	return n.host
}

func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

func (n *Node) TryFindChild(id string) *Node {
	return n.byID[id]
}

// Detach removes n from its scope so its id can be reused. A constructor that fails after
// creating its node detaches it, leaving no partially built construct in the tree.
func (n *Node) Detach() {
	parent := n.scope
	if parent == nil || parent.byID[n.id] != n {
		return
	}
	delete(parent.byID, n.id)
	parent.children = slices.DeleteFunc(parent.children, func(c *Node) bool { return c == n })
	n.scope = nil
}

// Scopes returns all nodes from the root down to and including n.
func (n *Node) Scopes() []*Node {
	var scopes []*Node
	for cur := n; cur != nil; cur = cur.scope {
		scopes = append(scopes, cur)
	}
	for i := 0; i < len(scopes)/2; i++ {
		scopes[i], scopes[len(scopes)-i-1] = scopes[len(scopes)-i-1], scopes[i]
	}
	return scopes
}

// Path is the slash-separated list of ids from the root (exclusive) to n.
func (n *Node) Path() string {
	var ids []string
	for _, s := range n.Scopes() {
		if s.id == "" {
			continue
		}
		ids = append(ids, s.id)
	}
	return strings.Join(ids, PathSeparator)
}

// FindAncestor returns the closest construct, starting at n itself, that matches.
func (n *Node) FindAncestor(match func(Construct) bool) Construct {
	for cur := n; cur != nil; cur = cur.scope {
		if cur.host != nil && match(cur.host) {
			return cur.host
		}
	}
	return nil
}

// FindAll returns n and all of its descendants in depth-first pre-order.
func (n *Node) FindAll() []*Node {
	out := []*Node{n}
	for _, c := range n.children {
		out = append(out, c.FindAll()...)
	}
	return out
}

func (n *Node) String() string {
	return n.Path()
}
