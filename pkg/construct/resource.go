package construct

import (
	"github.com/klothoplatform/constructs/pkg/token"
)

type (
	// Properties is the property bag of a resource. Values may contain tokens.
	Properties map[string]any

	// Resource is a single template resource declared somewhere in the construct tree.
	Resource struct {
		node      *Node
		logicalID string

		Type       string
		Properties Properties
		// Condition, when set, makes the resource exist only if the condition holds at deploy time.
		Condition           token.Referenceable
		Metadata            map[string]any
		DeletionPolicy      string
		UpdateReplacePolicy string
	}
)

// NewResource declares a resource construct under scope. The logical id is derived from the
// construct path relative to stackNode.
func NewResource(scope Construct, id string, stackNode *Node, typ string, props Properties) (*Resource, error) {
	r := &Resource{Type: typ, Properties: props}
	if r.Properties == nil {
		r.Properties = make(Properties)
	}
	n, err := NewNode(r, scope, id)
	if err != nil {
		return nil, err
	}
	r.node = n
	r.logicalID = MakeLogicalID(RelativePath(stackNode, n))
	return r, nil
}

// RelativePath returns the ids of the nodes below base down to and including n.
func RelativePath(base, n *Node) []string {
	var ids []string
	for cur := n; cur != nil && cur != base; cur = cur.scope {
		ids = append(ids, cur.id)
	}
	for i := 0; i < len(ids)/2; i++ {
		ids[i], ids[len(ids)-i-1] = ids[len(ids)-i-1], ids[i]
	}
	return ids
}

func (r *Resource) Node() *Node {
	return r.node
}

func (r *Resource) LogicalID() string {
	return r.logicalID
}

func (r *Resource) Ref() token.Str {
	return token.Ref(r)
}

func (r *Resource) GetAtt(attr string) token.Str {
	return token.GetAtt(r, attr)
}

func (r *Resource) AddMetadata(key string, value any) {
	if r.Metadata == nil {
		r.Metadata = make(map[string]any)
	}
	r.Metadata[key] = value
}

func (r *Resource) String() string {
	return r.logicalID + " (" + r.Type + ")"
}

// Detached returns a resource that is not part of a construct tree, such as one read back
// from a rendered template.
func Detached(logicalID, typ string) *Resource {
	return &Resource{logicalID: logicalID, Type: typ, Properties: make(Properties)}
}
