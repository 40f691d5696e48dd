package dynamodb

import (
	"strings"

	"github.com/klothoplatform/constructs/pkg/construct"
	"github.com/klothoplatform/constructs/pkg/iam"
	"github.com/klothoplatform/constructs/pkg/token"
)

// attachedPolicy is a managed policy attached to one of the replica handler roles. Replication
// permissions live here instead of the role's inline policy so that they are deleted after the
// replicas that need them, not together with the role's other permissions.
type attachedPolicy struct {
	node   *construct.Node
	role   *iam.Role
	policy *iam.ManagedPolicy
}

// attachedPolicyFor returns the attached policy of role, declaring it on first use.
func (t *Table) attachedPolicyFor(role *iam.Role) (*attachedPolicy, error) {
	key := role.Node().Path()
	if p, ok := t.attachedPolicies[key]; ok {
		return p, nil
	}

	p := &attachedPolicy{role: role}
	id := "SourceTableAttachedManagedPolicy-" + construct.MakeLogicalID(strings.Split(key, construct.PathSeparator))
	var err error
	if p.node, err = construct.NewNode(p, t, id); err != nil {
		return nil, err
	}
	p.policy, err = iam.NewManagedPolicy(p, "Resource", iam.ManagedPolicyProps{
		// Changing the description replaces the policy, so a renamed table keeps the permissions
		// for its old replicas until they are gone.
		Description: token.Concat(token.String("DynamoDB replication managed policy for table "), t.TableName()),
		Roles:       []*iam.Role{role},
	})
	if err != nil {
		return nil, err
	}
	t.attachedPolicies[key] = p
	return p, nil
}

// Node places the policy under its table in the construct tree.
func (p *attachedPolicy) Node() *construct.Node {
	return p.node
}

// Policy is the managed policy attached to the role.
func (p *attachedPolicy) Policy() *iam.ManagedPolicy {
	return p.policy
}

// GrantPrincipal is a principal that grants to the role through this policy.
func (p *attachedPolicy) GrantPrincipal() iam.Principal {
	return attachedPrincipal{p}
}

// attachedPrincipal acts as the role but puts statements into the attached policy.
type attachedPrincipal struct {
	*attachedPolicy
}

// AddToPrincipalPolicy adds s to the attached policy, never to the role's own policy.
func (a attachedPrincipal) AddToPrincipalPolicy(s *iam.PolicyStatement) error {
	a.policy.AddStatements(s)
	return nil
}

func (a attachedPrincipal) String() string {
	return a.role.String() + " (via " + a.node.Path() + ")"
}
