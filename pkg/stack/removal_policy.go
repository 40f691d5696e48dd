package stack

import (
	"fmt"
	"strings"

	"github.com/klothoplatform/constructs/pkg/construct"
)

// RemovalPolicy controls what happens to a resource when it leaves the template.
type RemovalPolicy string

const (
	RemovalPolicyDestroy  RemovalPolicy = "destroy"
	RemovalPolicyRetain   RemovalPolicy = "retain"
	RemovalPolicySnapshot RemovalPolicy = "snapshot"
)

func ParseRemovalPolicy(s string) (RemovalPolicy, error) {
	switch p := RemovalPolicy(strings.ToLower(s)); p {
	case RemovalPolicyDestroy, RemovalPolicyRetain, RemovalPolicySnapshot:
		return p, nil
	}
	return "", fmt.Errorf("unknown removal policy %q", s)
}

// DeletionPolicy is the template value for the policy.
func (p RemovalPolicy) DeletionPolicy() (string, error) {
	switch p {
	case RemovalPolicyDestroy:
		return "Delete", nil
	case RemovalPolicyRetain:
		return "Retain", nil
	case RemovalPolicySnapshot:
		return "Snapshot", nil
	}
	return "", fmt.Errorf("unknown removal policy %q", string(p))
}

// ApplyRemovalPolicy sets both the deletion and update-replace policies of r.
func ApplyRemovalPolicy(r *construct.Resource, p RemovalPolicy) error {
	v, err := p.DeletionPolicy()
	if err != nil {
		return construct.NewValidationError(r, "%s", err.Error())
	}
	r.DeletionPolicy = v
	r.UpdateReplacePolicy = v
	return nil
}
