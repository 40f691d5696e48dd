package iam

import (
	"errors"

	"github.com/klothoplatform/constructs/pkg/token"
	"go.uber.org/zap"
)

type (
	// Principal is something statements can be attached to.
	Principal interface {
		// AddToPrincipalPolicy adds s to the principal's identity policy.
		AddToPrincipalPolicy(s *PolicyStatement) error
		String() string
	}

	// Grantable is anything that can be granted permissions.
	Grantable interface {
		GrantPrincipal() Principal
	}

	// Grant records the permissions handed to a principal.
	Grant struct {
		Principal Principal
		Statement *PolicyStatement
	}

	GrantOptions struct {
		Grantee   Grantable
		Actions   []string
		Resources []token.Str
	}
)

// GrantOnPrincipal adds a statement allowing Actions on Resources to the grantee's identity policy.
func GrantOnPrincipal(opts GrantOptions) (*Grant, error) {
	if opts.Grantee == nil {
		return nil, errors.New("grant requires a grantee")
	}
	principal := opts.Grantee.GrantPrincipal()
	stmt := NewStatement(opts.Actions, opts.Resources...)
	if err := stmt.Validate(); err != nil {
		return nil, err
	}
	if err := principal.AddToPrincipalPolicy(stmt); err != nil {
		return nil, err
	}
	zap.L().Named("iam").Debug("granted",
		zap.Stringer("principal", principal),
		zap.Strings("actions", opts.Actions),
		zap.Int("resources", len(opts.Resources)),
	)
	return &Grant{Principal: principal, Statement: stmt}, nil
}
