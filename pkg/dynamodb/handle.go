package dynamodb

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/klothoplatform/constructs/pkg/construct"
	"github.com/klothoplatform/constructs/pkg/iam"
	"github.com/klothoplatform/constructs/pkg/stack"
	"github.com/klothoplatform/constructs/pkg/token"
)

type (
	// TableHandle is a table that permissions can be granted on, whether it is declared in
	// this app or imported from elsewhere.
	TableHandle interface {
		construct.Construct
		TableArn() token.Str
		TableName() token.Str
		TableStreamArn() (token.Str, bool)
		Grant(grantee iam.Grantable, actions ...string) (*iam.Grant, error)
		GrantReadData(grantee iam.Grantable) (*iam.Grant, error)
		GrantWriteData(grantee iam.Grantable) (*iam.Grant, error)
		GrantReadWriteData(grantee iam.Grantable) (*iam.Grant, error)
		GrantFullAccess(grantee iam.Grantable) (*iam.Grant, error)
		GrantStreamRead(grantee iam.Grantable) (*iam.Grant, error)
	}

	// TableAttributes describe an existing table. One of TableName or TableArn is required.
	TableAttributes struct {
		TableName      string
		TableArn       string
		TableStreamArn string
		// HasIndex widens grants to the table's indexes.
		HasIndex bool
	}

	importedTable struct {
		grants
		node      *construct.Node
		name      token.Str
		arn       token.Str
		streamArn token.Str
		indexed   bool
	}
)

var (
	_ TableHandle = (*Table)(nil)
	_ TableHandle = (*importedTable)(nil)
)

// FromTableName references an existing table in the scope's stack environment.
func FromTableName(scope construct.Construct, id, name string) (TableHandle, error) {
	return FromTableAttributes(scope, id, TableAttributes{TableName: name})
}

func FromTableArn(scope construct.Construct, id, tableArn string) (TableHandle, error) {
	return FromTableAttributes(scope, id, TableAttributes{TableArn: tableArn})
}

func FromTableAttributes(scope construct.Construct, id string, attrs TableAttributes) (TableHandle, error) {
	s, err := stack.Of(scope)
	if err != nil {
		return nil, err
	}
	t := &importedTable{indexed: attrs.HasIndex}
	t.grants = grants{t}

	switch {
	case attrs.TableName != "" && attrs.TableArn != "":
		return nil, construct.NewValidationError(scope, "only one of table name or table arn may be specified for %s", id)
	case attrs.TableArn != "":
		parsed, err := arn.Parse(attrs.TableArn)
		if err != nil {
			return nil, construct.NewValidationError(scope, "invalid table arn %q: %s", attrs.TableArn, err)
		}
		name, ok := strings.CutPrefix(parsed.Resource, "table/")
		if parsed.Service != "dynamodb" || !ok || name == "" || strings.Contains(name, "/") {
			return nil, construct.NewValidationError(scope, "%q is not a DynamoDB table arn", attrs.TableArn)
		}
		t.name = token.String(name)
		t.arn = token.String(attrs.TableArn)
	case attrs.TableName != "":
		t.name = token.String(attrs.TableName)
		t.arn = s.FormatArn(stack.ArnComponents{Service: "dynamodb", Resource: "table", ResourceName: t.name})
	default:
		return nil, construct.NewValidationError(scope, "one of table name or table arn is required for %s", id)
	}
	if attrs.TableStreamArn != "" {
		t.streamArn = token.String(attrs.TableStreamArn)
	}

	if t.node, err = construct.NewNode(t, scope, id); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *importedTable) Node() *construct.Node {
	return t.node
}

func (t *importedTable) TableName() token.Str {
	return t.name
}

func (t *importedTable) TableArn() token.Str {
	return t.arn
}

func (t *importedTable) TableStreamArn() (token.Str, bool) {
	return t.streamArn, !t.streamArn.IsEmpty()
}

func (t *importedTable) replicaArns() []token.Str {
	return nil
}

func (t *importedTable) hasIndex() bool {
	return t.indexed
}
