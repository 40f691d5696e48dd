package dynamodb

import (
	"errors"
	"slices"

	"github.com/klothoplatform/constructs/pkg/iam"
	"github.com/klothoplatform/constructs/pkg/token"
)

var (
	readDataActions = []string{
		"dynamodb:BatchGetItem",
		"dynamodb:GetRecords",
		"dynamodb:GetShardIterator",
		"dynamodb:Query",
		"dynamodb:GetItem",
		"dynamodb:Scan",
		"dynamodb:ConditionCheckItem",
	}
	writeDataActions = []string{
		"dynamodb:BatchWriteItem",
		"dynamodb:PutItem",
		"dynamodb:UpdateItem",
		"dynamodb:DeleteItem",
	}
	readStreamDataActions = []string{
		"dynamodb:DescribeStream",
		"dynamodb:GetRecords",
		"dynamodb:GetShardIterator",
	}
)

const describeTableAction = "dynamodb:DescribeTable"

// grantTarget is what the grant helpers need to know about a table.
type grantTarget interface {
	TableArn() token.Str
	TableStreamArn() (token.Str, bool)
	replicaArns() []token.Str
	hasIndex() bool
}

// tableResourceArns lists the table, its replicas and, once an index exists, their indexes. The
// replica ARNs are the ones known when the grant is made.
func tableResourceArns(t grantTarget) []token.Str {
	arns := append([]token.Str{t.TableArn()}, t.replicaArns()...)
	out := make([]token.Str, 0, 2*len(arns))
	out = append(out, arns...)
	for _, arn := range arns {
		out = append(out, token.AsStr(token.Lazy(func() any {
			if !t.hasIndex() {
				return nil
			}
			return token.Concat(arn, token.String("/index/*"))
		})))
	}
	return out
}

func grant(t grantTarget, grantee iam.Grantable, actions ...string) (*iam.Grant, error) {
	return iam.GrantOnPrincipal(iam.GrantOptions{
		Grantee:   grantee,
		Actions:   actions,
		Resources: tableResourceArns(t),
	})
}

func grantStreamRead(t grantTarget, grantee iam.Grantable) (*iam.Grant, error) {
	streamArn, ok := t.TableStreamArn()
	if !ok {
		return nil, errors.New("table has no stream")
	}
	if _, err := iam.GrantOnPrincipal(iam.GrantOptions{
		Grantee:   grantee,
		Actions:   []string{"dynamodb:ListStreams"},
		Resources: []token.Str{token.String("*")},
	}); err != nil {
		return nil, err
	}
	return iam.GrantOnPrincipal(iam.GrantOptions{
		Grantee:   grantee,
		Actions:   readStreamDataActions,
		Resources: []token.Str{streamArn},
	})
}

func (t *Table) replicaArns() []token.Str {
	return t.RegionalArns()
}

// grants implements the grant methods of [TableHandle] on top of a grantTarget.
type grants struct {
	target grantTarget
}

// Grant allows grantee to perform actions on the table, its replicas and its indexes.
func (g grants) Grant(grantee iam.Grantable, actions ...string) (*iam.Grant, error) {
	return grant(g.target, grantee, actions...)
}

func (g grants) GrantReadData(grantee iam.Grantable) (*iam.Grant, error) {
	return grant(g.target, grantee, slices.Concat(readDataActions, []string{describeTableAction})...)
}

func (g grants) GrantWriteData(grantee iam.Grantable) (*iam.Grant, error) {
	return grant(g.target, grantee, slices.Concat(writeDataActions, []string{describeTableAction})...)
}

func (g grants) GrantReadWriteData(grantee iam.Grantable) (*iam.Grant, error) {
	return grant(g.target, grantee, slices.Concat(readDataActions, writeDataActions, []string{describeTableAction})...)
}

func (g grants) GrantFullAccess(grantee iam.Grantable) (*iam.Grant, error) {
	return grant(g.target, grantee, "dynamodb:*")
}

// GrantStreamRead allows grantee to list streams and read the table's stream.
func (g grants) GrantStreamRead(grantee iam.Grantable) (*iam.Grant, error) {
	return grantStreamRead(g.target, grantee)
}
