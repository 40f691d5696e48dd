// Package dynamodb declares DynamoDB tables, their secondary indexes and cross-region replicas.
package dynamodb

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/klothoplatform/constructs/pkg/construct"
	"github.com/klothoplatform/constructs/pkg/lambda"
	"github.com/klothoplatform/constructs/pkg/set"
	"github.com/klothoplatform/constructs/pkg/stack"
	"github.com/klothoplatform/constructs/pkg/token"
	"go.uber.org/zap"
)

const (
	defaultCapacity           = 5
	defaultReplicationTimeout = 30 * time.Minute
)

type (
	TableProps struct {
		// TableName is generated at deploy time when empty.
		TableName    string
		PartitionKey Attribute
		SortKey      *Attribute

		// BillingMode defaults to PAY_PER_REQUEST for replicated tables and PROVISIONED otherwise.
		BillingMode   types.BillingMode
		ReadCapacity  int
		WriteCapacity int

		Stream              types.StreamViewType
		TableClass          types.TableClass
		TimeToLiveAttribute string
		PointInTimeRecovery bool
		DeletionProtection  bool
		ContributorInsights bool

		// RemovalPolicy defaults to retain.
		RemovalPolicy stack.RemovalPolicy

		ReplicationRegions []string
		// ReplicationTimeout bounds how long adding or removing a single replica may take.
		ReplicationTimeout time.Duration
		// WaitForReplicationToFinish, when false, does not wait for the initial data copy to a
		// new replica to finish.
		WaitForReplicationToFinish *bool
		// ReplicaRemovalPolicy overrides the table's removal policy for replicas.
		ReplicaRemovalPolicy stack.RemovalPolicy
	}

	// Table is a DynamoDB table owned by the stack it is declared in.
	Table struct {
		grants
		node     *construct.Node
		stack    *stack.Stack
		resource *construct.Resource
		props    TableProps

		billingMode types.BillingMode
		stream      types.StreamViewType
		keySchema   []keySchemaElement
		attributes  attributeRegistry

		globalIndexes []globalIndex
		localIndexes  []localIndex
		indexNames    set.Set[string]

		replicas         []*ReplicaNode
		regionalArns     []token.Str
		attachedPolicies map[string]*attachedPolicy

		log *zap.Logger
	}
)

// NewTable declares a table and, when ReplicationRegions is set, its replicas. Problems with
// props are reported before anything is added to the stack, and a rejected table is removed
// from the construct tree.
func NewTable(scope construct.Construct, id string, props TableProps) (*Table, error) {
	s, err := stack.Of(scope)
	if err != nil {
		return nil, err
	}
	t := &Table{
		stack:            s,
		props:            props,
		indexNames:       make(set.Set[string]),
		attachedPolicies: make(map[string]*attachedPolicy),
	}
	t.grants = grants{t}
	if t.node, err = construct.NewNode(t, scope, id); err != nil {
		return nil, err
	}
	t.log = zap.L().Named("dynamodb").With(zap.String("table", t.node.Path()))

	if err := t.declare(); err != nil {
		t.node.Detach()
		return nil, err
	}
	t.log.Debug("declared table",
		zap.String("billing", string(t.billingMode)),
		zap.Int("replicas", len(t.replicas)),
	)
	return t, nil
}

func (t *Table) declare() error {
	s, props := t.stack, t.props
	if err := t.validateProps(); err != nil {
		return err
	}
	if err := t.addKey(props.PartitionKey, types.KeyTypeHash); err != nil {
		return err
	}
	if props.SortKey != nil {
		if err := t.addKey(*props.SortKey, types.KeyTypeRange); err != nil {
			return err
		}
	}

	var err error
	t.resource, err = s.AddResource(t, "Resource", "AWS::DynamoDB::Table", t.properties())
	if err != nil {
		return err
	}
	removal := props.RemovalPolicy
	if removal == "" {
		removal = stack.RemovalPolicyRetain
	}
	if err := t.ApplyRemovalPolicy(removal); err != nil {
		return err
	}

	if len(props.ReplicationRegions) > 0 {
		return t.createReplicas(props.ReplicationRegions)
	}
	return nil
}

// validateProps checks the props for independent problems and reports all of them.
func (t *Table) validateProps() error {
	p := t.props
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, construct.NewValidationError(t, format, args...))
	}

	if p.PartitionKey.Name == "" {
		fail("partition key must be specified")
	}

	replicated := len(p.ReplicationRegions) > 0
	t.billingMode = p.BillingMode
	if t.billingMode == "" {
		t.billingMode = types.BillingModeProvisioned
		if replicated {
			t.billingMode = types.BillingModePayPerRequest
		}
	}
	switch t.billingMode {
	case types.BillingModePayPerRequest:
		if p.ReadCapacity != 0 || p.WriteCapacity != 0 {
			fail("you cannot provision read and write capacity for a table with PAY_PER_REQUEST billing mode")
		}
	case types.BillingModeProvisioned:
		if replicated {
			fail("a replicated table requires PAY_PER_REQUEST billing mode")
		}
	default:
		fail("unknown billing mode %q", t.billingMode)
	}

	if stackRegion, ok := t.stack.Region().Literal(); ok && slices.Contains(p.ReplicationRegions, stackRegion) {
		fail("replication regions cannot include the region where this stack is deployed (%s)", stackRegion)
	}

	t.stream = p.Stream
	if replicated {
		if t.stream == "" {
			t.stream = types.StreamViewTypeNewAndOldImages
		} else if t.stream != types.StreamViewTypeNewAndOldImages {
			fail("stream must be NEW_AND_OLD_IMAGES when replication regions are specified, got %s", t.stream)
		}
	}
	switch to := p.ReplicationTimeout; {
	case to < 0:
		fail("replication timeout must not be negative")
	case to > lambda.MaxTotalTimeout:
		fail("replication timeout %s exceeds %s", to, lambda.MaxTotalTimeout)
	case to != 0 && to < replicaQueryInterval:
		fail("replication timeout %s must be at least %s", to, replicaQueryInterval)
	}
	if p.RemovalPolicy != "" {
		if _, err := p.RemovalPolicy.DeletionPolicy(); err != nil {
			fail("removal policy: %s", err)
		}
	}
	if p.ReplicaRemovalPolicy != "" {
		if _, err := p.ReplicaRemovalPolicy.DeletionPolicy(); err != nil {
			fail("replica removal policy: %s", err)
		}
	}
	return errors.Join(errs...)
}

func (t *Table) addKey(a Attribute, keyType types.KeyType) error {
	if err := t.attributes.register(a); err != nil {
		return construct.NewValidationError(t, "%s", err)
	}
	t.keySchema = append(t.keySchema, keySchemaElement{name: a.Name, keyType: keyType})
	return nil
}

func (t *Table) properties() construct.Properties {
	p := t.props
	props := construct.Properties{
		"KeySchema": renderKeySchema(t.keySchema),
		// Index keys are registered after the table is declared.
		"AttributeDefinitions":   token.Lazy(func() any { return t.attributes.attributeDefinitions() }),
		"GlobalSecondaryIndexes": token.Lazy(func() any { return t.renderGlobalIndexes() }),
		"LocalSecondaryIndexes":  token.Lazy(func() any { return t.renderLocalIndexes() }),
		"BillingMode":            string(t.billingMode),
	}
	if t.billingMode == types.BillingModeProvisioned {
		props["ProvisionedThroughput"] = throughput(p.ReadCapacity, p.WriteCapacity)
	}
	if p.TableName != "" {
		props["TableName"] = p.TableName
	}
	if t.stream != "" {
		props["StreamSpecification"] = map[string]any{"StreamViewType": string(t.stream)}
	}
	if p.TableClass != "" {
		props["TableClass"] = string(p.TableClass)
	}
	if p.TimeToLiveAttribute != "" {
		props["TimeToLiveSpecification"] = map[string]any{
			"AttributeName": p.TimeToLiveAttribute,
			"Enabled":       true,
		}
	}
	if p.PointInTimeRecovery {
		props["PointInTimeRecoverySpecification"] = map[string]any{"PointInTimeRecoveryEnabled": true}
	}
	if p.DeletionProtection {
		props["DeletionProtectionEnabled"] = true
	}
	if p.ContributorInsights {
		props["ContributorInsightsSpecification"] = map[string]any{"Enabled": true}
	}
	return props
}

func throughput(read, write int) map[string]any {
	if read == 0 {
		read = defaultCapacity
	}
	if write == 0 {
		write = defaultCapacity
	}
	return map[string]any{
		"ReadCapacityUnits":  read,
		"WriteCapacityUnits": write,
	}
}

func (t *Table) Node() *construct.Node {
	return t.node
}

func (t *Table) Resource() *construct.Resource {
	return t.resource
}

func (t *Table) Stack() *stack.Stack {
	return t.stack
}

func (t *Table) TableName() token.Str {
	return t.resource.Ref()
}

func (t *Table) TableArn() token.Str {
	return t.resource.GetAtt("Arn")
}

func (t *Table) TableStreamArn() (token.Str, bool) {
	if t.stream == "" {
		return token.Str{}, false
	}
	return t.resource.GetAtt("StreamArn"), true
}

func (t *Table) BillingMode() types.BillingMode {
	return t.billingMode
}

// ApplyRemovalPolicy sets what happens to the table when it is removed from the stack. Replicas
// without an explicit removal policy follow it.
func (t *Table) ApplyRemovalPolicy(p stack.RemovalPolicy) error {
	return stack.ApplyRemovalPolicy(t.resource, p)
}

// Replicas returns the replica chain in declaration order.
func (t *Table) Replicas() []*ReplicaNode {
	out := make([]*ReplicaNode, len(t.replicas))
	copy(out, t.replicas)
	return out
}

// RegionalArns returns the ARN of every replica, one per replica region.
func (t *Table) RegionalArns() []token.Str {
	out := make([]token.Str, len(t.regionalArns))
	copy(out, t.regionalArns)
	return out
}

func (t *Table) hasIndex() bool {
	return len(t.globalIndexes)+len(t.localIndexes) > 0
}

func (t *Table) String() string {
	return fmt.Sprintf("table %s", t.node.Path())
}
