package dynamodb

import (
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/klothoplatform/constructs/pkg/construct"
	"github.com/klothoplatform/constructs/pkg/stack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pk = Attribute{Name: "pk", Type: types.ScalarAttributeTypeS}
	sk = Attribute{Name: "sk", Type: types.ScalarAttributeTypeN}
)

// newTestStack returns a stack in us-east-1, or an environment agnostic one when region is empty.
func newTestStack(t *testing.T, region string) *stack.Stack {
	t.Helper()
	props := stack.Props{Region: region}
	if region != "" {
		props.Account = "123456789012"
	}
	s, err := stack.New(stack.NewApp(), "Stack", props)
	require.NoError(t, err)
	return s
}

func renderTable(t *testing.T, table *Table) stack.TemplateResource {
	t.Helper()
	tmpl, err := table.Stack().Template()
	require.NoError(t, err)
	return tmpl.Resources[table.Resource().LogicalID()]
}

func TestNewTable_Defaults(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	table, err := NewTable(newTestStack(t, "us-east-1"), "Table", TableProps{PartitionKey: pk, SortKey: &sk})
	require.NoError(err)
	assert.Equal("TableCD117FA1", table.Resource().LogicalID())
	assert.Equal(types.BillingModeProvisioned, table.BillingMode())
	_, hasStream := table.TableStreamArn()
	assert.False(hasStream)

	got := renderTable(t, table)
	assert.Equal("AWS::DynamoDB::Table", got.Type)
	assert.Equal("Retain", got.DeletionPolicy)
	assert.Equal("Retain", got.UpdateReplacePolicy)
	assert.Equal(map[string]any{
		"KeySchema": []any{
			map[string]any{"AttributeName": "pk", "KeyType": "HASH"},
			map[string]any{"AttributeName": "sk", "KeyType": "RANGE"},
		},
		"AttributeDefinitions": []any{
			map[string]any{"AttributeName": "pk", "AttributeType": "S"},
			map[string]any{"AttributeName": "sk", "AttributeType": "N"},
		},
		"BillingMode":           "PROVISIONED",
		"ProvisionedThroughput": map[string]any{"ReadCapacityUnits": 5, "WriteCapacityUnits": 5},
	}, got.Properties)
}

func TestNewTable_Options(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	table, err := NewTable(newTestStack(t, "us-east-1"), "Table", TableProps{
		TableName:           "orders",
		PartitionKey:        pk,
		BillingMode:         types.BillingModePayPerRequest,
		Stream:              types.StreamViewTypeKeysOnly,
		TableClass:          types.TableClassStandardInfrequentAccess,
		TimeToLiveAttribute: "expires",
		PointInTimeRecovery: true,
		DeletionProtection:  true,
		ContributorInsights: true,
		RemovalPolicy:       stack.RemovalPolicyDestroy,
	})
	require.NoError(err)
	_, hasStream := table.TableStreamArn()
	assert.True(hasStream)

	got := renderTable(t, table)
	assert.Equal("Delete", got.DeletionPolicy)
	assert.Equal("orders", got.Properties["TableName"])
	assert.Equal("PAY_PER_REQUEST", got.Properties["BillingMode"])
	assert.NotContains(got.Properties, "ProvisionedThroughput")
	assert.Equal(map[string]any{"StreamViewType": "KEYS_ONLY"}, got.Properties["StreamSpecification"])
	assert.Equal("STANDARD_INFREQUENT_ACCESS", got.Properties["TableClass"])
	assert.Equal(map[string]any{"AttributeName": "expires", "Enabled": true}, got.Properties["TimeToLiveSpecification"])
	assert.Equal(map[string]any{"PointInTimeRecoveryEnabled": true}, got.Properties["PointInTimeRecoverySpecification"])
	assert.Equal(true, got.Properties["DeletionProtectionEnabled"])
	assert.Equal(map[string]any{"Enabled": true}, got.Properties["ContributorInsightsSpecification"])
}

func TestNewTable_ValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		props    TableProps
		messages []string
	}{
		{
			name:     "missing partition key",
			props:    TableProps{},
			messages: []string{"partition key must be specified"},
		},
		{
			name: "capacity with on-demand billing",
			props: TableProps{
				PartitionKey: pk,
				BillingMode:  types.BillingModePayPerRequest,
				ReadCapacity: 10,
			},
			messages: []string{"PAY_PER_REQUEST"},
		},
		{
			name: "provisioned replicated table",
			props: TableProps{
				PartitionKey:       pk,
				BillingMode:        types.BillingModeProvisioned,
				ReplicationRegions: []string{"us-west-2"},
			},
			messages: []string{"requires PAY_PER_REQUEST billing mode"},
		},
		{
			name: "replicated table with wrong stream",
			props: TableProps{
				PartitionKey:       pk,
				Stream:             types.StreamViewTypeKeysOnly,
				ReplicationRegions: []string{"us-west-2"},
			},
			messages: []string{"stream must be NEW_AND_OLD_IMAGES"},
		},
		{
			name: "all problems are reported",
			props: TableProps{
				BillingMode:        types.BillingModeProvisioned,
				Stream:             types.StreamViewTypeNewImage,
				ReplicationRegions: []string{"us-west-2"},
			},
			messages: []string{
				"partition key must be specified",
				"requires PAY_PER_REQUEST billing mode",
				"stream must be NEW_AND_OLD_IMAGES",
			},
		},
		{
			name: "replication timeout beyond the provider limit",
			props: TableProps{
				PartitionKey:       pk,
				ReplicationRegions: []string{"us-west-2"},
				ReplicationTimeout: 3 * time.Hour,
			},
			messages: []string{"replication timeout 3h0m0s exceeds 2h0m0s"},
		},
		{
			name: "replication timeout below the query interval",
			props: TableProps{
				PartitionKey:       pk,
				ReplicationRegions: []string{"us-west-2"},
				ReplicationTimeout: time.Second,
			},
			messages: []string{"must be at least 10s"},
		},
		{
			name:     "bad removal policy",
			props:    TableProps{PartitionKey: pk, RemovalPolicy: "bogus"},
			messages: []string{`unknown removal policy "bogus"`},
		},
		{
			name:     "bad key type",
			props:    TableProps{PartitionKey: Attribute{Name: "pk", Type: "BOOL"}},
			messages: []string{`unsupported type "BOOL"`},
		},
		{
			name:     "conflicting key types",
			props:    TableProps{PartitionKey: pk, SortKey: &Attribute{Name: "pk", Type: types.ScalarAttributeTypeN}},
			messages: []string{"unable to set pk with a different type of attribute"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(newTestStack(t, "us-east-1"), "Table", tt.props)
			require.Error(t, err)

			verrs := construct.ValidationErrors(err)
			require.Len(t, verrs, len(tt.messages))
			for i, msg := range tt.messages {
				assert.Equal(t, "Stack/Table", verrs[i].Path)
				assert.Contains(t, verrs[i].Message, msg)
			}
		})
	}
}

func TestNewTable_RejectedTableIsDetached(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	s := newTestStack(t, "us-east-1")
	tests := []TableProps{
		{},
		{PartitionKey: pk, SortKey: &Attribute{Name: "pk", Type: types.ScalarAttributeTypeN}},
		{PartitionKey: pk, ReplicationRegions: []string{"us-east-1"}},
	}
	for _, props := range tests {
		_, err := NewTable(s, "Table", props)
		require.Error(err)
		assert.Nil(s.Node().TryFindChild("Table"))
		assert.Len(s.Node().FindAll(), 1, "only the stack remains")
		assert.Empty(stackResources(t, s))
	}

	table, err := NewTable(s, "Table", TableProps{PartitionKey: pk})
	require.NoError(err)
	assert.Equal(table.Node(), s.Node().TryFindChild("Table"))
	assert.Len(stackResources(t, s), 1)
}

func TestTable_ApplyRemovalPolicy(t *testing.T) {
	table, err := NewTable(newTestStack(t, "us-east-1"), "Table", TableProps{PartitionKey: pk})
	require.NoError(t, err)
	require.NoError(t, table.ApplyRemovalPolicy(stack.RemovalPolicySnapshot))
	assert.Equal(t, "Snapshot", renderTable(t, table).DeletionPolicy)
	assert.Error(t, table.ApplyRemovalPolicy("bogus"))
}

func TestAttributeRegistry(t *testing.T) {
	assert := assert.New(t)

	var r attributeRegistry
	assert.NoError(r.register(pk))
	assert.NoError(r.register(pk))
	assert.NoError(r.register(sk))
	assert.EqualError(
		r.register(Attribute{Name: "pk", Type: types.ScalarAttributeTypeB}),
		"unable to set pk with a different type of attribute",
	)
	assert.Error(r.register(Attribute{Type: types.ScalarAttributeTypeS}))
	assert.Equal([]map[string]any{
		{"AttributeName": "pk", "AttributeType": "S"},
		{"AttributeName": "sk", "AttributeType": "N"},
	}, r.attributeDefinitions())

	many := make([]string, MaxNonKeyAttributes)
	for i := range many {
		many[i] = fmt.Sprintf("a%d", i)
	}
	assert.NoError(r.addNonKey(many))
	assert.NoError(r.addNonKey([]string{"a0", "a1"}))
	assert.Error(r.addNonKey([]string{"extra"}))
}
