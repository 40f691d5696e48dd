package dynamodb

import (
	"testing"
	"time"

	"github.com/klothoplatform/constructs/pkg/construct"
	"github.com/klothoplatform/constructs/pkg/stack"
	"github.com/klothoplatform/constructs/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func replicatedTable(t *testing.T, s *stack.Stack, id string, props TableProps) *Table {
	t.Helper()
	props.PartitionKey = pk
	table, err := NewTable(s, id, props)
	require.NoError(t, err)
	return table
}

func stackResources(t *testing.T, s *stack.Stack) []*construct.Resource {
	t.Helper()
	resources, err := s.Resources()
	require.NoError(t, err)
	return resources
}

func replicaRegions(nodes []*ReplicaNode) []string {
	regions := make([]string, len(nodes))
	for i, n := range nodes {
		regions[i] = n.Request.Region
	}
	return regions
}

// replicaEdges lists the direct dependencies between replica resources as "dependent -> dependency".
func replicaEdges(t *testing.T, s *stack.Stack, nodes []*ReplicaNode) []string {
	t.Helper()
	regionOf := make(map[string]string)
	for _, n := range nodes {
		regionOf[n.Resource.LogicalID()] = n.Request.Region
	}
	var edges []string
	for _, n := range nodes {
		deps, err := construct.DirectDependencies(s.Graph(), n.Resource.LogicalID())
		require.NoError(t, err)
		for _, d := range deps {
			if region, ok := regionOf[d]; ok {
				edges = append(edges, n.Request.Region+" -> "+region)
			}
		}
	}
	return edges
}

func TestReplicas_Deduplicated(t *testing.T) {
	assert := assert.New(t)

	s := newTestStack(t, "us-east-1")
	table := replicatedTable(t, s, "Table", TableProps{
		ReplicationRegions: []string{"us-west-2", "eu-west-1", "us-west-2", "ap-south-1", "eu-west-1"},
	})

	assert.Equal([]string{"us-west-2", "eu-west-1", "ap-south-1"}, replicaRegions(table.Replicas()))
	assert.Len(table.RegionalArns(), 3)
	assert.Equal(
		[]string{"eu-west-1 -> us-west-2", "ap-south-1 -> eu-west-1"},
		replicaEdges(t, s, table.Replicas()),
	)
}

func TestReplicas_LinearChain(t *testing.T) {
	assert := assert.New(t)

	s := newTestStack(t, "us-east-1")
	table := replicatedTable(t, s, "Table", TableProps{ReplicationRegions: []string{"a", "b", "c"}})
	nodes := table.Replicas()
	require.Len(t, nodes, 3)

	assert.Nil(nodes[0].DependsOn)
	assert.Same(nodes[0], nodes[1].DependsOn)
	assert.Same(nodes[1], nodes[2].DependsOn)
	for _, n := range nodes {
		assert.Nil(n.RegionGuard)
		assert.Nil(n.Resource.Condition)
		assert.NotContains(n.Resource.Metadata, replicationDependencyKey)
		assert.Equal(defaultReplicationTimeout, n.Request.Timeout)
	}
	assert.Equal([]string{"b -> a", "c -> b"}, replicaEdges(t, s, nodes))

	tmpl, err := s.Template()
	require.NoError(t, err)
	assert.Empty(tmpl.Conditions)

	arn, err := token.Resolve(table.RegionalArns()[1])
	require.NoError(t, err)
	assert.Equal(map[string]any{"Fn::Join": []any{"", []any{
		"arn:aws:dynamodb:b:123456789012:table/",
		map[string]any{"Ref": table.Resource().LogicalID()},
	}}}, arn)
}

func TestReplicas_CreationOrder(t *testing.T) {
	assert := assert.New(t)

	s := newTestStack(t, "us-east-1")
	// Sorted by logical id alone the replicas would come out in reverse.
	table := replicatedTable(t, s, "Table", TableProps{ReplicationRegions: []string{"us-west-2", "us-east-2", "eu-west-1"}})

	position := make(map[string]int)
	for i, r := range stackResources(t, s) {
		position[r.LogicalID()] = i
	}
	before := func(first, second *construct.Resource) {
		assert.Less(position[first.LogicalID()], position[second.LogicalID()],
			"%s must be created before %s", first.LogicalID(), second.LogicalID())
	}

	nodes := table.Replicas()
	require.Len(t, nodes, 3)
	for _, p := range table.attachedPolicies {
		before(p.Policy().Resource(), nodes[0].Resource)
	}
	before(nodes[0].Resource, nodes[1].Resource)
	before(nodes[1].Resource, nodes[2].Resource)
}

func TestReplicas_StackRegionRejected(t *testing.T) {
	s := newTestStack(t, "us-east-1")
	_, err := NewTable(s, "Table", TableProps{
		PartitionKey:       pk,
		ReplicationRegions: []string{"us-west-2", "us-east-1"},
	})

	var verr *construct.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Stack/Table", verr.Path)
	assert.Contains(t, verr.Message, "cannot include the region where this stack is deployed")

	assert.Empty(t, stackResources(t, s), "nothing is declared for a rejected table")
	assert.Empty(t, s.Conditions())
}

func TestReplicas_TokenRegion(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	s := newTestStack(t, "")
	table := replicatedTable(t, s, "Table", TableProps{ReplicationRegions: []string{"us-west-2", "us-east-1"}})
	nodes := table.Replicas()
	require.Len(nodes, 2)

	for _, n := range nodes {
		require.NotNil(n.RegionGuard)
		assert.Equal(n.RegionGuard, n.Resource.Condition)
	}
	assert.Empty(replicaEdges(t, s, nodes), "a guarded predecessor is never a direct dependency")
	assert.Same(nodes[0], nodes[1].DependsOn)
	assert.NotContains(nodes[0].Resource.Metadata, replicationDependencyKey)

	tmpl, err := s.Template()
	require.NoError(err)

	first := nodes[0]
	assert.Equal(map[string]any{"Fn::Not": []any{map[string]any{"Fn::Equals": []any{
		"us-west-2", map[string]any{"Ref": "AWS::Region"},
	}}}}, tmpl.Conditions[first.RegionGuard.LogicalID()])

	second := tmpl.Resources[nodes[1].Resource.LogicalID()]
	assert.Equal(nodes[1].RegionGuard.LogicalID(), second.Condition)
	assert.Equal(map[string]any{"Fn::If": []any{
		first.RegionGuard.LogicalID(),
		map[string]any{"Ref": first.Resource.LogicalID()},
		map[string]any{"Ref": "AWS::NoValue"},
	}}, second.Metadata[replicationDependencyKey])
}

func TestReplicas_Properties(t *testing.T) {
	no := false
	tests := []struct {
		name         string
		props        TableProps
		removal      stack.RemovalPolicy
		skipDeletion bool
		skipWait     any
	}{
		{
			name:         "defaults retain replicas",
			skipDeletion: true,
		},
		{
			name:         "table removal policy applied later",
			removal:      stack.RemovalPolicyDestroy,
			skipDeletion: false,
		},
		{
			name:         "explicit replica removal policy wins",
			props:        TableProps{ReplicaRemovalPolicy: stack.RemovalPolicyRetain},
			removal:      stack.RemovalPolicyDestroy,
			skipDeletion: true,
		},
		{
			name:         "explicit destroy",
			props:        TableProps{ReplicaRemovalPolicy: stack.RemovalPolicyDestroy},
			skipDeletion: false,
		},
		{
			name:         "do not wait for replication",
			props:        TableProps{WaitForReplicationToFinish: &no},
			skipDeletion: true,
			skipWait:     "true",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStack(t, "us-east-1")
			tt.props.ReplicationRegions = []string{"us-west-2"}
			table := replicatedTable(t, s, "Table", tt.props)
			if tt.removal != "" {
				require.NoError(t, table.ApplyRemovalPolicy(tt.removal))
			}

			tmpl, err := s.Template()
			require.NoError(t, err)
			replica := tmpl.Resources[table.Replicas()[0].Resource.LogicalID()]

			assert.Equal(t, replicaResourceType, replica.Type)
			assert.Equal(t, "us-west-2", replica.Properties["Region"])
			assert.Equal(t, map[string]any{"Ref": table.Resource().LogicalID()}, replica.Properties["TableName"])
			assert.Equal(t, tt.skipDeletion, replica.Properties["SkipReplicaDeletion"])
			assert.Equal(t, tt.skipWait, replica.Properties["SkipReplicationCompletedWait"])

			source := tmpl.Resources[table.Resource().LogicalID()]
			assert.Equal(t, map[string]any{"StreamViewType": "NEW_AND_OLD_IMAGES"}, source.Properties["StreamSpecification"])
			assert.Equal(t, "PAY_PER_REQUEST", source.Properties["BillingMode"])
		})
	}
}

func TestReplicas_DependOnAttachedPolicies(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	s := newTestStack(t, "us-east-1")
	table := replicatedTable(t, s, "Table", TableProps{ReplicationRegions: []string{"us-west-2", "eu-west-1"}})

	provider, err := replicaProviderFor(s, time.Minute)
	require.NoError(err)
	onEvent, err := table.attachedPolicyFor(provider.OnEventHandler.Role())
	require.NoError(err)
	isComplete, err := table.attachedPolicyFor(provider.IsCompleteHandler.Role())
	require.NoError(err)
	require.Len(table.attachedPolicies, 2)

	for _, n := range table.Replicas() {
		deps, err := construct.DirectDependencies(s.Graph(), n.Resource.LogicalID())
		require.NoError(err)
		assert.Contains(deps, onEvent.Policy().Resource().LogicalID())
		assert.Contains(deps, isComplete.Policy().Resource().LogicalID())
	}

	tmpl, err := s.Template()
	require.NoError(err)

	policy := tmpl.Resources[onEvent.Policy().Resource().LogicalID()]
	assert.Equal("AWS::IAM::ManagedPolicy", policy.Type)
	assert.Equal(map[string]any{"Fn::Join": []any{"", []any{
		"DynamoDB replication managed policy for table ",
		map[string]any{"Ref": table.Resource().LogicalID()},
	}}}, policy.Properties["Description"])
	assert.Equal([]any{map[string]any{"Ref": provider.OnEventHandler.Role().Resource().LogicalID()}}, policy.Properties["Roles"])

	statements := policy.Properties["PolicyDocument"].(map[string]any)["Statement"].([]any)
	require.Len(statements, 1, "source and destination grants share one statement")
	stmt := statements[0].(map[string]any)
	assert.Equal("dynamodb:*", stmt["Action"])
	// Table arn plus one arn per replica region.
	assert.Len(stmt["Resource"], 3)

	completion := tmpl.Resources[isComplete.Policy().Resource().LogicalID()]
	stmt = completion.Properties["PolicyDocument"].(map[string]any)["Statement"].([]any)[0].(map[string]any)
	assert.Equal("dynamodb:DescribeTable", stmt["Action"])
}

func TestAttachedPolicyFor_SameRole(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	s := newTestStack(t, "us-east-1")
	table := replicatedTable(t, s, "Table", TableProps{ReplicationRegions: []string{"us-west-2"}})
	provider, err := replicaProviderFor(s, time.Minute)
	require.NoError(err)
	role := provider.OnEventHandler.Role()

	a, err := table.attachedPolicyFor(role)
	require.NoError(err)
	b, err := table.attachedPolicyFor(role)
	require.NoError(err)
	assert.Same(a, b)

	before := len(a.Policy().Document().Statements())
	inline := len(role.DefaultPolicy().Document().Statements())
	_, err = table.GrantReadData(a)
	require.NoError(err)
	_, err = table.GrantWriteData(b)
	require.NoError(err)
	assert.Len(a.Policy().Document().Statements(), before+2)
	assert.Len(role.DefaultPolicy().Document().Statements(), inline, "grants never reach the role's inline policy")
}

func TestReplicaProvider_SharedAcrossTables(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	s := newTestStack(t, "us-east-1")
	first := replicatedTable(t, s, "First", TableProps{ReplicationRegions: []string{"us-west-2"}, ReplicationTimeout: time.Hour})
	second := replicatedTable(t, s, "Second", TableProps{ReplicationRegions: []string{"eu-west-1"}})

	p, err := replicaProviderFor(s, time.Minute)
	require.NoError(err)
	assert.Equal(time.Hour, p.provider.TotalTimeout())
	assert.Equal(replicaQueryInterval, p.provider.QueryInterval())

	token1, err := token.Resolve(first.Replicas()[0].Resource.Properties["ServiceToken"])
	require.NoError(err)
	token2, err := token.Resolve(second.Replicas()[0].Resource.Properties["ServiceToken"])
	require.NoError(err)
	assert.Equal(token1, token2)

	count := 0
	for _, r := range stackResources(t, s) {
		if r.Type == "AWS::Lambda::Function" {
			count++
		}
	}
	assert.Equal(3, count, "event handler, completion handler and provider framework")

	_, err = s.Template()
	require.NoError(err)
}
