package dynamodb

import (
	"strconv"
	"time"

	"github.com/klothoplatform/constructs/pkg/construct"
	"github.com/klothoplatform/constructs/pkg/iam"
	"github.com/klothoplatform/constructs/pkg/set"
	"github.com/klothoplatform/constructs/pkg/stack"
	"github.com/klothoplatform/constructs/pkg/token"
	"go.uber.org/zap"
)

const (
	replicaResourceType = "Custom::DynamoDBReplica"
	// replicationDependencyKey is the metadata entry that orders a replica after a conditional
	// predecessor.
	replicationDependencyKey = "DynamoDbReplicationDependency"
)

type (
	// ReplicaRequest is the replica of a table in one region.
	ReplicaRequest struct {
		Region  string
		Timeout time.Duration
		// SkipDeletion is resolved when the template is rendered, so it follows removal policies
		// applied to the table after it was declared.
		SkipDeletion token.Token
		// SkipCompletionWait is nil when the table did not say whether to wait for replication.
		SkipCompletionWait *bool
	}

	// ReplicaNode is one link of a table's replica chain. Replicas are added and removed one
	// region at a time because a table accepts only one replica update at once.
	ReplicaNode struct {
		Request  ReplicaRequest
		Resource *construct.Resource
		// DependsOn is the previous replica of the chain, nil for the first.
		DependsOn *ReplicaNode
		// RegionGuard is set when the stack region is only known at deploy time. The replica is
		// only created if the stack is not deployed into the replica's region.
		RegionGuard *stack.Condition
	}
)

// createReplicas declares one replica per unique region, chained in declaration order.
func (t *Table) createReplicas(regions []string) error {
	log := zap.L().Named("dynamodb.replica").With(zap.String("table", t.node.Path()))

	// A literal stack region inside regions was rejected by validateProps.
	_, regionKnown := t.stack.Region().Literal()
	unique := set.OrderedOf(regions...)

	timeout := t.props.ReplicationTimeout
	if timeout == 0 {
		timeout = defaultReplicationTimeout
	}
	provider, err := replicaProviderFor(t.stack, timeout)
	if err != nil {
		return err
	}

	onEventPolicy, err := t.attachedPolicyFor(provider.OnEventHandler.Role())
	if err != nil {
		return err
	}
	isCompletePolicy, err := t.attachedPolicyFor(provider.IsCompleteHandler.Role())
	if err != nil {
		return err
	}
	// Source region permissions.
	if _, err := t.Grant(onEventPolicy, "dynamodb:*"); err != nil {
		return err
	}
	if _, err := t.Grant(isCompletePolicy, describeTableAction); err != nil {
		return err
	}

	var skipCompletionWait *bool
	if w := t.props.WaitForReplicationToFinish; w != nil {
		skip := !*w
		skipCompletionWait = &skip
	}
	skipDeletion := token.Lazy(func() any {
		if t.props.ReplicaRemovalPolicy != "" {
			return t.props.ReplicaRemovalPolicy == stack.RemovalPolicyRetain
		}
		return t.resource.DeletionPolicy == "Retain"
	})

	var prev *ReplicaNode
	for _, region := range unique.ToSlice() {
		req := ReplicaRequest{
			Region:             region,
			Timeout:            timeout,
			SkipDeletion:       skipDeletion,
			SkipCompletionWait: skipCompletionWait,
		}
		node, err := t.createReplica(req, provider, onEventPolicy, isCompletePolicy, regionKnown)
		if err != nil {
			return err
		}

		if prev != nil {
			node.DependsOn = prev
			if prev.RegionGuard != nil {
				// DependsOn cannot name a resource that may not exist, so the order is kept by
				// referencing the previous replica only when its condition holds.
				node.Resource.AddMetadata(replicationDependencyKey,
					token.If(prev.RegionGuard, prev.Resource.Ref(), token.NoValue))
			} else if err := t.stack.AddDependency(node.Resource, prev.Resource); err != nil {
				return err
			}
		}

		t.regionalArns = append(t.regionalArns, t.stack.FormatArn(stack.ArnComponents{
			Service:      "dynamodb",
			Region:       token.String(region),
			Resource:     "table",
			ResourceName: t.TableName(),
		}))
		t.replicas = append(t.replicas, node)
		log.Debug("declared replica",
			zap.String("region", region),
			zap.String("id", node.Resource.LogicalID()),
			zap.Bool("guarded", node.RegionGuard != nil),
		)
		prev = node
	}

	// Destination region permissions, once for all regions to keep the policies small.
	if err := onEventPolicy.GrantPrincipal().AddToPrincipalPolicy(
		iam.NewStatement([]string{"dynamodb:*"}, t.regionalArns...),
	); err != nil {
		return err
	}
	return isCompletePolicy.GrantPrincipal().AddToPrincipalPolicy(
		iam.NewStatement([]string{describeTableAction}, t.regionalArns...),
	)
}

func (t *Table) createReplica(
	req ReplicaRequest,
	provider *replicaProvider,
	onEventPolicy, isCompletePolicy *attachedPolicy,
	regionKnown bool,
) (*ReplicaNode, error) {
	props := construct.Properties{
		"ServiceToken":        provider.ServiceToken(),
		"TableName":           t.TableName(),
		"Region":              req.Region,
		"SkipReplicaDeletion": req.SkipDeletion,
	}
	if req.SkipCompletionWait != nil {
		props["SkipReplicationCompletedWait"] = strconv.FormatBool(*req.SkipCompletionWait)
	}
	r, err := t.stack.AddResource(t, "Replica"+req.Region, replicaResourceType, props)
	if err != nil {
		return nil, err
	}
	node := &ReplicaNode{Request: req, Resource: r}

	for _, p := range []*attachedPolicy{onEventPolicy, isCompletePolicy} {
		if err := t.stack.AddDependency(r, p.policy.Resource()); err != nil {
			return nil, err
		}
	}

	if !regionKnown {
		cond, err := t.stack.AddCondition(t, "StackRegionNotEquals"+req.Region,
			token.Not(token.Equals(req.Region, token.AWSRegion)))
		if err != nil {
			return nil, err
		}
		r.Condition = cond
		node.RegionGuard = cond
	}
	return node, nil
}
