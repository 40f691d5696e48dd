package config

import (
	"fmt"

	"github.com/klothoplatform/constructs/pkg/dynamodb"
	"github.com/klothoplatform/constructs/pkg/stack"
)

// Build declares the application's stacks and tables in a new app.
func (a *Application) Build() (*stack.App, error) {
	app := stack.NewApp()
	stacks := make(map[string]*stack.Stack, len(a.Stacks))
	for _, decl := range a.Stacks {
		s, err := stack.New(app, decl.Name, stack.Props{
			StackName:   decl.Name,
			Description: decl.Description,
			Region:      decl.Region,
			Account:     decl.Account,
		})
		if err != nil {
			return nil, err
		}
		stacks[decl.Name] = s
	}
	for _, decl := range a.Stacks {
		s := stacks[decl.Name]
		for _, dep := range decl.DependsOn {
			other, ok := stacks[dep]
			if !ok {
				return nil, fmt.Errorf("stack %s depends on unknown stack %s", decl.Name, dep)
			}
			if err := s.AddStackDependency(other); err != nil {
				return nil, err
			}
		}
		for _, t := range decl.Tables {
			if _, err := t.declare(s); err != nil {
				return nil, fmt.Errorf("stack %s: table %s: %w", decl.Name, t.ID, err)
			}
		}
	}
	return app, nil
}

func (t Table) declare(s *stack.Stack) (*dynamodb.Table, error) {
	table, err := dynamodb.NewTable(s, t.ID, dynamodb.TableProps{
		TableName:                  t.TableName,
		PartitionKey:               t.PartitionKey,
		SortKey:                    t.SortKey,
		BillingMode:                t.BillingMode,
		ReadCapacity:               t.ReadCapacity,
		WriteCapacity:              t.WriteCapacity,
		Stream:                     t.Stream,
		TableClass:                 t.TableClass,
		TimeToLiveAttribute:        t.TimeToLiveAttribute,
		PointInTimeRecovery:        t.PointInTimeRecovery,
		DeletionProtection:         t.DeletionProtection,
		ContributorInsights:        t.ContributorInsights,
		RemovalPolicy:              t.RemovalPolicy,
		ReplicationRegions:         t.ReplicationRegions,
		ReplicationTimeout:         t.ReplicationTimeout,
		WaitForReplicationToFinish: t.WaitForReplicationToFinish,
		ReplicaRemovalPolicy:       t.ReplicaRemovalPolicy,
	})
	if err != nil {
		return nil, err
	}
	for _, gsi := range t.GlobalSecondaryIndexes {
		if err := table.AddGlobalSecondaryIndex(gsi); err != nil {
			return nil, err
		}
	}
	for _, lsi := range t.LocalSecondaryIndexes {
		if err := table.AddLocalSecondaryIndex(lsi); err != nil {
			return nil, err
		}
	}
	if t.Outputs {
		if _, err := s.AddOutput(table, "TableName", table.TableName(), "Name of table "+t.ID); err != nil {
			return nil, err
		}
		if _, err := s.AddOutput(table, "TableArn", table.TableArn(), "Arn of table "+t.ID); err != nil {
			return nil, err
		}
	}
	return table, nil
}
