package main

import (
	"embed"
	"fmt"
	"strings"

	"github.com/klothoplatform/constructs/pkg/construct"
	"github.com/klothoplatform/constructs/pkg/dynamodb"
	"github.com/klothoplatform/constructs/pkg/stack"
	"github.com/klothoplatform/constructs/pkg/templateutils"
	"github.com/spf13/cobra"
)

//go:embed describe.tmpl
var describeFiles embed.FS

var describeTmpl = templateutils.MustTemplate(describeFiles, "describe.tmpl")

var describeCfg struct {
	file string
}

type (
	appSummary struct {
		App    string
		Stacks []stackSummary
	}

	stackSummary struct {
		Name         string
		Environment  string
		Resources    int
		Dependencies []string
		Tables       []tableSummary
	}

	tableSummary struct {
		Path        string
		LogicalID   string
		BillingMode string
		Replicas    []replicaSummary
	}

	replicaSummary struct {
		Region    string
		LogicalID string
		Guarded   bool
		After     string
	}
)

func newDescribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Summarize the stacks, tables and replica chains of a declaration file",
		Args:  cobra.NoArgs,
		RunE:  runDescribe,
	}
	cmd.Flags().StringVarP(&describeCfg.file, "file", "f", "app.yaml", "Declaration file (yaml, toml or json)")
	return cmd
}

func runDescribe(cmd *cobra.Command, args []string) error {
	decl, app, err := loadApp(describeCfg.file)
	if err != nil {
		return err
	}
	summary := appSummary{App: decl.App}
	for _, s := range app.Stacks() {
		ss, err := summarizeStack(s)
		if err != nil {
			return err
		}
		summary.Stacks = append(summary.Stacks, ss)
	}
	return describeTmpl.Execute(cmd.OutOrStdout(), summary)
}

func summarizeStack(s *stack.Stack) (stackSummary, error) {
	resources, err := s.Resources()
	if err != nil {
		return stackSummary{}, err
	}
	summary := stackSummary{
		Name:        s.StackName(),
		Environment: fmt.Sprintf("%s/%s", s.Account(), s.Region()),
		Resources:   len(resources),
	}
	for _, d := range s.Dependencies() {
		summary.Dependencies = append(summary.Dependencies, d.StackName())
	}
	for _, n := range s.Node().FindAll() {
		if t, ok := n.Host().(*dynamodb.Table); ok {
			summary.Tables = append(summary.Tables, summarizeTable(t))
		}
	}
	return summary, nil
}

func summarizeTable(t *dynamodb.Table) tableSummary {
	summary := tableSummary{
		Path:        strings.TrimPrefix(t.Node().Path(), t.Stack().Node().Path()+construct.PathSeparator),
		LogicalID:   t.Resource().LogicalID(),
		BillingMode: string(t.BillingMode()),
	}
	for _, r := range t.Replicas() {
		rs := replicaSummary{
			Region:    r.Request.Region,
			LogicalID: r.Resource.LogicalID(),
			Guarded:   r.RegionGuard != nil,
		}
		if r.DependsOn != nil {
			rs.After = r.DependsOn.Request.Region
		}
		summary.Replicas = append(summary.Replicas, rs)
	}
	return summary
}
