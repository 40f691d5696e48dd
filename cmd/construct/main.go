package main

import (
	"fmt"
	"os"

	clicommon "github.com/klothoplatform/constructs/pkg/cli_common"
	"github.com/spf13/cobra"
)

var commonCfg clicommon.CommonConfig

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "construct",
		Short:         "Declare replicated DynamoDB tables and synthesize them into deployment templates",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	clicommon.SetupRoot(root, &commonCfg)

	root.AddCommand(newSynthCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newDiffCmd())
	root.AddCommand(newDescribeCmd())
	return root
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
		os.Exit(1)
	}
}
