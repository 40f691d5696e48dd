package main

import (
	"fmt"

	"github.com/klothoplatform/constructs/pkg/synth"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var validateCfg struct {
	file string
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a declaration file and the templates it renders without writing anything",
		Args:  cobra.NoArgs,
		RunE:  runValidate,
	}
	cmd.Flags().StringVarP(&validateCfg.file, "file", "f", "app.yaml", "Declaration file (yaml, toml or json)")
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	decl, app, err := loadApp(validateCfg.file)
	if err != nil {
		return err
	}
	asm, err := synth.Synthesize(cmd.Context(), app, synth.Options{})
	if err != nil {
		return errors.Wrapf(err, "app %s does not render", decl.App)
	}
	resources := 0
	for _, a := range asm.Stacks {
		resources += len(a.Template.Resources)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is valid: %d stacks, %d resources\n", decl.App, len(asm.Stacks), resources)
	return nil
}
