package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/klothoplatform/constructs/pkg/synth"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var diffCfg struct {
	exitCode bool
}

// errChanges is returned with --exit-code when the templates differ.
var errChanges = errors.New("templates differ")

func newDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff [old template] [new template]",
		Short: "Show the differences between two synthesized templates",
		Args:  cobra.ExactArgs(2),
		RunE:  runDiff,
	}
	cmd.Flags().BoolVar(&diffCfg.exitCode, "exit-code", false, "Fail when the templates differ")
	return cmd
}

func runDiff(cmd *cobra.Command, args []string) error {
	before, err := os.ReadFile(args[0])
	if err != nil {
		return errors.Wrap(err, "could not read old template")
	}
	after, err := os.ReadFile(args[1])
	if err != nil {
		return errors.Wrap(err, "could not read new template")
	}
	changes, err := synth.Diff(before, after)
	if err != nil {
		return err
	}

	switch commonCfg.Color {
	case "always", "on":
		color.NoColor = false
	case "never", "off":
		color.NoColor = true
	}
	paint := map[synth.ChangeType]*color.Color{
		synth.ChangeCreate: color.New(color.FgGreen),
		synth.ChangeDelete: color.New(color.FgRed),
		synth.ChangeUpdate: color.New(color.FgYellow),
	}
	out := cmd.OutOrStdout()
	for _, c := range changes {
		paint[c.Type].Fprintln(out, c.String()) //nolint:errcheck
	}
	if len(changes) == 0 {
		fmt.Fprintln(out, "no differences")
		return nil
	}
	if diffCfg.exitCode {
		return errChanges
	}
	return nil
}
