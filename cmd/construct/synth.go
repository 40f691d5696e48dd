package main

import (
	"fmt"
	"path/filepath"

	"github.com/klothoplatform/constructs/pkg/config"
	"github.com/klothoplatform/constructs/pkg/logging"
	"github.com/klothoplatform/constructs/pkg/stack"
	"github.com/klothoplatform/constructs/pkg/synth"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var synthCfg struct {
	file    string
	outDir  string
	format  string
	workers int
}

func newSynthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Synthesize a declaration file into an assembly directory",
		Args:  cobra.NoArgs,
		RunE:  runSynth,
	}
	flags := cmd.Flags()
	flags.StringVarP(&synthCfg.file, "file", "f", "app.yaml", "Declaration file (yaml, toml or json)")
	flags.StringVarP(&synthCfg.outDir, "output", "o", "cdk.out", "Assembly output directory")
	flags.StringVar(&synthCfg.format, "format", "json", "Template format: json or yaml")
	flags.IntVar(&synthCfg.workers, "workers", 5, "Number of stacks rendered concurrently")
	return cmd
}

// loadApp reads a declaration file and declares its stacks.
func loadApp(path string) (*config.Application, *stack.App, error) {
	decl, err := config.ReadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	app, err := decl.Build()
	if err != nil {
		return nil, nil, errors.Wrapf(err, "could not declare app %s", decl.App)
	}
	return decl, app, nil
}

func runSynth(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logging.GetLogger(ctx)

	format, err := synth.ParseFormat(synthCfg.format)
	if err != nil {
		return err
	}
	decl, app, err := loadApp(synthCfg.file)
	if err != nil {
		return err
	}
	asm, err := synth.Synthesize(ctx, app, synth.Options{
		OutDir:  synthCfg.outDir,
		Format:  format,
		Workers: synthCfg.workers,
	})
	if err != nil {
		return errors.Wrapf(err, "could not synthesize app %s", decl.App)
	}

	out := cmd.OutOrStdout()
	for _, a := range asm.Stacks {
		fmt.Fprintf(out, "%s: %s\n", a.Stack.StackName(), filepath.Join(synthCfg.outDir, a.TemplateFile))
	}
	if commonCfg.HadWarnings() {
		log.Warn("synthesized with warnings", zap.String("app", decl.App))
	}
	return nil
}
