// Package synth renders an app into an assembly directory: one template and one asset manifest
// per stack, the asset files, and a manifest tying them together.
package synth

import (
	"context"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/alitto/pond"
	"github.com/klothoplatform/constructs/pkg/io"
	"github.com/klothoplatform/constructs/pkg/logging"
	"github.com/klothoplatform/constructs/pkg/stack"
	"go.uber.org/zap"
)

type (
	Options struct {
		// OutDir is where the assembly is written. Nothing is written when empty.
		OutDir string
		Format Format
		// Workers bounds how many stacks are rendered at once.
		Workers int
	}

	Assembly struct {
		Manifest *Manifest
		Stacks   []*StackArtifact
	}

	StackArtifact struct {
		Stack        *stack.Stack
		Template     *stack.Template
		TemplateFile string
		Assets       *AssetManifest
		AssetsFile   string
		files        []io.File
	}
)

// Synthesize renders and validates every stack of app. Stacks are rendered concurrently; each
// stack is only touched by one worker.
func Synthesize(ctx context.Context, app *stack.App, opts Options) (*Assembly, error) {
	log := logging.GetLogger(ctx).Named("synth")
	start := time.Now()
	if opts.Format == "" {
		opts.Format = FormatJSON
	}
	if opts.Workers <= 0 {
		opts.Workers = 5
	}

	stacks := app.Stacks()
	if len(stacks) == 0 {
		return nil, fmt.Errorf("app has no stacks")
	}
	artifacts := make([]*StackArtifact, len(stacks))

	pool := pond.New(opts.Workers, 1000, pond.Strategy(pond.Lazy()))
	defer pool.StopAndWait()
	group, groupCtx := pool.GroupContext(ctx)
	for i, s := range stacks {
		group.Submit(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			a, err := synthesizeStack(s, opts.Format)
			if err != nil {
				return fmt.Errorf("stack %s: %w", s.StackName(), err)
			}
			artifacts[i] = a
			log.Debug("rendered stack", zap.String("stack", s.StackName()), zap.Int("resources", len(a.Template.Resources)))
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	// The group context is always cancelled once Wait returns, so only the caller's context is
	// checked for tasks skipped after cancellation.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	asm := &Assembly{
		Manifest: &Manifest{Version: manifestVersion, Artifacts: make(map[string]Artifact)},
		Stacks:   artifacts,
	}
	var files []io.File
	for _, a := range artifacts {
		for id, artifact := range stackArtifacts(a.Stack, a.TemplateFile, a.AssetsFile) {
			asm.Manifest.Artifacts[id] = artifact
		}
		files = append(files, a.files...)
	}
	content, err := FormatJSON.Marshal(asm.Manifest)
	if err != nil {
		return nil, err
	}
	files = append(files, &io.RawFile{FPath: manifestFile, Content: content})

	if opts.OutDir != "" {
		if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
			return nil, err
		}
		n, err := io.OutputTo(files, opts.OutDir)
		if err != nil {
			return nil, fmt.Errorf("could not write assembly to %s: %w", opts.OutDir, err)
		}
		log.Info("wrote assembly",
			zap.String("dir", opts.OutDir),
			zap.Int("files", len(files)),
			zap.Int64("bytes", n),
			zap.Duration("duration", time.Since(start)),
		)
	}
	return asm, nil
}

func synthesizeStack(s *stack.Stack, format Format) (*StackArtifact, error) {
	tmpl, err := s.Template()
	if err != nil {
		return nil, err
	}
	if err := ValidateTemplate(tmpl); err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}
	content, err := format.Marshal(tmpl)
	if err != nil {
		return nil, err
	}
	a := &StackArtifact{
		Stack:        s,
		Template:     tmpl,
		TemplateFile: s.StackName() + ".template" + format.Extension(),
	}
	a.files = append(a.files, &io.RawFile{FPath: a.TemplateFile, Content: content})

	assets := s.Assets()
	if len(assets) == 0 {
		return a, nil
	}
	if a.Assets, err = assetManifest(s); err != nil {
		return nil, err
	}
	a.AssetsFile = assetsArtifactID(s) + ".json"
	content, err = FormatJSON.Marshal(a.Assets)
	if err != nil {
		return nil, err
	}
	a.files = append(a.files, &io.RawFile{FPath: a.AssetsFile, Content: content})
	for _, asset := range assets {
		files, err := io.FilesFrom(asset.Source, assetDir(asset))
		if err != nil {
			return nil, fmt.Errorf("asset %s: %w", asset.DisplayName, err)
		}
		a.files = append(a.files, files...)
	}
	return a, nil
}

// ResourceIDs lists the logical ids of the artifact's template in sorted order.
func (a *StackArtifact) ResourceIDs() []string {
	ids := make([]string, 0, len(a.Template.Resources))
	for id := range a.Template.Resources {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
