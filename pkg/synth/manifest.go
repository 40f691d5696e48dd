package synth

import (
	"fmt"
	"slices"

	"github.com/klothoplatform/constructs/pkg/stack"
	"github.com/klothoplatform/constructs/pkg/token"
)

const (
	manifestVersion = "36.0.0"
	manifestFile    = "manifest.json"

	artifactTypeStack  = "aws:cloudformation:stack"
	artifactTypeAssets = "cdk:asset-manifest"

	// currentEnvironment is the asset destination key for the environment the stack is deployed to.
	currentEnvironment = "current_account-current_region"
)

type (
	// Manifest is the table of contents of an assembly.
	Manifest struct {
		Version   string              `json:"version"`
		Artifacts map[string]Artifact `json:"artifacts"`
	}

	Artifact struct {
		Type         string         `json:"type"`
		Environment  string         `json:"environment,omitempty"`
		Properties   map[string]any `json:"properties,omitempty"`
		Dependencies []string       `json:"dependencies,omitempty"`
		DisplayName  string         `json:"displayName,omitempty"`
	}

	AssetManifest struct {
		Version string               `json:"version"`
		Files   map[string]FileAsset `json:"files"`
	}

	FileAsset struct {
		DisplayName  string                      `json:"displayName,omitempty"`
		Source       FileAssetSource             `json:"source"`
		Destinations map[string]AssetDestination `json:"destinations"`
	}

	FileAssetSource struct {
		Path      string `json:"path"`
		Packaging string `json:"packaging"`
	}

	AssetDestination struct {
		BucketName string `json:"bucketName"`
		ObjectKey  string `json:"objectKey"`
	}
)

func assetDir(a *stack.Asset) string {
	return "asset." + a.Hash
}

func assetsArtifactID(s *stack.Stack) string {
	return s.StackName() + ".assets"
}

// environment is the deployment target of s in aws://account/region form.
func environment(s *stack.Stack) string {
	account, ok := s.Account().Literal()
	if !ok {
		account = "unknown-account"
	}
	region, ok := s.Region().Literal()
	if !ok {
		region = "unknown-region"
	}
	return fmt.Sprintf("aws://%s/%s", account, region)
}

// placeholder renders the deploy-time parts of s as ${AWS::...} placeholders, which the
// deployment tooling substitutes.
func placeholder(s token.Str) (string, error) {
	if lit, ok := s.Literal(); ok {
		return lit, nil
	}
	v, err := token.Resolve(s)
	if err != nil {
		return "", err
	}
	return placeholderOf(v)
}

func placeholderOf(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case map[string]any:
		if ref, ok := v["Ref"].(string); ok && len(v) == 1 {
			return "${" + ref + "}", nil
		}
		if join, ok := v["Fn::Join"].([]any); ok && len(v) == 1 && len(join) == 2 {
			parts, _ := join[1].([]any)
			out := ""
			for i, p := range parts {
				s, err := placeholderOf(p)
				if err != nil {
					return "", err
				}
				if i > 0 {
					out += fmt.Sprint(join[0])
				}
				out += s
			}
			return out, nil
		}
	}
	return "", fmt.Errorf("cannot express %v as a placeholder", v)
}

func assetManifest(s *stack.Stack) (*AssetManifest, error) {
	bucket, err := placeholder(s.AssetBucketName())
	if err != nil {
		return nil, err
	}
	m := &AssetManifest{Version: manifestVersion, Files: make(map[string]FileAsset)}
	for _, a := range s.Assets() {
		m.Files[a.Hash] = FileAsset{
			DisplayName: a.DisplayName,
			Source:      FileAssetSource{Path: assetDir(a), Packaging: string(a.Packaging)},
			Destinations: map[string]AssetDestination{
				currentEnvironment: {BucketName: bucket, ObjectKey: a.ObjectKey()},
			},
		}
	}
	return m, nil
}

func stackArtifacts(s *stack.Stack, templateFile, assetsFile string) map[string]Artifact {
	deps := make([]string, 0, len(s.Dependencies())+1)
	for _, d := range s.Dependencies() {
		deps = append(deps, d.StackName())
	}
	slices.Sort(deps)
	artifacts := map[string]Artifact{
		s.StackName(): {
			Type:        artifactTypeStack,
			Environment: environment(s),
			Properties: map[string]any{
				"templateFile": templateFile,
			},
			Dependencies: deps,
			DisplayName:  s.Node().Path(),
		},
	}
	if assetsFile != "" {
		a := artifacts[s.StackName()]
		a.Dependencies = append([]string{assetsArtifactID(s)}, a.Dependencies...)
		artifacts[s.StackName()] = a
		artifacts[assetsArtifactID(s)] = Artifact{
			Type:       artifactTypeAssets,
			Properties: map[string]any{"file": assetsFile},
		}
	}
	return artifacts
}
