package stack

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"

	"github.com/klothoplatform/constructs/pkg/token"
)

type Packaging string

const (
	PackagingZip  Packaging = "zip"
	PackagingFile Packaging = "file"
)

// Asset is a local directory that is uploaded to the staging bucket before deployment.
type Asset struct {
	Hash        string
	Source      fs.FS
	Packaging   Packaging
	DisplayName string
}

// NewFileAsset fingerprints every regular file in source. The hash covers file paths and contents
// so that renaming a file changes the asset.
func NewFileAsset(source fs.FS, displayName string) (*Asset, error) {
	h := sha256.New()
	err := fs.WalkDir(source, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		f, err := source.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		fmt.Fprintf(h, "%s\x00", path)
		_, err = io.Copy(h, f)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("could not fingerprint asset %s: %w", displayName, err)
	}
	return &Asset{
		Hash:        hex.EncodeToString(h.Sum(nil)),
		Source:      source,
		Packaging:   PackagingZip,
		DisplayName: displayName,
	}, nil
}

// AssetBucketName is the bootstrap staging bucket of the deployment environment.
func (s *Stack) AssetBucketName() token.Str {
	return token.Concat(token.String("cdk-hnb659fds-assets-"), s.Account(), token.String("-"), s.Region())
}

func (a *Asset) ObjectKey() string {
	if a.Packaging == PackagingZip {
		return a.Hash + ".zip"
	}
	return a.Hash
}
