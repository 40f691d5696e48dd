// Package io writes synthesized output files to disk.
package io

import (
	"io"
	"io/fs"
	"path"
)

type (
	// File is an output file at a path relative to the output directory.
	File interface {
		Path() string
		WriteTo(io.Writer) (int64, error)
	}

	// RawFile is a file whose content is already in memory, such as a rendered template.
	RawFile struct {
		FPath   string
		Content []byte
	}

	// FSFile copies a file out of a file system (an embedded asset, for example) without
	// reading it until it is written.
	FSFile struct {
		FPath  string
		Source fs.FS
		Name   string
	}
)

func (r *RawFile) Path() string {
	return r.FPath
}

func (r *RawFile) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.Content)
	return int64(n), err
}

func (f *FSFile) Path() string {
	return f.FPath
}

func (f *FSFile) WriteTo(w io.Writer) (int64, error) {
	src, err := f.Source.Open(f.Name)
	if err != nil {
		return 0, err
	}
	defer src.Close()
	return io.Copy(w, src)
}

// FilesFrom lists every regular file of source as an [FSFile] under the directory prefix.
func FilesFrom(source fs.FS, prefix string) ([]File, error) {
	var files []File
	err := fs.WalkDir(source, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, &FSFile{FPath: path.Join(prefix, name), Source: source, Name: name})
		}
		return nil
	})
	return files, err
}
