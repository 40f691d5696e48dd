package io

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/klothoplatform/constructs/pkg/closenicely"
	"go.uber.org/atomic"
)

type countingWriter struct {
	delegate io.Writer
	written  *atomic.Int64
}

func (w countingWriter) Write(p []byte) (int, error) {
	n, err := w.delegate.Write(p)
	w.written.Add(int64(n))
	return n, err
}

// OutputTo writes files below dest, replacing existing files, and returns the number of bytes
// written. Files are written concurrently; every failure is reported.
func OutputTo(files []File, dest string) (int64, error) {
	written := atomic.NewInt64(0)
	errs := make(chan error)
	for _, f := range files {
		go func(f File) {
			errs <- writeFile(f, dest, countingWriter{written: written})
		}(f)
	}

	var err error
	for range files {
		err = errors.Join(err, <-errs)
	}
	return written.Load(), err
}

func writeFile(f File, dest string, w countingWriter) error {
	path := filepath.Join(dest, filepath.FromSlash(f.Path()))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer closenicely.OrDebug(file)
	w.delegate = file
	_, err = f.WriteTo(w)
	return err
}
