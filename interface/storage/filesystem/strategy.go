package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/airbusgeo/coverstore/interface/storage"
)

type fileSystemStrategy struct {
}

func NewFileSystemStrategy(ctx context.Context) (storage.Strategy, error) {
	return fileSystemStrategy{}, nil
}

func formatError(err error) error {
	var epath *os.PathError
	if errors.As(err, &epath) && os.IsNotExist(epath) {
		return storage.ErrFileNotFound
	}
	return err
}

func path(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}

func (s fileSystemStrategy) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	f, err := os.Open(path(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", formatError(err))
	}
	return f, nil
}

func (s fileSystemStrategy) Exist(ctx context.Context, uri string) (bool, error) {
	if _, err := os.Stat(path(uri)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

type sectionReader struct {
	io.Reader
	f *os.File
}

func (r sectionReader) Close() error {
	return r.f.Close()
}

func (s fileSystemStrategy) StreamAt(key string, off int64, n int64) (io.ReadCloser, int64, error) {
	f, err := os.Open(path(key))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open file: %w", formatError(err))
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	if off >= fi.Size() {
		f.Close()
		return nil, fi.Size(), io.EOF
	}
	return sectionReader{Reader: io.NewSectionReader(f, off, n), f: f}, fi.Size(), nil
}
