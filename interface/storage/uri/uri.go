// Package uri selects the storage strategy of a uri
package uri

import (
	"context"
	"fmt"
	"strings"

	"github.com/airbusgeo/coverstore/interface/storage"
	"github.com/airbusgeo/coverstore/interface/storage/filesystem"
	"github.com/airbusgeo/coverstore/interface/storage/gcs"
)

// Protocol returns the scheme of the uri ("" for a local path)
func Protocol(uri string) string {
	if i := strings.Index(uri, "://"); i > 0 {
		return strings.ToLower(uri[:i])
	}
	return ""
}

// NewStorageStrategy returns the strategy able to read the uri
func NewStorageStrategy(ctx context.Context, uri string) (storage.Strategy, error) {
	switch Protocol(uri) {
	case "gs":
		s, err := gcs.NewGsStrategy(ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "file", "":
		return filesystem.NewFileSystemStrategy(ctx)
	default:
		return nil, fmt.Errorf("no storage strategy for %s", uri)
	}
}
