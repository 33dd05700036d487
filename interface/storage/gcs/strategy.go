// Package gcs reads the source rasters stored on Google Cloud Storage
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"syscall"

	"cloud.google.com/go/storage"
	coverstoreStorage "github.com/airbusgeo/coverstore/interface/storage"
	"github.com/airbusgeo/coverstore/internal/utils"
	"google.golang.org/api/googleapi"
)

// Scheme of the gcs uris
const Scheme = "gs://"

// Strategy implements storage.Strategy on a bucket
type Strategy struct {
	client *storage.Client
	// ctx of the osio streams, which do not take a context
	ctx context.Context
}

// NewGsStrategy creates a strategy reading Google Cloud Storage. ctx is used by StreamAt.
func NewGsStrategy(ctx context.Context) (*Strategy, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs.NewClient: %w", classify(err))
	}
	return &Strategy{client: client, ctx: ctx}, nil
}

// SplitURI returns the bucket and the object of gs://bucket/object (the scheme and the leading slashes are optional)
func SplitURI(uri string) (bucket, object string, err error) {
	path := strings.TrimLeft(strings.TrimPrefix(uri, Scheme), "/")
	bucket, object, found := strings.Cut(path, "/")
	if !found || bucket == "" || object == "" {
		return "", "", fmt.Errorf("%s: expecting gs://bucket/object", uri)
	}
	return bucket, object, nil
}

func (s *Strategy) object(uri string) (*storage.ObjectHandle, error) {
	bucket, object, err := SplitURI(uri)
	if err != nil {
		return nil, err
	}
	return s.client.Bucket(bucket).Object(object), nil
}

func notExist(err error) bool {
	return errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist)
}

// Open implements storage.Strategy
func (s *Strategy) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	obj, err := s.object(uri)
	if err != nil {
		return nil, err
	}
	r, err := obj.NewReader(ctx)
	switch {
	case err == nil:
		return r, nil
	case notExist(err):
		return nil, coverstoreStorage.ErrFileNotFound
	default:
		return nil, fmt.Errorf("open %s: %w", uri, classify(err))
	}
}

// Exist implements storage.Strategy
func (s *Strategy) Exist(ctx context.Context, uri string) (bool, error) {
	obj, err := s.object(uri)
	if err != nil {
		return false, err
	}
	_, err = obj.Attrs(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, storage.ErrObjectNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("attrs %s: %w", uri, classify(err))
	}
}

// StreamAt implements osio.KeyStreamerAt
func (s *Strategy) StreamAt(key string, off int64, n int64) (io.ReadCloser, int64, error) {
	obj, err := s.object(key)
	if err != nil {
		return nil, 0, err
	}
	r, err := obj.NewRangeReader(s.ctx, off, n)
	if err == nil {
		return r, r.Attrs.Size, nil
	}
	var apiErr *googleapi.Error
	switch {
	case off > 0 && errors.As(err, &apiErr) && apiErr.Code == 416:
		return nil, 0, io.EOF
	case notExist(err):
		return nil, -1, syscall.ENOENT
	}
	return nil, 0, fmt.Errorf("range %s [%d+%d]: %w", key, off, n, classify(err))
}

// the grpc and oauth2 layers lose the transient status of the network errors
var (
	transientTokenFailures = []string{
		"cannot assign requested address",
		"connection refused",
		"connection reset",
		"timeout",
		"broken pipe",
		"client connection force closed",
		"502 Bad Gateway",
	}
	transientEndings = []string{
		"http2: client connection lost",
		"http2: client connection force closed via ClientConn.Close",
		"EOF",
	}
)

// classify marks the transient failures of the client as temporary
func classify(err error) error {
	if err == nil || utils.Temporary(err) {
		return err
	}
	msg := err.Error()
	if strings.Contains(msg, "oauth2: cannot fetch token:") {
		for _, f := range transientTokenFailures {
			if strings.Contains(msg, f) {
				return utils.MakeTemporary(err)
			}
		}
	}
	for _, f := range transientEndings {
		if strings.HasSuffix(msg, f) {
			return utils.MakeTemporary(err)
		}
	}
	return err
}
