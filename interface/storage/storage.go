// Package storage reads the source rasters (and the files recorded with the sections) on the local filesystem or on an object storage
package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

var (
	ErrFileNotFound = errors.New("file not found")
)

// Strategy reads the objects of a storage
type Strategy interface {
	// Open the object for reading
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
	// Exist checks if the object exists
	Exist(ctx context.Context, uri string) (bool, error)
	// StreamAt returns a reader of n bytes at offset off and the size of the object (osio KeyStreamerAt)
	StreamAt(key string, off int64, n int64) (io.ReadCloser, int64, error)
}

// MD5 returns the hex-encoded md5 checksum of the object
func MD5(ctx context.Context, s Strategy, uri string) (string, error) {
	r, err := s.Open(ctx, uri)
	if err != nil {
		return "", err
	}
	defer r.Close()
	h := md5.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("md5 %s: %w", uri, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
