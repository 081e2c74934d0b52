// Package blob writes finished output files to their destination in one
// step. A Put either publishes the whole object or nothing.
package blob

import (
	"context"
	"fmt"
	"strings"

	"github.com/banshee-data/lidar-classify/internal/fsutil"
)

// Store publishes complete objects.
type Store interface {
	// Put publishes data under key, replacing any existing object.
	Put(ctx context.Context, key string, data []byte) error
	// Location describes where key is published, for logs.
	Location(key string) string
}

const s3Scheme = "s3://"

// Open selects a store for location: s3://bucket/prefix goes to S3,
// anything else is a filesystem directory.
func Open(ctx context.Context, location string, s3opts S3Options, fsys fsutil.FileSystem) (Store, error) {
	if strings.HasPrefix(location, s3Scheme) {
		bucket, prefix, err := ParseS3Location(location)
		if err != nil {
			return nil, err
		}
		s3opts.Bucket = bucket
		s3opts.Prefix = prefix
		return NewS3Store(ctx, s3opts)
	}
	return NewFSStore(fsys, location)
}

// ParseS3Location splits s3://bucket/prefix.
func ParseS3Location(location string) (bucket, prefix string, err error) {
	rest, ok := strings.CutPrefix(location, s3Scheme)
	if !ok {
		return "", "", fmt.Errorf("blob: %q is not an s3:// location", location)
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("blob: %q names no bucket", location)
	}
	return bucket, strings.Trim(prefix, "/"), nil
}
