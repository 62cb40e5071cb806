/*
Package storage exports registry snapshots to S3-compatible object storage.
*/
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"
)

// ServiceConfig holds the settings needed to reach the bucket.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string

	// KeyPrefix is prepended to every object key, e.g. "relay/".
	KeyPrefix string
}

// objectStore is the subset of the S3 client used by the sink.
type objectStore interface {
	HeadBucket(ctx context.Context, bucket string) error
	Upload(ctx context.Context, bucket, key, contentType string, body io.Reader) error
}

// SnapshotSink writes each snapshot as <prefix><name>.json.
type SnapshotSink struct {
	bucket string
	prefix string
	store  objectStore
}

// NewSnapshotSink builds a sink backed by an S3 client created from cfg and checks
// that the bucket is reachable.
func NewSnapshotSink(ctx context.Context, cfg ServiceConfig) (*SnapshotSink, error) {
	client, err := newS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return newSnapshotSink(ctx, cfg, client)
}

func newSnapshotSink(ctx context.Context, cfg ServiceConfig, store objectStore) (*SnapshotSink, error) {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := store.HeadBucket(checkCtx, cfg.S3BucketName); err != nil {
		return nil, fmt.Errorf("s3 sink: bucket %s: %w", cfg.S3BucketName, err)
	}

	return &SnapshotSink{
		bucket: cfg.S3BucketName,
		prefix: cfg.KeyPrefix,
		store:  store,
	}, nil
}

// Key returns the object key used for the named snapshot.
func (s *SnapshotSink) Key(name string) string {
	return s.prefix + name + ".json"
}

// Put uploads the snapshot, replacing the previous object.
func (s *SnapshotSink) Put(ctx context.Context, name string, body []byte) error {
	return s.store.Upload(ctx, s.bucket, s.Key(name), "application/json", bytes.NewReader(body))
}

// Close implements persist.Sink; the S3 client holds no resources to release.
func (s *SnapshotSink) Close() error { return nil }
