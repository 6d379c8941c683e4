// Package s3 provides an app.BlobStore implementation backed by an S3
// compatible object store (MinIO, AWS S3) via the minio-go SDK. Derived blob
// paths become object keys inside a single bucket.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/zyncapp/zyncd/internal/app"
)

var _ app.BlobStore = (*BlobStore)(nil)

// Config carries the connection settings for the object store.
type Config struct {
	Endpoint  string // host:port, no scheme
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// BlobStore implements app.BlobStore on an S3-compatible bucket.
type BlobStore struct {
	client *minio.Client
	bucket string
}

// New constructs a BlobStore and ensures the configured bucket exists.
func New(ctx context.Context, cfg Config) (*BlobStore, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("s3: credentials are required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}
	b := &BlobStore{client: client, bucket: cfg.Bucket}
	if err := b.ensureBucket(ctx, cfg.Region); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *BlobStore) ensureBucket(ctx context.Context, region string) error {
	exists, err := b.client.BucketExists(ctx, b.bucket)
	if err != nil {
		return fmt.Errorf("s3: check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := b.client.MakeBucket(ctx, b.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("s3: create bucket: %w", err)
	}
	return nil
}

// key maps a derived blob path onto an object key (no leading slash).
func key(path string) string { return strings.TrimPrefix(path, "/") }

// Put stores data at the object key for path.
func (b *BlobStore) Put(ctx context.Context, path string, data []byte) error {
	_, err := b.client.PutObject(ctx, b.bucket, key(path), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	return err
}

// Get fetches the object bytes for path.
func (b *BlobStore) Get(ctx context.Context, path string) ([]byte, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, key(path), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Delete removes the object for path. Removing an absent object is not an
// error in S3 semantics, which suits best-effort eviction cleanup.
func (b *BlobStore) Delete(ctx context.Context, path string) error {
	return b.client.RemoveObject(ctx, b.bucket, key(path), minio.RemoveObjectOptions{})
}

// List returns the derived paths of all clipboard blobs in the bucket.
// Objects written less than a second ago are skipped so in-flight uploads
// are not reported as orphans.
func (b *BlobStore) List(ctx context.Context) ([]string, error) {
	var paths []string
	ch := b.client.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{
		Prefix:    "data/clipboards/",
		Recursive: true,
	})
	for obj := range ch {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if time.Since(obj.LastModified) < time.Second {
			continue
		}
		paths = append(paths, "/"+obj.Key)
	}
	return paths, nil
}
