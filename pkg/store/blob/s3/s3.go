// Package s3 implements the blob store on Amazon S3 or S3-compatible
// storage (MinIO, Localstack, Cubbit DS3).
package s3

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3BlobStore implements blob.Store against a single S3 bucket.
//
// Object keys are used as-is (with an optional configured prefix), so the
// bucket layout mirrors the derived blob keys: "parentId/entityId". That
// keeps bucket contents inspectable and makes the folder-children prefix
// scan a plain ListObjectsV2 call.
//
// Thread safety: the underlying SDK client is safe for concurrent use and
// this type holds no mutable state.
type S3BlobStore struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
	pageSize  int32
}

// S3BlobStoreConfig contains configuration for the S3 blob store.
type S3BlobStoreConfig struct {
	// Client is the configured S3 client.
	Client *s3.Client

	// Bucket is the bucket name. It must already exist.
	Bucket string

	// KeyPrefix is an optional prefix prepended to every object key.
	KeyPrefix string

	// PageSize is the maximum number of keys returned per listing page.
	// Defaults to 1000 (the S3 maximum) when zero.
	PageSize int32
}

// NewS3BlobStore creates an S3-backed blob store and verifies bucket access
// with a HeadBucket call. The bucket is not created here; provisioning is a
// deployment concern.
func NewS3BlobStore(ctx context.Context, cfg S3BlobStoreConfig) (*S3BlobStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 1000
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return &S3BlobStore{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
		pageSize:  pageSize,
	}, nil
}

// objectKey returns the full S3 key for a blob key.
func (s *S3BlobStore) objectKey(key string) string {
	return s.keyPrefix + key
}

// blobKey strips the configured prefix from a full S3 key.
func (s *S3BlobStore) blobKey(objectKey string) string {
	return objectKey[len(s.keyPrefix):]
}
