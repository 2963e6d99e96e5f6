package s3

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/marmos91/s3dav/pkg/store/blob"
)

// ListPage returns one page of objects under prefix.
//
// The continuation token is S3's own ListObjectsV2 token passed through
// opaquely, so a listing can be resumed across calls and across processes.
func (s *S3BlobStore) ListPage(ctx context.Context, prefix, token string, limit int32) ([]blob.Object, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	if limit <= 0 {
		limit = s.pageSize
	}

	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(s.objectKey(prefix)),
		MaxKeys: aws.Int32(limit),
	}
	if token != "" {
		input.ContinuationToken = aws.String(token)
	}

	result, err := s.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list objects with prefix %q: %w", prefix, err)
	}

	objects := make([]blob.Object, 0, len(result.Contents))
	for _, item := range result.Contents {
		if item.Key == nil {
			continue
		}
		var size int64
		if item.Size != nil {
			size = *item.Size
		}
		objects = append(objects, blob.Object{
			Key:  s.blobKey(*item.Key),
			Size: size,
		})
	}

	var next string
	if result.IsTruncated != nil && *result.IsTruncated && result.NextContinuationToken != nil {
		next = *result.NextContinuationToken
	}

	return objects, next, nil
}
