// Package s3util reads uploaded images from S3 for the upload trigger.
package s3util

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/fpang/asset-labeler/internal/pipeline"
)

// API is the subset of *s3.Client used by Reader.
type API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Reader implements pipeline.ObjectSource over S3.
type Reader struct {
	client API
}

var _ pipeline.ObjectSource = (*Reader)(nil)

// NewReader wraps an S3 client.
func NewReader(client API) *Reader {
	return &Reader{client: client}
}

// Size returns the object's size in bytes.
func (r *Reader) Size(ctx context.Context, bucket, key string) (int64, error) {
	out, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		return 0, fmt.Errorf("S3 HeadObject s3://%s/%s: %w", bucket, key, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

// Download reads the object into memory. Objects larger than maxBytes fail
// with pipeline.ErrTooLarge without reading past the limit.
func (r *Reader) Download(ctx context.Context, bucket, key string, maxBytes int64) ([]byte, error) {
	log.Debug().Str("bucket", bucket).Str("key", key).Msg("Downloading from S3")
	start := time.Now()

	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		return nil, fmt.Errorf("S3 GetObject s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	if n := aws.ToInt64(out.ContentLength); n > maxBytes {
		return nil, fmt.Errorf("s3://%s/%s is %d bytes: %w", bucket, key, n, pipeline.ErrTooLarge)
	}
	data, err := io.ReadAll(io.LimitReader(out.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", bucket, key, err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("s3://%s/%s exceeds %d bytes: %w", bucket, key, maxBytes, pipeline.ErrTooLarge)
	}

	log.Debug().Str("bucket", bucket).Str("key", key).Int("bytes", len(data)).Dur("duration", time.Since(start)).Msg("S3 object downloaded")
	return data, nil
}
