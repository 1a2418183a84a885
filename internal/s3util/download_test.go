package s3util

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/fpang/asset-labeler/internal/pipeline"
)

type fakeS3 struct {
	body   string
	length *int64
	err    error
	bucket string
	key    string
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.bucket, f.key = *in.Bucket, *in.Key
	if f.err != nil {
		return nil, f.err
	}
	return &s3.HeadObjectOutput{ContentLength: f.length}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket, f.key = *in.Bucket, *in.Key
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body)), ContentLength: f.length}, nil
}

func TestReader_Size(t *testing.T) {
	fake := &fakeS3{length: aws.Int64(4096)}
	size, err := NewReader(fake).Size(context.Background(), "art-uploads", "cat.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if size != 4096 {
		t.Errorf("expected 4096, got %d", size)
	}
	if fake.bucket != "art-uploads" || fake.key != "cat.png" {
		t.Errorf("unexpected request %s/%s", fake.bucket, fake.key)
	}
}

func TestReader_Download(t *testing.T) {
	data, err := NewReader(&fakeS3{body: "png-bytes"}).Download(context.Background(), "b", "k", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("unexpected body %q", data)
	}
}

func TestReader_DownloadTooLarge(t *testing.T) {
	r := NewReader(&fakeS3{body: strings.Repeat("x", 50)})
	if _, err := r.Download(context.Background(), "b", "k", 10); !errors.Is(err, pipeline.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge from body, got %v", err)
	}

	r = NewReader(&fakeS3{body: "x", length: aws.Int64(500)})
	if _, err := r.Download(context.Background(), "b", "k", 10); !errors.Is(err, pipeline.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge from content length, got %v", err)
	}
}

func TestReader_Error(t *testing.T) {
	boom := errors.New("access denied")
	if _, err := NewReader(&fakeS3{err: boom}).Download(context.Background(), "b", "k", 10); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
