package labels

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/rs/zerolog/log"
)

// DetectLabelsAPI is the subset of the Rekognition client used here.
type DetectLabelsAPI interface {
	DetectLabels(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error)
}

// RekognitionDetector labels images with AWS Rekognition.
type RekognitionDetector struct {
	client DetectLabelsAPI
	cfg    Config
}

// NewRekognitionDetector wraps a Rekognition client.
func NewRekognitionDetector(client DetectLabelsAPI, cfg Config) *RekognitionDetector {
	return &RekognitionDetector{client: client, cfg: cfg.withDefaults()}
}

// DetectLabels labels image bytes. Rekognition accepts JPEG and PNG only.
func (d *RekognitionDetector) DetectLabels(ctx context.Context, image []byte) (Result, error) {
	return d.detect(ctx, &types.Image{Bytes: image}, "bytes")
}

// DetectS3Object labels an object in S3 in place.
func (d *RekognitionDetector) DetectS3Object(ctx context.Context, bucket, key string) (Result, error) {
	img := &types.Image{S3Object: &types.S3Object{
		Bucket: aws.String(bucket),
		Name:   aws.String(key),
	}}
	return d.detect(ctx, img, "s3://"+bucket+"/"+key)
}

func (d *RekognitionDetector) detect(ctx context.Context, img *types.Image, source string) (Result, error) {
	start := time.Now()
	out, err := d.client.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image:         img,
		MaxLabels:     aws.Int32(int32(d.cfg.MaxLabels)),
		MinConfidence: aws.Float32(float32(d.cfg.MinConfidence)),
	})
	if err != nil {
		return nil, fmt.Errorf("rekognition detect labels: %w", err)
	}

	result := make(Result, 0, len(out.Labels))
	for _, l := range out.Labels {
		if l.Name == nil {
			continue
		}
		var conf float64
		if l.Confidence != nil {
			conf = float64(*l.Confidence)
		}
		result = append(result, Label{Name: *l.Name, Confidence: conf})
	}
	result = normalize(result, d.cfg)

	log.Debug().
		Str("source", source).
		Int("labels", len(result)).
		Dur("duration", time.Since(start)).
		Msg("Rekognition labels detected")
	return result, nil
}
