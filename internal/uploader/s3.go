// Package uploader provides the asset package uploader implementations: an
// S3 uploader for real runs and a local-directory uploader for development.
package uploader

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/lowsky/happo.io/internal/errors"
	"github.com/lowsky/happo.io/internal/metrics"
)

// s3API is the slice of the S3 client the uploader needs.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader pushes asset packages to an S3 bucket, keyed by content hash.
type S3Uploader struct {
	client   s3API
	bucket   string
	prefix   string
	recorder metrics.Recorder
}

// NewS3Uploader loads the default AWS config for region and returns an
// uploader targeting bucket under prefix.
func NewS3Uploader(ctx context.Context, bucket, prefix, region string, recorder metrics.Recorder) (*S3Uploader, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}
	return newS3Uploader(s3.NewFromConfig(cfg), bucket, prefix, recorder), nil
}

func newS3Uploader(client s3API, bucket, prefix string, recorder metrics.Recorder) *S3Uploader {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &S3Uploader{client: client, bucket: bucket, prefix: prefix, recorder: recorder}
}

// Upload implements assets.Uploader. The object key is derived from the
// content hash, so re-uploading identical content is idempotent.
func (u *S3Uploader) Upload(ctx context.Context, buffer []byte, hash string) (string, error) {
	key := path.Join(u.prefix, hash+".zip")
	start := time.Now()

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buffer),
		ContentType: aws.String("application/zip"),
	})
	if err != nil {
		return "", errors.UploadError(err, fmt.Sprintf("failed to upload asset package to s3://%s/%s", u.bucket, key))
	}

	u.recorder.ObserveUploadDuration(time.Since(start))
	u.recorder.ObserveUploadBytes(len(buffer))

	return fmt.Sprintf("s3://%s/%s", u.bucket, key), nil
}
