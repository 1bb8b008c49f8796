package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Sink uploads finished renders to a bucket and returns the s3:// URL.
// The local file is kept; the upload is additive.
type S3Sink struct {
	client *s3.Client
	bucket string
	logger *slog.Logger
}

// NewS3Sink builds a sink for bucket in region using the default AWS
// credential chain.
func NewS3Sink(ctx context.Context, bucket, region string, logger *slog.Logger) (*S3Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &S3Sink{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		logger: logger,
	}, nil
}

// Publish uploads the file under videos/<basename> and returns its S3 URL.
func (s *S3Sink) Publish(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open render for upload: %w", err)
	}
	defer f.Close()

	key := "videos/" + filepath.Base(localPath)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("video/mp4"),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s to s3://%s/%s: %w", localPath, s.bucket, key, err)
	}

	url := fmt.Sprintf("s3://%s/%s", s.bucket, key)
	s.logger.Info("render uploaded", "url", url)
	return url, nil
}
