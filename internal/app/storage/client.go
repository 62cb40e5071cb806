package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"roomrelay/internal/pkg/logx"
)

// s3Client uploads objects to an S3-compatible endpoint.
type s3Client struct {
	client   *s3.Client
	uploader *manager.Uploader
}

// newS3Client builds a path-style client with static credentials, which works for
// AWS as well as MinIO/R2 style endpoints.
func newS3Client(ctx context.Context, cfg ServiceConfig) (*s3Client, error) {
	sdkCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID,
			cfg.S3SecretAccessKey,
			"",
		)),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}

	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		o.UsePathStyle = true
	})

	return &s3Client{
		client:   client,
		uploader: manager.NewUploader(client),
	}, nil
}

// HeadBucket checks that bucket exists and the credentials can reach it.
func (c *s3Client) HeadBucket(ctx context.Context, bucket string) error {
	if _, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return err
	}
	return nil
}

// Upload stores body under key.
func (c *s3Client) Upload(ctx context.Context, bucket, key, contentType string, body io.Reader) error {
	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Body:        body,
	})
	if err != nil {
		logx.Error(err, "S3 snapshot upload failed", "bucket", bucket, "key", key)
		return fmt.Errorf("s3 sink: upload %s: %w", key, err)
	}

	return nil
}
