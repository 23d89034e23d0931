package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"storefront-service/internal/util"
)

// S3API is the subset of the S3 client used by S3Bucket
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Bucket stores objects in an S3 compatible bucket
type S3Bucket struct {
	client    S3API
	bucket    string
	publicURL string
	logger    *zap.Logger
}

// NewS3Client loads AWS credentials from the environment. A non-empty endpoint
// switches to path-style addressing for S3 compatible stores.
func NewS3Client(ctx context.Context, region, endpoint string) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func NewS3Bucket(client S3API, bucket, publicURL string) *S3Bucket {
	return &S3Bucket{
		client:    client,
		bucket:    bucket,
		publicURL: publicURL,
		logger:    util.GetLogger(),
	}
}

func (b *S3Bucket) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(b.bucket),
		Key:          aws.String(key),
		Body:         body,
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("max-age=3600"),
	})
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}

	b.logger.Debug("Object uploaded", zap.String("bucket", b.bucket), zap.String("key", key))
	return nil
}

func (b *S3Bucket) PublicURL(key string) string {
	return b.publicURL + "/" + key
}

func (b *S3Bucket) PathFromURL(url string) (string, error) {
	return pathFromURL(b.publicURL, url)
}

func (b *S3Bucket) Remove(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}

	_, err = b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}
