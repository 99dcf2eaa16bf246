package objectstore

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Option configures S3Uploader.
type S3Option func(*S3Config)

// S3Config holds bucket and credential settings. Empty keys fall back to the default AWS chain.
type S3Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
}

// WithBucket sets the target bucket and key prefix.
func WithBucket(bucket, prefix string) S3Option {
	return func(c *S3Config) {
		c.Bucket = bucket
		c.Prefix = prefix
	}
}

// WithRegion sets the AWS region.
func WithRegion(region string) S3Option {
	return func(c *S3Config) {
		c.Region = region
	}
}

// WithEndpoint points the client at an S3-compatible endpoint (MinIO and the like).
func WithEndpoint(endpoint string, pathStyle bool) S3Option {
	return func(c *S3Config) {
		c.Endpoint = endpoint
		c.PathStyle = pathStyle
	}
}

// WithStaticCredentials sets access keys.
func WithStaticCredentials(id, secret string) S3Option {
	return func(c *S3Config) {
		c.AccessKeyID = id
		c.SecretAccessKey = secret
	}
}

// S3Uploader puts local files into a bucket.
type S3Uploader struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Uploader loads AWS configuration and builds the client.
func NewS3Uploader(ctx context.Context, opts ...S3Option) (*S3Uploader, error) {
	cfg := &S3Config{Region: "ap-south-1"}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})
	return &S3Uploader{client: client, bucket: cfg.Bucket, prefix: strings.Trim(cfg.Prefix, "/")}, nil
}

// Key joins the configured prefix with name.
func (u *S3Uploader) Key(name string) string {
	if u.prefix == "" {
		return name
	}
	return path.Join(u.prefix, name)
}

// UploadFile streams the file at localPath to key and returns its s3:// URI.
func (u *S3Uploader) UploadFile(ctx context.Context, localPath, key string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", localPath, err)
	}
	fullKey := u.Key(key)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(fullKey),
		Body:          f,
		ContentLength: aws.Int64(st.Size()),
		ContentType:   aws.String("application/vnd.apache.parquet"),
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", u.bucket, fullKey, err)
	}
	return fmt.Sprintf("s3://%s/%s", u.bucket, fullKey), nil
}
