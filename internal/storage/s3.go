// Package storage uploads product images to S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

type Config struct {
	Bucket    string
	Region    string
	Endpoint  string // empty for AWS; set for MinIO / R2
	AccessKey string
	SecretKey string
	// PublicHost prefixes object keys in returned URLs. Defaults to the bucket URL.
	PublicHost string
}

type putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader writes objects into a single bucket and returns their public URL.
type S3Uploader struct {
	client  putter
	bucket  string
	baseURL string
	logger  *zap.Logger
}

func NewS3(ctx context.Context, cfg Config, logger *zap.Logger) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage: S3_BUCKET is not configured")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	opts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}
	return newUploader(s3.NewFromConfig(awsCfg, clientOpts...), cfg, logger), nil
}

func newUploader(client putter, cfg Config, logger *zap.Logger) *S3Uploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	base := strings.TrimRight(cfg.PublicHost, "/")
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	return &S3Uploader{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: base,
		logger:  logger.Named("s3"),
	}
}

// Upload stores body under key. Bodies without a known size are buffered so the SDK can sign them.
func (u *S3Uploader) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	if size <= 0 {
		data, err := io.ReadAll(body)
		if err != nil {
			return "", fmt.Errorf("storage: read %s: %w", key, err)
		}
		body = bytes.NewReader(data)
		size = int64(len(data))
	}
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		u.logger.Error("put object failed", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("storage: put %s: %w", key, err)
	}
	return u.URL(key), nil
}

func (u *S3Uploader) URL(key string) string {
	return u.baseURL + "/" + strings.TrimLeft(key, "/")
}
