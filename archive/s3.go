package archive

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const defaultUploadTimeout = 2 * time.Minute

// S3Config locates the bucket uploads are archived to.
type S3Config struct {
	Bucket string
	Region string

	// AccessKey and SecretKey are used when both are set. Otherwise the
	// default AWS credential chain applies.
	AccessKey string
	SecretKey string

	// Endpoint overrides the S3 endpoint for S3-compatible stores and
	// selects path-style addressing.
	Endpoint string
}

// S3Archiver uploads sources to an S3 bucket.
type S3Archiver struct {
	uploader *manager.Uploader
	bucket   string
	region   string
	endpoint string
	timeout  time.Duration
	logger   *slog.Logger
}

var _ Archiver = (*S3Archiver)(nil)

// NewS3Archiver loads AWS configuration and prepares an uploader. No request
// is sent until Store is called.
func NewS3Archiver(ctx context.Context, cfg S3Config) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: bucket name not set", ErrNotConfigured)
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("%w: region not set", ErrNotConfigured)
	}
	if (cfg.AccessKey == "") != (cfg.SecretKey == "") {
		return nil, fmt.Errorf("%w: access key and secret key must be set together", ErrNotConfigured)
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Archiver{
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
		region:   cfg.Region,
		endpoint: endpoint,
		timeout:  defaultUploadTimeout,
		logger:   slog.Default().With("component", "s3-archiver", "bucket", cfg.Bucket),
	}, nil
}

// Store uploads data and returns the object URL.
func (a *S3Archiver) Store(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		a.logger.Error("upload failed", "key", key, "err", err)
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}

	a.logger.Debug("upload archived", "key", key, "bytes", len(data))
	return a.objectURL(key), nil
}

func (a *S3Archiver) objectURL(key string) string {
	if a.endpoint != "" {
		return a.endpoint + "/" + a.bucket + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", a.bucket, a.region, key)
}
