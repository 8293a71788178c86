package seqtable

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3BackendConfig configures the S3 storage backend.
type S3BackendConfig struct {
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"` // for S3-compatible services (MinIO, etc.)
	// AccessKeyID and SecretAccessKey authenticate explicitly. Prefer IAM
	// roles or the AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY environment
	// variables. DO NOT commit credentials to source control.
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Prefix          string `yaml:"prefix"`         // key prefix for all objects
	UsePathStyle    bool   `yaml:"use_path_style"` // path-style addressing

	// Retry configures transient-failure retries for GET/LIST calls.
	Retry RetryConfig `yaml:"-"`
}

// S3Backend implements StorageBackend on S3 or S3-compatible object storage.
// Range reads back bgzf virtual-offset seeking; transient request failures
// are retried per the configured policy and exhaustion surfaces as a fatal
// error for the file being scanned.
type S3Backend struct {
	client  *s3.Client
	config  S3BackendConfig
	retryer *Retryer
}

// NewS3Backend creates an S3 backend for the configured bucket.
func NewS3Backend(ctx context.Context, cfg S3BackendConfig) (*S3Backend, error) {
	if cfg.Bucket == "" {
		return nil, newConfigError("s3", "bucket is required", nil)
	}
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	retryCfg := cfg.Retry
	if retryCfg.RetryIf == nil {
		retryCfg.RetryIf = isTransientS3Error
	}
	return &S3Backend{
		client:  client,
		config:  cfg,
		retryer: NewRetryer(retryCfg),
	}, nil
}

// isTransientS3Error reports whether an S3 error is worth retrying. Missing
// keys are permanent.
func isTransientS3Error(err error) bool {
	var noKey *s3types.NoSuchKey
	if errors.As(err, &noKey) {
		return false
	}
	var noBucket *s3types.NoSuchBucket
	return !errors.As(err, &noBucket)
}

func (b *S3Backend) fullKey(key string) string {
	if b.config.Prefix == "" {
		return key
	}
	return strings.TrimSuffix(b.config.Prefix, "/") + "/" + key
}

func (b *S3Backend) getObject(ctx context.Context, key, byteRange string) (io.ReadCloser, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(b.config.Bucket),
		Key:    aws.String(b.fullKey(key)),
	}
	if byteRange != "" {
		input.Range = aws.String(byteRange)
	}
	var body io.ReadCloser
	err := b.retryer.Do(ctx, func() error {
		out, err := b.client.GetObject(ctx, input)
		if err != nil {
			return err
		}
		body = out.Body
		return nil
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("s3://%s/%s: %w", b.config.Bucket, key, ErrMissingLocation)
		}
		return nil, fmt.Errorf("s3 get %s: %w", key, err)
	}
	return body, nil
}

func (b *S3Backend) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return b.getObject(ctx, key, "")
}

func (b *S3Backend) OpenRange(ctx context.Context, key string, offset, length int64) (io.ReadCloser, error) {
	byteRange := fmt.Sprintf("bytes=%d-", offset)
	if length >= 0 {
		byteRange = fmt.Sprintf("bytes=%d-%d", offset, offset+length-1)
	}
	return b.getObject(ctx, key, byteRange)
}

func (b *S3Backend) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	var size int64
	err := b.retryer.Do(ctx, func() error {
		out, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(b.config.Bucket),
			Key:    aws.String(b.fullKey(key)),
		})
		if err != nil {
			return err
		}
		size = aws.ToInt64(out.ContentLength)
		return nil
	})
	if err != nil {
		var notFound *s3types.NotFound
		if errors.As(err, &notFound) {
			return ObjectInfo{}, fmt.Errorf("s3://%s/%s: %w", b.config.Bucket, key, ErrMissingLocation)
		}
		return ObjectInfo{}, fmt.Errorf("s3 head %s: %w", key, err)
	}
	return ObjectInfo{Key: key, Size: size}, nil
}

func (b *S3Backend) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.config.Bucket),
		Prefix: aws.String(b.fullKey(prefix)),
	})
	trim := ""
	if b.config.Prefix != "" {
		trim = strings.TrimSuffix(b.config.Prefix, "/") + "/"
	}
	for paginator.HasMorePages() {
		var page *s3.ListObjectsV2Output
		err := b.retryer.Do(ctx, func() error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("s3 list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			out = append(out, ObjectInfo{
				Key:  strings.TrimPrefix(aws.ToString(obj.Key), trim),
				Size: aws.ToInt64(obj.Size),
			})
		}
	}
	return out, nil
}

func (b *S3Backend) Write(ctx context.Context, key string, data []byte) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.config.Bucket),
		Key:    aws.String(b.fullKey(key)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", key, err)
	}
	return nil
}

func (b *S3Backend) Close() error { return nil }
