package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Uploader retains a run's logfile in durable storage.
type Uploader interface {
	UploadLog(ctx context.Context, logFile string) error
}

// S3Config configures log retention in S3-compatible object storage.
type S3Config struct {
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string
	PathStyle bool
	Prefix    string
}

func (c *S3Config) validate() error {
	if strings.TrimSpace(c.Bucket) == "" {
		return fmt.Errorf("bucket is required")
	}
	if strings.TrimSpace(c.Region) == "" {
		return fmt.Errorf("region is required")
	}
	if strings.TrimSpace(c.AccessKey) == "" || strings.TrimSpace(c.SecretKey) == "" {
		return fmt.Errorf("credentials are required")
	}
	return nil
}

// S3Uploader copies run logfiles to an object-storage bucket.
type S3Uploader struct {
	client *s3.Client
	cfg    S3Config
}

func NewS3Uploader(cfg S3Config) (*S3Uploader, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid s3 config: %w", err)
	}

	opts := []func(*s3.Options){
		func(o *s3.Options) {
			o.Region = cfg.Region
			o.Credentials = credentials.NewStaticCredentialsProvider(
				cfg.AccessKey,
				cfg.SecretKey,
				"",
			)
		},
	}

	if cfg.Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.PathStyle
		})
	}

	return &S3Uploader{
		client: s3.New(s3.Options{}, opts...),
		cfg:    cfg,
	}, nil
}

func (u *S3Uploader) UploadLog(ctx context.Context, logFile string) error {
	data, err := os.ReadFile(logFile)
	if err != nil {
		return fmt.Errorf("failed to read logfile: %w", err)
	}

	key := path.Base(logFile)
	if u.cfg.Prefix != "" {
		key = path.Join(u.cfg.Prefix, key)
	}

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload logfile: %w", err)
	}

	return nil
}
