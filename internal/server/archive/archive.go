// Package archive copies accepted mutations to object storage as an audit
// trail. The journal in the database stays authoritative; archiving is best
// effort.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vaxtrace/vaxsync/internal/server/models"
)

// Archiver stores one accepted event.
type Archiver interface {
	Archive(ctx context.Context, ev *models.Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Archive(context.Context, *models.Event) error { return nil }

// S3Config describes an S3 or S3-compatible (MinIO) bucket.
type S3Config struct {
	AccessKey    string
	SecretKey    string
	Bucket       string
	Region       string
	BaseEndpoint string
	Prefix       string
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
)

type S3Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3Archiver(ctx context.Context, c S3Config) (*S3Archiver, error) {
	if c.Bucket == "" {
		return nil, fmt.Errorf("archive: bucket is required")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(c.Region)}
	if c.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")))
	}
	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("archive: load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if c.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	prefix := strings.Trim(c.Prefix, "/")
	if prefix == "" {
		prefix = "events"
	}
	return &S3Archiver{client: client, bucket: c.Bucket, prefix: prefix}, nil
}

// Key is the object key of ev: <prefix>/<yyyy>/<mm>/<dd>/<collection>/<id>.json.
func (a *S3Archiver) Key(ev *models.Event) string {
	d := ev.ReceivedAt.UTC()
	return fmt.Sprintf("%s/%04d/%02d/%02d/%s/%s.json", a.prefix, d.Year(), d.Month(), d.Day(), ev.Collection, ev.ID)
}

func (a *S3Archiver) Archive(ctx context.Context, ev *models.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("archive: encode %s: %w", ev.ID, err)
	}
	key := a.Key(ev)
	_, err = putObject(a.client, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("archive: put %s: %w", key, err)
	}
	return nil
}
