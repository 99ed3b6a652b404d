package archive

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaxtrace/vaxsync/internal/server/models"
)

func withSeams(t *testing.T) {
	t.Helper()
	origLoad, origNew, origPut := loadDefaultAWSConfig, newS3ClientFromConfig, putObject
	t.Cleanup(func() {
		loadDefaultAWSConfig, newS3ClientFromConfig, putObject = origLoad, origNew, origPut
	})
}

func sampleEvent() *models.Event {
	return &models.Event{
		ID:         "sync_1",
		Collection: models.CollectionVaccinations,
		Action:     models.ActionCreate,
		RecordID:   "vax_1",
		Payload:    []byte(`{"id":"vax_1"}`),
		ReceivedAt: time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewS3Archiver_RequiresBucket(t *testing.T) {
	_, err := NewS3Archiver(context.Background(), S3Config{})
	assert.Error(t, err)
}

func TestNewS3Archiver_ConfigError(t *testing.T) {
	withSeams(t)
	loadDefaultAWSConfig = func(context.Context, ...func(*config.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}

	_, err := NewS3Archiver(context.Background(), S3Config{Bucket: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no config")
}

func TestS3Archiver_Archive(t *testing.T) {
	withSeams(t)

	var got *s3.PutObjectInput
	var body []byte
	putObject = func(_ *s3.Client, _ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		got = in
		body, _ = io.ReadAll(in.Body)
		return &s3.PutObjectOutput{}, nil
	}

	a, err := NewS3Archiver(context.Background(), S3Config{
		AccessKey: "k", SecretKey: "s", Bucket: "audit", Region: "us-east-1",
		BaseEndpoint: "http://127.0.0.1:9000", Prefix: "/vaxsync/",
	})
	require.NoError(t, err)

	require.NoError(t, a.Archive(context.Background(), sampleEvent()))
	require.NotNil(t, got)
	assert.Equal(t, "audit", aws.ToString(got.Bucket))
	assert.Equal(t, "vaxsync/2026/03/07/vaccination-records/sync_1.json", aws.ToString(got.Key))
	assert.JSONEq(t, `{
		"id":"sync_1","collection":"vaccination-records","action":"create",
		"recordId":"vax_1","data":{"id":"vax_1"},"receivedAt":"2026-03-07T12:00:00Z"
	}`, string(body))
}

func TestS3Archiver_PutError(t *testing.T) {
	withSeams(t)
	putObject = func(*s3.Client, context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return nil, errors.New("bucket gone")
	}

	a, err := NewS3Archiver(context.Background(), S3Config{Bucket: "audit", Region: "us-east-1"})
	require.NoError(t, err)

	err = a.Archive(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket gone")
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.Archive(context.Background(), sampleEvent()))
}
