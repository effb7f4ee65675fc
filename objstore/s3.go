// Package objstore issues presigned URLs for task attachments kept in an
// S3-compatible bucket. The API never proxies attachment bytes.
package objstore

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/padraicbc/todoapi/config"
)

// Presigner signs object URLs on behalf of a client.
type Presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Store hands out presigned URLs for one bucket.
type Store struct {
	presigner Presigner
	bucket    string
	ttl       time.Duration
}

// New returns a Store using presigner for bucket.
func New(presigner Presigner, bucket string, ttl time.Duration) *Store {
	return &Store{presigner: presigner, bucket: bucket, ttl: ttl}
}

// NewFromConfig builds an S3 presign client from the attachment settings.
// Static credentials are used when set, otherwise the default AWS chain.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return New(s3.NewPresignClient(client), cfg.S3Bucket, cfg.S3PresignTTL), nil
}

// NewKey returns a fresh object key for an attachment of taskID.
func NewKey(taskID int64) string {
	return fmt.Sprintf("tasks/%d/%s", taskID, uuid.NewString())
}

// DownloadURL returns a presigned GET URL for key.
func (s *Store) DownloadURL(ctx context.Context, key string) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", key, err)
	}
	return req.URL, nil
}

// UploadURL returns a presigned PUT URL for key.
func (s *Store) UploadURL(ctx context.Context, key string) (string, error) {
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("presign put %s: %w", key, err)
	}
	return req.URL, nil
}
