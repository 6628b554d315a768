package storage

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
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/profiledoc/profiledoc/internal/common"
	sc "github.com/profiledoc/profiledoc/internal/server/config"
)

const pdfContentType = "application/pdf"

var loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

// s3API is the subset of *s3.Client used by S3Store, extracted so tests can
// substitute a fake.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store is an ObjectStore backed by AWS S3 (or an S3-compatible endpoint
// such as localstack or minio).
type S3Store struct {
	client       s3API
	bucket       string
	baseEndpoint string
}

// NewS3Store builds the S3 client from config and returns a store bound to
// cfg.S3Bucket.
func NewS3Store(ctx context.Context, cfg *sc.Config) (*S3Store, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKeyID,
			cfg.AWSSecretAccessKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.AWSBaseEndpoint)
		o.UsePathStyle = true
	})

	return &S3Store{
		client:       client,
		bucket:       cfg.S3Bucket,
		baseEndpoint: strings.TrimRight(cfg.AWSBaseEndpoint, "/"),
	}, nil
}

func (s *S3Store) Upload(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(pdfContentType),
	})
	if err != nil {
		return fmt.Errorf("%w: upload %s: %v", common.ErrObjectStoreUnavailable, key, err)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: get %s: %v", common.ErrObjectStoreUnavailable, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", common.ErrObjectStoreUnavailable, key, err)
	}
	return data, nil
}

// URL builds the deterministic endpoint/bucket/key link returned to clients
// for async retrieval.
func (s *S3Store) URL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.baseEndpoint, s.bucket, key)
}
