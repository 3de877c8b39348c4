package blobs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/securechat/securechat/internal/common"
)

// expireAtMetadataKey stores the unix expiry second on the object. S3 has
// no per-object TTL, so Get enforces it and treats a stale object as gone;
// a bucket lifecycle rule can reclaim the bytes later.
const expireAtMetadataKey = "securechat-expire-at"

// test seams so repository tests can stub the AWS SDK
var (
	loadDefaultAWSConfig  = awsconfig.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3Repository stores blobs in an S3-compatible bucket (MinIO in the
// development setup).
type S3Repository struct {
	client *s3.Client
	bucket string
}

type S3Options struct {
	User         string
	Password     string
	Bucket       string
	Region       string
	BaseEndpoint string
}

func NewS3Repository(ctx context.Context, opts S3Options) (*S3Repository, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.User, opts.Password, "",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(opts.BaseEndpoint)
		o.UsePathStyle = true
	})

	return &S3Repository{client: client, bucket: opts.Bucket}, nil
}

func (r *S3Repository) Put(ctx context.Context, id string, data []byte, expireAt *time.Time) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(id),
		Body:   bytes.NewReader(data),
	}
	if expireAt != nil {
		input.Metadata = map[string]string{
			expireAtMetadataKey: strconv.FormatInt(expireAt.Unix(), 10),
		}
	}

	if _, err := r.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("s3 put: %w", err)
	}
	return nil
}

func (r *S3Repository) Get(ctx context.Context, id string) ([]byte, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("s3 get: %w", err)
	}
	defer out.Body.Close()

	if v, ok := out.Metadata[expireAtMetadataKey]; ok {
		sec, err := strconv.ParseInt(v, 10, 64)
		if err == nil && !time.Now().Before(time.Unix(sec, 0)) {
			return nil, common.ErrNotFound
		}
	}

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read: %w", err)
	}
	return data, nil
}
