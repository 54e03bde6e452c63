package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// s3 DeleteObjects accepts at most this many keys per call.
const maxDeleteBatch = 1000

type S3StageConfig struct {
	Bucket          string
	EndpointURL     string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	PartSize        int64
}

// S3Stage stages chunks in an s3 bucket, or any s3 compatible store such as
// MinIO when an endpoint is given.
type S3Stage struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	endpoint string
}

var _ Stage = &S3Stage{}

func NewS3Stage(ctx context.Context, cfg S3StageConfig) (*S3Stage, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("stage bucket must be specified")
	}

	opts := []func(*aws_config.LoadOptions) error{aws_config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, aws_config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := aws_config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error loading aws config: %w", err)
	}

	endpoint := strings.TrimSuffix(cfg.EndpointURL, "/")
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		if cfg.PartSize > 0 {
			u.PartSize = max(cfg.PartSize, manager.MinUploadPartSize)
		}
	})

	return &S3Stage{client: client, uploader: uploader, bucket: cfg.Bucket, endpoint: endpoint}, nil
}

func (s *S3Stage) Prepare(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}

	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return fmt.Errorf("error creating stage bucket %s: %w", s.bucket, err)
	}
	slog.Info("created stage bucket", "bucket", s.bucket)
	return nil
}

func (s *S3Stage) location(key string) Location {
	loc := Location{URI: fmt.Sprintf("s3://%s/%s", s.bucket, key)}
	if s.endpoint == "" {
		loc.URL = fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key)
	} else {
		loc.URL = fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
	}
	return loc
}

func (s *S3Stage) Upload(ctx context.Context, key string, body io.Reader) (Location, error) {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return Location{}, fmt.Errorf("error uploading chunk %s: %w", key, err)
	}
	slog.Debug("uploaded chunk", "bucket", s.bucket, "key", key)
	return s.location(key), nil
}

func (s *S3Stage) Download(ctx context.Context, key string) ([]byte, error) {
	res, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("error downloading chunk %s: %w", key, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading chunk %s: %w", key, err)
	}
	return data, nil
}

func (s *S3Stage) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("error listing stage prefix %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}

	sort.Strings(keys)
	return keys, nil
}

func (s *S3Stage) Remove(ctx context.Context, keys ...string) error {
	for start := 0; start < len(keys); start += maxDeleteBatch {
		batch := keys[start:min(start+maxDeleteBatch, len(keys))]

		ids := make([]types.ObjectIdentifier, len(batch))
		for i, key := range batch {
			ids[i] = types.ObjectIdentifier{Key: aws.String(key)}
		}

		res, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("error removing staged chunks: %w", err)
		}
		if len(res.Errors) > 0 {
			e := res.Errors[0]
			return fmt.Errorf("error removing staged chunk %s: %s", aws.ToString(e.Key), aws.ToString(e.Message))
		}
	}
	return nil
}
