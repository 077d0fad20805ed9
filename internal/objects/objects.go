// Package objects removes user-owned files from S3-compatible object storage.
package objects

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"hatch/internal/platform/config"
)

// API is the subset of the S3 client used here.
type API interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

type Store struct {
	api     API
	buckets []string
	logger  *slog.Logger
}

// New connects to the configured endpoint with static credentials.
func New(ctx context.Context, cfg config.ObjectsConfig, logger *slog.Logger) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load object storage config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})
	return NewWithAPI(client, cfg.Buckets, logger), nil
}

func NewWithAPI(api API, buckets []string, logger *slog.Logger) *Store {
	return &Store{api: api, buckets: buckets, logger: logger}
}

// RemovePrefix deletes every object under prefix in every bucket and
// returns how many were removed. Removing an empty prefix is not an error.
func (s *Store) RemovePrefix(ctx context.Context, prefix string) (int, error) {
	var removed int
	var errs []error
	for _, bucket := range s.buckets {
		n, err := s.removeFromBucket(ctx, bucket, prefix)
		removed += n
		if err != nil {
			errs = append(errs, fmt.Errorf("bucket %s: %w", bucket, err))
		}
	}
	return removed, errors.Join(errs...)
}

func (s *Store) removeFromBucket(ctx context.Context, bucket, prefix string) (int, error) {
	var removed int
	pages := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return removed, fmt.Errorf("list %s: %w", prefix, err)
		}
		if len(page.Contents) == 0 {
			continue
		}

		ids := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			ids = append(ids, types.ObjectIdentifier{Key: obj.Key})
		}
		out, err := s.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return removed, fmt.Errorf("delete %s: %w", prefix, err)
		}
		removed += len(ids) - len(out.Errors)
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			return removed, fmt.Errorf("delete %s: %d objects failed, first %s: %s",
				prefix, len(out.Errors), aws.ToString(first.Key), aws.ToString(first.Message))
		}
	}
	s.logger.DebugContext(ctx, "objects removed", "bucket", bucket, "prefix", prefix, "count", removed)
	return removed, nil
}
