package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DistributionConfig holds settings for an object store paired with a
// separate CDN distribution.
type DistributionConfig struct {
	// Region is the storage region.
	Region string

	// Bucket is the bucket holding course assets.
	Bucket string

	// AccessKeyID and SecretAccessKey authenticate storage and
	// distribution calls.
	AccessKeyID     string
	SecretAccessKey string

	// Domain is the distribution's public domain.
	Domain string

	// DistributionID identifies the distribution for invalidations.
	// Optional: purges degrade to a no-op/false result when absent.
	DistributionID string
}

// Validate reports the missing required fields, if any. DistributionID is
// deliberately not required; it only gates cache purges.
func (c DistributionConfig) Validate() error {
	var missing []string
	if c.Region == "" {
		missing = append(missing, "region")
	}
	if c.Bucket == "" {
		missing = append(missing, "bucket")
	}
	if c.AccessKeyID == "" {
		missing = append(missing, "access_key_id")
	}
	if c.SecretAccessKey == "" {
		missing = append(missing, "secret_access_key")
	}
	if c.Domain == "" {
		missing = append(missing, "domain")
	}
	if len(missing) > 0 {
		return NewConfigError(ProviderDistribution, missing...)
	}
	return nil
}

// DistributionAdapter stores objects in an object-store bucket and serves
// them through a CDN distribution. Cache purges create invalidation batches
// against the distribution.
//
// Signed URLs fall back to storage-native presigned URLs rather than
// distribution-signed URLs, so expiry is enforced by the store, not at the
// CDN edge.
type DistributionAdapter struct {
	client    *s3.Client
	presigner *s3.PresignClient
	cdn       *cloudfront.Client
	cfg       DistributionConfig
	domain    string
	logger    zerolog.Logger
}

var _ Adapter = (*DistributionAdapter)(nil)

// NewDistributionAdapter creates a distribution CDN adapter.
func NewDistributionAdapter(cfg DistributionConfig, logger zerolog.Logger) (*DistributionAdapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: load SDK config: %v", ErrBackend, err)
	}

	client := s3.NewFromConfig(awsCfg)

	return &DistributionAdapter{
		client:    client,
		presigner: s3.NewPresignClient(client),
		cdn:       cloudfront.NewFromConfig(awsCfg),
		cfg:       cfg,
		domain:    strings.TrimSuffix(cfg.Domain, "/"),
		logger:    logger.With().Str("adapter", string(ProviderDistribution)).Logger(),
	}, nil
}

// Provider returns ProviderDistribution.
func (a *DistributionAdapter) Provider() Provider {
	return ProviderDistribution
}

// CDNEnabled always reports true.
func (a *DistributionAdapter) CDNEnabled() bool {
	return true
}

// UploadFile reads a local file and stores it in the bucket under key.
func (a *DistributionAdapter) UploadFile(ctx context.Context, localPath, key string, opts *UploadOptions) (*UploadResult, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceFile, err)
	}
	return a.UploadBuffer(ctx, data, key, opts)
}

// UploadBuffer stores an in-memory buffer in the bucket under key.
func (a *DistributionAdapter) UploadBuffer(ctx context.Context, data []byte, key string, opts *UploadOptions) (*UploadResult, error) {
	k := SanitizeKey(key)
	if k == "" {
		return nil, ErrEmptyKey
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(a.cfg.Bucket),
		Key:           aws.String(k),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	applyUploadOptions(input, opts)

	out, err := a.client.PutObject(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("%w: put %s: %v", ErrBackend, k, err)
	}

	a.logger.Debug().Str("key", k).Int("size", len(data)).Msg("uploaded object")

	return &UploadResult{
		Key:  k,
		URL:  a.PublicURL(k),
		Size: int64(len(data)),
		ETag: aws.ToString(out.ETag),
	}, nil
}

// DeleteFile removes a single object, reporting failure as false.
func (a *DistributionAdapter) DeleteFile(ctx context.Context, key string) bool {
	k := SanitizeKey(key)
	if k == "" {
		return false
	}
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.cfg.Bucket),
		Key:    aws.String(k),
	})
	if err != nil {
		a.logger.Debug().Err(err).Str("key", k).Msg("delete failed")
		return false
	}
	return true
}

// DeleteFiles removes a batch of objects, chunked at the provider limit.
func (a *DistributionAdapter) DeleteFiles(ctx context.Context, keys []string) int {
	return s3BatchDelete(ctx, a.client, a.cfg.Bucket, keys, a.logger)
}

// PublicURL builds the object URL from the distribution domain.
func (a *DistributionAdapter) PublicURL(key string) string {
	return a.domain + "/" + SanitizeKey(key)
}

// SignedURL returns a storage-native presigned GET URL. Callers must not
// assume the expiry is enforced at the CDN edge.
func (a *DistributionAdapter) SignedURL(ctx context.Context, key string, opts *SignedURLOptions) (string, error) {
	return s3PresignGet(ctx, a.presigner, a.cfg.Bucket, key, opts)
}

// HealthCheck probes bucket reachability with a HeadBucket call.
func (a *DistributionAdapter) HealthCheck(ctx context.Context) bool {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(a.cfg.Bucket),
	})
	if err != nil {
		a.logger.Warn().Err(err).Str("bucket", a.cfg.Bucket).Msg("health check failed")
		return false
	}
	return true
}

// PurgeCDNCache creates an invalidation batch for the given keys. Without a
// configured distribution ID, purging is a documented no-op returning false.
func (a *DistributionAdapter) PurgeCDNCache(ctx context.Context, keys []string) bool {
	if a.cfg.DistributionID == "" {
		a.logger.Warn().Msg("cdn purge not configured (distribution_id), skipping")
		return false
	}
	if len(keys) == 0 {
		return true
	}

	paths := make([]string, 0, len(keys))
	for _, key := range keys {
		if key == "*" {
			paths = append(paths, "/*")
			continue
		}
		paths = append(paths, "/"+SanitizeKey(key))
	}

	_, err := a.cdn.CreateInvalidation(ctx, &cloudfront.CreateInvalidationInput{
		DistributionId: aws.String(a.cfg.DistributionID),
		InvalidationBatch: &cftypes.InvalidationBatch{
			CallerReference: aws.String(fmt.Sprintf("dispatch-%d-%s", time.Now().Unix(), uuid.NewString()[:8])),
			Paths: &cftypes.Paths{
				Items:    paths,
				Quantity: aws.Int32(int32(len(paths))),
			},
		},
	})
	if err != nil {
		a.logger.Warn().Err(err).Int("keys", len(keys)).Msg("cdn invalidation failed")
		return false
	}

	a.logger.Info().
		Int("keys", len(keys)).
		Str("distribution", a.cfg.DistributionID).
		Msg("cdn invalidation created")
	return true
}
