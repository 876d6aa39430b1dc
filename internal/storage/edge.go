package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// maxDeleteBatch is the store's multi-object delete limit; larger inputs
// are chunked.
const maxDeleteBatch = 1000

// EdgeConfig holds settings for an S3-compatible object store with a
// provider-managed edge CDN.
type EdgeConfig struct {
	// Endpoint is the S3-compatible storage endpoint.
	Endpoint string

	// Region is the storage region.
	Region string

	// Bucket is the bucket holding course assets.
	Bucket string

	// AccessKeyID and SecretAccessKey authenticate storage calls.
	AccessKeyID     string
	SecretAccessKey string

	// CDNDomain is the edge domain public URLs are built from. It is
	// distinct from the raw storage endpoint.
	CDNDomain string

	// ZoneID identifies the CDN zone for cache purges. Optional: purges
	// degrade to a no-op when absent.
	ZoneID string

	// PurgeAPIKey authenticates purge calls. Distinct from the storage
	// credentials. Optional, same degradation as ZoneID.
	PurgeAPIKey string

	// PurgeEndpoint is the base URL of the provider's purge API.
	// Optional; defaults are provider specific and set via configuration.
	PurgeEndpoint string
}

// Validate reports the missing required fields, if any.
func (c EdgeConfig) Validate() error {
	var missing []string
	if c.Endpoint == "" {
		missing = append(missing, "endpoint")
	}
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
	if c.CDNDomain == "" {
		missing = append(missing, "cdn_domain")
	}
	if len(missing) > 0 {
		return NewConfigError(ProviderEdge, missing...)
	}
	return nil
}

// EdgeAdapter stores objects in an S3-compatible bucket whose contents are
// served through a provider-managed edge CDN. Cache purges go through a
// separate zone-level REST API authenticated with its own credential.
type EdgeAdapter struct {
	client    *s3.Client
	presigner *s3.PresignClient
	purge     *resty.Client
	cfg       EdgeConfig
	cdnDomain string
	logger    zerolog.Logger
}

var _ Adapter = (*EdgeAdapter)(nil)

// NewEdgeAdapter creates an edge CDN adapter. The configuration must pass
// Validate; network reachability is checked separately via HealthCheck.
func NewEdgeAdapter(cfg EdgeConfig, logger zerolog.Logger) (*EdgeAdapter, error) {
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

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	purge := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.PurgeEndpoint, "/")).
		SetAuthToken(cfg.PurgeAPIKey).
		SetHeader("Content-Type", "application/json")

	return &EdgeAdapter{
		client:    client,
		presigner: s3.NewPresignClient(client),
		purge:     purge,
		cfg:       cfg,
		cdnDomain: strings.TrimSuffix(cfg.CDNDomain, "/"),
		logger:    logger.With().Str("adapter", string(ProviderEdge)).Logger(),
	}, nil
}

// Provider returns ProviderEdge.
func (a *EdgeAdapter) Provider() Provider {
	return ProviderEdge
}

// CDNEnabled always reports true.
func (a *EdgeAdapter) CDNEnabled() bool {
	return true
}

// UploadFile reads a local file and stores it in the bucket under key.
func (a *EdgeAdapter) UploadFile(ctx context.Context, localPath, key string, opts *UploadOptions) (*UploadResult, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceFile, err)
	}
	return a.UploadBuffer(ctx, data, key, opts)
}

// UploadBuffer stores an in-memory buffer in the bucket under key.
func (a *EdgeAdapter) UploadBuffer(ctx context.Context, data []byte, key string, opts *UploadOptions) (*UploadResult, error) {
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
func (a *EdgeAdapter) DeleteFile(ctx context.Context, key string) bool {
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

// DeleteFiles removes a batch of objects using the store's multi-object
// delete, chunking at the provider limit. Returns the number removed.
func (a *EdgeAdapter) DeleteFiles(ctx context.Context, keys []string) int {
	return s3BatchDelete(ctx, a.client, a.cfg.Bucket, keys, a.logger)
}

// PublicURL builds the object URL from the CDN domain, never from the raw
// storage endpoint.
func (a *EdgeAdapter) PublicURL(key string) string {
	return a.cdnDomain + "/" + SanitizeKey(key)
}

// SignedURL returns a presigned GET URL against the storage endpoint.
func (a *EdgeAdapter) SignedURL(ctx context.Context, key string, opts *SignedURLOptions) (string, error) {
	return s3PresignGet(ctx, a.presigner, a.cfg.Bucket, key, opts)
}

// HealthCheck probes bucket reachability with a HeadBucket call.
func (a *EdgeAdapter) HealthCheck(ctx context.Context) bool {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(a.cfg.Bucket),
	})
	if err != nil {
		a.logger.Warn().Err(err).Str("bucket", a.cfg.Bucket).Msg("health check failed")
		return false
	}
	return true
}

// purgeRequest is the zone purge API payload. Keys are purged by their
// absolute CDN URLs.
type purgeRequest struct {
	URLs []string `json:"urls"`
}

// PurgeCDNCache purges the edge cache for the given keys via the zone-level
// purge API. Failures, including missing purge configuration, yield false
// and never an error.
func (a *EdgeAdapter) PurgeCDNCache(ctx context.Context, keys []string) bool {
	if a.cfg.ZoneID == "" || a.cfg.PurgeAPIKey == "" || a.cfg.PurgeEndpoint == "" {
		a.logger.Warn().Msg("cdn purge not configured (zone_id/purge_api_key/purge_endpoint), skipping")
		return false
	}
	if len(keys) == 0 {
		return true
	}

	urls := make([]string, 0, len(keys))
	for _, key := range keys {
		urls = append(urls, a.PublicURL(key))
	}

	resp, err := a.purge.R().
		SetContext(ctx).
		SetBody(purgeRequest{URLs: urls}).
		Post(fmt.Sprintf("/zones/%s/purge", a.cfg.ZoneID))
	if err != nil {
		a.logger.Warn().Err(err).Int("keys", len(keys)).Msg("cdn purge failed")
		return false
	}
	if resp.IsError() {
		a.logger.Warn().
			Int("status", resp.StatusCode()).
			Str("body", resp.String()).
			Msg("cdn purge rejected")
		return false
	}

	a.logger.Info().Int("keys", len(keys)).Str("zone", a.cfg.ZoneID).Msg("cdn cache purged")
	return true
}

// applyUploadOptions copies UploadOptions onto a PutObjectInput.
func applyUploadOptions(input *s3.PutObjectInput, opts *UploadOptions) {
	contentType := "application/octet-stream"
	if opts != nil {
		if opts.ContentType != "" {
			contentType = opts.ContentType
		}
		if opts.CacheControl != "" {
			input.CacheControl = aws.String(opts.CacheControl)
		}
		if len(opts.Metadata) > 0 {
			input.Metadata = opts.Metadata
		}
	}
	input.ContentType = aws.String(contentType)
}

// s3BatchDelete deletes keys in chunks of maxDeleteBatch and counts the
// objects the store confirmed as deleted.
func s3BatchDelete(ctx context.Context, client *s3.Client, bucket string, keys []string, logger zerolog.Logger) int {
	deleted := 0
	for start := 0; start < len(keys); start += maxDeleteBatch {
		end := min(start+maxDeleteBatch, len(keys))

		objects := make([]s3types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			if k := SanitizeKey(key); k != "" {
				objects = append(objects, s3types.ObjectIdentifier{Key: aws.String(k)})
			}
		}
		if len(objects) == 0 {
			continue
		}

		out, err := client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &s3types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(false),
			},
		})
		if err != nil {
			logger.Warn().Err(err).Int("batch", len(objects)).Msg("batch delete failed")
			continue
		}
		deleted += len(out.Deleted)
		for _, e := range out.Errors {
			logger.Debug().
				Str("key", aws.ToString(e.Key)).
				Str("code", aws.ToString(e.Code)).
				Msg("object not deleted")
		}
	}
	return deleted
}

// s3PresignGet generates a presigned GET URL with the configured expiry and
// optional content-disposition override.
func s3PresignGet(ctx context.Context, presigner *s3.PresignClient, bucket, key string, opts *SignedURLOptions) (string, error) {
	k := SanitizeKey(key)
	if k == "" {
		return "", ErrEmptyKey
	}

	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(k),
	}
	if opts != nil && opts.ContentDisposition != "" {
		input.ResponseContentDisposition = aws.String(opts.ContentDisposition)
	}

	req, err := presigner.PresignGetObject(ctx, input, s3.WithPresignExpires(opts.Expiry()))
	if err != nil {
		return "", fmt.Errorf("%w: presign %s: %v", ErrBackend, k, err)
	}
	return req.URL, nil
}
