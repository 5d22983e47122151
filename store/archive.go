package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/paddockhq/paddock/types"
)

// Archiver persists raw card payloads for replay and audit.
// The collection stage archives each fetched card when an archiver is
// configured.
type Archiver interface {
	// ArchiveCard stores the card's raw payload and returns the storage
	// path it was written to.
	ArchiveCard(ctx context.Context, card *types.RaceCard) (string, error)
}

// S3Config holds configuration for the S3 archive backend.
type S3Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string
	// Prefix is the key prefix within the bucket (optional).
	Prefix string
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
	// Endpoint is a custom S3 endpoint URL for S3-compatible providers
	// (e.g. Cloudflare R2, MinIO). Empty uses the default AWS endpoint.
	Endpoint string
	// UsePathStyle forces path-style addressing (bucket in path, not
	// subdomain). Required by most S3-compatible providers.
	UsePathStyle bool
}

// Validate checks that required S3 configuration is present.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("store: S3 bucket is required")
	}
	return nil
}

// S3Archiver writes raw card payloads to S3 under partitioned keys:
// {prefix}/day=YYYYMMDD/venue=V/race=NN/card.json.
type S3Archiver struct {
	config S3Config
	client *s3.Client
}

// NewS3Archiver creates an S3 archiver.
// Uses the AWS SDK default credential chain (env vars, shared config, IAM
// role).
func NewS3Archiver(ctx context.Context, cfg S3Config) (*S3Archiver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("store: load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &S3Archiver{
		config: cfg,
		client: s3.NewFromConfig(awsConfig, s3Opts...),
	}, nil
}

// ArchiveCard implements Archiver.
func (a *S3Archiver) ArchiveCard(ctx context.Context, card *types.RaceCard) (string, error) {
	key := a.objectKey(card.Key)
	contentType := "application/json"

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &a.config.Bucket,
		Key:         &key,
		Body:        bytes.NewReader(card.Payload),
		ContentType: &contentType,
	})
	if err != nil {
		return "", fmt.Errorf("store: archive card %s: %w", card.Key, err)
	}
	return fmt.Sprintf("s3://%s/%s", a.config.Bucket, key), nil
}

func (a *S3Archiver) objectKey(key types.RaceKey) string {
	if a.config.Prefix != "" {
		return fmt.Sprintf("%s/%s/card.json", a.config.Prefix, key.PartitionPath())
	}
	return fmt.Sprintf("%s/card.json", key.PartitionPath())
}

// Verify S3Archiver implements Archiver.
var _ Archiver = (*S3Archiver)(nil)

// StubArchiver records archived cards in memory for tests.
type StubArchiver struct {
	// Cards holds every archived card in call order.
	Cards []*types.RaceCard
	// Err, when set, is returned by every archive call.
	Err error
}

// ArchiveCard implements Archiver.
func (a *StubArchiver) ArchiveCard(_ context.Context, card *types.RaceCard) (string, error) {
	if a.Err != nil {
		return "", a.Err
	}
	a.Cards = append(a.Cards, card)
	return "stub://" + card.Key.PartitionPath(), nil
}

// Verify StubArchiver implements Archiver.
var _ Archiver = (*StubArchiver)(nil)
