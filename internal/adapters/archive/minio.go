package archive

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/AlesonDEV/Api.FreeCity.Services/internal/ports"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
}

// MinioStore keeps every downloaded feed archive under a content-addressed key.
type MinioStore struct {
	client *minio.Client
	bucket string
	region string
	now    func() time.Time

	mu       sync.Mutex
	verified bool
}

func NewMinioStore(cfg Config) (*MinioStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("archive endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL
	if u, err := url.Parse(cfg.Endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			useSSL = true
		}
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinioStore{client: client, bucket: cfg.Bucket, region: cfg.Region, now: time.Now}, nil
}

func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}

func (s *MinioStore) Store(ctx context.Context, feed ports.FeedArchive) (string, error) {
	if err := s.ensureBucketOnce(ctx); err != nil {
		return "", err
	}
	key := objectKey(s.now(), feed.Checksum)
	contentType := feed.ContentType
	if contentType == "" {
		contentType = "application/zip"
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(feed.Data), int64(len(feed.Data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{"sha256": feed.Checksum},
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return key, nil
}

func (s *MinioStore) ensureBucketOnce(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.verified {
		return nil
	}
	if err := s.EnsureBucket(ctx); err != nil {
		return err
	}
	s.verified = true
	return nil
}

const checksumPrefixLen = 12

func objectKey(at time.Time, checksum string) string {
	if checksum == "" {
		checksum = "unknown"
	}
	if len(checksum) > checksumPrefixLen {
		checksum = checksum[:checksumPrefixLen]
	}
	return fmt.Sprintf("feeds/%s-%s.zip", at.UTC().Format("20060102T150405Z"), checksum)
}

// NoopStore is used when archiving is disabled. Store returns an empty key.
type NoopStore struct{}

func (NoopStore) Store(context.Context, ports.FeedArchive) (string, error) { return "", nil }
