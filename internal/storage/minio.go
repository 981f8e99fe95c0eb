package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/File-Sharing-BondBridg/Asset-Service/internal/configuration"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/pipeline"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

type MinioStore struct {
	client     *minio.Client
	bucket     string
	publicBase string
	ttl        time.Duration
	log        *zap.Logger
}

func NewMinioStore(cfg configuration.StorageConfig, log *zap.Logger) (*MinioStore, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("storage bucket is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	return newMinioStore(client, cfg, log), nil
}

func newMinioStore(client *minio.Client, cfg configuration.StorageConfig, log *zap.Logger) *MinioStore {
	if log == nil {
		log = zap.NewNop()
	}
	base := cfg.PublicBase
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + cfg.Endpoint
	}
	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MinioStore{
		client:     client,
		bucket:     cfg.BucketName,
		publicBase: strings.TrimRight(base, "/"),
		ttl:        ttl,
		log:        log.Named("minio"),
	}
}

// EnsureBucket creates the bucket when it is missing and, if publicRead is
// set, lets anonymous clients read its objects.
func (s *MinioStore) EnsureBucket(ctx context.Context, publicRead bool) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		s.log.Info("created bucket", zap.String("bucket", s.bucket))
	}
	if publicRead {
		if err := s.client.SetBucketPolicy(ctx, s.bucket, publicReadPolicy(s.bucket)); err != nil {
			return fmt.Errorf("failed to set bucket policy: %w", err)
		}
	}
	return nil
}

func (s *MinioStore) IssueUploadCredential(ctx context.Context, objectPath, contentType string, _ int64) (pipeline.Credential, error) {
	u, err := s.client.PresignedPutObject(ctx, s.bucket, objectPath, s.ttl)
	if err != nil {
		return pipeline.Credential{}, err
	}
	cred := pipeline.Credential{URL: u.String(), ExpiresAt: time.Now().Add(s.ttl)}
	if contentType != "" {
		cred.Headers = map[string]string{"Content-Type": contentType}
	}
	return cred, nil
}

func (s *MinioStore) PublicURL(objectPath string) (string, error) {
	if objectPath == "" {
		return "", errors.New("empty object path")
	}
	return s.publicBase + s.PathSegment() + escapeKey(objectPath), nil
}

func (s *MinioStore) PathSegment() string {
	return "/" + s.bucket + "/"
}

func (s *MinioStore) RemoveObject(ctx context.Context, objectPath string) error {
	return s.client.RemoveObject(ctx, s.bucket, objectPath, minio.RemoveObjectOptions{})
}

// RemovePrefix deletes every object under prefix and returns how many were
// removed.
func (s *MinioStore) RemovePrefix(ctx context.Context, prefix string) (int, error) {
	if prefix == "" {
		return 0, errors.New("refusing to remove an empty prefix")
	}
	log := s.log.With(zap.String("prefix", prefix))

	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true})
	toRemove := make(chan minio.ObjectInfo)
	listErr := make(chan error, 1)
	count := 0
	go func() {
		defer close(toRemove)
		for obj := range objects {
			if obj.Err != nil {
				listErr <- obj.Err
				return
			}
			select {
			case toRemove <- obj:
				count++
			case <-ctx.Done():
				listErr <- ctx.Err()
				return
			}
		}
		listErr <- nil
	}()

	var firstErr error
	for rerr := range s.client.RemoveObjects(ctx, s.bucket, toRemove, minio.RemoveObjectsOptions{}) {
		log.Warn("object removal failed", zap.String("object", rerr.ObjectName), zap.Error(rerr.Err))
		if firstErr == nil {
			firstErr = rerr.Err
		}
	}
	if err := <-listErr; err != nil {
		return count, err
	}
	if firstErr != nil {
		return count, firstErr
	}
	log.Debug("removed objects", zap.Int("count", count))
	return count, nil
}

func (s *MinioStore) CheckConnection(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}
