package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/File-Sharing-BondBridg/Asset-Service/internal/configuration"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/pipeline"
	"go.uber.org/zap"
)

// Store is an object store the upload pipeline and the cleanup jobs can use.
type Store interface {
	pipeline.ObjectStore
	RemovePrefix(ctx context.Context, prefix string) (int, error)
	CheckConnection(ctx context.Context) error
}

// New builds the store selected by cfg.Driver.
func New(ctx context.Context, cfg configuration.StorageConfig, log *zap.Logger) (Store, error) {
	switch cfg.Driver {
	case configuration.StorageDriverMinIO, "":
		s, err := NewMinioStore(cfg, log)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx, cfg.PublicRead); err != nil {
			return nil, err
		}
		return s, nil
	case configuration.StorageDriverS3:
		return NewS3Store(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func publicReadPolicy(bucket string) string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, bucket)
}
