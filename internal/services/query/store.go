package query

import (
	"context"

	"github.com/File-Sharing-BondBridg/Asset-Service/internal/models"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/services/infrastructure"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Store reads from the owner's shard.
type Store struct {
	shards *infrastructure.Shards
}

func New(shards *infrastructure.Shards) *Store {
	return &Store{shards: shards}
}

func (s *Store) GetAsset(ctx context.Context, kind models.AssetKind, assetID, userID string) (models.Asset, error) {
	return s.shards.ForUser(userID).GetAsset(ctx, kind, assetID, userID)
}

// ListAssets pages through a project's assets of one kind, oldest first.
func (s *Store) ListAssets(ctx context.Context, kind models.AssetKind, userID, projectID string, limit, offset int) ([]models.Asset, error) {
	limit, offset = NormalizePage(limit, offset)
	return s.shards.ForUser(userID).ListAssets(ctx, kind, userID, projectID, limit, offset)
}

func (s *Store) GetProject(ctx context.Context, userID, projectID string) (models.Project, error) {
	return s.shards.ForUser(userID).GetProject(ctx, userID, projectID)
}

func (s *Store) ListProjects(ctx context.Context, userID string) ([]models.Project, error) {
	return s.shards.ForUser(userID).ListProjects(ctx, userID)
}

func (s *Store) UserAssetStats(ctx context.Context, userID string) (models.UserAssetStats, error) {
	return s.shards.ForUser(userID).UserAssetStats(ctx, userID)
}

func (s *Store) Stats(ctx context.Context) map[string]interface{} {
	return s.shards.Stats(ctx)
}

// NormalizePage clamps a requested page to sane bounds.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
