package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/File-Sharing-BondBridg/Asset-Service/internal/models"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/pipeline"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/services/infrastructure"
)

// Store applies writes on the owner's shard. It satisfies pipeline.Recorder.
type Store struct {
	shards *infrastructure.Shards
}

func New(shards *infrastructure.Shards) *Store {
	return &Store{shards: shards}
}

func (s *Store) InsertAsset(ctx context.Context, asset *models.Asset) error {
	return s.shards.ForUser(asset.OwnerID).InsertAsset(ctx, asset)
}

func (s *Store) DeleteAsset(ctx context.Context, kind models.AssetKind, assetID, ownerID string) error {
	return s.shards.ForUser(ownerID).DeleteAsset(ctx, kind, assetID, ownerID)
}

func (s *Store) CreateProject(ctx context.Context, p *models.Project) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.UserID == "" || p.Name == "" {
		return fmt.Errorf("%w: project name is required", pipeline.ErrInvalidRequest)
	}
	if p.Status != "" && !p.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", pipeline.ErrInvalidRequest, p.Status)
	}
	return s.shards.ForUser(p.UserID).CreateProject(ctx, p)
}

// UpdateProject applies a partial update and returns the stored project.
func (s *Store) UpdateProject(ctx context.Context, userID, projectID string, upd models.ProjectUpdate) (models.Project, error) {
	pg := s.shards.ForUser(userID)
	p, err := pg.GetProject(ctx, userID, projectID)
	if err != nil {
		return models.Project{}, err
	}
	upd.Apply(&p)
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return models.Project{}, fmt.Errorf("%w: project name is required", pipeline.ErrInvalidRequest)
	}
	if !p.Status.Valid() {
		return models.Project{}, fmt.Errorf("%w: unknown status %q", pipeline.ErrInvalidRequest, p.Status)
	}
	if p.VideoCount < 0 {
		return models.Project{}, fmt.Errorf("%w: negative video count", pipeline.ErrInvalidRequest)
	}
	if err := pg.UpdateProject(ctx, &p); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

func (s *Store) DeleteProject(ctx context.Context, userID, projectID string) error {
	return s.shards.ForUser(userID).DeleteProject(ctx, userID, projectID)
}

func (s *Store) PurgeProjectAssets(ctx context.Context, userID, projectID string) ([]string, error) {
	return s.shards.ForUser(userID).PurgeProjectAssets(ctx, userID, projectID)
}

func (s *Store) PurgeUserAssets(ctx context.Context, userID string) ([]string, error) {
	return s.shards.ForUser(userID).PurgeUserAssets(ctx, userID)
}

func (s *Store) DeleteProjectsForUser(ctx context.Context, userID string) (int64, error) {
	return s.shards.ForUser(userID).DeleteProjectsForUser(ctx, userID)
}
