package services

import (
	"context"
	"fmt"

	"github.com/File-Sharing-BondBridg/Asset-Service/internal/pipeline"
	"go.uber.org/zap"
)

type CleanupStore interface {
	PurgeUserAssets(ctx context.Context, userID string) ([]string, error)
	PurgeProjectAssets(ctx context.Context, userID, projectID string) ([]string, error)
	DeleteProjectsForUser(ctx context.Context, userID string) (int64, error)
}

type ObjectRemover interface {
	RemoveObject(ctx context.Context, objectPath string) error
	RemovePrefix(ctx context.Context, prefix string) (int, error)
	PathSegment() string
}

type CleanupResult struct {
	Rows     int   `json:"rows"`
	Objects  int   `json:"objects"`
	Skipped  int   `json:"skipped"`
	Failed   int   `json:"failed"`
	Projects int64 `json:"projects,omitempty"`
}

// Cleanup removes everything stored for a user or a project. Rows go first,
// objects after; a failed object removal does not bring a row back.
type Cleanup struct {
	store   CleanupStore
	objects ObjectRemover
	log     *zap.Logger
}

func NewCleanup(store CleanupStore, objects ObjectRemover, log *zap.Logger) *Cleanup {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cleanup{store: store, objects: objects, log: log.Named("cleanup")}
}

func (c *Cleanup) PurgeProject(ctx context.Context, userID, projectID string) (CleanupResult, error) {
	if userID == "" || projectID == "" {
		return CleanupResult{}, pipeline.ErrInvalidRequest
	}
	links, err := c.store.PurgeProjectAssets(ctx, userID, projectID)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("purge project rows: %w", err)
	}
	res := c.removeLinks(ctx, links)
	c.log.Info("project assets purged",
		zap.String("user_id", userID), zap.String("project_id", projectID),
		zap.Int("rows", res.Rows), zap.Int("objects", res.Objects), zap.Int("failed", res.Failed))
	return res, nil
}

// PurgeUser drops the user's asset rows and projects, then sweeps the user's
// whole object prefix, which also catches objects whose row was never written.
func (c *Cleanup) PurgeUser(ctx context.Context, userID string) (CleanupResult, error) {
	if !pipeline.ValidOwnerID(userID) {
		return CleanupResult{}, pipeline.ErrInvalidRequest
	}
	links, err := c.store.PurgeUserAssets(ctx, userID)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("purge user rows: %w", err)
	}
	res := c.removeLinks(ctx, links)

	res.Projects, err = c.store.DeleteProjectsForUser(ctx, userID)
	if err != nil {
		return res, fmt.Errorf("delete projects: %w", err)
	}

	swept, err := c.objects.RemovePrefix(ctx, userID+"/")
	res.Objects += swept
	if err != nil {
		return res, fmt.Errorf("sweep user objects: %w", err)
	}
	c.log.Info("user purged",
		zap.String("user_id", userID), zap.Int("rows", res.Rows), zap.Int64("projects", res.Projects),
		zap.Int("objects", res.Objects), zap.Int("failed", res.Failed))
	return res, nil
}

func (c *Cleanup) removeLinks(ctx context.Context, links []string) CleanupResult {
	res := CleanupResult{Rows: len(links)}
	segment := c.objects.PathSegment()
	for _, link := range links {
		path, ok := pipeline.ObjectPathFromURL(link, segment)
		if !ok {
			res.Skipped++
			c.log.Warn("asset url has no bucket segment", zap.String("url", link))
			continue
		}
		if err := c.objects.RemoveObject(ctx, path); err != nil {
			res.Failed++
			c.log.Warn("storage object removal failed", zap.String("object_path", path), zap.Error(err))
			continue
		}
		res.Objects++
	}
	return res
}
