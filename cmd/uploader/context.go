package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/File-Sharing-BondBridg/Asset-Service/internal/configuration"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/logging"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/models"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/pipeline"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/services/command"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/services/infrastructure"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/services/query"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/storage"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/transfer"
	"go.uber.org/zap"
)

type assetQueries interface {
	GetAsset(ctx context.Context, kind models.AssetKind, assetID, userID string) (models.Asset, error)
	ListAssets(ctx context.Context, kind models.AssetKind, userID, projectID string, limit, offset int) ([]models.Asset, error)
}

// backend is the in-process slice of the service the CLI drives.
type backend struct {
	orchestrators *pipeline.Registry
	queries       assetQueries
	close         func() error
}

type opener func(ctx context.Context, verbose bool) (*backend, error)

type commandContext struct {
	open opener

	userID  string
	verbose bool

	once    sync.Once
	backend *backend
	err     error
}

func newCommandContext(open opener) *commandContext {
	return &commandContext{open: open}
}

func (c *commandContext) user() (string, error) {
	id := strings.TrimSpace(c.userID)
	if id == "" {
		return "", errors.New("--user is required (or set ASSET_USER_ID)")
	}
	return id, nil
}

func (c *commandContext) ensureBackend(ctx context.Context) (*backend, error) {
	c.once.Do(func() {
		c.backend, c.err = c.open(ctx, c.verbose)
	})
	return c.backend, c.err
}

func (c *commandContext) closeBackend() {
	if c.backend != nil && c.backend.close != nil {
		_ = c.backend.close()
	}
}

// openBackend wires the same pipeline the server runs, minus events and
// scanning.
func openBackend(ctx context.Context, verbose bool) (*backend, error) {
	cfg := configuration.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := zap.NewNop()
	if verbose {
		l, err := logging.New(logging.DevelopmentMode)
		if err != nil {
			return nil, err
		}
		log = l
	}

	shards, err := infrastructure.InitializePostgresShards(ctx, cfg.Database.Connections(), log)
	if err != nil {
		return nil, err
	}
	store, err := storage.New(ctx, cfg.Storage, log)
	if err != nil {
		_ = shards.Close()
		return nil, err
	}

	registry := pipeline.NewRegistry(pipeline.Dependencies{
		Store:     store,
		Transport: transfer.NewHTTPUploader(&http.Client{}, log),
		Recorder:  command.New(shards),
	}, pipeline.Options{
		Concurrency:     cfg.Upload.Concurrency,
		TransferTimeout: cfg.Upload.TransferTimeout,
	}, log)

	return &backend{orchestrators: registry, queries: query.New(shards), close: shards.Close}, nil
}
