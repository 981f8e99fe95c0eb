package infrastructure

import (
	"context"
	"fmt"

	"github.com/File-Sharing-BondBridg/Asset-Service/internal/models"
)

type assetTable struct {
	name string
	link string
}

var assetTables = map[models.AssetKind]assetTable{
	models.AssetKindDemo:  {name: "project_demos", link: "demo_link"},
	models.AssetKindHook:  {name: "project_hooks", link: "hook_link"},
	models.AssetKindAudio: {name: "project_audio", link: "audio_link"},
}

func tableFor(kind models.AssetKind) (assetTable, error) {
	t, ok := assetTables[kind]
	if !ok {
		return assetTable{}, fmt.Errorf("unknown asset kind %q", kind)
	}
	return t, nil
}

const projectsTable = `
CREATE TABLE IF NOT EXISTS projects (
    id UUID PRIMARY KEY,
    user_id VARCHAR(255) NOT NULL,
    name VARCHAR(255) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    target_audience TEXT NOT NULL DEFAULT '',
    tone VARCHAR(100) NOT NULL DEFAULT '',
    price_category VARCHAR(100) NOT NULL DEFAULT '',
    keywords TEXT NOT NULL DEFAULT '',
    unique_proposition TEXT NOT NULL DEFAULT '',
    call_to_action TEXT NOT NULL DEFAULT '',
    website VARCHAR(500) NOT NULL DEFAULT '',
    status VARCHAR(20) NOT NULL DEFAULT 'draft',
    video_count INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_projects_user_created ON projects(user_id, created_at DESC);
`

const assetTableTemplate = `
CREATE TABLE IF NOT EXISTS %[1]s (
    id UUID PRIMARY KEY,
    project_id UUID NOT NULL REFERENCES projects(id),
    user_id VARCHAR(255) NOT NULL,
    %[2]s TEXT NOT NULL UNIQUE,
    object_path VARCHAR(500) NOT NULL DEFAULT '',
    original_name VARCHAR(255) NOT NULL DEFAULT '',
    size BIGINT NOT NULL DEFAULT 0,
    content_type VARCHAR(100) NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_project_created ON %[1]s(project_id, created_at);
CREATE INDEX IF NOT EXISTS idx_%[1]s_user_id ON %[1]s(user_id);
`

// CreateTables is idempotent and runs on every connect.
func (p *PostgresStorage) CreateTables(ctx context.Context) error {
	if _, err := p.Db.ExecContext(ctx, projectsTable); err != nil {
		return err
	}
	for _, kind := range models.AssetKinds {
		t := assetTables[kind]
		if _, err := p.Db.ExecContext(ctx, fmt.Sprintf(assetTableTemplate, t.name, t.link)); err != nil {
			return fmt.Errorf("%s: %w", t.name, err)
		}
	}
	return nil
}
