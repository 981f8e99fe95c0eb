package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/File-Sharing-BondBridg/Asset-Service/internal/models"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/pipeline"
	"github.com/google/uuid"
)

const assetColumns = "id, project_id, user_id, %s, object_path, original_name, size, content_type, created_at"

func scanAsset(kind models.AssetKind, row interface{ Scan(...any) error }) (models.Asset, error) {
	a := models.Asset{Kind: kind}
	err := row.Scan(&a.ID, &a.ProjectID, &a.OwnerID, &a.URL, &a.ObjectPath, &a.OriginalName, &a.Size, &a.ContentType, &a.CreatedAt)
	return a, err
}

// InsertAsset stores a new row and fills in ID (when empty) and CreatedAt.
func (p *PostgresStorage) InsertAsset(ctx context.Context, a *models.Asset) error {
	t, err := tableFor(a.Kind)
	if err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	query := fmt.Sprintf(`
  INSERT INTO %s (id, project_id, user_id, %s, object_path, original_name, size, content_type)
  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
  RETURNING created_at`, t.name, t.link)

	err = p.Db.QueryRowContext(ctx, query,
		a.ID,
		a.ProjectID,
		a.OwnerID,
		a.URL,
		a.ObjectPath,
		a.OriginalName,
		a.Size,
		a.ContentType,
	).Scan(&a.CreatedAt)
	return mapError(err)
}

func (p *PostgresStorage) GetAsset(ctx context.Context, kind models.AssetKind, assetID, userID string) (models.Asset, error) {
	t, err := tableFor(kind)
	if err != nil {
		return models.Asset{}, err
	}
	query := fmt.Sprintf(`SELECT `+assetColumns+` FROM %s WHERE id = $1 AND user_id = $2`, t.link, t.name)

	a, err := scanAsset(kind, p.Db.QueryRowContext(ctx, query, assetID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Asset{}, pipeline.ErrNotFound
	}
	return a, mapError(err)
}

// ListAssets returns a project's assets of one kind, oldest first.
func (p *PostgresStorage) ListAssets(ctx context.Context, kind models.AssetKind, userID, projectID string, limit, offset int) ([]models.Asset, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
  SELECT `+assetColumns+`
  FROM %s WHERE user_id = $1 AND project_id = $2
  ORDER BY created_at ASC LIMIT $3 OFFSET $4`, t.link, t.name)

	rows, err := p.Db.QueryContext(ctx, query, userID, projectID, limit, offset)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	assets := []models.Asset{}
	for rows.Next() {
		a, err := scanAsset(kind, rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// DeleteAsset returns pipeline.ErrNotFound when the owner has no such row.
func (p *PostgresStorage) DeleteAsset(ctx context.Context, kind models.AssetKind, assetID, userID string) error {
	t, err := tableFor(kind)
	if err != nil {
		return err
	}
	res, err := p.Db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, t.name), assetID, userID)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return pipeline.ErrNotFound
	}
	return nil
}

// PurgeUserAssets deletes every asset row of a user and returns their links.
func (p *PostgresStorage) PurgeUserAssets(ctx context.Context, userID string) ([]string, error) {
	return p.purge(ctx, "user_id = $1", userID)
}

// PurgeProjectAssets deletes every asset row of a project and returns their
// links.
func (p *PostgresStorage) PurgeProjectAssets(ctx context.Context, userID, projectID string) ([]string, error) {
	return p.purge(ctx, "user_id = $1 AND project_id = $2", userID, projectID)
}

func (p *PostgresStorage) purge(ctx context.Context, where string, args ...any) ([]string, error) {
	tx, err := p.Db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	links := []string{}
	for _, kind := range models.AssetKinds {
		t := assetTables[kind]
		rows, err := tx.QueryContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s RETURNING %s`, t.name, where, t.link), args...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.name, err)
		}
		for rows.Next() {
			var link string
			if err := rows.Scan(&link); err != nil {
				rows.Close()
				return nil, err
			}
			links = append(links, link)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return links, nil
}

// UserAssetStats counts a user's assets across every kind.
func (p *PostgresStorage) UserAssetStats(ctx context.Context, userID string) (models.UserAssetStats, error) {
	var parts []string
	for _, kind := range models.AssetKinds {
		parts = append(parts, fmt.Sprintf(`SELECT size FROM %s WHERE user_id = $1`, assetTables[kind].name))
	}
	query := `SELECT COUNT(*), COALESCE(SUM(size), 0) FROM (` + strings.Join(parts, " UNION ALL ") + `) AS a`

	var st models.UserAssetStats
	err := p.Db.QueryRowContext(ctx, query, userID).Scan(&st.AssetCount, &st.TotalBytes)
	return st, err
}

// ShardStats summarises the whole shard.
func (p *PostgresStorage) ShardStats(ctx context.Context) (map[string]interface{}, error) {
	stats := map[string]interface{}{}
	var projects int64
	if err := p.Db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`).Scan(&projects); err != nil {
		return nil, err
	}
	stats["projects"] = projects
	for _, kind := range models.AssetKinds {
		t := assetTables[kind]
		var count, size int64
		err := p.Db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*), COALESCE(SUM(size), 0) FROM %s`, t.name)).Scan(&count, &size)
		if err != nil {
			return nil, err
		}
		stats[t.name] = map[string]interface{}{
			"count":         count,
			"total_size_mb": float64(size) / (1024 * 1024),
		}
	}
	return stats, nil
}
