package infrastructure

import (
	"context"
	"database/sql"
	"errors"

	"github.com/File-Sharing-BondBridg/Asset-Service/internal/models"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/pipeline"
	"github.com/google/uuid"
)

const projectColumns = `id, user_id, name, description, target_audience, tone, price_category, keywords,
  unique_proposition, call_to_action, website, status, video_count, created_at, updated_at`

func scanProject(row interface{ Scan(...any) error }) (models.Project, error) {
	var proj models.Project
	err := row.Scan(
		&proj.ID,
		&proj.UserID,
		&proj.Name,
		&proj.Description,
		&proj.TargetAudience,
		&proj.Tone,
		&proj.PriceCategory,
		&proj.Keywords,
		&proj.UniqueProposition,
		&proj.CallToAction,
		&proj.Website,
		&proj.Status,
		&proj.VideoCount,
		&proj.CreatedAt,
		&proj.UpdatedAt,
	)
	return proj, err
}

// CreateProject inserts proj as a draft with no videos unless told otherwise.
func (p *PostgresStorage) CreateProject(ctx context.Context, proj *models.Project) error {
	if proj.ID == "" {
		proj.ID = uuid.NewString()
	}
	if proj.Status == "" {
		proj.Status = models.ProjectStatusDraft
	}
	query := `
  INSERT INTO projects (id, user_id, name, description, target_audience, tone, price_category, keywords,
      unique_proposition, call_to_action, website, status, video_count)
  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
  RETURNING created_at, updated_at`

	err := p.Db.QueryRowContext(ctx, query,
		proj.ID,
		proj.UserID,
		proj.Name,
		proj.Description,
		proj.TargetAudience,
		proj.Tone,
		proj.PriceCategory,
		proj.Keywords,
		proj.UniqueProposition,
		proj.CallToAction,
		proj.Website,
		proj.Status,
		proj.VideoCount,
	).Scan(&proj.CreatedAt, &proj.UpdatedAt)
	return mapError(err)
}

func (p *PostgresStorage) GetProject(ctx context.Context, userID, projectID string) (models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1 AND user_id = $2`
	proj, err := scanProject(p.Db.QueryRowContext(ctx, query, projectID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, pipeline.ErrNotFound
	}
	return proj, mapError(err)
}

// ListProjects returns a user's projects, newest first.
func (p *PostgresStorage) ListProjects(ctx context.Context, userID string) ([]models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := p.Db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		proj, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, proj)
	}
	return projects, rows.Err()
}

// UpdateProject writes every editable column of proj.
func (p *PostgresStorage) UpdateProject(ctx context.Context, proj *models.Project) error {
	query := `
  UPDATE projects SET
      name = $3,
      description = $4,
      target_audience = $5,
      tone = $6,
      price_category = $7,
      keywords = $8,
      unique_proposition = $9,
      call_to_action = $10,
      website = $11,
      status = $12,
      video_count = $13,
      updated_at = NOW()
  WHERE id = $1 AND user_id = $2
  RETURNING updated_at`

	err := p.Db.QueryRowContext(ctx, query,
		proj.ID,
		proj.UserID,
		proj.Name,
		proj.Description,
		proj.TargetAudience,
		proj.Tone,
		proj.PriceCategory,
		proj.Keywords,
		proj.UniqueProposition,
		proj.CallToAction,
		proj.Website,
		proj.Status,
		proj.VideoCount,
	).Scan(&proj.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return pipeline.ErrNotFound
	}
	return mapError(err)
}

func (p *PostgresStorage) DeleteProject(ctx context.Context, userID, projectID string) error {
	res, err := p.Db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1 AND user_id = $2`, projectID, userID)
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

func (p *PostgresStorage) DeleteProjectsForUser(ctx context.Context, userID string) (int64, error) {
	res, err := p.Db.ExecContext(ctx, `DELETE FROM projects WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
