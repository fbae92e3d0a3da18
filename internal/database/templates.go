package database

import (
	"context"
	"database/sql"
	"fmt"

	"mensageiro/internal/models"
)

// GetTemplateBySlug retrieves a template; (nil, nil) when absent. Inactive
// templates are returned so callers can distinguish inactive from missing.
func (d *Database) GetTemplateBySlug(ctx context.Context, slug string) (*models.Template, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, channel, slug, content, category, active, variation_enabled, created_at, updated_at
		FROM templates
		WHERE slug = ?`, slug)

	tpl := &models.Template{}
	err := row.Scan(
		&tpl.ID,
		&tpl.Channel,
		&tpl.Slug,
		&tpl.Content,
		&tpl.Category,
		&tpl.Active,
		&tpl.VariationEnabled,
		&tpl.CreatedAt,
		&tpl.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return tpl, nil
}

// SaveTemplate inserts or updates a template by slug. Edits affect future
// resolutions only.
func (d *Database) SaveTemplate(ctx context.Context, tpl *models.Template) error {
	query := `
		INSERT INTO templates (channel, slug, content, category, active, variation_enabled)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			channel = excluded.channel,
			content = excluded.content,
			category = excluded.category,
			active = excluded.active,
			variation_enabled = excluded.variation_enabled,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := d.db.ExecContext(ctx, query,
		tpl.Channel, tpl.Slug, tpl.Content, tpl.Category, tpl.Active, tpl.VariationEnabled)
	if err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}
	return nil
}
