package models

import "time"

// Template holds raw message content with {{variable}} placeholders. Editing
// a template affects future resolutions only; resolved content is frozen into
// the ledger at send time.
type Template struct {
	ID               int64     `db:"id"`
	Channel          Channel   `db:"channel"`
	Slug             string    `db:"slug"`
	Content          string    `db:"content"`
	Category         string    `db:"category"`
	Active           bool      `db:"active"`
	VariationEnabled bool      `db:"variation_enabled"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}
