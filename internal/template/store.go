package template

import (
	"context"
	"regexp"

	apperrors "mensageiro/internal/errors"
	"mensageiro/internal/models"
)

// placeholderPattern matches {{variable}} placeholders, tolerating whitespace
// inside the braces.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.\-]+)\s*\}\}`)

// TemplateReader is the slice of the store the resolver needs.
type TemplateReader interface {
	GetTemplateBySlug(ctx context.Context, slug string) (*models.Template, error)
}

// Store resolves templates into final message content. Resolution is eager:
// a message carries its substituted content from the moment it is created,
// so later template edits never rewrite in-flight messages.
type Store struct {
	db TemplateReader
}

func NewStore(db TemplateReader) *Store {
	return &Store{db: db}
}

// Resolved carries the substituted text plus the template attributes callers
// gate on.
type Resolved struct {
	Text             string
	Channel          models.Channel
	Category         string
	VariationEnabled bool
}

// Resolve fetches the active template by slug and substitutes every
// {{key}} occurrence with the matching value from vars. Placeholders with no
// matching variable are left verbatim: a missing optional field must not
// block a send.
func (s *Store) Resolve(ctx context.Context, slug string, vars map[string]string) (*Resolved, error) {
	tpl, err := s.db.GetTemplateBySlug(ctx, slug)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to load template")
	}
	if tpl == nil || !tpl.Active {
		return nil, apperrors.New(apperrors.ErrCodeTemplateNotFound, "template not found or inactive").
			WithContext("slug", slug)
	}

	text := placeholderPattern.ReplaceAllStringFunc(tpl.Content, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		if value, ok := vars[key]; ok {
			return value
		}
		return match
	})

	return &Resolved{
		Text:             text,
		Channel:          tpl.Channel,
		Category:         tpl.Category,
		VariationEnabled: tpl.VariationEnabled,
	}, nil
}
