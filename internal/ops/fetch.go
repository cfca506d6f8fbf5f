package ops

import (
	"context"
	"strings"

	"github.com/krisyotam/krisyotam.com-sub010/internal/content"
	"github.com/krisyotam/krisyotam.com-sub010/internal/errors"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	Type          string // required
	Slug          string // required
	IncludeHidden bool
}

// FetchOutput is a single item with its rendered body.
type FetchOutput struct {
	content.Item        // embedded (copy, not pointer)
	BodyHTML     string `json:"body_html,omitempty"`
}

// Fetch retrieves one item by (type, slug). Hidden items are NOT_FOUND
// unless IncludeHidden is set.
func (r *Repository) Fetch(ctx context.Context, input FetchInput) (*FetchOutput, error) {
	t, err := r.ResolveType(input.Type)
	if err != nil {
		return nil, err
	}
	slug := strings.TrimSpace(input.Slug)
	if slug == "" {
		return nil, errors.NewValidation("slug must not be empty")
	}

	rec, err := r.ContentBySlug(ctx, t, slug, input.IncludeHidden)
	if err != nil {
		return nil, err
	}

	output := &FetchOutput{
		Item: content.ToPublicItem(*rec, r.categoryIndex(ctx)),
	}
	if rec.Body != nil {
		html, err := content.RenderMarkdown(*rec.Body)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		output.BodyHTML = html
	}
	return output, nil
}

// ContentBySlug returns the raw record at (t, slug). Hidden records are
// NOT_FOUND unless includeHidden is set.
func (r *Repository) ContentBySlug(ctx context.Context, t content.Type, slug string, includeHidden bool) (*content.Record, error) {
	if !r.enabled[t] {
		return nil, errors.NewUnknownType(string(t))
	}
	rec, err := r.store.ContentBySlug(ctx, t, slug)
	if err != nil {
		return nil, storeErr(ctx, t.Route(), err)
	}
	if !includeHidden && !rec.IsActive() {
		return nil, errors.NewNotFound(string(t), slug)
	}
	return rec, nil
}
