package ops

import (
	"context"
	"slices"
	"strings"

	"github.com/krisyotam/krisyotam.com-sub010/internal/content"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Type     string // required: canonical name, route, or "all"
	Category string // optional category slug filter
	Tag      string // optional tag filter
	Limit    int    // default: 20, max: 100
	Offset   int    // default: 0
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Route      string         `json:"-"`
	Items      []content.Item `json:"items"`
	Pagination Pagination     `json:"pagination"`
	Sort       string         `json:"sort"`
}

// List returns a page of active items of one type (or of every enabled type
// for "all"), newest first, optionally filtered by category and tag.
func (r *Repository) List(ctx context.Context, input ListInput) (*ListOutput, error) {
	var (
		items []content.Item
		route string
		err   error
	)
	if strings.EqualFold(strings.TrimSpace(input.Type), content.AllRoute) {
		route = content.AllRoute
		items, err = r.ActiveContent(ctx)
	} else {
		var t content.Type
		t, err = r.ResolveType(input.Type)
		if err != nil {
			return nil, err
		}
		route = t.Route()
		items, err = r.ActiveContentByType(ctx, t)
	}
	if err != nil {
		return nil, err
	}

	items = filterItems(items, input.Category, input.Tag)
	page, pagination := paginate(items, input.Limit, input.Offset)

	return &ListOutput{
		Route:      route,
		Items:      page,
		Pagination: pagination,
		Sort:       "start_date_desc",
	}, nil
}

// filterItems keeps items in the given category and carrying the given tag.
// Empty filters match everything.
func filterItems(items []content.Item, category, tag string) []content.Item {
	category = strings.TrimSpace(category)
	tag = content.Slugify(tag)
	if category == "" && tag == "" {
		return items
	}

	result := make([]content.Item, 0, len(items))
	for _, it := range items {
		if category != "" && it.Category.Slug != category {
			continue
		}
		if tag != "" && !slices.Contains(it.Tags, tag) {
			continue
		}
		result = append(result, it)
	}
	return result
}
