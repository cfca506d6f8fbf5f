package ops

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/krisyotam/krisyotam.com-sub010/internal/content"
	"github.com/krisyotam/krisyotam.com-sub010/internal/errors"
)

// ContentByType returns every item of t regardless of state, in store order.
func (r *Repository) ContentByType(ctx context.Context, t content.Type) ([]content.Item, error) {
	records, err := r.records(ctx, t)
	if err != nil {
		return nil, err
	}
	idx := r.categoryIndex(ctx)

	items := make([]content.Item, 0, len(records))
	for _, rec := range records {
		items = append(items, content.ToPublicItem(rec, idx))
	}
	return items, nil
}

// ActiveContentByType returns the active items of t, newest first.
func (r *Repository) ActiveContentByType(ctx context.Context, t content.Type) ([]content.Item, error) {
	records, err := r.records(ctx, t)
	if err != nil {
		return nil, err
	}
	return shapeActive(records, r.categoryIndex(ctx)), nil
}

// CategoriesByType returns the categories referenced by active items of t,
// each with the number of referencing items. Ordered by count descending,
// then slug ascending.
func (r *Repository) CategoriesByType(ctx context.Context, t content.Type) ([]content.Category, error) {
	records, err := r.records(ctx, t)
	if err != nil {
		return nil, err
	}
	return countCategories(records, r.categoryIndex(ctx)), nil
}

// TagsByType returns the tags referenced by active items of t, each with the
// number of referencing items. Ordered by count descending, then slug ascending.
func (r *Repository) TagsByType(ctx context.Context, t content.Type) ([]content.Tag, error) {
	records, err := r.records(ctx, t)
	if err != nil {
		return nil, err
	}
	return countTags(records, r.tagTitles(ctx)), nil
}

// records fetches the raw records of an enabled type.
func (r *Repository) records(ctx context.Context, t content.Type) ([]content.Record, error) {
	if !r.enabled[t] {
		return nil, errors.NewUnknownType(string(t))
	}
	records, err := r.store.ContentByType(ctx, t)
	if err != nil {
		return nil, storeErr(ctx, t.Route(), err)
	}
	return records, nil
}

// categoryIndex loads the category table. A failure degrades to an empty
// index, so references resolve to their slugs.
func (r *Repository) categoryIndex(ctx context.Context) content.CategoryIndex {
	categories, err := r.store.Categories(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.log.Warn("category table unavailable", zap.Error(err))
		}
		return content.CategoryIndex{}
	}
	return content.NewCategoryIndex(categories)
}

// tagTitles loads stored tag display titles. A failure degrades to derived titles.
func (r *Repository) tagTitles(ctx context.Context) map[string]string {
	tags, err := r.store.Tags(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.log.Warn("tag table unavailable", zap.Error(err))
		}
		return nil
	}
	titles := make(map[string]string, len(tags))
	for _, t := range tags {
		if t.Title != "" {
			titles[content.Slugify(t.Slug)] = t.Title
		}
	}
	return titles
}

func shapeActive(records []content.Record, idx content.CategoryIndex) []content.Item {
	items := make([]content.Item, 0, len(records))
	for _, rec := range records {
		if !rec.IsActive() {
			continue
		}
		items = append(items, content.ToPublicItem(rec, idx))
	}
	content.SortNewestFirst(items)
	return items
}

func countCategories(records []content.Record, idx content.CategoryIndex) []content.Category {
	counts := make(map[string]*content.Category)
	for _, rec := range records {
		if !rec.IsActive() {
			continue
		}
		ref := idx.Resolve(rec.Category)
		c, ok := counts[ref.Slug]
		if !ok {
			c = &content.Category{Slug: ref.Slug, Title: ref.Title}
			if stored, ok := idx[ref.Slug]; ok {
				c.Description = stored.Description
				c.Preview = stored.Preview
				c.Importance = stored.Importance
				c.Order = stored.Order
			}
			counts[ref.Slug] = c
		}
		c.Count++
	}

	result := make([]content.Category, 0, len(counts))
	for _, c := range counts {
		result = append(result, *c)
	}
	sortCategories(result)
	return result
}

func countTags(records []content.Record, titles map[string]string) []content.Tag {
	counts := make(map[string]int)
	for _, rec := range records {
		if !rec.IsActive() {
			continue
		}
		for _, slug := range content.NormalizeTags(rec.Tags) {
			counts[slug]++
		}
	}

	result := make([]content.Tag, 0, len(counts))
	for slug, n := range counts {
		title, ok := titles[slug]
		if !ok {
			title = content.TitleFromSlug(slug)
		}
		result = append(result, content.Tag{Slug: slug, Title: title, Count: n})
	}
	sortTags(result)
	return result
}

func sortCategories(cs []content.Category) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Count != cs[j].Count {
			return cs[i].Count > cs[j].Count
		}
		return cs[i].Slug < cs[j].Slug
	})
}

func sortTags(ts []content.Tag) {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].Count != ts[j].Count {
			return ts[i].Count > ts[j].Count
		}
		return ts[i].Slug < ts[j].Slug
	})
}
