package ops

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/krisyotam/krisyotam.com-sub010/internal/content"
	"github.com/krisyotam/krisyotam.com-sub010/internal/errors"
)

// typeRecords is one type's contribution to an aggregate.
type typeRecords struct {
	t       content.Type
	records []content.Record
	failed  bool
}

// gatherActive fetches the records of every enabled type concurrently.
// A type whose store read fails contributes nothing and is logged; it never
// aborts the aggregate. Only cancellation of ctx is reported as an error.
func (r *Repository) gatherActive(ctx context.Context, op string) ([]typeRecords, error) {
	results := make([]typeRecords, len(r.types))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.concurrency)

	for i, t := range r.types {
		eg.Go(func() error {
			records, err := r.store.ContentByType(egCtx, t)
			if err != nil {
				if egCtx.Err() == nil {
					r.log.Warn("type skipped in aggregate",
						zap.String("op", op),
						zap.String("type", string(t)),
						zap.Error(err))
				}
				results[i] = typeRecords{t: t, failed: true}
				return nil
			}
			results[i] = typeRecords{t: t, records: records}
			return nil
		})
	}
	_ = eg.Wait()

	if ctx.Err() != nil {
		return nil, errors.NewCancelled(op)
	}
	return results, nil
}

// AllTags merges the per-type tag counts of every enabled type by slug.
func (r *Repository) AllTags(ctx context.Context) ([]content.Tag, error) {
	gathered, err := r.gatherActive(ctx, "all tags")
	if err != nil {
		return nil, err
	}
	titles := r.tagTitles(ctx)

	merged := make(map[string]*content.Tag)
	for _, g := range gathered {
		for _, tag := range countTags(g.records, titles) {
			if m, ok := merged[tag.Slug]; ok {
				m.Count += tag.Count
				continue
			}
			tag := tag
			merged[tag.Slug] = &tag
		}
	}

	result := make([]content.Tag, 0, len(merged))
	for _, tag := range merged {
		result = append(result, *tag)
	}
	sortTags(result)
	return result, nil
}

// AllCategories merges the per-type category counts of every enabled type by slug.
func (r *Repository) AllCategories(ctx context.Context) ([]content.Category, error) {
	gathered, err := r.gatherActive(ctx, "all categories")
	if err != nil {
		return nil, err
	}
	idx := r.categoryIndex(ctx)

	merged := make(map[string]*content.Category)
	for _, g := range gathered {
		for _, c := range countCategories(g.records, idx) {
			if m, ok := merged[c.Slug]; ok {
				m.Count += c.Count
				continue
			}
			c := c
			merged[c.Slug] = &c
		}
	}

	result := make([]content.Category, 0, len(merged))
	for _, c := range merged {
		result = append(result, *c)
	}
	sortCategories(result)
	return result, nil
}

// ActiveContent returns the active items of every enabled type, newest first.
func (r *Repository) ActiveContent(ctx context.Context) ([]content.Item, error) {
	gathered, err := r.gatherActive(ctx, "active content")
	if err != nil {
		return nil, err
	}
	idx := r.categoryIndex(ctx)

	var items []content.Item
	for _, g := range gathered {
		items = append(items, shapeActive(g.records, idx)...)
	}
	if items == nil {
		items = []content.Item{}
	}
	content.SortNewestFirst(items)
	return items, nil
}
