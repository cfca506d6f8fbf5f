package ops

import (
	"context"
	"strings"

	"github.com/gorilla/feeds"

	"github.com/krisyotam/krisyotam.com-sub010/internal/content"
	"github.com/krisyotam/krisyotam.com-sub010/internal/errors"
)

// FeedInput contains parameters for the Feed operation.
type FeedInput struct {
	Type  string // optional: one type, or empty / "all" for every enabled type
	Limit int    // default: config feed_limit
}

// Feed renders the newest active items as an RSS 2.0 document.
func (r *Repository) Feed(ctx context.Context, input FeedInput) ([]byte, error) {
	var (
		items []content.Item
		title = r.cfg.SiteTitle
		err   error
	)
	name := strings.TrimSpace(input.Type)
	if name == "" || strings.EqualFold(name, content.AllRoute) {
		items, err = r.ActiveContent(ctx)
	} else {
		var t content.Type
		t, err = r.ResolveType(name)
		if err != nil {
			return nil, err
		}
		title = title + " - " + content.TitleFromSlug(t.Route())
		items, err = r.ActiveContentByType(ctx, t)
	}
	if err != nil {
		return nil, err
	}

	limit := input.Limit
	if limit <= 0 {
		limit = r.cfg.FeedLimit
	}
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	if len(items) > limit {
		items = items[:limit]
	}

	base := strings.TrimRight(r.cfg.BaseURL, "/")
	feed := &feeds.Feed{
		Title:       title,
		Link:        &feeds.Link{Href: base + "/"},
		Description: title,
		Items:       make([]*feeds.Item, 0, len(items)),
	}
	for i, it := range items {
		link := base + it.URL
		entry := &feeds.Item{
			Title:       it.Title,
			Link:        &feeds.Link{Href: link},
			Id:          link,
			Description: it.Preview,
		}
		if _, ts, ok := content.NormalizeDate(it.StartDate); ok {
			entry.Created = ts
			if i == 0 {
				feed.Updated = ts
			}
		}
		feed.Items = append(feed.Items, entry)
	}

	// category goes on the rendered RSS items
	doc := (&feeds.Rss{Feed: feed}).RssFeed()
	for i, it := range items {
		doc.Items[i].Category = it.Category.Title
	}

	out, err := feeds.ToXML(doc)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return []byte(out), nil
}
