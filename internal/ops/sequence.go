package ops

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/krisyotam/krisyotam.com-sub010/internal/content"
	"github.com/krisyotam/krisyotam.com-sub010/internal/errors"
)

// SequenceBySlug returns a sequence with its posts resolved to titles and
// URLs, in order. Posts that are missing, hidden, of a disabled type, or
// whose store read fails are dropped with a warning. A hidden sequence is
// NOT_FOUND unless includeHidden is set.
func (r *Repository) SequenceBySlug(ctx context.Context, slug string, includeHidden bool) (*content.PublicSequence, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, errors.NewValidation("slug must not be empty")
	}

	s, err := r.store.SequenceBySlug(ctx, slug)
	if err != nil {
		return nil, storeErr(ctx, content.SequenceRoute, err)
	}
	if !includeHidden && !s.IsActive() {
		return nil, errors.NewNotFound("sequence", slug)
	}

	ps := content.ToPublicSequence(*s)
	idx := r.categoryIndex(ctx)

	resolved := 0
	if len(s.Sections) > 0 {
		ps.Sections = make([]content.SequenceSectionView, 0, len(s.Sections))
		for _, sec := range s.Sections {
			entries := r.resolvePosts(ctx, slug, sec.Posts, idx)
			resolved += len(entries)
			ps.Sections = append(ps.Sections, content.SequenceSectionView{
				Title: sec.Title,
				Posts: entries,
			})
		}
	} else {
		ps.Posts = r.resolvePosts(ctx, slug, s.Posts, idx)
		resolved = len(ps.Posts)
	}
	ps.PostCount = resolved

	if ctx.Err() != nil {
		return nil, errors.NewCancelled("sequence " + slug)
	}
	return &ps, nil
}

// resolvePosts looks up each post in render order.
func (r *Repository) resolvePosts(ctx context.Context, seq string, posts []content.SequencePost, idx content.CategoryIndex) []content.SequenceEntry {
	entries := make([]content.SequenceEntry, 0, len(posts))
	for _, p := range content.SortedPosts(posts) {
		rec, err := r.ContentBySlug(ctx, p.Type, p.Slug, false)
		if err != nil {
			if ctx.Err() == nil {
				r.log.Warn("sequence post dropped",
					zap.String("sequence", seq),
					zap.String("type", string(p.Type)),
					zap.String("slug", p.Slug),
					zap.Error(err))
			}
			continue
		}
		item := content.ToPublicItem(*rec, idx)
		entries = append(entries, content.SequenceEntry{
			Slug:      item.Slug,
			Type:      item.Type,
			Order:     p.Order,
			Title:     item.Title,
			Preview:   item.Preview,
			StartDate: item.StartDate,
			URL:       item.URL,
		})
	}
	return entries
}

// Sequences returns the active sequences, newest first, with declared post
// counts and without per-post resolution.
func (r *Repository) Sequences(ctx context.Context) ([]content.PublicSequence, error) {
	seqs, err := r.store.Sequences(ctx)
	if err != nil {
		return nil, storeErr(ctx, content.SequenceRoute, err)
	}

	result := make([]content.PublicSequence, 0, len(seqs))
	for _, s := range seqs {
		if !s.IsActive() {
			continue
		}
		result = append(result, content.ToPublicSequence(s))
	}
	content.SortSequencesNewestFirst(result)
	return result, nil
}
