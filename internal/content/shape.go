package content

import (
	"slices"
	"strings"
	"time"
)

// Defaults applied by the shaping layer when a record leaves a field absent.
const (
	DefaultStatus     = "Draft"
	DefaultConfidence = "possible"
	DefaultImportance = 0

	UncategorizedSlug  = "uncategorized"
	UncategorizedTitle = "Uncategorized"
)

// CategoryIndex resolves category slugs against the store's category table.
type CategoryIndex map[string]Category

// NewCategoryIndex builds a lookup from a category list. Later duplicates win.
func NewCategoryIndex(categories []Category) CategoryIndex {
	idx := make(CategoryIndex, len(categories))
	for _, c := range categories {
		idx[c.Slug] = c
	}
	return idx
}

// Resolve maps a category slug reference to {slug, title}.
// An empty reference resolves to "uncategorized"; an unknown slug is passed
// through with its slug as title.
func (idx CategoryIndex) Resolve(ref string) CategoryRef {
	slug := strings.TrimSpace(ref)
	if slug == "" {
		return CategoryRef{Slug: UncategorizedSlug, Title: UncategorizedTitle}
	}
	if c, ok := idx[slug]; ok && c.Title != "" {
		return CategoryRef{Slug: c.Slug, Title: c.Title}
	}
	return CategoryRef{Slug: slug, Title: slug}
}

// ToPublicItem converts a raw record into its public shape.
func ToPublicItem(r Record, categories CategoryIndex) Item {
	category := categories.Resolve(r.Category)

	state, ok := ParseState(r.State)
	if !ok {
		state = StateHidden
	}

	item := Item{
		Slug:       r.Slug,
		Type:       r.Type,
		Title:      r.Title,
		Subtitle:   deref(r.Subtitle),
		Preview:    deref(r.Preview),
		StartDate:  isoDate(r.StartDate),
		EndDate:    isoDate(deref(r.EndDate)),
		Category:   category,
		Tags:       NormalizeTags(r.Tags),
		Status:     orDefault(r.Status, DefaultStatus),
		Confidence: orDefault(r.Confidence, DefaultConfidence),
		Importance: DefaultImportance,
		State:      state,
		CoverImage: deref(r.CoverImage),
	}
	if r.Importance != nil {
		item.Importance = *r.Importance
	}
	item.URL = ItemURL(r.Type, category.Slug, r.Slug)

	return item
}

// ItemURL builds the navigable path for an item.
func ItemURL(t Type, categorySlug, slug string) string {
	if categorySlug == "" {
		categorySlug = UncategorizedSlug
	}
	return "/" + t.Route() + "/" + categorySlug + "/" + slug
}

// NormalizeTags slugifies tag references, dropping empties and duplicates
// while keeping first-occurrence order. Never returns nil.
func NormalizeTags(tags []string) []string {
	result := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		slug := Slugify(t)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		result = append(result, slug)
	}
	return result
}

// SortNewestFirst orders items by start date descending, then slug ascending,
// then type ascending. Items without a parseable date sort last.
func SortNewestFirst(items []Item) {
	slices.SortStableFunc(items, func(a, b Item) int {
		return CompareNewestFirst(a.StartDate, a.Slug, string(a.Type), b.StartDate, b.Slug, string(b.Type))
	})
}

// CompareNewestFirst is the listing comparator shared by items and sequences.
func CompareNewestFirst(aDate, aSlug, aType, bDate, bSlug, bType string) int {
	at, bt := parseSortDate(aDate), parseSortDate(bDate)
	if !at.Equal(bt) {
		if at.After(bt) {
			return -1
		}
		return 1
	}
	if c := strings.Compare(aSlug, bSlug); c != 0 {
		return c
	}
	return strings.Compare(aType, bType)
}

func parseSortDate(s string) time.Time {
	_, t, ok := NormalizeDate(s)
	if !ok {
		return time.Time{}
	}
	return t
}

func isoDate(s string) string {
	iso, _, _ := NormalizeDate(s)
	return iso
}

func orDefault(s *string, def string) string {
	if s == nil {
		return def
	}
	if v := strings.TrimSpace(*s); v != "" {
		return v
	}
	return def
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
