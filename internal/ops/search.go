package ops

import (
	"cmp"
	"context"
	"fmt"
	"html"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/krisyotam/krisyotam.com-sub010/internal/content"
	"github.com/krisyotam/krisyotam.com-sub010/internal/errors"
)

// Search limits
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
	MaxQueryLength     = 200
	MaxSnippetChars    = 300

	// titleWeight is how much more a title match counts than any other field.
	titleWeight = 5
)

// SearchInput contains parameters for the Search operation.
type SearchInput struct {
	Query    string // required
	Type     string // optional: one type, or empty / "all"
	Category string // optional filter
	Tag      string // optional filter
	Limit    int    // default: 20, max: 100
	Offset   int    // default: 0
}

// SearchResultItem wraps an item with a match snippet.
type SearchResultItem struct {
	content.Item
	// Snippet is HTML-safe: item text is escaped; only <b>...</b>
	// highlight tags are present.
	Snippet string `json:"snippet"`
	Score   int    `json:"score"`
}

// SearchOutput contains the result of the Search operation.
type SearchOutput struct {
	Items      []SearchResultItem `json:"items"`
	Pagination Pagination         `json:"pagination"`
	Sort       string             `json:"sort"` // "relevance"
}

// Search matches query terms against the title, subtitle, preview, category
// and tags of active items. Every term must match somewhere. Results are
// ranked by score (title matches weighted higher), then newest first.
func (r *Repository) Search(ctx context.Context, input SearchInput) (*SearchOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, errors.NewValidation("query is required")
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return nil, errors.NewValidation(fmt.Sprintf("query exceeds maximum length of %d characters", MaxQueryLength))
	}
	terms := strings.Fields(strings.ToLower(query))

	var (
		items []content.Item
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
		items, err = r.ActiveContentByType(ctx, t)
	}
	if err != nil {
		return nil, err
	}
	items = filterItems(items, input.Category, input.Tag)

	results := make([]SearchResultItem, 0)
	for _, it := range items {
		score := scoreItem(it, terms)
		if score == 0 {
			continue
		}
		results = append(results, SearchResultItem{Item: it, Score: score})
	}
	// items arrive newest first; a stable sort keeps that order within a score
	slices.SortStableFunc(results, byScoreDesc)

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	page, pagination := paginate(results, min(limit, MaxSearchLimit), input.Offset)
	for i := range page {
		page[i].Snippet = buildSnippet(page[i].Item, terms)
	}

	return &SearchOutput{
		Items:      page,
		Pagination: pagination,
		Sort:       "relevance",
	}, nil
}

// scoreItem counts term occurrences across the searchable fields. It returns
// 0 unless every term occurs in at least one field.
func scoreItem(it content.Item, terms []string) int {
	title := strings.ToLower(it.Title)
	rest := strings.ToLower(strings.Join([]string{
		it.Subtitle,
		it.Preview,
		it.Category.Title,
		strings.Join(it.Tags, " "),
	}, " "))

	score := 0
	for _, term := range terms {
		inTitle := strings.Count(title, term)
		inRest := strings.Count(rest, term)
		if inTitle+inRest == 0 {
			return 0
		}
		score += inTitle*titleWeight + inRest
	}
	return score
}

// buildSnippet highlights terms in the preview (or the title when there is
// none), escapes it, and truncates it to MaxSnippetChars.
func buildSnippet(it content.Item, terms []string) string {
	text := it.Preview
	if text == "" {
		text = it.Title
	}
	snippet := escapeSnippetHTML(markTerms(text, terms))
	return truncateSnippet(snippet, MaxSnippetChars)
}

const (
	openMarker  = "[[[B]]]"
	closeMarker = "[[[/B]]]"
)

// markTerms wraps case-insensitive term occurrences in highlight markers.
func markTerms(text string, terms []string) string {
	lower := strings.ToLower(text)
	if len(lower) != len(text) {
		// case folding changed byte offsets; leave unhighlighted
		return text
	}

	marked := make([]bool, len(text))
	for _, term := range terms {
		for from := 0; ; {
			i := strings.Index(lower[from:], term)
			if i < 0 {
				break
			}
			for j := from + i; j < from+i+len(term); j++ {
				marked[j] = true
			}
			from += i + len(term)
		}
	}

	var b strings.Builder
	in := false
	for i := 0; i < len(text); i++ {
		if marked[i] != in {
			if marked[i] {
				b.WriteString(openMarker)
			} else {
				b.WriteString(closeMarker)
			}
			in = marked[i]
		}
		b.WriteByte(text[i])
	}
	if in {
		b.WriteString(closeMarker)
	}
	return b.String()
}

// truncateSnippet truncates a snippet to approximately maxChars while:
// 1. Preserving valid UTF-8 (never splits multi-byte runes)
// 2. Preserving markup integrity (closes any open <b> tags)
// 3. Preferring word boundaries when possible
func truncateSnippet(s string, maxChars int) string {
	if maxChars <= 0 {
		return "..."
	}

	if len(s) <= maxChars {
		return s
	}

	// Find a safe truncation point that doesn't split UTF-8 runes
	truncateAt := maxChars
	for truncateAt > 0 && !utf8.RuneStart(s[truncateAt]) {
		truncateAt--
	}

	if truncateAt == 0 {
		return "..."
	}

	truncated := s[:truncateAt]

	// Trim any partial tag or entity suffix. The only tags present are <b>
	// and </b>; item text may contain entities such as &lt;.
	if lastLT := strings.LastIndex(truncated, "<"); lastLT != -1 && !strings.Contains(truncated[lastLT:], ">") {
		truncated = truncated[:lastLT]
	}
	if lastAmp := strings.LastIndex(truncated, "&"); lastAmp != -1 && !strings.Contains(truncated[lastAmp:], ";") {
		truncated = truncated[:lastAmp]
	}

	// Try to cut at word boundary if we're not losing too much content
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > truncateAt/2 {
		truncated = truncated[:lastSpace]
	}

	// Close any unclosed <b> tags
	unclosed := strings.Count(truncated, "<b>") - strings.Count(truncated, "</b>")
	for range unclosed {
		truncated += "</b>"
	}

	return truncated + "..."
}

// escapeSnippetHTML escapes item text in a snippet while preserving the
// highlight markers as <b> tags.
func escapeSnippetHTML(s string) string {
	const (
		openPlaceholder  = "\x00SITE_B_OPEN\x00"
		closePlaceholder = "\x00SITE_B_CLOSE\x00"
	)

	s = strings.ReplaceAll(s, openMarker, openPlaceholder)
	s = strings.ReplaceAll(s, closeMarker, closePlaceholder)

	s = html.EscapeString(s)

	s = strings.ReplaceAll(s, openPlaceholder, "<b>")
	s = strings.ReplaceAll(s, closePlaceholder, "</b>")

	return s
}

func byScoreDesc(a, b SearchResultItem) int {
	return cmp.Compare(b.Score, a.Score)
}
