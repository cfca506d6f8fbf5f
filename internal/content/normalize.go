package content

import (
	"strings"
	"time"
	"unicode"

	"github.com/gosimple/slug"
)

// Slugify normalizes a free-form reference into a URL-safe ASCII slug.
// Letters are transliterated ("Café" → "cafe"), underscores count as
// separators, and every other run of non-alphanumerics becomes one dash.
func Slugify(s string) string {
	return slug.Make(strings.ReplaceAll(s, "_", " "))
}

// TitleFromSlug derives a display title from a slug ("machine-learning" → "Machine Learning").
func TitleFromSlug(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' })
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// dateOnlyLayouts are accepted date forms without a time of day.
var dateOnlyLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2006-01",
	"2006",
}

// dateTimeLayouts are accepted timestamp forms.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// NormalizeDate coerces a date-like string to ISO-8601.
// Date-only inputs become "YYYY-MM-DD"; inputs with a time become RFC 3339 in UTC.
// ok is false when the value is empty or unparseable; iso is then the trimmed input.
func NormalizeDate(s string) (iso string, t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", time.Time{}, false
	}

	for _, layout := range dateTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			parsed = parsed.UTC()
			return parsed.Format(time.RFC3339), parsed, true
		}
	}
	for _, layout := range dateOnlyLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed.Format("2006-01-02"), parsed, true
		}
	}

	return s, time.Time{}, false
}
