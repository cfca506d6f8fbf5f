package content

import (
	"fmt"
	"strings"
)

// Validate checks a record at the store boundary and canonicalizes its type
// discriminator (a route such as "essays" becomes "essay").
func (r *Record) Validate() error {
	t, ok := ParseType(string(r.Type))
	if !ok {
		return fmt.Errorf("unknown type %q", r.Type)
	}
	r.Type = t

	if err := validateSlug(r.Slug); err != nil {
		return err
	}
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%s %q: title is required", r.Type, r.Slug)
	}
	if _, ok := ParseState(r.State); !ok {
		return fmt.Errorf("%s %q: state must be active or hidden, got %q", r.Type, r.Slug, r.State)
	}
	return nil
}

// Validate checks a category at the store boundary.
func (c *Category) Validate() error {
	if err := validateSlug(c.Slug); err != nil {
		return fmt.Errorf("category: %w", err)
	}
	return nil
}

// validateSlug requires a non-empty slug free of path separators and whitespace.
func validateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("slug is required")
	}
	if strings.ContainsAny(slug, "/\\ \t\n") {
		return fmt.Errorf("slug %q contains separators or whitespace", slug)
	}
	return nil
}
