package content

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// SequencePost references a content item from a sequence.
type SequencePost struct {
	Slug  string `json:"slug" yaml:"slug"`
	Order int    `json:"order" yaml:"order"`
	Type  Type   `json:"type" yaml:"type"`
}

// SequenceSection is an optional named group of posts within a sequence.
type SequenceSection struct {
	Title string         `json:"title" yaml:"title"`
	Posts []SequencePost `json:"posts" yaml:"posts"`
}

// Sequence is a curated, ordered reading path through existing items.
// It carries either flat Posts or named Sections.
type Sequence struct {
	Slug       string            `json:"slug" yaml:"slug"`
	Title      string            `json:"title" yaml:"title"`
	Subtitle   *string           `json:"subtitle,omitempty" yaml:"subtitle"`
	Preview    *string           `json:"preview,omitempty" yaml:"preview"`
	StartDate  string            `json:"start_date" yaml:"start_date"`
	EndDate    *string           `json:"end_date,omitempty" yaml:"end_date"`
	Status     *string           `json:"status,omitempty" yaml:"status"`
	Confidence *string           `json:"confidence,omitempty" yaml:"confidence"`
	Importance *int              `json:"importance,omitempty" yaml:"importance"`
	State      string            `json:"state" yaml:"state"`
	CoverImage *string           `json:"cover_image,omitempty" yaml:"cover_image"`
	Posts      []SequencePost    `json:"posts,omitempty" yaml:"posts"`
	Sections   []SequenceSection `json:"sections,omitempty" yaml:"sections"`
}

// IsActive reports whether the sequence is publicly visible.
func (s *Sequence) IsActive() bool {
	st, ok := ParseState(s.State)
	return ok && st == StateActive
}

// PostCount returns the number of referenced posts across all sections.
func (s *Sequence) PostCount() int {
	n := len(s.Posts)
	for _, sec := range s.Sections {
		n += len(sec.Posts)
	}
	return n
}

// Validate checks a sequence at the store boundary: slug and title present,
// post references well-formed, and order values unique within each section
// (flat Posts count as one unnamed section). Post types are canonicalized.
func (s *Sequence) Validate() error {
	if err := validateSlug(s.Slug); err != nil {
		return fmt.Errorf("sequence: %w", err)
	}
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("sequence %q: title is required", s.Slug)
	}
	if _, ok := ParseState(s.State); !ok {
		return fmt.Errorf("sequence %q: state must be active or hidden, got %q", s.Slug, s.State)
	}
	if len(s.Posts) > 0 && len(s.Sections) > 0 {
		return fmt.Errorf("sequence %q: posts and sections are mutually exclusive", s.Slug)
	}

	if err := validatePosts(s.Slug, "", s.Posts); err != nil {
		return err
	}
	for i := range s.Sections {
		if err := validatePosts(s.Slug, s.Sections[i].Title, s.Sections[i].Posts); err != nil {
			return err
		}
	}
	return nil
}

func validatePosts(seq, section string, posts []SequencePost) error {
	orders := make(map[int]bool, len(posts))
	for i := range posts {
		p := &posts[i]
		t, ok := ParseType(string(p.Type))
		if !ok {
			return fmt.Errorf("sequence %q: post %q has unknown type %q", seq, p.Slug, p.Type)
		}
		p.Type = t
		if err := validateSlug(p.Slug); err != nil {
			return fmt.Errorf("sequence %q: post: %w", seq, err)
		}
		if orders[p.Order] {
			return fmt.Errorf("sequence %q: duplicate order %d in section %q", seq, p.Order, section)
		}
		orders[p.Order] = true
	}
	return nil
}

// SortedPosts returns a copy of posts in render order (order ascending).
func SortedPosts(posts []SequencePost) []SequencePost {
	sorted := slices.Clone(posts)
	slices.SortStableFunc(sorted, func(a, b SequencePost) int {
		return cmp.Compare(a.Order, b.Order)
	})
	return sorted
}

// SequenceEntry is a resolved, navigable post inside a public sequence.
type SequenceEntry struct {
	Slug      string `json:"slug"`
	Type      Type   `json:"type"`
	Order     int    `json:"order"`
	Title     string `json:"title"`
	Preview   string `json:"preview,omitempty"`
	StartDate string `json:"start_date"`
	URL       string `json:"url"`
}

// SequenceSectionView is a resolved section inside a public sequence.
type SequenceSectionView struct {
	Title string          `json:"title"`
	Posts []SequenceEntry `json:"posts"`
}

// PublicSequence is the public-facing shape of a sequence.
type PublicSequence struct {
	Slug       string                `json:"slug"`
	Title      string                `json:"title"`
	Subtitle   string                `json:"subtitle,omitempty"`
	Preview    string                `json:"preview,omitempty"`
	StartDate  string                `json:"start_date"`
	EndDate    string                `json:"end_date,omitempty"`
	Status     string                `json:"status"`
	Confidence string                `json:"confidence"`
	Importance int                   `json:"importance"`
	State      State                 `json:"state"`
	CoverImage string                `json:"cover_image,omitempty"`
	URL        string                `json:"url"`
	PostCount  int                   `json:"post_count"`
	Posts      []SequenceEntry       `json:"posts,omitempty"`
	Sections   []SequenceSectionView `json:"sections,omitempty"`
}

// ToPublicSequence shapes the sequence header with the same defaults as items.
// Posts and sections are left for the caller to resolve.
func ToPublicSequence(s Sequence) PublicSequence {
	state, ok := ParseState(s.State)
	if !ok {
		state = StateHidden
	}
	ps := PublicSequence{
		Slug:       s.Slug,
		Title:      s.Title,
		Subtitle:   deref(s.Subtitle),
		Preview:    deref(s.Preview),
		StartDate:  isoDate(s.StartDate),
		EndDate:    isoDate(deref(s.EndDate)),
		Status:     orDefault(s.Status, DefaultStatus),
		Confidence: orDefault(s.Confidence, DefaultConfidence),
		Importance: DefaultImportance,
		State:      state,
		CoverImage: deref(s.CoverImage),
		URL:        "/" + SequenceRoute + "/" + s.Slug,
		PostCount:  s.PostCount(),
	}
	if s.Importance != nil {
		ps.Importance = *s.Importance
	}
	return ps
}

// SortSequencesNewestFirst applies the listing order used for items.
func SortSequencesNewestFirst(seqs []PublicSequence) {
	slices.SortStableFunc(seqs, func(a, b PublicSequence) int {
		return CompareNewestFirst(a.StartDate, a.Slug, "", b.StartDate, b.Slug, "")
	})
}
