package content

// Record is a content item as it comes out of a record store, before shaping.
// Optional fields are pointers so that "absent" and "empty" stay distinct
// until the shaping layer applies defaults.
type Record struct {
	// ID is the store row id (a ULID for SQLite rows, empty for documents)
	ID string `json:"id,omitempty" yaml:"-"`

	Type  Type   `json:"type" yaml:"type"`
	Slug  string `json:"slug" yaml:"slug"`
	Title string `json:"title" yaml:"title"`

	Subtitle *string `json:"subtitle,omitempty" yaml:"subtitle"`
	Preview  *string `json:"preview,omitempty" yaml:"preview"`

	// StartDate and EndDate are date-like strings in whatever form the store holds
	StartDate string  `json:"start_date" yaml:"start_date"`
	EndDate   *string `json:"end_date,omitempty" yaml:"end_date"`

	// Category is a category slug reference
	Category string `json:"category" yaml:"category"`

	// Tags are tag references in author order; duplicates are not meaningful
	Tags []string `json:"tags" yaml:"tags"`

	Status     *string `json:"status,omitempty" yaml:"status"`
	Confidence *string `json:"confidence,omitempty" yaml:"confidence"`
	Importance *int    `json:"importance,omitempty" yaml:"importance"`

	// State is "active" or "hidden"; empty is treated as active
	State string `json:"state" yaml:"state"`

	CoverImage *string `json:"cover_image,omitempty" yaml:"cover_image"`

	// Body is the Markdown source, if the store holds one
	Body *string `json:"body,omitempty" yaml:"-"`
}

// IsActive reports whether the record is publicly visible.
func (r *Record) IsActive() bool {
	s, ok := ParseState(r.State)
	return ok && s == StateActive
}

// Item is the public-facing shape of a content item.
type Item struct {
	Slug       string      `json:"slug"`
	Type       Type        `json:"type"`
	Title      string      `json:"title"`
	Subtitle   string      `json:"subtitle,omitempty"`
	Preview    string      `json:"preview,omitempty"`
	StartDate  string      `json:"start_date"`
	EndDate    string      `json:"end_date,omitempty"`
	Category   CategoryRef `json:"category"`
	Tags       []string    `json:"tags"`
	Status     string      `json:"status"`
	Confidence string      `json:"confidence"`
	Importance int         `json:"importance"`
	State      State       `json:"state"`
	CoverImage string      `json:"cover_image,omitempty"`

	// URL is the navigable site path: /{route}/{category}/{slug}
	URL string `json:"url"`
}

// CategoryRef is a resolved category reference attached to an item.
type CategoryRef struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// Category is a named grouping referenced by many items.
type Category struct {
	Slug        string `json:"slug" yaml:"slug"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description"`
	Preview     string `json:"preview,omitempty" yaml:"preview"`
	Importance  int    `json:"importance,omitempty" yaml:"importance"`
	Order       int    `json:"order,omitempty" yaml:"order"`

	// Count is derived by aggregation (active items referencing the category); never stored
	Count int `json:"count"`
}

// Tag is a label implicitly created by being referenced.
// A store may keep display titles for some tags; Count is always derived.
type Tag struct {
	Slug  string `json:"slug" yaml:"slug"`
	Title string `json:"title" yaml:"title"`
	Count int    `json:"count"`
}
