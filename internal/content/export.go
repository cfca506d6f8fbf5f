package content

// ExportKind tags each record line in a JSONL export.
type ExportKind string

const (
	KindCategory ExportKind = "category"
	KindTag      ExportKind = "tag"
	KindItem     ExportKind = "item"
	KindSequence ExportKind = "sequence"
)

// ExportSchemaVersion is written into the header line of every export.
const ExportSchemaVersion = "1.0"

// ExportRecord is one line of a JSONL export file.
// The first line is a header (SiteExport true); every other line carries
// exactly one payload matching Kind.
type ExportRecord struct {
	// Header fields (only present in header line)
	SiteExport    bool   `json:"_site_export,omitempty"`
	SchemaVersion string `json:"schema_version,omitempty"`
	ExportedAt    int64  `json:"exported_at,omitempty"`

	Kind     ExportKind `json:"kind,omitempty"`
	Category *Category  `json:"category,omitempty"`
	Tag      *Tag       `json:"tag,omitempty"`
	Item     *Record    `json:"item,omitempty"`
	Sequence *Sequence  `json:"sequence,omitempty"`
}

// Slug returns the payload's slug, for error reporting.
func (r *ExportRecord) Slug() string {
	switch {
	case r.Category != nil:
		return r.Category.Slug
	case r.Tag != nil:
		return r.Tag.Slug
	case r.Item != nil:
		return r.Item.Slug
	case r.Sequence != nil:
		return r.Sequence.Slug
	}
	return ""
}
