package content

import "strings"

// Type discriminates content items into independently listable collections.
type Type string

const (
	TypeBlog        Type = "blog"
	TypeEssay       Type = "essay"
	TypeNote        Type = "note"
	TypePaper       Type = "paper"
	TypeReview      Type = "review"
	TypeFiction     Type = "fiction"
	TypeCase        Type = "case"
	TypeDossier     Type = "dossier"
	TypeConspiracy  Type = "conspiracy"
	TypeLiber       Type = "liber"
	TypeProof       Type = "proof"
	TypeLectureNote Type = "lecture-note"
	TypeVerse       Type = "verse"
)

// Discriminators that are not item types but are accepted by the outer surfaces.
const (
	SequenceRoute = "sequences"
	AllRoute      = "all"
)

// typeRoutes maps each type to its plural route segment, in display order.
var typeRoutes = []struct {
	typ   Type
	route string
}{
	{TypeBlog, "blog"},
	{TypeEssay, "essays"},
	{TypeNote, "notes"},
	{TypePaper, "papers"},
	{TypeReview, "reviews"},
	{TypeFiction, "fiction"},
	{TypeCase, "cases"},
	{TypeDossier, "dossiers"},
	{TypeConspiracy, "conspiracies"},
	{TypeLiber, "libers"},
	{TypeProof, "proofs"},
	{TypeLectureNote, "lecture-notes"},
	{TypeVerse, "verse"},
}

// AllTypes returns every known content type in display order.
func AllTypes() []Type {
	types := make([]Type, len(typeRoutes))
	for i, tr := range typeRoutes {
		types[i] = tr.typ
	}
	return types
}

// Route returns the plural path segment for t ("essay" → "essays").
func (t Type) Route() string {
	for _, tr := range typeRoutes {
		if tr.typ == t {
			return tr.route
		}
	}
	return string(t)
}

// Valid reports whether t is a known content type.
func (t Type) Valid() bool {
	for _, tr := range typeRoutes {
		if tr.typ == t {
			return true
		}
	}
	return false
}

// ParseType resolves a discriminator given either as the canonical type
// name or as its route ("essay" and "essays" both yield TypeEssay).
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseType(s string) (Type, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", false
	}
	for _, tr := range typeRoutes {
		if string(tr.typ) == s || tr.route == s {
			return tr.typ, true
		}
	}
	return "", false
}

// State controls public visibility of an item or sequence.
type State string

const (
	StateActive State = "active"
	StateHidden State = "hidden"
)

// ParseState normalizes a stored state value. Empty means active.
func ParseState(s string) (State, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "active":
		return StateActive, true
	case "hidden":
		return StateHidden, true
	}
	return "", false
}
