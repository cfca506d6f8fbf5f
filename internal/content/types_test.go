package content

import "testing"

func TestParseType(t *testing.T) {
	tests := []struct {
		input  string
		want   Type
		wantOK bool
	}{
		{"essay", TypeEssay, true},
		{"essays", TypeEssay, true},
		{" Essays ", TypeEssay, true},
		{"blog", TypeBlog, true},
		{"lecture-notes", TypeLectureNote, true},
		{"lecture-note", TypeLectureNote, true},
		{"conspiracies", TypeConspiracy, true},
		{"verse", TypeVerse, true},
		{"not-a-real-type", "", false},
		{"sequences", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseType(tt.input)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseType(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestAllTypes_RoutesAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, typ := range AllTypes() {
		if !typ.Valid() {
			t.Errorf("AllTypes() returned invalid type %q", typ)
		}
		route := typ.Route()
		if seen[route] {
			t.Errorf("duplicate route %q", route)
		}
		seen[route] = true
		if route == SequenceRoute || route == AllRoute {
			t.Errorf("route %q collides with a reserved discriminator", route)
		}
	}
	if len(seen) != 13 {
		t.Errorf("len(AllTypes()) = %d, want 13", len(seen))
	}
}

func TestParseState(t *testing.T) {
	tests := []struct {
		input  string
		want   State
		wantOK bool
	}{
		{"", StateActive, true},
		{"active", StateActive, true},
		{"Hidden", StateHidden, true},
		{"draft", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseState(tt.input)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseState(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestRecordValidate(t *testing.T) {
	r := Record{Type: "essays", Slug: "a", Title: "A"}
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if r.Type != TypeEssay {
		t.Errorf("Type = %q, want canonical %q", r.Type, TypeEssay)
	}

	bad := []Record{
		{Type: "podcast", Slug: "a", Title: "A"},
		{Type: TypeEssay, Slug: "", Title: "A"},
		{Type: TypeEssay, Slug: "a/b", Title: "A"},
		{Type: TypeEssay, Slug: "a", Title: " "},
		{Type: TypeEssay, Slug: "a", Title: "A", State: "archived"},
	}
	for i, r := range bad {
		if err := r.Validate(); err == nil {
			t.Errorf("bad[%d].Validate() = nil, want error", i)
		}
	}
}
