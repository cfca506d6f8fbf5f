package docstore

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/krisyotam/krisyotam.com-sub010/internal/content"
	"github.com/krisyotam/krisyotam.com-sub010/internal/errors"
)

func writeFile(t *testing.T, root, rel, body string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
}

func newStore(t *testing.T, root string) *Store {
	t.Helper()
	s, err := New(root)
	require.NoError(t, err)
	return s
}

func TestNew_MissingDir(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestContentByType_JSONThenMarkdown(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "content/essays.json", `{"essays": [
		{"slug": "b", "title": "B", "start_date": "2024-01-02", "category": "phil", "tags": ["x"]},
		{"slug": "a", "title": "A", "start_date": "2024-01-01", "state": "hidden"}
	]}`)
	writeFile(t, root, "content/essays/z-post.md", "---\ntitle: Zed\nstart_date: 2023-05-01\ntags: [one, two]\nimportance: 8\n---\n\n# Heading\n\nBody text.\n")
	writeFile(t, root, "content/essays/notes.txt", "ignored")

	s := newStore(t, root)
	records, err := s.ContentByType(context.Background(), content.TypeEssay)
	require.NoError(t, err)

	var slugs []string
	for _, r := range records {
		slugs = append(slugs, r.Slug)
		require.Equal(t, content.TypeEssay, r.Type)
	}
	if diff := cmp.Diff([]string{"b", "a", "z-post"}, slugs); diff != "" {
		t.Errorf("slug order mismatch (-want +got):\n%s", diff)
	}

	md := records[2]
	require.Equal(t, "Zed", md.Title)
	require.Equal(t, "2023-05-01", md.StartDate)
	require.Equal(t, []string{"one", "two"}, md.Tags)
	require.NotNil(t, md.Importance)
	require.Equal(t, 8, *md.Importance)
	require.NotNil(t, md.Body)
	require.Equal(t, "# Heading\n\nBody text.", *md.Body)
}

func TestContentByType_ArrayFormAndRouteType(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "content/lecture-notes.json", `[{"slug": "l1", "title": "L1", "type": "lecture-notes"}]`)

	s := newStore(t, root)
	records, err := s.ContentByType(context.Background(), content.TypeLectureNote)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, content.TypeLectureNote, records[0].Type)
}

func TestMissingFiles(t *testing.T) {
	ctx := context.Background()

	t.Run("type without a file is empty", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "content/notes.json", `[{"slug": "a", "title": "A"}]`)
		s := newStore(t, root)

		records, err := s.ContentByType(ctx, content.TypeVerse)
		require.NoError(t, err)
		require.Empty(t, records)

		seqs, err := s.Sequences(ctx)
		require.NoError(t, err)
		require.Empty(t, seqs)
	})

	t.Run("content directory removed", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "sequences.json", `[]`)
		s := newStore(t, root)

		_, err := s.ContentByType(ctx, content.TypeVerse)
		require.ErrorIs(t, err, fs.ErrNotExist)

		// collections at the root still read
		_, err = s.Categories(ctx)
		require.NoError(t, err)
	})

	t.Run("root removed", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "content/notes.json", `[{"slug": "a", "title": "A"}]`)
		s := newStore(t, root)
		require.NoError(t, os.RemoveAll(root))

		_, err := s.ContentByType(ctx, content.TypeNote)
		require.ErrorIs(t, err, fs.ErrNotExist)
		_, err = s.ContentBySlug(ctx, content.TypeNote, "a")
		require.ErrorIs(t, err, fs.ErrNotExist)
		_, err = s.Categories(ctx)
		require.ErrorIs(t, err, fs.ErrNotExist)
		_, err = s.Tags(ctx)
		require.ErrorIs(t, err, fs.ErrNotExist)
		_, err = s.Sequences(ctx)
		require.ErrorIs(t, err, fs.ErrNotExist)
		_, err = s.SequenceBySlug(ctx, "s")
		require.ErrorIs(t, err, fs.ErrNotExist)
	})
}

func TestContentByType_RejectsMalformed(t *testing.T) {
	cases := map[string][2]string{
		"corrupt json":     {"content/notes.json", `[{"slug": "a",`},
		"missing title":    {"content/notes.json", `[{"slug": "a"}]`},
		"wrong type":       {"content/notes.json", `[{"slug": "a", "title": "A", "type": "essay"}]`},
		"bad state":        {"content/notes.json", `[{"slug": "a", "title": "A", "state": "archived"}]`},
		"duplicate slug":   {"content/notes.json", `[{"slug": "a", "title": "A"}, {"slug": "a", "title": "B"}]`},
		"missing wrapper":  {"content/notes.json", `{"items": []}`},
		"no front matter":  {"content/notes/a.md", "# just markdown"},
		"unterminated":     {"content/notes/a.md", "---\ntitle: A\n"},
		"bad front matter": {"content/notes/a.md", "---\ntitle: [unclosed\n---\n"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			root := t.TempDir()
			writeFile(t, root, c[0], c[1])
			s := newStore(t, root)
			_, err := s.ContentByType(context.Background(), content.TypeNote)
			require.Error(t, err)
		})
	}
}

func TestContentBySlug(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "content/blog/hello.md", "---\ntitle: Hello\nstate: hidden\n---\nHi\n")

	s := newStore(t, root)
	r, err := s.ContentBySlug(context.Background(), content.TypeBlog, "hello")
	require.NoError(t, err)
	require.Equal(t, "hello", r.Slug, "slug defaults to the file name")
	require.Equal(t, "hidden", r.State)

	_, err = s.ContentBySlug(context.Background(), content.TypeBlog, "missing")
	require.True(t, errors.Is(err, errors.ErrNotFound), "got %v", err)
}

func TestCategoriesTagsSequences(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "categories.json", `{"categories": [{"slug": "phil", "title": "Philosophy", "count": 99}]}`)
	writeFile(t, root, "tags.json", `[{"slug": "go", "title": "Go"}]`)
	writeFile(t, root, "sequences.json", `{"sequences": [
		{"slug": "intro", "title": "Intro", "posts": [{"slug": "a", "order": 1, "type": "essays"}]}
	]}`)

	s := newStore(t, root)
	ctx := context.Background()

	cats, err := s.Categories(ctx)
	require.NoError(t, err)
	require.Equal(t, []content.Category{{Slug: "phil", Title: "Philosophy"}}, cats, "stored counts are ignored")

	tags, err := s.Tags(ctx)
	require.NoError(t, err)
	require.Equal(t, []content.Tag{{Slug: "go", Title: "Go"}}, tags)

	seq, err := s.SequenceBySlug(ctx, "intro")
	require.NoError(t, err)
	require.Equal(t, content.TypeEssay, seq.Posts[0].Type)

	_, err = s.SequenceBySlug(ctx, "none")
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestSequences_RejectsDuplicateOrder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "sequences.json", `[{"slug": "s", "title": "S", "posts": [
		{"slug": "a", "order": 1, "type": "essay"},
		{"slug": "b", "order": 1, "type": "essay"}
	]}]`)

	s := newStore(t, root)
	_, err := s.Sequences(context.Background())
	require.Error(t, err)
}

func TestReadsAreNotCached(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "content/notes.json", `[{"slug": "a", "title": "A"}]`)

	s := newStore(t, root)
	ctx := context.Background()
	records, err := s.ContentByType(ctx, content.TypeNote)
	require.NoError(t, err)
	require.Len(t, records, 1)

	writeFile(t, root, "content/notes.json", `[{"slug": "a", "title": "A"}, {"slug": "b", "title": "B"}]`)
	records, err = s.ContentByType(ctx, content.TypeNote)
	require.NoError(t, err)
	require.Len(t, records, 2)
}

func TestContentByType_Cancelled(t *testing.T) {
	s := newStore(t, t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ContentByType(ctx, content.TypeNote)
	require.ErrorIs(t, err, context.Canceled)
}

func TestParseMarkdown_EmptyFrontMatter(t *testing.T) {
	r, err := ParseMarkdown([]byte("---\n---\nbody"))
	require.NoError(t, err)
	require.Equal(t, "", r.Title)
	require.NotNil(t, r.Body)
	require.Equal(t, "body", *r.Body)
}
