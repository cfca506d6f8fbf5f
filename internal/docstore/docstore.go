// Package docstore is a record store over a directory of JSON documents and
// Markdown files with YAML front matter.
//
// Layout under the root directory:
//
//	content/<route>.json     items of one type (array, or object keyed by route)
//	content/<route>/*.md     one item per file; front matter + Markdown body
//	categories.json          category definitions
//	tags.json                optional tag display titles
//	sequences.json           sequences
//
// Every call re-reads the files; nothing is cached. Documents are validated
// as they are read and any malformed document fails the whole call. A type or
// collection without a file is empty, but a missing root or content/
// directory is an error.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/krisyotam/krisyotam.com-sub010/internal/content"
	"github.com/krisyotam/krisyotam.com-sub010/internal/errors"
)

// Store reads records from a document directory.
type Store struct {
	root string
}

// New returns a Store rooted at dir. The directory must exist.
func New(dir string) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("documents directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("documents directory %s is not a directory", dir)
	}
	return &Store{root: dir}, nil
}

// Root returns the document directory.
func (s *Store) Root() string {
	return s.root
}

// ContentByType returns every item of t: JSON document entries first in
// document order, then Markdown files in file name order.
func (s *Store) ContentByType(ctx context.Context, t content.Type) ([]content.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.checkDir("content"); err != nil {
		return nil, err
	}

	records, err := s.readJSONItems(t)
	if err != nil {
		return nil, err
	}

	mdRecords, err := s.readMarkdownItems(ctx, t)
	if err != nil {
		return nil, err
	}
	records = append(records, mdRecords...)

	seen := make(map[string]bool, len(records))
	for _, r := range records {
		if seen[r.Slug] {
			return nil, fmt.Errorf("%s: duplicate slug %q", t.Route(), r.Slug)
		}
		seen[r.Slug] = true
	}
	return records, nil
}

// ContentBySlug returns one item of t, hidden included.
func (s *Store) ContentBySlug(ctx context.Context, t content.Type, slug string) (*content.Record, error) {
	records, err := s.ContentByType(ctx, t)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].Slug == slug {
			return &records[i], nil
		}
	}
	return nil, errors.NewNotFound(string(t), slug)
}

// Categories returns the category definitions in document order.
func (s *Store) Categories(ctx context.Context) ([]content.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.checkDir(""); err != nil {
		return nil, err
	}
	var categories []content.Category
	if err := readCollection(filepath.Join(s.root, "categories.json"), "categories", &categories); err != nil {
		return nil, err
	}
	for i := range categories {
		if err := categories[i].Validate(); err != nil {
			return nil, fmt.Errorf("categories.json: %w", err)
		}
		categories[i].Count = 0
	}
	return categories, nil
}

// Tags returns the optional tag display titles.
func (s *Store) Tags(ctx context.Context) ([]content.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.checkDir(""); err != nil {
		return nil, err
	}
	var tags []content.Tag
	if err := readCollection(filepath.Join(s.root, "tags.json"), "tags", &tags); err != nil {
		return nil, err
	}
	for i := range tags {
		if tags[i].Slug == "" {
			return nil, fmt.Errorf("tags.json: entry %d: slug is required", i)
		}
		tags[i].Count = 0
	}
	return tags, nil
}

// Sequences returns every sequence in document order, hidden included.
func (s *Store) Sequences(ctx context.Context) ([]content.Sequence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.checkDir(""); err != nil {
		return nil, err
	}
	var seqs []content.Sequence
	if err := readCollection(filepath.Join(s.root, "sequences.json"), "sequences", &seqs); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(seqs))
	for i := range seqs {
		if err := seqs[i].Validate(); err != nil {
			return nil, fmt.Errorf("sequences.json: %w", err)
		}
		if seen[seqs[i].Slug] {
			return nil, fmt.Errorf("sequences.json: duplicate slug %q", seqs[i].Slug)
		}
		seen[seqs[i].Slug] = true
	}
	return seqs, nil
}

// SequenceBySlug returns one sequence, hidden included.
func (s *Store) SequenceBySlug(ctx context.Context, slug string) (*content.Sequence, error) {
	seqs, err := s.Sequences(ctx)
	if err != nil {
		return nil, err
	}
	for i := range seqs {
		if seqs[i].Slug == slug {
			return &seqs[i], nil
		}
	}
	return nil, errors.NewNotFound("sequence", slug)
}

// checkDir fails unless the directory rel under the root exists. An empty rel
// checks the root itself.
func (s *Store) checkDir(rel string) error {
	dir := filepath.Join(s.root, rel)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("documents directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("documents directory %s is not a directory", dir)
	}
	return nil
}

func (s *Store) readJSONItems(t content.Type) ([]content.Record, error) {
	path := filepath.Join(s.root, "content", t.Route()+".json")
	var records []content.Record
	if err := readCollection(path, t.Route(), &records); err != nil {
		return nil, err
	}
	for i := range records {
		if err := checkRecord(&records[i], t); err != nil {
			return nil, fmt.Errorf("%s: entry %d: %w", filepath.Base(path), i, err)
		}
	}
	return records, nil
}

func (s *Store) readMarkdownItems(ctx context.Context, t content.Type) ([]content.Record, error) {
	dir := filepath.Join(s.root, "content", t.Route())
	entries, err := os.ReadDir(dir)
	if stderrors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	// os.ReadDir already sorts by name; keep it explicit
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var records []content.Record
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".md" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		r, err := ParseMarkdown(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if r.Slug == "" {
			r.Slug = strings.TrimSuffix(e.Name(), ".md")
		}
		if err := checkRecord(r, t); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		records = append(records, *r)
	}
	return records, nil
}

// checkRecord validates r and pins it to the type of the file it came from.
func checkRecord(r *content.Record, t content.Type) error {
	if r.Type == "" {
		r.Type = t
	}
	if err := r.Validate(); err != nil {
		return err
	}
	if r.Type != t {
		return fmt.Errorf("item %q has type %q, want %q", r.Slug, r.Type, t)
	}
	return nil
}

var frontMatterDelim = []byte("---")

// ParseMarkdown splits a Markdown document into its YAML front matter and
// body. A document without front matter is rejected since it has no title.
func ParseMarkdown(data []byte) (*content.Record, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !bytes.HasPrefix(data, frontMatterDelim) {
		return nil, fmt.Errorf("missing front matter")
	}
	rest := data[len(frontMatterDelim):]
	nl := bytes.IndexByte(rest, '\n')
	if nl < 0 || len(bytes.TrimSpace(rest[:nl])) != 0 {
		return nil, fmt.Errorf("malformed front matter opening line")
	}
	rest = rest[nl+1:]

	var front, body []byte
	switch {
	case bytes.HasPrefix(rest, frontMatterDelim):
		// Empty front matter
		body = rest[len(frontMatterDelim):]
	default:
		end := bytes.Index(rest, []byte("\n---"))
		if end < 0 {
			return nil, fmt.Errorf("unterminated front matter")
		}
		front = rest[:end]
		body = rest[end+len("\n---"):]
	}
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = nil
	}

	var r content.Record
	if err := yaml.Unmarshal(front, &r); err != nil {
		return nil, fmt.Errorf("front matter: %w", err)
	}
	text := strings.TrimSpace(string(body))
	if text != "" {
		r.Body = &text
	}
	return &r, nil
}

// readCollection decodes a JSON file holding either an array or an object
// with the array under key. A missing file is an empty collection.
func readCollection(path, key string, out any) error {
	data, err := os.ReadFile(path)
	if stderrors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}

	if trimmed[0] == '{' {
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		raw, ok := wrapper[key]
		if !ok {
			return fmt.Errorf("%s: missing %q array", filepath.Base(path), key)
		}
		trimmed = raw
	}

	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return nil
}
