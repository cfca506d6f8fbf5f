package db

import (
	"context"
	"database/sql"

	"github.com/krisyotam/krisyotam.com-sub010/internal/content"
)

// Store is the SQLite record store. It reads through the package queries
// and keeps no state besides the handle.
type Store struct {
	db *sql.DB
}

// NewStore wraps an initialized database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying handle for write paths such as import.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ContentByType(ctx context.Context, t content.Type) ([]content.Record, error) {
	return ListItemsByType(ctx, s.db, t)
}

func (s *Store) ContentBySlug(ctx context.Context, t content.Type, slug string) (*content.Record, error) {
	return GetItem(ctx, s.db, t, slug)
}

func (s *Store) Categories(ctx context.Context) ([]content.Category, error) {
	return ListCategories(ctx, s.db)
}

func (s *Store) Tags(ctx context.Context) ([]content.Tag, error) {
	return ListTags(ctx, s.db)
}

func (s *Store) Sequences(ctx context.Context) ([]content.Sequence, error) {
	return ListSequences(ctx, s.db)
}

func (s *Store) SequenceBySlug(ctx context.Context, slug string) (*content.Sequence, error) {
	return GetSequence(ctx, s.db, slug)
}
