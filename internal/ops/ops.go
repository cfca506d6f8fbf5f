package ops

import (
	"context"
	stderrors "errors"
	"strings"

	"go.uber.org/zap"

	"github.com/krisyotam/krisyotam.com-sub010/internal/config"
	"github.com/krisyotam/krisyotam.com-sub010/internal/content"
	"github.com/krisyotam/krisyotam.com-sub010/internal/errors"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
	DefaultFeedLimit = 20

	// DefaultConcurrency bounds the per-type fan-out of aggregate operations.
	DefaultConcurrency = 4
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Store is the record store the repository reads from. Both the SQLite
// store and the document store satisfy it. Lookups of a missing address
// return a NOT_FOUND ContentError; anything else is treated as the store
// being unavailable.
type Store interface {
	ContentByType(ctx context.Context, t content.Type) ([]content.Record, error)
	ContentBySlug(ctx context.Context, t content.Type, slug string) (*content.Record, error)
	Categories(ctx context.Context) ([]content.Category, error)
	Tags(ctx context.Context) ([]content.Tag, error)
	Sequences(ctx context.Context) ([]content.Sequence, error)
	SequenceBySlug(ctx context.Context, slug string) (*content.Sequence, error)
}

// Options configures a Repository. Zero values fall back to defaults.
type Options struct {
	Logger      *zap.Logger
	Config      *config.Config
	Concurrency int
}

// Repository answers content queries over a Store. It holds no mutable
// state and caches nothing between calls.
type Repository struct {
	store       Store
	log         *zap.Logger
	cfg         *config.Config
	types       []content.Type
	enabled     map[content.Type]bool
	concurrency int
}

// New creates a Repository over store.
func New(store Store, opts Options) *Repository {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	disabled := make(map[content.Type]bool)
	for _, name := range cfg.DisabledTypes {
		t, ok := content.ParseType(name)
		if !ok {
			log.Warn("unknown type in disabled_types", zap.String("type", name))
			continue
		}
		disabled[t] = true
	}

	r := &Repository{
		store:       store,
		log:         log,
		cfg:         cfg,
		enabled:     make(map[content.Type]bool),
		concurrency: concurrency,
	}
	for _, t := range content.AllTypes() {
		if disabled[t] {
			continue
		}
		r.types = append(r.types, t)
		r.enabled[t] = true
	}
	return r
}

// Types returns the enabled content types in canonical order.
func (r *Repository) Types() []content.Type {
	return append([]content.Type(nil), r.types...)
}

// ResolveType maps a discriminator (canonical name or route) to an enabled
// type. Disabled types are reported exactly like unknown ones.
func (r *Repository) ResolveType(name string) (content.Type, error) {
	t, ok := content.ParseType(name)
	if !ok || !r.enabled[t] {
		return "", errors.NewUnknownType(strings.TrimSpace(name))
	}
	return t, nil
}

// storeErr converts a Store failure into the error taxonomy. NOT_FOUND and
// other ContentErrors pass through; a cancelled context becomes CANCELLED.
func storeErr(ctx context.Context, source string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil || stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewCancelled(source)
	}
	return errors.AsDataUnavailable(source, err)
}

// paginate applies limit/offset bounds and slices items.
func paginate[T any](items []T, limit, offset int) ([]T, Pagination) {
	// Apply limit defaults and bounds
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	// Ensure offset is non-negative
	offset = max(offset, 0)

	total := len(items)
	start := min(offset, total)
	end := min(start+limit, total)

	page := make([]T, 0, end-start)
	page = append(page, items[start:end]...)

	return page, Pagination{
		Limit:   limit,
		Offset:  offset,
		HasMore: end < total,
		Total:   total,
	}
}
