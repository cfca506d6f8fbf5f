package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/krisyotam/krisyotam.com-sub010/internal/content"
	"github.com/krisyotam/krisyotam.com-sub010/internal/errors"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.ContentError{
	Code:    errors.ErrConflict,
	Status:  409,
	Message: "unique constraint violation",
}

const itemColumns = `
	id, type, slug, title, subtitle, preview, start_date, end_date,
	category, status, confidence, importance, state, cover_image, body`

// InsertItem stores a new content item and its tags. r.ID must be set.
func InsertItem(ctx context.Context, q Querier, r *content.Record) error {
	if r.ID == "" {
		return errors.NewInternal(fmt.Errorf("insert %s %q: missing id", r.Type, r.Slug))
	}
	now := time.Now().Unix()

	query := `
		INSERT INTO content_items (` + itemColumns + `, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query, append(itemArgs(r), now, now)...)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}

	return replaceItemTags(ctx, q, r.ID, r.Tags)
}

// UpsertItem inserts an item or overwrites the item with the same (type, slug).
// The existing row id is kept; r.ID is updated to the stored id.
func UpsertItem(ctx context.Context, q Querier, r *content.Record) error {
	var existingID string
	err := q.QueryRowContext(ctx,
		`SELECT id FROM content_items WHERE type = ? AND slug = ?`, r.Type, r.Slug,
	).Scan(&existingID)
	if err == sql.ErrNoRows {
		return InsertItem(ctx, q, r)
	}
	if err != nil {
		return errors.NewInternal(err)
	}

	r.ID = existingID
	query := `
		UPDATE content_items
		SET title = ?, subtitle = ?, preview = ?, start_date = ?, end_date = ?,
			category = ?, status = ?, confidence = ?, importance = ?, state = ?,
			cover_image = ?, body = ?, updated_at = ?
		WHERE id = ?
	`
	_, err = q.ExecContext(ctx, query,
		r.Title, toNullString(r.Subtitle), toNullString(r.Preview), r.StartDate, toNullString(r.EndDate),
		r.Category, toNullString(r.Status), toNullString(r.Confidence), toNullInt(r.Importance), stateOrActive(r.State),
		toNullString(r.CoverImage), toNullString(r.Body), time.Now().Unix(),
		existingID,
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	return replaceItemTags(ctx, q, existingID, r.Tags)
}

// ItemExists checks if an item with the given (type, slug) exists.
func ItemExists(ctx context.Context, q Querier, t content.Type, slug string) (bool, error) {
	var exists int
	err := q.QueryRowContext(ctx,
		`SELECT 1 FROM content_items WHERE type = ? AND slug = ? LIMIT 1`, t, slug,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return true, nil
}

// ListItemsByType returns every item of a type in insertion order, hidden included.
func ListItemsByType(ctx context.Context, q Querier, t content.Type) ([]content.Record, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM content_items WHERE type = ? ORDER BY created_at, rowid`, t)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []content.Record
	index := make(map[string]int)
	for rows.Next() {
		r, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		index[r.ID] = len(records)
		records = append(records, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Join tags for the whole type in one pass
	tagRows, err := q.QueryContext(ctx, `
		SELECT ct.item_id, ct.tag
		FROM content_tags ct
		JOIN content_items ci ON ci.id = ct.item_id
		WHERE ci.type = ?
		ORDER BY ct.item_id, ct.position
	`, t)
	if err != nil {
		return nil, err
	}
	defer tagRows.Close()

	for tagRows.Next() {
		var itemID, tag string
		if err := tagRows.Scan(&itemID, &tag); err != nil {
			return nil, err
		}
		if i, ok := index[itemID]; ok {
			records[i].Tags = append(records[i].Tags, tag)
		}
	}
	if err := tagRows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// GetItem retrieves one item by (type, slug), hidden included.
func GetItem(ctx context.Context, q Querier, t content.Type, slug string) (*content.Record, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM content_items WHERE type = ? AND slug = ?`, t, slug)
	r, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(string(t), slug)
	}
	if err != nil {
		return nil, err
	}

	tags, err := itemTags(ctx, q, r.ID)
	if err != nil {
		return nil, err
	}
	r.Tags = tags

	return r, nil
}

// UpsertCategory inserts or replaces a category.
func UpsertCategory(ctx context.Context, q Querier, c *content.Category) error {
	title := c.Title
	if title == "" {
		title = c.Slug
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO categories (slug, title, description, preview, importance, sort_order)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			title = excluded.title, description = excluded.description,
			preview = excluded.preview, importance = excluded.importance,
			sort_order = excluded.sort_order
	`, c.Slug, title, emptyToNull(c.Description), emptyToNull(c.Preview), c.Importance, c.Order)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListCategories returns every category ordered by sort order, then slug.
func ListCategories(ctx context.Context, q Querier) ([]content.Category, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT slug, title, description, preview, importance, sort_order
		FROM categories
		ORDER BY sort_order, slug
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []content.Category
	for rows.Next() {
		var (
			c           content.Category
			description sql.NullString
			preview     sql.NullString
		)
		if err := rows.Scan(&c.Slug, &c.Title, &description, &preview, &c.Importance, &c.Order); err != nil {
			return nil, err
		}
		c.Description = description.String
		c.Preview = preview.String
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// UpsertTag inserts or replaces a tag display title.
func UpsertTag(ctx context.Context, q Querier, t *content.Tag) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO tags (slug, title) VALUES (?, ?)
		ON CONFLICT(slug) DO UPDATE SET title = excluded.title
	`, t.Slug, t.Title)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListTags returns the stored tag titles ordered by slug.
func ListTags(ctx context.Context, q Querier) ([]content.Tag, error) {
	rows, err := q.QueryContext(ctx, `SELECT slug, title FROM tags ORDER BY slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []content.Tag
	for rows.Next() {
		var t content.Tag
		if err := rows.Scan(&t.Slug, &t.Title); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// replaceItemTags rewrites the ordered tag list of an item.
func replaceItemTags(ctx context.Context, q Querier, itemID string, tags []string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM content_tags WHERE item_id = ?`, itemID); err != nil {
		return errors.NewInternal(err)
	}
	for i, tag := range tags {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO content_tags (item_id, position, tag) VALUES (?, ?, ?)`, itemID, i, tag,
		); err != nil {
			return errors.NewInternal(err)
		}
	}
	return nil
}

func itemTags(ctx context.Context, q Querier, itemID string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT tag FROM content_tags WHERE item_id = ? ORDER BY position`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanItem scans a single row into a Record.
func scanItem(row scanner) (*content.Record, error) {
	var (
		r          content.Record
		typ        string
		subtitle   sql.NullString
		preview    sql.NullString
		endDate    sql.NullString
		status     sql.NullString
		confidence sql.NullString
		importance sql.NullInt64
		coverImage sql.NullString
		body       sql.NullString
	)

	err := row.Scan(
		&r.ID, &typ, &r.Slug, &r.Title, &subtitle, &preview, &r.StartDate, &endDate,
		&r.Category, &status, &confidence, &importance, &r.State, &coverImage, &body,
	)
	if err != nil {
		return nil, err
	}

	r.Type = content.Type(typ)
	r.Subtitle = fromNullString(subtitle)
	r.Preview = fromNullString(preview)
	r.EndDate = fromNullString(endDate)
	r.Status = fromNullString(status)
	r.Confidence = fromNullString(confidence)
	r.CoverImage = fromNullString(coverImage)
	r.Body = fromNullString(body)
	if importance.Valid {
		v := int(importance.Int64)
		r.Importance = &v
	}

	return &r, nil
}

func itemArgs(r *content.Record) []any {
	return []any{
		r.ID, r.Type, r.Slug, r.Title, toNullString(r.Subtitle), toNullString(r.Preview),
		r.StartDate, toNullString(r.EndDate), r.Category, toNullString(r.Status),
		toNullString(r.Confidence), toNullInt(r.Importance), stateOrActive(r.State),
		toNullString(r.CoverImage), toNullString(r.Body),
	}
}

func stateOrActive(s string) string {
	if s == "" {
		return string(content.StateActive)
	}
	return s
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func toNullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func emptyToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
