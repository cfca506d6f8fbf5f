package db

import (
	"context"
	"database/sql"

	"github.com/krisyotam/krisyotam.com-sub010/internal/content"
	"github.com/krisyotam/krisyotam.com-sub010/internal/errors"
)

// flatSection is the section_position used for a sequence's flat post list.
const flatSection = -1

const sequenceColumns = `
	slug, title, subtitle, preview, start_date, end_date,
	status, confidence, importance, state, cover_image`

// UpsertSequence stores a sequence header and replaces its sections and posts.
func UpsertSequence(ctx context.Context, q Querier, s *content.Sequence) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO sequences (`+sequenceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			title = excluded.title, subtitle = excluded.subtitle,
			preview = excluded.preview, start_date = excluded.start_date,
			end_date = excluded.end_date, status = excluded.status,
			confidence = excluded.confidence, importance = excluded.importance,
			state = excluded.state, cover_image = excluded.cover_image
	`,
		s.Slug, s.Title, toNullString(s.Subtitle), toNullString(s.Preview),
		s.StartDate, toNullString(s.EndDate), toNullString(s.Status),
		toNullString(s.Confidence), toNullInt(s.Importance), stateOrActive(s.State),
		toNullString(s.CoverImage),
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM sequence_posts WHERE sequence_slug = ?`, s.Slug); err != nil {
		return errors.NewInternal(err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM sequence_sections WHERE sequence_slug = ?`, s.Slug); err != nil {
		return errors.NewInternal(err)
	}

	if err := insertSequencePosts(ctx, q, s.Slug, flatSection, s.Posts); err != nil {
		return err
	}
	for i, sec := range s.Sections {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO sequence_sections (sequence_slug, position, title) VALUES (?, ?, ?)`,
			s.Slug, i, sec.Title,
		); err != nil {
			return errors.NewInternal(err)
		}
		if err := insertSequencePosts(ctx, q, s.Slug, i, sec.Posts); err != nil {
			return err
		}
	}
	return nil
}

func insertSequencePosts(ctx context.Context, q Querier, seq string, section int, posts []content.SequencePost) error {
	for _, p := range posts {
		_, err := q.ExecContext(ctx, `
			INSERT INTO sequence_posts (sequence_slug, section_position, post_order, post_type, post_slug)
			VALUES (?, ?, ?, ?, ?)
		`, seq, section, p.Order, p.Type, p.Slug)
		if err != nil {
			if isUniqueConstraintError(err) {
				return errors.NewValidation("duplicate post order in sequence " + seq)
			}
			return errors.NewInternal(err)
		}
	}
	return nil
}

// SequenceExists checks if a sequence with the given slug exists.
func SequenceExists(ctx context.Context, q Querier, slug string) (bool, error) {
	var exists int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM sequences WHERE slug = ? LIMIT 1`, slug).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return true, nil
}

// ListSequences returns every sequence with its posts and sections, hidden included.
func ListSequences(ctx context.Context, q Querier) ([]content.Sequence, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+sequenceColumns+` FROM sequences ORDER BY rowid`)
	if err != nil {
		return nil, err
	}

	var seqs []content.Sequence
	for rows.Next() {
		s, err := scanSequence(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		seqs = append(seqs, *s)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range seqs {
		if err := loadSequenceBody(ctx, q, &seqs[i]); err != nil {
			return nil, err
		}
	}
	return seqs, nil
}

// GetSequence retrieves one sequence by slug, hidden included.
func GetSequence(ctx context.Context, q Querier, slug string) (*content.Sequence, error) {
	row := q.QueryRowContext(ctx, `SELECT `+sequenceColumns+` FROM sequences WHERE slug = ?`, slug)
	s, err := scanSequence(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("sequence", slug)
	}
	if err != nil {
		return nil, err
	}
	if err := loadSequenceBody(ctx, q, s); err != nil {
		return nil, err
	}
	return s, nil
}

// loadSequenceBody fills Posts or Sections from the child tables.
func loadSequenceBody(ctx context.Context, q Querier, s *content.Sequence) error {
	secRows, err := q.QueryContext(ctx,
		`SELECT position, title FROM sequence_sections WHERE sequence_slug = ? ORDER BY position`, s.Slug)
	if err != nil {
		return err
	}
	sectionIndex := make(map[int]int)
	for secRows.Next() {
		var (
			pos   int
			title string
		)
		if err := secRows.Scan(&pos, &title); err != nil {
			secRows.Close()
			return err
		}
		sectionIndex[pos] = len(s.Sections)
		s.Sections = append(s.Sections, content.SequenceSection{Title: title})
	}
	if err := secRows.Err(); err != nil {
		secRows.Close()
		return err
	}
	secRows.Close()

	postRows, err := q.QueryContext(ctx, `
		SELECT section_position, post_order, post_type, post_slug
		FROM sequence_posts
		WHERE sequence_slug = ?
		ORDER BY section_position, post_order
	`, s.Slug)
	if err != nil {
		return err
	}
	defer postRows.Close()

	for postRows.Next() {
		var (
			section int
			p       content.SequencePost
			typ     string
		)
		if err := postRows.Scan(&section, &p.Order, &typ, &p.Slug); err != nil {
			return err
		}
		p.Type = content.Type(typ)
		if section == flatSection {
			s.Posts = append(s.Posts, p)
			continue
		}
		if i, ok := sectionIndex[section]; ok {
			s.Sections[i].Posts = append(s.Sections[i].Posts, p)
		}
	}
	return postRows.Err()
}

func scanSequence(row scanner) (*content.Sequence, error) {
	var (
		s          content.Sequence
		subtitle   sql.NullString
		preview    sql.NullString
		endDate    sql.NullString
		status     sql.NullString
		confidence sql.NullString
		importance sql.NullInt64
		coverImage sql.NullString
	)
	err := row.Scan(
		&s.Slug, &s.Title, &subtitle, &preview, &s.StartDate, &endDate,
		&status, &confidence, &importance, &s.State, &coverImage,
	)
	if err != nil {
		return nil, err
	}
	s.Subtitle = fromNullString(subtitle)
	s.Preview = fromNullString(preview)
	s.EndDate = fromNullString(endDate)
	s.Status = fromNullString(status)
	s.Confidence = fromNullString(confidence)
	s.CoverImage = fromNullString(coverImage)
	if importance.Valid {
		v := int(importance.Int64)
		s.Importance = &v
	}
	return &s, nil
}
