package ops

import (
	"bufio"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/krisyotam/krisyotam.com-sub010/internal/config"
	"github.com/krisyotam/krisyotam.com-sub010/internal/content"
	"github.com/krisyotam/krisyotam.com-sub010/internal/db"
	"github.com/krisyotam/krisyotam.com-sub010/internal/errors"
)

// ImportMode controls collision behavior during import.
type ImportMode string

const (
	ImportModeError   ImportMode = "error"   // fail on any parse error or collision (atomic)
	ImportModeReplace ImportMode = "replace" // overwrite on collision, skip bad lines
)

// maxImportLine bounds a single JSONL line; item bodies can be long.
const maxImportLine = 16 << 20

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: error
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError represents an error that occurred during import.
type ImportError struct {
	Line    int    `json:"line"`
	Kind    string `json:"kind,omitempty"`
	Slug    string `json:"slug,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// importLine is a parsed, validated record with its source line.
type importLine struct {
	line   int
	record content.ExportRecord
}

// errAbort rolls back an error-mode import after a collision.
var errAbort = stderrors.New("import aborted")

// Import loads a JSONL export file into the SQLite store.
// Categories and tags are upserted in every mode. Items and sequences that
// already exist fail the whole import in error mode and are overwritten in
// replace mode. New items receive a fresh ULID row id.
func Import(ctx context.Context, database *sql.DB, cfg *config.Config, exportsDir string, input ImportInput) (*ImportOutput, error) {
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	if input.Mode != ImportModeError && input.Mode != ImportModeReplace {
		return nil, errors.NewValidation("mode must be one of: error, replace")
	}

	if err := ValidatePath(input.Path, PathCheckRead, exportsDir, cfg); err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	lines, parseErrors := parseExportFile(file)

	// For mode:error, fail on any parse errors
	if input.Mode == ImportModeError && len(parseErrors) > 0 {
		return &ImportOutput{Errors: parseErrors}, nil
	}

	out := &ImportOutput{Errors: []ImportError{}}
	if input.Mode == ImportModeReplace {
		out.Errors = append(out.Errors, parseErrors...)
		out.Skipped = len(parseErrors)
	}

	err = db.WithTx(ctx, database, func(tx *sql.Tx) error {
		for _, l := range lines {
			if ctx.Err() != nil {
				return errors.NewCancelled("import")
			}
			collided, err := importRecord(ctx, tx, l.record, input.Mode)
			if err != nil {
				if input.Mode == ImportModeError {
					return err
				}
				out.Errors = append(out.Errors, lineError(l, "WRITE_FAILED", err.Error()))
				out.Skipped++
				continue
			}
			if collided {
				out.Errors = append(out.Errors, lineError(l, "COLLISION",
					fmt.Sprintf("%s %q already exists", l.record.Kind, l.record.Slug())))
				return errAbort
			}
			out.Imported++
		}
		return nil
	})
	if stderrors.Is(err, errAbort) {
		return &ImportOutput{Errors: out.Errors}, nil
	}
	if err != nil {
		return nil, errors.AsDataUnavailable("import", err)
	}
	return out, nil
}

// importRecord writes one record. It reports a collision (and writes
// nothing) when mode is error and the item or sequence already exists.
func importRecord(ctx context.Context, tx *sql.Tx, rec content.ExportRecord, mode ImportMode) (bool, error) {
	switch rec.Kind {
	case content.KindCategory:
		return false, db.UpsertCategory(ctx, tx, rec.Category)
	case content.KindTag:
		return false, db.UpsertTag(ctx, tx, rec.Tag)
	case content.KindItem:
		item := rec.Item
		if mode == ImportModeError {
			exists, err := db.ItemExists(ctx, tx, item.Type, item.Slug)
			if err != nil || exists {
				return exists, err
			}
		}
		item.ID = generateNewULID()
		return false, db.UpsertItem(ctx, tx, item)
	case content.KindSequence:
		if mode == ImportModeError {
			exists, err := db.SequenceExists(ctx, tx, rec.Sequence.Slug)
			if err != nil || exists {
				return exists, err
			}
		}
		return false, db.UpsertSequence(ctx, tx, rec.Sequence)
	}
	return false, fmt.Errorf("unknown kind %q", rec.Kind)
}

// parseExportFile parses and validates every line of a JSONL export.
func parseExportFile(r io.Reader) ([]importLine, []ImportError) {
	var (
		lines       []importLine
		parseErrors []ImportError
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLine)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var record content.ExportRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}

		// Header line
		if record.SiteExport {
			if record.SchemaVersion != content.ExportSchemaVersion {
				parseErrors = append(parseErrors, ImportError{
					Line:    lineNum,
					Code:    "UNSUPPORTED_VERSION",
					Message: fmt.Sprintf("schema_version %q is not supported", record.SchemaVersion),
				})
			}
			continue
		}

		l := importLine{line: lineNum, record: record}
		if err := validateExportRecord(&l.record); err != nil {
			parseErrors = append(parseErrors, lineError(l, "INVALID_RECORD", err.Error()))
			continue
		}
		lines = append(lines, l)
	}

	if err := scanner.Err(); err != nil {
		parseErrors = append(parseErrors, ImportError{
			Line:    lineNum + 1,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}

	return lines, parseErrors
}

// validateExportRecord checks that the payload matches Kind and is valid.
func validateExportRecord(r *content.ExportRecord) error {
	payloads := 0
	for _, present := range []bool{r.Category != nil, r.Tag != nil, r.Item != nil, r.Sequence != nil} {
		if present {
			payloads++
		}
	}
	if payloads != 1 {
		return fmt.Errorf("expected exactly one payload, got %d", payloads)
	}

	switch r.Kind {
	case content.KindCategory:
		if r.Category == nil {
			return fmt.Errorf("kind category without category payload")
		}
		return r.Category.Validate()
	case content.KindTag:
		if r.Tag == nil {
			return fmt.Errorf("kind tag without tag payload")
		}
		if r.Tag.Slug == "" {
			return fmt.Errorf("tag: slug is required")
		}
		if r.Tag.Title == "" {
			r.Tag.Title = content.TitleFromSlug(r.Tag.Slug)
		}
		return nil
	case content.KindItem:
		if r.Item == nil {
			return fmt.Errorf("kind item without item payload")
		}
		return r.Item.Validate()
	case content.KindSequence:
		if r.Sequence == nil {
			return fmt.Errorf("kind sequence without sequence payload")
		}
		return r.Sequence.Validate()
	}
	return fmt.Errorf("unknown kind %q", r.Kind)
}

func lineError(l importLine, code, msg string) ImportError {
	return ImportError{
		Line:    l.line,
		Kind:    string(l.record.Kind),
		Slug:    l.record.Slug(),
		Code:    code,
		Message: msg,
	}
}

// generateNewULID generates a new ULID.
func generateNewULID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
