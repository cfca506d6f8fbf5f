package ops

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/krisyotam/krisyotam.com-sub010/internal/config"
	"github.com/krisyotam/krisyotam.com-sub010/internal/content"
	"github.com/krisyotam/krisyotam.com-sub010/internal/errors"
)

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path string // optional, default: <home>/exports/<route|all>-<timestamp>.jsonl
	Type string // optional: export only items of this type
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Items      int    `json:"items"`
	Categories int    `json:"categories"`
	Tags       int    `json:"tags"`
	Sequences  int    `json:"sequences"`
	ExportedAt int64  `json:"exported_at"`
}

// Export writes the store's records to a JSONL file: a header line, then
// categories, tags, items (hidden included) and sequences, one per line.
// With a Type filter only that type's items are written.
func Export(ctx context.Context, store Store, cfg *config.Config, exportsDir string, input ExportInput) (*ExportOutput, error) {
	now := time.Now()

	types := content.AllTypes()
	name := "all"
	if input.Type != "" {
		t, ok := content.ParseType(input.Type)
		if !ok {
			return nil, errors.NewUnknownType(input.Type)
		}
		types = []content.Type{t}
		name = t.Route()
	}

	// Determine export path
	exportPath := input.Path
	if exportPath == "" {
		exportPath = filepath.Join(exportsDir, fmt.Sprintf("%s-%s.jsonl", name, now.Format("2006-01-02T150405")))
	}

	// Validate ALL paths (both user-provided and default)
	if err := ValidatePath(exportPath, PathCheckWrite, exportsDir, cfg); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	// Write to temp file first, then atomic rename to preserve existing file on failure
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := exportPath + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	// Clean up temp file on failure (original file is preserved)
	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	out := &ExportOutput{ExportedAt: now.Unix()}

	header := content.ExportRecord{
		SiteExport:    true,
		SchemaVersion: content.ExportSchemaVersion,
		ExportedAt:    out.ExportedAt,
	}
	if err := enc.Encode(header); err != nil {
		return nil, errors.NewInternal(err)
	}

	if input.Type == "" {
		categories, err := store.Categories(ctx)
		if err != nil {
			return nil, storeErr(ctx, "categories", err)
		}
		for i := range categories {
			categories[i].Count = 0
			if err := enc.Encode(content.ExportRecord{Kind: content.KindCategory, Category: &categories[i]}); err != nil {
				return nil, errors.NewInternal(err)
			}
			out.Categories++
		}

		tags, err := store.Tags(ctx)
		if err != nil {
			return nil, storeErr(ctx, "tags", err)
		}
		for i := range tags {
			tags[i].Count = 0
			if err := enc.Encode(content.ExportRecord{Kind: content.KindTag, Tag: &tags[i]}); err != nil {
				return nil, errors.NewInternal(err)
			}
			out.Tags++
		}
	}

	for _, t := range types {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("export")
		}
		records, err := store.ContentByType(ctx, t)
		if err != nil {
			return nil, storeErr(ctx, t.Route(), err)
		}
		for i := range records {
			records[i].ID = ""
			if err := enc.Encode(content.ExportRecord{Kind: content.KindItem, Item: &records[i]}); err != nil {
				return nil, errors.NewInternal(err)
			}
			out.Items++
		}
	}

	if input.Type == "" {
		seqs, err := store.Sequences(ctx)
		if err != nil {
			return nil, storeErr(ctx, content.SequenceRoute, err)
		}
		for i := range seqs {
			if err := enc.Encode(content.ExportRecord{Kind: content.KindSequence, Sequence: &seqs[i]}); err != nil {
				return nil, errors.NewInternal(err)
			}
			out.Sequences++
		}
	}

	if err := w.Flush(); err != nil {
		return nil, errors.NewInternal(err)
	}

	// Ensure file is written
	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}

	// Close before atomic replace (required on Windows; fine elsewhere).
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// Check if destination is a symlink (os.Rename would follow it)
	if info, err := os.Lstat(exportPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewInternal(fmt.Errorf("export path is a symlink"))
	}

	// On Windows os.Rename fails if the destination exists; the existing file is kept.
	if err := os.Rename(tempPath, exportPath); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(exportPath); statErr == nil {
				return nil, errors.NewValidation("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	out.Path = exportPath
	return out, nil
}
