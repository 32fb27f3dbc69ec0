// Package ingest turns files on disk or uploaded streams into documents ready
// for analysis: filtered by extension, hashed and de-duplicated by content.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/income-verifier/constants"
	"github.com/joseph-ayodele/income-verifier/internal/common"
	"github.com/joseph-ayodele/income-verifier/internal/entity"
)

// DefaultMaxFileBytes caps a single document read.
const DefaultMaxFileBytes = 20 << 20

// Result is the per-file ingest outcome.
type Result struct {
	SourcePath   string
	HashHex      string
	Deduplicated bool
	Err          string
}

// DirStats summarizes a collection run.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

type Collector struct {
	SkipHidden   bool
	MaxFileBytes int64
	logger       *slog.Logger
}

func NewCollector(logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{SkipHidden: true, MaxFileBytes: DefaultMaxFileBytes, logger: logger}
}

// Collect reads every allowed file named in paths, walking directories, in a
// stable order: arguments in order, directory entries lexically. Files whose
// content was already seen are reported as deduplicated and left out.
func (c *Collector) Collect(ctx context.Context, paths []string) ([]entity.Document, []Result, DirStats, error) {
	if len(paths) == 0 {
		return nil, nil, DirStats{}, fmt.Errorf("%w: no input path", common.ErrInvalidInput)
	}

	var (
		docs    []entity.Document
		results []Result
		stats   DirStats
		seen    = map[string]struct{}{}
	)

	add := func(path string) {
		stats.Matched++
		doc, err := c.ReadFile(path)
		if err != nil {
			results = append(results, Result{SourcePath: path, Err: err.Error()})
			stats.Failed++
			c.logger.Warn("ingest.file.failed", "path", path, "error", err)
			return
		}
		if _, dup := seen[doc.HashHex]; dup {
			results = append(results, Result{SourcePath: path, HashHex: doc.HashHex, Deduplicated: true})
			stats.Deduplicated++
			c.logger.Info("ingest.file.duplicate", "path", path, "hash", doc.HashHex)
			return
		}
		seen[doc.HashHex] = struct{}{}
		docs = append(docs, doc)
		results = append(results, Result{SourcePath: path, HashHex: doc.HashHex})
		stats.Succeeded++
	}

	for _, root := range paths {
		if err := ctx.Err(); err != nil {
			return docs, results, stats, err
		}
		info, err := os.Stat(root)
		if err != nil {
			stats.Scanned++
			stats.Failed++
			results = append(results, Result{SourcePath: root, Err: err.Error()})
			continue
		}
		if !info.IsDir() {
			stats.Scanned++
			if !constants.IsAllowedExt(filepath.Ext(root)) {
				results = append(results, Result{SourcePath: root, Err: "unsupported extension"})
				stats.Failed++
				continue
			}
			add(root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			stats.Scanned++
			if walkErr != nil {
				results = append(results, Result{SourcePath: path, Err: walkErr.Error()})
				stats.Failed++
				return nil
			}
			if c.SkipHidden && path != root && IsHidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !constants.IsAllowedExt(filepath.Ext(path)) {
				return nil
			}
			add(path)
			return nil
		})
		if err != nil {
			return docs, results, stats, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	c.logger.Info("ingest.collect.ok",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	return docs, results, stats, nil
}

// ReadFile loads and hashes one document from disk.
func (c *Collector) ReadFile(path string) (entity.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return entity.Document{}, err
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			c.logger.Warn("ingest.file.close_error", "path", path, "error", err)
		}
	}(f)
	return ReadDocument(filepath.Base(path), f, c.MaxFileBytes)
}

var errTooLarge = errors.New("document exceeds size limit")

// ReadDocument reads an uploaded stream into a hashed document.
// A non-positive maxBytes means DefaultMaxFileBytes.
func ReadDocument(name string, r io.Reader, maxBytes int64) (entity.Document, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return entity.Document{}, fmt.Errorf("%w: document name is required", common.ErrInvalidInput)
	}
	if !constants.IsAllowedExt(filepath.Ext(name)) {
		return entity.Document{}, fmt.Errorf("%w: unsupported extension for %q", common.ErrInvalidInput, name)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}

	content, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return entity.Document{}, fmt.Errorf("read %s: %w", name, err)
	}
	if int64(len(content)) > maxBytes {
		return entity.Document{}, fmt.Errorf("%w: %s: %w", common.ErrInvalidInput, name, errTooLarge)
	}
	if len(content) == 0 {
		return entity.Document{}, fmt.Errorf("%w: %s is empty", common.ErrInvalidInput, name)
	}

	sum := sha256.Sum256(content)
	return entity.Document{
		Name:    name,
		HashHex: hex.EncodeToString(sum[:]),
		Content: content,
	}, nil
}

// Dedupe keeps the first document of every content hash, in order.
func Dedupe(docs []entity.Document) ([]entity.Document, []string) {
	seen := make(map[string]struct{}, len(docs))
	out := make([]entity.Document, 0, len(docs))
	var dropped []string
	for _, d := range docs {
		if _, ok := seen[d.HashHex]; ok {
			dropped = append(dropped, d.Name)
			continue
		}
		seen[d.HashHex] = struct{}{}
		out = append(out, d)
	}
	return out, dropped
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
