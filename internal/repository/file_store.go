package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joseph-ayodele/income-verifier/internal/common"
	"github.com/joseph-ayodele/income-verifier/internal/entity"
)

// FileStore keeps every record in a single JSON array file. Each append reads
// the whole list, adds the record and rewrites the file through a temp file
// and rename. A missing or unreadable file is an empty list.
//
// Appends are serialized inside one process only.
type FileStore struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if path == "" {
		path = "data/json/db.json"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: path, logger: logger}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Append(ctx context.Context, rec entity.FinalRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	records, corrupt := s.load()
	if corrupt {
		// keep the unreadable file aside instead of overwriting it
		aside := fmt.Sprintf("%s.corrupt-%d", s.path, time.Now().UnixNano())
		if err := os.Rename(s.path, aside); err != nil {
			return persistenceError("file store append", err)
		}
		s.logger.Warn("store.load.corrupt_moved", "path", s.path, "moved_to", aside)
	}
	records = append(records, rec)

	if err := s.write(records); err != nil {
		s.logger.Error("store.append.failed", "backend", "file", "path", s.path, "error", err)
		return persistenceError("file store append", err)
	}
	s.logger.Info("store.append.ok",
		"backend", "file",
		"id", rec.ID,
		"records", len(records),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (s *FileStore) List(ctx context.Context) ([]entity.FinalRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	records, _ := s.load()
	return records, nil
}

func (s *FileStore) Latest(ctx context.Context) (entity.FinalRecord, error) {
	records, err := s.List(ctx)
	if err != nil {
		return entity.FinalRecord{}, err
	}
	if len(records) == 0 {
		return entity.FinalRecord{}, common.ErrNotFound
	}
	return records[len(records)-1], nil
}

func (s *FileStore) Count(ctx context.Context) (int, error) {
	records, err := s.List(ctx)
	return len(records), err
}

func (s *FileStore) Close() error { return nil }

// load never fails: a missing file is empty, a corrupt one is logged,
// reported through the bool and treated as empty.
func (s *FileStore) load() ([]entity.FinalRecord, bool) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("store.load.read_failed", "path", s.path, "error", err)
		}
		return []entity.FinalRecord{}, false
	}
	if len(b) == 0 {
		return []entity.FinalRecord{}, false
	}
	var records []entity.FinalRecord
	if err := json.Unmarshal(b, &records); err != nil {
		s.logger.Warn("store.load.corrupt", "path", s.path, "error", err)
		return []entity.FinalRecord{}, true
	}
	if records == nil {
		records = []entity.FinalRecord{}
	}
	return records, false
}

func (s *FileStore) write(records []entity.FinalRecord) error {
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".db-*.json")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op once renamed
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
