package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/joseph-ayodele/income-verifier/constants"
)

type WatchConfig struct {
	Root        string        // applicant folders live directly under Root
	InitialScan bool          // if true, emit folders that already hold documents
	Debounce    time.Duration // coalesce bursts while a folder is being filled
	Logger      *slog.Logger
}

// StartWatcher emits an applicant folder each time a document lands in it.
// A folder is emitted once per quiet period of cfg.Debounce.
func StartWatcher(ctx context.Context, cfg WatchConfig) (<-chan string, <-chan error, error) {
	if cfg.Root == "" {
		return nil, nil, errors.New("no root provided")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("ingest.watch.create_failed", "error", err)
		return nil, nil, err
	}

	evCh := make(chan string, 64)
	errCh := make(chan error, 1)

	var (
		mu      sync.Mutex
		pending = map[string]struct{}{}
		timer   *time.Timer
	)
	flush := func() {
		mu.Lock()
		dirs := make([]string, 0, len(pending))
		for d := range pending {
			dirs = append(dirs, d)
		}
		clear(pending)
		mu.Unlock()
		for _, d := range dirs {
			select {
			case evCh <- d:
			case <-ctx.Done():
				return
			}
		}
	}
	mark := func(dir string) {
		mu.Lock()
		pending[dir] = struct{}{}
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(cfg.Debounce, flush)
		mu.Unlock()
	}

	err = filepath.WalkDir(cfg.Root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path != cfg.Root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return w.Add(path)
		}
		if cfg.InitialScan && constants.IsAllowedExt(filepath.Ext(path)) {
			mark(filepath.Dir(path))
		}
		return nil
	})
	if err != nil {
		logger.Error("ingest.watch.add_root_failed", "root", cfg.Root, "error", err)
		_ = w.Close()
		return nil, nil, err
	}

	go func() {
		defer close(errCh)
		defer func() {
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
			if err := w.Close(); err != nil {
				logger.Warn("ingest.watch.close_error", "error", err)
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Has(fsnotify.Create) {
					// new applicant folder; ignore the error for plain files
					_ = w.Add(e.Name)
				}
				if IsHidden(e.Name) || !constants.IsAllowedExt(filepath.Ext(e.Name)) {
					continue
				}
				if e.Has(fsnotify.Create) || e.Has(fsnotify.Write) || e.Has(fsnotify.Rename) {
					mark(filepath.Dir(e.Name))
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("ingest.watch.error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}
