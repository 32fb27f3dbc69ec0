// Package archive keeps a copy of every analyzed PDF, keyed by content hash.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/joseph-ayodele/income-verifier/internal/common"
	"github.com/joseph-ayodele/income-verifier/internal/entity"
)

// Archiver stores a document and returns where it went.
type Archiver interface {
	Archive(ctx context.Context, doc entity.Document) (string, error)
	Close() error
}

// Noop discards documents. It is used when no bucket is configured.
type Noop struct{}

func (Noop) Archive(context.Context, entity.Document) (string, error) { return "", nil }
func (Noop) Close() error                                             { return nil }

// New returns a GCS archiver when a bucket is configured, Noop otherwise.
func New(ctx context.Context, cfg common.ArchiveConfig, logger *slog.Logger) (Archiver, error) {
	if strings.TrimSpace(cfg.GCSBucket) == "" {
		return Noop{}, nil
	}
	return NewGCS(ctx, cfg.GCSBucket, cfg.GCSPrefix, logger)
}

// GCS uploads documents to a bucket. Objects are immutable: a document whose
// hash is already present is not uploaded again.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// NewGCS uses Application Default Credentials.
func NewGCS(ctx context.Context, bucket, prefix string, logger *slog.Logger) (*GCS, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket, prefix: prefix, logger: logger}, nil
}

// ObjectName is prefix/<hash>.pdf.
func ObjectName(prefix string, doc entity.Document) string {
	ext := strings.ToLower(path.Ext(doc.Name))
	if ext == "" {
		ext = ".pdf"
	}
	return path.Join(strings.Trim(prefix, "/"), doc.HashHex+ext)
}

func (g *GCS) Archive(ctx context.Context, doc entity.Document) (string, error) {
	if doc.HashHex == "" {
		return "", fmt.Errorf("%w: document %q has no content hash", common.ErrInvalidInput, doc.Name)
	}
	start := time.Now()
	name := ObjectName(g.prefix, doc)
	uri := "gs://" + g.bucket + "/" + name
	obj := g.client.Bucket(g.bucket).Object(name)

	if _, err := obj.Attrs(ctx); err == nil {
		g.logger.Debug("archive.skip.exists", "uri", uri)
		return uri, nil
	} else if !errors.Is(err, storage.ErrObjectNotExist) {
		return "", fmt.Errorf("stat %s: %w", uri, err)
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := obj.NewWriter(ctx)
	w.ContentType = "application/pdf"
	w.Metadata = map[string]string{"source_name": doc.Name}
	if _, err := io.Copy(w, bytes.NewReader(doc.Content)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload %s: %w", uri, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize %s: %w", uri, err)
	}

	g.logger.Info("archive.upload.ok",
		"uri", uri,
		"bytes", len(doc.Content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return uri, nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}
