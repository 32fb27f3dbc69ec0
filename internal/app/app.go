// Package app wires configuration into a ready Processor and its collaborators
// for the binaries under cmd/.
package app

import (
	"context"
	"log/slog"
	"os"

	"github.com/joseph-ayodele/income-verifier/internal/archive"
	"github.com/joseph-ayodele/income-verifier/internal/common"
	"github.com/joseph-ayodele/income-verifier/internal/core"
	"github.com/joseph-ayodele/income-verifier/internal/export"
	"github.com/joseph-ayodele/income-verifier/internal/llm/provider"
	"github.com/joseph-ayodele/income-verifier/internal/ocr"
	"github.com/joseph-ayodele/income-verifier/internal/repository"
)

// LoadConfig reads .env files, then the environment, and validates the result.
func LoadConfig(envFiles ...string) (*common.Config, error) {
	if err := common.LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// TextLogger writes messages and attributes without time or level, for
// terminal use.
func TextLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// JSONLogger is used by the long-running server.
func JSONLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

type App struct {
	Config    *common.Config
	Store     repository.ResultStore
	Archiver  archive.Archiver
	Processor *core.Processor
	Exporter  *export.Service
	logger    *slog.Logger
}

// New opens the store, the archive and the model provider. Close releases
// them.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := repository.Open(ctx, cfg.Store, logger)
	if err != nil {
		return nil, err
	}

	arch, err := archive.New(ctx, cfg.Archive, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	svc, err := provider.NewService(ctx, cfg.LLM, logger)
	if err != nil {
		_ = arch.Close()
		_ = store.Close()
		return nil, err
	}

	text := ocr.NewExtractor(ocr.Config{
		Pdftotext:     cfg.OCR.Pdftotext,
		Pdftoppm:      cfg.OCR.Pdftoppm,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		TessdataDir:   cfg.OCR.TessdataDir,
		MaxPages:      cfg.OCR.MaxPages,
		MinTextChars:  cfg.OCR.MinTextChars,
	}, logger)

	proc := core.NewProcessor(logger, text, svc, svc, store, arch, cfg.Analysis)

	logger.Info("app.ready",
		"store", cfg.Store.Backend,
		"llm_provider", cfg.LLM.Provider,
		"archive", cfg.Archive.GCSBucket != "",
	)
	return &App{
		Config:    cfg,
		Store:     store,
		Archiver:  arch,
		Processor: proc,
		Exporter:  export.NewService(store, logger),
		logger:    logger,
	}, nil
}

func (a *App) Close() {
	if err := a.Archiver.Close(); err != nil {
		a.logger.Error("app.close.archive", "error", err)
	}
	if err := a.Store.Close(); err != nil {
		a.logger.Error("app.close.store", "error", err)
	}
}
