package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/income-verifier/constants"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "fra+eng"
	TessdataDir   string
	DPI           int // rasterization DPI for scanned PDFs, default 300
	MaxPages      int // 0 = no limit

	// MinTextChars is the amount of embedded text below which a PDF is
	// treated as scanned and sent through OCR.
	MinTextChars int
}

type ExtractionResult struct {
	Text     string
	Pages    int
	Method   string // "pdf-text" | "pdf-ocr"
	Language string
	Duration time.Duration
	Warnings []string
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	return NewExtractorWithRunner(cfg, execRunner{}, logger)
}

// NewExtractorWithRunner lets callers substitute the command runner.
func NewExtractorWithRunner(cfg Config, runner Runner, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "fra+eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.MinTextChars <= 0 {
		cfg.MinTextChars = 40
	}
	return &Extractor{cfg: cfg, runner: runner, logger: logger}
}

// Extract reads the text of a PDF on disk, falling back to OCR when the PDF
// carries (almost) no embedded text.
func (e *Extractor) Extract(ctx context.Context, path string) (ExtractionResult, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	if !constants.IsAllowedExt(ext) {
		e.logger.Error("ocr.extract.unsupported_ext", "path", path, "extension", ext)
		return ExtractionResult{}, fmt.Errorf("unsupported extension: %q", ext)
	}
	e.logger.Debug("ocr.extract.start", "path", path)

	res, err := e.extractPDF(ctx, path)
	res.Duration = time.Since(start)
	if err != nil {
		e.logger.Error("ocr.extract.failed", "path", path, "error", err, "elapsed_ms", res.Duration.Milliseconds())
		return res, err
	}
	e.logger.Info("ocr.extract.ok",
		"path", filepath.Base(path),
		"method", res.Method,
		"pages", res.Pages,
		"chars", len(res.Text),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// ExtractBytes writes content to a temporary file and extracts its text.
func (e *Extractor) ExtractBytes(ctx context.Context, name string, content []byte) (ExtractionResult, error) {
	tmpDir, err := os.MkdirTemp("", "iv-doc-*")
	if err != nil {
		return ExtractionResult{}, fmt.Errorf("create temp dir: %w", err)
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			e.logger.Warn("ocr.tempdir.cleanup_failed", "path", path, "error", err)
		}
	}(tmpDir)

	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "document.pdf"
	}
	path := filepath.Join(tmpDir, base)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return ExtractionResult{}, fmt.Errorf("write temp pdf: %w", err)
	}
	return e.Extract(ctx, path)
}

func (e *Extractor) extractPDF(ctx context.Context, path string) (ExtractionResult, error) {
	text, pages, warns, err := e.pdfToText(ctx, path)
	if err == nil {
		text = Normalize(text)
		if len([]rune(text)) >= e.cfg.MinTextChars {
			return ExtractionResult{Text: text, Pages: pages, Method: "pdf-text", Warnings: warns}, nil
		}
		e.logger.Warn("ocr.extract.fallback", "path", path, "reason", "little_text", "chars", len(text))
	} else {
		warns = append(warns, err.Error())
		e.logger.Warn("ocr.extract.fallback", "path", path, "reason", "pdftotext_failed", "error", err)
	}

	ocrText, ocrPages, ocrWarns, ocrErr := e.pdfToOCR(ctx, path)
	warns = append(warns, ocrWarns...)
	if ocrErr != nil {
		return ExtractionResult{Method: "pdf-ocr", Warnings: warns}, fmt.Errorf("pdf ocr: %w", ocrErr)
	}
	ocrText = Normalize(ocrText)
	if ocrText == "" {
		return ExtractionResult{Method: "pdf-ocr", Pages: ocrPages, Warnings: warns}, fmt.Errorf("no text found in %s", filepath.Base(path))
	}
	return ExtractionResult{
		Text:     ocrText,
		Pages:    ocrPages,
		Method:   "pdf-ocr",
		Language: e.cfg.TesseractLang,
		Warnings: warns,
	}, nil
}
