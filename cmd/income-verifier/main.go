package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joseph-ayodele/income-verifier/internal/app"
	"github.com/joseph-ayodele/income-verifier/internal/common"
	"github.com/joseph-ayodele/income-verifier/internal/core"
	"github.com/joseph-ayodele/income-verifier/internal/entity"
	"github.com/joseph-ayodele/income-verifier/internal/export"
	"github.com/joseph-ayodele/income-verifier/internal/ingest"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		years   = flag.Int("years", 0, "loan duration in years, 5 to 30 (default DEFAULT_LOAN_YEARS)")
		outDir  = flag.String("out", "", "directory for the CSV and JSON export of the new record (optional)")
		store   = flag.String("store", "", "override STORE_BACKEND (file, sqlite, postgres, redis, memory)")
		envFile = flag.String("env", ".env", "dotenv file loaded before the environment")
		asJSON  = flag.Bool("json", false, "print the full run report as JSON instead of the summary")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <file.pdf|dir>...\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		return 2
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := app.TextLogger(level)
	slog.SetDefault(logger)

	if *store != "" {
		_ = os.Setenv("STORE_BACKEND", *store)
	}
	cfg, err := app.LoadConfig(*envFile)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return 1
	}
	defer a.Close()

	docs, results, stats, err := ingest.NewCollector(logger).Collect(ctx, flag.Args())
	if err != nil {
		logger.Error("collect documents", "error", err)
		return 1
	}
	for _, r := range results {
		if r.Err != "" {
			logger.Warn("document skipped", "path", r.SourcePath, "error", r.Err)
		}
	}
	logger.Info("documents collected",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)

	res, err := a.Processor.Analyze(ctx, core.AnalysisRequest{Documents: docs, LoanYears: *years})
	if res != nil {
		if *asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(res)
		} else {
			fmt.Print(res.Summary)
		}
	}
	if err != nil {
		logger.Error("analysis incomplete", "error", err)
		if errors.Is(err, common.ErrInsufficientData) || errors.Is(err, common.ErrInvalidInput) {
			return 3
		}
		return 1
	}

	if *outDir != "" && res.Record != nil {
		if err := writeExports(*outDir, *res.Record); err != nil {
			logger.Error("write exports", "error", err)
			return 1
		}
	}
	return 0
}

func writeExports(dir string, rec entity.FinalRecord) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	csvData, err := export.CSV(rec)
	if err != nil {
		return err
	}
	jsonData, err := export.JSON(rec)
	if err != nil {
		return err
	}
	base := "resultat_" + rec.CreatedAt.UTC().Format("20060102-150405")
	if err := os.WriteFile(filepath.Join(dir, base+".csv"), csvData, 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, base+".json"), jsonData, 0o644); err != nil {
		return err
	}
	slog.Info("exports written", "dir", dir, "base", base)
	return nil
}
