package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/joseph-ayodele/income-verifier/internal/app"
	"github.com/joseph-ayodele/income-verifier/internal/async"
	"github.com/joseph-ayodele/income-verifier/internal/core"
	"github.com/joseph-ayodele/income-verifier/internal/ingest"
)

// Every sub-directory of --dir holds one applicant's documents.
func main() {
	os.Exit(run())
}

func run() int {
	var (
		dir      = flag.String("dir", "", "directory with one sub-directory per applicant (required)")
		out      = flag.String("out", "", "output XLSX path (default <dir>/historique.xlsx)")
		years    = flag.Int("years", 0, "loan duration in years (default DEFAULT_LOAN_YEARS)")
		workers  = flag.Int("workers", 2, "applicants analyzed in parallel")
		timeout  = flag.Duration("timeout", 10*time.Minute, "time limit per applicant")
		watch    = flag.Bool("watch", false, "keep running and analyze applicant folders as documents arrive")
		debounce = flag.Duration("debounce", 5*time.Second, "quiet period before a watched folder is analyzed")
		envFile  = flag.String("env", ".env", "dotenv file loaded before the environment")
	)
	flag.Parse()
	if *dir == "" {
		fmt.Fprintln(os.Stderr, "Error: --dir is required")
		return 2
	}
	if *out == "" {
		*out = filepath.Join(*dir, "historique.xlsx")
	}

	logger := app.TextLogger(slog.LevelInfo)
	slog.SetDefault(logger)

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

	var (
		mu       sync.Mutex
		verified int
		failures int
		done     int
	)
	queue := async.NewProcessorQueue(a.Processor, logger,
		async.WithWorkers(*workers),
		async.WithQueueSize(64),
		async.WithProcessTimeout(*timeout),
		async.WithOutcome(func(o async.Outcome) {
			mu.Lock()
			defer mu.Unlock()
			done++
			switch {
			case o.Err != nil:
				failures++
				fmt.Printf("- %s: %v\n", o.Job.ID, o.Err)
			case o.Result.Record != nil && o.Result.Record.Verified:
				verified++
				fmt.Printf("- %s: verified, capacity %.2f/month\n", o.Job.ID, o.Result.Record.MonthlyCapacity)
			default:
				fmt.Printf("- %s: not verified (%s)\n", o.Job.ID, o.Result.Record.Reason)
			}
		}),
	)

	collector := ingest.NewCollector(logger)
	enqueue := func(folder string) {
		docs, _, _, err := collector.Collect(ctx, []string{folder})
		if err != nil || len(docs) == 0 {
			logger.Warn("batch.folder.skipped", "folder", folder, "error", err)
			return
		}
		job := async.Job{
			ID:      filepath.Base(folder),
			Request: core.AnalysisRequest{Documents: docs, LoanYears: *years},
		}
		if err := queue.Enqueue(ctx, job); err != nil {
			logger.Error("batch.enqueue.failed", "folder", folder, "error", err)
		}
	}

	if *watch {
		folders, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Root:        *dir,
			InitialScan: true,
			Debounce:    *debounce,
			Logger:      logger,
		})
		if err != nil {
			logger.Error("watch failed", "dir", *dir, "error", err)
			return 1
		}
		logger.Info("watching for applicants", "dir", *dir)
		consumeWatch(ctx, folders, errs, enqueue, logger)
	} else {
		applicants, err := applicantDirs(*dir)
		if err != nil {
			logger.Error("read applicants", "dir", *dir, "error", err)
			return 1
		}
		for _, folder := range applicants {
			enqueue(folder)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := queue.Shutdown(shutdownCtx); err != nil {
		logger.Warn("queue did not drain", "error", err)
	}

	file, err := a.Exporter.History(context.Background())
	if err != nil {
		logger.Error("export history", "error", err)
		return 1
	}
	if err := os.WriteFile(*out, file.Data, 0o644); err != nil {
		logger.Error("write output file", "path", *out, "error", err)
		return 1
	}

	fmt.Printf("Batch complete!\n")
	fmt.Printf("- Applicants analyzed: %d\n", done)
	fmt.Printf("- Verified: %d\n", verified)
	fmt.Printf("- Failures: %d\n", failures)
	fmt.Printf("- Output: %s\n", *out)
	if failures > 0 {
		return 1
	}
	return 0
}

// applicantDirs lists the visible sub-directories of root in name order. A
// root holding documents directly counts as a single applicant.
func applicantDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() && !ingest.IsHidden(e.Name()) {
			dirs = append(dirs, filepath.Join(root, e.Name()))
		}
	}
	if len(dirs) == 0 {
		return []string{root}, nil
	}
	sort.Strings(dirs)
	return dirs, nil
}

// consumeWatch enqueues watched folders until ctx ends or folders closes.
func consumeWatch(ctx context.Context, folders <-chan string, errs <-chan error, enqueue func(string), logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case folder, ok := <-folders:
			if !ok {
				return
			}
			enqueue(folder)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("batch.watch.error", "error", err)
		}
	}
}
