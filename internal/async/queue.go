package async

import (
	"context"
	"errors"
	"time"

	"github.com/joseph-ayodele/income-verifier/internal/core"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one applicant's analysis.
type Job struct {
	ID          string
	Request     core.AnalysisRequest
	SubmittedAt time.Time
}

// Outcome is reported once per job, whatever happened to it.
type Outcome struct {
	Job     Job
	Result  *core.AnalysisResult
	Err     error
	Elapsed time.Duration
}

// Analyzer is satisfied by *core.Processor.
type Analyzer interface {
	Analyze(ctx context.Context, req core.AnalysisRequest) (*core.AnalysisResult, error)
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context) error
}
