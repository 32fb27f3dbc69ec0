package llm

import (
	"context"

	"github.com/joseph-ayodele/income-verifier/constants"
	"github.com/joseph-ayodele/income-verifier/internal/entity"
)

// CompletionRequest is a single prompt sent to a model provider.
type CompletionRequest struct {
	System string
	Prompt string
	// JSON asks the provider for a JSON-only answer when it supports it.
	JSON bool
	// Schema is passed along to providers that accept structured output hints.
	Schema map[string]any
}

// Completer is the only thing a model provider has to implement.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Name() string
}

type ExtractRequest struct {
	DocType      constants.DocumentType
	Text         string
	FilenameHint string
	// EmployerHint narrows bank statement extraction to transfers from this employer.
	EmployerHint string
}

// Classifier labels raw document text with a document type.
type Classifier interface {
	Classify(ctx context.Context, text string) (constants.DocumentType, error)
}

// FieldExtractor turns raw document text into a record. On failure the raw
// model output is returned with a *common.ExtractionError.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, req ExtractRequest) (entity.ExtractedRecord, []byte, error)
}
