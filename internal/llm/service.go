package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/income-verifier/constants"
	"github.com/joseph-ayodele/income-verifier/internal/common"
	"github.com/joseph-ayodele/income-verifier/internal/entity"
)

// Service implements Classifier and FieldExtractor on top of any Completer.
type Service struct {
	completer Completer
	logger    *slog.Logger
}

func NewService(c Completer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{completer: c, logger: logger}
}

var (
	_ Classifier     = (*Service)(nil)
	_ FieldExtractor = (*Service)(nil)
)

// Classify asks the model for the document type. Empty text or an answer
// outside the known set yields constants.Unknown and an error wrapping
// common.ErrClassification; provider failures are returned as they are.
func (s *Service) Classify(ctx context.Context, text string) (constants.DocumentType, error) {
	rid := uuid.New().String()
	start := time.Now()

	if strings.TrimSpace(text) == "" {
		return constants.Unknown, fmt.Errorf("%w: empty document text", common.ErrClassification)
	}

	s.logger.Info("llm.classify.start", "req_id", rid, "provider", s.completer.Name(), "text_len", len(text))

	answer, err := s.completer.Complete(ctx, BuildClassifyPrompt(text))
	if err != nil {
		s.logger.Error("llm.classify.failed", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return constants.Unknown, fmt.Errorf("classify via %s: %w", s.completer.Name(), err)
	}

	docType, ok := canonicalizeAnswer(answer)
	if !ok {
		s.logger.Warn("llm.classify.unknown", "req_id", rid, "answer", truncate(answer, 200), "elapsed_ms", time.Since(start).Milliseconds())
		return constants.Unknown, fmt.Errorf("%w: model answered %q", common.ErrClassification, truncate(answer, 80))
	}

	s.logger.Info("llm.classify.ok", "req_id", rid, "doc_type", docType, "elapsed_ms", time.Since(start).Milliseconds())
	return docType, nil
}

// canonicalizeAnswer accepts the whole answer first, then each word of it,
// so "Type: fiche_de_paie." still resolves.
func canonicalizeAnswer(answer string) (constants.DocumentType, bool) {
	if dt, ok := constants.Canonicalize(answer); ok {
		return dt, true
	}
	firstLine, _, _ := strings.Cut(strings.TrimSpace(answer), "\n")
	if dt, ok := constants.Canonicalize(firstLine); ok {
		return dt, true
	}
	words := strings.FieldsFunc(strings.ToLower(answer), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '_'
	})
	for _, w := range words {
		if dt, ok := constants.Canonicalize(w); ok {
			return dt, true
		}
	}
	return constants.Unknown, false
}

// ExtractFields runs the per-type extraction prompt and turns the answer into a record.
// The raw model output is always returned when the call itself succeeded.
func (s *Service) ExtractFields(ctx context.Context, req ExtractRequest) (entity.ExtractedRecord, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	switch req.DocType {
	case constants.PaySlip, constants.Contract, constants.BankStatement:
	default:
		return entity.ExtractedRecord{}, nil, fmt.Errorf("%w: cannot extract fields from document type %q", common.ErrInvalidInput, req.DocType)
	}

	s.logger.Info("llm.extract.start",
		"req_id", rid,
		"provider", s.completer.Name(),
		"doc_type", req.DocType,
		"text_len", len(req.Text),
		"filename", req.FilenameHint,
		"employer_hint", req.EmployerHint,
	)

	schema := BuildRecordJSONSchema(req.DocType)
	answer, err := s.completer.Complete(ctx, CompletionRequest{
		System: BuildSystemPrompt(req.DocType),
		Prompt: BuildUserPrompt(req) + "\n\nReturn ONLY JSON that matches the provided schema.",
		JSON:   true,
		Schema: schema,
	})
	if err != nil {
		s.logger.Error("llm.extract.http_error", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return entity.ExtractedRecord{}, nil, common.NewExtractionError("", err)
	}
	raw := []byte(answer)

	rec, err := s.decode(req.DocType, answer)
	if err != nil {
		s.logger.Error("llm.extract.decode_failed",
			"req_id", rid,
			"doc_type", req.DocType,
			"error", err,
			"content", truncate(answer, 500),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ExtractedRecord{}, raw, common.NewExtractionError(answer, err)
	}

	s.logger.Info("llm.extract.ok",
		"req_id", rid,
		"doc_type", req.DocType,
		"employer", entity.StringValue(rec.Employer),
		"period", entity.StringValue(rec.Period),
		"has_salary_data", rec.HasSalaryData(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rec, raw, nil
}

func (s *Service) decode(docType constants.DocumentType, answer string) (entity.ExtractedRecord, error) {
	doc, err := ExtractJSON(answer)
	if err != nil {
		return entity.ExtractedRecord{}, err
	}
	cleaned, _, err := NormalizeAndSanitizeJSON(doc, docType, s.logger)
	if err != nil {
		return entity.ExtractedRecord{}, err
	}
	if err := ValidateRecordJSON(docType, cleaned); err != nil {
		return entity.ExtractedRecord{}, errors.Join(common.ErrValidation, err)
	}
	var rec entity.ExtractedRecord
	if err := json.Unmarshal(cleaned, &rec); err != nil {
		return entity.ExtractedRecord{}, fmt.Errorf("unmarshal fields: %w", err)
	}
	return rec, nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "...(truncated)"
}
