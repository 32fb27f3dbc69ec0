package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/income-verifier/constants"
	"github.com/joseph-ayodele/income-verifier/internal/archive"
	"github.com/joseph-ayodele/income-verifier/internal/capacity"
	"github.com/joseph-ayodele/income-verifier/internal/common"
	"github.com/joseph-ayodele/income-verifier/internal/entity"
	"github.com/joseph-ayodele/income-verifier/internal/ingest"
	"github.com/joseph-ayodele/income-verifier/internal/llm"
	"github.com/joseph-ayodele/income-verifier/internal/ocr"
	"github.com/joseph-ayodele/income-verifier/internal/reconcile"
	"github.com/joseph-ayodele/income-verifier/internal/repository"
)

// TextExtractor reads the text of an uploaded PDF.
type TextExtractor interface {
	ExtractBytes(ctx context.Context, name string, content []byte) (ocr.ExtractionResult, error)
}

// Processor coordinates text extraction, classification, field extraction,
// reconciliation, capacity estimation and persistence for one applicant.
type Processor struct {
	logger     *slog.Logger
	text       TextExtractor
	classifier llm.Classifier
	extractor  llm.FieldExtractor
	engine     *reconcile.Engine
	store      repository.ResultStore
	archiver   archive.Archiver
	cfg        common.AnalysisConfig
	now        func() time.Time
}

func NewProcessor(
	logger *slog.Logger,
	text TextExtractor,
	classifier llm.Classifier,
	extractor llm.FieldExtractor,
	store repository.ResultStore,
	archiver archive.Archiver,
	cfg common.AnalysisConfig,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if archiver == nil {
		archiver = archive.Noop{}
	}
	if cfg.MaxDocuments <= 0 {
		cfg.MaxDocuments = constants.DefaultMaxDocuments
	}
	if cfg.DefaultLoanYears == 0 {
		cfg.DefaultLoanYears = constants.DefaultLoanYears
	}
	if cfg.ExtractConcurrency < 1 {
		cfg.ExtractConcurrency = 1
	}
	return &Processor{
		logger:     logger,
		text:       text,
		classifier: classifier,
		extractor:  extractor,
		engine:     reconcile.NewEngine(logger),
		store:      store,
		archiver:   archiver,
		cfg:        cfg,
		now:        time.Now,
	}
}

// AnalysisRequest is one applicant's document set. LoanYears 0 means the
// configured default.
type AnalysisRequest struct {
	Documents []entity.Document
	LoanYears int
}

// DocumentReport tells what happened to one document during a run.
type DocumentReport struct {
	Name        string                   `json:"name"`
	HashHex     string                   `json:"hash_hex"`
	Type        constants.DocumentType   `json:"type"`
	Status      constants.DocumentStatus `json:"status"`
	TextMethod  string                   `json:"text_method,omitempty"`
	Pages       int                      `json:"pages,omitempty"`
	TextPreview string                   `json:"text_preview,omitempty"`
	Record      *entity.ExtractedRecord  `json:"record,omitempty"`
	RawOutput   string                   `json:"raw_output,omitempty"`
	ArchiveURI  string                   `json:"archive_uri,omitempty"`
	Warnings    []string                 `json:"warnings,omitempty"`
	Error       string                   `json:"error,omitempty"`
}

// AnalysisResult is returned even when the run stops short of a record, so
// the per-document reports are never lost.
type AnalysisResult struct {
	RunID     string                  `json:"run_id"`
	LoanYears int                     `json:"loan_years"`
	Documents []DocumentReport        `json:"documents"`
	Verdict   *entity.Verdict         `json:"verdict,omitempty"`
	Estimate  *entity.Estimate        `json:"estimate,omitempty"`
	Record    *entity.FinalRecord     `json:"record,omitempty"`
	Persisted bool                    `json:"persisted"`
	Warnings  []string                `json:"warnings,omitempty"`
	Summary   string                  `json:"summary"`
	Identity  *entity.ExtractedRecord `json:"-"`
}

// Analyze runs the whole pipeline on req. Per-document failures are reported
// in the result and never abort the run. The returned error wraps
// common.ErrInvalidInput for a rejected request, common.ErrInsufficientData
// when too few pay slips carry a net salary, and common.ErrPersistence when
// the record was built but could not be stored; in the last two cases the
// result is still returned.
func (p *Processor) Analyze(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error) {
	start := time.Now()
	runID := common.RunIDFromContext(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = common.WithRunID(ctx, runID)
	}
	log := p.logger.With("run_id", runID)

	years := req.LoanYears
	if years == 0 {
		years = p.cfg.DefaultLoanYears
	}
	if err := common.ValidateLoanYears(years); err != nil {
		return nil, err
	}
	if len(req.Documents) == 0 {
		return nil, fmt.Errorf("%w: no documents supplied", common.ErrInvalidInput)
	}
	docs, dups := ingest.Dedupe(req.Documents)
	if len(docs) > p.cfg.MaxDocuments {
		return nil, fmt.Errorf("%w: at most %d documents per run, got %d", common.ErrInvalidInput, p.cfg.MaxDocuments, len(docs))
	}

	res := &AnalysisResult{RunID: runID, LoanYears: years}
	for _, name := range dups {
		res.Warnings = append(res.Warnings, name+": same content as another document, ignored")
	}
	log.Info("processor.run.start", "documents", len(docs), "duplicates", len(dups), "loan_years", years)

	res.Documents = make([]DocumentReport, len(docs))
	texts := make([]string, len(docs))
	ready := make([]bool, len(docs))
	if err := p.forEach(ctx, len(docs), func(ctx context.Context, i int) {
		res.Documents[i], texts[i], ready[i] = p.prepare(ctx, docs[i])
	}); err != nil {
		return nil, err
	}

	// Pay slips and contracts first: the identity pay slip names the
	// employer the bank statements are searched for.
	records := make([]*entity.ExtractedRecord, len(docs))
	if err := p.forEach(ctx, len(docs), func(ctx context.Context, i int) {
		if !ready[i] || res.Documents[i].Type == constants.BankStatement {
			return
		}
		records[i] = p.extract(ctx, &res.Documents[i], texts[i], "")
	}); err != nil {
		return nil, err
	}

	var paySlips []entity.ExtractedRecord
	for i, rep := range res.Documents {
		if rep.Type == constants.PaySlip && records[i] != nil {
			paySlips = append(paySlips, *records[i])
		}
	}
	identity, hasIdentity := PickIdentity(paySlips)
	if hasIdentity {
		res.Identity = &identity
	}

	employer := entity.StringValue(identity.Employer)
	if err := p.forEach(ctx, len(docs), func(ctx context.Context, i int) {
		if !ready[i] || res.Documents[i].Type != constants.BankStatement {
			return
		}
		records[i] = p.extract(ctx, &res.Documents[i], texts[i], employer)
	}); err != nil {
		return nil, err
	}

	in := reconcile.Input{}
	for i, rep := range res.Documents {
		rec := records[i]
		if rec == nil {
			continue
		}
		switch rep.Type {
		case constants.PaySlip:
			if rec.NetSalary != nil {
				in.NetSalaries = append(in.NetSalaries, *rec.NetSalary)
			}
		case constants.Contract:
			in.Contracts = append(in.Contracts, *rec)
		case constants.BankStatement:
			in.Banks = append(in.Banks, entity.BankRecord{
				Employer: firstNonEmpty(entity.StringValue(rec.Employer), employer),
				Amounts:  rec.Amounts(),
			})
		}
	}

	if len(in.NetSalaries) == 0 || len(in.NetSalaries) < p.cfg.MinPaySlips {
		res.Summary = Summary(res)
		log.Warn("processor.run.insufficient_data",
			"net_salaries", len(in.NetSalaries),
			"min_pay_slips", p.cfg.MinPaySlips,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return res, fmt.Errorf("%w: %d pay slips with a net salary, need at least %d",
			common.ErrInsufficientData, len(in.NetSalaries), max(p.cfg.MinPaySlips, 1))
	}

	verdict := p.engine.Reconcile(in)
	res.Verdict = &verdict

	est, err := capacity.Estimate(in.NetSalaries, years)
	if err != nil {
		res.Summary = Summary(res)
		return res, err
	}
	res.Estimate = &est

	rec := AssembleRecord(paySlips, verdict, est, p.now())
	res.Record = &rec

	if err := p.store.Append(ctx, rec); err != nil {
		res.Summary = Summary(res)
		log.Error("processor.persist.failed", "id", rec.ID, "error", err)
		if !errors.Is(err, common.ErrPersistence) {
			err = errors.Join(common.ErrPersistence, err)
		}
		return res, fmt.Errorf("append record %s: %w", rec.ID, err)
	}
	res.Persisted = true
	res.Summary = Summary(res)

	log.Info("processor.run.ok",
		"id", rec.ID,
		"verified", verdict.Verified,
		"reason_code", verdict.ReasonCode,
		"net_salaries", len(in.NetSalaries),
		"contracts", len(in.Contracts),
		"banks", len(in.Banks),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// forEach runs fn for every index with at most ExtractConcurrency in flight.
// Results are written by index, so callers keep input order.
func (p *Processor) forEach(ctx context.Context, n int, fn func(ctx context.Context, i int)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.ExtractConcurrency)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			fn(gctx, i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// prepare archives, reads and classifies one document. The bool is true when
// the document can go on to field extraction.
func (p *Processor) prepare(ctx context.Context, doc entity.Document) (DocumentReport, string, bool) {
	rep := DocumentReport{Name: doc.Name, HashHex: doc.HashHex, Type: constants.Unknown}

	if uri, err := p.archiver.Archive(ctx, doc); err != nil {
		p.logger.Warn("processor.archive.failed", "name", doc.Name, "error", err)
		rep.Warnings = append(rep.Warnings, "archive: "+err.Error())
	} else {
		rep.ArchiveURI = uri
	}

	tr, err := p.text.ExtractBytes(ctx, doc.Name, doc.Content)
	rep.Warnings = append(rep.Warnings, tr.Warnings...)
	if err != nil {
		p.logger.Warn("processor.text.failed", "name", doc.Name, "error", err)
		rep.Status = constants.DocumentStatusTextFailed
		rep.Error = err.Error()
		return rep, "", false
	}
	rep.TextMethod = tr.Method
	rep.Pages = tr.Pages
	rep.TextPreview = preview(tr.Text, previewRunes)

	dt, err := p.classifier.Classify(ctx, tr.Text)
	switch {
	case errors.Is(err, common.ErrClassification):
		rep.Status = constants.DocumentStatusUnknownType
		rep.Warnings = append(rep.Warnings, "document type not recognized")
		rep.Error = err.Error()
		return rep, "", false
	case err != nil:
		p.logger.Error("processor.classify.failed", "name", doc.Name, "error", err)
		rep.Status = constants.DocumentStatusClassifyFailed
		rep.Error = err.Error()
		return rep, "", false
	case dt == constants.Unknown:
		rep.Status = constants.DocumentStatusUnknownType
		rep.Warnings = append(rep.Warnings, "document type not recognized")
		return rep, "", false
	}
	rep.Type = dt
	return rep, tr.Text, true
}

// extract fills rep with the model's record and returns it, or nil when the
// model output was unusable.
func (p *Processor) extract(ctx context.Context, rep *DocumentReport, text, employerHint string) *entity.ExtractedRecord {
	rec, raw, err := p.extractor.ExtractFields(ctx, llm.ExtractRequest{
		DocType:      rep.Type,
		Text:         text,
		FilenameHint: rep.Name,
		EmployerHint: employerHint,
	})
	if err != nil {
		p.logger.Warn("processor.extract.failed", "name", rep.Name, "doc_type", rep.Type, "error", err)
		rep.Status = constants.DocumentStatusExtractionFailed
		rep.Error = err.Error()
		var xerr *common.ExtractionError
		if errors.As(err, &xerr) && xerr.Raw != "" {
			rep.RawOutput = xerr.Raw
		} else if len(raw) > 0 {
			rep.RawOutput = string(raw)
		}
		return nil
	}

	rep.Record = &rec
	if rec.HasSalaryData() {
		rep.Status = constants.DocumentStatusUsable
	} else {
		rep.Status = constants.DocumentStatusNoSalaryData
		rep.Warnings = append(rep.Warnings, "no salary figure found")
	}
	return &rec
}

const previewRunes = 400

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
