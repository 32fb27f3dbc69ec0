package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/joseph-ayodele/income-verifier/constants"
	"github.com/joseph-ayodele/income-verifier/internal/common"
	"github.com/joseph-ayodele/income-verifier/internal/entity"
	"github.com/joseph-ayodele/income-verifier/internal/llm"
	"github.com/joseph-ayodele/income-verifier/internal/ocr"
	"github.com/joseph-ayodele/income-verifier/internal/repository"
)

type fakeText struct {
	fail map[string]error
}

func (f *fakeText) ExtractBytes(_ context.Context, name string, _ []byte) (ocr.ExtractionResult, error) {
	if err := f.fail[name]; err != nil {
		return ocr.ExtractionResult{}, err
	}
	return ocr.ExtractionResult{Text: "text of " + name, Pages: 1, Method: "pdf-text"}, nil
}

// fakeClassifier answers by document name, read back from the fake text.
type fakeClassifier struct {
	types map[string]constants.DocumentType
	errs  map[string]error
}

func (f *fakeClassifier) Classify(_ context.Context, text string) (constants.DocumentType, error) {
	name := strings.TrimPrefix(text, "text of ")
	if err := f.errs[name]; err != nil {
		return constants.Unknown, err
	}
	if dt, ok := f.types[name]; ok {
		return dt, nil
	}
	return constants.Unknown, common.ErrClassification
}

type fakeExtractor struct {
	records map[string]entity.ExtractedRecord
	errs    map[string]error

	mu    sync.Mutex
	hints map[string]string
}

func (f *fakeExtractor) ExtractFields(_ context.Context, req llm.ExtractRequest) (entity.ExtractedRecord, []byte, error) {
	f.mu.Lock()
	if f.hints == nil {
		f.hints = map[string]string{}
	}
	f.hints[req.FilenameHint] = req.EmployerHint
	f.mu.Unlock()

	if err := f.errs[req.FilenameHint]; err != nil {
		return entity.ExtractedRecord{}, nil, err
	}
	return f.records[req.FilenameHint], []byte("{}"), nil
}

type failingStore struct {
	*repository.MemoryStore
}

func (failingStore) Append(context.Context, entity.FinalRecord) error {
	return errors.New("disk full")
}

func str(s string) *string   { return &s }
func num(v float64) *float64 { return &v }
func doc(name string) entity.Document {
	return entity.Document{Name: name, HashHex: "hash-" + name, Content: []byte(name)}
}

func paySlip(net float64, period string) entity.ExtractedRecord {
	return entity.ExtractedRecord{
		Name:      str("Dupont"),
		FirstName: str("Marie"),
		Position:  str("Comptable"),
		Employer:  str("ACME SAS"),
		Period:    str(period),
		NetSalary: num(net),
	}
}

type fixture struct {
	text       *fakeText
	classifier *fakeClassifier
	extractor  *fakeExtractor
	store      repository.ResultStore
	cfg        common.AnalysisConfig
}

func newFixture() *fixture {
	return &fixture{
		text: &fakeText{},
		classifier: &fakeClassifier{types: map[string]constants.DocumentType{
			"jan.pdf": constants.PaySlip,
			"feb.pdf": constants.PaySlip,
			"mar.pdf": constants.PaySlip,
		}},
		extractor: &fakeExtractor{records: map[string]entity.ExtractedRecord{
			"jan.pdf": paySlip(2000, "2025-01"),
			"feb.pdf": paySlip(2100, "2025-02"),
			"mar.pdf": paySlip(2050, "2025-03"),
		}},
		store: repository.NewMemoryStore(),
		cfg: common.AnalysisConfig{
			MinPaySlips:        3,
			MaxDocuments:       5,
			DefaultLoanYears:   20,
			ExtractConcurrency: 3,
		},
	}
}

func (f *fixture) add(name string, dt constants.DocumentType, rec entity.ExtractedRecord) {
	f.classifier.types[name] = dt
	f.extractor.records[name] = rec
}

func (f *fixture) processor() *Processor {
	p := NewProcessor(nil, f.text, f.classifier, f.extractor, f.store, nil, f.cfg)
	p.now = func() time.Time { return time.Date(2025, 4, 2, 9, 30, 0, 0, time.UTC) }
	return p
}

func docs(names ...string) []entity.Document {
	out := make([]entity.Document, len(names))
	for i, n := range names {
		out[i] = doc(n)
	}
	return out
}

func TestAnalyze_VerifiedByContract(t *testing.T) {
	f := newFixture()
	f.add("contract.pdf", constants.Contract, entity.ExtractedRecord{GrossSalary: num(2650)})

	res, err := f.processor().Analyze(context.Background(), AnalysisRequest{
		Documents: docs("jan.pdf", "feb.pdf", "mar.pdf", "contract.pdf"),
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Record == nil || !res.Persisted {
		t.Fatalf("expected a persisted record, got %+v", res)
	}
	rec := *res.Record
	if !rec.Verified || rec.Reason != "" {
		t.Errorf("verdict = %v %q, want verified", rec.Verified, rec.Reason)
	}
	if res.Verdict.MatchedBy != "contract" {
		t.Errorf("matched by %q, want contract", res.Verdict.MatchedBy)
	}
	if rec.AverageNetSalary != 2050 || rec.MonthlyCapacity != 676.5 || rec.TotalBorrowable != 162360 || rec.LoanYears != 20 {
		t.Errorf("figures = %+v", rec)
	}
	if entity.StringValue(rec.FullName) != "Marie Dupont" || entity.StringValue(rec.Employer) != "ACME SAS" {
		t.Errorf("identity = %v / %v", entity.StringValue(rec.FullName), entity.StringValue(rec.Employer))
	}
	if !rec.CreatedAt.Equal(time.Date(2025, 4, 2, 9, 30, 0, 0, time.UTC)) {
		t.Errorf("created_at = %s", rec.CreatedAt)
	}

	stored, err := f.store.Latest(context.Background())
	if err != nil || stored.ID != rec.ID {
		t.Fatalf("store latest = %v, %v; want %s", stored.ID, err, rec.ID)
	}
	for i, d := range res.Documents {
		if d.Status != constants.DocumentStatusUsable {
			t.Errorf("document %d %s status = %s", i, d.Name, d.Status)
		}
	}
	if res.Documents[3].Name != "contract.pdf" {
		t.Errorf("reports out of input order: %+v", res.Documents)
	}
}

func TestAnalyze_BankStatementGetsEmployerHint(t *testing.T) {
	f := newFixture()
	f.add("bank.pdf", constants.BankStatement, entity.ExtractedRecord{ReceivedAmounts: []float64{1200, 2080}})

	res, err := f.processor().Analyze(context.Background(), AnalysisRequest{
		Documents: docs("bank.pdf", "jan.pdf", "feb.pdf", "mar.pdf"),
		LoanYears: 25,
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got := f.extractor.hints["bank.pdf"]; got != "ACME SAS" {
		t.Errorf("employer hint = %q, want ACME SAS", got)
	}
	if f.extractor.hints["jan.pdf"] != "" {
		t.Error("pay slips must not get an employer hint")
	}
	if !res.Record.Verified || res.Verdict.MatchedBy != "bank_statement" {
		t.Errorf("verdict = %+v, want verified by bank statement", res.Verdict)
	}
	if res.Record.LoanYears != 25 {
		t.Errorf("loan years = %d", res.Record.LoanYears)
	}
}

func TestAnalyze_NotVerifiedKeepsReason(t *testing.T) {
	f := newFixture()
	f.add("bank.pdf", constants.BankStatement, entity.ExtractedRecord{ReceivedAmount: num(900)})

	res, err := f.processor().Analyze(context.Background(), AnalysisRequest{
		Documents: docs("jan.pdf", "feb.pdf", "mar.pdf", "bank.pdf"),
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Record.Verified || res.Record.Reason == "" {
		t.Fatalf("expected an unverified record with a reason, got %+v", res.Record)
	}
	if !strings.Contains(res.Summary, "**NO**") || !strings.Contains(res.Summary, res.Record.Reason) {
		t.Errorf("summary misses the verdict: %s", res.Summary)
	}
}

func TestAnalyze_InsufficientPaySlips(t *testing.T) {
	f := newFixture()
	res, err := f.processor().Analyze(context.Background(), AnalysisRequest{
		Documents: docs("jan.pdf", "feb.pdf"),
	})
	if !errors.Is(err, common.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	if res == nil || res.Record != nil || len(res.Documents) != 2 {
		t.Fatalf("expected reports without a record, got %+v", res)
	}
	if n, _ := f.store.Count(context.Background()); n != 0 {
		t.Errorf("store has %d records, want none", n)
	}
}

func TestAnalyze_DocumentFailuresDoNotAbort(t *testing.T) {
	f := newFixture()
	f.cfg.MaxDocuments = 10
	f.text.fail = map[string]error{"scan.pdf": errors.New("no text")}
	f.classifier.errs = map[string]error{"down.pdf": errors.New("connection refused")}
	f.classifier.types["broken.pdf"] = constants.PaySlip
	f.extractor.errs = map[string]error{"broken.pdf": common.NewExtractionError("not json", errors.New("no JSON found"))}
	f.add("blank.pdf", constants.Contract, entity.ExtractedRecord{Employer: str("ACME SAS")})

	res, err := f.processor().Analyze(context.Background(), AnalysisRequest{
		Documents: docs("scan.pdf", "invoice.pdf", "down.pdf", "broken.pdf", "blank.pdf", "jan.pdf", "feb.pdf", "mar.pdf"),
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	want := []constants.DocumentStatus{
		constants.DocumentStatusTextFailed,
		constants.DocumentStatusUnknownType,
		constants.DocumentStatusClassifyFailed,
		constants.DocumentStatusExtractionFailed,
		constants.DocumentStatusNoSalaryData,
		constants.DocumentStatusUsable,
		constants.DocumentStatusUsable,
		constants.DocumentStatusUsable,
	}
	for i, w := range want {
		if got := res.Documents[i].Status; got != w {
			t.Errorf("%s status = %s, want %s", res.Documents[i].Name, got, w)
		}
	}
	if res.Documents[3].RawOutput != "not json" {
		t.Errorf("raw output = %q, want the model answer", res.Documents[3].RawOutput)
	}
	if res.Record.Verified || !strings.Contains(res.Record.Reason, "no contract gross salary found") {
		t.Errorf("verdict = %v %q", res.Record.Verified, res.Record.Reason)
	}
}

func TestAnalyze_RejectsRequests(t *testing.T) {
	f := newFixture()
	p := f.processor()
	tests := []struct {
		name string
		req  AnalysisRequest
	}{
		{name: "no documents", req: AnalysisRequest{}},
		{name: "loan years too short", req: AnalysisRequest{Documents: docs("jan.pdf"), LoanYears: 3}},
		{name: "loan years too long", req: AnalysisRequest{Documents: docs("jan.pdf"), LoanYears: 31}},
		{name: "too many documents", req: AnalysisRequest{Documents: docs("a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf", "f.pdf")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.Analyze(context.Background(), tt.req); !errors.Is(err, common.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestAnalyze_DuplicatesIgnored(t *testing.T) {
	f := newFixture()
	dup := doc("jan-copy.pdf")
	dup.HashHex = doc("jan.pdf").HashHex

	res, err := f.processor().Analyze(context.Background(), AnalysisRequest{
		Documents: append(docs("jan.pdf", "feb.pdf", "mar.pdf"), dup),
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Documents) != 3 || len(res.Warnings) != 1 || !strings.HasPrefix(res.Warnings[0], "jan-copy.pdf") {
		t.Fatalf("documents %d warnings %v", len(res.Documents), res.Warnings)
	}
}

func TestAnalyze_PersistenceFailureReturnsRecord(t *testing.T) {
	f := newFixture()
	f.store = failingStore{repository.NewMemoryStore()}

	res, err := f.processor().Analyze(context.Background(), AnalysisRequest{
		Documents: docs("jan.pdf", "feb.pdf", "mar.pdf"),
	})
	if !errors.Is(err, common.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if res == nil || res.Record == nil || res.Persisted {
		t.Fatalf("expected the unsaved record back, got %+v", res)
	}
}

func TestAnalyze_CanceledContext(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.processor().Analyze(ctx, AnalysisRequest{Documents: docs("jan.pdf", "feb.pdf", "mar.pdf")}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
