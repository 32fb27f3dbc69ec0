package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/income-verifier/internal/common"
	"github.com/joseph-ayodele/income-verifier/internal/core"
	"github.com/joseph-ayodele/income-verifier/internal/entity"
	"github.com/joseph-ayodele/income-verifier/internal/export"
	"github.com/joseph-ayodele/income-verifier/internal/repository"
)

type fakeAnalyzer struct {
	got    core.AnalysisRequest
	result *core.AnalysisResult
	err    error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, req core.AnalysisRequest) (*core.AnalysisResult, error) {
	f.got = req
	return f.result, f.err
}

func multipartBody(t *testing.T, files map[string]string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile("files[]", name)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write([]byte(content))
	}
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	_ = mw.Close()
	return &buf, mw.FormDataContentType()
}

func record(name string, at time.Time) entity.FinalRecord {
	return entity.FinalRecord{
		ID:               uuid.New(),
		CreatedAt:        at,
		FullName:         &name,
		AverageNetSalary: 2050,
		MonthlyCapacity:  676.5,
		TotalBorrowable:  162360,
		LoanYears:        20,
		Verified:         true,
	}
}

func TestAnalyze_Created(t *testing.T) {
	rec := record("Marie Dupont", time.Now())
	fa := &fakeAnalyzer{result: &core.AnalysisResult{RunID: "r1", Record: &rec, Persisted: true}}
	srv := New(fa, repository.NewMemoryStore(), Config{}, nil)

	body, ctype := multipartBody(t, map[string]string{"jan.pdf": "%PDF-1 jan", "feb.pdf": "%PDF-1 feb"}, map[string]string{"loan_years": "25"})
	req := httptest.NewRequest(http.MethodPost, "/v1/analyses", body)
	req.Header.Set("Content-Type", ctype)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}
	if len(fa.got.Documents) != 2 || fa.got.LoanYears != 25 {
		t.Fatalf("analyzer got %d documents and %d years", len(fa.got.Documents), fa.got.LoanYears)
	}
	if fa.got.Documents[0].HashHex == "" {
		t.Error("uploaded documents must be hashed")
	}
	var resp struct {
		RunID  string             `json:"run_id"`
		Record entity.FinalRecord `json:"record"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.RunID != "r1" || resp.Record.ID != rec.ID {
		t.Errorf("response = %+v", resp)
	}
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		fields   map[string]string
		analyzer *fakeAnalyzer
		want     int
	}{
		{
			name:     "bad loan years",
			files:    map[string]string{"a.pdf": "x"},
			fields:   map[string]string{"loan_years": "twenty"},
			analyzer: &fakeAnalyzer{},
			want:     http.StatusBadRequest,
		},
		{
			name:     "not a pdf",
			files:    map[string]string{"a.docx": "x"},
			analyzer: &fakeAnalyzer{},
			want:     http.StatusBadRequest,
		},
		{
			name:     "rejected by processor",
			files:    map[string]string{"a.pdf": "x"},
			analyzer: &fakeAnalyzer{err: fmt.Errorf("%w: loan years", common.ErrInvalidInput)},
			want:     http.StatusBadRequest,
		},
		{
			name:     "insufficient data keeps reports",
			files:    map[string]string{"a.pdf": "x"},
			analyzer: &fakeAnalyzer{result: &core.AnalysisResult{RunID: "r2"}, err: common.ErrInsufficientData},
			want:     http.StatusUnprocessableEntity,
		},
		{
			name:     "store down",
			files:    map[string]string{"a.pdf": "x"},
			analyzer: &fakeAnalyzer{result: &core.AnalysisResult{RunID: "r3"}, err: common.ErrPersistence},
			want:     http.StatusServiceUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := New(tt.analyzer, repository.NewMemoryStore(), Config{}, nil)
			body, ctype := multipartBody(t, tt.files, tt.fields)
			req := httptest.NewRequest(http.MethodPost, "/v1/analyses", body)
			req.Header.Set("Content-Type", ctype)
			rr := httptest.NewRecorder()
			srv.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d; body %s", rr.Code, tt.want, rr.Body)
			}
			if !strings.Contains(rr.Body.String(), `"error"`) {
				t.Errorf("missing error field: %s", rr.Body)
			}
		})
	}
}

func TestAnalyze_NotMultipart(t *testing.T) {
	srv := New(&fakeAnalyzer{}, repository.NewMemoryStore(), Config{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/analyses", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}

func seededServer(t *testing.T) (*Server, []entity.FinalRecord) {
	t.Helper()
	store := repository.NewMemoryStore()
	recs := []entity.FinalRecord{
		record("Marie Dupont", time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)),
		record("Jean Martin", time.Date(2025, 4, 2, 8, 0, 0, 0, time.UTC)),
	}
	for _, r := range recs {
		if err := store.Append(context.Background(), r); err != nil {
			t.Fatal(err)
		}
	}
	return New(&fakeAnalyzer{}, store, Config{}, nil), recs
}

func get(srv http.Handler, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func TestRecords(t *testing.T) {
	srv, recs := seededServer(t)

	rr := get(srv, "/v1/records")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var list struct {
		Records []entity.FinalRecord `json:"records"`
		Count   int                  `json:"count"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if list.Count != 2 || list.Records[0].ID != recs[0].ID {
		t.Errorf("list = %+v", list)
	}

	rr = get(srv, "/v1/records/latest")
	var latest entity.FinalRecord
	_ = json.Unmarshal(rr.Body.Bytes(), &latest)
	if latest.ID != recs[1].ID {
		t.Errorf("latest = %s, want %s", latest.ID, recs[1].ID)
	}
}

func TestExportLatest(t *testing.T) {
	srv, recs := seededServer(t)

	rr := get(srv, "/v1/records/latest/export")
	if rr.Code != http.StatusOK || !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("csv export: %d %s", rr.Code, rr.Header().Get("Content-Type"))
	}
	parsed, err := export.ParseCSV(rr.Body.Bytes())
	if err != nil || len(parsed) != 1 || parsed[0].ID != recs[1].ID {
		t.Fatalf("csv export holds %+v, %v", parsed, err)
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), "resultat_20250402-080000.csv") {
		t.Errorf("disposition = %q", rr.Header().Get("Content-Disposition"))
	}

	rr = get(srv, "/v1/records/latest/export?format=json")
	if got, err := export.ParseJSON(rr.Body.Bytes()); err != nil || got.ID != recs[1].ID {
		t.Fatalf("json export = %+v, %v", got, err)
	}

	rr = get(srv, "/v1/records/latest/export?format=xlsx")
	if rr.Code != http.StatusOK || rr.Body.Len() == 0 {
		t.Fatalf("xlsx export: %d", rr.Code)
	}

	if rr = get(srv, "/v1/records/latest/export?format=pdf"); rr.Code != http.StatusBadRequest {
		t.Errorf("unknown format status = %d", rr.Code)
	}
}

func TestLatest_EmptyStore(t *testing.T) {
	srv := New(&fakeAnalyzer{}, repository.NewMemoryStore(), Config{}, nil)
	for _, target := range []string{"/v1/records/latest", "/v1/records/latest/export", "/v1/records/latest/summary"} {
		if rr := get(srv, target); rr.Code != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404", target, rr.Code)
		}
	}
	rr := get(srv, "/v1/records")
	if !strings.Contains(rr.Body.String(), `"records":[]`) {
		t.Errorf("empty list body = %s", rr.Body)
	}
}

func TestLatestSummary(t *testing.T) {
	srv, _ := seededServer(t)

	rr := get(srv, "/v1/records/latest/summary")
	if rr.Code != http.StatusOK || !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("summary: %d %s", rr.Code, rr.Header().Get("Content-Type"))
	}
	if !strings.Contains(rr.Body.String(), "<strong>Jean Martin</strong>") {
		t.Errorf("summary html = %s", rr.Body)
	}

	rr = get(srv, "/v1/records/latest/summary?format=md")
	if !strings.Contains(rr.Body.String(), "**Jean Martin**") {
		t.Errorf("summary markdown = %s", rr.Body)
	}
}

func TestHealth(t *testing.T) {
	srv, _ := seededServer(t)
	rr := get(srv, "/healthz")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"records":2`) {
		t.Fatalf("health = %d %s", rr.Code, rr.Body)
	}
}
