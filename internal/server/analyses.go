package server

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/income-verifier/internal/common"
	"github.com/joseph-ayodele/income-verifier/internal/core"
	"github.com/joseph-ayodele/income-verifier/internal/entity"
	"github.com/joseph-ayodele/income-verifier/internal/ingest"
)

type analysisResponse struct {
	*core.AnalysisResult
	Error string `json:"error,omitempty"`
}

// handleAnalyze takes a multipart form with the PDFs under "files" (or
// "files[]") and an optional "loan_years".
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	limit := int64(s.cfg.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondError(w, fmt.Errorf("%w: read upload: %w", common.ErrInvalidInput, err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	years := 0
	if v := strings.TrimSpace(r.FormValue("loan_years")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, common.NewAppError("INVALID_ARGUMENT", "loan_years must be an integer", common.ErrInvalidInput))
			return
		}
		years = n
	}

	var headers []*multipart.FileHeader
	headers = append(headers, r.MultipartForm.File["files"]...)
	headers = append(headers, r.MultipartForm.File["files[]"]...)
	docs := make([]entity.Document, 0, len(headers))
	for _, fh := range headers {
		doc, err := readUpload(fh, limit)
		if err != nil {
			respondError(w, err)
			return
		}
		docs = append(docs, doc)
	}

	res, err := s.analyzer.Analyze(r.Context(), core.AnalysisRequest{Documents: docs, LoanYears: years})
	switch {
	case err == nil:
		respondJSON(w, http.StatusCreated, analysisResponse{AnalysisResult: res})
	case res != nil:
		// the reports (and possibly an unsaved record) still go back
		if errors.Is(err, common.ErrPersistence) {
			s.logger.Error("http.analyze.persist_failed", "run_id", res.RunID, "error", err)
		}
		respondJSON(w, common.HTTPStatus(err), analysisResponse{AnalysisResult: res, Error: err.Error()})
	default:
		respondError(w, err)
	}
}

func readUpload(fh *multipart.FileHeader, limit int64) (entity.Document, error) {
	f, err := fh.Open()
	if err != nil {
		return entity.Document{}, fmt.Errorf("%w: open %s: %w", common.ErrInvalidInput, fh.Filename, err)
	}
	defer func() { _ = f.Close() }()
	return ingest.ReadDocument(fh.Filename, f, limit)
}
