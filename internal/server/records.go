package server

import (
	"fmt"
	"net/http"

	"github.com/joseph-ayodele/income-verifier/internal/core"
	"github.com/joseph-ayodele/income-verifier/internal/entity"
	"github.com/joseph-ayodele/income-verifier/internal/export"
)

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.List(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	if recs == nil {
		recs = []entity.FinalRecord{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"records": recs,
		"count":   len(recs),
	})
}

func (s *Server) handleLatestRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Latest(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// handleExportLatest serves the latest record as csv (default) or json, or
// the whole history as xlsx.
func (s *Server) handleExportLatest(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		respondError(w, err)
		return
	}
	file, err := s.exporter.Latest(r.Context(), format)
	if err != nil {
		respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Data)
}

// handleLatestSummary renders the latest record as HTML, or as markdown with
// ?format=md.
func (s *Server) handleLatestSummary(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Latest(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	md := core.RecordSummary(rec)
	if r.URL.Query().Get("format") == "md" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte(md))
		return
	}
	html, err := core.SummaryHTML(md)
	if err != nil {
		respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(html)
}
