package chi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/blastxml/internal/alignment"
	"github.com/kailas-cloud/blastxml/internal/domain/blast"
	"github.com/kailas-cloud/blastxml/internal/fasta"
	healthuc "github.com/kailas-cloud/blastxml/internal/usecase/health"
	searchuc "github.com/kailas-cloud/blastxml/internal/usecase/search"
)

// IngestReport handles POST /reports/{report}.
func (s *Server) IngestReport(w http.ResponseWriter, r *http.Request) {
	c, err := criterionFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	sum, err := s.reports.Ingest(r.Context(), pathParam(r, "report"), body, c)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, summaryToDTO(&sum))
}

// GetReport handles GET /reports/{report}.
func (s *Server) GetReport(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "report")
	sum, err := s.reports.Summary(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	its, err := s.reports.Iterations(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := reportResponse{
		summaryResponse: summaryToDTO(&sum),
		Queries:         make([]queryResponse, len(its)),
	}
	for i := range its {
		resp.Queries[i] = queryToDTO(&its[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeleteReport handles DELETE /reports/{report}.
func (s *Server) DeleteReport(w http.ResponseWriter, r *http.Request) {
	if err := s.reports.Delete(r.Context(), pathParam(r, "report")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListHits handles GET /reports/{report}/queries/{query}/hits.
func (s *Server) ListHits(w http.ResponseWriter, r *http.Request) {
	c, err := criterionFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	id, query := pathParam(r, "report"), pathParam(r, "query")
	hits, err := s.reports.Hits(r.Context(), id, query, c)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if hits == nil {
		hits = []blast.Hit{}
	}
	writeJSON(w, http.StatusOK, hitListResponse{Report: id, Query: query, Items: hits})
}

// GetHit handles GET /reports/{report}/queries/{query}/hits/{num}.
func (s *Server) GetHit(w http.ResponseWriter, r *http.Request) {
	h, ok := s.loadHit(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h)
}

// GetAlignment handles GET /reports/{report}/queries/{query}/hits/{num}/alignment.
func (s *Server) GetAlignment(w http.ResponseWriter, r *http.Request) {
	h, ok := s.loadHit(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := alignment.WriteHit(&buf, &h, nil); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) loadHit(w http.ResponseWriter, r *http.Request) (blast.Hit, bool) {
	num, err := strconv.Atoi(chi.URLParam(r, "num"))
	if err != nil || num < 1 {
		writeError(w, http.StatusBadRequest, codeBadRequest, "hit number must be a positive integer")
		return blast.Hit{}, false
	}
	h, err := s.reports.Hit(r.Context(), pathParam(r, "report"), pathParam(r, "query"), num)
	if err != nil {
		s.handleDomainError(w, err)
		return blast.Hit{}, false
	}
	return h, true
}

// RunSearch handles POST /searches.
func (s *Server) RunSearch(w http.ResponseWriter, r *http.Request) {
	if s.search == nil {
		writeError(w, http.StatusServiceUnavailable, codeSearchDisabled, "search is not configured")
		return
	}

	var req searchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodyBytes)).Decode(&req); err != nil {
		if bodyTooLargeHandler(w, err, "") {
			return
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	queries, err := fasta.NewReader(strings.NewReader(req.Queries)).ReadAll()
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid queries: "+err.Error())
		return
	}

	sums, err := s.search.Run(r.Context(), searchuc.Request{
		ReportID:  req.ReportID,
		Program:   req.Program,
		DB:        req.DB,
		Queries:   queries,
		Flags:     req.Flags,
		Criterion: blast.Criterion{MaxEValue: req.EValue, MinBitScore: req.BitScore},
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := searchResponse{Reports: make([]summaryResponse, len(sums))}
	for i := range sums {
		resp.Reports[i] = summaryToDTO(&sums[i])
	}
	writeJSON(w, http.StatusCreated, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, healthResponse{Status: string(report.Status), Checks: checks})
}

// criterionFromQuery reads the optional evalue / bitscore thresholds.
// Setting both is rejected later by Criterion.Validate.
func criterionFromQuery(q url.Values) (blast.Criterion, error) {
	var c blast.Criterion
	for _, p := range []struct {
		name string
		dst  **float64
	}{
		{"evalue", &c.MaxEValue},
		{"bitscore", &c.MinBitScore},
	} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return blast.Criterion{}, fmt.Errorf("%s must be a number, got %q", p.name, raw)
		}
		*p.dst = &v
	}
	return c, nil
}

// pathParam returns a decoded URL parameter. Query accessions routinely
// contain '|' which clients send percent-encoded.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if dec, err := url.PathUnescape(v); err == nil {
		return dec
	}
	return v
}
