package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/jobinsights/internal/config"
	"github.com/JonMunkholm/jobinsights/internal/insights"
	"github.com/JonMunkholm/jobinsights/internal/jobs"
	"github.com/JonMunkholm/jobinsights/internal/logging"
)

const (
	defaultJobsLimit = 100
	maxJobsLimit     = 1000

	// maxMatchBody caps POST /api/salary-range/match bodies.
	maxMatchBody = 64 << 10
)

// DatasetInfo describes one catalog entry in GET /api/datasets.
type DatasetInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Cached      bool   `json:"cached"`
}

// JobsResponse is the body of GET /api/datasets/{name}/jobs.
type JobsResponse struct {
	Dataset string        `json:"dataset"`
	Total   int           `json:"total"`
	Count   int           `json:"count"`
	Jobs    []jobs.Record `json:"jobs"`
}

// MatchRequest is the body of POST /api/salary-range/match.
// Salary and the job's salary bounds must be JSON numbers; quoted digits are
// rejected.
type MatchRequest struct {
	Job    map[string]any  `json:"job"`
	Salary json.RawMessage `json:"salary"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, map[string]any{
		"status":          "ok",
		"datasets_cached": len(s.loader.Cached()),
	})
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	cached := make(map[string]bool)
	for _, p := range s.loader.Cached() {
		cached[p] = true
	}

	out := make([]DatasetInfo, 0, len(s.catalog.Datasets))
	for _, e := range s.catalog.Datasets {
		out = append(out, DatasetInfo{
			Name:        e.Name,
			Description: e.Description,
			Cached:      cached[e.Path],
		})
	}
	writeJSON(w, r, map[string]any{"datasets": out})
}

func (s *Server) handleJobTypes(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.dataset(w, r)
	if !ok {
		return
	}
	types, err := s.service.UniqueJobTypes(r.Context(), entry.Path)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, map[string]any{"dataset": entry.Name, "job_types": types})
}

func (s *Server) handleIndustries(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.dataset(w, r)
	if !ok {
		return
	}
	industries, err := s.service.UniqueIndustries(r.Context(), entry.Path)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, map[string]any{"dataset": entry.Name, "industries": industries})
}

func (s *Server) handleMaxSalary(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.dataset(w, r)
	if !ok {
		return
	}
	n, err := s.service.MaxSalary(r.Context(), entry.Path)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, map[string]any{"dataset": entry.Name, "max_salary": n})
}

func (s *Server) handleMinSalary(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.dataset(w, r)
	if !ok {
		return
	}
	n, err := s.service.MinSalary(r.Context(), entry.Path)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, map[string]any{"dataset": entry.Name, "min_salary": n})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.dataset(w, r)
	if !ok {
		return
	}
	sum, err := s.service.Summary(r.Context(), entry.Path)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, map[string]any{"dataset": entry.Name, "summary": sum})
}

// handleJobs lists records, narrowed by any of job_type, industry and salary.
// Filters apply in that order; each one is a plain linear scan.
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.dataset(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	var salary int
	if q.Has("salary") {
		n, err := insights.ParseSalary(q.Get("salary"))
		if err != nil {
			respondError(w, r, err)
			return
		}
		salary = n
	}

	ds, err := s.loader.Load(r.Context(), entry.Path)
	if err != nil {
		respondError(w, r, err)
		return
	}

	records := ds.Records
	if q.Has("job_type") {
		records = insights.FilterByJobType(records, q.Get("job_type"))
	}
	if q.Has("industry") {
		records = insights.FilterByIndustry(records, q.Get("industry"))
	}
	if q.Has("salary") {
		records = insights.FilterBySalaryRange(records, salary)
	}

	total := len(records)
	limit := parseLimit(r)
	if len(records) > limit {
		records = records[:limit]
	}
	if records == nil {
		records = []jobs.Record{}
	}

	writeJSON(w, r, JobsResponse{
		Dataset: entry.Name,
		Total:   total,
		Count:   len(records),
		Jobs:    records,
	})
}

func (s *Server) handleMatchSalaryRange(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMatchBody))
	dec.UseNumber()

	var req MatchRequest
	if err := dec.Decode(&req); err != nil {
		respondError(w, r, fmt.Errorf("%w: decode request: %v", jobs.ErrInvalidInput, err))
		return
	}

	raw, err := jsonInteger("salary", req.Salary)
	if err != nil {
		respondError(w, r, err)
		return
	}
	salary, err := insights.ParseSalary(raw)
	if err != nil {
		respondError(w, r, err)
		return
	}
	for _, col := range []string{jobs.ColumnMinSalary, jobs.ColumnMaxSalary} {
		if v, ok := req.Job[col].(string); ok {
			respondError(w, r, fmt.Errorf("%w: %s must be a JSON integer, got string %q", jobs.ErrInvalidInput, col, v))
			return
		}
	}

	matches, err := insights.MatchesSalaryRange(toRecord(req.Job), salary)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, map[string]any{"matches": matches})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.dataset(w, r)
	if !ok {
		return
	}

	dropped := s.loader.Invalidate(entry.Path)
	ds, err := s.loader.Load(r.Context(), entry.Path)
	if err != nil {
		respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("dataset reloaded",
		"dataset", entry.Name,
		"dataset_id", ds.ID,
		"records", ds.Len(),
		"was_cached", dropped,
	)
	writeJSON(w, r, map[string]any{
		"dataset":    entry.Name,
		"dataset_id": ds.ID.String(),
		"records":    ds.Len(),
		"loaded_at":  ds.LoadedAt,
	})
}

// dataset resolves the {name} URL parameter against the catalog, writing a
// 404 when it is unknown.
func (s *Server) dataset(w http.ResponseWriter, r *http.Request) (config.CatalogEntry, bool) {
	name := chi.URLParam(r, "name")
	entry, ok := s.catalog.Lookup(name)
	if !ok {
		respondError(w, r, fmt.Errorf("%w: %q", errUnknownDataset, name))
		return config.CatalogEntry{}, false
	}
	return entry, true
}

// parseLimit reads ?limit=, clamped to [1, maxJobsLimit].
func parseLimit(r *http.Request) int {
	val := r.URL.Query().Get("limit")
	if val == "" {
		return defaultJobsLimit
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 1 {
		return defaultJobsLimit
	}
	if n > maxJobsLimit {
		return maxJobsLimit
	}
	return n
}

// toRecord flattens a decoded JSON object into a Record. Numbers keep their
// literal text ("15.5" stays "15.5"), so the salary checks see exactly what
// the client sent; null becomes "" and other values their JSON text.
// jsonInteger returns the literal text of a JSON number field. Missing, null
// and quoted values wrap jobs.ErrInvalidInput.
func jsonInteger(field string, raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0, bytes.Equal(raw, []byte("null")):
		return "", fmt.Errorf("%w: %s is required", jobs.ErrInvalidInput, field)
	case raw[0] == '"':
		return "", fmt.Errorf("%w: %s must be a JSON integer, got string %s", jobs.ErrInvalidInput, field, raw)
	}
	return string(raw), nil
}

func toRecord(obj map[string]any) jobs.Record {
	rec := make(jobs.Record, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case nil:
			rec[k] = ""
		case string:
			rec[k] = val
		case json.Number:
			rec[k] = val.String()
		default:
			b, err := json.Marshal(val)
			if err != nil {
				rec[k] = fmt.Sprint(val)
				continue
			}
			rec[k] = string(bytes.TrimSpace(b))
		}
	}
	return rec
}
