package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/jobinsights/internal/config"
	"github.com/JonMunkholm/jobinsights/internal/jobs"
	"github.com/JonMunkholm/jobinsights/internal/metrics"
)

const testCSV = "job_title,job_type,industry,min_salary,max_salary\n" +
	"Dev,FULL_TIME,Technology,100,200\n" +
	"Ops,PART_TIME,Finance,50,150\n" +
	"Analyst,FULL_TIME,Finance,,\n" +
	"Old,2019,12345,abc,-1\n"

type testEnv struct {
	server   *Server
	loader   *jobs.Loader
	dataPath string
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// newTestEnv builds a server over three datasets: "default" with salaries,
// "nosalary" without any numeric salary, and "missing" pointing nowhere.
func newTestEnv(t *testing.T, modify func(*config.Config)) *testEnv {
	t.Helper()
	dir := t.TempDir()
	dataPath := writeFile(t, dir, "jobs.csv", testCSV)
	noSalary := writeFile(t, dir, "nosalary.csv", "job_type,industry\nFULL_TIME,Retail\n")

	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:           "127.0.0.1",
			Port:           0,
			RequestTimeout: 5 * time.Second,
		},
		Metrics: config.MetricsConfig{Enabled: true},
		Logging: config.LoggingConfig{Level: "info", Format: "text"},
	}
	if modify != nil {
		modify(cfg)
	}

	catalog := &config.Catalog{Datasets: []config.CatalogEntry{
		{Name: config.DefaultDataset, Path: dataPath, Description: "test postings"},
		{Name: "nosalary", Path: noSalary},
		{Name: "missing", Path: filepath.Join(dir, "missing.csv")},
	}}

	recorder := metrics.NewRecorder()
	loader := jobs.NewLoader(jobs.WithObserver(recorder))
	return &testEnv{
		server:   NewServer(cfg, catalog, loader, recorder),
		loader:   loader,
		dataPath: dataPath,
	}
}

func (e *testEnv) do(t *testing.T, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	resp := decode[ErrorResponse](t, rec)
	if resp.Code != code {
		t.Errorf("code = %q, want %q", resp.Code, code)
	}
	if resp.Message == "" {
		t.Error("empty error message")
	}
}

// ============================================================================
// Basic endpoints
// ============================================================================

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if body := decode[map[string]any](t, rec); body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestListDatasets(t *testing.T) {
	env := newTestEnv(t, nil)

	body := decode[map[string][]DatasetInfo](t, env.do(t, http.MethodGet, "/api/datasets", ""))
	list := body["datasets"]
	if len(list) != 3 {
		t.Fatalf("datasets = %+v", list)
	}
	if list[0].Name != "default" || list[0].Description != "test postings" || list[0].Cached {
		t.Errorf("first dataset = %+v", list[0])
	}

	env.do(t, http.MethodGet, "/api/datasets/default/job-types", "")

	body = decode[map[string][]DatasetInfo](t, env.do(t, http.MethodGet, "/api/datasets", ""))
	if !body["datasets"][0].Cached {
		t.Error("default dataset not reported as cached after a query")
	}
}

func TestJobTypesAndIndustries(t *testing.T) {
	env := newTestEnv(t, nil)

	types := decode[map[string]any](t, env.do(t, http.MethodGet, "/api/datasets/default/job-types", ""))
	if got := types["job_types"]; !sameStrings(got, "FULL_TIME", "PART_TIME") {
		t.Errorf("job_types = %v", got)
	}

	industries := decode[map[string]any](t, env.do(t, http.MethodGet, "/api/datasets/default/industries", ""))
	if got := industries["industries"]; !sameStrings(got, "Technology", "Finance") {
		t.Errorf("industries = %v", got)
	}
}

func sameStrings(v any, want ...string) bool {
	list, ok := v.([]any)
	if !ok || len(list) != len(want) {
		return false
	}
	for i := range want {
		if list[i] != want[i] {
			return false
		}
	}
	return true
}

func TestSalaryExtremes(t *testing.T) {
	env := newTestEnv(t, nil)

	hi := decode[map[string]any](t, env.do(t, http.MethodGet, "/api/datasets/default/salary/max", ""))
	if hi["max_salary"] != float64(200) {
		t.Errorf("max_salary = %v, want 200", hi["max_salary"])
	}
	lo := decode[map[string]any](t, env.do(t, http.MethodGet, "/api/datasets/default/salary/min", ""))
	if lo["min_salary"] != float64(50) {
		t.Errorf("min_salary = %v, want 50", lo["min_salary"])
	}
}

func TestSalaryExtremes_NoValues(t *testing.T) {
	env := newTestEnv(t, nil)
	expectError(t, env.do(t, http.MethodGet, "/api/datasets/nosalary/salary/max", ""), http.StatusNotFound, "QRY001")
	expectError(t, env.do(t, http.MethodGet, "/api/datasets/nosalary/salary/min", ""), http.StatusNotFound, "QRY001")
}

func TestSummary(t *testing.T) {
	env := newTestEnv(t, nil)

	body := decode[struct {
		Summary map[string]any `json:"summary"`
	}](t, env.do(t, http.MethodGet, "/api/datasets/nosalary/summary", ""))
	sum := body.Summary
	if sum["records"] != float64(1) {
		t.Errorf("records = %v", sum["records"])
	}
	if sum["max_salary"] != nil || sum["min_salary"] != nil {
		t.Errorf("salary bounds = %v / %v, want null", sum["min_salary"], sum["max_salary"])
	}
	if sum["dataset_id"] == "" {
		t.Error("empty dataset_id")
	}
}

func TestUnknownAndMissingDatasets(t *testing.T) {
	env := newTestEnv(t, nil)
	expectError(t, env.do(t, http.MethodGet, "/api/datasets/nope/job-types", ""), http.StatusNotFound, "FILE001")
	expectError(t, env.do(t, http.MethodGet, "/api/datasets/missing/industries", ""), http.StatusNotFound, "FILE001")
}

// ============================================================================
// Jobs listing
// ============================================================================

func TestJobs_Filters(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		query      string
		wantTotal  int
		wantTitles []string
	}{
		{"", 4, []string{"Dev", "Ops", "Analyst", "Old"}},
		{"?job_type=FULL_TIME", 2, []string{"Dev", "Analyst"}},
		{"?job_type=FULL_TIME&industry=Finance", 1, []string{"Analyst"}},
		{"?industry=Finance", 2, []string{"Ops", "Analyst"}},
		{"?salary=120", 2, []string{"Dev", "Ops"}},
		{"?salary=60&industry=Finance", 1, []string{"Ops"}},
		{"?salary=1000", 0, nil},
		{"?job_type=CONTRACT", 0, nil},
		{"?limit=1", 4, []string{"Dev"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/datasets/default/jobs"+tt.query, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			resp := decode[JobsResponse](t, rec)
			if resp.Total != tt.wantTotal {
				t.Errorf("total = %d, want %d", resp.Total, tt.wantTotal)
			}
			if resp.Count != len(tt.wantTitles) || len(resp.Jobs) != len(tt.wantTitles) {
				t.Fatalf("count = %d, jobs = %v, want %v", resp.Count, resp.Jobs, tt.wantTitles)
			}
			for i, title := range tt.wantTitles {
				if resp.Jobs[i]["job_title"] != title {
					t.Errorf("jobs[%d] = %q, want %q", i, resp.Jobs[i]["job_title"], title)
				}
			}
		})
	}
}

func TestJobs_EmptyResultIsArray(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/datasets/default/jobs?job_type=NONE", "")
	if !strings.Contains(rec.Body.String(), `"jobs":[]`) {
		t.Errorf("body = %s, want empty jobs array", rec.Body.String())
	}
}

func TestJobs_InvalidSalary(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, q := range []string{"15.5", "abc", ""} {
		rec := env.do(t, http.MethodGet, "/api/datasets/default/jobs?salary="+q, "")
		expectError(t, rec, http.StatusBadRequest, "VAL001")
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", defaultJobsLimit},
		{"limit=5", 5},
		{"limit=0", defaultJobsLimit},
		{"limit=-2", defaultJobsLimit},
		{"limit=x", defaultJobsLimit},
		{"limit=5000", maxJobsLimit},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
		if got := parseLimit(r); got != tt.want {
			t.Errorf("parseLimit(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}

// ============================================================================
// Salary range match
// ============================================================================

func TestMatchSalaryRange(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name      string
		body      string
		wantMatch bool
		wantCode  string
	}{
		{"inside", `{"job":{"min_salary":10,"max_salary":20},"salary":15}`, true, ""},
		{"outside", `{"job":{"min_salary":10,"max_salary":20},"salary":25}`, false, ""},
		{"whitespace around salary", `{"job":{"min_salary":10,"max_salary":20},"salary": 20 }`, true, ""},
		{"quoted salary", `{"job":{"min_salary":10,"max_salary":20},"salary":"15"}`, false, "VAL001"},
		{"quoted bounds", `{"job":{"min_salary":"10","max_salary":"20"},"salary":20}`, false, "VAL001"},
		{"quoted min bound", `{"job":{"min_salary":"10","max_salary":20},"salary":15}`, false, "VAL001"},
		{"null salary", `{"job":{"min_salary":10,"max_salary":20},"salary":null}`, false, "VAL001"},
		{"boolean salary", `{"job":{"min_salary":10,"max_salary":20},"salary":true}`, false, "VAL001"},
		{"fractional salary", `{"job":{"min_salary":10,"max_salary":20},"salary":15.5}`, false, "VAL001"},
		{"inverted range", `{"job":{"min_salary":20,"max_salary":10},"salary":15}`, false, "VAL001"},
		{"missing bound", `{"job":{"min_salary":10},"salary":15}`, false, "VAL001"},
		{"fractional bound", `{"job":{"min_salary":10.5,"max_salary":20},"salary":15}`, false, "VAL001"},
		{"null bound", `{"job":{"min_salary":null,"max_salary":20},"salary":15}`, false, "VAL001"},
		{"missing salary", `{"job":{"min_salary":10,"max_salary":20}}`, false, "VAL001"},
		{"malformed json", `{"job":`, false, "VAL001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/salary-range/match", tt.body, "Content-Type", "application/json")
			if tt.wantCode != "" {
				expectError(t, rec, http.StatusBadRequest, tt.wantCode)
				return
			}
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			resp := decode[map[string]bool](t, rec)
			if resp["matches"] != tt.wantMatch {
				t.Errorf("matches = %v, want %v", resp["matches"], tt.wantMatch)
			}
		})
	}
}

func TestToRecord(t *testing.T) {
	rec := toRecord(map[string]any{
		"a": "x",
		"b": json.Number("15.5"),
		"c": nil,
		"d": true,
	})
	want := jobs.Record{"a": "x", "b": "15.5", "c": "", "d": "true"}
	for k, v := range want {
		if rec[k] != v {
			t.Errorf("rec[%q] = %q, want %q", k, rec[k], v)
		}
	}
}

func TestJSONInteger(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"15", "15", false},
		{" -3 ", "-3", false},
		{"15.5", "15.5", false},
		{`"15"`, "", true},
		{"null", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := jsonInteger("salary", json.RawMessage(tt.raw))
		if (err != nil) != tt.wantErr {
			t.Errorf("jsonInteger(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, jobs.ErrInvalidInput) {
			t.Errorf("jsonInteger(%q) error = %v, want ErrInvalidInput", tt.raw, err)
		}
		if got != tt.want {
			t.Errorf("jsonInteger(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

// ============================================================================
// Reload
// ============================================================================

func TestReload(t *testing.T) {
	env := newTestEnv(t, nil)

	first := decode[map[string]any](t, env.do(t, http.MethodGet, "/api/datasets/default/job-types", ""))
	if !sameStrings(first["job_types"], "FULL_TIME", "PART_TIME") {
		t.Fatalf("job_types = %v", first["job_types"])
	}

	if err := os.WriteFile(env.dataPath, []byte("job_type\nCONTRACT\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	// Still memoized until reload.
	cached := decode[map[string]any](t, env.do(t, http.MethodGet, "/api/datasets/default/job-types", ""))
	if !sameStrings(cached["job_types"], "FULL_TIME", "PART_TIME") {
		t.Errorf("job_types changed before reload: %v", cached["job_types"])
	}

	rec := env.do(t, http.MethodPost, "/api/datasets/default/reload", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reload status = %d, body %s", rec.Code, rec.Body.String())
	}
	reloaded := decode[map[string]any](t, rec)
	if reloaded["records"] != float64(1) {
		t.Errorf("records = %v, want 1", reloaded["records"])
	}

	after := decode[map[string]any](t, env.do(t, http.MethodGet, "/api/datasets/default/job-types", ""))
	if !sameStrings(after["job_types"], "CONTRACT") {
		t.Errorf("job_types after reload = %v", after["job_types"])
	}
}

func TestReload_MissingFile(t *testing.T) {
	env := newTestEnv(t, nil)
	expectError(t, env.do(t, http.MethodPost, "/api/datasets/missing/reload", ""), http.StatusNotFound, "FILE001")
}

// ============================================================================
// Auth, rate limiting and metrics
// ============================================================================

func TestAPIKeyAuth(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.Security.RequireAPIKey = true
		c.Security.APIKeys = []string{"k1", "k2"}
	})

	expectError(t, env.do(t, http.MethodGet, "/api/datasets", ""), http.StatusUnauthorized, "AUTH001")
	expectError(t, env.do(t, http.MethodGet, "/api/datasets", "", "X-API-Key", "nope"), http.StatusForbidden, "AUTH002")

	if rec := env.do(t, http.MethodGet, "/api/datasets", "", "X-API-Key", "k2"); rec.Code != http.StatusOK {
		t.Errorf("valid key status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("/healthz behind auth: status = %d", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.Rate = config.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 2}
	})

	for i := 0; i < 2; i++ {
		if rec := env.do(t, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	rec := env.do(t, http.MethodGet, "/healthz", "")
	expectError(t, rec, http.StatusTooManyRequests, "RATE001")
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
}

func TestRateLimiter_PerIPAndPrune(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := newRateLimiter(0.001, 1)
	rl.now = func() time.Time { return now }

	if !rl.allow("10.0.0.1") || rl.allow("10.0.0.1") {
		t.Fatal("burst of 1 not enforced")
	}
	if !rl.allow("10.0.0.2") {
		t.Error("second client limited by the first")
	}

	now = now.Add(idleVisitorTTL + time.Second)
	rl.allow("10.0.0.3")
	if _, ok := rl.visitors["10.0.0.1"]; ok {
		t.Error("idle visitor not pruned")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodGet, "/api/datasets/default/job-types", "")
	env.do(t, http.MethodGet, "/api/datasets/default/industries", "")

	rec := env.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`route="/api/datasets/{name}/job-types"`,
		`jobinsights_dataset_cache_total{result="hit"} 1`,
		`jobinsights_dataset_cache_total{result="miss"} 1`,
		`jobinsights_dataset_loads_total{result="ok"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestMetricsDisabled(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{Server: config.ServerConfig{RequestTimeout: time.Second}}
	catalog := &config.Catalog{Datasets: []config.CatalogEntry{{Name: "default", Path: writeFile(t, dir, "a.csv", testCSV)}}}
	s := NewServer(cfg, catalog, jobs.NewLoader(), nil)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("/metrics status = %d, want 404", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{jobs.ErrInvalidInput, http.StatusBadRequest},
		{errUnknownDataset, http.StatusNotFound},
		{jobs.ErrEmptyResult, http.StatusNotFound},
		{jobs.ErrEmptyFile, http.StatusUnprocessableEntity},
		{jobs.ErrTooManyLoads, http.StatusServiceUnavailable},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
