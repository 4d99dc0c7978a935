package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/senirlioglu/envanter-risk-analizi/internal/domain"
	"github.com/senirlioglu/envanter-risk-analizi/internal/service"
)

type fakeAnalysis struct {
	analyzeErr error
	lastReq    service.AnalyzeRequest
	lastFilter domain.ReportFilter
	summaries  []domain.StoreRiskSummary
}

func (f *fakeAnalysis) AnalyzeFiles(_ context.Context, req service.AnalyzeRequest) (*domain.RegionReport, error) {
	f.lastReq = req
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	for _, p := range req.Paths {
		if _, err := os.Stat(p); err != nil {
			return nil, err
		}
	}
	return &domain.RegionReport{RunID: "run-1", Period: req.Period}, nil
}

func (f *fakeAnalysis) GetRun(_ context.Context, id string) (*domain.AnalysisRun, error) {
	if id != "run-1" {
		return nil, domain.ErrNotFound
	}
	return &domain.AnalysisRun{ID: id, Period: "2025-03"}, nil
}

func (f *fakeAnalysis) ListRuns(context.Context, string, int) ([]domain.AnalysisRun, error) {
	return nil, nil
}

func (f *fakeAnalysis) GetSummaries(_ context.Context, filter domain.ReportFilter) ([]domain.StoreRiskSummary, error) {
	f.lastFilter = filter
	return f.summaries, nil
}

func (f *fakeAnalysis) GetStoreSummary(_ context.Context, storeID, period string) (*domain.StoreRiskSummary, error) {
	if storeID != "1339" {
		return nil, domain.ErrNotFound
	}
	return &domain.StoreRiskSummary{StoreID: storeID, Period: period, RiskLevel: domain.RiskCritical}, nil
}

func (f *fakeAnalysis) GetRecords(context.Context, string, string) ([]domain.ClassificationRecord, error) {
	return nil, nil
}

func (f *fakeAnalysis) GetRollups(_ context.Context, filter domain.ReportFilter) ([]domain.RollupSummary, error) {
	f.lastFilter = filter
	return []domain.RollupSummary{{Kind: filter.GroupBy, Key: "Marmara", StoreCount: 1}}, nil
}

func newTestRouter(t *testing.T, svc *fakeAnalysis) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewRouter(&Services{Analysis: svc}, RouterConfig{UploadDir: t.TempDir(), MaxUploadMB: 8})
}

func do(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, period string, files map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if period != "" {
		mw.WriteField("period", period)
	}
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		fw.Write([]byte(content))
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	w := do(newTestRouter(t, &fakeAnalysis{}), httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing request id header")
	}
}

func TestUpload(t *testing.T) {
	svc := &fakeAnalysis{}
	router := newTestRouter(t, svc)

	w := do(router, uploadRequest(t, "2025-03", map[string]string{"mart.csv": "Mağaza;SKU\n1339;P1\n"}))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var report domain.RegionReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.RunID != "run-1" || svc.lastReq.Period != "2025-03" || svc.lastReq.Source != "upload" {
		t.Fatalf("unexpected report %+v / request %+v", report, svc.lastReq)
	}
	if len(svc.lastReq.Paths) != 1 {
		t.Fatalf("expected one staged path, got %v", svc.lastReq.Paths)
	}
}

func TestUploadErrors(t *testing.T) {
	tests := []struct {
		name   string
		svc    *fakeAnalysis
		req    func(t *testing.T) *http.Request
		status int
	}{
		{"no files", &fakeAnalysis{}, func(t *testing.T) *http.Request {
			return uploadRequest(t, "2025-03", nil)
		}, http.StatusBadRequest},
		{"bad extension", &fakeAnalysis{}, func(t *testing.T) *http.Request {
			return uploadRequest(t, "", map[string]string{"notes.pdf": "x"})
		}, http.StatusBadRequest},
		{"bad period", &fakeAnalysis{}, func(t *testing.T) *http.Request {
			return uploadRequest(t, "March", map[string]string{"a.csv": "x"})
		}, http.StatusBadRequest},
		{"locked", &fakeAnalysis{analyzeErr: domain.ErrRunInProgress}, func(t *testing.T) *http.Request {
			return uploadRequest(t, "2025-03", map[string]string{"a.csv": "x"})
		}, http.StatusConflict},
		{"no rows", &fakeAnalysis{analyzeErr: domain.ErrNoRows}, func(t *testing.T) *http.Request {
			return uploadRequest(t, "2025-03", map[string]string{"a.csv": "x"})
		}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(newTestRouter(t, tt.svc), tt.req(t))
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.status, w.Body.String())
			}
		})
	}
}

func TestRunStoresFilter(t *testing.T) {
	svc := &fakeAnalysis{summaries: []domain.StoreRiskSummary{{StoreID: "1339"}}}
	router := newTestRouter(t, svc)

	w := do(router, httptest.NewRequest(http.MethodGet, "/api/v1/analysis/runs/run-1/stores?store=1339,7946&store=B259&level=critical", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	want := domain.ReportFilter{RunID: "run-1", StoreIDs: []string{"1339", "7946", "B259"}, Level: "critical"}
	if !reflect.DeepEqual(svc.lastFilter, want) {
		t.Fatalf("filter = %+v, want %+v", svc.lastFilter, want)
	}
}

func TestGetRun(t *testing.T) {
	router := newTestRouter(t, &fakeAnalysis{})
	if w := do(router, httptest.NewRequest(http.MethodGet, "/api/v1/analysis/runs/run-1", nil)); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w := do(router, httptest.NewRequest(http.MethodGet, "/api/v1/analysis/runs/nope", nil)); w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	w := do(router, httptest.NewRequest(http.MethodGet, "/api/v1/analysis/runs", nil))
	if w.Code != http.StatusOK || w.Body.String() != "[]" {
		t.Fatalf("list runs = %d %s", w.Code, w.Body.String())
	}
}

func TestStoreSummary(t *testing.T) {
	router := newTestRouter(t, &fakeAnalysis{})

	if w := do(router, httptest.NewRequest(http.MethodGet, "/api/v1/analysis/stores/1339/summary", nil)); w.Code != http.StatusBadRequest {
		t.Fatalf("missing period status = %d", w.Code)
	}
	if w := do(router, httptest.NewRequest(http.MethodGet, "/api/v1/analysis/stores/0000/summary?period=2025-03", nil)); w.Code != http.StatusNotFound {
		t.Fatalf("unknown store status = %d", w.Code)
	}

	w := do(router, httptest.NewRequest(http.MethodGet, "/api/v1/analysis/stores/1339/summary?period=2025-03", nil))
	var got domain.StoreRiskSummary
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil || got.RiskLevel != domain.RiskCritical {
		t.Fatalf("summary = %+v, %v", got, err)
	}
}

func TestRollups(t *testing.T) {
	svc := &fakeAnalysis{}
	router := newTestRouter(t, svc)

	if w := do(router, httptest.NewRequest(http.MethodGet, "/api/v1/analysis/rollups?by=city&period=2025-03", nil)); w.Code != http.StatusBadRequest {
		t.Fatalf("bad kind status = %d", w.Code)
	}
	if w := do(router, httptest.NewRequest(http.MethodGet, "/api/v1/analysis/rollups?by=region", nil)); w.Code != http.StatusBadRequest {
		t.Fatalf("missing period status = %d", w.Code)
	}

	w := do(router, httptest.NewRequest(http.MethodGet, "/api/v1/analysis/rollups?by=manager&period=2025-03", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	if svc.lastFilter.GroupBy != domain.RollupByManager || svc.lastFilter.Period != "2025-03" {
		t.Fatalf("filter = %+v", svc.lastFilter)
	}
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	got, all := normalizeAllowedOrigins([]string{"http://a.com, http://b.com", " "})
	if all || len(got) != 2 || got[1] != "http://b.com" {
		t.Fatalf("got %v %v", got, all)
	}
	if _, all := normalizeAllowedOrigins([]string{"*"}); !all {
		t.Fatal("* must allow all origins")
	}
}
