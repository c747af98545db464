package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"ipscope/internal/ai"
	"ipscope/internal/app"
	"ipscope/internal/credential"
	"ipscope/internal/history"
	"ipscope/internal/metrics"
	"ipscope/internal/model"
	"ipscope/internal/storage"
)

type stubAnalyzer struct {
	store history.Store
}

func (s *stubAnalyzer) Analyze(_ context.Context, ip string) (*model.LogEntry, error) {
	if strings.HasPrefix(ip, "10.") {
		return nil, errors.New("lookup for " + ip + " failed: invalid or reserved IP address")
	}
	e := &model.LogEntry{
		ID: 1,
		Result: model.AnalysisResult{
			Geo: model.GeoRecord{Query: "1.2.3.4", Status: model.GeoSuccess, Country: "Japan", CountryCode: "JP"},
		},
	}
	if ip == "" {
		e.Result.Trace = &model.TraceRecord{IP: "1.2.3.4", TLSVersion: "TLSv1.3"}
	} else {
		e.Result.Geo.Query = ip
	}
	s.store.Append(*e)
	return e, nil
}

type stubAI struct{}

func (stubAI) ValidateCredential(_ context.Context, key string) bool { return key == "good" }

func (stubAI) GenerateCritique(context.Context, string, model.TraceRecord) (*model.PrivacyAnalysis, error) {
	return &model.PrivacyAnalysis{
		Personality: &model.InternetPersonality{Title: "Early Adopter", Description: "d", Emoji: "🚀"},
		Tips:        []model.PrivacyTip{{Title: "t", Description: "d", Severity: model.SeverityInfo}},
	}, nil
}

func (stubAI) GenerateImage(context.Context, string, string) (*ai.Image, error) {
	return &ai.Image{MIMEType: "image/jpeg", Data: "AAEC"}, nil
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	kv := storage.NewMemory()
	h := history.NewKVStore(kv, history.Options{})
	creds := credential.NewManager(kv, stubAI{}, "")
	a := app.New(&stubAnalyzer{store: h}, h, creds, stubAI{}, "en")

	reg := prometheus.NewRegistry()
	metrics.New(reg).RecordAnalysis("success")

	return NewRouter(&Handler{App: a, Creds: creds, Gatherer: reg})
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req, _ = http.NewRequest(method, path, nil)
	} else {
		req, _ = http.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealthAndRequestID(t *testing.T) {
	r := setupTestRouter()
	w := do(r, "GET", "/api/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Header().Get(requestIDHeader) == "" {
		t.Error("Expected a request id header")
	}
}

func TestAnalyzeSessionHistory(t *testing.T) {
	r := setupTestRouter()

	if w := do(r, "GET", "/api/session", ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 before any analysis, got %d", w.Code)
	}

	w := do(r, "POST", "/api/analyze", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if w := do(r, "GET", "/api/session", ""); w.Code != http.StatusOK {
		t.Errorf("Expected session after analysis, got %d", w.Code)
	}

	w = do(r, "POST", "/api/analyze", `{"ip":"10.0.0.1"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for failed lookup, got %d", w.Code)
	}
	if msg := decode(t, w)["error"]; msg != "lookup for 10.0.0.1 failed: invalid or reserved IP address" {
		t.Errorf("unexpected error %v", msg)
	}
	if w := do(r, "GET", "/api/session", ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected failed analysis to clear the session, got %d", w.Code)
	}

	w = do(r, "GET", "/api/history", "")
	var entries []model.LogEntry
	json.Unmarshal(w.Body.Bytes(), &entries)
	if len(entries) != 1 {
		t.Errorf("Expected 1 history entry, got %d", len(entries))
	}

	if w := do(r, "DELETE", "/api/history", ""); w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	w = do(r, "GET", "/api/history", "")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("Expected empty history, got %s", w.Body.String())
	}
}

func TestAnalyze_BadBody(t *testing.T) {
	r := setupTestRouter()
	if w := do(r, "POST", "/api/analyze", `{"ip":`); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestCredentialLifecycle(t *testing.T) {
	r := setupTestRouter()

	if s := decode(t, do(r, "GET", "/api/credential", ""))["status"]; s != "missing" {
		t.Errorf("Expected missing, got %v", s)
	}

	w := do(r, "PUT", "/api/credential", `{"key":"bad"}`)
	if w.Code != http.StatusBadRequest || decode(t, w)["status"] != "invalid" {
		t.Errorf("Expected rejected key, got %d %s", w.Code, w.Body.String())
	}

	w = do(r, "PUT", "/api/credential", `{"key":"good"}`)
	if w.Code != http.StatusOK || decode(t, w)["status"] != "valid" {
		t.Errorf("Expected accepted key, got %d %s", w.Code, w.Body.String())
	}
	if s := decode(t, do(r, "GET", "/api/credential", ""))["status"]; s != "valid" {
		t.Errorf("Expected valid, got %v", s)
	}

	w = do(r, "DELETE", "/api/credential", "")
	if w.Code != http.StatusOK || decode(t, w)["status"] != "missing" {
		t.Errorf("Expected missing after clear, got %d %s", w.Code, w.Body.String())
	}
}

func TestCritiqueAndPostcard(t *testing.T) {
	r := setupTestRouter()

	if w := do(r, "POST", "/api/critique", ""); w.Code != http.StatusConflict {
		t.Errorf("Expected 409 without a session, got %d", w.Code)
	}

	do(r, "POST", "/api/analyze", "")
	if w := do(r, "POST", "/api/critique", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without a credential, got %d", w.Code)
	}

	do(r, "PUT", "/api/credential", `{"key":"good"}`)
	w := do(r, "POST", "/api/critique", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var res model.PrivacyAnalysis
	json.Unmarshal(w.Body.Bytes(), &res)
	if res.Personality == nil || res.Personality.Title != "Early Adopter" {
		t.Errorf("unexpected critique %s", w.Body.String())
	}

	w = do(r, "POST", "/api/postcard", "")
	if w.Code != http.StatusOK || decode(t, w)["image"] != "data:image/jpeg;base64,AAEC" {
		t.Errorf("unexpected postcard %d %s", w.Code, w.Body.String())
	}

	do(r, "POST", "/api/analyze", `{"ip":"8.8.8.8"}`)
	if w := do(r, "POST", "/api/critique", ""); w.Code != http.StatusConflict {
		t.Errorf("Expected 409 for a result without trace, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := setupTestRouter()
	w := do(r, "GET", "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "ipscope_analyses_total") {
		t.Errorf("metrics output missing counter:\n%s", w.Body.String())
	}
}
