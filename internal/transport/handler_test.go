package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/irbid-geoai/geoai-monitor/internal/config"
	"github.com/irbid-geoai/geoai-monitor/internal/dispatch"
	apperrors "github.com/irbid-geoai/geoai-monitor/internal/errors"
	"github.com/irbid-geoai/geoai-monitor/internal/repository"
	"github.com/irbid-geoai/geoai-monitor/internal/session"
	"github.com/irbid-geoai/geoai-monitor/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeDispatcher struct {
	result *models.Result
	err    error
	module string
	req    dispatch.Request
}

func (d *fakeDispatcher) Dispatch(_ context.Context, module string, req dispatch.Request) (*models.Result, error) {
	d.module = module
	d.req = req
	return d.result, d.err
}

func (d *fakeDispatcher) Modules() []models.ModuleInfo {
	return []models.ModuleInfo{{Tag: string(dispatch.ZonalStatistics), Label: dispatch.ZonalStatistics.Label()}}
}

func (d *fakeDispatcher) State() dispatch.State { return dispatch.Idle }

type fakeSessions struct {
	current *session.Session
	initErr error
	payload []byte
	scope   string
}

func (s *fakeSessions) Initialize(_ context.Context, payload []byte, scope string) (*session.Session, error) {
	s.payload = payload
	s.scope = scope
	if s.initErr != nil {
		return nil, s.initErr
	}
	s.current = &session.Session{ID: "s-1", Scope: scope}
	return s.current, nil
}

func (s *fakeSessions) Current() (*session.Session, error) {
	if s.current == nil {
		return nil, apperrors.NewAuthError("no session", nil)
	}
	return s.current, nil
}

func testConfig() *config.Config {
	return &config.Config{
		RequestTimeout:     5 * time.Second,
		MaxRequestBodySize: 1024,
	}
}

func serve(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v (body %s)", err, w.Body.String())
	}
	return resp
}

func TestHealth(t *testing.T) {
	sessions := &fakeSessions{}
	h := NewHandler(&fakeDispatcher{}, sessions, repository.NewMemoryRunRepository(), nil, testConfig())

	w := serve(t, h, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got models.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(models.HealthResponse{Status: "available", Session: false}, got); diff != "" {
		t.Errorf("health mismatch (-want +got):\n%s", diff)
	}
}

func TestRunModule(t *testing.T) {
	d := &fakeDispatcher{result: &models.Result{RunID: "r-1", Module: string(dispatch.ZonalStatistics)}}
	h := NewHandler(d, &fakeSessions{}, repository.NewMemoryRunRepository(), nil, testConfig())

	body := `{"aoi":{"type":"Point","coordinates":[35.85,32.55]},"reducer":"median","scale":30}`
	w := serve(t, h, http.MethodPost, "/modules/zonal-statistics/run", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	if d.module != "zonal-statistics" {
		t.Errorf("dispatched module = %q", d.module)
	}
	if d.req.Reducer != "median" || d.req.Scale != 30 {
		t.Errorf("request = %+v", d.req)
	}
	var aoi map[string]interface{}
	if err := json.Unmarshal(d.req.AOI, &aoi); err != nil || aoi["type"] != "Point" {
		t.Errorf("AOI not passed through: %s", d.req.AOI)
	}
}

func TestRunModuleWithoutBody(t *testing.T) {
	d := &fakeDispatcher{result: &models.Result{Module: string(dispatch.SARValidation)}}
	h := NewHandler(d, &fakeSessions{}, repository.NewMemoryRunRepository(), nil, testConfig())

	w := serve(t, h, http.MethodPost, "/modules/sar-validation/run", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
}

func TestRunModuleErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantKind   string
		suggestion string
	}{
		{
			name:       "unknown module carries suggestion",
			err:        apperrors.NewUnknownModuleError("unknown module", nil).WithDetails(`did you mean "zonal-statistics"?`),
			wantStatus: http.StatusNotFound,
			wantKind:   "UnknownModuleError",
			suggestion: `did you mean "zonal-statistics"?`,
		},
		{
			name:       "missing data",
			err:        apperrors.NewNoDataError("no scenes", nil),
			wantStatus: http.StatusNotFound,
			wantKind:   "NoDataError",
		},
		{
			name:       "no session",
			err:        apperrors.NewAuthError("session not initialized", nil),
			wantStatus: http.StatusUnauthorized,
			wantKind:   "AuthError",
		},
		{
			name:       "pixel budget",
			err:        apperrors.NewPixelBudgetExceededError("too many pixels", nil),
			wantStatus: http.StatusRequestEntityTooLarge,
			wantKind:   "PixelBudgetExceededError",
		},
		{
			name:       "deadline",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantKind:   "TimeoutError",
		},
		{
			name:       "malformed body",
			body:       `{"scale":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDispatcher{err: tt.err}
			h := NewHandler(d, &fakeSessions{}, repository.NewMemoryRunRepository(), nil, testConfig())

			w := serve(t, h, http.MethodPost, "/modules/whatever/run", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			resp := decodeError(t, w)
			if resp.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", resp.Kind, tt.wantKind)
			}
			if resp.Suggestion != tt.suggestion {
				t.Errorf("suggestion = %q, want %q", resp.Suggestion, tt.suggestion)
			}
		})
	}
}

func TestRequestSizeLimit(t *testing.T) {
	d := &fakeDispatcher{result: &models.Result{}}
	h := NewHandler(d, &fakeSessions{}, repository.NewMemoryRunRepository(), nil, testConfig())

	body := `{"reducer":"` + strings.Repeat("x", 2048) + `"}`
	w := serve(t, h, http.MethodPost, "/modules/zonal-statistics/run", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if d.module != "" {
		t.Error("oversized request reached the dispatcher")
	}
}

func TestSession(t *testing.T) {
	tests := []struct {
		name       string
		sessions   *fakeSessions
		body       string
		wantStatus int
		wantScope  string
	}{
		{
			name:       "default scope",
			sessions:   &fakeSessions{},
			body:       `{"credential":{"type":"service_account"}}`,
			wantStatus: http.StatusCreated,
			wantScope:  session.EarthEngineScope,
		},
		{
			name:       "already initialized",
			sessions:   &fakeSessions{initErr: session.ErrAlreadyInitialized},
			body:       `{"credential":{"type":"service_account"}}`,
			wantStatus: http.StatusConflict,
			wantScope:  session.EarthEngineScope,
		},
		{
			name:       "rejected credential",
			sessions:   &fakeSessions{initErr: apperrors.NewAuthError("bad key", nil)},
			body:       `{"credential":{"type":"user"},"scope":"other"}`,
			wantStatus: http.StatusUnauthorized,
			wantScope:  "other",
		},
		{
			name:       "missing credential",
			sessions:   &fakeSessions{},
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&fakeDispatcher{}, tt.sessions, repository.NewMemoryRunRepository(), nil, testConfig())
			w := serve(t, h, http.MethodPost, "/session", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.sessions.scope != tt.wantScope {
				t.Errorf("scope = %q, want %q", tt.sessions.scope, tt.wantScope)
			}
		})
	}
}

func TestCurrentSession(t *testing.T) {
	sessions := &fakeSessions{}
	h := NewHandler(&fakeDispatcher{}, sessions, repository.NewMemoryRunRepository(), nil, testConfig())

	if w := serve(t, h, http.MethodGet, "/session", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("status without session = %d, want 401", w.Code)
	}
	sessions.current = &session.Session{ID: "s-1"}
	if w := serve(t, h, http.MethodGet, "/session", ""); w.Code != http.StatusOK {
		t.Errorf("status with session = %d, want 200", w.Code)
	}
}

func TestRuns(t *testing.T) {
	runs := repository.NewMemoryRunRepository()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		err := runs.SaveRun(context.Background(), &models.RunRecord{
			ID:      id,
			Module:  string(dispatch.SARValidation),
			State:   string(dispatch.Rendered),
			Started: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	h := NewHandler(&fakeDispatcher{}, &fakeSessions{}, runs, nil, testConfig())

	w := serve(t, h, http.MethodGet, "/runs?limit=2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var list struct {
		Runs []models.RunRecord `json:"runs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, r := range list.Runs {
		ids = append(ids, r.ID)
	}
	if diff := cmp.Diff([]string{"c", "b"}, ids); diff != "" {
		t.Errorf("run ids mismatch (-want +got):\n%s", diff)
	}

	if w := serve(t, h, http.MethodGet, "/runs?limit=zero", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", w.Code)
	}
	if w := serve(t, h, http.MethodGet, "/runs/b", ""); w.Code != http.StatusOK {
		t.Errorf("get run status = %d, want 200", w.Code)
	}
	if w := serve(t, h, http.MethodGet, "/runs/missing", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing run status = %d, want 404", w.Code)
	}
}

func TestModulesAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "geoai_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()
	h := NewHandler(&fakeDispatcher{}, &fakeSessions{}, repository.NewMemoryRunRepository(), reg, testConfig())

	w := serve(t, h, http.MethodGet, "/modules", "")
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("zonal-statistics")) {
		t.Errorf("modules: status %d body %s", w.Code, w.Body.String())
	}

	w = serve(t, h, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "geoai_test_total 1") {
		t.Errorf("metrics: status %d body %s", w.Code, w.Body.String())
	}
}
