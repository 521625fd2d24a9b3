package api

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/talgya/magnolia/internal/engine"
	"github.com/talgya/magnolia/internal/persistence"
	"github.com/talgya/magnolia/internal/positioner"
)

func testServer(t *testing.T, buds int) *Server {
	t.Helper()
	sess := engine.NewSession(positioner.NewRing(2*math.Pi/6, 6), "ring", false)
	if err := sess.StepN(buds); err != nil {
		t.Fatalf("StepN: %v", err)
	}
	return &Server{Session: sess, AdminKey: "sesame"}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
}

func TestHandleStatus(t *testing.T) {
	s := testServer(t, 6)
	s.Eng = engine.NewEngine()
	s.Eng.SetSpeed(2.5)

	rec := httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	var got map[string]any
	decode(t, rec, &got)
	if got["positioner"] != "ring" {
		t.Errorf("positioner = %v", got["positioner"])
	}
	if got["buds"] != 6.0 {
		t.Errorf("buds = %v, want 6", got["buds"])
	}
	if got["speed"] != 2.5 {
		t.Errorf("speed = %v, want 2.5", got["speed"])
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestHandleBuds(t *testing.T) {
	s := testServer(t, 4)

	rec := httptest.NewRecorder()
	s.handleBuds(rec, httptest.NewRequest(http.MethodGet, "/api/v1/buds", nil))

	var got []budMsg
	decode(t, rec, &got)
	if len(got) != 4 {
		t.Fatalf("got %d buds, want 4", len(got))
	}
	if got[0].ID != 0 || got[3].ID != 3 {
		t.Errorf("bud ids = %d..%d", got[0].ID, got[3].ID)
	}
}

func TestHandleBudRoutes(t *testing.T) {
	s := testServer(t, 6)

	cases := []struct {
		name string
		path string
		code int
	}{
		{"existing bud", "/api/v1/bud/2", http.StatusOK},
		{"unknown bud", "/api/v1/bud/42", http.StatusNotFound},
		{"garbage id", "/api/v1/bud/xyz", http.StatusBadRequest},
		{"neighbours", "/api/v1/bud/0/neighbours", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.handleBudRoutes(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
			if rec.Code != tc.code {
				t.Fatalf("status = %d, want %d", rec.Code, tc.code)
			}
		})
	}

	rec := httptest.NewRecorder()
	s.handleBudRoutes(rec, httptest.NewRequest(http.MethodGet, "/api/v1/bud/2", nil))
	var got budMsg
	decode(t, rec, &got)
	if got.ID != 2 {
		t.Errorf("bud id = %d, want 2", got.ID)
	}
}

func TestHandleFront(t *testing.T) {
	s := testServer(t, 6)

	rec := httptest.NewRecorder()
	s.handleFront(rec, httptest.NewRequest(http.MethodGet, "/api/v1/front", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var got []budMsg
	decode(t, rec, &got)
	if len(got) != 6 {
		t.Errorf("front has %d buds, want the full ring", len(got))
	}
}

func TestAdminOnly(t *testing.T) {
	s := testServer(t, 0)
	handler := s.adminOnly(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	cases := []struct {
		name  string
		token string
		code  int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"wrong token", "Bearer wrong", http.StatusUnauthorized},
		{"right token", "Bearer sesame", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/restart", nil)
			if tc.token != "" {
				req.Header.Set("Authorization", tc.token)
			}
			rec := httptest.NewRecorder()
			handler(rec, req)
			if rec.Code != tc.code {
				t.Fatalf("status = %d, want %d", rec.Code, tc.code)
			}
		})
	}
}

func TestAdminOnlyDisabledWithoutKey(t *testing.T) {
	s := testServer(t, 0)
	s.AdminKey = ""
	handler := s.adminOnly(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/api/v1/restart", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403 with auth disabled", rec.Code)
	}

	// GETs pass through regardless.
	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/v1/speed", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET status = %d, want 200", rec.Code)
	}
}

func TestHandleSpeed(t *testing.T) {
	s := testServer(t, 0)
	s.Eng = engine.NewEngine()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/speed", strings.NewReader(`{"speed": 5}`))
	s.handleSpeed(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if s.Eng.Speed() != 5 {
		t.Errorf("Speed = %v, want 5", s.Eng.Speed())
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/speed", strings.NewReader(`{"speed": -1}`))
	s.handleSpeed(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative speed status = %d, want 400", rec.Code)
	}
}

func TestHandleStepAndRestart(t *testing.T) {
	s := testServer(t, 0)

	rec := httptest.NewRecorder()
	s.handleStep(rec, httptest.NewRequest(http.MethodPost, "/api/v1/step?n=3", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("step status = %d: %s", rec.Code, rec.Body.String())
	}
	if s.Session.Len() != 3 {
		t.Errorf("Len after step = %d, want 3", s.Session.Len())
	}

	rec = httptest.NewRecorder()
	s.handleStep(rec, httptest.NewRequest(http.MethodPost, "/api/v1/step?n=0", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("n=0 status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.handleRestart(rec, httptest.NewRequest(http.MethodPost, "/api/v1/restart", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("restart status = %d", rec.Code)
	}
	if s.Session.Len() != 0 {
		t.Errorf("Len after restart = %d, want 0", s.Session.Len())
	}

	rec = httptest.NewRecorder()
	s.handleRestart(rec, httptest.NewRequest(http.MethodGet, "/api/v1/restart", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET restart status = %d, want 405", rec.Code)
	}
}

func TestHandleRuns(t *testing.T) {
	s := testServer(t, 0)

	// Without a database the endpoint degrades instead of panicking.
	rec := httptest.NewRecorder()
	s.handleRuns(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("no-db status = %d, want 503", rec.Code)
	}

	db, err := persistence.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	s.DB = db

	id, err := db.CreateRun("ring", nil)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	rec = httptest.NewRecorder()
	s.handleRuns(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil))
	var runs []persistence.Run
	decode(t, rec, &runs)
	if len(runs) != 1 || runs[0].ID != id {
		t.Errorf("runs = %+v", runs)
	}

	rec = httptest.NewRecorder()
	s.handleRunDetail(rec, httptest.NewRequest(http.MethodGet, "/api/v1/run/"+id, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("run detail status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.handleRunDetail(rec, httptest.NewRequest(http.MethodGet, "/api/v1/run/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing run status = %d, want 404", rec.Code)
	}
}

func TestLimiter(t *testing.T) {
	l := NewLimiter(3, time.Hour)

	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("request %d denied within limit", i)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Error("request over the limit allowed")
	}
	if !l.Allow("10.0.0.2") {
		t.Error("other client affected by a full window")
	}
	if l.RetryAfter("10.0.0.1") <= 0 {
		t.Error("RetryAfter should be positive for a full window")
	}
	if l.RetryAfter("10.0.0.99") != 0 {
		t.Error("RetryAfter for an unseen client should be 0")
	}
}

func TestLimiterWrap(t *testing.T) {
	l := NewLimiter(1, time.Hour)
	handler := l.Wrap(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/front", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("429 without Retry-After")
	}

	// A proxied request is keyed by its first forwarded hop, not the
	// proxy's own address.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/front", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("forwarded client status = %d, want 200", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"host and port", "10.0.0.1:1234", "", "10.0.0.1"},
		{"bare host", "10.0.0.1", "", "10.0.0.1"},
		{"forwarded", "10.0.0.1:1234", "203.0.113.7", "203.0.113.7"},
		{"forwarded chain", "10.0.0.1:1234", "203.0.113.7, 198.51.100.2", "203.0.113.7"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			if got := clientIP(req); got != tc.want {
				t.Errorf("clientIP = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := corsMiddleware(inner)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("allow-origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unknown origin was allowed")
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/status", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
}
