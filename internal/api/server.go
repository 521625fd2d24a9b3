// Package api serves the growth state over HTTP.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
// /ws streams bud placements over a websocket.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/magnolia/internal/engine"
	"github.com/talgya/magnolia/internal/meristem"
	"github.com/talgya/magnolia/internal/persistence"
)

// Server serves a growth session over HTTP.
type Server struct {
	Session  *engine.Session
	Eng      *engine.Engine
	DB       *persistence.DB
	Port     int
	AdminKey string // bearer token for POST endpoints; empty = POST disabled

	upgrader websocket.Upgrader

	// Active websocket subscribers.
	subMu sync.Mutex
	subs  map[*websocket.Conn]chan budMsg
}

type budMsg struct {
	ID     int     `json:"id"`
	Angle  float64 `json:"angle"`
	Height float64 `json:"height"`
	Radius float64 `json:"radius"`
	Scale  float64 `json:"scale"`
}

// Start begins serving the HTTP API in a goroutine and subscribes to the
// session's placement stream.
func (s *Server) Start() {
	s.subs = make(map[*websocket.Conn]chan budMsg)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	s.Session.OnPlace(s.broadcast)

	// Front and axis walks are quadratic in bud count; keep them from
	// being hammered.
	geomLimiter := NewLimiter(600, time.Hour)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/buds", s.handleBuds)
	mux.HandleFunc("/api/v1/bud/", s.handleBudRoutes)
	mux.HandleFunc("/api/v1/front", geomLimiter.Wrap(s.handleFront))
	mux.HandleFunc("/api/v1/axes", geomLimiter.Wrap(s.handleAxes))
	mux.HandleFunc("/api/v1/runs", s.handleRuns)
	mux.HandleFunc("/api/v1/run/", s.handleRunDetail)

	// Websocket placement stream.
	mux.HandleFunc("/ws", s.handleStream)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/step", s.adminOnly(s.handleStep))
	mux.HandleFunc("/api/v1/restart", s.adminOnly(s.handleRestart))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		handler := corsMiddleware(mux)
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of allowed origins;
// localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST
// requests. GET requests pass through.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no MAGNOLIA_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"name":       "magnolia",
		"positioner": s.Session.Positioner(),
		"buds":       s.Session.Len(),
		"radius":     s.Session.Radius(),
		"height":     s.Session.Height(),
	}
	if s.Eng != nil {
		status["speed"] = s.Eng.Speed()
		status["running"] = s.Eng.Running()
		status["tick"] = s.Eng.Tick()
	}
	writeJSON(w, status)
}

func budJSON(b *meristem.Bud) budMsg {
	return budMsg{ID: b.ID, Angle: b.Angle, Height: b.Height, Radius: b.Radius, Scale: b.Scale}
}

func (s *Server) handleBuds(w http.ResponseWriter, r *http.Request) {
	buds := s.Session.Buds()
	out := make([]budMsg, len(buds))
	for i, b := range buds {
		out[i] = budJSON(b)
	}
	writeJSON(w, out)
}

// handleBudRoutes dispatches /api/v1/bud/:id and /api/v1/bud/:id/neighbours.
func (s *Server) handleBudRoutes(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(r.URL.Path, "/")
	// /api/v1/bud/:id → parts[0]="" [1]="api" [2]="v1" [3]="bud" [4]=id
	if len(parts) < 5 {
		http.Error(w, "missing bud id", http.StatusBadRequest)
		return
	}
	id, err := strconv.Atoi(parts[4])
	if err != nil {
		http.Error(w, "invalid bud id", http.StatusBadRequest)
		return
	}

	b := s.Session.Get(id)
	if b == nil {
		http.Error(w, "bud not found", http.StatusNotFound)
		return
	}

	if len(parts) >= 6 && parts[5] == "neighbours" {
		neighbours, err := s.Session.Neighbours(id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		out := make([]budMsg, len(neighbours))
		for i, n := range neighbours {
			out[i] = budJSON(n)
		}
		writeJSON(w, out)
		return
	}

	writeJSON(w, budJSON(b))
}

func (s *Server) handleFront(w http.ResponseWriter, r *http.Request) {
	front, err := s.Session.Front()
	if err != nil {
		slog.Error("front computation failed", "error", err)
		http.Error(w, "front unavailable", http.StatusConflict)
		return
	}
	out := make([]budMsg, len(front))
	for i, b := range front {
		out[i] = budJSON(b)
	}
	writeJSON(w, out)
}

func (s *Server) handleAxes(w http.ResponseWriter, r *http.Request) {
	type axisEntry struct {
		Kind  string  `json:"kind"`
		Slope float64 `json:"slope"`
		Buds  []int   `json:"buds"`
	}

	axes := s.Session.Axes()
	out := make([]axisEntry, 0, len(axes))
	for _, h := range axes {
		entry := axisEntry{Kind: h.Kind(), Slope: h.Slope()}
		for _, b := range s.Session.OnLine(h) {
			entry.Buds = append(entry.Buds, b.ID)
		}
		out = append(out, entry)
	}
	writeJSON(w, out)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	limit := 30
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	runs, err := s.DB.ListRuns(limit)
	if err != nil {
		slog.Error("run listing failed", "error", err)
		http.Error(w, "run listing failed", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []persistence.Run{}
	}
	writeJSON(w, runs)
}

func (s *Server) handleRunDetail(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	parts := strings.Split(r.URL.Path, "/")
	if len(parts) < 5 || parts[4] == "" {
		http.Error(w, "missing run id", http.StatusBadRequest)
		return
	}

	run, err := s.DB.GetRun(parts[4])
	if err != nil {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	buds, err := s.DB.LoadBuds(run.ID)
	if err != nil {
		slog.Error("bud loading failed", "run", run.ID, "error", err)
		http.Error(w, "bud loading failed", http.StatusInternalServerError)
		return
	}

	type budEntry struct {
		Seq    int     `json:"seq"`
		Angle  float64 `json:"angle"`
		Height float64 `json:"height"`
		Radius float64 `json:"radius"`
		Scale  float64 `json:"scale"`
	}
	out := make([]budEntry, len(buds))
	for i, b := range buds {
		out[i] = budEntry{Seq: b.Seq, Angle: b.Angle, Height: b.Height, Radius: b.Radius, Scale: b.Scale}
	}

	writeJSON(w, map[string]any{
		"run":  run,
		"buds": out,
	})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if s.Eng == nil {
		http.Error(w, "engine not available", http.StatusServiceUnavailable)
		return
	}

	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	n := 1
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 10000 {
			http.Error(w, "n must be 1-10000", http.StatusBadRequest)
			return
		}
		n = parsed
	}

	if err := s.Session.StepN(n); err != nil {
		slog.Error("manual step failed", "n", n, "error", err)
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, map[string]int{"buds": s.Session.Len()})
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.Session.Restart()
	writeJSON(w, map[string]int{"buds": s.Session.Len()})
}

// handleStream upgrades to a websocket and pushes every placed bud as a
// JSON message until the client disconnects.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	ch := make(chan budMsg, 64)
	s.subMu.Lock()
	s.subs[conn] = ch
	s.subMu.Unlock()
	slog.Info("websocket subscriber connected", "remote", conn.RemoteAddr())

	defer func() {
		s.subMu.Lock()
		delete(s.subs, conn)
		s.subMu.Unlock()
		conn.Close()
	}()

	// Drain client messages so control frames are answered; the read
	// also notices disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg := <-ch:
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// broadcast pushes a placed bud to every websocket subscriber. Slow
// subscribers drop messages rather than stall the engine.
func (s *Server) broadcast(b *meristem.Bud) {
	msg := budJSON(b)

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
