// Package api provides the HTTP API for generating, browsing, and editing realms.
// GET endpoints are public (read-only).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/hexrealm/internal/editor"
	"github.com/talgya/hexrealm/internal/entropy"
	"github.com/talgya/hexrealm/internal/persistence"
	"github.com/talgya/hexrealm/internal/world"
	"github.com/talgya/hexrealm/internal/worldgen"
)

const (
	maxSSEConns    = 8
	maxBodyBytes   = 8 << 20
	catchUpChanges = 50
)

// Server serves stored realms and their editing sessions over HTTP.
type Server struct {
	Registry     *editor.Registry
	DB           *persistence.DB
	Entropy      *entropy.Client // Nil draws seeds from crypto/rand
	Port         int
	AdminKey     string // Bearer token for POST endpoints. Empty = POST disabled.
	RelayKey     string // Bearer token for SSE stream endpoint. Empty = streaming disabled.
	CORSOrigins  []string
	GenerateRate int // Generations per client per hour

	started time.Time

	// Active SSE connection count (atomic).
	sseConns int32
}

// Handler builds the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	if s.started.IsZero() {
		s.started = time.Now()
	}
	rate := s.GenerateRate
	if rate <= 0 {
		rate = 120
	}
	generateLimiter := NewRateLimiter(rate, time.Hour)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/tileset", s.handleTileSet)
	mux.HandleFunc("/api/v1/presets", s.handlePresets)
	mux.HandleFunc("/api/v1/realms", s.handleRealms)

	// Per-realm endpoints: detail, hex, changes, stream, and the admin edit/delete.
	mux.HandleFunc("/api/v1/realm/", s.handleRealmRoutes)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/generate", s.adminOnly(RateLimitMiddleware(generateLimiter, s.handleGenerate)))
	mux.HandleFunc("/api/v1/realms/import", s.adminOnly(s.handleImport))

	return corsMiddleware(s.CORSOrigins, mux)
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "relay_auth", s.RelayKey != "")

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		slog.Info("HTTP API shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Localhost dev servers are always allowed.
func corsMiddleware(origins []string, next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			allowedOrigins[origin] = true
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

// bearerMatches reports whether the request carries key as its bearer token.
func bearerMatches(r *http.Request, key string) bool {
	auth := r.Header.Get("Authorization")
	return key != "" && strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == key
}

// adminOnly wraps a handler to require POST with the admin bearer token.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no REALM_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !bearerMatches(r, s.AdminKey) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	realms, err := s.DB.ListRealms()
	if err != nil {
		writeError(w, err)
		return
	}
	hexes := 0
	for _, sum := range realms {
		hexes += sum.HexCount
	}
	source := "crypto/rand"
	if s.Entropy.Enabled() {
		source = "random.org"
	}

	status := map[string]any{
		"name":          "hexrealm",
		"started":       humanize.Time(s.started),
		"uptime_secs":   int64(time.Since(s.started).Seconds()),
		"stored_realms": len(realms),
		"stored_hexes":  humanize.Comma(int64(hexes)),
		"open_sessions": len(s.Registry.IDs()),
		"seed_source":   source,
		"presets":       worldgen.PresetNames(),
	}
	writeJSON(w, status)
}

func (s *Server) handleTileSet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, world.DefaultTileSet())
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]worldgen.Options)
	for _, name := range worldgen.PresetNames() {
		opts, err := worldgen.Preset(name)
		if err != nil {
			writeError(w, err)
			return
		}
		out[name] = opts
	}
	writeJSON(w, out)
}

type realmListing struct {
	persistence.RealmSummary
	UpdatedAgo string `json:"updatedAgo"`
	Open       bool   `json:"open"`
}

func (s *Server) handleRealms(w http.ResponseWriter, r *http.Request) {
	realms, err := s.DB.ListRealms()
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]realmListing, 0, len(realms))
	for _, sum := range realms {
		updated := sum.Updated()
		sess, open := s.Registry.Get(sum.ID)
		if open && sess.Updated().After(updated) {
			// Edits not yet autosaved.
			updated = sess.Updated()
		}
		out = append(out, realmListing{
			RealmSummary: sum,
			UpdatedAgo:   humanize.Time(updated),
			Open:         open,
		})
	}
	writeJSON(w, out)
}

type generateRequest struct {
	world.ShapeSpec
	Name    string          `json:"name"`
	Preset  string          `json:"preset"`
	Options json.RawMessage `json:"options"` // Fields override the preset
	Seed    *int64          `json:"seed"`    // Nil draws a fresh seed
}

type generateResponse struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Seed     int64           `json:"seed"`
	Warnings []world.Warning `json:"warnings"`
	Realm    *world.Realm    `json:"realm"`
}

// handleGenerate builds, stores, and opens a new realm.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, world.FieldError(world.CodeInvalidConfig, "body", "invalid JSON: %v", err))
		return
	}
	if req.Preset == "" {
		req.Preset = "default"
	}
	opts, err := worldgen.Preset(req.Preset)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(req.Options) > 0 && string(req.Options) != "null" {
		if opts, err = opts.Overlay(req.Options); err != nil {
			writeError(w, err)
			return
		}
	}
	seed := entropy.SeedFromSource(s.Entropy)
	if req.Seed != nil {
		seed = *req.Seed
	}

	res, err := worldgen.Generate(req.ShapeSpec, opts, seed)
	if err != nil {
		writeError(w, err)
		return
	}

	id := persistence.NewID()
	name := req.Name
	if name == "" {
		name = fmt.Sprintf("Realm %d", seed)
	}
	if err := s.DB.SaveRealm(persistence.Record{ID: id, Name: name, Seed: &seed}, res.Realm); err != nil {
		writeError(w, err)
		return
	}
	s.Registry.Put(id, res.Realm.Clone())

	slog.Info("realm generated", "id", id, "preset", req.Preset, "seed", seed,
		"hexes", res.Realm.HexCount(), "warnings", len(res.Warnings))
	for _, warn := range res.Warnings {
		slog.Warn("generation shortfall", "id", id, "code", warn.Code, "requested", warn.Requested, "placed", warn.Placed)
	}

	writeJSONStatus(w, http.StatusCreated, generateResponse{ID: id, Name: name, Seed: seed, Warnings: nonNil(res.Warnings), Realm: res.Realm})
}

// handleImport stores a realm document posted as the body. Legacy documents
// without myth records are upgraded on the way in.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, err)
		return
	}
	realm, warnings, err := world.Decode(data)
	if err != nil {
		writeError(w, err)
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "Imported realm"
	}

	id := persistence.NewID()
	if err := s.DB.SaveRealm(persistence.Record{ID: id, Name: name}, realm); err != nil {
		writeError(w, err)
		return
	}
	s.Registry.Put(id, realm)
	for _, warn := range warnings {
		slog.Warn("import warning", "id", id, "code", warn.Code, "message", warn.Message)
	}
	slog.Info("realm imported", "id", id, "hexes", realm.HexCount(), "myths", len(realm.Myths))

	writeJSONStatus(w, http.StatusCreated, map[string]any{"id": id, "name": name, "warnings": nonNil(warnings)})
}

// handleRealmRoutes dispatches /api/v1/realm/:id[/hex/:q/:r | /changes | /stream | /edit | /delete].
func (s *Server) handleRealmRoutes(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// api/v1/realm/:id/... → parts[3]=id [4]=action
	if len(parts) < 4 || parts[3] == "" {
		http.Error(w, "usage: /api/v1/realm/:id", http.StatusBadRequest)
		return
	}
	id := parts[3]
	action := ""
	if len(parts) > 4 {
		action = parts[4]
	}

	switch action {
	case "":
		s.handleRealmDetail(w, r, id)
	case "hex":
		s.handleHexDetail(w, r, id, parts[5:])
	case "changes":
		s.handleChanges(w, r, id)
	case "stream":
		s.handleStream(w, r, id)
	case "edit":
		s.adminOnly(func(w http.ResponseWriter, r *http.Request) { s.handleEdit(w, r, id) })(w, r)
	case "delete":
		s.adminOnly(func(w http.ResponseWriter, r *http.Request) { s.handleDelete(w, r, id) })(w, r)
	default:
		http.Error(w, "unknown realm action: "+action, http.StatusNotFound)
	}
}

// session opens the editing session for id, loading it from the store on
// first use.
func (s *Server) session(id string) (*editor.Session, error) {
	return s.Registry.Open(id, func() (*world.Realm, error) {
		return s.DB.LoadRealm(id)
	})
}

func (s *Server) handleRealmDetail(w http.ResponseWriter, r *http.Request, id string) {
	sess, err := s.session(id)
	if err != nil {
		writeError(w, err)
		return
	}
	data, err := sess.Encode()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Realm-Revision", strconv.FormatUint(sess.Revision(), 10))
	w.Write(data)
}

type hexDetail struct {
	Hex         world.Hex   `json:"hex"`
	TerrainName string      `json:"terrainName"`
	SeatOfPower bool        `json:"seatOfPower"`
	Myth        *world.Myth `json:"myth,omitempty"`
	Neighbors   []world.Hex `json:"neighbors"`
}

func (s *Server) handleHexDetail(w http.ResponseWriter, r *http.Request, id string, rest []string) {
	// rest = [q, r]
	if len(rest) != 2 {
		http.Error(w, "usage: /api/v1/realm/:id/hex/:q/:r", http.StatusBadRequest)
		return
	}
	q, err1 := strconv.Atoi(rest[0])
	rr, err2 := strconv.Atoi(rest[1])
	if err1 != nil || err2 != nil {
		http.Error(w, "invalid coordinates", http.StatusBadRequest)
		return
	}

	sess, err := s.session(id)
	if err != nil {
		writeError(w, err)
		return
	}
	realm := sess.Snapshot()
	coord := world.HexCoord{Q: q, R: rr}
	hex := realm.Get(coord)
	if hex == nil {
		writeError(w, world.NewError(world.CodeHexNotFound, "hex (%d, %d) is not in the realm", q, rr))
		return
	}

	detail := hexDetail{
		Hex:         *hex,
		TerrainName: hex.Terrain.Name(),
		SeatOfPower: realm.SeatOfPower != nil && *realm.SeatOfPower == coord,
		Neighbors:   []world.Hex{},
	}
	if hex.Myth != 0 {
		if i := realm.MythIndex(hex.Myth); i >= 0 {
			m := realm.Myths[i]
			detail.Myth = &m
		}
	}
	for _, n := range coord.Neighbors() {
		if nh := realm.Get(n); nh != nil {
			detail.Neighbors = append(detail.Neighbors, *nh)
		}
	}
	writeJSON(w, detail)
}

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := s.DB.GetRealm(id); err != nil {
		writeError(w, err)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			http.Error(w, "limit must be in [1, 500]", http.StatusBadRequest)
			return
		}
		limit = n
	}
	changes, err := s.DB.RecentChanges(id, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, nonNil(changes))
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request, id string) {
	var e editor.Edit
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&e); err != nil {
		writeError(w, world.FieldError(world.CodeInvalidEdit, "body", "invalid JSON: %v", err))
		return
	}
	sess, err := s.session(id)
	if err != nil {
		writeError(w, err)
		return
	}
	change, err := sess.Apply(e)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, change)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	s.Registry.Remove(id)
	if err := s.DB.DeleteRealm(id); err != nil {
		writeError(w, err)
		return
	}
	slog.Info("realm deleted", "id", id)
	writeJSON(w, map[string]string{"deleted": id})
}

// handleStream provides an SSE endpoint for live edits to one realm.
// Requires bearer token auth and limits concurrent connections.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request, id string) {
	// Auth check uses the relay key, not the admin key.
	if s.RelayKey == "" {
		http.Error(w, "streaming disabled (no relay key)", http.StatusForbidden)
		return
	}
	if !bearerMatches(r, s.RelayKey) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	sess, err := s.session(id)
	if err != nil {
		writeError(w, err)
		return
	}

	// Connection limit.
	current := atomic.AddInt32(&s.sseConns, 1)
	if current > maxSSEConns {
		atomic.AddInt32(&s.sseConns, -1)
		http.Error(w, "too many SSE connections", http.StatusServiceUnavailable)
		return
	}
	defer atomic.AddInt32(&s.sseConns, -1)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// SSE headers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	subID, ch, past := sess.Subscribe(catchUpChanges)
	defer sess.Unsubscribe(subID)

	// Recent edits as catch-up.
	for _, c := range past {
		writeSSEEvent(w, c)
	}
	flusher.Flush()

	slog.Info("SSE client connected", "realm", id, "sub_id", subID)

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case c, ok := <-ch:
			if !ok {
				return
			}
			writeSSEEvent(w, c)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			slog.Info("SSE client disconnected", "realm", id, "sub_id", subID)
			return
		}
	}
}

// writeSSEEvent writes a single change in SSE format.
func writeSSEEvent(w http.ResponseWriter, c editor.Change) {
	data, err := json.Marshal(c)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", c.Revision, c.Op, data)
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
