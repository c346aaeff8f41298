package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/talgya/hexrealm/internal/editor"
	"github.com/talgya/hexrealm/internal/persistence"
	"github.com/talgya/hexrealm/internal/world"
)

const testKey = "admin-secret"

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	db, err := persistence.Open(filepath.Join(t.TempDir(), "realms.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	s := &Server{
		Registry:     editor.NewRegistry(),
		DB:           db,
		AdminKey:     testKey,
		RelayKey:     "relay-secret",
		GenerateRate: 100,
	}
	return s, s.Handler()
}

func do(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

// generate creates a radius-3 realm and returns its id.
func generate(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/v1/generate",
		`{"shape":"hex","radius":3,"preset":"highlands","seed":7,"name":"Vale"}`, testKey)
	if rec.Code != http.StatusCreated {
		t.Fatalf("generate status %d: %s", rec.Code, rec.Body.String())
	}
	var out generateResponse
	decodeBody(t, rec, &out)
	if out.ID == "" || out.Seed != 7 || out.Name != "Vale" {
		t.Fatalf("generate response = %+v", out)
	}
	return out.ID
}

func TestAdminAuth(t *testing.T) {
	_, h := newTestServer(t)
	tests := []struct {
		name, method, token string
		want                int
	}{
		{"get", http.MethodGet, testKey, http.StatusMethodNotAllowed},
		{"no token", http.MethodPost, "", http.StatusUnauthorized},
		{"wrong token", http.MethodPost, "nope", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, "/api/v1/generate", `{"shape":"hex","radius":1}`, tt.token)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	s, _ := newTestServer(t)
	s.AdminKey = ""
	rec := do(t, s.Handler(), http.MethodPost, "/api/v1/generate", `{}`, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("disabled admin status = %d", rec.Code)
	}
}

func TestGenerateAndFetch(t *testing.T) {
	_, h := newTestServer(t)
	id := generate(t, h)

	rec := do(t, h, http.MethodGet, "/api/v1/realm/"+id, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("detail status %d: %s", rec.Code, rec.Body.String())
	}
	realm, _, err := world.Decode(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("decode realm: %v", err)
	}
	if realm.HexCount() != 37 {
		t.Fatalf("hex count = %d, want 37", realm.HexCount())
	}

	rec = do(t, h, http.MethodGet, "/api/v1/realms", "", "")
	var list []map[string]any
	decodeBody(t, rec, &list)
	if len(list) != 1 || list[0]["id"] != id || list[0]["open"] != true || list[0]["updatedAgo"] == "" {
		t.Fatalf("listing = %v", list)
	}
}

func TestGenerateRejectsBadOptions(t *testing.T) {
	_, h := newTestServer(t)
	tests := []struct {
		name, body string
		want       world.Code
	}{
		{"bad shape", `{"shape":"hex","radius":-1}`, world.CodeInvalidShape},
		{"bad preset", `{"shape":"hex","radius":2,"preset":"moon"}`, world.CodeInvalidConfig},
		{"bad option", `{"shape":"hex","radius":2,"options":{"terrainRoughness":2}}`, world.CodeInvalidConfig},
		{"bad json", `{"shape":`, world.CodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/v1/generate", tt.body, testKey)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
			}
			var body errorBody
			decodeBody(t, rec, &body)
			if body.Code != tt.want {
				t.Fatalf("code = %s, want %s", body.Code, tt.want)
			}
		})
	}
}

func TestGenerateNarrowedHeightOrder(t *testing.T) {
	_, h := newTestServer(t)
	body := `{"shape":"hex","radius":2,"seed":1,"options":{` +
		`"terrainHeightOrder":["mountain","plain"],"terrainBiases":{"mountain":1,"plain":1}}}`
	rec := do(t, h, http.MethodPost, "/api/v1/generate", body, testKey)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Realm json.RawMessage `json:"realm"`
	}
	decodeBody(t, rec, &out)
	realm, _, err := world.Decode(out.Realm)
	if err != nil {
		t.Fatalf("decode realm: %v", err)
	}
	for terrain := range realm.TerrainCounts() {
		if terrain != world.TerrainMountain && terrain != world.TerrainPlain {
			t.Fatalf("terrain %q outside the height order", terrain)
		}
	}
}

func TestGenerateRateLimited(t *testing.T) {
	s, _ := newTestServer(t)
	s.GenerateRate = 1
	h := s.Handler()
	body := `{"shape":"hex","radius":1,"seed":1}`
	if rec := do(t, h, http.MethodPost, "/api/v1/generate", body, testKey); rec.Code != http.StatusCreated {
		t.Fatalf("first generate = %d", rec.Code)
	}
	rec := do(t, h, http.MethodPost, "/api/v1/generate", body, testKey)
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("second generate = %d, Retry-After %q", rec.Code, rec.Header().Get("Retry-After"))
	}
}

func TestHexDetail(t *testing.T) {
	_, h := newTestServer(t)
	id := generate(t, h)

	rec := do(t, h, http.MethodGet, "/api/v1/realm/"+id+"/hex/0/0", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("hex status %d: %s", rec.Code, rec.Body.String())
	}
	var detail struct {
		TerrainName string            `json:"terrainName"`
		Neighbors   []json.RawMessage `json:"neighbors"`
	}
	decodeBody(t, rec, &detail)
	if detail.TerrainName == "" || len(detail.Neighbors) != 6 {
		t.Fatalf("detail = %+v", detail)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/realm/"+id+"/hex/9/0", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("off-grid hex status = %d", rec.Code)
	}
	rec = do(t, h, http.MethodGet, "/api/v1/realm/"+id+"/hex/x/0", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad coordinate status = %d", rec.Code)
	}
}

func TestEditRealm(t *testing.T) {
	s, h := newTestServer(t)
	id := generate(t, h)
	path := "/api/v1/realm/" + id + "/edit"

	rec := do(t, h, http.MethodPost, path, `{"op":"terrain","q":0,"r":0,"terrain":"lake"}`, testKey)
	if rec.Code != http.StatusOK {
		t.Fatalf("edit status %d: %s", rec.Code, rec.Body.String())
	}
	var change editor.Change
	decodeBody(t, rec, &change)
	if change.Revision != 1 || len(change.Hexes) != 1 {
		t.Fatalf("change = %+v", change)
	}
	sess, ok := s.Registry.Get(id)
	if !ok {
		t.Fatal("session not open")
	}
	if hex, _ := sess.Hex(world.HexCoord{}); hex.Terrain != world.TerrainLake {
		t.Fatalf("terrain = %s", hex.Terrain)
	}

	tests := []struct {
		name, path, body string
		status           int
		code             world.Code
	}{
		{"unknown terrain", path, `{"op":"terrain","q":0,"r":0,"terrain":"lava"}`, http.StatusBadRequest, world.CodeUnknownTile},
		{"off grid", path, `{"op":"terrain","q":9,"r":9,"terrain":"lake"}`, http.StatusNotFound, world.CodeHexNotFound},
		{"unknown op", path, `{"op":"teleport"}`, http.StatusBadRequest, world.CodeInvalidEdit},
		{"missing realm", "/api/v1/realm/nope/edit", `{"op":"terrain","terrain":"lake"}`, http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, tt.path, tt.body, testKey)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
			var body errorBody
			decodeBody(t, rec, &body)
			if body.Code != tt.code {
				t.Fatalf("code = %q, want %q", body.Code, tt.code)
			}
		})
	}
	if sess.Revision() != 1 {
		t.Fatalf("rejected edits advanced revision to %d", sess.Revision())
	}
}

func TestImportAndDelete(t *testing.T) {
	_, h := newTestServer(t)
	r, err := world.NewRealm(world.HexShape(1), world.TerrainForest)
	if err != nil {
		t.Fatal(err)
	}
	data, err := world.Encode(r)
	if err != nil {
		t.Fatal(err)
	}

	rec := do(t, h, http.MethodPost, "/api/v1/realms/import?name=Wold", string(data), testKey)
	if rec.Code != http.StatusCreated {
		t.Fatalf("import status %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	decodeBody(t, rec, &out)
	if out.Name != "Wold" {
		t.Fatalf("import = %+v", out)
	}

	rec = do(t, h, http.MethodPost, "/api/v1/realms/import", `{"hexes": 3}`, testKey)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("malformed import status = %d", rec.Code)
	}

	if rec = do(t, h, http.MethodPost, "/api/v1/realm/"+out.ID+"/delete", "", testKey); rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec = do(t, h, http.MethodGet, "/api/v1/realm/"+out.ID, "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("deleted realm status = %d", rec.Code)
	}
	if rec = do(t, h, http.MethodPost, "/api/v1/realm/"+out.ID+"/delete", "", testKey); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", rec.Code)
	}
}

func TestStatusAndCatalog(t *testing.T) {
	_, h := newTestServer(t)
	generate(t, h)

	var status map[string]any
	decodeBody(t, do(t, h, http.MethodGet, "/api/v1/status", "", ""), &status)
	if status["stored_realms"] != float64(1) || status["stored_hexes"] != "37" || status["seed_source"] != "crypto/rand" {
		t.Fatalf("status = %v", status)
	}

	var tiles world.TileSet
	decodeBody(t, do(t, h, http.MethodGet, "/api/v1/tileset", "", ""), &tiles)
	if len(tiles.Terrains) != 7 || len(tiles.Holdings) != 4 || len(tiles.Landmarks) != 6 {
		t.Fatalf("tileset = %+v", tiles)
	}

	var presets map[string]json.RawMessage
	decodeBody(t, do(t, h, http.MethodGet, "/api/v1/presets", "", ""), &presets)
	if _, ok := presets["caldera"]; !ok || len(presets) != 5 {
		t.Fatalf("presets = %v", presets)
	}
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(t)
	s.CORSOrigins = []string{"https://maps.example"}
	h := s.Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/realms", nil)
	req.Header.Set("Origin", "https://maps.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "https://maps.example" {
		t.Fatalf("preflight = %d %v", rec.Code, rec.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/tileset", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("unknown origin allowed")
	}
}

func TestStreamCatchUp(t *testing.T) {
	_, h := newTestServer(t)
	id := generate(t, h)
	if rec := do(t, h, http.MethodPost, "/api/v1/realm/"+id+"/edit", `{"op":"terrain","q":1,"r":0,"terrain":"marsh"}`, testKey); rec.Code != http.StatusOK {
		t.Fatalf("edit status = %d", rec.Code)
	}

	if rec := do(t, h, http.MethodGet, "/api/v1/realm/"+id+"/stream", "", testKey); rec.Code != http.StatusUnauthorized {
		t.Fatalf("admin key on stream = %d", rec.Code)
	}

	srv := httptest.NewServer(h)
	defer srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/realm/"+id+"/stream", nil)
	req.Header.Set("Authorization", "Bearer relay-secret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stream status = %d", resp.StatusCode)
	}

	br := bufio.NewReader(resp.Body)
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		if strings.HasPrefix(line, "event: ") {
			if strings.TrimSpace(line) != "event: terrain" {
				t.Fatalf("first event = %q", line)
			}
			break
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{world.NewError(world.CodeMythOccupied, "x"), http.StatusConflict},
		{world.NewError(world.CodeMythNotFound, "x"), http.StatusNotFound},
		{world.NewError(world.CodeMalformedImport, "x"), http.StatusUnprocessableEntity},
		{world.NewError(world.CodeInvalidEdge, "x"), http.StatusBadRequest},
		{world.NewError(world.CodeInvariant, "x"), http.StatusInternalServerError},
		{persistence.ErrNotFound, http.StatusNotFound},
		{context.Canceled, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
