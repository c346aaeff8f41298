package entropy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestNilClientFallsBack(t *testing.T) {
	var c *Client
	if c.Enabled() {
		t.Fatal("nil client reports enabled")
	}
	if NewClient("") != nil {
		t.Fatal("empty key produced a client")
	}
	for i := 0; i < 100; i++ {
		if s := SeedFromSource(nil); s < 0 {
			t.Fatalf("negative fallback seed %d", s)
		}
	}
}

func TestSeedFromPool(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req struct {
			Method string         `json:"method"`
			Params map[string]any `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Method != "generateIntegers" || req.Params["apiKey"] != "k" {
			t.Errorf("unexpected request %+v", req)
		}
		w.Write([]byte(`{"jsonrpc":"2.0","result":{"random":{"data":[1,2,3,4]}},"id":1}`))
	}))
	defer srv.Close()

	c := NewClient("k").WithEndpoint(srv.URL)
	if got := c.Seed(); got != 1_000_000_002 {
		t.Fatalf("first seed = %d", got)
	}
	if got := c.Seed(); got != 3_000_000_004 {
		t.Fatalf("second seed = %d", got)
	}
	if calls.Load() != 1 {
		t.Fatalf("random.org called %d times, want 1", calls.Load())
	}
}

func TestSeedAPIErrorFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","error":{"code":401,"message":"bad key"},"id":1}`))
	}))
	defer srv.Close()

	c := NewClient("bad").WithEndpoint(srv.URL)
	if s := c.Seed(); s < 0 {
		t.Fatalf("fallback seed %d is negative", s)
	}
}
