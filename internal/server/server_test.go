package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/jtoledo1974/atcapp/internal/config"
	"github.com/jtoledo1974/atcapp/internal/logbuffer"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		Environment: "test",
		HTTPBind:    "127.0.0.1",
		HTTPPort:    0,
		DBBackend:   config.DatabaseSQLite,
		DBDSN:       filepath.Join(t.TempDir(), "atcapp.db"),
		DefaultUnit: "LECM",
	}
	srv, err := New(cfg, logbuffer.New(32), zerolog.Nop())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(func() {
		if err := srv.Close(); err != nil {
			t.Errorf("close server: %v", err)
		}
	})
	return srv
}

func TestHealthzReportsDatabase(t *testing.T) {
	srv := newTestServer(t)

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["db"] != true || body["cache"] != false {
		t.Fatalf("body = %v, want db up and no cache", body)
	}
}

func TestImportThenPresentBoard(t *testing.T) {
	srv := newTestServer(t)

	payload, err := os.ReadFile(filepath.Join("..", "fixture", "testdata", "lecm_morning.yaml"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/rosters/", bytes.NewReader(payload)))
	if rr.Code != http.StatusCreated {
		t.Fatalf("import status = %d, want 201: %s", rr.Code, rr.Body.String())
	}
	var created struct {
		RosterID string `json:"roster_id"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil || created.RosterID == "" {
		t.Fatalf("import body = %s (%v)", rr.Body.String(), err)
	}

	rr = httptest.NewRecorder()
	url := "/api/v1/rosters/" + created.RosterID + "/board?now=2026-03-02T08:00:00Z"
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, url, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("board status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), created.RosterID) {
		t.Fatalf("board body missing roster id: %s", rr.Body.String())
	}
}

func TestMetricsEndpointMounted(t *testing.T) {
	srv := newTestServer(t)

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	srv := newTestServer(t)
	if err := srv.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := srv.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
