package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jtoledo1974/atcapp/internal/board"
	"github.com/jtoledo1974/atcapp/internal/db"
	"github.com/jtoledo1974/atcapp/internal/events"
	"github.com/jtoledo1974/atcapp/internal/logbuffer"
	"github.com/jtoledo1974/atcapp/internal/roster"
	"github.com/jtoledo1974/atcapp/internal/store"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.Migrate(database); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	bus := events.NewBus()
	st := store.New(database, bus, zerolog.Nop())
	svc := board.NewService(st, nil, board.Options{DefaultUnit: "LECM", Bus: bus}, zerolog.Nop())

	r := chi.NewRouter()
	New(svc, st, "LECM", zerolog.Nop()).Routes(r)
	return r
}

func importFixture(t *testing.T, h http.Handler) string {
	t.Helper()
	body, err := os.ReadFile("../fixture/testdata/lecm_morning.yaml")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rosters", strings.NewReader(string(body)))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("import status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		RosterID string `json:"roster_id"`
		Periods  int    `json:"periods"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode import response: %v", err)
	}
	if resp.Periods != 7 {
		t.Fatalf("imported periods = %d, want 7", resp.Periods)
	}
	return resp.RosterID
}

func TestRosterBoardEndpoint(t *testing.T) {
	h := newTestRouter(t)
	id := importFixture(t, h)
	viewer := store.ControllerID("Ana Pérez")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rosters/"+id+"/board?viewer="+viewer+"&now=2026-03-02T08:00:00Z", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var res board.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode board: %v", err)
	}
	if res.Zone != "Europe/Madrid" || res.Unit != "LECM" {
		t.Fatalf("zone/unit = %s/%s", res.Zone, res.Unit)
	}
	if len(res.Groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(res.Groups))
	}
	if res.Personal == nil || res.Personal.Row.ControllerID != viewer {
		t.Fatal("expected personal view for the viewer")
	}

	var anchored int
	for _, g := range res.Groups {
		for _, row := range g.Rows {
			for _, p := range row.Periods {
				if p.Anchor {
					anchored++
					if row.ControllerID != viewer || p.Status != roster.StatusActive {
						t.Fatalf("anchor on %s/%s, want the viewer's active period", row.ControllerID, p.Status)
					}
				}
			}
		}
	}
	if anchored != 1 {
		t.Fatalf("anchored periods = %d, want 1", anchored)
	}
}

func TestPersonalEndpoint(t *testing.T) {
	h := newTestRouter(t)
	id := importFixture(t, h)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/rosters/"+id+"/personal/"+store.ControllerID("Carmen Gil")+"?now=2026-03-02T08:00:00Z", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var view roster.PersonalView
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(view.Periods) != 1 || len(view.Periods[0].Colleagues) != 0 {
		t.Fatalf("personal periods = %+v, want one solo period", view.Periods)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/rosters/"+id+"/personal/nobody", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown controller status = %d, want 404", rr.Code)
	}
}

func TestControllerBoardEndpoint(t *testing.T) {
	h := newTestRouter(t)
	id := importFixture(t, h)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/controllers/"+store.ControllerID("Blas Ruiz")+"/board", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var res board.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.RosterID != id {
		t.Fatalf("roster = %s, want %s", res.RosterID, id)
	}
}

func TestBoardErrors(t *testing.T) {
	h := newTestRouter(t)

	cases := []struct {
		name, path string
		want       int
	}{
		{"unknown roster", "/api/v1/rosters/missing/board", http.StatusNotFound},
		{"bad now", "/api/v1/rosters/missing/board?now=yesterday", http.StatusBadRequest},
		{"unknown controller", "/api/v1/controllers/nobody/board", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tc.path, nil))
			if rr.Code != tc.want {
				t.Fatalf("status = %d, want %d", rr.Code, tc.want)
			}
		})
	}
}

func TestRosterImportRejectsMalformedActivity(t *testing.T) {
	h := newTestRouter(t)
	doc := "unit: LECM\ndate: 2026-03-02\ncontrollers:\n  - name: Ana\n    periods:\n      - {start: '08:00', activity: EASV}\n"

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/rosters", strings.NewReader(doc)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "malformed_activity") {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestRosterImportDisabled(t *testing.T) {
	r := chi.NewRouter()
	New(nil, nil, "LECM", zerolog.Nop()).Routes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/rosters", strings.NewReader("{}")))
	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", rr.Code)
	}
}

func TestLogsEndpoint(t *testing.T) {
	buf := logbuffer.New(16)
	buf.Add(logbuffer.Entry{Level: "warn", Component: "board", Message: "board has duration warnings", Fields: map[string]any{"roster_id": "r1"}})
	buf.Add(logbuffer.Entry{Level: "info", Component: "store", Message: "roster saved", Fields: map[string]any{"roster_id": "r1"}})

	a := New(nil, nil, "LECM", zerolog.Nop())
	a.SetLogBuffer(buf)
	r := chi.NewRouter()
	a.Routes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/logs?level=warn&roster_id=r1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp struct {
		Entries []logbuffer.Entry `json:"entries"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Entries) != 1 || resp.Entries[0].Component != "board" {
		t.Fatalf("entries = %+v, want the board warning", resp.Entries)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/logs?limit=zero", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d, want 400", rr.Code)
	}
}
