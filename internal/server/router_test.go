package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/foxfirecodes/datadog-viewer/internal/state"
	trk "github.com/foxfirecodes/datadog-viewer/internal/tracker"
)

func setupRouter(t *testing.T, base string, rows int) (http.Handler, *trk.Tracker) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	csv := ""
	for i := 0; i < rows; i++ {
		csv += fmt.Sprintf("\"ts-%d\",\"{\"\"test\"\":{\"\"source\"\":{\"\"file\"\":\"\"f%d.py\"\"},\"\"name\"\":\"\"t%d\"\"},\"\"error\"\":{\"\"message\"\":\"\"m%d\"\"}}\"\n", i, i, i, i)
	}
	csvPath := filepath.Join(dir, "errors.csv")
	if err := os.WriteFile(csvPath, []byte(csv), 0o600); err != nil {
		t.Fatal(err)
	}
	tr, err := trk.New(trk.Options{
		CSVPath: csvPath,
		State:   state.Config{Path: filepath.Join(dir, "state.json")},
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = tr.Close() })
	return NewRouter(tr, base).Handler(), tr
}

func doReq(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestStatsEndpoint(t *testing.T) {
	h, _ := setupRouter(t, "/api", 3)
	rec := doReq(t, h, http.MethodGet, "/api/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	stats := decode[map[string]any](t, rec)
	if stats["total"].(float64) != 3 || stats["addressed"].(float64) != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestListEndpointPaginates(t *testing.T) {
	h, _ := setupRouter(t, "", 5)
	rec := doReq(t, h, http.MethodGet, "/errors?page=2&page_size=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	page := decode[map[string]any](t, rec)
	if page["page"].(float64) != 2 || page["total_pages"].(float64) != 3 {
		t.Fatalf("unexpected page meta: %+v", page)
	}
	if n := len(page["records"].([]any)); n != 2 {
		t.Fatalf("expected 2 records, got %d", n)
	}
}

func TestListEndpointRejectsBadPage(t *testing.T) {
	h, _ := setupRouter(t, "", 1)
	rec := doReq(t, h, http.MethodGet, "/errors?page=abc")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListEndpointClampsOutOfRange(t *testing.T) {
	h, _ := setupRouter(t, "", 3)
	rec := doReq(t, h, http.MethodGet, "/errors?page=99&page_size=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	page := decode[map[string]any](t, rec)
	if page["page"].(float64) != 2 {
		t.Fatalf("expected clamp to last page, got %+v", page)
	}
}

func TestGetEndpoint(t *testing.T) {
	h, tr := setupRouter(t, "", 2)
	id := tr.Page(1, 10).Records[0].ID
	rec := doReq(t, h, http.MethodGet, "/errors/"+id)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	entry := decode[map[string]any](t, rec)
	if entry["id"] != id || entry["addressed"].(bool) {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestGetEndpointNotFound(t *testing.T) {
	h, _ := setupRouter(t, "", 1)
	rec := doReq(t, h, http.MethodGet, "/errors/unknown")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestToggleEndpoint(t *testing.T) {
	h, tr := setupRouter(t, "/api", 2)
	id := tr.Page(1, 10).Records[1].ID

	rec := doReq(t, h, http.MethodPost, "/api/errors/"+id+"/toggle")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[map[string]any](t, rec)
	if resp["addressed"] != true || resp["persisted"] != true {
		t.Fatalf("unexpected toggle response: %+v", resp)
	}

	// Page reflects the toggle immediately.
	page := decode[map[string]any](t, doReq(t, h, http.MethodGet, "/api/errors?page=1&page_size=10"))
	recs := page["records"].([]any)
	if recs[1].(map[string]any)["addressed"] != true {
		t.Fatalf("page does not reflect toggle: %+v", recs[1])
	}

	rec = doReq(t, h, http.MethodPost, "/api/errors/"+id+"/toggle")
	if decode[map[string]any](t, rec)["addressed"] != false {
		t.Fatalf("second toggle must flip back: %s", rec.Body.String())
	}
}

func TestReloadEndpoint(t *testing.T) {
	h, tr := setupRouter(t, "", 3)
	rec := doReq(t, h, http.MethodPost, "/reload")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[map[string]any](t, rec)
	if resp["records"].(float64) != 3 {
		t.Fatalf("unexpected reload response: %+v", resp)
	}
	if tr.Len() != 3 {
		t.Fatalf("catalog changed unexpectedly: %d", tr.Len())
	}
}
