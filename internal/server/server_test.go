package server

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/IM594/vivi-server-merge-tool/internal/config"
	"github.com/IM594/vivi-server-merge-tool/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Data.DataDir = t.TempDir()
	st, err := store.New(filepath.Join(cfg.Data.DataDir, cfg.Data.DBFile))
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	srv, err := NewServer(cfg, st, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

func TestServer_Routes(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		method, path string
		code         int
		contains     string
	}{
		{http.MethodGet, "/", http.StatusOK, "合服计划检测"},
		{http.MethodGet, "/history", http.StatusOK, "<form"},
		{http.MethodGet, "/api/status", http.StatusOK, `"status":"ok"`},
		{http.MethodGet, "/api/unknown", http.StatusNotFound, "接口不存在"},
		{http.MethodOptions, "/api/runs", http.StatusNoContent, ""},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		if w.Code != tc.code {
			t.Fatalf("%s %s: status %d", tc.method, tc.path, w.Code)
		}
		if tc.contains != "" && !strings.Contains(w.Body.String(), tc.contains) {
			t.Fatalf("%s %s: body %s", tc.method, tc.path, w.Body.String())
		}
	}
}

func TestServer_CORSHeaders(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/rules", nil))
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow-origin = %q", got)
	}
}
