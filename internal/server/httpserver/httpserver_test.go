package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRouterProbes(t *testing.T) {
	ready := false
	h := NewRouter(RouterConfig{
		Ready:  func() bool { return ready },
		Logger: quietLogger(),
	})

	tests := []struct {
		name   string
		path   string
		ready  bool
		status int
		want   string
	}{
		{"healthz", "/healthz", false, http.StatusOK, "healthy"},
		{"readyz not ready", "/readyz", false, http.StatusServiceUnavailable, "not ready"},
		{"readyz ready", "/readyz", true, http.StatusOK, "ready"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ready = tt.ready
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.status {
				t.Errorf("GET %s status = %d, want %d", tt.path, rec.Code, tt.status)
			}
			var p probe
			if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if p.Status != tt.want {
				t.Errorf("GET %s status field = %q, want %q", tt.path, p.Status, tt.want)
			}
		})
	}
}

func TestRouterStatusAndRPC(t *testing.T) {
	h := NewRouter(RouterConfig{
		RPCPath: "/devmesh.test/Exchange",
		RPCHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		}),
		Status: func() any { return map[string]string{"node_id": "node-a"} },
		Logger: quietLogger(),
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /v1/status status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"node_id":"node-a"`) {
		t.Errorf("GET /v1/status body = %s, want node_id", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/devmesh.test/Exchange", nil))
	if rec.Code != http.StatusAccepted {
		t.Errorf("POST rpc path status = %d, want %d", rec.Code, http.StatusAccepted)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /nowhere status = %d, want 404", rec.Code)
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}), RequestID())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.HasPrefix(seen, "req-") {
		t.Errorf("generated request id = %q, want req- prefix", seen)
	}
	if got := rec.Header().Get(HeaderRequestID); got != seen {
		t.Errorf("response header = %q, want %q", got, seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "abc" {
		t.Errorf("propagated request id = %q, want abc", seen)
	}
}

func TestRecover(t *testing.T) {
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), Recover(quietLogger()), AccessLog(quietLogger()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "DM-SYS-5000") {
		t.Errorf("body = %s, want internal error code", rec.Body.String())
	}
}

func TestServerServeShutdown(t *testing.T) {
	s := New("127.0.0.1:0", NewRouter(RouterConfig{Logger: quietLogger()}), nil)
	if err := s.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve() }()

	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /healthz status = %d, want 200", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Serve() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("Serve() did not return after Shutdown")
	}
}
