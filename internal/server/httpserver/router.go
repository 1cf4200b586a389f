package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// RouterConfig holds the pieces mounted by NewRouter.
type RouterConfig struct {
	// RPCPath and RPCHandler come from rpc.NewHandler.
	RPCPath    string
	RPCHandler http.Handler

	// Status produces the /v1/status document. Nil disables the route.
	Status func() any

	// Ready reports whether the member accepts traffic. Nil means always.
	Ready func() bool

	Logger *slog.Logger
}

// NewRouter builds the member handler. Every route runs behind
// Recover, RequestID and AccessLog.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	mux := http.NewServeMux()

	if cfg.RPCHandler != nil {
		mux.Handle(cfg.RPCPath, cfg.RPCHandler)
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, probe{Status: "healthy", Time: now()})
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ready != nil && !cfg.Ready() {
			writeJSON(w, http.StatusServiceUnavailable, probe{Status: "not ready", Time: now()})
			return
		}
		writeJSON(w, http.StatusOK, probe{Status: "ready", Time: now()})
	})
	if cfg.Status != nil {
		mux.HandleFunc("GET /v1/status", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, cfg.Status())
		})
	}

	return Chain(mux,
		Recover(cfg.Logger),
		RequestID(),
		AccessLog(cfg.Logger),
	)
}

type probe struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

func now() string { return time.Now().UTC().Format(time.RFC3339) }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
