package app

import (
	"encoding/json"
	"net/http"
	"time"

	authapi "brandhub/cmd/internal/auth/api"
)

func registerHTTP(mux *http.ServeMux, a *App, auth *authapi.Handler) {
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "brandhub auth service")
	})

	alive := func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	}
	mux.HandleFunc("GET /health", alive)
	mux.HandleFunc("GET /liveness", alive)

	mux.HandleFunc("GET /readiness", func(w http.ResponseWriter, r *http.Request) {
		if a.pool == nil {
			if a.cfg.ReadinessRequireDB {
				writeStatus(w, http.StatusServiceUnavailable, "db not configured")
				return
			}
			writeStatus(w, http.StatusOK, "ready")
			return
		}
		if err := PingDB(r.Context(), a.pool, 2*time.Second); err != nil {
			a.log.Warn("readiness.db.not_ready", "err", err)
			if a.cfg.ReadinessRequireDB {
				writeStatus(w, http.StatusServiceUnavailable, "db not ready")
				return
			}
		}
		writeStatus(w, http.StatusOK, "ready")
	})

	mux.Handle("GET /metrics", a.metrics.Handler())

	auth.Register(mux)
}

func writeStatus(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}{Success: status < 400, Message: msg})
}
