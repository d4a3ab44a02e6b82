// Package server exposes the scraper over HTTP: health and status probes,
// manual scrape triggers, the recent activity log, and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"forexcal/internal/config"
	"forexcal/internal/event"
	"forexcal/internal/logger"
	"forexcal/internal/runner"
)

// Pinger checks connectivity of the configured database sink.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all HTTP handler dependencies.
type Handler struct {
	runs   *runner.Runner
	loader *config.Loader
	db     Pinger // nil when no database sink is configured
	logger *logger.Logger
	mux    *http.ServeMux
}

// New creates the HTTP handler and registers all routes.
func New(runs *runner.Runner, loader *config.Loader, db Pinger, log *logger.Logger) http.Handler {
	h := &Handler{runs: runs, loader: loader, db: db, logger: log, mux: http.NewServeMux()}

	h.mux.HandleFunc("GET /health", h.health)
	h.mux.HandleFunc("GET /status", h.status)
	h.mux.HandleFunc("GET /logs", h.logs)
	h.mux.HandleFunc("GET /scrape", h.scrapeCurrent)
	h.mux.HandleFunc("POST /scrape", h.scrapeCurrent)
	h.mux.HandleFunc("GET /scrape/{month}", h.scrapeMonth)
	h.mux.HandleFunc("POST /scrape/{month}", h.scrapeMonth)
	h.mux.HandleFunc("GET /db/test", h.dbTest)
	h.mux.HandleFunc("POST /config/reload", h.reloadConfig)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return h.logging(h.mux)
}

// GET /health — always 200 (liveness probe).
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "forexcal",
	})
}

// GET /status — current and last run state.
func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.runs.Status())
}

// GET /logs — most recent activity entries, newest first.
func (h *Handler) logs(w http.ResponseWriter, r *http.Request) {
	entries := h.runs.Activity()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(entries),
		"logs":  entries,
	})
}

// GET|POST /scrape — trigger a scrape of the current month.
func (h *Handler) scrapeCurrent(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, "this")
}

// GET|POST /scrape/{month} — trigger a scrape of a named month.
func (h *Handler) scrapeMonth(w http.ResponseWriter, r *http.Request) {
	month := r.PathValue("month")
	if !event.ValidScopeParam(month) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid month %q: use a month name, %q, or %q", month, "this", "next"))
		return
	}
	h.trigger(w, month)
}

func (h *Handler) trigger(w http.ResponseWriter, param string) {
	scope, err := event.ResolveScope(param, time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	runID, err := h.runs.Trigger(scope)
	if errors.Is(err, runner.ErrAlreadyRunning) {
		writeError(w, http.StatusConflict, fmt.Sprintf("scrape for %s is already running", scope.Key()))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id": runID,
		"scope":  scope.Key(),
		"status": "started",
	})
}

// GET /db/test — connectivity check for the database sink.
func (h *Handler) dbTest(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeError(w, http.StatusServiceUnavailable, "no database sink configured")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"database": "ok"})
}

// POST /config/reload — re-read the config file from disk.
func (h *Handler) reloadConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.loader.Reload()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded": true,
		"sinks":    cfg.Sinks,
	})
}

func (h *Handler) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Debug("http request", logger.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}
