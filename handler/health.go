package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/expanova/cita-watcher/common"
	"github.com/expanova/cita-watcher/common/db"
	"github.com/expanova/cita-watcher/common/utils"
	"github.com/go-chi/chi/v5"
)

// HealthCheck probes one backing service
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	db     *db.DB
	checks map[string]HealthCheck
	router *chi.Mux
}

// NewHealthHandler creates the health routes. database may be nil when
// PostgreSQL is disabled; checks probe the other enabled dependencies.
func NewHealthHandler(database *db.DB, checks map[string]HealthCheck) *HealthHandler {
	h := &HealthHandler{
		db:     database,
		checks: checks,
	}

	r := chi.NewRouter()
	r.Get("/", h.handleHealthCheck)
	r.Get("/database", h.handleDatabaseHealth)
	r.Get("/dependencies", h.handleDependenciesHealth)

	h.router = r
	return h
}

func (h *HealthHandler) Router() *chi.Mux {
	return h.router
}

func (h *HealthHandler) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   common.AppName,
	}

	utils.WriteJSON(w, http.StatusOK, response)
}

func (h *HealthHandler) handleDatabaseHealth(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
			"database":  map[string]interface{}{"status": "disabled"},
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	dbErr := h.db.Ping(ctx)
	stat := h.db.Pool.Stat()
	database := map[string]interface{}{
		"status": "healthy",
		"stats": map[string]interface{}{
			"total_conns":    stat.TotalConns(),
			"idle_conns":     stat.IdleConns(),
			"acquired_conns": stat.AcquiredConns(),
			"max_conns":      stat.MaxConns(),
		},
	}
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"database":  database,
	}

	if dbErr != nil {
		response["status"] = "unhealthy"
		database["status"] = "unhealthy"
		database["error"] = dbErr.Error()
		utils.WriteJSON(w, http.StatusServiceUnavailable, response)
		return
	}

	utils.WriteJSON(w, http.StatusOK, response)
}

func (h *HealthHandler) handleDependenciesHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	healthy := true
	dependencies := make(map[string]interface{}, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			healthy = false
			dependencies[name] = map[string]interface{}{"status": "unhealthy", "error": err.Error()}
			continue
		}
		dependencies[name] = map[string]interface{}{"status": "healthy"}
	}

	response := map[string]interface{}{
		"status":       "healthy",
		"timestamp":    time.Now().UTC(),
		"dependencies": dependencies,
	}
	if !healthy {
		response["status"] = "unhealthy"
		utils.WriteJSON(w, http.StatusServiceUnavailable, response)
		return
	}
	utils.WriteJSON(w, http.StatusOK, response)
}
