// internal/handlers/health.go
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"warebridge/internal/adapters/db"
	"warebridge/internal/pkg/config"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	db        *db.Database
	redis     *redis.Client
	config    *config.Config
	logger    *slog.Logger
	startTime time.Time
}

func NewHealthHandler(
	database *db.Database,
	redisClient *redis.Client,
	cfg *config.Config,
	logger *slog.Logger,
) *HealthHandler {
	return &HealthHandler{
		db:        database,
		redis:     redisClient,
		config:    cfg,
		logger:    logger.With(slog.String("handler", "health")),
		startTime: time.Now(),
	}
}

type dependencyStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

type healthReport struct {
	Status       string                      `json:"status"`
	Version      string                      `json:"version"`
	Environment  string                      `json:"environment"`
	Uptime       string                      `json:"uptime"`
	Timestamp    time.Time                   `json:"timestamp"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

// Health reports the state of the store and the settings cache. A degraded
// dependency yields 503 so the orchestrator stops routing new submissions.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	report := healthReport{
		Status:       "healthy",
		Version:      h.config.App.Version,
		Environment:  h.config.App.Environment,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		Timestamp:    time.Now(),
		Dependencies: map[string]dependencyStatus{},
	}

	report.Dependencies["postgres"] = h.probe(ctx, "postgres", func(ctx context.Context) error {
		return h.db.Ping(ctx)
	})
	report.Dependencies["redis"] = h.probe(ctx, "redis", func(ctx context.Context) error {
		return h.redis.Ping(ctx).Err()
	})

	code := http.StatusOK
	for _, dep := range report.Dependencies {
		if dep.Status != "healthy" {
			report.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}

	h.writeJSON(ctx, w, code, report)
}

// Readiness is the cheap probe: both backends must answer a ping.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ready := h.db.Ping(ctx) == nil && h.redis.Ping(ctx).Err() == nil

	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	h.writeJSON(ctx, w, code, map[string]bool{"ready": ready})
}

func (h *HealthHandler) probe(ctx context.Context, name string, ping func(context.Context) error) dependencyStatus {
	start := time.Now()
	if err := ping(ctx); err != nil {
		h.logger.ErrorContext(ctx, "health probe failed",
			slog.String("dependency", name),
			slog.String("error", err.Error()))
		return dependencyStatus{Status: "unhealthy", Message: err.Error()}
	}
	return dependencyStatus{Status: "healthy", Latency: time.Since(start).String()}
}

func (h *HealthHandler) writeJSON(ctx context.Context, w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.ErrorContext(ctx, "failed to encode health response",
			slog.String("error", err.Error()))
	}
}
