package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bomanihosts/backend/internal/api/middleware"
	"github.com/bomanihosts/backend/internal/metrics"
	"github.com/jackc/pgx/v5/pgxpool"
)

const checkTimeout = 2 * time.Second

// HealthCheck represents the health status of the server
type HealthCheck struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	GitCommit string                 `json:"git_commit"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// CheckResult represents the result of a single health check
type CheckResult struct {
	Status    string         `json:"status"`
	Message   string         `json:"message,omitempty"`
	LatencyMs int64          `json:"latency_ms,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// Pinger is satisfied by the redis rate limiter.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker runs the detailed /health checks.
type HealthChecker struct {
	pool      *pgxpool.Pool
	redis     Pinger
	version   string
	gitCommit string
}

// NewHealthChecker builds a checker. redis is nil unless the shared rate
// limit backend is configured.
func NewHealthChecker(pool *pgxpool.Pool, redis Pinger, version, gitCommit string) *HealthChecker {
	return &HealthChecker{
		pool:      pool,
		redis:     redis,
		version:   version,
		gitCommit: gitCommit,
	}
}

// Health returns the detailed health check handler
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// A cancelled request context means graceful shutdown is in progress.
		select {
		case <-r.Context().Done():
			respondHealth(w, http.StatusServiceUnavailable, "shutting_down")
			return
		default:
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]CheckResult{
			"database":   h.checkDatabase(ctx),
			"migrations": h.checkMigrations(ctx),
		}
		if h.redis != nil {
			checks["rate_limit_store"] = h.checkRedis(ctx)
		}

		overallStatus := "healthy"
		statusCode := http.StatusOK
		for name, check := range checks {
			metrics.HealthCheckStatus.WithLabelValues(name).Set(statusValue(check.Status))
			switch check.Status {
			case "fail":
				overallStatus = "unhealthy"
				statusCode = http.StatusServiceUnavailable
			case "warn":
				if overallStatus == "healthy" {
					overallStatus = "degraded"
				}
			}
		}

		response := HealthCheck{
			Status:    overallStatus,
			Version:   h.version,
			GitCommit: h.gitCommit,
			Checks:    checks,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_ = json.NewEncoder(w).Encode(response)
	}
}

func statusValue(status string) float64 {
	switch status {
	case "pass":
		return 2
	case "warn":
		return 1
	default:
		return 0
	}
}

func poolMissing() CheckResult {
	return CheckResult{
		Status:  "fail",
		Message: "Database pool not initialized",
		Details: map[string]any{
			"remediation": "Check that DATABASE_URL is set correctly and PostgreSQL is running",
		},
	}
}

// checkDatabase verifies PostgreSQL connection and query execution
func (h *HealthChecker) checkDatabase(ctx context.Context) CheckResult {
	if h.pool == nil {
		return poolMissing()
	}

	start := time.Now()
	dbCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var result int
	err := h.pool.QueryRow(dbCtx, "SELECT 1").Scan(&result)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		message := "Database query failed"
		details := map[string]any{"error": err.Error()}

		switch {
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(dbCtx.Err(), context.DeadlineExceeded):
			message = "Database query timed out after 2 seconds"
			details["remediation"] = "Check PostgreSQL performance and network latency"
		case strings.Contains(err.Error(), "connection refused"):
			message = "Database connection refused"
			details["remediation"] = "Verify PostgreSQL is running and DATABASE_URL host/port are correct"
		case strings.Contains(err.Error(), "authentication failed"):
			message = "Database authentication failed"
			details["remediation"] = "Verify DATABASE_URL username and password are correct"
		default:
			details["remediation"] = "Check DATABASE_URL and PostgreSQL service status"
		}

		return CheckResult{Status: "fail", Message: message, LatencyMs: latency, Details: details}
	}

	stats := h.pool.Stat()
	return CheckResult{
		Status:    "pass",
		Message:   "PostgreSQL connection successful",
		LatencyMs: latency,
		Details: map[string]any{
			"max_connections":      stats.MaxConns(),
			"total_connections":    stats.TotalConns(),
			"idle_connections":     stats.IdleConns(),
			"acquired_connections": stats.AcquiredConns(),
		},
	}
}

// checkMigrations reads the golang-migrate bookkeeping table.
func (h *HealthChecker) checkMigrations(ctx context.Context) CheckResult {
	if h.pool == nil {
		return poolMissing()
	}

	start := time.Now()
	migCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var version int64
	var dirty bool
	err := h.pool.QueryRow(migCtx, `SELECT version, dirty FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&version, &dirty)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		message := "Failed to query migration version"
		details := map[string]any{"error": err.Error()}
		if strings.Contains(err.Error(), "does not exist") || strings.Contains(err.Error(), "no rows") {
			message = "Migrations not applied"
			details["remediation"] = "Run: server migrate up"
		} else {
			details["remediation"] = "Database connection issue - check DATABASE_URL and PostgreSQL status"
		}
		return CheckResult{Status: "fail", Message: message, LatencyMs: latency, Details: details}
	}

	if dirty {
		return CheckResult{
			Status:    "fail",
			Message:   "Database in dirty migration state - manual intervention required",
			LatencyMs: latency,
			Details: map[string]any{
				"version": version,
				"dirty":   true,
				"action":  "Do NOT run new migrations until this is resolved",
			},
		}
	}

	return CheckResult{
		Status:    "pass",
		Message:   fmt.Sprintf("Migrations applied successfully (version %d)", version),
		LatencyMs: latency,
		Details:   map[string]any{"version": version, "dirty": false},
	}
}

// checkRedis degrades rather than fails: the limiter fails open without it.
func (h *HealthChecker) checkRedis(ctx context.Context) CheckResult {
	start := time.Now()
	redisCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if err := h.redis.Ping(redisCtx); err != nil {
		return CheckResult{
			Status:    "warn",
			Message:   "Rate limit store unreachable; requests are not being limited",
			LatencyMs: time.Since(start).Milliseconds(),
			Details:   map[string]any{"error": err.Error(), "remediation": "Check REDIS_URL and Redis service status"},
		}
	}
	return CheckResult{
		Status:    "pass",
		Message:   "Redis reachable",
		LatencyMs: time.Since(start).Milliseconds(),
	}
}

// Healthz is the liveness probe. It never touches dependencies.
func Healthz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondHealth(w, http.StatusOK, "ok")
	})
}

// Readyz reports ready only while the database answers a ping.
func Readyz(pool *pgxpool.Pool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if pool == nil {
			respondHealth(w, http.StatusServiceUnavailable, "unavailable")
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			middleware.LoggerFromContext(r.Context()).Warn().Err(err).Msg("readiness check failed")
			respondHealth(w, http.StatusServiceUnavailable, "unavailable")
			return
		}
		respondHealth(w, http.StatusOK, "ready")
	})
}

type healthResponse struct {
	Status string `json:"status"`
}

func respondHealth(w http.ResponseWriter, status int, value string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(healthResponse{Status: value})
}
