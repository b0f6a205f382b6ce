package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
)

// HealthChecker is anything with a connectivity probe, such as the database
// pool or the Redis client.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler serves the /health, /ready and /live probes.
type HealthHandler struct {
	db        HealthChecker
	redis     HealthChecker
	version   string
	startedAt time.Time
}

// HealthResponse is the body of /health.
type HealthResponse struct {
	// Status is "healthy" or "degraded".
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
}

// NewHealthHandler builds the probe handler. redis may be nil when the API
// runs without Redis.
func NewHealthHandler(db, redis HealthChecker, version string) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, version: version, startedAt: time.Now()}
}

// HealthCheck reports every dependency. Only the database is critical: a
// Redis outage degrades caching and rate limiting but the API keeps serving.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	span := sentry.StartSpan(ctx, "health_check")
	defer span.Finish()
	ctx = span.Context()

	status := map[string]string{
		"database": probe(ctx, h.db, "healthy"),
		"redis":    probe(ctx, h.redis, "healthy"),
	}

	overall := "healthy"
	if status["redis"] != "healthy" && status["redis"] != "not configured" {
		overall = "degraded"
	}
	code := http.StatusOK
	if status["database"] != "healthy" {
		overall = "degraded"
		code = http.StatusServiceUnavailable
		span.Status = sentry.SpanStatusUnavailable
	} else {
		span.Status = sentry.SpanStatusOK
	}
	span.SetTag("overall.status", overall)

	c.JSON(code, HealthResponse{
		Status:    overall,
		Timestamp: time.Now(),
		Services:  status,
		Version:   h.version,
		Uptime:    time.Since(h.startedAt).String(),
	})
}

// ReadinessCheck is ready once the database answers.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := map[string]string{
		"database": probe(ctx, h.db, "ready"),
		"redis":    probe(ctx, h.redis, "ready"),
	}
	ready := status["database"] == "ready"

	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"ready": ready, "services": status})
}

func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func probe(ctx context.Context, checker HealthChecker, okStatus string) string {
	if checker == nil {
		return "not configured"
	}
	if err := checker.HealthCheck(ctx); err != nil {
		sentry.CaptureException(err)
		return "unhealthy: " + err.Error()
	}
	return okStatus
}
