package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker is satisfied by any dependency the health endpoint reports
// on. A nil error means healthy.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	vector      HealthChecker
	llm         HealthChecker
	environment string
	startedAt   time.Time
}

func NewHealthHandler(vector, llm HealthChecker, environment string) *HealthHandler {
	if environment == "" {
		environment = "development"
	}
	return &HealthHandler{vector: vector, llm: llm, environment: environment, startedAt: time.Now()}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	services := gin.H{}
	healthy := true

	if err := h.vector.Ping(ctx); err != nil {
		services["vector"] = err.Error()
		healthy = false
	} else {
		services["vector"] = "ok"
	}

	if err := h.llm.Ping(ctx); err != nil {
		services["llm"] = err.Error()
		healthy = false
	} else {
		services["llm"] = "ok"
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	status := "ok"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status":      status,
		"services":    services,
		"uptime_s":    int(time.Since(h.startedAt).Seconds()),
		"memory_mb":   mem.Alloc / (1024 * 1024),
		"environment": h.environment,
	})
}
