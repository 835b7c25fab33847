package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adrianmcphee/launchbase"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Backend   string    `json:"backend"`
	Storage   string    `json:"storage"`
	Error     string    `json:"error,omitempty"`
}

type HealthHandler struct {
	serviceName string
	version     string
	storage     launchbase.Storage
	timeout     time.Duration
}

func NewHealthHandler(serviceName, version string, storage launchbase.Storage, timeout time.Duration) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		storage:     storage,
		timeout:     timeout,
	}
}

// HealthCheck pings the storage backend. A failed ping answers 503 so load
// balancers stop routing to the process.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		Backend:   string(h.storage.Kind()),
		Storage:   "up",
	}

	pingCtx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	if err := h.storage.Ping(pingCtx); err != nil {
		resp.Status = "degraded"
		resp.Storage = "down"
		resp.Error = err.Error()
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}
