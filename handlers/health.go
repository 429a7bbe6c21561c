package handlers

import (
	"net/http"
	"time"

	"novascp/services"
	"novascp/types"
	"novascp/websocket"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// HealthHandler handles health check endpoints
type HealthHandler struct {
	engine services.TransferEngine
	hub    websocket.Hub
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(engine services.TransferEngine, hub websocket.Hub) *HealthHandler {
	return &HealthHandler{engine: engine, hub: hub}
}

// HealthCheck returns the health status of the service
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "novascp",
		"version":   Version,
		"timestamp": time.Now().Unix(),
	})
}

// APIStatus returns the status of the API
func (h *HealthHandler) APIStatus(c *gin.Context) {
	jobs := h.engine.Jobs()
	active := len(lo.Filter(jobs, func(j types.TransferJob, _ int) bool {
		return j.Status == types.TransferStatusTransferring
	}))

	c.JSON(http.StatusOK, gin.H{
		"message":          "NovaSCP API is running",
		"transfers":        len(jobs),
		"activeTransfers":  active,
		"websocketClients": h.hub.ClientCount(),
	})
}
