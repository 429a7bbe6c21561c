package handlers

import (
	"errors"
	"net/http"
	"time"

	"novascp/services"
	"novascp/types"
	"novascp/websocket"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// TransferHandler handles transfer queue endpoints
type TransferHandler struct {
	engine services.TransferEngine
	files  services.FileService
	hub    websocket.Hub
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(engine services.TransferEngine, files services.FileService, hub websocket.Hub) *TransferHandler {
	return &TransferHandler{
		engine: engine,
		files:  files,
		hub:    hub,
	}
}

// StartTransferRequest names the file to move either directly or by its
// ID in the remote listing
type StartTransferRequest struct {
	FileName  string          `json:"fileName"`
	FileID    string          `json:"fileId"`
	Direction types.Direction `json:"direction"`
}

// StartTransfer queues a simulated upload or download
func (h *TransferHandler) StartTransfer(c *gin.Context) {
	var req StartTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid transfer request",
			"details": err.Error(),
		})
		return
	}

	fileName := req.FileName
	if req.FileID != "" {
		file, ok := h.files.GetFile(req.FileID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "file not found",
			})
			return
		}
		fileName = file.Name
	}

	if req.Direction == "" {
		req.Direction = types.DirectionDownload
	}

	id, err := h.engine.StartTransfer(fileName, req.Direction)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, services.ErrEngineClosed) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"error": err.Error(),
		})
		return
	}

	job, _ := h.engine.GetJob(id)
	c.JSON(http.StatusCreated, gin.H{
		"message": "Transfer started successfully",
		"job":     job,
	})
}

// GetAllJobs returns every transfer, newest first
func (h *TransferHandler) GetAllJobs(c *gin.Context) {
	jobs := h.engine.Jobs()
	c.JSON(http.StatusOK, gin.H{
		"jobs":  jobs,
		"total": len(jobs),
	})
}

// GetJob returns a specific transfer by ID
func (h *TransferHandler) GetJob(c *gin.Context) {
	jobID := c.Param("jobId")
	job, exists := h.engine.GetJob(jobID)
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "transfer not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job": job,
	})
}

// CancelJob stops a running transfer
func (h *TransferHandler) CancelJob(c *gin.Context) {
	jobID := c.Param("jobId")
	err := h.engine.CancelTransfer(jobID)
	switch {
	case errors.Is(err, services.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "transfer not found",
		})
		return
	case errors.Is(err, services.ErrJobFinished):
		c.JSON(http.StatusConflict, gin.H{
			"error": "transfer already finished",
		})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}

	job, _ := h.engine.GetJob(jobID)
	c.JSON(http.StatusOK, gin.H{
		"message": "transfer cancelled successfully",
		"job":     job,
	})
}

// ClearFinished removes every completed or failed transfer from the queue
func (h *TransferHandler) ClearFinished(c *gin.Context) {
	removed := h.engine.RemoveFinished(0)
	c.JSON(http.StatusOK, gin.H{
		"removed": removed,
	})
}

// HandleWebSocketConnection handles WebSocket connections for specific transfer progress
func (h *TransferHandler) HandleWebSocketConnection(c *gin.Context) {
	jobID := c.Param("jobId")
	if jobID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "job ID is required"})
		return
	}

	if _, exists := h.engine.GetJob(jobID); !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "transfer not found"})
		return
	}

	upgrader := websocket.GetUpgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	// Register before reading the state so no change is missed in between
	client := websocket.NewClient(h.hub, conn, jobID)
	h.hub.RegisterClient(client)

	if job, exists := h.engine.GetJob(jobID); exists {
		client.Prime(services.ProgressMessageFor(job))
	} else {
		client.Prime(types.ProgressMessage{
			JobID:     jobID,
			Type:      "removed",
			Message:   "transfer not found",
			Timestamp: time.Now(),
		})
	}

	client.StartPumps()
}

// HandleWebSocketAllConnection handles WebSocket connections for all transfer progress
func (h *TransferHandler) HandleWebSocketAllConnection(c *gin.Context) {
	upgrader := websocket.GetUpgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := websocket.NewClient(h.hub, conn, websocket.AllJobs)
	h.hub.RegisterClient(client)

	jobs := h.engine.Jobs()
	primed := make([]types.ProgressMessage, 0, len(jobs))
	for i := len(jobs) - 1; i >= 0; i-- {
		primed = append(primed, services.ProgressMessageFor(jobs[i]))
	}
	client.Prime(primed...)

	client.StartPumps()
}
