package handlers

import (
	"errors"
	"net/http"

	"novascp/services"
	"novascp/types"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ServerHandler handles saved connection profiles and the active session
type ServerHandler struct {
	registry services.ServerRegistry
	session  *services.Session
}

// NewServerHandler creates a new server handler
func NewServerHandler(registry services.ServerRegistry, session *services.Session) *ServerHandler {
	return &ServerHandler{
		registry: registry,
		session:  session,
	}
}

// ListServers returns every saved server
func (h *ServerHandler) ListServers(c *gin.Context) {
	servers := h.registry.List()
	c.JSON(http.StatusOK, gin.H{
		"servers": servers,
		"total":   len(servers),
	})
}

// GetServer returns one saved server
func (h *ServerHandler) GetServer(c *gin.Context) {
	server, ok := h.registry.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "server not found",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"server": server,
	})
}

// AddServer saves a new server and selects it when nothing is selected
func (h *ServerHandler) AddServer(c *gin.Context) {
	var input types.ServerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid server format",
			"details": err.Error(),
		})
		return
	}

	server, err := h.registry.Add(input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	if h.session.State().ServerID == "" {
		if err := h.session.Select(server.ID); err != nil {
			logrus.WithError(err).WithField("server_id", server.ID).Warn("Could not select the new server")
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Server added successfully",
		"server":  server,
	})
}

// UpdateServer replaces a saved server
func (h *ServerHandler) UpdateServer(c *gin.Context) {
	var server types.ServerConnection
	if err := c.ShouldBindJSON(&server); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid server format",
			"details": err.Error(),
		})
		return
	}
	server.ID = c.Param("id")

	updated, err := h.registry.Update(server)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, services.ErrServerNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Server updated successfully",
		"server":  updated,
	})
}

// DeleteServer removes a saved server
func (h *ServerHandler) DeleteServer(c *gin.Context) {
	id := c.Param("id")
	if err := h.registry.Delete(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}
	h.session.ServerRemoved(id)

	c.JSON(http.StatusOK, gin.H{
		"message": "Server deleted successfully",
	})
}

// GetSession returns the selected server and its connection status
func (h *ServerHandler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.State())
}

// SelectServerRequest picks the server to connect to; empty clears it
type SelectServerRequest struct {
	ServerID string `json:"serverId"`
}

// SelectServer switches the active server
func (h *ServerHandler) SelectServer(c *gin.Context) {
	var req SelectServerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid session format",
			"details": err.Error(),
		})
		return
	}

	if err := h.session.Select(req.ServerID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, h.session.State())
}
