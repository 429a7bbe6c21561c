package handlers

import (
	"net/http"
	"strings"

	"novascp/services"
	"novascp/types"

	"github.com/gin-gonic/gin"
)

// AssistantHandler handles the chat assistant endpoints
type AssistantHandler struct {
	gateway      services.AssistantGateway
	conversation *services.Conversation
}

// NewAssistantHandler creates a new assistant handler
func NewAssistantHandler(gateway services.AssistantGateway) *AssistantHandler {
	return &AssistantHandler{
		gateway:      gateway,
		conversation: services.NewConversation(gateway),
	}
}

// AskRequest is a single question with optional context
type AskRequest struct {
	Prompt  string `json:"prompt"`
	Context string `json:"context"`
}

// Ask answers one question without touching the conversation history
func (h *AssistantHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "prompt is required",
		})
		return
	}

	answer := h.gateway.Ask(c.Request.Context(), req.Prompt, req.Context)
	c.JSON(http.StatusOK, gin.H{
		"prompt": req.Prompt,
		"answer": answer,
	})
}

// GetMessages returns the chat history
func (h *AssistantHandler) GetMessages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"messages": h.conversation.Messages(),
	})
}

// SendMessage adds a user message to the chat and returns the reply
func (h *AssistantHandler) SendMessage(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "prompt is required",
		})
		return
	}

	reply, ok := h.conversation.Send(c.Request.Context(), req.Prompt)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "prompt is required",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reply": reply,
	})
}

// GenerateSCPCommand returns an scp invocation for the requested copy
func (h *AssistantHandler) GenerateSCPCommand(c *gin.Context) {
	var req types.SCPCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid command request",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, h.gateway.GenerateSCPCommand(c.Request.Context(), req))
}
