package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"phoneadvisor/internal/model"
	"phoneadvisor/internal/service"
)

// ChatHandler handles chat turn HTTP requests
type ChatHandler struct {
	chatService *service.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// Chat handles POST /api/v1/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, invalidRequest(err))
		return
	}

	result := h.chatService.Turn(c.Request.Context(), req.History())
	c.JSON(statusOf(result), result.Response)
}

// ChatStream handles POST /api/v1/chat/stream - SSE streaming turn
func (h *ChatHandler) ChatStream(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, invalidRequest(err))
		return
	}

	// Create flusher for SSE
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	ctx := c.Request.Context()
	h.chatService.TurnStream(ctx, req.History(), func(event string, data any) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := sendSSE(c, event, data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
}

// statusOf maps a turn result onto an HTTP status; refusals and fallbacks are still 200
func statusOf(result service.TurnResult) int {
	if result.Err == nil {
		return http.StatusOK
	}
	switch result.Err.Code {
	case service.ErrorInvalidInput:
		return http.StatusBadRequest
	case service.ErrorNotFound:
		return http.StatusNotFound
	case service.ErrorUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func invalidRequest(err error) model.ChatResponse {
	return model.ChatResponse{
		Mode:           model.ModeClarify,
		Message:        service.MessageEmptyInput,
		UsedCatalogIDs: []string{},
		Error:          "Invalid request: " + err.Error(),
	}
}

// sendSSE sends a Server-Sent Event
func sendSSE(c *gin.Context, event string, data any) error {
	if data == nil {
		_, err := fmt.Fprintf(c.Writer, "event: %s\ndata: {}\n\n", event)
		return err
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		_, err = fmt.Fprintf(c.Writer, "event: error\ndata: {\"error\": \"JSON marshal failed\"}\n\n")
		return err
	}
	_, err = fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, string(jsonData))
	return err
}
