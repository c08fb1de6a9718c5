package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"phoneadvisor/internal/model"
)

// FeedbackStore persists user actions on products shown in a turn
type FeedbackStore interface {
	LogFeedback(ctx context.Context, turnID, phoneID, action string) error
}

// PhoneLookup checks that a product id exists in the catalog
type PhoneLookup interface {
	Get(id string) (model.Phone, bool)
}

// FeedbackHandler handles feedback-related HTTP requests
type FeedbackHandler struct {
	store   FeedbackStore
	catalog PhoneLookup
}

// NewFeedbackHandler creates a new feedback handler. A nil store disables the endpoint.
func NewFeedbackHandler(store FeedbackStore, catalog PhoneLookup) *FeedbackHandler {
	return &FeedbackHandler{
		store:   store,
		catalog: catalog,
	}
}

var validActions = map[string]bool{
	"click":        true,
	"view_details": true,
	"compare":      true,
}

// Submit handles POST /api/v1/feedback
func (h *FeedbackHandler) Submit(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Feedback storage is disabled"})
		return
	}

	var req model.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if !validActions[req.Action] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid action. Must be one of: click, view_details, compare"})
		return
	}

	if _, ok := h.catalog.Get(req.ProductID); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown product id"})
		return
	}

	if err := h.store.LogFeedback(c.Request.Context(), req.TurnID, req.ProductID, req.Action); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log feedback: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.FeedbackResponse{
		Success: true,
		Message: "Feedback logged successfully",
	})
}
