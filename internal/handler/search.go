package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"phoneadvisor/internal/model"
	"phoneadvisor/internal/service"
)

// SearchHandler handles catalog search HTTP requests
type SearchHandler struct {
	searchService *service.SearchService
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(searchService *service.SearchService) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
	}
}

// Search handles POST /api/v1/search
func (h *SearchHandler) Search(c *gin.Context) {
	var req model.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	response, err := h.searchService.Search(c.Request.Context(), &req)
	if err != nil {
		var se *service.Error
		if errors.As(err, &se) && se.Code == service.ErrorInvalidInput {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Query must not be empty"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, response)
}

// ListPhones handles GET /api/v1/phones
func (h *SearchHandler) ListPhones(c *gin.Context) {
	phones := h.searchService.ListPhones()
	c.JSON(http.StatusOK, gin.H{
		"phones": phones,
		"total":  len(phones),
	})
}

// GetPhone handles GET /api/v1/phones/:id
func (h *SearchHandler) GetPhone(c *gin.Context) {
	phone, err := h.searchService.GetPhone(c.Param("id"))
	if err != nil {
		if service.CodeOf(err) == service.ErrorNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Phone not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get phone: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, phone)
}
