package handlers

import (
	"net/http"
	"strconv"

	"pierre/internal/models"

	"github.com/gin-gonic/gin"
)

// ListEvents - GET /api/events
// Upcoming events, optionally filtered by query and a start date
func (h *Handlers) ListEvents(c *gin.Context) {
	events, err := h.events.List(c.Request.Context(), c.Query("query"), c.Query("date"))
	if err != nil {
		respondError(c, "list events", err)
		return
	}
	c.JSON(http.StatusOK, models.ListEventsResponse{Events: events})
}

// GroupedEvents - GET /api/events/grouped
func (h *Handlers) GroupedEvents(c *gin.Context) {
	buckets, err := h.events.Grouped(c.Request.Context(), c.Query("query"), c.Query("date"))
	if err != nil {
		respondError(c, "group events", err)
		return
	}
	c.JSON(http.StatusOK, models.GroupedEventsResponse{Buckets: buckets})
}

// SearchEvents - GET /api/events/search
func (h *Handlers) SearchEvents(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	if page < 1 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "page must be >= 1", Kind: "validation"})
		return
	}
	if pageSize < 1 || pageSize > 50 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "pageSize must be between 1 and 50", Kind: "validation"})
		return
	}

	events, err := h.events.Search(c.Request.Context(), c.Query("query"), c.Query("date"), page, pageSize)
	if err != nil {
		respondError(c, "search events", err)
		return
	}
	c.JSON(http.StatusOK, models.ListEventsResponse{Events: events})
}

// GetEvent - GET /api/events/:id
func (h *Handlers) GetEvent(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	event, err := h.events.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, "get event", err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// CreateEvent - POST /api/events
func (h *Handlers) CreateEvent(c *gin.Context) {
	var req models.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	event, err := h.events.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "create event", err)
		return
	}
	c.JSON(http.StatusCreated, event)
}
