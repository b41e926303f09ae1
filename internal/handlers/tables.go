package handlers

import (
	"net/http"

	"pierre/internal/models"

	"github.com/gin-gonic/gin"
)

func tablesResponse(tables []models.Table) models.TablesResponse {
	out := make([]models.TableResponse, len(tables))
	for i, t := range tables {
		out[i] = models.NewTableResponse(t)
	}
	return models.TablesResponse{Tables: out}
}

// ListTables - GET /api/tables/event/:id
func (h *Handlers) ListTables(c *gin.Context) {
	h.listTables(c, false)
}

// ListAvailableTables - GET /api/tables/event/:id/available
func (h *Handlers) ListAvailableTables(c *gin.Context) {
	h.listTables(c, true)
}

func (h *Handlers) listTables(c *gin.Context, onlyAvailable bool) {
	eventID, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	tables, err := h.tables.ListByEvent(c.Request.Context(), eventID, onlyAvailable)
	if err != nil {
		respondError(c, "list tables", err)
		return
	}
	c.JSON(http.StatusOK, tablesResponse(tables))
}

// CreateTable - POST /api/tables
func (h *Handlers) CreateTable(c *gin.Context) {
	var req models.CreateTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	table, err := h.tables.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "create table", err)
		return
	}
	c.JSON(http.StatusCreated, models.NewTableResponse(*table))
}
