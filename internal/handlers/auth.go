package handlers

import (
	"net/http"

	"pierre/internal/models"

	"github.com/gin-gonic/gin"
)

// Login - POST /api/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	resp, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, "login", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Register - POST /api/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	resp, err := h.auth.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "register", err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Me - GET /api/auth/me
func (h *Handlers) Me(c *gin.Context) {
	user, err := h.auth.Me(c.Request.Context())
	if err != nil {
		respondError(c, "get current user", err)
		return
	}
	c.JSON(http.StatusOK, user)
}
