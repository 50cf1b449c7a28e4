package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/groupbuy_api/internal/middleware"
	"github.com/GTDGit/groupbuy_api/internal/service"
	"github.com/GTDGit/groupbuy_api/internal/utils"
)

type AuthHandler struct {
	authService *service.AuthService
	limiter     *middleware.LoginRateLimiter
}

func NewAuthHandler(authService *service.AuthService, limiter *middleware.LoginRateLimiter) *AuthHandler {
	return &AuthHandler{authService: authService, limiter: limiter}
}

// Login handles POST /api/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	ip := c.ClientIP()
	if h.limiter != nil && h.limiter.Blocked(ip) {
		utils.Error(c, 429, "TOO_MANY_REQUESTS", "Too many failed login attempts")
		return
	}

	token, user, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidCredentials) && h.limiter != nil {
			h.limiter.Fail(ip)
		}
		respondError(c, err)
		return
	}
	if h.limiter != nil {
		h.limiter.Reset(ip)
	}

	utils.Success(c, 200, "Login successful", gin.H{
		"token":    token,
		"username": user.Username,
		"role":     user.Role,
	})
}

// ChangePassword handles PATCH /api/user/password for the signed-in user.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	err := h.authService.ChangePassword(c.Request.Context(), middleware.GetUsername(c), req.CurrentPassword, req.NewPassword)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Password updated", nil)
}
