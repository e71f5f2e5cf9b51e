package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docask/docask/internal/pkg/errcode"
	"github.com/docask/docask/internal/pkg/jwt"
	"github.com/docask/docask/internal/pkg/response"
)

// AuthHandler mints access tokens for a caller-supplied user id.
// Identity is established upstream; this service only scopes data by
// the id carried in the token.
type AuthHandler struct {
	secret []byte
	ttl    time.Duration
}

func NewAuthHandler(secret []byte, ttl time.Duration) *AuthHandler {
	return &AuthHandler{secret: secret, ttl: ttl}
}

type tokenRequest struct {
	UserID string `json:"user_id"`
}

func (h *AuthHandler) Token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		response.Error(c, errcode.ErrInvalid, "user_id is required")
		return
	}
	token, err := jwt.GenerateToken(userID, h.secret, h.ttl)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"token":      token,
		"expires_in": int64(h.ttl.Seconds()),
	})
}
