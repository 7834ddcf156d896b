package frontend

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rapidaai/relay/internal/types"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// handleLogin is the username/password pre-flight exchange: a
// client without a bearer token can trade credentials for a Principal
// identity check before opening the /ws upgrade. It does not mint a new
// token itself, and the /ws handshake accepts only a bearer token in the
// Authorization header, so callers still need a token issued out-of-band.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	principal, err := s.store.Authenticate(c.Request.Context(), types.Credentials{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if principal.Disabled {
		c.JSON(http.StatusForbidden, gin.H{"error": "principal disabled"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"principal_id": principal.ID,
		"tier":         principal.Tier,
	})
}
