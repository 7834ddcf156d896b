package frontend

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleHealth reports pool size, queue depths, and connection count on the
// /health surface.
func (s *Server) handleHealth(c *gin.Context) {
	stats := s.pool.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"connections":   s.connections.count(),
		"pool_capacity": stats.Capacity,
		"pool_in_use":   stats.InUse,
		"pool_idle":     stats.Idle,
		"pool_waiting":  stats.Waiting,
	})
}
