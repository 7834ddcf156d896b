package frontend

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rapidaai/relay/internal/accountant"
)

// handleMetrics is the usage metrics sink: a pull-model JSON endpoint
// reporting pool/queue stats, and, when a principal id is supplied, that
// principal's usage counters and projected cost.
func (s *Server) handleMetrics(c *gin.Context) {
	stats := s.pool.Stats()
	body := gin.H{
		"pool": gin.H{
			"capacity": stats.Capacity,
			"in_use":   stats.InUse,
			"idle":     stats.Idle,
			"waiting":  stats.Waiting,
		},
		"connections": s.connections.count(),
	}

	if principalID := c.Query("principal_id"); principalID != "" {
		usage := s.accountant.Snapshot(principalID)
		body["usage"] = gin.H{
			"input_tokens":        usage.InputTokens,
			"output_tokens":       usage.OutputTokens,
			"cached_input_tokens": usage.CachedInputTokens,
			"audio_input_tokens":  usage.AudioInputTokens,
			"audio_output_tokens": usage.AudioOutputTokens,
			"request_count":       usage.RequestCount,
			"error_count":         usage.ErrorCount,
		}

		pricing, ok := accountant.ModelPricing[c.DefaultQuery("model", "gpt-4o-realtime-preview-2024-12-17")]
		if ok {
			region := c.DefaultQuery("region", "DEFAULT")
			cost := accountant.ProjectCost(accountant.Usage{
				InputTokens:       usage.InputTokens,
				OutputTokens:      usage.OutputTokens,
				CachedInputTokens: usage.CachedInputTokens,
				AudioInputTokens:  usage.AudioInputTokens,
				AudioOutputTokens: usage.AudioOutputTokens,
			}, pricing, region, accountant.PricingStandard)
			body["projected_cost_usd"] = cost
		}
	}

	c.JSON(http.StatusOK, body)
}
