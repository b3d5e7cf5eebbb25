package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/lookout/models"
	"github.com/use-agent/lookout/session"
)

// Health returns a handler for GET /api/v1/health.
//
// Reports pool utilisation and degrades status when > 80% of sessions are
// active.
func Health(p *session.Provider, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := p.Stats()

		status := "healthy"
		if stats.Capacity > 0 && stats.Active > int(float64(stats.Capacity)*0.8) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Pool:    stats,
			Version: "0.1.0",
		})
	}
}
