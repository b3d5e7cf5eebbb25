package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/lookout/state"
)

// Status returns a handler for GET /api/v1/status.
//
// Dumps the per-target watch state: last classification, streak, and when
// the target was last checked.
func Status(store *state.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"targets": store.Targets(),
		})
	}
}
