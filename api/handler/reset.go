package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/lookout/models"
	"github.com/use-agent/lookout/state"
)

// Reset returns a handler for POST /api/v1/reset.
//
// Clears all persisted watch state: fingerprints, streaks, and the last
// report. The next sweep behaves like a first run.
func Reset(store *state.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := store.Reset(); err != nil {
			c.JSON(http.StatusInternalServerError, models.APIError{
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInternal,
					Message: "resetting state: " + err.Error(),
				},
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "reset"})
	}
}
