package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/lookout/models"
	"github.com/use-agent/lookout/state"
)

// Report returns a handler for GET /api/v1/report.
//
// Serves the report of the most recently completed sweep.
func Report(store *state.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := store.Report()
		if report == nil {
			c.JSON(http.StatusNotFound, models.APIError{
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeNotFound,
					Message: "no sweep has completed yet",
				},
			})
			return
		}
		c.JSON(http.StatusOK, report)
	}
}
