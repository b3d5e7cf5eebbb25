package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/lookout/watch"
)

// Check returns a handler for POST /api/v1/check.
//
// Triggers a sweep outside the regular interval and returns its report. The
// sweep runs synchronously under the request context, so closing the
// connection cancels in-flight tasks. Concurrent sweeps are serialised by the
// watcher itself.
func Check(w *watch.Watcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := w.Sweep(c.Request.Context())
		c.JSON(http.StatusOK, report)
	}
}
