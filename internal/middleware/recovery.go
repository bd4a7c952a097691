package middleware

import (
	"net/http"

	"webstarter-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Recovery turns panics into 500 responses. http.ErrAbortHandler is
// re-raised so net/http drops the connection: that is how a broken event
// stream reaches the client as an abnormal close instead of a clean end.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			logger.WithFields(logrus.Fields{
				"panic": rec,
				"path":  c.Request.URL.Path,
			}).Error("panic recovered")

			if !c.Writer.Written() {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
				return
			}
			c.Abort()
		}()
		c.Next()
	}
}
