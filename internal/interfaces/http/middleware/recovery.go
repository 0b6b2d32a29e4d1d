package middleware

import (
	"fmt"
	"io"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/connprobe/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/connprobe/pkg/errors"
)

// Recovery turns handler panics into a logged 500.
func Recovery(logger logging.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, rec interface{}) {
		logger.Error("HTTP handler panic recovered",
			logging.String("path", c.Request.URL.Path),
			logging.String("panic", fmt.Sprintf("%v", rec)),
			logging.String("stack", string(debug.Stack())),
			logging.String("request_id", c.GetString(RequestIDKey)),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"code":    errors.ErrCodeInternal.String(),
			"message": errors.DefaultMessageForCode(errors.ErrCodeInternal),
		})
	})
}

//Personal.AI order the ending
