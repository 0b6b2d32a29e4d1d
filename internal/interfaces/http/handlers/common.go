// Package handlers implements the gin handlers behind the HTTP surface.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/connprobe/pkg/errors"
)

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// writeAppError maps err onto the status of its code. Errors without a code
// are masked as internal errors.
func writeAppError(c *gin.Context, err error) {
	var ae *errors.AppError
	if !errors.As(err, &ae) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Code:    errors.ErrCodeInternal.String(),
			Message: errors.DefaultMessageForCode(errors.ErrCodeInternal),
		})
		return
	}
	c.AbortWithStatusJSON(errors.HTTPStatusForCode(ae.Code), ErrorResponse{
		Code:    ae.Code.String(),
		Message: ae.Message,
		Detail:  ae.Detail,
	})
}

//Personal.AI order the ending
