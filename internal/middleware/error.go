package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-api/pkg/errors"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

// ErrorHandler logs errors attached to the context and writes a response
// for the last one when the handler did not.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		traceID := c.GetString(ContextRequestID)
		for _, e := range c.Errors {
			status := errors.HTTPStatus(e.Err)
			event := log.Warn()
			if status >= http.StatusInternalServerError {
				event = log.Error()
			}
			event.
				Err(e.Err).
				Str("request_id", traceID).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Str("actor", ActorFrom(c)).
				Int("status", status).
				Msg("Request error")
		}

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		status := errors.HTTPStatus(lastErr.Err)
		message := "Internal server error"
		if appErr, ok := errors.As(lastErr.Err); ok {
			message = appErr.Message
		}
		c.JSON(status, ErrorResponse{
			Status:  "error",
			Message: message,
			TraceID: traceID,
		})
	}
}
