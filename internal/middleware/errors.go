package middleware

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/vidstream/internal/apperr"
	"go.uber.org/zap"
)

// failure is the error half of the response envelope.
type failure struct {
	Status  int      `json:"status"`
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

// ErrorHandler is the single place errors become HTTP responses.
//
// Handlers and other middleware call c.Error(err) and return (or Abort).
// After the chain finishes, the last error is classified with apperr and
// written as {status, message, errors?}. Internal errors are logged with
// their cause; the caller only ever sees the generic message.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		var ae *apperr.Error
		if !errors.As(err, &ae) {
			ae = &apperr.Error{Kind: apperr.KindInternal, Err: err}
		}

		status := ae.Kind.Status()
		message := ae.Message
		if ae.Kind == apperr.KindInternal {
			logger.Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.String("message", ae.Message),
				zap.Error(ae.Unwrap()),
			)
			if message == "" {
				message = "something went wrong"
			}
		}

		c.JSON(status, failure{
			Status:  status,
			Success: false,
			Message: message,
			Errors:  ae.Fields,
		})
	}
}

// Recovery turns a panic into a logged 500 envelope instead of a dropped
// connection.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, rec any) {
		logger.Error("panic recovered",
			zap.Any("panic", rec),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Stack("stack"),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, failure{
			Status:  http.StatusInternalServerError,
			Message: "something went wrong",
		})
	})
}
