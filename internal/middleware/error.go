package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/metabridge-api/internal/handler"
	"github.com/jwalitptl/metabridge-api/pkg/errors"
	"github.com/jwalitptl/metabridge-api/pkg/validator"
)

// ErrorHandler renders the last error recorded on the context as {message, error}.
// Handlers that already wrote a body keep it; their errors are only logged.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		requestID := c.GetString(ContextRequestID)
		for _, e := range c.Errors {
			appErr := errors.As(e.Err)
			evt := log.Warn()
			if appErr.StatusCode() >= 500 {
				evt = log.Error()
			}
			evt.Err(e.Err).
				Str("request_id", requestID).
				Str("code", string(appErr.Code)).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Str("client_ip", c.ClientIP()).
				Msg("Request error")
		}

		if c.Writer.Written() {
			return
		}

		appErr := errors.As(c.Errors.Last().Err)
		resp := handler.ErrorResponse{
			Message: appErr.Message,
			Error:   string(appErr.Code),
		}
		if appErr.Kind == errors.KindValidation {
			resp.Fields = validator.Fields(appErr.Err)
		}
		c.AbortWithStatusJSON(appErr.StatusCode(), resp)
	}
}
