package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"bouquet/internal/auth"
)

const (
	headerRequestID = "X-Request-ID"
	ctxRequestID    = "request_id"
)

// requestID берёт X-Request-ID от клиента или генерирует новый
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// requestLogger пишет строку на запрос и перехватывает панику
func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().
					Str("request_id", c.GetString(ctxRequestID)).
					Interface("panic", rec).
					Str("path", c.Request.URL.Path).
					Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": http.StatusText(http.StatusInternalServerError)})
			}

			status := c.Writer.Status()
			ev := log.Info()
			switch {
			case status >= http.StatusInternalServerError:
				ev = log.Error()
			case status >= http.StatusBadRequest:
				ev = log.Warn()
			}
			customer := "anonymous"
			if id, err := auth.CustomerID(c.Request.Context()); err == nil {
				customer = id
			}
			if len(c.Errors) > 0 {
				ev = ev.Str("errors", c.Errors.String())
			}
			ev.Str("request_id", c.GetString(ctxRequestID)).
				Str("customer_id", customer).
				Str("method", c.Request.Method).
				Str("path", c.Request.URL.Path).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Msg("request completed")
		}()
		c.Next()
	}
}
