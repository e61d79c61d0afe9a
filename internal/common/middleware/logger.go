package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"avastore-backend/internal/common/logger"
)

var quietPaths = map[string]struct{}{
	"/health": {},
	"/live":   {},
	"/ready":  {},
}

// Logger пишет одну строку zerolog на запрос; пробы здоровья только в debug
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		event := logger.Info()
		if _, quiet := quietPaths[path]; quiet {
			event = logger.Debug()
		}
		if c.Writer.Status() >= 500 {
			event = logger.Error()
		}

		event = event.
			Str("request_id", requestID(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Int("body_size", c.Writer.Size())

		if identity, ok := GetIdentity(c); ok {
			event = event.Int64("user_id", identity.UserID)
		}

		event.Msg("Request processed")
	}
}
