package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ZapLogger logs every request at debug level; status polling is frequent and uninteresting.
func ZapLogger(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		uri := c.Request.RequestURI

		c.Next()

		status := c.Writer.Status()
		lvl := zap.DebugLevel
		if status >= 500 {
			lvl = zap.WarnLevel
		}
		if ce := l.Check(lvl, "http_request"); ce != nil {
			ce.Write(
				zap.String("method", method),
				zap.String("uri", uri),
				zap.Int("status", status),
				zap.Int("size", max(c.Writer.Size(), 0)),
				zap.Duration("duration", time.Since(start)),
			)
		}
	}
}
