package middleware

import (
	"strings"

	"github.com/compressly/compressly/internal/logger"
	"github.com/gin-gonic/gin"
)

// ContextualLogger injects a request-scoped logger into the request context.
// The logger carries the route-derived component name plus trace and span
// IDs when tracing is enabled.
func ContextualLogger(defaultComponent string) gin.HandlerFunc {
	return func(c *gin.Context) {
		component := defaultComponent
		routePath := c.FullPath()
		if routePath != "" {
			component = strings.Trim(strings.ReplaceAll(routePath, "/", "-"), "-")
			if component == "" {
				component = "root"
			}
		}

		requestLogger := logger.GetLoggerWithContext(c.Request.Context(), component)
		newCtx := logger.ToContext(c.Request.Context(), requestLogger)
		c.Request = c.Request.WithContext(newCtx)

		c.Next()
	}
}
