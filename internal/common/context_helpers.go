// File: internal/common/context_helpers.go
package common

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GetAccountUIDFromContext retrieves the authenticated account UID from the Gin context.
func GetAccountUIDFromContext(c *gin.Context) string {
	val, exists := c.Get(AccountUIDKey)
	if !exists {
		return ""
	}
	uid, ok := val.(string)
	if !ok {
		return ""
	}
	return uid
}

// LoggerFromContext returns the request logger, or fallback when none is set.
func LoggerFromContext(c *gin.Context, fallback *zap.Logger) *zap.Logger {
	if l, exists := c.Get(LoggerKey); exists {
		if logger, ok := l.(*zap.Logger); ok {
			return logger
		}
	}
	return fallback
}
